package tensor

import (
	"math"

	"github.com/lawnchairsociety/citygen/internal/geom"
)

// Basis is one elementary field generator.
type Basis interface {
	Tensor(p geom.Point) Tensor
}

// Kernel is the Gaussian falloff exp(-gamma * |p - center|²). The center is
// projected onto the ground plane first.
func Kernel(gamma float64, center, p geom.Point) float64 {
	c := geom.Pt(center.X, center.Z)
	return math.Exp(-gamma * c.DistSq(p))
}

// Linear is a grid-like field: constant orientation Theta (radians) and
// magnitude R, fading with distance from Center.
type Linear struct {
	R      float64
	Theta  float64
	Gamma  float64
	Center geom.Point
}

func (l Linear) Tensor(p geom.Point) Tensor {
	return oriented(l.R, l.Theta).Scale(Kernel(l.Gamma, l.Center, p))
}

// Radial makes streets circle around and radiate from Center.
type Radial struct {
	Gamma  float64
	Center geom.Point
}

func (r Radial) Tensor(p geom.Point) Tensor {
	q := p.Sub(r.Center)
	a := q.Z*q.Z - q.X*q.X
	b := -2 * q.X * q.Z
	k := Kernel(r.Gamma, r.Center, p)
	return Tensor{
		{a * k, b * k},
		{b * k, -a * k},
	}
}

// Polyline pulls streets parallel to a guide line such as a river or coast.
// Each segment contributes a unit linear tensor along its bearing, centred on
// the segment start.
type Polyline struct {
	Gamma  float64
	Points []geom.Point
}

func (l Polyline) Tensor(p geom.Point) Tensor {
	var sum Tensor
	for i := 0; i+1 < len(l.Points); i++ {
		dir := l.Points[i+1].Sub(l.Points[i])
		if dir.IsZero() {
			continue
		}
		theta := math.Atan2(dir.Z, dir.X)
		sum = sum.Add(oriented(1, theta).Scale(Kernel(l.Gamma, l.Points[i], p)))
	}
	return sum
}
