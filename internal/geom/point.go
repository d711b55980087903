// Package geom holds the planar vector math shared by the generator packages.
//
// Points carry three coordinates so they can be handed to collaborators as-is,
// but every operation here works in the X-Z plane with Y held at zero.
package geom

import "math"

// Epsilon is the length below which a vector is treated as zero.
const Epsilon = 1e-9

// Point is a position or direction in the ground plane.
type Point struct {
	X, Y, Z float64
}

// Pt builds a ground-plane point.
func Pt(x, z float64) Point {
	return Point{X: x, Z: z}
}

func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y, Z: p.Z + q.Z}
}

func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

func (p Point) Scale(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s, Z: p.Z * s}
}

// Dot is the planar dot product.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Z*q.Z
}

// Cross is the planar cross product. It is positive when q lies
// counter-clockwise of p (X to the right, Z up).
func (p Point) Cross(q Point) float64 {
	return p.X*q.Z - p.Z*q.X
}

// Len returns the planar length.
func (p Point) Len() float64 {
	return math.Hypot(p.X, p.Z)
}

// LenSq returns the squared planar length.
func (p Point) LenSq() float64 {
	return p.X*p.X + p.Z*p.Z
}

// Normalize returns the unit vector in the direction of p, or the zero
// vector if p is too short to have a direction.
func (p Point) Normalize() Point {
	l := p.Len()
	if l < Epsilon {
		return Point{}
	}
	return Point{X: p.X / l, Z: p.Z / l}
}

// IsZero reports whether p has no usable direction.
func (p Point) IsZero() bool {
	return p.LenSq() < Epsilon*Epsilon
}

// IsFinite reports whether both planar coordinates are finite numbers.
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Z) && !math.IsInf(p.X, 0) && !math.IsInf(p.Z, 0)
}

// Dist returns the planar distance between p and q.
func (p Point) Dist(q Point) float64 {
	return p.Sub(q).Len()
}

// DistSq returns the squared planar distance between p and q.
func (p Point) DistSq(q Point) float64 {
	return p.Sub(q).LenSq()
}

// Perp rotates p a quarter turn clockwise: (x, z) -> (z, -x).
func (p Point) Perp() Point {
	return Point{X: p.Z, Z: -p.X}
}

// RotateCW rotates p clockwise by theta radians.
func (p Point) RotateCW(theta float64) Point {
	s, c := math.Sincos(theta)
	return Point{X: p.X*c + p.Z*s, Z: -p.X*s + p.Z*c}
}

// Near reports whether p and q are within tol of each other.
func (p Point) Near(q Point, tol float64) bool {
	return p.DistSq(q) <= tol*tol
}

// Lerp interpolates between p and q.
func Lerp(p, q Point, t float64) Point {
	return p.Add(q.Sub(p).Scale(t))
}
