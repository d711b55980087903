package tensor

import "github.com/lawnchairsociety/citygen/internal/geom"

// Field sums a set of basis fields into one steerable direction field.
type Field struct {
	bases []Basis
}

// NewField returns a field combining the given bases in order.
func NewField(bases ...Basis) *Field {
	return &Field{bases: append([]Basis(nil), bases...)}
}

// Add appends a basis field.
func (f *Field) Add(b Basis) {
	f.bases = append(f.bases, b)
}

// Len returns the number of basis fields.
func (f *Field) Len() int {
	return len(f.bases)
}

// Tensor returns the elementwise sum of every basis tensor at p.
func (f *Field) Tensor(p geom.Point) Tensor {
	var sum Tensor
	for _, b := range f.bases {
		sum = sum.Add(b.Tensor(p))
	}
	return sum
}

// Sample returns the major or minor eigen-direction at p. A field without
// any basis has no direction and returns the zero vector.
func (f *Field) Sample(p geom.Point, major bool) geom.Point {
	if len(f.bases) == 0 {
		return geom.Point{}
	}
	maj, minor := f.Tensor(p).Eigen()
	if major {
		return maj
	}
	return minor
}

// SampleAligned is Sample with the sign chosen to agree with prev.
func (f *Field) SampleAligned(p, prev geom.Point, major bool) geom.Point {
	v := f.Sample(p, major)
	if v.Dot(prev) < 0 {
		return v.Scale(-1)
	}
	return v
}

// RungeKutta advances p by one classic RK4 step of size h along the chosen
// eigen-direction, keeping the sign continuous with prev. reverse walks the
// field backwards.
func (f *Field) RungeKutta(p, prev geom.Point, reverse, major bool, h float64) geom.Point {
	sign := 1.0
	if reverse {
		sign = -1
	}
	dir := func(x geom.Point) geom.Point {
		return f.SampleAligned(x, prev, major).Scale(sign * h)
	}

	k1 := dir(p)
	k2 := dir(p.Add(k1.Scale(0.5)))
	k3 := dir(p.Add(k2.Scale(0.5)))
	k4 := dir(p.Add(k3))

	step := k1.Add(k2.Scale(2)).Add(k3.Scale(2)).Add(k4).Scale(1.0 / 6)
	return p.Add(step)
}
