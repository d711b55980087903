package parcel

import (
	"cmp"
	"math"
	"slices"

	"github.com/lawnchairsociety/citygen/internal/geom"
)

// ConvexHull returns the convex hull of pts in counter-clockwise order,
// starting from the lowest-x point. Collinear points are dropped.
func ConvexHull(pts []geom.Point) []geom.Point {
	sorted := slices.Clone(pts)
	slices.SortFunc(sorted, func(a, b geom.Point) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Z, b.Z)
	})
	sorted = slices.CompactFunc(sorted, func(a, b geom.Point) bool { return a.Near(b, geom.Epsilon) })
	if len(sorted) < 3 {
		return sorted
	}

	hull := make([]geom.Point, 0, 2*len(sorted))
	for _, p := range sorted {
		for len(hull) >= 2 && geom.Orient(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for _, p := range slices.Backward(sorted[:len(sorted)-1]) {
		for len(hull) >= lower && geom.Orient(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// Rect is an oriented rectangle.
type Rect struct {
	// Corners run counter-clockwise. Corners[0]-Corners[1] is parallel to
	// Axis and has length Width.
	Corners [4]geom.Point
	Axis    geom.Point
	Width   float64
	Height  float64
}

// Area returns Width * Height.
func (r Rect) Area() float64 {
	return r.Width * r.Height
}

// MinBoundingRect returns the smallest-area rectangle enclosing hull that has
// one side along a hull edge. hull should be convex.
func MinBoundingRect(hull []geom.Point) Rect {
	var best Rect
	bestArea := math.Inf(1)

	n := len(hull)
	for i := range hull {
		u := hull[(i+1)%n].Sub(hull[i]).Normalize()
		if u.IsZero() {
			continue
		}
		v := geom.Point{X: -u.Z, Z: u.X}
		origin := hull[i]

		minU, maxU := math.Inf(1), math.Inf(-1)
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			d := p.Sub(origin)
			pu, pv := d.Dot(u), d.Dot(v)
			minU, maxU = math.Min(minU, pu), math.Max(maxU, pu)
			minV, maxV = math.Min(minV, pv), math.Max(maxV, pv)
		}

		area := (maxU - minU) * (maxV - minV)
		if area >= bestArea {
			continue
		}
		bestArea = area
		at := func(a, b float64) geom.Point {
			return origin.Add(u.Scale(a)).Add(v.Scale(b))
		}
		best = Rect{
			Corners: [4]geom.Point{at(minU, minV), at(maxU, minV), at(maxU, maxV), at(minU, maxV)},
			Axis:    u,
			Width:   maxU - minU,
			Height:  maxV - minV,
		}
	}
	return best
}

// SplitLine returns a segment through the middle of r that cuts its longer
// side in half, extended by margin past both sides.
func SplitLine(r Rect, margin float64) (a, b geom.Point) {
	c := r.Corners
	if r.Width >= r.Height {
		a, b = geom.Lerp(c[0], c[1], 0.5), geom.Lerp(c[3], c[2], 0.5)
	} else {
		a, b = geom.Lerp(c[0], c[3], 0.5), geom.Lerp(c[1], c[2], 0.5)
	}
	dir := b.Sub(a).Normalize()
	return a.Sub(dir.Scale(margin)), b.Add(dir.Scale(margin))
}
