package geom

import "math"

// orientEpsilon absorbs rounding noise in orientation tests.
const orientEpsilon = 1e-12

// Orient returns 1 if c lies counter-clockwise of the directed line a->b,
// -1 if it lies clockwise and 0 if the three points are collinear.
func Orient(a, b, c Point) int {
	v := b.Sub(a).Cross(c.Sub(a))
	switch {
	case math.Abs(v) < orientEpsilon:
		return 0
	case v > 0:
		return 1
	default:
		return -1
	}
}

// SegmentsCross reports whether segment p1-p2 and segment p3-p4 share at
// least one point. Touching endpoints and collinear overlap count as crossing.
func SegmentsCross(p1, p2, p3, p4 Point) bool {
	d1 := Orient(p1, p2, p3) * Orient(p1, p2, p4)
	d2 := Orient(p3, p4, p1) * Orient(p3, p4, p2)

	if d1 == 0 && d2 == 0 {
		if Orient(p1, p2, p3) != 0 || Orient(p1, p2, p4) != 0 {
			return true
		}
		return overlaps1D(p1, p2, p3, p4)
	}
	return d1 <= 0 && d2 <= 0
}

// overlaps1D checks collinear segments for overlap along their shared line.
func overlaps1D(p1, p2, p3, p4 Point) bool {
	axis := p2.Sub(p1)
	if axis.IsZero() {
		axis = p4.Sub(p3)
	}
	if axis.IsZero() {
		return p1.Near(p3, Epsilon)
	}
	a0, a1 := axis.Dot(p1), axis.Dot(p2)
	b0, b1 := axis.Dot(p3), axis.Dot(p4)
	if a0 > a1 {
		a0, a1 = a1, a0
	}
	if b0 > b1 {
		b0, b1 = b1, b0
	}
	return a0 <= b1 && b0 <= a1
}

// LineIntersection intersects the infinite lines through p1-p2 and p3-p4.
// ok is false when the lines are parallel or degenerate.
func LineIntersection(p1, p2, p3, p4 Point) (Point, bool) {
	d1 := p2.Sub(p1)
	d2 := p4.Sub(p3)
	den := d1.Cross(d2)
	if math.Abs(den) < orientEpsilon {
		return Point{}, false
	}
	s := p3.Sub(p1).Cross(d2) / den
	return Point{X: p1.X + s*d1.X, Z: p1.Z + s*d1.Z}, true
}

// LineDistance returns the perpendicular distance from p to the infinite line
// through a and b. A degenerate line falls back to the distance to a.
func LineDistance(a, b, p Point) float64 {
	d := b.Sub(a)
	l := d.Len()
	if l < Epsilon {
		return p.Dist(a)
	}
	return math.Abs(d.Cross(p.Sub(a))) / l
}

// SideOf returns the signed perpendicular offset of p from the directed line
// a->b: positive on the left, negative on the right.
func SideOf(a, b, p Point) float64 {
	d := b.Sub(a)
	l := d.Len()
	if l < Epsilon {
		return 0
	}
	return d.Cross(p.Sub(a)) / l
}

// ClockwiseAngle returns the clockwise angle in radians, in [0, 2π), that
// turns direction from onto direction to.
func ClockwiseAngle(from, to Point) float64 {
	a := -math.Atan2(from.Cross(to), from.Dot(to))
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// Bisector rotates prevDir clockwise by half of the clockwise angle between
// prevDir and nextDir. At a vertex of a counter-clockwise ring, with prevDir
// and nextDir pointing at the neighbours, the result points into the ring.
func Bisector(prevDir, nextDir Point) Point {
	return prevDir.RotateCW(ClockwiseAngle(prevDir, nextDir) / 2).Normalize()
}

// BisectorAt is Bisector for the corner prev-center-next.
func BisectorAt(center, prev, next Point) Point {
	return Bisector(prev.Sub(center).Normalize(), next.Sub(center).Normalize())
}
