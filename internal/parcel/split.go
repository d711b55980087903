package parcel

import (
	"cmp"
	"math"
	"slices"

	"github.com/lawnchairsociety/citygen/internal/geom"
)

// parallelTolerance is the |sin| between an edge and the split line below
// which the edge is not cut.
const parallelTolerance = 0.01

// mergeTolerance drops a crossing this close to one already found.
const mergeTolerance = 0.01

type crossing struct {
	edge  int
	point geom.Point
	along float64
}

// SplitPolygon cuts ring along the segment a-b. It uses the two crossings
// nearest a, so a convex ring is always cut in two; for other shapes the
// piece nearest a is cut off. Both halves keep the ring's orientation. ok is
// false when the segment does not cross the ring twice.
func SplitPolygon(ring []geom.Point, a, b geom.Point) (left, right []geom.Point, ok bool) {
	dir := b.Sub(a).Normalize()
	if dir.IsZero() || len(ring) < 3 {
		return nil, nil, false
	}

	n := len(ring)
	var xs []crossing
	for i := range ring {
		p, q := ring[i], ring[(i+1)%n]
		edge := q.Sub(p).Normalize()
		if math.Abs(edge.Cross(dir)) < parallelTolerance {
			continue
		}
		if !geom.SegmentsCross(p, q, a, b) {
			continue
		}
		x, found := geom.LineIntersection(p, q, a, b)
		if !found {
			continue
		}
		xs = append(xs, crossing{edge: i, point: x, along: x.Sub(a).Dot(dir)})
	}
	slices.SortStableFunc(xs, func(x, y crossing) int { return cmp.Compare(x.along, y.along) })
	xs = slices.CompactFunc(xs, func(x, y crossing) bool { return x.point.Near(y.point, mergeTolerance) })
	if len(xs) < 2 {
		return nil, nil, false
	}

	first, second := xs[0], xs[1]
	if first.edge > second.edge {
		first, second = second, first
	}

	left = append(left, first.point)
	for m := first.edge + 1; m <= second.edge; m++ {
		left = append(left, ring[m])
	}
	left = append(left, second.point)

	right = append(right, second.point)
	for m := (second.edge + 1) % n; m != (first.edge+1)%n; m = (m + 1) % n {
		right = append(right, ring[m])
	}
	right = append(right, first.point)

	return dedup(left), dedup(right), true
}

func dedup(ring []geom.Point) []geom.Point {
	out := ring[:0:0]
	for _, p := range ring {
		if len(out) > 0 && out[len(out)-1].Near(p, geom.Epsilon) {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[len(out)-1].Near(out[0], geom.Epsilon) {
		out = out[:len(out)-1]
	}
	return out
}
