package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Ring is a closed polygon outline; the last point connects back to the first.
type Ring []Point

// SignedArea returns the shoelace area, positive for counter-clockwise rings.
func (r Ring) SignedArea() float64 {
	if len(r) < 3 {
		return 0
	}
	var sum float64
	for i := range r {
		j := (i + 1) % len(r)
		sum += r[i].Cross(r[j])
	}
	return sum / 2
}

// Area returns the unsigned area.
func (r Ring) Area() float64 {
	return math.Abs(r.SignedArea())
}

// Perimeter returns the total edge length including the closing edge.
func (r Ring) Perimeter() float64 {
	var sum float64
	for i := range r {
		sum += r[i].Dist(r[(i+1)%len(r)])
	}
	return sum
}

// IsFinite reports whether every point of the ring is finite.
func (r Ring) IsFinite() bool {
	for _, p := range r {
		if !p.IsFinite() {
			return false
		}
	}
	return true
}

// Contains reports whether p lies inside the ring.
func (r Ring) Contains(p Point) bool {
	return planar.RingContains(r.Orb(), ToOrb(p))
}

// Centroid returns the area centroid, falling back to the vertex mean for
// degenerate rings.
func (r Ring) Centroid() Point {
	if len(r) == 0 {
		return Point{}
	}
	c, area := planar.CentroidArea(r.Orb())
	if area == 0 {
		var sum Point
		for _, p := range r {
			sum = sum.Add(p)
		}
		return sum.Scale(1 / float64(len(r)))
	}
	return FromOrb(c)
}

// Reverse returns the ring with its winding flipped.
func (r Ring) Reverse() Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}

// Scale multiplies every coordinate by s.
func (r Ring) Scale(s float64) Ring {
	out := make(Ring, len(r))
	for i, p := range r {
		out[i] = p.Scale(s)
	}
	return out
}

// Bound returns the axis-aligned bounding box.
func (r Ring) Bound() orb.Bound {
	return r.Orb().Bound()
}

// ToOrb maps the ground plane onto orb's x-y plane (Z becomes y).
func ToOrb(p Point) orb.Point {
	return orb.Point{p.X, p.Z}
}

// FromOrb is the inverse of ToOrb.
func FromOrb(p orb.Point) Point {
	return Point{X: p[0], Z: p[1]}
}

// Orb returns the ring as an explicitly closed orb.Ring.
func (r Ring) Orb() orb.Ring {
	out := make(orb.Ring, 0, len(r)+1)
	for _, p := range r {
		out = append(out, ToOrb(p))
	}
	if len(r) > 0 && !r[0].Near(r[len(r)-1], 0) {
		out = append(out, ToOrb(r[0]))
	}
	return out
}

// RingFromOrb drops the closing point of an orb.Ring if present.
func RingFromOrb(or orb.Ring) Ring {
	if len(or) > 1 && or[0].Equal(or[len(or)-1]) {
		or = or[:len(or)-1]
	}
	out := make(Ring, len(or))
	for i, p := range or {
		out[i] = FromOrb(p)
	}
	return out
}

// LineString converts an open polyline to orb.
func LineString(pts []Point) orb.LineString {
	out := make(orb.LineString, len(pts))
	for i, p := range pts {
		out[i] = ToOrb(p)
	}
	return out
}
