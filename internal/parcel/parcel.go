// Package parcel divides city blocks into building lots.
package parcel

import (
	"math"
	"math/rand"

	"github.com/paulmach/orb/planar"

	"github.com/lawnchairsociety/citygen/internal/geom"
	"github.com/lawnchairsociety/citygen/internal/offset"
)

const (
	// splitMargin extends split lines past the bounding rectangle so that
	// they cross edges lying on it.
	splitMargin = 0.001
	// maxPieces bounds the work of one Subdivide call.
	maxPieces = 4096
	// minLotArea drops slivers left over by splitting.
	minLotArea = 1e-6
)

// Options controls how a block is turned into lots.
type Options struct {
	// Scale multiplies block coordinates before any inset is applied.
	Scale float64
	// RoadInset is the distance kept free along the block boundary.
	RoadInset float64
	// LotInset is the distance between neighbouring buildings.
	LotInset float64
	// MaxLotSize is the longest side a lot's bounding rectangle may have.
	MaxLotSize float64
	// MinEdgeLength drops lot corners closer than this to their predecessor.
	MinEdgeLength float64
	// MinHeight and MaxHeight bound the random building height.
	MinHeight, MaxHeight float64
}

// DefaultOptions returns the lot settings used for generated cities.
func DefaultOptions() Options {
	return Options{
		Scale:         100,
		RoadInset:     9,
		LotInset:      5,
		MaxLotSize:    70,
		MinEdgeLength: 3,
		MinHeight:     10,
		MaxHeight:     70,
	}
}

// Parcel is a building footprint with its height.
type Parcel struct {
	Points []geom.Point
	Height float64
}

// Subdivide splits ring in half across its minimum bounding rectangle until
// every piece fits in a maxSize square. Pieces that cannot be split are kept
// as they are.
func Subdivide(ring []geom.Point, maxSize float64) [][]geom.Point {
	var out [][]geom.Point
	queue := [][]geom.Point{ring}

	for len(queue) > 0 {
		poly := queue[0]
		queue = queue[1:]

		r := MinBoundingRect(ConvexHull(poly))
		if (r.Width < maxSize && r.Height < maxSize) || len(out)+len(queue) >= maxPieces {
			out = append(out, poly)
			continue
		}

		a, b := SplitLine(r, splitMargin)
		left, right, ok := SplitPolygon(poly, a, b)
		if !ok {
			out = append(out, poly)
			continue
		}
		for _, half := range [][]geom.Point{left, right} {
			if len(half) >= 3 && math.Abs(planar.Area(geom.Ring(half).Orb())) > minLotArea {
				queue = append(queue, half)
			}
		}
	}
	return out
}

// RemoveShortEdges drops every point closer than minLength to the point
// before it in ring, wrapping around at the start.
func RemoveShortEdges(ring []geom.Point, minLength float64) []geom.Point {
	n := len(ring)
	out := make([]geom.Point, 0, n)
	for i, p := range ring {
		if p.Dist(ring[(i+n-1)%n]) < minLength {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Layout is what Build makes of one block.
type Layout struct {
	// Insets are the buildable areas left after the road inset, scaled.
	Insets  [][]geom.Point
	Parcels []Parcel
	// Dropped counts inset rings skipped for non-finite coordinates.
	Dropped int
}

// Build turns one block boundary into building lots: the block is scaled,
// inset from the road and each inset area is handed to Lots.
func Build(block []geom.Point, opts Options, rng *rand.Rand) Layout {
	var l Layout
	if len(block) < 3 {
		return l
	}
	for _, inset := range offset.Shrink(geom.Ring(block).Scale(opts.Scale), opts.RoadInset) {
		if !geom.Ring(inset).IsFinite() {
			l.Dropped++
			continue
		}
		l.Insets = append(l.Insets, inset)
		l.Parcels = append(l.Parcels, Lots(inset, opts, rng)...)
	}
	return l
}

// Lots cuts an already inset block into lots, cleans them up, insets them
// again and gives each a height drawn from rng.
func Lots(inset []geom.Point, opts Options, rng *rand.Rand) []Parcel {
	var out []Parcel
	for _, lot := range Subdivide(inset, opts.MaxLotSize) {
		cleaned := RemoveShortEdges(lot, opts.MinEdgeLength)
		if len(cleaned) < 3 {
			continue
		}
		for _, footprint := range offset.Shrink(cleaned, opts.LotInset) {
			if !geom.Ring(footprint).IsFinite() {
				continue
			}
			out = append(out, Parcel{
				Points: footprint,
				Height: opts.MinHeight + rng.Float64()*(opts.MaxHeight-opts.MinHeight),
			})
		}
	}
	return out
}
