// Package spatial provides a uniform bucket grid for proximity queries over
// a bounded rectangular domain.
package spatial

import (
	"math"
	"slices"

	"github.com/paulmach/orb"

	"github.com/lawnchairsociety/citygen/internal/geom"
)

// Item is anything with a ground-plane position. Items are held by reference
// and must not move while stored; remove and reinsert to relocate one.
type Item interface {
	comparable
	Pos() geom.Point
}

// Cell is one bucket of the grid.
type Cell[T Item] struct {
	Bound orb.Bound
	Items []T
}

// Grid is a count x count array of buckets covering [0,width) x [0,depth).
// Points outside the domain are clamped into the border buckets.
type Grid[T Item] struct {
	count        int
	cellW, cellD float64
	cells        []Cell[T]
	size         int
}

// New creates an empty grid. count is clamped to at least 1.
func New[T Item](width, depth float64, count int) *Grid[T] {
	if count < 1 {
		count = 1
	}
	g := &Grid[T]{
		count: count,
		cellW: cellSize(width, count),
		cellD: cellSize(depth, count),
		cells: make([]Cell[T], count*count),
	}
	for iz := 0; iz < count; iz++ {
		for ix := 0; ix < count; ix++ {
			g.cells[iz*count+ix].Bound = orb.Bound{
				Min: orb.Point{float64(ix) * g.cellW, float64(iz) * g.cellD},
				Max: orb.Point{float64(ix+1) * g.cellW, float64(iz+1) * g.cellD},
			}
		}
	}
	return g
}

func cellSize(extent float64, count int) float64 {
	if extent <= 0 {
		return 1
	}
	return extent / float64(count)
}

// index maps a coordinate to a clamped bucket index.
func (g *Grid[T]) index(v, cell float64) int {
	i := math.Floor(v / cell)
	if math.IsNaN(i) || i < 0 {
		return 0
	}
	if i > float64(g.count-1) {
		return g.count - 1
	}
	return int(i)
}

func (g *Grid[T]) cellAt(ix, iz int) *Cell[T] {
	return &g.cells[iz*g.count+ix]
}

// Cell returns the bucket containing p.
func (g *Grid[T]) Cell(p geom.Point) *Cell[T] {
	return g.cellAt(g.index(p.X, g.cellW), g.index(p.Z, g.cellD))
}

// Insert adds item to the bucket of its current position.
func (g *Grid[T]) Insert(item T) {
	c := g.Cell(item.Pos())
	c.Items = append(c.Items, item)
	g.size++
}

// Remove deletes item from the bucket of its current position and reports
// whether it was present.
func (g *Grid[T]) Remove(item T) bool {
	c := g.Cell(item.Pos())
	i := slices.Index(c.Items, item)
	if i < 0 {
		return false
	}
	c.Items = slices.Delete(c.Items, i, i+1)
	g.size--
	return true
}

// Len returns the number of stored items.
func (g *Grid[T]) Len() int {
	return g.size
}

// Range returns every item in the buckets overlapping the square
// [p-r, p+r]. The result may contain items farther than r from p but never
// misses one within r.
func (g *Grid[T]) Range(p geom.Point, r float64) []T {
	x0, x1 := g.index(p.X-r, g.cellW), g.index(p.X+r, g.cellW)
	z0, z1 := g.index(p.Z-r, g.cellD), g.index(p.Z+r, g.cellD)

	var out []T
	for iz := z0; iz <= z1; iz++ {
		for ix := x0; ix <= x1; ix++ {
			out = append(out, g.cellAt(ix, iz).Items...)
		}
	}
	return out
}

// Within returns the items at distance r or less from p.
func (g *Grid[T]) Within(p geom.Point, r float64) []T {
	var out []T
	for _, it := range g.Range(p, r) {
		if it.Pos().DistSq(p) <= r*r {
			out = append(out, it)
		}
	}
	return out
}

// Nearest returns the closest item within r of p.
func (g *Grid[T]) Nearest(p geom.Point, r float64) (T, bool) {
	var best T
	found := false
	bestD := r * r
	for _, it := range g.Range(p, r) {
		if d := it.Pos().DistSq(p); d <= bestD {
			best, bestD, found = it, d, true
		}
	}
	return best, found
}

// Any reports whether some item within r of p satisfies match. A nil match
// accepts every item.
func (g *Grid[T]) Any(p geom.Point, r float64, match func(T) bool) bool {
	for _, it := range g.Range(p, r) {
		if it.Pos().DistSq(p) > r*r {
			continue
		}
		if match == nil || match(it) {
			return true
		}
	}
	return false
}
