package streamline

import "github.com/lawnchairsociety/citygen/internal/geom"

// Seed is a candidate start point for a future streamline.
type Seed struct {
	Position geom.Point
	// Consumed is set once the seed has been traced or swallowed by a
	// passing streamline.
	Consumed bool
}

// NewSeed returns an unconsumed seed at p.
func NewSeed(p geom.Point) *Seed {
	return &Seed{Position: p}
}

// Pos implements spatial.Item.
func (s *Seed) Pos() geom.Point {
	return s.Position
}

// lateral returns the point offset from p by distance, a quarter turn
// clockwise of dir.
func lateral(p, dir geom.Point, distance float64) geom.Point {
	return p.Add(dir.Perp().Normalize().Scale(distance))
}
