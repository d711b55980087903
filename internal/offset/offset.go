// Package offset insets polygons along their straight skeleton. When an edge
// collapses or a reflex corner runs into the opposite side before the full
// distance is reached, the ring is rebuilt at that event and the remaining
// distance is applied to the result.
package offset

import (
	"math"

	"github.com/lawnchairsociety/citygen/internal/geom"
)

const (
	// MinDistance is the largest distance treated as no offset at all.
	MinDistance = 1e-5
	// MaxEvents bounds the number of topology events processed per call.
	// Work left when the budget runs out is emitted as a naive offset.
	MaxEvents = 1024

	// flatParent is the sin(angle/2) below which the bisector length is not
	// scaled, keeping near-straight corners from blowing up.
	flatParent = 0.1
	// dupTolerance merges consecutive points this close together.
	dupTolerance = 1e-6
	// minEventDistance ignores events that would not move the ring.
	minEventDistance = 1e-7
	// arrivalTolerance is the relative gap allowed between the distances at
	// which two corners that are not neighbours reach the same point.
	arrivalTolerance = 1e-6
	// spikeTolerance is the cross product of unit directions below which a
	// reversing point counts as a spike tip.
	spikeTolerance = 1e-9
)

// EventKind distinguishes the two topology changes.
type EventKind int

const (
	// VertexEvent merges two corners. Neighbours collapse the edge between
	// them; corners further apart pinch the ring in two.
	VertexEvent EventKind = iota + 1
	// SplitEvent splits the ring where a reflex vertex reaches another edge.
	SplitEvent
)

func (k EventKind) String() string {
	switch k {
	case VertexEvent:
		return "vertex"
	case SplitEvent:
		return "split"
	default:
		return "none"
	}
}

// Event is the earliest topology change of one offset level.
type Event struct {
	Kind EventKind
	// Index is the vertex whose bisector produced the event.
	Index int
	// Other is the second corner for a vertex event, or the start vertex of
	// the edge that is hit for a split event.
	Other int
	// Point is where the event happens.
	Point geom.Point
	// Distance is how far the edges have moved when it happens.
	Distance float64
}

// corner holds the per-vertex offset data of one ring.
type corner struct {
	pos      geom.Point
	bisector geom.Point
	parent   float64
	reflex   bool
}

// length returns how far the corner travels along its bisector while the
// edges move by d.
func (c corner) length(d float64) float64 {
	if c.parent <= flatParent {
		return d
	}
	return d / c.parent
}

func (c corner) at(d float64) geom.Point {
	return c.pos.Add(c.bisector.Scale(c.length(d)))
}

func corners(ring []geom.Point) []corner {
	n := len(ring)
	out := make([]corner, n)
	for i, p := range ring {
		prevDir := ring[(i+n-1)%n].Sub(p).Normalize()
		nextDir := ring[(i+1)%n].Sub(p).Normalize()
		angle := geom.ClockwiseAngle(prevDir, nextDir)
		out[i] = corner{
			pos:      p,
			bisector: geom.Bisector(prevDir, nextDir),
			parent:   math.Sin(angle / 2),
			reflex:   angle > math.Pi+geom.Epsilon,
		}
	}
	return out
}

// Shrink insets ring by d and returns the resulting rings, counter-clockwise.
// A distance of at most MinDistance returns the ring untouched. A ring with
// fewer than three points yields nothing. The result is empty when the ring
// collapses entirely and holds several rings when it splits.
func Shrink(ring []geom.Point, d float64) [][]geom.Point {
	if math.Abs(d) <= MinDistance {
		return [][]geom.Point{ring}
	}
	if len(ring) < 3 {
		return nil
	}

	type task struct {
		ring      []geom.Point
		remaining float64
	}
	start := clean(ring)
	if geom.Ring(start).SignedArea() < 0 {
		start = geom.Ring(start).Reverse()
	}
	stack := []task{{ring: start, remaining: d}}

	var out [][]geom.Point
	emit := func(r []geom.Point) {
		r = clean(r)
		if len(r) >= 3 && geom.Ring(r).SignedArea() > geom.Epsilon {
			out = append(out, r)
		}
	}

	events := 0
	for len(stack) > 0 {
		t := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		r := clean(t.ring)
		if len(r) < 3 {
			continue
		}
		if t.remaining <= MinDistance {
			emit(r)
			continue
		}

		cs := corners(r)
		if events >= MaxEvents {
			emit(naive(cs, t.remaining))
			continue
		}

		ev, ok := earliest(cs, t.remaining)
		if !ok {
			emit(naive(cs, t.remaining))
			continue
		}
		events++

		rest := math.Max(0, t.remaining-ev.Distance)
		switch ev.Kind {
		case VertexEvent:
			rings := collapse(cs, ev)
			for i := len(rings) - 1; i >= 0; i-- {
				stack = append(stack, task{ring: rings[i], remaining: rest})
			}
		case SplitEvent:
			left, right := split(cs, ev)
			stack = append(stack,
				task{ring: right, remaining: rest},
				task{ring: left, remaining: rest},
			)
		}
	}
	return out
}

// nextEvent reports the earliest topology event that happens while ring is
// inset by d, if any.
func nextEvent(ring []geom.Point, d float64) (Event, bool) {
	r := clean(ring)
	if len(r) < 3 || d <= MinDistance {
		return Event{}, false
	}
	if geom.Ring(r).SignedArea() < 0 {
		r = geom.Ring(r).Reverse()
	}
	return earliest(corners(r), d)
}

func naive(cs []corner, d float64) []geom.Point {
	out := make([]geom.Point, len(cs))
	for i, c := range cs {
		out[i] = c.at(d)
	}
	return out
}

// earliest scans every corner for the first event no later than d. Vertex
// events are tested between every pair of corners, split events between each
// reflex corner and every edge not incident to it.
func earliest(cs []corner, d float64) (Event, bool) {
	n := len(cs)
	best := Event{Distance: d + minEventDistance}
	found := false

	for i, c := range cs {
		for j := i + 1; j < n; j++ {
			if ev, ok := vertexEvent(cs, i, j, d); ok && ev.Distance < best.Distance {
				best, found = ev, true
			}
		}

		if !c.reflex {
			continue
		}
		for k := range cs {
			if k == i || (k+1)%n == i {
				continue
			}
			if ev, ok := splitEvent(cs, i, k, d); ok && ev.Distance < best.Distance {
				best, found = ev, true
			}
		}
	}
	return best, found
}

func adjacent(i, j, n int) bool {
	return (i+1)%n == j || (j+1)%n == i
}

// vertexEvent checks whether the bisector paths of corners i and j meet
// before the edges have moved by d. Corners that are not neighbours only
// meet when both reach the crossing at the same distance.
func vertexEvent(cs []corner, i, j int, d float64) (Event, bool) {
	n := len(cs)
	a, b := cs[i], cs[j]
	aEnd, bEnd := a.at(d), b.at(d)
	if !geom.SegmentsCross(a.pos, aEnd, b.pos, bEnd) {
		return Event{}, false
	}
	x, ok := geom.LineIntersection(a.pos, aEnd, b.pos, bEnd)
	if !ok || !x.IsFinite() {
		return Event{}, false
	}

	var t float64
	if adjacent(i, j, n) {
		t = geom.LineDistance(a.pos, b.pos, x)
	} else {
		t = geom.LineDistance(a.pos, cs[(i+1)%n].pos, x)
		tj := geom.LineDistance(b.pos, cs[(j+1)%n].pos, x)
		if math.Abs(t-tj) > arrivalTolerance*math.Max(1, t) {
			return Event{}, false
		}
	}
	if t < minEventDistance {
		return Event{}, false
	}
	return Event{Kind: VertexEvent, Index: i, Other: j, Point: x, Distance: t}, true
}

// splitEvent checks whether reflex corner i reaches the edge starting at k
// before the edges have moved by d.
func splitEvent(cs []corner, i, k int, d float64) (Event, bool) {
	n := len(cs)
	c := cs[i]
	e0, e1 := cs[k], cs[(k+1)%n]

	if geom.LineDistance(e0.pos, e1.pos, c.pos) >= c.length(d)+d {
		return Event{}, false
	}

	x, ok := splitPoint(c.pos, cs[(i+1)%n].pos, c.bisector, e0, e1)
	if !ok {
		return Event{}, false
	}
	t := geom.LineDistance(e0.pos, e1.pos, x)
	if t < minEventDistance {
		return Event{}, false
	}
	return Event{Kind: SplitEvent, Index: i, Other: k, Point: x, Distance: t}, true
}

// splitPoint finds where the bisector from origin meets the locus of points
// equidistant from the origin's outgoing edge and the edge e0-e1. It first
// intersects the two edge lines, bisects the corner they form, then
// intersects that bisector with the origin's. If the corner bisector gives no
// usable point its perpendicular is tried.
func splitPoint(origin, originNext, bisector geom.Point, e0, e1 corner) (geom.Point, bool) {
	x1, ok := geom.LineIntersection(e0.pos, e1.pos, origin, originNext)
	if !ok {
		return geom.Point{}, false
	}
	b := geom.BisectorAt(x1, origin, e0.pos)
	if b.IsZero() {
		return geom.Point{}, false
	}

	for _, dir := range []geom.Point{b, b.Perp()} {
		p, ok := geom.LineIntersection(origin, origin.Add(bisector.Scale(2)), x1, x1.Add(dir.Scale(2)))
		if ok && validSplit(p, origin, bisector, e0, e1) {
			return p, true
		}
	}
	return geom.Point{}, false
}

// validSplit accepts p when it lies ahead of the origin on its bisector and
// inside the region swept by the edge e0-e1.
func validSplit(p, origin, bisector geom.Point, e0, e1 corner) bool {
	if !p.IsFinite() || p.Sub(origin).Dot(bisector) <= geom.Epsilon {
		return false
	}
	if geom.SideOf(e0.pos, e1.pos, p) < -geom.Epsilon {
		return false
	}
	return geom.SideOf(e0.pos, e0.pos.Add(e0.bisector), p) <= geom.Epsilon &&
		geom.SideOf(e1.pos, e1.pos.Add(e1.bisector), p) >= -geom.Epsilon
}

// collapse rebuilds the ring at a vertex event. Neighbouring corners merge
// into the event point. Corners further apart pinch the ring there, leaving
// one ring on each side of the pair. Every other corner moves by the event
// distance.
func collapse(cs []corner, ev Event) [][]geom.Point {
	n := len(cs)
	if !adjacent(ev.Index, ev.Other, n) {
		return [][]geom.Point{
			append([]geom.Point{ev.Point}, between(cs, ev.Index, ev.Other, ev.Distance)...),
			append([]geom.Point{ev.Point}, between(cs, ev.Other, ev.Index, ev.Distance)...),
		}
	}

	out := make([]geom.Point, 0, n-1)
	for m, c := range cs {
		switch m {
		case ev.Index:
			out = append(out, ev.Point)
		case ev.Other:
		default:
			out = append(out, c.at(ev.Distance))
		}
	}
	return [][]geom.Point{out}
}

// between returns the corners strictly after from and strictly before to,
// walking forward around the ring, moved by d.
func between(cs []corner, from, to int, d float64) []geom.Point {
	n := len(cs)
	var out []geom.Point
	for m := (from + 1) % n; m != to; m = (m + 1) % n {
		out = append(out, cs[m].at(d))
	}
	return out
}

// split cuts the ring at a split event. The left ring runs from the split
// point through the corners after the reflex vertex up to the hit edge's
// start; the right ring runs from the split point through the corners after
// the hit edge back to the one before the reflex vertex.
func split(cs []corner, ev Event) (left, right []geom.Point) {
	n := len(cs)
	left = append([]geom.Point{ev.Point}, between(cs, ev.Index, (ev.Other+1)%n, ev.Distance)...)
	right = append([]geom.Point{ev.Point}, between(cs, ev.Other, ev.Index, ev.Distance)...)
	return left, right
}

// clean drops consecutive duplicates, including a closing point equal to the
// first, and the tips of zero-width spikes where the ring doubles back on
// itself. Spikes are left behind when an event closes a corridor.
func clean(ring []geom.Point) []geom.Point {
	out := dedup(ring)
	for len(out) >= 3 {
		tip := spikeTip(out)
		if tip < 0 {
			break
		}
		out = dedup(append(out[:tip:tip], out[tip+1:]...))
	}
	return out
}

func dedup(ring []geom.Point) []geom.Point {
	out := make([]geom.Point, 0, len(ring))
	for _, p := range ring {
		if len(out) > 0 && out[len(out)-1].Near(p, dupTolerance) {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && out[len(out)-1].Near(out[0], dupTolerance) {
		out = out[:len(out)-1]
	}
	return out
}

// spikeTip returns the index of a point whose incoming and outgoing edges
// run in opposite directions along one line, or -1.
func spikeTip(ring []geom.Point) int {
	n := len(ring)
	for i, p := range ring {
		in := p.Sub(ring[(i+n-1)%n]).Normalize()
		out := ring[(i+1)%n].Sub(p).Normalize()
		if math.Abs(in.Cross(out)) <= spikeTolerance && in.Dot(out) < 0 {
			return i
		}
	}
	return -1
}
