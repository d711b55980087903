// Package streamline grows street polylines through a tensor field and
// records them in a shared graph.
package streamline

import (
	"math"
	"slices"

	"github.com/lawnchairsociety/citygen/internal/geom"
	"github.com/lawnchairsociety/citygen/internal/graph"
	"github.com/lawnchairsociety/citygen/internal/spatial"
	"github.com/lawnchairsociety/citygen/internal/tensor"
)

const (
	// StepSize is the RK4 step length.
	StepSize = 0.1
	// MaxSteps bounds the number of steps of one growth direction.
	MaxSteps = 2000
	// LoopMinVertices is the length a path needs before it may close on itself.
	LoopMinVertices = 50
	// LoopRadius is how close a path must come back to its start to close.
	LoopRadius = 0.1
	// ContactRadius is the query radius for contact with other streamlines.
	ContactRadius = 0.1
	// SeedConsumeRadius is the radius within which a passing path swallows
	// pending seeds.
	SeedConsumeRadius = 0.11
	// MergeFactor scales spacing into the radius that rejects a seed lying
	// on an existing vertex.
	MergeFactor = 0.2
	// SameDirectionFactor scales spacing into the radius of the parallel
	// street test.
	SameDirectionFactor = 0.9
	// SameDirectionAlignment is the |cos| above which two directions count
	// as parallel.
	SameDirectionAlignment = 0.9
)

// machineEpsilon is the smallest step treated as movement.
const machineEpsilon = 2.220446049250313e-16

// Options configures a Tracer.
type Options struct {
	Width, Depth float64
	// Spacing is the lateral distance between neighbouring streamlines.
	Spacing  float64
	StepSize float64
	MaxSteps int
}

// Tracer grows streamlines into a graph. The vertex grid indexes committed
// vertices and is shared by every tracer writing to the same graph; the seed
// grid indexes pending seeds.
type Tracer struct {
	field    *tensor.Field
	graph    *graph.Graph
	vertices *spatial.Grid[*graph.Vertex]
	seeds    *spatial.Grid[*Seed]
	opts     Options
}

// NewTracer creates a tracer. Zero StepSize and MaxSteps take the package
// defaults.
func NewTracer(field *tensor.Field, g *graph.Graph, vertices *spatial.Grid[*graph.Vertex], seeds *spatial.Grid[*Seed], opts Options) *Tracer {
	if opts.StepSize <= 0 {
		opts.StepSize = StepSize
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = MaxSteps
	}
	return &Tracer{
		field:    field,
		graph:    g,
		vertices: vertices,
		seeds:    seeds,
		opts:     opts,
	}
}

// Result is the outcome of one Trace call.
type Result struct {
	// Streamline is nil when the seed was rejected.
	Streamline *graph.Streamline
	// Seeds are the new pending seeds spawned beside the path.
	Seeds []*Seed
}

// growth is the outcome of growing in one direction from the start vertex.
type growth struct {
	chain   []*graph.Vertex
	contact *graph.Vertex
	closed  bool
}

// Trace grows a streamline from seed along the major or minor field.
func (t *Tracer) Trace(seed *Seed, major bool) Result {
	var res Result
	if seed.Consumed {
		return res
	}
	seed.Consumed = true
	t.seeds.Remove(seed)

	p := seed.Position
	dir := t.field.Sample(p, major)
	if t.parallelNearby(p, dir) || t.vertices.Any(p, MergeFactor*t.opts.Spacing, nil) {
		return res
	}

	if !dir.IsZero() {
		t.offerSeed(lateral(p, dir, t.opts.Spacing), &res.Seeds)
		t.offerSeed(lateral(p, dir.Scale(-1), t.opts.Spacing), &res.Seeds)
	}

	s := t.graph.AddStreamline(major)
	start := t.graph.AddVertex(p, s.ID)

	back := t.grow(s, start, major, true, &res.Seeds)
	var fwd growth
	if !back.closed {
		fwd = t.grow(s, start, major, false, &res.Seeds)
	}
	t.commit(s, start, back, fwd)

	res.Streamline = s
	return res
}

// parallelNearby reports whether a committed segment running in roughly
// the same direction as dir passes close to p.
func (t *Tracer) parallelNearby(p, dir geom.Point) bool {
	if dir.IsZero() {
		return false
	}
	d := dir.Normalize()
	return t.vertices.Any(p, SameDirectionFactor*t.opts.Spacing, func(v *graph.Vertex) bool {
		if !v.HasNext() {
			return false
		}
		seg := t.graph.Vertex(v.Next).Position.Sub(v.Position).Normalize()
		return math.Abs(seg.Dot(d)) > SameDirectionAlignment
	})
}

func (t *Tracer) inDomain(p geom.Point) bool {
	return p.X >= 0 && p.X < t.opts.Width && p.Z >= 0 && p.Z < t.opts.Depth
}

// grow integrates from start in one direction until the path leaves the
// domain, stalls, closes on itself or runs into another streamline.
func (t *Tracer) grow(s *graph.Streamline, start *graph.Vertex, major, reverse bool, spawned *[]*Seed) growth {
	var out growth
	sign := 1.0
	if reverse {
		sign = -1
	}

	prev := start
	pos := start.Position
	ref := t.field.Sample(pos, major)
	var left, right float64

	for step := 0; step < t.opts.MaxSteps; step++ {
		next := t.field.RungeKutta(pos, ref, reverse, major, t.opts.StepSize)
		delta := next.Sub(pos)
		d := delta.Len()
		if d < machineEpsilon || !next.IsFinite() || !t.inDomain(next) {
			break
		}

		if len(out.chain) >= LoopMinVertices && next.Dist(start.Position) <= LoopRadius {
			t.graph.Link(prev.ID, start.ID)
			out.closed = true
			break
		}

		if c := t.contact(prev, next); c != nil {
			out.contact = c
			break
		}

		for _, sd := range t.seeds.Within(next, SeedConsumeRadius) {
			sd.Consumed = true
			t.seeds.Remove(sd)
		}

		v := t.graph.AddVertex(next, s.ID)
		t.graph.Link(prev.ID, v.ID)
		out.chain = append(out.chain, v)

		left += d
		right += d
		if left >= t.opts.Spacing && t.offerSeed(lateral(next, delta, t.opts.Spacing), spawned) {
			left = 0
		}
		if right >= t.opts.Spacing && t.offerSeed(lateral(next, delta.Scale(-1), t.opts.Spacing), spawned) {
			right = 0
		}

		ref = delta.Scale(sign)
		prev = v
		pos = next
	}
	return out
}

// contact checks whether the step prev -> next runs into a committed
// streamline. On contact it joins the path to the network and returns the
// vertex the path ended on.
func (t *Tracer) contact(prev *graph.Vertex, next geom.Point) *graph.Vertex {
	candidates := t.vertices.Range(next, ContactRadius)
	if len(candidates) == 0 {
		return nil
	}

	var (
		crossed  *graph.Vertex
		crossAt  geom.Point
		crossD   = math.Inf(1)
		nearest  *graph.Vertex
		nearestD = math.Inf(1)
	)
	for _, v := range candidates {
		if v.HasNext() {
			b := t.graph.Vertex(v.Next).Position
			if geom.SegmentsCross(prev.Position, next, v.Position, b) {
				at, ok := geom.LineIntersection(prev.Position, next, v.Position, b)
				if !ok {
					at = closer(next, v.Position, b)
				}
				if d := at.Dist(next); d <= crossD {
					crossed, crossAt, crossD = v, at, d
				}
			}
		}
		if d := v.Position.Dist(next); d <= ContactRadius && d <= nearestD {
			nearest, nearestD = v, d
		}
	}

	if crossed == nil && nearest == nil {
		return nil
	}
	if nearest != nil && nearestD < crossD {
		t.graph.Link(prev.ID, nearest.ID)
		return nearest
	}

	x := t.graph.AddVertex(crossAt, crossed.Streamline)
	t.graph.Splice(crossed.ID, x.ID)
	t.graph.Link(x.ID, prev.ID)
	t.vertices.Insert(x)
	return x
}

func closer(p, a, b geom.Point) geom.Point {
	if p.DistSq(a) <= p.DistSq(b) {
		return a
	}
	return b
}

// offerSeed tries to place a pending seed at p. It refuses points outside
// the domain or too close to a committed vertex. A pending seed within
// spacing is moved to p instead of adding another. Newly created seeds are
// appended to spawned. It reports whether the offer was taken.
func (t *Tracer) offerSeed(p geom.Point, spawned *[]*Seed) bool {
	if !t.inDomain(p) || t.vertices.Any(p, t.opts.Spacing, nil) {
		return false
	}
	if s, ok := t.seeds.Nearest(p, t.opts.Spacing); ok {
		t.seeds.Remove(s)
		s.Position = p
		t.seeds.Insert(s)
		return true
	}
	s := NewSeed(p)
	t.seeds.Insert(s)
	*spawned = append(*spawned, s)
	return true
}

// commit orders the streamline's vertices from the backward end to the
// forward end, chains their successors and makes them visible to later
// traces.
func (t *Tracer) commit(s *graph.Streamline, start *graph.Vertex, back, fwd growth) {
	vs := make([]*graph.Vertex, 0, len(back.chain)+1+len(fwd.chain))
	for _, v := range slices.Backward(back.chain) {
		vs = append(vs, v)
	}
	vs = append(vs, start)
	vs = append(vs, fwd.chain...)

	for i := 0; i+1 < len(vs); i++ {
		vs[i].Next = vs[i+1].ID
	}
	last := vs[len(vs)-1]

	switch {
	case back.closed:
		last.Next = vs[0].ID
		s.Closed = true
	case fwd.closed:
		last.Next = start.ID
		if len(back.chain) == 0 {
			s.Closed = true
		} else {
			s.Tail = start.ID
		}
	case fwd.contact != nil:
		last.Next = fwd.contact.ID
		s.Tail = fwd.contact.ID
	}
	if back.contact != nil {
		s.Head = back.contact.ID
	}

	s.Vertices = make([]graph.VertexID, len(vs))
	for i, v := range vs {
		s.Vertices[i] = v.ID
		t.vertices.Insert(v)
	}
}
