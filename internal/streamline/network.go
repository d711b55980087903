package streamline

import (
	"github.com/lawnchairsociety/citygen/internal/geom"
	"github.com/lawnchairsociety/citygen/internal/graph"
	"github.com/lawnchairsociety/citygen/internal/spatial"
	"github.com/lawnchairsociety/citygen/internal/tensor"
)

// DefaultGridCells is the number of spatial buckets per axis.
const DefaultGridCells = 100

// Network accumulates the streamlines of every pass over one domain.
type Network struct {
	Graph *graph.Graph

	field        *tensor.Field
	width, depth float64
	cells        int
	vertices     *spatial.Grid[*graph.Vertex]
}

// NewNetwork creates an empty network over [0,width) x [0,depth).
func NewNetwork(field *tensor.Field, width, depth float64, cells int) *Network {
	if cells <= 0 {
		cells = DefaultGridCells
	}
	return &Network{
		Graph:    graph.New(),
		field:    field,
		width:    width,
		depth:    depth,
		cells:    cells,
		vertices: spatial.New[*graph.Vertex](width, depth, cells),
	}
}

// Pass describes one tracing pass.
type Pass struct {
	// Major selects the field followed by the queued seeds; the seeds they
	// spawn are traced along the other field.
	Major   bool
	Spacing float64
	// MaxTraces bounds how many queued seeds are taken off the queue.
	MaxTraces int
	Seeds     []geom.Point
}

// PassStats summarises a pass.
type PassStats struct {
	Dequeued    int
	Streamlines int
	Rejected    int
	Spawned     int
}

// Run executes a pass with a fresh seed index. Seeds are processed in FIFO
// order; each traced seed's spawn is traced at once along the cross field and
// whatever that spawns joins the queue.
func (n *Network) Run(p Pass) PassStats {
	seeds := spatial.New[*Seed](n.width, n.depth, n.cells)
	tr := NewTracer(n.field, n.Graph, n.vertices, seeds, Options{
		Width:   n.width,
		Depth:   n.depth,
		Spacing: p.Spacing,
	})

	queue := make([]*Seed, 0, len(p.Seeds))
	for _, pt := range p.Seeds {
		queue = append(queue, NewSeed(pt))
	}

	var stats PassStats
	record := func(r Result) {
		if r.Streamline == nil {
			stats.Rejected++
			return
		}
		stats.Streamlines++
		stats.Spawned += len(r.Seeds)
	}

	for len(queue) > 0 && stats.Dequeued < p.MaxTraces {
		s := queue[0]
		queue = queue[1:]
		stats.Dequeued++

		res := tr.Trace(s, p.Major)
		record(res)
		for _, child := range res.Seeds {
			cr := tr.Trace(child, !p.Major)
			record(cr)
			queue = append(queue, cr.Seeds...)
		}
	}
	return stats
}

// Lattice returns a seed at every multiple of step inside the domain,
// ordered by x and then z.
func (n *Network) Lattice(step float64) []geom.Point {
	if step <= 0 {
		step = 1
	}
	var pts []geom.Point
	for x := 0.0; x < n.width; x += step {
		for z := 0.0; z < n.depth; z += step {
			pts = append(pts, geom.Pt(x, z))
		}
	}
	return pts
}

// Vertices returns the committed vertex index.
func (n *Network) Vertices() *spatial.Grid[*graph.Vertex] {
	return n.vertices
}
