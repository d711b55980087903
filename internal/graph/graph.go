// Package graph stores the street network as an append-only arena of
// vertices addressed by integer IDs.
package graph

import (
	"slices"

	"github.com/lawnchairsociety/citygen/internal/geom"
)

// VertexID identifies a vertex. IDs are assigned in creation order and never
// reused.
type VertexID int

// StreamlineID identifies a traced streamline.
type StreamlineID int

const (
	// NoVertex marks an absent successor.
	NoVertex VertexID = -1
	// NoStreamline marks a vertex not owned by any streamline.
	NoStreamline StreamlineID = -1
)

// Vertex is one point of the network.
type Vertex struct {
	ID       VertexID
	Position geom.Point
	// Next is the successor along the owning streamline, used to rebuild
	// directed segments for crossing tests.
	Next VertexID
	// Links is the undirected adjacency, kept in insertion order.
	Links      []VertexID
	Streamline StreamlineID
}

// Pos returns the vertex position. It lets vertices live in a spatial grid.
func (v *Vertex) Pos() geom.Point {
	return v.Position
}

// HasNext reports whether the vertex starts a directed segment.
func (v *Vertex) HasNext() bool {
	return v.Next != NoVertex
}

// Degree returns the number of distinct neighbours.
func (v *Vertex) Degree() int {
	return len(v.Links)
}

// LinkedTo reports whether o is a neighbour.
func (v *Vertex) LinkedTo(o VertexID) bool {
	return slices.Contains(v.Links, o)
}

// Streamline is one traced path, in order from its backward end to its
// forward end.
type Streamline struct {
	ID     StreamlineID
	Major  bool
	Closed bool
	// Vertices are the vertices the streamline owns.
	Vertices []VertexID
	// Head and Tail are the foreign vertices the path ran into at either
	// end, or NoVertex.
	Head, Tail VertexID
}

// Graph owns every vertex and streamline of a generation run.
type Graph struct {
	vertices    []*Vertex
	streamlines []*Streamline
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// AddVertex creates a vertex at p owned by streamline s.
func (g *Graph) AddVertex(p geom.Point, s StreamlineID) *Vertex {
	v := &Vertex{
		ID:         VertexID(len(g.vertices)),
		Position:   p,
		Next:       NoVertex,
		Streamline: s,
	}
	g.vertices = append(g.vertices, v)
	return v
}

// Vertex returns the vertex with the given ID, or nil if there is none.
func (g *Graph) Vertex(id VertexID) *Vertex {
	if id < 0 || int(id) >= len(g.vertices) {
		return nil
	}
	return g.vertices[id]
}

// Vertices returns every vertex in ID order. The slice must not be modified.
func (g *Graph) Vertices() []*Vertex {
	return g.vertices
}

// Len returns the number of vertices.
func (g *Graph) Len() int {
	return len(g.vertices)
}

// Link connects a and b in both directions. Self links and repeats are ignored.
func (g *Graph) Link(a, b VertexID) {
	if a == b {
		return
	}
	va, vb := g.Vertex(a), g.Vertex(b)
	if va == nil || vb == nil {
		return
	}
	if !va.LinkedTo(b) {
		va.Links = append(va.Links, b)
	}
	if !vb.LinkedTo(a) {
		vb.Links = append(vb.Links, a)
	}
}

// Unlink removes the connection between a and b in both directions.
func (g *Graph) Unlink(a, b VertexID) {
	va, vb := g.Vertex(a), g.Vertex(b)
	if va == nil || vb == nil {
		return
	}
	va.Links = slices.DeleteFunc(va.Links, func(id VertexID) bool { return id == b })
	vb.Links = slices.DeleteFunc(vb.Links, func(id VertexID) bool { return id == a })
}

// Splice inserts x into the directed segment a -> a.Next. The segment's
// successor chain is rerouted through x and the undirected edge a-b is
// replaced by a-x-b.
func (g *Graph) Splice(a, x VertexID) {
	va, vx := g.Vertex(a), g.Vertex(x)
	if va == nil || vx == nil || !va.HasNext() {
		return
	}
	b := va.Next
	va.Next = x
	vx.Next = b
	g.Unlink(a, b)
	g.Link(a, x)
	g.Link(x, b)

	if s := g.Streamline(va.Streamline); s != nil && vx.Streamline == s.ID {
		if i := slices.Index(s.Vertices, a); i >= 0 {
			s.Vertices = slices.Insert(s.Vertices, i+1, x)
		}
	}
}

// AddStreamline registers a new, empty streamline.
func (g *Graph) AddStreamline(major bool) *Streamline {
	s := &Streamline{
		ID:    StreamlineID(len(g.streamlines)),
		Major: major,
		Head:  NoVertex,
		Tail:  NoVertex,
	}
	g.streamlines = append(g.streamlines, s)
	return s
}

// Streamline returns the streamline with the given ID, or nil.
func (g *Graph) Streamline(id StreamlineID) *Streamline {
	if id < 0 || int(id) >= len(g.streamlines) {
		return nil
	}
	return g.streamlines[id]
}

// Streamlines returns every streamline in creation order.
func (g *Graph) Streamlines() []*Streamline {
	return g.streamlines
}

// Path returns the polyline of a streamline including the vertices it ran
// into at either end. Closed streamlines repeat their first point.
func (g *Graph) Path(s *Streamline) []geom.Point {
	pts := make([]geom.Point, 0, len(s.Vertices)+2)
	if v := g.Vertex(s.Head); v != nil {
		pts = append(pts, v.Position)
	}
	for _, id := range s.Vertices {
		pts = append(pts, g.vertices[id].Position)
	}
	if v := g.Vertex(s.Tail); v != nil {
		pts = append(pts, v.Position)
	} else if s.Closed && len(s.Vertices) > 0 {
		pts = append(pts, g.vertices[s.Vertices[0]].Position)
	}
	return pts
}

// Symmetric reports whether every link has a matching reverse link.
func (g *Graph) Symmetric() bool {
	for _, v := range g.vertices {
		for _, n := range v.Links {
			o := g.Vertex(n)
			if o == nil || !o.LinkedTo(v.ID) {
				return false
			}
		}
	}
	return true
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	var n int
	for _, v := range g.vertices {
		n += len(v.Links)
	}
	return n / 2
}
