// Package faces extracts the minimal bounded polygons enclosed by a street
// graph.
package faces

import (
	"fmt"
	"math"
	"slices"

	"github.com/lawnchairsociety/citygen/internal/geom"
	"github.com/lawnchairsociety/citygen/internal/graph"
)

// straightTolerance is the |cross| below which a turn counts as straight.
const straightTolerance = 1e-4

// Face is one block of the street network.
type Face struct {
	// IDs lists the boundary vertices in walk order.
	IDs []graph.VertexID
	// Ring is the boundary, counter-clockwise.
	Ring geom.Ring
}

// key identifies a face by its vertex set.
func key(ids []graph.VertexID) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return fmt.Sprint(sorted)
}

// Extract walks every face boundary that starts at a junction of degree 3 or
// more and returns each distinct bounded face once. Faces are returned in
// discovery order, which follows vertex ID order.
func Extract(g *graph.Graph) []Face {
	var out []Face
	seen := make(map[string]bool)

	for _, v := range g.Vertices() {
		if v.Degree() < 3 {
			continue
		}
		for _, n := range v.Links {
			ids, ok := walk(g, v, g.Vertex(n))
			if !ok || len(ids) < 3 {
				continue
			}
			k := key(ids)
			if seen[k] {
				continue
			}

			ring := make(geom.Ring, len(ids))
			for i, id := range ids {
				ring[i] = g.Vertex(id).Position
			}
			if ring.SignedArea() <= 0 {
				continue
			}
			seen[k] = true
			out = append(out, Face{IDs: ids, Ring: ring})
		}
	}
	return out
}

// walk follows the boundary that leaves start towards first, turning as far
// left as possible at every junction, until it returns to start.
func walk(g *graph.Graph, start, first *graph.Vertex) ([]graph.VertexID, bool) {
	ids := []graph.VertexID{start.ID}
	visited := map[graph.VertexID]bool{start.ID: true}

	prev, cur := start, first
	for steps := 0; cur.ID != start.ID; steps++ {
		if steps > g.Len() || visited[cur.ID] {
			return nil, false
		}

		next := turn(g, prev, cur)
		if next == nil {
			return nil, false
		}
		ids = append(ids, cur.ID)
		visited[cur.ID] = true
		prev, cur = cur, next
	}
	return ids, true
}

// turn picks the neighbour of cur to continue to after arriving from prev.
func turn(g *graph.Graph, prev, cur *graph.Vertex) *graph.Vertex {
	switch cur.Degree() {
	case 0, 1:
		return nil
	case 2:
		if cur.Links[0] == prev.ID {
			return g.Vertex(cur.Links[1])
		}
		return g.Vertex(cur.Links[0])
	}

	back := prev.Position.Sub(cur.Position).Normalize()
	var best *graph.Vertex
	bestDot := math.Inf(1)
	for _, id := range cur.Links {
		if id == prev.ID {
			continue
		}
		cand := g.Vertex(id)
		out := cur.Position.Sub(cand.Position).Normalize()

		cross := back.Cross(out)
		if math.Abs(cross) >= straightTolerance && cross < 0 {
			continue
		}
		if d := back.Dot(out); d <= bestDot {
			best, bestDot = cand, d
		}
	}
	return best
}
