package spatial

import (
	"math/rand"
	"testing"

	"github.com/lawnchairsociety/citygen/internal/geom"
)

type marker struct {
	p geom.Point
}

func (m *marker) Pos() geom.Point { return m.p }

func TestCellClampsOutOfDomainPoints(t *testing.T) {
	g := New[*marker](100, 100, 10)

	tests := []struct {
		p     geom.Point
		wantX float64
		wantZ float64
	}{
		{geom.Pt(5, 5), 0, 0},
		{geom.Pt(-50, 5), 0, 0},
		{geom.Pt(150, 150), 90, 90},
		{geom.Pt(35, 72), 30, 70},
		{geom.Pt(100, 0), 90, 0},
	}

	for _, tt := range tests {
		c := g.Cell(tt.p)
		if c.Bound.Min[0] != tt.wantX || c.Bound.Min[1] != tt.wantZ {
			t.Errorf("Cell(%v).Min = %v, want (%v, %v)", tt.p, c.Bound.Min, tt.wantX, tt.wantZ)
		}
	}
}

func TestInsertRemove(t *testing.T) {
	g := New[*marker](10, 10, 4)
	a := &marker{geom.Pt(1, 1)}
	b := &marker{geom.Pt(9, 9)}
	g.Insert(a)
	g.Insert(b)

	if g.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", g.Len())
	}
	if !g.Remove(a) {
		t.Error("Remove(a) = false, want true")
	}
	if g.Remove(a) {
		t.Error("second Remove(a) = true, want false")
	}
	if got := g.Within(geom.Pt(1, 1), 0.5); len(got) != 0 {
		t.Errorf("Within after remove = %v, want empty", got)
	}
	if g.Len() != 1 {
		t.Errorf("Len() = %d, want 1", g.Len())
	}
}

func TestRangeHasNoFalseNegatives(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	g := New[*marker](50, 80, 7)

	var all []*marker
	for i := 0; i < 400; i++ {
		m := &marker{geom.Pt(rng.Float64()*50, rng.Float64()*80)}
		all = append(all, m)
		g.Insert(m)
	}

	for i := 0; i < 200; i++ {
		q := geom.Pt(rng.Float64()*60-5, rng.Float64()*90-5)
		r := rng.Float64() * 12

		got := make(map[*marker]bool)
		for _, m := range g.Range(q, r) {
			got[m] = true
		}
		for _, m := range all {
			if m.p.Dist(q) <= r && !got[m] {
				t.Fatalf("Range(%v, %v) missed %v", q, r, m.p)
			}
		}
		for _, m := range g.Within(q, r) {
			if m.p.Dist(q) > r {
				t.Fatalf("Within(%v, %v) returned %v at distance %v", q, r, m.p, m.p.Dist(q))
			}
		}
	}
}

func TestNearest(t *testing.T) {
	g := New[*marker](10, 10, 2)
	far := &marker{geom.Pt(8, 8)}
	near := &marker{geom.Pt(5.2, 5)}
	g.Insert(far)
	g.Insert(near)

	got, ok := g.Nearest(geom.Pt(5, 5), 1)
	if !ok || got != near {
		t.Errorf("Nearest = %v, %v, want %v", got, ok, near.p)
	}
	if _, ok := g.Nearest(geom.Pt(0, 0), 1); ok {
		t.Error("Nearest found an item outside the radius")
	}
	if !g.Any(geom.Pt(8, 8.5), 1, nil) {
		t.Error("Any(nil) missed an item within range")
	}
	if g.Any(geom.Pt(8, 8.5), 1, func(m *marker) bool { return m != far }) {
		t.Error("Any ignored the match function")
	}
}

func TestZeroSizedDomain(t *testing.T) {
	g := New[*marker](0, 0, 0)
	m := &marker{geom.Pt(3, 3)}
	g.Insert(m)
	if got := g.Within(geom.Pt(3, 3), 0.1); len(got) != 1 {
		t.Errorf("Within on degenerate grid = %d items, want 1", len(got))
	}
}
