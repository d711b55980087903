package tensor

import (
	"math"
	"math/rand"
	"testing"

	"github.com/lawnchairsociety/citygen/internal/geom"
)

func testField() *Field {
	return NewField(
		Linear{R: 1, Theta: 0.3, Gamma: 0.001, Center: geom.Pt(10, 10)},
		Radial{Gamma: 0.01, Center: geom.Pt(40, 35)},
		Polyline{Gamma: 0.005, Points: []geom.Point{geom.Pt(0, 50), geom.Pt(30, 60), geom.Pt(80, 40)}},
	)
}

func TestEigenOrthogonality(t *testing.T) {
	f := testField()
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		p := geom.Pt(rng.Float64()*100, rng.Float64()*100)
		major, minor := f.Tensor(p).Eigen()

		if d := major.Dot(minor); math.Abs(d) > 1e-6 {
			t.Fatalf("at %v: dot(major, minor) = %v, want 0", p, d)
		}
		if l := major.Len(); math.Abs(l-1) > 1e-9 {
			t.Fatalf("at %v: |major| = %v, want 1", p, l)
		}
		if l := minor.Len(); math.Abs(l-1) > 1e-9 {
			t.Fatalf("at %v: |minor| = %v, want 1", p, l)
		}
	}
}

func TestEigenDegenerateFallsBackToCanonicalBasis(t *testing.T) {
	major, minor := Tensor{}.Eigen()
	if major != geom.Pt(1, 0) || minor != geom.Pt(0, 1) {
		t.Errorf("Eigen(zero) = %v, %v, want (1,0), (0,1)", major, minor)
	}
}

func TestLinearFieldFollowsTheta(t *testing.T) {
	theta := math.Pi / 6
	f := NewField(Linear{R: 1, Theta: theta, Gamma: 0})
	major := f.Sample(geom.Pt(3, 4), true)
	want := geom.Pt(math.Cos(theta), math.Sin(theta))

	if math.Abs(math.Abs(major.Dot(want))-1) > 1e-9 {
		t.Errorf("major = %v, want ±%v", major, want)
	}
}

func TestRadialFieldCirclesCenter(t *testing.T) {
	center := geom.Pt(50, 50)
	f := NewField(Radial{Gamma: 0, Center: center})

	p := geom.Pt(60, 50)
	major := f.Sample(p, true)
	minor := f.Sample(p, false)
	radius := p.Sub(center).Normalize()

	if math.Abs(math.Abs(major.Dot(radius))) > 1e-9 && math.Abs(math.Abs(minor.Dot(radius))) > 1e-9 {
		t.Errorf("neither major %v nor minor %v is tangent to the circle", major, minor)
	}
}

func TestSampleAlignedKeepsSign(t *testing.T) {
	f := testField()
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 200; i++ {
		p := geom.Pt(rng.Float64()*100, rng.Float64()*100)
		prev := geom.Pt(rng.Float64()*2-1, rng.Float64()*2-1)
		if prev.IsZero() {
			continue
		}
		for _, major := range []bool{true, false} {
			v := f.SampleAligned(p, prev, major)
			if v.Dot(prev) < 0 {
				t.Fatalf("SampleAligned(%v, %v, %v) = %v opposes prev", p, prev, major, v)
			}
		}
	}
}

func TestCrossingFieldsAtCenterAreFinite(t *testing.T) {
	center := geom.Pt(50, 50)
	f := NewField(
		Linear{R: 1, Theta: 0, Gamma: 0.001, Center: geom.Pt(0, 0)},
		Radial{Gamma: 0.001, Center: center},
	)

	for _, major := range []bool{true, false} {
		v := f.Sample(center, major)
		if !v.IsFinite() {
			t.Fatalf("Sample(center, %v) = %v, want finite", major, v)
		}
		if math.Abs(v.Len()-1) > 1e-9 {
			t.Errorf("Sample(center, %v) length = %v, want 1", major, v.Len())
		}
	}
}

func TestEmptyFieldHasNoDirection(t *testing.T) {
	f := NewField()
	if v := f.Sample(geom.Pt(5, 5), true); !v.IsZero() {
		t.Errorf("Sample on empty field = %v, want zero", v)
	}

	p := geom.Pt(5, 5)
	if next := f.RungeKutta(p, geom.Point{}, false, true, 0.1); next != p {
		t.Errorf("RungeKutta on empty field moved to %v", next)
	}
}

func TestRungeKuttaStepLength(t *testing.T) {
	f := NewField(Linear{R: 1, Theta: 0, Gamma: 0})
	p := geom.Pt(10, 10)

	forward := f.RungeKutta(p, geom.Pt(1, 0), false, true, 0.1)
	if !forward.Near(geom.Pt(10.1, 10), 1e-12) {
		t.Errorf("forward step = %v, want (10.1, 10)", forward)
	}

	backward := f.RungeKutta(p, geom.Pt(1, 0), true, true, 0.1)
	if !backward.Near(geom.Pt(9.9, 10), 1e-12) {
		t.Errorf("reverse step = %v, want (9.9, 10)", backward)
	}
}

func TestKernel(t *testing.T) {
	tests := []struct {
		gamma  float64
		center geom.Point
		p      geom.Point
		want   float64
	}{
		{0, geom.Pt(0, 0), geom.Pt(100, 100), 1},
		{1, geom.Pt(0, 0), geom.Pt(0, 0), 1},
		{1, geom.Pt(0, 0), geom.Pt(1, 0), math.Exp(-1)},
		{0.5, geom.Point{X: 0, Y: 7, Z: 0}, geom.Pt(0, 2), math.Exp(-2)},
	}

	for _, tt := range tests {
		if got := Kernel(tt.gamma, tt.center, tt.p); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Kernel(%v, %v, %v) = %v, want %v", tt.gamma, tt.center, tt.p, got, tt.want)
		}
	}
}
