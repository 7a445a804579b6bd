package geom

import (
	"math"
	"testing"
)

func TestImpactEnvelopeSquare(t *testing.T) {
	p := unitSquare(t, 0, 0)
	refPt := Vec2{0.5, 0.5}
	theta, minMax := ImpactEnvelope(refPt, p, 5)

	if len(theta) != 5 || len(minMax) != 5 {
		t.Fatalf("Envelope has %d angles and %d ranges, want 5 each.",
			len(theta), len(minMax))
	}
	if !almostEq(theta[0], 0, 1e-12) || !almostEq(theta[4], 2*math.Pi, 1e-12) {
		t.Errorf("theta spans [%g, %g], want [0, 2pi].", theta[0], theta[4])
	}
	// theta = 0: the extreme projections are the half-width of the square.
	if !almostEq(minMax[0][0], -0.5, 1e-12) || !almostEq(minMax[0][1], 0.5, 1e-12) {
		t.Errorf("Envelope at theta=0 is %v, want [-0.5, 0.5].", minMax[0])
	}
	// theta = pi/2 likewise.
	if !almostEq(minMax[1][0], -0.5, 1e-12) || !almostEq(minMax[1][1], 0.5, 1e-12) {
		t.Errorf("Envelope at theta=pi/2 is %v, want [-0.5, 0.5].", minMax[1])
	}
}

func TestStructureSinoEnvelopeCache(t *testing.T) {
	s := torSquare(t, 0, nil)
	refPt := Vec2{0.5, 0.5}
	if _, _, err := s.SinoEnvelope(refPt, 1); err == nil {
		t.Errorf("SinoEnvelope accepted nP = 1.")
	}
	th1, mm1, err := s.SinoEnvelope(refPt, 9)
	if err != nil {
		t.Fatal(err)
	}
	th2, mm2, err := s.SinoEnvelope(refPt, 9)
	if err != nil {
		t.Fatal(err)
	}
	if &th1[0] != &th2[0] || &mm1[0] != &mm2[0] {
		t.Errorf("Repeated SinoEnvelope call did not reuse the cache.")
	}
}

func TestSinoTorThroughReference(t *testing.T) {
	ref := torSquare(t, 0, nil)
	c, err := NewCollection(ref)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := NewRayBundle([]Vec{{2, 0, 0.5}}, []Vec{{-1, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	rb.SetCollection(c, nil)

	res, err := rb.Sino(Vec2{0.5, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	// The ray crosses R = 0.5, z = 0.5 exactly, so its impact parameter
	// vanishes and the sight line is aligned with the impact direction.
	if !almostEq(res.P[0], 0, 1e-6) {
		t.Errorf("p = %g, want 0.", res.P[0])
	}
	if !almostEq(res.Phi[0], 0, 1e-3) {
		t.Errorf("phi = %g, want 0.", res.Phi[0])
	}
	if res.K[0] < 1 || res.K[0] > 3 {
		t.Errorf("Closest approach k = %g outside the sighted range [1, 3].", res.K[0])
	}
}

func TestSinoLin(t *testing.T) {
	ref := linSquare(t, [][2]float64{{-1, 1}})
	c, err := NewCollection(ref)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := NewRayBundle([]Vec{{-3, 0.2, 0.5}}, []Vec{{1, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	rb.SetCollection(c, nil)

	res, err := rb.Sino(Vec2{0.5, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	// The ray runs parallel to the reference axis at constant (Y, Z), a
	// fixed 0.3 below it in Y.
	if !almostEq(res.P[0], 0.3, 1e-9) {
		t.Errorf("p = %g, want 0.3.", res.P[0])
	}
	if !almostEq(res.Theta[0], math.Pi, 1e-9) {
		t.Errorf("theta = %g, want pi.", res.Theta[0])
	}
	if !almostEq(res.Phi[0], math.Pi/2, 1e-9) {
		t.Errorf("phi = %g, want pi/2.", res.Phi[0])
	}
}

func TestSinoSignConvention(t *testing.T) {
	// Mirror points above and below the reference share theta in [0, pi]
	// with opposite signs of p.
	above, _, _ := sinosAt(t, Vec{2, 0, 0.8})
	below, _, _ := sinosAt(t, Vec{2, 0, 0.2})
	if above <= 0 || below >= 0 {
		t.Errorf("p above, below = %g, %g; want positive, negative.", above, below)
	}
}

func sinosAt(t *testing.T, D Vec) (p, theta, phi float64) {
	t.Helper()
	ref := torSquare(t, 0, nil)
	c, err := NewCollection(ref)
	if err != nil {
		t.Fatal(err)
	}
	rb, err := NewRayBundle([]Vec{D}, []Vec{{-1, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	rb.SetCollection(c, nil)
	res, err := rb.Sino(Vec2{0.5, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	return res.P[0], res.Theta[0], res.Phi[0]
}
