package geom

import (
	"math"
	"math/rand"
	"testing"
)

func almostEq3(v, w Vec, eps float64) bool {
	return almostEq(v[0], w[0], eps) && almostEq(v[1], w[1], eps) && almostEq(v[2], w[2], eps)
}

func tracePInOut(t *testing.T, ref *Structure, obs []*Structure, D, u []Vec,
	params IntersectionParams) *IntersectionResult {
	t.Helper()
	res, err := ComputePInOut(D, u, ref, obs, params)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestPInOutThroughAxis(t *testing.T) {
	// Cross-section touching the axis: the solid is a full cylinder of
	// radius 1, so a horizontal diameter ray crosses the lateral surface
	// exactly twice.
	ref := torSquare(t, 0, nil)
	res := tracePInOut(t, ref, nil,
		[]Vec{{2, 0, 0.5}}, []Vec{{-1, 0, 0}}, DefaultIntersectionParams())

	if !almostEq(res.KMin[0], 1, 1e-12) || !almostEq(res.KMax[0], 3, 1e-12) {
		t.Errorf("kMin, kMax = %g, %g, want 1, 3.", res.KMin[0], res.KMax[0])
	}
	if !almostEq3(res.PkMin[0], Vec{1, 0, 0.5}, 1e-12) {
		t.Errorf("PkMin = %v, want (1, 0, 0.5).", res.PkMin[0])
	}
	if !almostEq3(res.PkMax[0], Vec{-1, 0, 0.5}, 1e-12) {
		t.Errorf("PkMax = %v, want (-1, 0, 0.5).", res.PkMax[0])
	}
	if !almostEq3(res.VPerp[0], Vec{1, 0, 0}, 1e-12) {
		t.Errorf("VPerp = %v, want the inward normal (1, 0, 0).", res.VPerp[0])
	}
	if res.IndOut[0] != (HitRef{0, 0, 1}) {
		t.Errorf("IndOut = %v, want {0 0 1}.", res.IndOut[0])
	}
	if !almostEq(res.KRMin[0], 2, 1e-12) || !almostEq(res.RMin[0], 0, 1e-9) {
		t.Errorf("kRMin, RMin = %g, %g, want 2, 0.", res.KRMin[0], res.RMin[0])
	}
	if len(res.NoVis) != 0 {
		t.Errorf("Unexpected NoVis rays: %v.", res.NoVis)
	}
}

func TestPInOutVerticalRay(t *testing.T) {
	ref := torSquare(t, 0, nil)
	res := tracePInOut(t, ref, nil,
		[]Vec{{0.5, 0, 2}}, []Vec{{0, 0, -1}}, DefaultIntersectionParams())

	if !almostEq(res.KMin[0], 1, 1e-12) || !almostEq(res.KMax[0], 2, 1e-12) {
		t.Errorf("kMin, kMax = %g, %g, want 1, 2.", res.KMin[0], res.KMax[0])
	}
	if !almostEq3(res.VPerp[0], Vec{0, 0, 1}, 1e-12) {
		t.Errorf("VPerp = %v, want (0, 0, 1).", res.VPerp[0])
	}
	if res.IndOut[0].Seg != 0 {
		t.Errorf("Exit segment = %d, want 0 (the bottom edge).", res.IndOut[0].Seg)
	}
	// Vertical rays keep their major radius.
	if !almostEq(res.KRMin[0], 0, 1e-12) || !almostEq(res.RMin[0], 0.5, 1e-12) {
		t.Errorf("kRMin, RMin = %g, %g, want 0, 0.5.", res.KRMin[0], res.RMin[0])
	}
}

func TestPInOutLinCaps(t *testing.T) {
	ref := linSquare(t, [][2]float64{{-1, 1}})
	res := tracePInOut(t, ref, nil,
		[]Vec{{-3, 0.5, 0.5}}, []Vec{{1, 0, 0}}, DefaultIntersectionParams())

	if !almostEq(res.KMin[0], 2, 1e-12) || !almostEq(res.KMax[0], 4, 1e-12) {
		t.Errorf("kMin, kMax = %g, %g, want 2, 4.", res.KMin[0], res.KMax[0])
	}
	if res.IndOut[0] != (HitRef{0, 0, SegLimEnd}) {
		t.Errorf("IndOut = %v, want the end cap {0 0 %d}.", res.IndOut[0], SegLimEnd)
	}
	if !almostEq3(res.VPerp[0], Vec{-1, 0, 0}, 1e-12) {
		t.Errorf("VPerp = %v, want (-1, 0, 0).", res.VPerp[0])
	}
	if res.KRMin != nil {
		t.Errorf("KRMin must be nil for linear geometries.")
	}
}

func TestPInOutObstruction(t *testing.T) {
	ref := torSquare(t, 0, nil)
	blocker, err := NewStructure("coil", PassiveStructure, Tor,
		mustPoly(t, []Vec2{{0.2, 0}, {0.4, 0}, {0.4, 1}, {0.2, 1}}), nil)
	if err != nil {
		t.Fatal(err)
	}

	c, err := NewCollection(ref, blocker)
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.PInOut([]Vec{{2, 0, 0.5}}, []Vec{{-1, 0, 0}}, DefaultIntersectionParams())
	if err != nil {
		t.Fatal(err)
	}

	if !almostEq(res.KMin[0], 1, 1e-12) || !almostEq(res.KMax[0], 1.6, 1e-12) {
		t.Errorf("kMin, kMax = %g, %g, want 1, 1.6.", res.KMin[0], res.KMax[0])
	}
	if res.IndOut[0] != (HitRef{1, 0, 1}) {
		t.Errorf("IndOut = %v, want the obstruction {1 0 1}.", res.IndOut[0])
	}
	if !almostEq3(res.PkMax[0], Vec{0.4, 0, 0.5}, 1e-12) {
		t.Errorf("PkMax = %v, want (0.4, 0, 0.5).", res.PkMax[0])
	}
	if !almostEq3(res.VPerp[0], Vec{-1, 0, 0}, 1e-12) {
		t.Errorf("VPerp = %v, want (-1, 0, 0).", res.VPerp[0])
	}

	// Excluding the blocker from sight computations restores the bare
	// reference exit.
	blocker.SetCompute(false)
	res, err = c.PInOut([]Vec{{2, 0, 0.5}}, []Vec{{-1, 0, 0}}, DefaultIntersectionParams())
	if err != nil {
		t.Fatal(err)
	}
	if !almostEq(res.KMax[0], 3, 1e-12) {
		t.Errorf("Without the blocker kMax = %g, want 3.", res.KMax[0])
	}
}

func TestPInOutSectorFaces(t *testing.T) {
	ref, err := NewStructure("sector", PlasmaDomain, Tor, unitSquare(t, 1, 0),
		[][2]float64{{0, math.Pi / 2}})
	if err != nil {
		t.Fatal(err)
	}
	res := tracePInOut(t, ref, nil,
		[]Vec{{1.5, -1, 0.5}}, []Vec{{0, 1, 0}}, DefaultIntersectionParams())

	wantOut := 1 + math.Sqrt(4-1.5*1.5)
	if !almostEq(res.KMin[0], 1, 1e-12) {
		t.Errorf("kMin = %g, want 1 (the phi = 0 face).", res.KMin[0])
	}
	if !almostEq(res.KMax[0], wantOut, 1e-12) {
		t.Errorf("kMax = %g, want %g (the outer wall).", res.KMax[0], wantOut)
	}
	if res.IndOut[0] != (HitRef{0, 0, 1}) {
		t.Errorf("IndOut = %v, want {0 0 1}.", res.IndOut[0])
	}
}

func TestPInOutNoVisibility(t *testing.T) {
	ref := torSquare(t, 0, nil)
	res := tracePInOut(t, ref, nil,
		[]Vec{{3, 0, 0.5}, {2, 0, 0.5}}, []Vec{{1, 0, 0}, {-1, 0, 0}},
		DefaultIntersectionParams())

	if !almostEq(res.KMin[0], 0, 1e-12) || !math.IsNaN(res.KMax[0]) {
		t.Errorf("Blind ray: kMin, kMax = %g, %g, want 0, NaN.",
			res.KMin[0], res.KMax[0])
	}
	if res.IndOut[0] != noHit {
		t.Errorf("Blind ray IndOut = %v, want %v.", res.IndOut[0], noHit)
	}
	if len(res.NoVis) != 1 || res.NoVis[0] != 0 {
		t.Errorf("NoVis = %v, want [0].", res.NoVis)
	}
	// The second ray is unaffected.
	if !almostEq(res.KMax[1], 3, 1e-12) {
		t.Errorf("Sighted ray kMax = %g, want 3.", res.KMax[1])
	}
}

func TestPInOutForbid(t *testing.T) {
	// Reference sector on the far side of the axis: the ray can only reach
	// it by looking through the central column.
	ref, err := NewStructure("far", PlasmaDomain, Tor, unitSquare(t, 1, 0),
		[][2]float64{{math.Pi / 2, 3 * math.Pi / 2}})
	if err != nil {
		t.Fatal(err)
	}
	D, u := []Vec{{3, 0, 0.5}}, []Vec{{-1, 0, 0}}

	params := DefaultIntersectionParams()
	res := tracePInOut(t, ref, nil, D, u, params)
	if !math.IsNaN(res.KMax[0]) || len(res.NoVis) != 1 {
		t.Errorf("Forbid on: kMax = %g, NoVis = %v; want NaN and [0].",
			res.KMax[0], res.NoVis)
	}

	params.Forbid = false
	res = tracePInOut(t, ref, nil, D, u, params)
	if !almostEq(res.KMin[0], 4, 1e-12) || !almostEq(res.KMax[0], 5, 1e-12) {
		t.Errorf("Forbid off: kMin, kMax = %g, %g, want 4, 5.",
			res.KMin[0], res.KMax[0])
	}
	if !almostEq(res.KRMin[0], 3, 1e-12) || !almostEq(res.RMin[0], 0, 1e-9) {
		t.Errorf("Forbid off: kRMin, RMin = %g, %g, want 3, 0.",
			res.KRMin[0], res.RMin[0])
	}
}

func TestPInOutValidation(t *testing.T) {
	ref := torSquare(t, 0, nil)
	if _, err := ComputePInOut([]Vec{{2, 0, 0}}, nil, ref, nil,
		DefaultIntersectionParams()); err == nil {
		t.Errorf("Accepted mismatched ray batch lengths.")
	}
	if _, err := ComputePInOut(nil, nil, ref, nil,
		DefaultIntersectionParams()); err == nil {
		t.Errorf("Accepted an empty ray batch.")
	}
	if _, err := ComputePInOut([]Vec{{2, 0, 0}}, []Vec{{-2, 0, 0}}, ref, nil,
		DefaultIntersectionParams()); err == nil {
		t.Errorf("Accepted a non-unit direction.")
	}
	lin := linSquare(t, [][2]float64{{-1, 1}})
	if _, err := ComputePInOut([]Vec{{2, 0, 0}}, []Vec{{-1, 0, 0}}, ref,
		[]*Structure{lin}, DefaultIntersectionParams()); err == nil {
		t.Errorf("Accepted an obstruction with a different sweep type.")
	}
}

func TestPInOutMidpointInside(t *testing.T) {
	// For any sighted ray the open interval (kMin, kMax) lies inside the
	// solid, kMax being the nearest exit after entry.
	ref := torSquare(t, 1, nil)
	rng := rand.New(rand.NewSource(42))

	n := 200
	D := make([]Vec, n)
	u := make([]Vec, n)
	for i := 0; i < n; i++ {
		// Aim from a faraway point at a point inside the solid.
		phi := 2 * math.Pi * rng.Float64()
		r := 1.1 + 0.8*rng.Float64()
		target := Vec{r * math.Cos(phi), r * math.Sin(phi), 0.1 + 0.8*rng.Float64()}
		D[i] = Vec{
			6 * math.Cos(2*math.Pi*rng.Float64()),
			6 * math.Sin(2*math.Pi*rng.Float64()),
			4*rng.Float64() - 2,
		}
		d := target.Sub(D[i])
		u[i] = d.Scale(1 / d.Norm())
	}

	params := DefaultIntersectionParams()
	params.Forbid = false
	res := tracePInOut(t, ref, nil, D, u, params)

	for i := 0; i < n; i++ {
		if math.IsNaN(res.KMax[i]) {
			t.Errorf("%d) Ray aimed inside the solid reports no visibility.", i+1)
			continue
		}
		if res.KMin[i] > res.KMax[i] {
			t.Errorf("%d) kMin %g > kMax %g.", i+1, res.KMin[i], res.KMax[i])
		}
		mid := D[i].Add(u[i].Scale((res.KMin[i] + res.KMax[i]) / 2))
		rows, err := ref.IsInside([]Vec{mid}, FrameXYZ)
		if err != nil {
			t.Fatal(err)
		}
		if !rows[0][0] {
			t.Errorf("%d) Midpoint %v of [kMin, kMax] is outside the solid.", i+1, mid)
		}
		if res.RMin[i] > math.Hypot(res.PkMin[i][0], res.PkMin[i][1])+1e-12 {
			t.Errorf("%d) RMin %g exceeds the entry radius.", i+1, res.RMin[i])
		}
	}
}

func mustPoly(t *testing.T, pts []Vec2) *Polygon {
	t.Helper()
	p, err := NewPolygonPts(pts, false)
	if err != nil {
		t.Fatal(err)
	}
	return p
}
