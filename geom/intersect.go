package geom

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/golang/glog"

	"github.com/flothesof/tofu/logging"
)

// IntersectionParams carries the numerical robustness knobs of the ray-solid
// engine. The zero value is not usable; start from DefaultIntersectionParams.
type IntersectionParams struct {
	// RMin is the radius of the central column assumed opaque when Forbid
	// is set. RMin <= 0 selects 0.95 times the smallest major radius of the
	// reference cross-section.
	RMin float64
	// Forbid discards candidate crossings that a toroidal ray could only
	// reach by looking through the central column.
	Forbid bool

	// EpsUz guards divisions by the vertical ray component against
	// horizontal-plane crossings; EpsVz decides when a polygon segment
	// counts as horizontal or vertical; EpsA and EpsB guard the quadratic
	// cone solver; EpsPlane guards ray-plane denominators.
	EpsUz, EpsVz, EpsA, EpsB, EpsPlane float64
}

// DefaultIntersectionParams returns the production defaults.
func DefaultIntersectionParams() IntersectionParams {
	return IntersectionParams{
		RMin:   0,
		Forbid: true,
		EpsUz:  1e-6,
		EpsVz:  1e-9,
		EpsA:   1e-9,
		EpsB:   1e-9,
		EpsPlane: 1e-9,
	}
}

// Pseudo-segment indices used in HitRef.Seg for crossings through the flat
// faces closing a toroidal sector or a linear extrusion window.
const (
	SegLimStart = -1
	SegLimEnd   = -2
)

// HitRef identifies the boundary element that produced a crossing: the
// structure (0 is the reference solid, i+1 the i-th obstruction), the
// occurrence window, and the polygon segment (or a pseudo-segment for
// window faces). A ray with no valid exit carries {-1, -1, -1}.
type HitRef struct {
	Struct, Lim, Seg int
}

var noHit = HitRef{-1, -1, -1}

// IntersectionResult holds the per-ray output of ComputePInOut. Rays that
// never see the reference solid keep KMax = NaN and are listed in NoVis;
// their KMin is 0 by the sentinel policy.
type IntersectionResult struct {
	KMin, KMax []float64
	PkMin, PkMax []Vec
	VPerp  []Vec
	IndOut []HitRef

	// Toroidal geometries only (nil for Lin): parametric distance, point
	// and value of the smallest major radius reached on [0, KMax].
	KRMin, RMin []float64
	PRMin       []Vec

	// NoVis lists the indices of rays with no visibility inside the
	// reference solid.
	NoVis []int
}

// crossing is one candidate boundary traversal along a ray.
type crossing struct {
	k     float64
	enter bool
	n     Vec // unit inward normal of the surface at the hit point
	lim   int
	seg   int
}

// solverSolid is the read-only geometry shared by all workers for one
// structure.
type solverSolid struct {
	vtype  VType
	closed []Vec2
	vin    []Vec2
	lim    Lim
	poly   *Polygon
}

func newSolverSolid(s *Structure) *solverSolid {
	return &solverSolid{
		vtype:  s.Type(),
		closed: s.Poly().Closed(),
		vin:    s.Poly().VIn(),
		lim:    s.Lim(),
		poly:   s.Poly(),
	}
}

// ComputePInOut computes, for every ray D[i] + k*u[i], the parametric
// entry/exit distances against the reference solid, shortened by the nearest
// obstruction hit, along with the inward normal and boundary identity at the
// exit. Directions must be unit vectors; D and u must have equal length.
//
// A ray that never crosses the reference solid is not an error: it is
// reported in NoVis, flagged with KMax = NaN, and warned about with its
// index so batch failures stay debuggable.
func ComputePInOut(
	D, u []Vec, ref *Structure, obstructions []*Structure, params IntersectionParams,
) (*IntersectionResult, error) {
	if len(D) != len(u) {
		return nil, fmt.Errorf("geom: ray count mismatch: %d origins, %d directions", len(D), len(u))
	}
	if len(D) == 0 {
		return nil, fmt.Errorf("geom: empty ray batch")
	}
	for i, ui := range u {
		if math.Abs(ui.Norm()-1) > 1e-9 {
			return nil, fmt.Errorf("geom: direction %d is not unit length (|u| = %g)", i, ui.Norm())
		}
	}
	for _, s := range obstructions {
		if s.Type() != ref.Type() {
			return nil, fmt.Errorf("geom: obstruction %q is %v, reference is %v",
				s.Name(), s.Type(), ref.Type())
		}
	}

	solids := make([]*solverSolid, 1+len(obstructions))
	solids[0] = newSolverSolid(ref)
	for i, s := range obstructions {
		solids[i+1] = newSolverSolid(s)
	}

	rmin := params.RMin
	if rmin <= 0 && ref.Type() == Tor {
		rmin = 0.95 * minR(ref.Poly().Points())
	}

	n := len(D)
	res := &IntersectionResult{
		KMin: make([]float64, n), KMax: make([]float64, n),
		PkMin: make([]Vec, n), PkMax: make([]Vec, n),
		VPerp:  make([]Vec, n),
		IndOut: make([]HitRef, n),
	}
	if ref.Type() == Tor {
		res.KRMin = make([]float64, n)
		res.RMin = make([]float64, n)
		res.PRMin = make([]Vec, n)
	}

	start := time.Now()
	workers := runtime.NumCPU()
	if workers > n {
		workers = 1
	}
	noVis := make([][]int, workers)
	done := make(chan int, workers)
	run := func(id int) {
		w := &solverWorkspace{solids: solids, params: params, rmin: rmin}
		for i := id; i < n; i += workers {
			if !w.solveRay(D[i], u[i], i, res) {
				noVis[id] = append(noVis[id], i)
			}
		}
		done <- id
	}
	for id := 0; id < workers-1; id++ {
		go run(id)
	}
	run(workers - 1)
	for i := 0; i < workers; i++ {
		<-done
	}

	for id := range noVis {
		res.NoVis = append(res.NoVis, noVis[id]...)
	}
	if len(res.NoVis) > 0 {
		glog.Warningf("geom: %d of %d rays have no visibility inside the reference solid (indices %v)",
			len(res.NoVis), n, res.NoVis)
	}
	if logging.Mode == logging.Performance {
		glog.Infof("geom: PInOut over %d rays, %d structures in %s; %s",
			n, len(solids), logging.DurationString(start), logging.MemString())
	}
	return res, nil
}

// solverWorkspace holds per-worker scratch buffers. Workspaces must not be
// shared between goroutines.
type solverWorkspace struct {
	solids []*solverSolid
	params IntersectionParams
	rmin   float64
	buf    []crossing
}

// solveRay fills result slot i and reports whether the ray sees the
// reference solid.
func (w *solverWorkspace) solveRay(D, u Vec, i int, res *IntersectionResult) bool {
	kForbid := math.Inf(1)
	if w.params.Forbid && w.solids[0].vtype == Tor {
		kForbid = forbidLimit(D, u, w.rmin)
	}

	// Reference solid: nearest entering and nearest exiting crossing.
	w.buf = w.solids[0].appendCrossings(w.buf[:0], D, u, w.params, kForbid)
	kIn, hasIn := math.Inf(1), false
	for _, c := range w.buf {
		if c.enter && c.k < kIn {
			kIn, hasIn = c.k, true
		}
	}
	if !hasIn {
		kIn = 0
	}
	kOut, hasOut := math.Inf(1), false
	var outHit crossing
	for _, c := range w.buf {
		if !c.enter && c.k >= kIn && c.k < kOut {
			kOut, hasOut, outHit = c.k, true, c
		}
	}

	hitStruct := 0
	if hasOut {
		// Obstructions: nearest entering crossing shadows the exit.
		for j, solid := range w.solids[1:] {
			w.buf = solid.appendCrossings(w.buf[:0], D, u, w.params, kForbid)
			for _, c := range w.buf {
				if c.enter && c.k < kOut {
					kOut, outHit, hitStruct = c.k, c, j+1
				}
			}
		}
	}
	if hasOut && kOut < kIn {
		// Blocked before ever entering the reference solid.
		hasOut = false
	}

	nan := math.NaN()
	if !hasOut {
		res.KMin[i], res.KMax[i] = 0, nan
		res.PkMin[i] = D
		res.PkMax[i] = Vec{nan, nan, nan}
		res.VPerp[i] = Vec{}
		res.IndOut[i] = noHit
		if res.KRMin != nil {
			res.KRMin[i], res.RMin[i] = nan, nan
			res.PRMin[i] = Vec{nan, nan, nan}
		}
		return false
	}

	res.KMin[i], res.KMax[i] = kIn, kOut
	res.PkMin[i] = D.Add(u.Scale(kIn))
	res.PkMax[i] = D.Add(u.Scale(kOut))
	res.VPerp[i] = outHit.n
	res.IndOut[i] = HitRef{hitStruct, outHit.lim, outHit.seg}

	if res.KRMin != nil {
		kr := kRMin(D, u, kOut)
		res.KRMin[i] = kr
		p := D.Add(u.Scale(kr))
		res.PRMin[i] = p
		res.RMin[i] = math.Hypot(p[0], p[1])
	}
	return true
}

// forbidLimit returns the parametric distance at which the horizontal
// projection of the ray first dips inside the opaque central column of
// radius rmin; everything beyond is invisible. +Inf when the ray never does,
// or when the origin already projects inside the column.
func forbidLimit(D, u Vec, rmin float64) float64 {
	if rmin <= 0 {
		return math.Inf(1)
	}
	upar2 := u[0]*u[0] + u[1]*u[1]
	dpar2 := D[0]*D[0] + D[1]*D[1]
	if dpar2 <= rmin*rmin || upar2 == 0 {
		return math.Inf(1)
	}
	b := u[0]*D[0] + u[1]*D[1]
	disc := b*b - upar2*(dpar2-rmin*rmin)
	if disc <= 0 {
		return math.Inf(1)
	}
	k1 := (-b - math.Sqrt(disc)) / upar2
	if k1 <= 0 {
		return math.Inf(1)
	}
	return k1
}

// kRMin returns the parametric distance of minimal major radius on
// [0, kMax], the analytic root of d(R^2)/dk clamped to the interval. Rays
// within 1e-12 of vertical keep their radius, so 0 is returned.
func kRMin(D, u Vec, kMax float64) float64 {
	upar2 := u[0]*u[0] + u[1]*u[1]
	if upar2 < 1e-12 {
		return 0
	}
	k := -(u[0]*D[0] + u[1]*D[1]) / upar2
	if k < 0 {
		return 0
	}
	if k > kMax {
		return kMax
	}
	return k
}

func (sg *solverSolid) appendCrossings(
	buf []crossing, D, u Vec, p IntersectionParams, kForbid float64,
) []crossing {
	if sg.vtype == Tor {
		buf = sg.appendTorCrossings(buf, D, u, p, kForbid)
	} else {
		buf = sg.appendLinCrossings(buf, D, u, p)
	}
	return buf
}

func (sg *solverSolid) appendTorCrossings(
	buf []crossing, D, u Vec, p IntersectionParams, kForbid float64,
) []crossing {
	upar2 := u[0]*u[0] + u[1]*u[1]
	upscaDp := u[0]*D[0] + u[1]*D[1]
	dpar2 := D[0]*D[0] + D[1]*D[1]

	nSeg := len(sg.closed) - 1
	for i := 0; i < nSeg; i++ {
		a, b := sg.closed[i], sg.closed[i+1]
		dr, dz := b[0]-a[0], b[1]-a[1]

		switch {
		case math.Abs(dz) < p.EpsVz:
			// Horizontal segment: an annulus in the plane z = a[1].
			if math.Abs(u[2]) < p.EpsUz {
				continue
			}
			k := (a[1] - D[2]) / u[2]
			if k <= 0 || k > kForbid {
				continue
			}
			r := math.Hypot(D[0]+k*u[0], D[1]+k*u[1])
			lo, hi := a[0], b[0]
			if lo > hi {
				lo, hi = hi, lo
			}
			if r < lo || r > hi {
				continue
			}
			buf = sg.pushTorCrossing(buf, D, u, k, i)

		case math.Abs(dr) < p.EpsVz:
			// Vertical segment: a cylinder of radius a[0].
			if upar2 < p.EpsA {
				continue
			}
			cq := dpar2 - a[0]*a[0]
			disc := upscaDp*upscaDp - upar2*cq
			if disc <= 0 {
				continue
			}
			sq := math.Sqrt(disc)
			for _, k := range [2]float64{(-upscaDp - sq) / upar2, (-upscaDp + sq) / upar2} {
				if k <= 0 || k > kForbid {
					continue
				}
				z := D[2] + k*u[2]
				lo, hi := a[1], b[1]
				if lo > hi {
					lo, hi = hi, lo
				}
				if z < lo || z > hi {
					continue
				}
				buf = sg.pushTorCrossing(buf, D, u, k, i)
			}

		default:
			// General segment: one nappe of a cone around the z axis with
			// slope m and apex height zA.
			m := dr / dz
			zA := a[1] - a[0]/m
			dzA := D[2] - zA
			qa := upar2 - m*m*u[2]*u[2]
			qb := 2 * (upscaDp - m*m*u[2]*dzA)
			qc := dpar2 - m*m*dzA*dzA

			var k1, k2 float64
			nRoots := 0
			if math.Abs(qa) < p.EpsA {
				if math.Abs(qb) < p.EpsB {
					continue // ray runs along the cone surface
				}
				k1, nRoots = -qc/qb, 1
			} else {
				disc := qb*qb - 4*qa*qc
				if disc <= 0 {
					continue
				}
				q := -(qb + math.Copysign(math.Sqrt(disc), qb)) / 2
				k1, k2, nRoots = q/qa, qc/q, 2
			}
			for r := 0; r < nRoots; r++ {
				k := k1
				if r == 1 {
					k = k2
				}
				if k <= 0 || k > kForbid {
					continue
				}
				q := (D[2] + k*u[2] - a[1]) / dz
				if q < 0 || q > 1 {
					continue
				}
				buf = sg.pushTorCrossing(buf, D, u, k, i)
			}
		}
	}

	// Flat poloidal faces closing each sector.
	for iw, win := range sg.lim.Windows() {
		buf = sg.pushTorFace(buf, D, u, p, kForbid, iw, win[0], SegLimStart)
		buf = sg.pushTorFace(buf, D, u, p, kForbid, iw, win[1], SegLimEnd)
	}
	return buf
}

// pushTorCrossing validates the occurrence windows at a candidate crossing
// of a revolved segment and appends one crossing per matching window.
func (sg *solverSolid) pushTorCrossing(buf []crossing, D, u Vec, k float64, seg int) []crossing {
	x, y := D[0]+k*u[0], D[1]+k*u[1]
	phi := math.Atan2(y, x)
	cos, sin := math.Cos(phi), math.Sin(phi)
	vin := sg.vin[seg]
	n := Vec{vin[0] * cos, vin[0] * sin, vin[1]}
	dot := u.Dot(n)
	if dot == 0 {
		return buf // tangent graze
	}
	if sg.lim.Full() {
		return append(buf, crossing{k: k, enter: dot > 0, n: n, lim: 0, seg: seg})
	}
	for iw, in := range sg.lim.Contains(phi) {
		if in {
			buf = append(buf, crossing{k: k, enter: dot > 0, n: n, lim: iw, seg: seg})
		}
	}
	return buf
}

// pushTorFace intersects the ray with the flat half-plane face of a sector
// at angle phi. Start faces point inward along increasing phi, end faces
// along decreasing phi.
func (sg *solverSolid) pushTorFace(
	buf []crossing, D, u Vec, p IntersectionParams, kForbid float64,
	iw int, phi float64, seg int,
) []crossing {
	// The face plane contains the z axis; its unit normal is the azimuthal
	// direction at phi.
	n := Vec{-math.Sin(phi), math.Cos(phi), 0}
	if seg == SegLimEnd {
		n = n.Scale(-1)
	}
	denom := u.Dot(n)
	if math.Abs(denom) < p.EpsPlane {
		return buf
	}
	k := -D.Dot(n) / denom
	if k <= 0 || k > kForbid {
		return buf
	}
	x, y, z := D[0]+k*u[0], D[1]+k*u[1], D[2]+k*u[2]
	// Reject the opposite half-plane of the same diametral plane.
	if x*math.Cos(phi)+y*math.Sin(phi) <= 0 {
		return buf
	}
	if !sg.poly.Contains(Vec2{math.Hypot(x, y), z}) {
		return buf
	}
	return append(buf, crossing{k: k, enter: denom > 0, n: n, lim: iw, seg: seg})
}

func (sg *solverSolid) appendLinCrossings(
	buf []crossing, D, u Vec, p IntersectionParams,
) []crossing {
	nSeg := len(sg.closed) - 1
	for i := 0; i < nSeg; i++ {
		a, b := sg.closed[i], sg.closed[i+1]
		vin := sg.vin[i]
		denom := u[1]*vin[0] + u[2]*vin[1]
		if math.Abs(denom) < p.EpsPlane {
			continue
		}
		k := ((a[0]-D[1])*vin[0] + (a[1]-D[2])*vin[1]) / denom
		if k <= 0 {
			continue
		}
		y, z := D[1]+k*u[1], D[2]+k*u[2]
		dy, dz := b[0]-a[0], b[1]-a[1]
		q := ((y-a[0])*dy + (z-a[1])*dz) / (dy*dy + dz*dz)
		if q < 0 || q > 1 {
			continue
		}
		x := D[0] + k*u[0]
		n := Vec{0, vin[0], vin[1]}
		for iw, in := range sg.lim.Contains(x) {
			if in {
				buf = append(buf, crossing{k: k, enter: denom > 0, n: n, lim: iw, seg: i})
			}
		}
	}

	// End caps of each extrusion window.
	for iw, win := range sg.lim.Windows() {
		buf = sg.pushLinCap(buf, D, u, p, iw, win[0], SegLimStart)
		buf = sg.pushLinCap(buf, D, u, p, iw, win[1], SegLimEnd)
	}
	return buf
}

func (sg *solverSolid) pushLinCap(
	buf []crossing, D, u Vec, p IntersectionParams, iw int, x float64, seg int,
) []crossing {
	if math.Abs(u[0]) < p.EpsPlane {
		return buf
	}
	k := (x - D[0]) / u[0]
	if k <= 0 {
		return buf
	}
	if !sg.poly.Contains(Vec2{D[1] + k*u[1], D[2] + k*u[2]}) {
		return buf
	}
	n := Vec{1, 0, 0}
	if seg == SegLimEnd {
		n = Vec{-1, 0, 0}
	}
	dot := u.Dot(n)
	if dot == 0 {
		return buf
	}
	return append(buf, crossing{k: k, enter: dot > 0, n: n, lim: iw, seg: seg})
}
