package geom

import (
	"fmt"
	"math"

	"github.com/golang/glog"
)

// RayBundle is a batch of lines of sight, each D[i] + k*u[i] with unit u.
// Intersections against a Collection are computed lazily and cached; the
// cache is dropped whenever the collection's geometry changes.
type RayBundle struct {
	d, u []Vec

	coll   *Collection
	params IntersectionParams

	res    *IntersectionResult
	resGen uint64
}

// NewRayBundle builds a bundle from parallel origin/direction batches.
// A singleton origin or direction is broadcast to the other batch's length;
// any other length mismatch is an error. Directions are normalized, and a
// zero direction is rejected.
func NewRayBundle(D, u []Vec) (*RayBundle, error) {
	switch {
	case len(D) == 0 || len(u) == 0:
		return nil, fmt.Errorf("geom: ray bundle needs origins and directions")
	case len(D) == len(u):
	case len(D) == 1:
		D = broadcast(D[0], len(u))
	case len(u) == 1:
		u = broadcast(u[0], len(D))
	default:
		return nil, fmt.Errorf(
			"geom: ambiguous ray count: %d origins vs %d directions and neither is a singleton",
			len(D), len(u))
	}

	un := make([]Vec, len(u))
	for i, ui := range u {
		norm := ui.Norm()
		if norm == 0 {
			return nil, fmt.Errorf("geom: direction %d is the zero vector", i)
		}
		un[i] = ui.Scale(1 / norm)
	}
	d := make([]Vec, len(D))
	copy(d, D)
	return &RayBundle{d: d, u: un, params: DefaultIntersectionParams()}, nil
}

// NewPinholeBundle builds a fan of rays through a common pinhole point,
// with per-ray directions normalize(pinhole - D[i]).
func NewPinholeBundle(D []Vec, pinhole Vec) (*RayBundle, error) {
	if len(D) == 0 {
		return nil, fmt.Errorf("geom: ray bundle needs origins and directions")
	}
	u := make([]Vec, len(D))
	for i, di := range D {
		u[i] = pinhole.Sub(di)
	}
	return NewRayBundle(D, u)
}

func broadcast(v Vec, n int) []Vec {
	out := make([]Vec, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// N returns the ray count.
func (rb *RayBundle) N() int { return len(rb.d) }

// D returns the ray origins. The caller must not modify them.
func (rb *RayBundle) D() []Vec { return rb.d }

// U returns the unit ray directions. The caller must not modify them.
func (rb *RayBundle) U() []Vec { return rb.u }

// SetCollection attaches the device geometry the bundle is traced against
// and drops any cached intersections. params may be nil to keep the current
// (initially default) parameters.
func (rb *RayBundle) SetCollection(c *Collection, params *IntersectionParams) {
	rb.coll = c
	if params != nil {
		rb.params = *params
	}
	rb.res = nil
}

// Geom returns the cached intersection results, recomputing them if they
// were never computed or if the attached collection's geometry changed.
func (rb *RayBundle) Geom() (*IntersectionResult, error) {
	if rb.coll == nil {
		return nil, fmt.Errorf("geom: ray bundle has no collection; call SetCollection first")
	}
	gen := rb.coll.Gen()
	if rb.res != nil && rb.resGen == gen {
		return rb.res, nil
	}
	res, err := rb.coll.PInOut(rb.d, rb.u, rb.params)
	if err != nil {
		return nil, err
	}
	rb.res, rb.resGen = res, gen
	return res, nil
}

// CameraFrame estimates the geometry of a 2D camera from the ray origins:
// the barycenter C, the unit normal nIn of the detector plane oriented along
// the mean line of sight, and an orthonormal in-plane basis (e1, e2) with e1
// along the first detector row and e2 upward. The heuristic needs origins
// spanning a plane; bundles of (nearly) aligned origins are rejected.
func (rb *RayBundle) CameraFrame() (C, nIn, e1, e2 Vec, err error) {
	n := len(rb.d)
	if n < 3 {
		return C, nIn, e1, e2, fmt.Errorf("geom: camera frame needs at least 3 rays, got %d", n)
	}

	for i := 0; i < n; i++ {
		C = C.Add(rb.d[i])
	}
	C = C.Scale(1 / float64(n))

	// Most reliable plane normal among consecutive origin pairs.
	var best Vec
	bestN2 := 0.0
	for i := 0; i+1 < n; i++ {
		cr := rb.d[i].Sub(C).Cross(rb.d[i+1].Sub(C))
		if n2 := cr.Dot(cr); n2 > bestN2 {
			best, bestN2 = cr, n2
		}
	}
	if bestN2 < 1e-12 {
		glog.Warningf("geom: camera origins look aligned (max cross norm^2 = %g)", bestN2)
		return C, nIn, e1, e2, fmt.Errorf("geom: ray origins are aligned, not a 2D camera")
	}
	nIn = best.Scale(1 / math.Sqrt(bestN2))

	var uMean Vec
	for i := 0; i < n; i++ {
		uMean = uMean.Add(rb.u[i])
	}
	if nIn.Dot(uMean) < 0 {
		nIn = nIn.Scale(-1)
	}

	// e1 follows the first detector row: the direction from the first origin
	// that the most other origins are (anti)parallel to.
	first := rb.d[1].Sub(rb.d[0])
	e1 = first.Scale(1 / first.Norm())
	e1 = e1.Sub(nIn.Scale(e1.Dot(nIn)))
	norm := e1.Norm()
	if norm < 1e-12 {
		return C, nIn, e1, e2, fmt.Errorf("geom: detector row direction is degenerate")
	}
	e1 = e1.Scale(1 / norm)
	e2 = nIn.Cross(e1)
	if e2[2] < 0 {
		e2 = e2.Scale(-1)
		e1 = e1.Scale(-1)
	}
	return C, nIn, e1, e2, nil
}
