package geom

import (
	"fmt"
)

// Structure composes a cross-section polygon, a sweep type and a set of
// occurrence windows into one device component. The solid it represents is
// the union, over its windows, of the polygon revolved (Tor) or extruded
// (Lin) across that window.
type Structure struct {
	name   string
	kind   Kind
	vtype  VType
	mobile bool

	poly *Polygon
	lim  Lim

	// compute marks the structure as participating in ray intersection and
	// collision queries run through a Collection.
	compute bool

	// Derived, recomputed on demand. gen changes whenever the geometry
	// does, so ray bundles can detect stale cached intersections.
	gen   uint64
	sino  *sinoCache
	dirty bool
}

type sinoCache struct {
	refPt  Vec2
	nP     int
	theta  []float64
	minMax [][2]float64
}

// NewStructure builds a Structure. windows may be nil for a full toroidal
// solid; linear structures must carry at least one axial window.
func NewStructure(
	name string, kind Kind, vt VType, poly *Polygon, windows [][2]float64,
) (*Structure, error) {
	if name == "" {
		return nil, fmt.Errorf("geom: structure needs a non-empty name")
	}
	if poly == nil {
		return nil, fmt.Errorf("geom: structure %q needs a polygon", name)
	}
	lim, err := NormalizeLim(vt, windows)
	if err != nil {
		return nil, fmt.Errorf("geom: structure %q: %w", name, err)
	}
	return &Structure{
		name: name, kind: kind, vtype: vt,
		poly: poly, lim: lim,
		compute: true, dirty: true,
	}, nil
}

func (s *Structure) Name() string { return s.name }
func (s *Structure) Kind() Kind   { return s.kind }
func (s *Structure) Type() VType  { return s.vtype }

// Mobile reports whether the component is movable rather than a static part
// of the vessel.
func (s *Structure) Mobile() bool { return s.mobile }

// SetMobile marks the component as movable.
func (s *Structure) SetMobile(mobile bool) { s.mobile = mobile }

// Poly returns the cross-section polygon.
func (s *Structure) Poly() *Polygon { return s.poly }

// Lim returns the occurrence windows.
func (s *Structure) Lim() Lim { return s.lim }

// NLim returns the number of occurrence windows.
func (s *Structure) NLim() int { return s.lim.N() }

// Compute reports whether the structure participates in sight computations.
func (s *Structure) Compute() bool { return s.compute }

// SetCompute includes or excludes the structure from sight computations.
func (s *Structure) SetCompute(on bool) {
	if s.compute != on {
		s.compute = on
		s.gen++
	}
}

// SetPoly replaces the cross-section polygon and windows, invalidating all
// derived geometry and any cached ray intersections that reference this
// structure.
func (s *Structure) SetPoly(poly *Polygon, windows [][2]float64) error {
	if poly == nil {
		return fmt.Errorf("geom: structure %q needs a polygon", s.name)
	}
	lim, err := NormalizeLim(s.vtype, windows)
	if err != nil {
		return fmt.Errorf("geom: structure %q: %w", s.name, err)
	}
	s.poly, s.lim = poly, lim
	s.Invalidate()
	return nil
}

// Invalidate marks all derived geometry stale. It is called automatically by
// SetPoly; callers only need it after out-of-band changes.
func (s *Structure) Invalidate() {
	s.dirty = true
	s.sino = nil
	s.gen++
}

// Gen returns a counter that changes whenever the structure's geometry does.
func (s *Structure) Gen() uint64 { return s.gen }

// SinoEnvelope returns the impact-parameter envelope of the cross-section
// around refPt, sampled at nP angles, computing and caching it on first use.
// See ImpactEnvelope for the definition.
func (s *Structure) SinoEnvelope(refPt Vec2, nP int) (theta []float64, minMax [][2]float64, err error) {
	if nP < 2 {
		return nil, nil, fmt.Errorf("geom: sinogram envelope needs nP >= 2, got %d", nP)
	}
	c := s.sino
	if c == nil || c.refPt != refPt || c.nP != nP {
		theta, minMax := ImpactEnvelope(refPt, s.poly, nP)
		c = &sinoCache{refPt: refPt, nP: nP, theta: theta, minMax: minMax}
		s.sino = c
		s.dirty = false
	}
	return c.theta, c.minMax, nil
}
