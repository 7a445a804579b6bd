package geom

import (
	"math"

	"github.com/gonum/floats"
)

// ImpactEnvelope computes the impact-parameter envelope of a cross-section
// polygon around refPt: for nP angles theta spanning [0, 2pi], the smallest
// and largest signed impact parameter p = (v - refPt).(cos theta, sin theta)
// over the polygon vertices. A line of sight whose (p, theta) falls inside
// the envelope crosses the polygon in projection.
func ImpactEnvelope(refPt Vec2, poly *Polygon, nP int) (theta []float64, minMax [][2]float64) {
	theta = make([]float64, nP)
	floats.Span(theta, 0, 2*math.Pi)

	pts := poly.Points()
	minMax = make([][2]float64, nP)
	for i, th := range theta {
		c, s := math.Cos(th), math.Sin(th)
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range pts {
			p := (v[0]-refPt[0])*c + (v[1]-refPt[1])*s
			lo = math.Min(lo, p)
			hi = math.Max(hi, p)
		}
		minMax[i] = [2]float64{lo, hi}
	}
	return theta, minMax
}

// SinoResult holds the sinogram coordinates of each ray with respect to a
// reference point in the cross-section plane: the point of closest approach
// to the reference circle (Tor) or reference axis (Lin), its parameter k,
// the signed impact parameter p, the poloidal angle theta of the impact
// direction, and the angle phi between the line and that direction.
type SinoResult struct {
	RefPt Vec2
	Pts   []Vec
	K     []float64
	P     []float64
	Theta []float64
	Phi   []float64
}

// Sino computes the sinogram coordinates of every ray in the bundle around
// refPt, searching the closest approach along each ray within [0, kMax].
// Rays that never leave the reference solid (NaN kMax) are searched up to a
// generous finite bound instead.
func (rb *RayBundle) Sino(refPt Vec2) (*SinoResult, error) {
	geo, err := rb.Geom()
	if err != nil {
		return nil, err
	}
	vt := rb.coll.Type()

	n := rb.N()
	res := &SinoResult{
		RefPt: refPt,
		Pts:   make([]Vec, n),
		K:     make([]float64, n),
		P:     make([]float64, n),
		Theta: make([]float64, n),
		Phi:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		kHi := geo.KMax[i]
		if math.IsNaN(kHi) {
			kHi = rb.d[i].Norm() + 2*math.Hypot(refPt[0], refPt[1]) + 1
		}
		var k float64
		if vt == Tor {
			k = closestApproachTor(rb.d[i], rb.u[i], refPt, kHi)
		} else {
			k = closestApproachLin(rb.d[i], rb.u[i], refPt, kHi)
		}
		pt := rb.d[i].Add(rb.u[i].Scale(k))
		res.Pts[i] = pt
		res.K[i] = k
		res.P[i], res.Theta[i], res.Phi[i] = sinoCoords(pt, rb.u[i], refPt, vt)
	}
	return res, nil
}

// sinoCoords converts a point and line direction into (p, theta, phi). theta
// lands in [0, pi] with p carrying the sign, so that (p, theta) and
// (-p, -theta) describe the same line.
func sinoCoords(pt, u Vec, refPt Vec2, vt VType) (p, theta, phi float64) {
	var d1, d2 float64
	var etheta Vec
	if vt == Tor {
		r := math.Hypot(pt[0], pt[1])
		d1, d2 = r-refPt[0], pt[2]-refPt[1]
		p = math.Hypot(d1, d2)
		theta = math.Atan2(d2, d1)
		phiPt := math.Atan2(pt[1], pt[0])
		etheta = Vec{
			math.Cos(phiPt) * math.Cos(theta),
			math.Sin(phiPt) * math.Cos(theta),
			math.Sin(theta),
		}
	} else {
		d1, d2 = pt[1]-refPt[0], pt[2]-refPt[1]
		p = math.Hypot(d1, d2)
		theta = math.Atan2(d2, d1)
		etheta = Vec{0, math.Cos(theta), math.Sin(theta)}
	}
	if theta < 0 {
		p, theta = -p, -theta
	}
	phi = math.Acos(math.Abs(etheta.Dot(u)))
	return p, theta, phi
}

// closestApproachTor minimizes the squared poloidal distance to the circle
// (R0, Z0) along D + k*u over [0, kHi]. The distance involves a square root
// of the major radius, so the minimum is bracketed by a coarse scan and
// polished by golden-section search.
func closestApproachTor(D, u Vec, refPt Vec2, kHi float64) float64 {
	if kHi <= 0 {
		return 0
	}
	f := func(k float64) float64 {
		x, y, z := D[0]+k*u[0], D[1]+k*u[1], D[2]+k*u[2]
		dr := math.Hypot(x, y) - refPt[0]
		dz := z - refPt[1]
		return dr*dr + dz*dz
	}

	const nScan = 100
	best, fBest := 0.0, f(0)
	for i := 1; i <= nScan; i++ {
		k := kHi * float64(i) / nScan
		if fk := f(k); fk < fBest {
			best, fBest = k, fk
		}
	}
	lo := math.Max(0, best-kHi/nScan)
	hi := math.Min(kHi, best+kHi/nScan)
	return goldenMin(f, lo, hi)
}

// closestApproachLin is the analytic counterpart for extruded solids: the
// reference is the axis-parallel line through (Y0, Z0), so the squared
// distance is a parabola in k.
func closestApproachLin(D, u Vec, refPt Vec2, kHi float64) float64 {
	a := u[1]*u[1] + u[2]*u[2]
	if a < 1e-14 {
		return 0
	}
	k := -(u[1]*(D[1]-refPt[0]) + u[2]*(D[2]-refPt[1])) / a
	return math.Max(0, math.Min(k, math.Max(kHi, 0)))
}

func goldenMin(f func(float64) float64, lo, hi float64) float64 {
	const invPhi = 0.6180339887498949
	a, b := lo, hi
	c := b - (b-a)*invPhi
	d := a + (b-a)*invPhi
	fc, fd := f(c), f(d)
	for i := 0; i < 80 && b-a > 1e-12; i++ {
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - (b-a)*invPhi
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + (b-a)*invPhi
			fd = f(d)
		}
	}
	return (a + b) / 2
}

// SinoEnvelopeRef is a convenience wrapper returning the envelope of the
// collection's reference structure.
func (c *Collection) SinoEnvelopeRef(refPt Vec2, nP int) (theta []float64, minMax [][2]float64, err error) {
	ref, err := c.Reference()
	if err != nil {
		return nil, nil, err
	}
	return ref.SinoEnvelope(refPt, nP)
}
