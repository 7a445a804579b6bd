package geom

import (
	"fmt"
	"math"

	"github.com/gonum/matrix/mat64"

	"github.com/flothesof/tofu/math/interpolate"
)

// InsideConvexPoly returns a smaller, convex, optionally smoothed proxy of
// the cross-section polygon. It is useful when a non-convex feature such as
// a divertor leg should be excluded from a plasma-facing domain: the polygon
// is shrunk homothetically toward its surface barycenter by (1 - relOff),
// truncated in height to zLim when given, replaced by its convex hull, and,
// when smooth is set, resampled to nP points and low-pass filtered.
func (s *Structure) InsideConvexPoly(
	relOff float64, zLim *[2]float64, smooth bool, nP int,
) (*Polygon, error) {
	if relOff < 0 || relOff >= 1 {
		return nil, fmt.Errorf("geom: relOff must be in [0, 1), got %g", relOff)
	}
	if smooth && nP < 8 {
		return nil, fmt.Errorf("geom: smoothing needs nP >= 8, got %d", nP)
	}

	center := s.poly.BaryS()
	scale := 1 - relOff
	pts := make([]Vec2, len(s.poly.Points()))
	for i, v := range s.poly.Points() {
		pts[i] = Vec2{
			center[0] + scale*(v[0]-center[0]),
			center[1] + scale*(v[1]-center[1]),
		}
	}

	if zLim != nil {
		if zLim[0] >= zLim[1] {
			return nil, fmt.Errorf("geom: zLim must be increasing, got %v", *zLim)
		}
		pts = clipBelow(clipAbove(pts, zLim[1]), zLim[0])
		if len(pts) < 3 {
			return nil, fmt.Errorf("geom: zLim %v leaves no cross-section", *zLim)
		}
	}

	hull := convexHull(pts)
	if len(hull) < 3 {
		return nil, fmt.Errorf("geom: cross-section degenerates to a line")
	}
	if smooth {
		hull = smoothClosed(hull, nP)
	}
	return NewPolygonPts(hull, s.poly.Clockwise())
}

// clipAbove keeps the part of the closed polygon with p2 <= z, inserting
// boundary intersections (one half of a Sutherland-Hodgman clip).
func clipAbove(pts []Vec2, z float64) []Vec2 {
	var out []Vec2
	n := len(pts)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		ain, bin := a[1] <= z, b[1] <= z
		if ain {
			out = append(out, a)
		}
		if ain != bin {
			t := (z - a[1]) / (b[1] - a[1])
			out = append(out, Vec2{a[0] + t*(b[0]-a[0]), z})
		}
	}
	return out
}

func clipBelow(pts []Vec2, z float64) []Vec2 {
	neg := make([]Vec2, len(pts))
	for i, p := range pts {
		neg[i] = Vec2{p[0], -p[1]}
	}
	neg = clipAbove(neg, -z)
	for i, p := range neg {
		neg[i] = Vec2{p[0], -p[1]}
	}
	return neg
}

// convexHull computes the convex hull with the monotone chain, returned
// counter-clockwise without a repeated closing vertex.
func convexHull(pts []Vec2) []Vec2 {
	n := len(pts)
	if n < 3 {
		return pts
	}
	sorted := make([]Vec2, n)
	copy(sorted, pts)
	for i := 1; i < n; i++ {
		for j := i; j > 0 && less2(sorted[j], sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	cross := func(o, a, b Vec2) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}
	var hull []Vec2
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

func less2(a, b Vec2) bool {
	if a[0] != b[0] {
		return a[0] < b[0]
	}
	return a[1] < b[1]
}

// smoothClosed resamples the closed hull to nP points uniformly in arc
// length with cubic splines, then low-pass filters the radius about the
// centroid with a least-squares truncated Fourier series.
func smoothClosed(hull []Vec2, nP int) []Vec2 {
	n := len(hull)

	// Periodic arc-length parametrization, with one wrap vertex on each
	// side so the spline slope is continuous across the seam.
	ext := make([]Vec2, 0, n+3)
	ext = append(ext, hull[n-1])
	ext = append(ext, hull...)
	ext = append(ext, hull[0], hull[1])
	t := make([]float64, len(ext))
	xs := make([]float64, len(ext))
	ys := make([]float64, len(ext))
	for i, p := range ext {
		if i > 0 {
			d := Vec2{p[0] - ext[i-1][0], p[1] - ext[i-1][1]}
			t[i] = t[i-1] + d.Norm()
		}
		xs[i], ys[i] = p[0], p[1]
	}
	spx := interpolate.NewSpline(t, xs)
	spy := interpolate.NewSpline(t, ys)

	t0, t1 := t[1], t[len(t)-2]
	dense := make([]Vec2, nP)
	var cx, cy float64
	for i := range dense {
		ti := t0 + (t1-t0)*float64(i)/float64(nP)
		dense[i] = Vec2{spx.Eval(ti), spy.Eval(ti)}
		cx += dense[i][0]
		cy += dense[i][1]
	}
	cx /= float64(nP)
	cy /= float64(nP)

	// Least-squares Fourier fit of r(theta), keeping a handful of
	// harmonics. The normal-equation solve keeps it dependency-light.
	const nHarm = 6
	theta := make([]float64, nP)
	r := make([]float64, nP)
	for i, p := range dense {
		theta[i] = math.Atan2(p[1]-cy, p[0]-cx)
		r[i] = math.Hypot(p[0]-cx, p[1]-cy)
	}
	nc := 1 + 2*nHarm
	A := mat64.NewDense(nP, nc, make([]float64, nP*nc))
	b := mat64.NewDense(nP, 1, r)
	for i := 0; i < nP; i++ {
		A.Set(i, 0, 1)
		for k := 1; k <= nHarm; k++ {
			A.Set(i, 2*k-1, math.Cos(float64(k)*theta[i]))
			A.Set(i, 2*k, math.Sin(float64(k)*theta[i]))
		}
	}
	ata := mat64.NewDense(nc, nc, make([]float64, nc*nc))
	atb := mat64.NewDense(nc, 1, make([]float64, nc))
	ata.Mul(A.T(), A)
	atb.Mul(A.T(), b)
	inv := mat64.NewDense(nc, nc, make([]float64, nc*nc))
	if err := inv.Inverse(ata); err != nil {
		// Singular normal equations mean the hull is degenerate enough
		// that smoothing is meaningless; fall back to the resampled hull.
		return dense
	}
	coeff := mat64.NewDense(nc, 1, make([]float64, nc))
	coeff.Mul(inv, atb)

	out := make([]Vec2, nP)
	for i := 0; i < nP; i++ {
		th := -math.Pi + 2*math.Pi*float64(i)/float64(nP)
		ri := coeff.At(0, 0)
		for k := 1; k <= nHarm; k++ {
			ri += coeff.At(2*k-1, 0)*math.Cos(float64(k)*th) +
				coeff.At(2*k, 0)*math.Sin(float64(k)*th)
		}
		out[i] = Vec2{cx + ri*math.Cos(th), cy + ri*math.Sin(th)}
	}
	return out
}
