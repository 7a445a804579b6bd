package geom

import (
	"fmt"
	"math"

	"github.com/gonum/floats"
)

// Polygon is a closed 2D cross-section contour with its derived geometry.
// The stored contour is open (the closing vertex is implicit); Closed()
// exposes a copy with the first vertex repeated for edge walking. A Polygon
// is immutable once built.
type Polygon struct {
	pts    []Vec2
	closed []Vec2
	cw     bool

	vect []Vec2 // per-segment vector, pts[i+1]-pts[i]
	vin  []Vec2 // per-segment unit inward normal

	p1Min, p1Max Vec2 // vertices extremal in the first coordinate
	p2Min, p2Max Vec2 // vertices extremal in the second coordinate

	baryP Vec2 // plain vertex average
	baryL Vec2 // perimeter-weighted centroid
	baryS Vec2 // surface centroid
	baryV Vec2 // centroid of the swept toroidal volume

	surf   float64 // cross-section area
	volAng float64 // toroidal volume per radian, integral of R dR dZ
}

// NewPolygon builds a polygon from raw coordinates. The layout may be either
// two rows of N coordinates or N rows of two coordinates; it is detected and
// transposed automatically. If the contour is explicitly closed the repeated
// vertex is dropped. The contour is stored clockwise if cw is true,
// counter-clockwise otherwise, reversing the input order when needed.
func NewPolygon(raw [][]float64, cw bool) (*Polygon, error) {
	pts, err := toPoints(raw)
	if err != nil {
		return nil, err
	}
	return NewPolygonPts(pts, cw)
}

// NewPolygonPts builds a polygon directly from a vertex list.
func NewPolygonPts(pts []Vec2, cw bool) (*Polygon, error) {
	pts = dropClosing(pts)
	if len(pts) < 3 {
		return nil, fmt.Errorf("geom: polygon needs at least 3 distinct vertices, got %d", len(pts))
	}
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		if p == q {
			return nil, fmt.Errorf("geom: polygon has duplicate consecutive vertices at index %d", i)
		}
	}

	area := signedArea(pts)
	if area == 0 {
		return nil, fmt.Errorf("geom: polygon is degenerate (zero area)")
	}
	// Shoelace sign is positive for counter-clockwise contours.
	if (area < 0) != cw {
		rev := make([]Vec2, len(pts))
		for i := range pts {
			rev[i] = pts[len(pts)-1-i]
		}
		pts = rev
		area = -area
	}

	p := &Polygon{pts: pts, cw: cw, surf: math.Abs(area)}
	p.closed = append(append([]Vec2{}, pts...), pts[0])
	p.computeVects()
	p.computeExtrema()
	p.computeBarycenters(area)
	return p, nil
}

func toPoints(raw [][]float64) ([]Vec2, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("geom: empty polygon coordinates")
	}
	if len(raw) == 2 && len(raw[0]) != 2 {
		// (2,N) layout.
		if len(raw[0]) != len(raw[1]) {
			return nil, fmt.Errorf("geom: coordinate rows have lengths %d and %d",
				len(raw[0]), len(raw[1]))
		}
		pts := make([]Vec2, len(raw[0]))
		for i := range pts {
			pts[i] = Vec2{raw[0][i], raw[1][i]}
		}
		return pts, nil
	}
	// (N,2) layout.
	pts := make([]Vec2, len(raw))
	for i, row := range raw {
		if len(row) != 2 {
			return nil, fmt.Errorf("geom: polygon row %d has %d coordinates, want 2", i, len(row))
		}
		pts[i] = Vec2{row[0], row[1]}
	}
	return pts, nil
}

func dropClosing(pts []Vec2) []Vec2 {
	for len(pts) > 1 && pts[0] == pts[len(pts)-1] {
		pts = pts[:len(pts)-1]
	}
	return pts
}

func signedArea(pts []Vec2) float64 {
	sum := 0.0
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		sum += p[0]*q[1] - q[0]*p[1]
	}
	return sum / 2
}

func (p *Polygon) computeVects() {
	n := len(p.pts)
	p.vect = make([]Vec2, n)
	p.vin = make([]Vec2, n)
	for i := 0; i < n; i++ {
		d := p.closed[i+1].Sub(p.closed[i])
		p.vect[i] = d
		norm := d.Norm()
		// Interior lies to the left of a counter-clockwise walk.
		if p.cw {
			p.vin[i] = Vec2{d[1] / norm, -d[0] / norm}
		} else {
			p.vin[i] = Vec2{-d[1] / norm, d[0] / norm}
		}
	}

	// Validate the sign against the direction toward the surface centroid.
	// The aggregate test is robust against non-convex contours.
	bary := centroid(p.pts)
	sum := 0.0
	for i := 0; i < n; i++ {
		mid := Vec2{
			(p.closed[i][0] + p.closed[i+1][0]) / 2,
			(p.closed[i][1] + p.closed[i+1][1]) / 2,
		}
		to := bary.Sub(mid)
		sum += p.vin[i][0]*to[0] + p.vin[i][1]*to[1]
	}
	if sum < 0 {
		for i := range p.vin {
			p.vin[i] = Vec2{-p.vin[i][0], -p.vin[i][1]}
		}
	}
}

func centroid(pts []Vec2) Vec2 {
	var a, cx, cy float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		w := p[0]*q[1] - q[0]*p[1]
		a += w
		cx += (p[0] + q[0]) * w
		cy += (p[1] + q[1]) * w
	}
	return Vec2{cx / (3 * a), cy / (3 * a)}
}

func (p *Polygon) computeExtrema() {
	n := len(p.pts)
	xs, ys := make([]float64, n), make([]float64, n)
	for i, pt := range p.pts {
		xs[i], ys[i] = pt[0], pt[1]
	}
	p.p1Min = p.pts[floats.MinIdx(xs)]
	p.p1Max = p.pts[floats.MaxIdx(xs)]
	p.p2Min = p.pts[floats.MinIdx(ys)]
	p.p2Max = p.pts[floats.MaxIdx(ys)]
}

func (p *Polygon) computeBarycenters(signed float64) {
	n := len(p.pts)

	var sx, sy float64
	for _, pt := range p.pts {
		sx += pt[0]
		sy += pt[1]
	}
	p.baryP = Vec2{sx / float64(n), sy / float64(n)}

	var wl, lx, ly float64
	for i := 0; i < n; i++ {
		l := p.vect[i].Norm()
		wl += l
		lx += l * (p.closed[i][0] + p.closed[i+1][0]) / 2
		ly += l * (p.closed[i][1] + p.closed[i+1][1]) / 2
	}
	p.baryL = Vec2{lx / wl, ly / wl}

	p.baryS = centroid(p.pts)

	// Green's theorem line integrals over the closed contour, exact for the
	// polygon: volAng = II R dR dZ, and the R- and Z-moments of the same
	// integrand for the volume centroid.
	var vol, mR, mZ float64
	for i := 0; i < n; i++ {
		r0, z0 := p.closed[i][0], p.closed[i][1]
		r1, z1 := p.closed[i+1][0], p.closed[i+1][1]
		dz := z1 - z0
		dr := r1 - r0
		vol += dz * (r0*r0 + r0*r1 + r1*r1) / 6
		mR += dz * (r0*r0*r0 + r0*r0*r1 + r0*r1*r1 + r1*r1*r1) / 12
		mZ += dz / 2 * (z0*r0*r0 +
			(2*z0*r0*dr+dz*r0*r0)/2 +
			(z0*dr*dr+2*r0*dr*dz)/3 +
			dz*dr*dr/4)
	}
	p.volAng = math.Abs(vol)
	if vol != 0 {
		p.baryV = Vec2{mR / vol, mZ / vol}
	}
}

// NP returns the number of stored (open contour) vertices.
func (p *Polygon) NP() int { return len(p.pts) }

// Points returns the open, oriented contour. The caller must not modify it.
func (p *Polygon) Points() []Vec2 { return p.pts }

// Closed returns the contour with the first vertex repeated at the end.
// The caller must not modify it.
func (p *Polygon) Closed() []Vec2 { return p.closed }

// Clockwise reports the stored orientation.
func (p *Polygon) Clockwise() bool { return p.cw }

// Vect returns the per-segment vectors of the closed contour walk.
func (p *Polygon) Vect() []Vec2 { return p.vect }

// VIn returns the per-segment unit inward normals.
func (p *Polygon) VIn() []Vec2 { return p.vin }

// P1Min returns the vertex with the smallest first coordinate. P1Max, P2Min
// and P2Max are analogous.
func (p *Polygon) P1Min() Vec2 { return p.p1Min }
func (p *Polygon) P1Max() Vec2 { return p.p1Max }
func (p *Polygon) P2Min() Vec2 { return p.p2Min }
func (p *Polygon) P2Max() Vec2 { return p.p2Max }

// BaryP returns the plain average of the vertices.
func (p *Polygon) BaryP() Vec2 { return p.baryP }

// BaryL returns the perimeter-weighted centroid.
func (p *Polygon) BaryL() Vec2 { return p.baryL }

// BaryS returns the surface centroid.
func (p *Polygon) BaryS() Vec2 { return p.baryS }

// BaryV returns the centroid of the solid of revolution swept by the
// cross-section. Only meaningful for toroidal structures.
func (p *Polygon) BaryV() Vec2 { return p.baryV }

// Surf returns the cross-section area.
func (p *Polygon) Surf() float64 { return p.surf }

// VolAng returns the volume swept per radian of revolution,
// i.e. the integral of R over the cross-section.
func (p *Polygon) VolAng() float64 { return p.volAng }

// Contains runs a half-open ray-casting test of pt against the contour.
// An edge crossing is counted when the edge straddles the horizontal line
// through pt with a half-open vertical test, so each vertex seam is counted
// exactly once and a point on a shared boundary belongs to exactly one of
// two adjacent polygons. The rule is deterministic; callers needing points
// strictly inside should offset them along VIn.
func (p *Polygon) Contains(pt Vec2) bool {
	in := false
	for i := 0; i < len(p.pts); i++ {
		a, b := p.closed[i], p.closed[i+1]
		if (a[1] > pt[1]) != (b[1] > pt[1]) {
			x := a[0] + (pt[1]-a[1])/(b[1]-a[1])*(b[0]-a[0])
			if pt[0] < x {
				in = !in
			}
		}
	}
	return in
}

func minR(pts []Vec2) float64 {
	m := pts[0][0]
	for _, p := range pts[1:] {
		if p[0] < m {
			m = p[0]
		}
	}
	return m
}
