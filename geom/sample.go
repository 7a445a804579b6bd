package geom

import (
	"fmt"
	"math"
	"sort"
)

// ResMode selects how a sampling resolution is interpreted.
type ResMode int

const (
	// ResAbs treats the resolution as an absolute distance.
	ResAbs ResMode = iota
	// ResRel treats it as a fraction: res = 0.1 divides each element
	// (segment, span, sweep) into 10 cells.
	ResRel
)

// SampleDomain optionally restricts sampling to sub-ranges of the native
// coordinates: P1 and P2 bound the cross-section axes, Sweep bounds the
// toroidal angle or axial position. nil fields leave an axis unrestricted.
// Domain filtering selects indices, it never renumbers them, so a domain
// restriction composes with index replay.
type SampleDomain struct {
	P1, P2, Sweep *[2]float64
}

func inRange(x float64, r *[2]float64) bool {
	return r == nil || (x >= r[0] && x <= r[1])
}

// nCells returns the number of equal cells a span of the given length is cut
// into. The margin keeps a span sitting within float error of an integer
// multiple of res from gaining one extra cell.
func nCells(span, res float64, mode ResMode) int {
	x := span / res
	if mode == ResRel {
		x = 1 / res
	}
	n := int(math.Ceil(x - sampleMargin))
	if n < 1 {
		n = 1
	}
	return n
}

func checkRes(res float64) error {
	if !(res > 0) {
		return fmt.Errorf("geom: sampling resolution must be positive, got %g", res)
	}
	return nil
}

// SampleEdge discretizes the polygon edge at the given resolution, placing
// cell-centered points along each segment, optionally offset inward by
// offsetIn along the segment normal. It returns the points, the edge length
// carried by each point, and the global point indices.
//
// Sampling is replayable: calling again with the same resolution and the
// returned indices in ind reproduces identical points and lengths; dom is
// ignored during replay.
func (s *Structure) SampleEdge(
	res float64, mode ResMode, dom SampleDomain, offsetIn float64, ind []int,
) (pts []Vec2, dl []float64, indOut []int, err error) {
	if err := checkRes(res); err != nil {
		return nil, nil, nil, err
	}
	counts, bases, total := s.edgeLayout(res, mode)

	at := func(g int) (Vec2, float64) {
		i := cellOf(bases, g)
		j := g - bases[i]
		t := (float64(j) + 0.5) / float64(counts[i])
		v := s.poly.Vect()[i]
		a := s.poly.Closed()[i]
		vin := s.poly.VIn()[i]
		p := Vec2{
			a[0] + t*v[0] + offsetIn*vin[0],
			a[1] + t*v[1] + offsetIn*vin[1],
		}
		return p, v.Norm() / float64(counts[i])
	}

	if ind != nil {
		return replay2(ind, total, at)
	}
	for g := 0; g < total; g++ {
		p, d := at(g)
		if !inRange(p[0], dom.P1) || !inRange(p[1], dom.P2) {
			continue
		}
		pts = append(pts, p)
		dl = append(dl, d)
		indOut = append(indOut, g)
	}
	return pts, dl, indOut, nil
}

func (s *Structure) edgeLayout(res float64, mode ResMode) (counts, bases []int, total int) {
	vect := s.poly.Vect()
	counts = make([]int, len(vect))
	bases = make([]int, len(vect))
	for i, v := range vect {
		bases[i] = total
		counts[i] = nCells(v.Norm(), res, mode)
		total += counts[i]
	}
	return counts, bases, total
}

// SampleCross discretizes the cross-section on a regular cell-centered grid
// over the bounding box, keeping the cells whose centers fall inside the
// polygon. Each point carries the constant area element resEff[0]*resEff[1].
// Index replay works as for SampleEdge.
func (s *Structure) SampleCross(
	res float64, mode ResMode, dom SampleDomain, ind []int,
) (pts []Vec2, dS []float64, indOut []int, resEff [2]float64, err error) {
	if err := checkRes(res); err != nil {
		return nil, nil, nil, resEff, err
	}
	g := s.crossGrid(res, mode)
	resEff = [2]float64{g.d1, g.d2}
	area := g.d1 * g.d2

	if ind != nil {
		pts, dS, indOut, err = replay2(ind, g.n1*g.n2, func(gi int) (Vec2, float64) {
			return g.at(gi), area
		})
		for _, p := range pts {
			if !s.poly.Contains(p) {
				return nil, nil, nil, resEff,
					fmt.Errorf("geom: replay index maps outside the cross-section")
			}
		}
		return pts, dS, indOut, resEff, err
	}

	for gi := 0; gi < g.n1*g.n2; gi++ {
		p := g.at(gi)
		if !s.poly.Contains(p) ||
			!inRange(p[0], dom.P1) || !inRange(p[1], dom.P2) {
			continue
		}
		pts = append(pts, p)
		dS = append(dS, area)
		indOut = append(indOut, gi)
	}
	return pts, dS, indOut, resEff, nil
}

type crossGrid struct {
	min1, min2 float64
	d1, d2     float64
	n1, n2     int
}

func (s *Structure) crossGrid(res float64, mode ResMode) crossGrid {
	p := s.poly
	min1, max1 := p.P1Min()[0], p.P1Max()[0]
	min2, max2 := p.P2Min()[1], p.P2Max()[1]
	n1 := nCells(max1-min1, res, mode)
	n2 := nCells(max2-min2, res, mode)
	return crossGrid{
		min1: min1, min2: min2,
		d1: (max1 - min1) / float64(n1), d2: (max2 - min2) / float64(n2),
		n1: n1, n2: n2,
	}
}

func (g crossGrid) at(gi int) Vec2 {
	i1, i2 := gi%g.n1, gi/g.n1
	return Vec2{
		g.min1 + (float64(i1)+0.5)*g.d1,
		g.min2 + (float64(i2)+0.5)*g.d2,
	}
}

// sweepWindows returns the occurrence windows, defaulting to the full
// revolution for an untruncated toroidal solid.
func (s *Structure) sweepWindows() [][2]float64 {
	if s.lim.Full() {
		return [][2]float64{{-math.Pi, math.Pi}}
	}
	return s.lim.Windows()
}

// sweepCells returns the number of sweep cells for one source point. For
// absolute toroidal resolutions the arc length at the point's major radius
// is what gets divided, so the sweep is finer at larger radii.
func (s *Structure) sweepCells(width, r, res float64, mode ResMode) int {
	span := width
	if s.vtype == Tor {
		span = width * r
	}
	return nCells(span, res, mode)
}

// SampleSurface discretizes the swept lateral surface: the edge sampling
// extended along the toroidal angle or extrusion axis. Each point carries
// the physical area element, dl * R * dphi for toroidal solids and dl * dx
// for linear ones. Points are returned in the out frame: FrameXYZ, or
// FrameRZPhi for toroidal solids. Index replay works as for SampleEdge.
func (s *Structure) SampleSurface(
	resL, resSweep float64, mode ResMode, dom SampleDomain,
	offsetIn float64, out Frame, ind []int,
) (pts []Vec, dA []float64, indOut []int, err error) {
	if err := checkRes(resL); err != nil {
		return nil, nil, nil, err
	}
	if err := checkRes(resSweep); err != nil {
		return nil, nil, nil, err
	}
	if err := s.checkOutFrame(out); err != nil {
		return nil, nil, nil, err
	}

	edgePts, edgeDl, _, err := s.SampleEdge(resL, mode, SampleDomain{}, offsetIn, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return s.sweepSample(edgePts, edgeDl, resSweep, mode, dom, out, ind)
}

// SampleVolume discretizes the swept volume: the cross-section sampling
// extended along the sweep, with dV = dS * R * dphi (Tor) or dS * dx (Lin).
// Index replay works as for SampleEdge.
func (s *Structure) SampleVolume(
	resCross, resSweep float64, mode ResMode, dom SampleDomain,
	out Frame, ind []int,
) (pts []Vec, dV []float64, indOut []int, err error) {
	if err := checkRes(resCross); err != nil {
		return nil, nil, nil, err
	}
	if err := checkRes(resSweep); err != nil {
		return nil, nil, nil, err
	}
	if err := s.checkOutFrame(out); err != nil {
		return nil, nil, nil, err
	}

	crossPts, crossDS, _, _, err := s.SampleCross(resCross, mode, SampleDomain{}, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	return s.sweepSample(crossPts, crossDS, resSweep, mode, dom, out, ind)
}

func (s *Structure) checkOutFrame(out Frame) error {
	if out == FrameXYZ || (out == FrameRZPhi && s.vtype == Tor) {
		return nil
	}
	return fmt.Errorf("geom: output frame %q is not valid for a %v structure", out, s.vtype)
}

// sweepSample extends a cross-section point set (with its per-point measure)
// along the sweep windows. The global index runs window-major, then source
// point, then sweep cell, with bases derived only from the resolutions, so
// replay by index is exact.
func (s *Structure) sweepSample(
	src []Vec2, srcMeasure []float64,
	resSweep float64, mode ResMode, dom SampleDomain,
	out Frame, ind []int,
) (pts []Vec, measure []float64, indOut []int, err error) {
	wins := s.sweepWindows()
	bases := make([]int, 0, len(wins)*len(src))
	counts := make([]int, 0, len(wins)*len(src))
	total := 0
	for w := range wins {
		width := wins[w][1] - wins[w][0]
		for j := range src {
			bases = append(bases, total)
			n := s.sweepCells(width, src[j][0], resSweep, mode)
			counts = append(counts, n)
			total += n
		}
	}

	at := func(g int) (Vec, float64) {
		slot := cellOf(bases, g)
		w, j := slot/len(src), slot%len(src)
		t := g - bases[slot]
		width := wins[w][1] - wins[w][0]
		dSweep := width / float64(counts[slot])
		sw := wins[w][0] + (float64(t)+0.5)*dSweep
		p2 := src[j]
		m := srcMeasure[j]
		var p Vec
		if s.vtype == Tor {
			m *= p2[0] * dSweep
			if out == FrameRZPhi {
				p = Vec{p2[0], p2[1], sw}
			} else {
				p = Vec{p2[0] * math.Cos(sw), p2[0] * math.Sin(sw), p2[1]}
			}
		} else {
			m *= dSweep
			p = Vec{sw, p2[0], p2[1]}
		}
		return p, m
	}

	if ind != nil {
		return replay3(ind, total, at)
	}
	for g := 0; g < total; g++ {
		slot := cellOf(bases, g)
		p2 := src[slot%len(src)]
		if !inRange(p2[0], dom.P1) || !inRange(p2[1], dom.P2) {
			continue
		}
		p, m := at(g)
		if dom.Sweep != nil && !inRange(sweepCoord(p, s.vtype, out), dom.Sweep) {
			continue
		}
		pts = append(pts, p)
		measure = append(measure, m)
		indOut = append(indOut, g)
	}
	return pts, measure, indOut, nil
}

func sweepCoord(p Vec, vt VType, out Frame) float64 {
	if vt == Lin {
		return p[0]
	}
	if out == FrameRZPhi {
		return p[2]
	}
	return math.Atan2(p[1], p[0])
}

// cellOf returns the index of the last base <= g.
func cellOf(bases []int, g int) int {
	return sort.Search(len(bases), func(i int) bool { return bases[i] > g }) - 1
}

func replay2(
	ind []int, total int, at func(int) (Vec2, float64),
) (pts []Vec2, m []float64, indOut []int, err error) {
	pts = make([]Vec2, len(ind))
	m = make([]float64, len(ind))
	for i, g := range ind {
		if g < 0 || g >= total {
			return nil, nil, nil, fmt.Errorf(
				"geom: replay index %d out of range [0, %d)", g, total)
		}
		pts[i], m[i] = at(g)
	}
	indOut = append(indOut, ind...)
	return pts, m, indOut, nil
}

func replay3(
	ind []int, total int, at func(int) (Vec, float64),
) (pts []Vec, m []float64, indOut []int, err error) {
	pts = make([]Vec, len(ind))
	m = make([]float64, len(ind))
	for i, g := range ind {
		if g < 0 || g >= total {
			return nil, nil, nil, fmt.Errorf(
				"geom: replay index %d out of range [0, %d)", g, total)
		}
		pts[i], m[i] = at(g)
	}
	indOut = append(indOut, ind...)
	return pts, m, indOut, nil
}
