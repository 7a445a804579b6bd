package geom

import (
	"fmt"
	"math"
	"runtime"
)

// IsInside classifies a batch of query points against the structure's solid.
// One boolean row is returned per occurrence window (a single row when the
// solid has no windows).
//
// Accepted frames:
//   - FrameXYZ: full Cartesian points; both the cross-section test and the
//     window test apply.
//   - FrameRZ (Tor) or FrameYZ (Lin): native cross-section coordinates in
//     the first two components (the third is ignored). The sweep coordinate
//     is unknown, so only the cross-section test applies; this is exactly
//     the rotational (translational) invariance of the solid.
func (s *Structure) IsInside(pts []Vec, frame Frame) ([][]bool, error) {
	native, sweep, err := s.toNative(pts, frame)
	if err != nil {
		return nil, err
	}

	nRows := s.lim.N()
	if nRows == 0 || sweep == nil {
		nRows = 1
	}
	out := make([][]bool, nRows)
	for r := range out {
		out[r] = make([]bool, len(pts))
	}

	workers := runtime.NumCPU()
	if workers > len(pts) {
		workers = 1
	}
	done := make(chan int, workers)
	for id := 0; id < workers-1; id++ {
		go s.chanInside(native, sweep, out, id, workers, done)
	}
	s.chanInside(native, sweep, out, workers-1, workers, done)
	for i := 0; i < workers; i++ {
		<-done
	}
	return out, nil
}

func (s *Structure) chanInside(
	native []Vec2, sweep []float64, out [][]bool, id, workers int, done chan<- int,
) {
	for i := id; i < len(native); i += workers {
		in2D := s.poly.Contains(native[i])
		if sweep == nil || s.lim.Full() {
			out[0][i] = in2D
			continue
		}
		if !in2D {
			continue
		}
		for r, ok := range s.lim.Contains(sweep[i]) {
			out[r][i] = ok
		}
	}
	done <- id
}

// toNative projects a labeled point batch onto the cross-section plane.
// sweep is nil when the input frame carries no sweep coordinate.
func (s *Structure) toNative(pts []Vec, frame Frame) (native []Vec2, sweep []float64, err error) {
	switch {
	case frame == FrameXYZ:
		native = make([]Vec2, len(pts))
		sweep = make([]float64, len(pts))
		for i, p := range pts {
			if s.vtype == Tor {
				native[i] = Vec2{math.Hypot(p[0], p[1]), p[2]}
				sweep[i] = math.Atan2(p[1], p[0])
			} else {
				native[i] = Vec2{p[1], p[2]}
				sweep[i] = p[0]
			}
		}
		return native, sweep, nil
	case frame == FrameRZ && s.vtype == Tor,
		frame == FrameYZ && s.vtype == Lin:
		native = make([]Vec2, len(pts))
		for i, p := range pts {
			native[i] = Vec2{p[0], p[1]}
		}
		return native, nil, nil
	}
	return nil, nil, fmt.Errorf("geom: frame %q is not valid for a %v structure", frame, s.vtype)
}

// Pts2 packs native 2D points into a Vec batch for IsInside.
func Pts2(ps []Vec2) []Vec {
	out := make([]Vec, len(ps))
	for i, p := range ps {
		out[i] = Vec{p[0], p[1], 0}
	}
	return out
}
