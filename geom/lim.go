package geom

import (
	"fmt"
	"math"
)

// Lim is a canonical set of occurrence windows: the angular (Tor) or axial
// (Lin) sub-ranges over which a structure's solid exists. An empty Lim on a
// toroidal structure means the full revolution. Linear structures always
// carry at least one window.
//
// Toroidal windows are forward sweeps: a window {start, end} covers the arc
// reached from start by increasing angle, wrapping through the -pi/pi seam
// when end < start numerically. The wraparound interpretation is part of the
// contract, not an artifact.
type Lim struct {
	vtype   VType
	windows [][2]float64
	widths  []float64
}

// NormalizeLim canonicalizes a window list for the given sweep type and
// validates it. Toroidal start angles are wrapped into [-pi, pi); zero-width
// toroidal windows are rejected (they describe an empty solid), as is an
// empty window list on a linear structure. Normalization is idempotent:
// normalizing the canonical windows again returns them unchanged.
func NormalizeLim(vt VType, windows [][2]float64) (Lim, error) {
	l := Lim{vtype: vt}
	if len(windows) == 0 {
		if vt == Lin {
			return l, fmt.Errorf("geom: a Lin structure requires at least one axial window")
		}
		return l, nil
	}

	l.windows = make([][2]float64, len(windows))
	l.widths = make([]float64, len(windows))
	for i, w := range windows {
		switch vt {
		case Tor:
			width := wrap2Pi(w[1] - w[0])
			if width == 0 {
				return Lim{}, fmt.Errorf(
					"geom: toroidal window %d has zero angular width (empty solid)", i)
			}
			start := wrapAngle(w[0])
			l.windows[i] = [2]float64{start, start + width}
			l.widths[i] = width
		case Lin:
			if !(w[1] > w[0]) {
				return Lim{}, fmt.Errorf(
					"geom: axial window %d is not increasing: [%g, %g]", i, w[0], w[1])
			}
			l.windows[i] = w
			l.widths[i] = w[1] - w[0]
		}
	}
	return l, nil
}

// N returns the number of windows. Zero means a full axisymmetric solid.
func (l Lim) N() int { return len(l.windows) }

// Windows returns the canonical windows. The caller must not modify them.
func (l Lim) Windows() [][2]float64 { return l.windows }

// Width returns the forward sweep width of window i.
func (l Lim) Width(i int) float64 { return l.widths[i] }

// Full reports whether the solid is untruncated (toroidal with no windows).
func (l Lim) Full() bool { return len(l.windows) == 0 }

// Contains reports, per window, whether the sweep coordinate x (an angle for
// Tor, an axial position for Lin) falls inside. With no windows it returns
// the single answer true.
//
// Toroidal windows are half-open, [start, start+width): a point exactly on
// the seam between two adjacent windows belongs to the window that starts
// there, and only to it. Axial windows are closed on both ends.
func (l Lim) Contains(x float64) []bool {
	if len(l.windows) == 0 {
		return []bool{true}
	}
	out := make([]bool, len(l.windows))
	for i, w := range l.windows {
		switch l.vtype {
		case Tor:
			d := wrap2Pi(x - w[0])
			if 2*math.Pi-d < seamEps {
				d = 0
			}
			out[i] = d < l.widths[i]
		case Lin:
			out[i] = x >= w[0] && x <= w[1]
		}
	}
	return out
}

// ContainsAny reports whether x falls inside any window.
func (l Lim) ContainsAny(x float64) bool {
	for _, in := range l.Contains(x) {
		if in {
			return true
		}
	}
	return false
}
