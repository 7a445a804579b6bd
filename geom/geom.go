/*package geom models the 3D geometry of tomography diagnostics on toroidal
and linear fusion devices.

A device component is described by a closed 2D cross-section polygon swept
either around the vertical axis (Tor) or along the x axis (Lin), optionally
restricted to angular or axial sub-ranges. The package answers three kinds of
questions about such solids: whether points lie inside them, where rays
(lines of sight) enter and exit them, and how to discretize their edges,
cross-sections, surfaces and volumes into weighted point sets for numerical
integration.
*/
package geom

import (
	"fmt"
	"math"
)

// Vec is a three dimensional vector.
type Vec [3]float64

// Vec2 is a two dimensional vector, used for cross-section coordinates:
// (R, Z) for toroidal solids and (Y, Z) for linear ones.
type Vec2 [2]float64

// VType distinguishes solids of revolution from extruded solids.
type VType int

const (
	// Tor sweeps the cross-section around the vertical axis.
	Tor VType = iota
	// Lin extrudes the cross-section along the x axis.
	Lin
)

func (t VType) String() string {
	switch t {
	case Tor:
		return "Tor"
	case Lin:
		return "Lin"
	}
	return fmt.Sprintf("VType(%d)", int(t))
}

// Kind tags a Structure with its role in the device. The geometric behavior
// is identical across kinds; only the role in sight computations differs
// (PlasmaDomain is the reference solid, everything else obstructs).
type Kind int

const (
	Vessel Kind = iota
	PlasmaDomain
	PassiveStructure
	ActiveCoil
)

func (k Kind) String() string {
	switch k {
	case Vessel:
		return "Vessel"
	case PlasmaDomain:
		return "PlasmaDomain"
	case PassiveStructure:
		return "PassiveStructure"
	case ActiveCoil:
		return "ActiveCoil"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Frame labels the coordinate system of a point batch. Mislabeled frames are
// a caller error and are never silently corrected.
type Frame string

const (
	FrameXYZ   Frame = "(X,Y,Z)"
	FrameRZ    Frame = "(R,Z)"
	FrameYZ    Frame = "(Y,Z)"
	FrameRZPhi Frame = "(R,Z,Phi)"
)

// Norm returns the Euclidean norm of v.
func (v Vec) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Dot returns the inner product of v and w.
func (v Vec) Dot(w Vec) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

// Cross returns the cross product of v and w.
func (v Vec) Cross(w Vec) Vec {
	return Vec{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

// Add returns v + w.
func (v Vec) Add(w Vec) Vec {
	return Vec{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Sub returns v - w.
func (v Vec) Sub(w Vec) Vec {
	return Vec{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Scale returns a*v.
func (v Vec) Scale(a float64) Vec {
	return Vec{a * v[0], a * v[1], a * v[2]}
}

// Norm returns the Euclidean norm of v.
func (v Vec2) Norm() float64 {
	return math.Hypot(v[0], v[1])
}

// Sub returns v - w.
func (v Vec2) Sub(w Vec2) Vec2 {
	return Vec2{v[0] - w[0], v[1] - w[1]}
}

// CoordShift converts a point batch between the supported frames. The only
// conversions needed by the engine are between Cartesian and the native
// sweep coordinates, i.e. "(X,Y,Z)" <-> "(R,Z,Phi)".
func CoordShift(pts []Vec, in, out Frame) ([]Vec, error) {
	if in == out {
		res := make([]Vec, len(pts))
		copy(res, pts)
		return res, nil
	}
	res := make([]Vec, len(pts))
	switch {
	case in == FrameXYZ && out == FrameRZPhi:
		for i, p := range pts {
			res[i] = Vec{math.Hypot(p[0], p[1]), p[2], math.Atan2(p[1], p[0])}
		}
	case in == FrameRZPhi && out == FrameXYZ:
		for i, p := range pts {
			r, z, phi := p[0], p[1], p[2]
			res[i] = Vec{r * math.Cos(phi), r * math.Sin(phi), z}
		}
	default:
		return nil, fmt.Errorf("geom: unsupported coordinate shift %q -> %q", in, out)
	}
	return res, nil
}

const (
	// sampleMargin absorbs floating point overshoot when counting sampling
	// cells along a span.
	sampleMargin = 1e-9
	// seamEps guards angular window comparisons against boundary flicker.
	seamEps = 1e-12
)

func wrapAngle(x float64) float64 {
	// Wrap into [-pi, pi).
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}

func wrap2Pi(x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x
}
