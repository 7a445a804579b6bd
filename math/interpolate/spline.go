/*package interpolate provides natural cubic splines for resampling smooth
curves through tabulated points.
*/
package interpolate

import (
	"fmt"
)

// Spline is a 1D natural cubic spline through a table of (x, y) points with
// strictly increasing x.
type Spline struct {
	xs, ys []float64
	y2s    []float64

	// Per-interval cubic coefficients in the local variable x - xs[i].
	a, b, c, d []float64

	// Estimated point spacing, used to guess the interval before falling
	// back to binary search.
	dx float64
}

// NewSpline creates a spline from a table of x and y values. x must be
// strictly increasing and the table must hold at least two points.
func NewSpline(xs, ys []float64) *Spline {
	if len(xs) != len(ys) {
		panic(fmt.Sprintf("interpolate: table has len(xs) = %d but len(ys) = %d",
			len(xs), len(ys)))
	}
	if len(xs) < 2 {
		panic(fmt.Sprintf("interpolate: table has length %d", len(xs)))
	}

	sp := &Spline{
		y2s: make([]float64, len(xs)),
		a:   make([]float64, len(xs)-1),
		b:   make([]float64, len(xs)-1),
		c:   make([]float64, len(xs)-1),
		d:   make([]float64, len(xs)-1),
	}
	sp.Init(xs, ys)
	return sp
}

// Init reinitializes the spline with a new table of the same length without
// allocating.
func (sp *Spline) Init(xs, ys []float64) {
	if sp.xs != nil && len(xs) != len(sp.xs) {
		panic("interpolate: Init length differs from the original table")
	}
	for i := 0; i+1 < len(xs); i++ {
		if xs[i+1] <= xs[i] {
			panic("interpolate: table x values are not strictly increasing")
		}
	}
	sp.xs, sp.ys = xs, ys
	sp.dx = (xs[len(xs)-1] - xs[0]) / float64(len(xs)-1)
	sp.solveY2s()
	sp.fillCoeffs()
}

// Eval computes the spline value at x. x must lie within the table range;
// the exact endpoints return the tabulated values.
func (sp *Spline) Eval(x float64) float64 {
	n := len(sp.xs)
	if x < sp.xs[0] || x > sp.xs[n-1] {
		panic(fmt.Sprintf("interpolate: point %g outside table range [%g, %g]",
			x, sp.xs[0], sp.xs[n-1]))
	}
	if x == sp.xs[n-1] {
		return sp.ys[n-1]
	}
	i := sp.interval(x)
	t := x - sp.xs[i]
	return ((sp.a[i]*t+sp.b[i])*t+sp.c[i])*t + sp.d[i]
}

// EvalAll evaluates the spline at every point of xs, into out if given.
func (sp *Spline) EvalAll(xs []float64, out ...[]float64) []float64 {
	if len(out) == 0 {
		out = [][]float64{make([]float64, len(xs))}
	}
	for i, x := range xs {
		out[0][i] = sp.Eval(x)
	}
	return out[0]
}

// Deriv computes the derivative of the given order at x. Orders above three
// are identically zero.
func (sp *Spline) Deriv(x float64, order int) float64 {
	if x < sp.xs[0] || x > sp.xs[len(sp.xs)-1] {
		panic(fmt.Sprintf("interpolate: point %g outside table range [%g, %g]",
			x, sp.xs[0], sp.xs[len(sp.xs)-1]))
	}
	i := sp.interval(x)
	t := x - sp.xs[i]
	switch order {
	case 0:
		return ((sp.a[i]*t+sp.b[i])*t+sp.c[i])*t + sp.d[i]
	case 1:
		return (3*sp.a[i]*t+2*sp.b[i])*t + sp.c[i]
	case 2:
		return 6*sp.a[i]*t + 2*sp.b[i]
	case 3:
		return 6 * sp.a[i]
	default:
		return 0
	}
}

// Integrate integrates the spline from lo to hi. Both bounds must lie
// within the table range.
func (sp *Spline) Integrate(lo, hi float64) float64 {
	if lo > hi {
		return -sp.Integrate(hi, lo)
	}
	if lo < sp.xs[0] || hi > sp.xs[len(sp.xs)-1] {
		panic(fmt.Sprintf("interpolate: bounds [%g, %g] outside table range [%g, %g]",
			lo, hi, sp.xs[0], sp.xs[len(sp.xs)-1]))
	}

	iLo, iHi := sp.interval(lo), sp.interval(hi)
	if iLo == iHi {
		return sp.integInterval(iLo, lo, hi)
	}
	sum := sp.integInterval(iLo, lo, sp.xs[iLo+1]) +
		sp.integInterval(iHi, sp.xs[iHi], hi)
	for i := iLo + 1; i < iHi; i++ {
		sum += sp.integInterval(i, sp.xs[i], sp.xs[i+1])
	}
	return sum
}

func (sp *Spline) integInterval(i int, lo, hi float64) float64 {
	t := hi - lo
	return ((sp.a[i]*t/4+sp.b[i]/3)*t+sp.c[i]/2)*t*t + sp.d[i]*t
}

// interval returns the index of the interval [xs[i], xs[i+1]] containing x,
// guessing from the mean spacing first.
func (sp *Spline) interval(x float64) int {
	guess := int((x - sp.xs[0]) / sp.dx)
	if guess >= 0 && guess < len(sp.xs)-1 &&
		sp.xs[guess] <= x && x <= sp.xs[guess+1] {
		return guess
	}

	lo, hi := 0, len(sp.xs)-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if x >= sp.xs[mid] {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// solveY2s computes the second derivative at every table point with natural
// boundary conditions.
func (sp *Spline) solveY2s() {
	n := len(sp.xs)
	sp.y2s[0], sp.y2s[n-1] = 0, 0
	if n == 2 {
		return
	}

	as, bs := make([]float64, n-2), make([]float64, n-2)
	cs, rs := make([]float64, n-2), make([]float64, n-2)
	xs, ys := sp.xs, sp.ys
	for i := range rs {
		j := i + 1
		as[i] = (xs[j] - xs[j-1]) / 6
		bs[i] = (xs[j+1] - xs[j-1]) / 3
		cs[i] = (xs[j+1] - xs[j]) / 6
		rs[i] = (ys[j+1]-ys[j])/(xs[j+1]-xs[j]) -
			(ys[j]-ys[j-1])/(xs[j]-xs[j-1])
	}
	TriDiagAt(as, bs, cs, rs, sp.y2s[1:n-1])
}

func (sp *Spline) fillCoeffs() {
	xs, ys, y2s := sp.xs, sp.ys, sp.y2s
	for i := range sp.a {
		dx := xs[i+1] - xs[i]
		sp.a[i] = (y2s[i+1] - y2s[i]) / (6 * dx)
		sp.b[i] = y2s[i] / 2
		sp.c[i] = (ys[i+1]-ys[i])/dx - dx*(y2s[i]/3+y2s[i+1]/6)
		sp.d[i] = ys[i]
	}
}

// TriDiagAt solves the tridiagonal system
//
// | b0 c0 ..    |   | out0 |   | r0 |
// | a1 b1 c1 .. |   | out1 |   | r1 |
// | ..          | * | ..   | = | .. |
// | ..    an bn |   | outn |   | rn |
//
// for out0 .. outn in place in the given slice.
func TriDiagAt(as, bs, cs, rs, out []float64) {
	if len(as) != len(bs) || len(as) != len(cs) ||
		len(as) != len(rs) || len(as) != len(out) {
		panic("interpolate: TriDiagAt argument lengths are unequal")
	}

	tmp := make([]float64, len(as))
	beta := bs[0]
	if beta == 0 {
		panic("interpolate: TriDiagAt cannot solve the given system")
	}
	out[0] = rs[0] / beta

	for i := 1; i < len(out); i++ {
		tmp[i] = cs[i-1] / beta
		beta = bs[i] - as[i]*tmp[i]
		if beta == 0 {
			panic("interpolate: TriDiagAt cannot solve the given system")
		}
		out[i] = (rs[i] - as[i]*out[i-1]) / beta
	}
	for i := len(out) - 2; i >= 0; i-- {
		out[i] -= tmp[i+1] * out[i+1]
	}
}

// TriDiag solves the same system as TriDiagAt into a fresh slice.
func TriDiag(as, bs, cs, rs []float64) []float64 {
	us := make([]float64, len(as))
	TriDiagAt(as, bs, cs, rs, us)
	return us
}
