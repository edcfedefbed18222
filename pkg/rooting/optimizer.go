package rooting

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/matzehuels/fastroot/pkg/qp"
)

// singularTol is the relative threshold below which the Hessian determinant
// of a [Quadratic] is treated as zero.
const singularTol = 1e-12

// Quadratic is the two-variable objective
//
//	f(x, mu) = A·x² + B·mu² + C·x·mu + D·x + E·mu + F
//
// minimized over 0 <= x <= L, mu >= 0.
type Quadratic struct {
	A, B, C, D, E, F float64
}

// Eval returns f(x, mu).
func (q Quadratic) Eval(x, mu float64) float64 {
	return q.A*x*x + q.B*mu*mu + q.C*x*mu + q.D*x + q.E*mu + q.F
}

// Stationary returns the unconstrained minimizer. ok is false when the
// Hessian is singular and no unique stationary point exists.
func (q Quadratic) Stationary() (x, mu float64, ok bool) {
	det := 4*q.A*q.B - q.C*q.C
	if q.A <= 0 || q.B <= 0 || det <= singularTol*4*q.A*q.B {
		return 0, 0, false
	}
	x = (q.C*q.E - 2*q.B*q.D) / det
	mu = (q.C*q.D - 2*q.A*q.E) / det
	return x, mu, true
}

// ActiveSet minimizes f over the boundary of the feasible region by
// enumerating the faces x = 0, x = l and mu = 0. Each face is a
// one-dimensional quadratic clamped to its own segment, and the face with
// the lowest value wins, the earlier face on ties. When the unconstrained
// minimizer is infeasible the constrained minimizer lies on one of these
// faces.
func (q Quadratic) ActiveSet(l float64) (x, mu float64) {
	type point struct{ x, mu float64 }
	faces := [3]point{
		{0, q.muAt(0)},
		{l, q.muAt(l)},
		{q.xAtZeroMu(l), 0},
	}
	best := faces[0]
	bestF := q.Eval(best.x, best.mu)
	for _, p := range faces[1:] {
		if f := q.Eval(p.x, p.mu); f < bestF {
			best, bestF = p, f
		}
	}
	return best.x, best.mu
}

// muAt returns the best non-negative mu for fixed x.
func (q Quadratic) muAt(x float64) float64 {
	if q.B <= 0 {
		return 0
	}
	return math.Max(-(q.C*x+q.E)/(2*q.B), 0)
}

// xAtZeroMu returns the best x in [0, l] for mu = 0.
func (q Quadratic) xAtZeroMu(l float64) float64 {
	if q.A <= 0 {
		if q.D < 0 {
			return l
		}
		return 0
	}
	return clamp(-q.D/(2*q.A), 0, l)
}

// Problem expresses the minimization as a QP in z = (x, mu):
// min ½zᵀPz + qᵀz subject to -x <= 0, -mu <= 0, x <= l. The QP objective
// plus F equals f.
func (q Quadratic) Problem(l float64) qp.Problem {
	return qp.Problem{
		P: mat.NewSymDense(2, []float64{2 * q.A, q.C, q.C, 2 * q.B}),
		Q: mat.NewVecDense(2, []float64{q.D, q.E}),
		G: mat.NewDense(3, 2, []float64{
			-1, 0,
			0, -1,
			1, 0,
		}),
		H: mat.NewVecDense(3, []float64{0, 0, l}),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
