package qp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultMaxIterations bounds the number of working-set changes when the
// caller leaves Solver.MaxIterations unset.
const DefaultMaxIterations = 100

// DefaultTolerance is the feasibility and optimality tolerance used when the
// caller leaves Solver.Tolerance unset.
const DefaultTolerance = 1e-10

var (
	// ErrDimensionMismatch is returned when P, Q, G, H or the start point
	// disagree on the number of variables or constraints.
	ErrDimensionMismatch = errors.New("qp: dimension mismatch")

	// ErrInfeasibleStart is returned when the start point violates Gx <= h.
	ErrInfeasibleStart = errors.New("qp: start point is infeasible")

	// ErrUnbounded is returned when the objective decreases without bound
	// along a feasible direction.
	ErrUnbounded = errors.New("qp: problem is unbounded")

	// ErrMaxIterations is returned when the working set does not settle
	// within the iteration limit.
	ErrMaxIterations = errors.New("qp: iteration limit reached")
)

// Problem is a convex quadratic program
//
//	minimize   ½ xᵀPx + qᵀx
//	subject to Gx <= h
//
// P must be positive semidefinite. G and H may be nil for an unconstrained
// problem.
type Problem struct {
	P *mat.SymDense
	Q *mat.VecDense
	G *mat.Dense
	H *mat.VecDense
}

// Result is the solution of a [Problem].
type Result struct {
	X          []float64
	Objective  float64
	Iterations int
	// Active lists the constraint rows in the final working set.
	Active []int
}

// Solver is a primal active-set solver for small dense problems.
// The zero value uses the package defaults.
type Solver struct {
	MaxIterations int
	Tolerance     float64
}

// Dims returns the number of variables and constraints, or an error when the
// parts of the problem disagree.
func (p Problem) Dims() (n, m int, err error) {
	if p.P == nil || p.Q == nil {
		return 0, 0, fmt.Errorf("%w: P and Q are required", ErrDimensionMismatch)
	}
	n = p.P.SymmetricDim()
	if p.Q.Len() != n {
		return 0, 0, fmt.Errorf("%w: P is %dx%d, q has %d entries", ErrDimensionMismatch, n, n, p.Q.Len())
	}
	if (p.G == nil) != (p.H == nil) {
		return 0, 0, fmt.Errorf("%w: G and h must be given together", ErrDimensionMismatch)
	}
	if p.G == nil {
		return n, 0, nil
	}
	m, cols := p.G.Dims()
	if cols != n || p.H.Len() != m {
		return 0, 0, fmt.Errorf("%w: G is %dx%d, h has %d entries", ErrDimensionMismatch, m, cols, p.H.Len())
	}
	return n, m, nil
}

// Objective evaluates ½ xᵀPx + qᵀx.
func (p Problem) Objective(x []float64) float64 {
	xv := mat.NewVecDense(len(x), x)
	var px mat.VecDense
	px.MulVec(p.P, xv)
	return 0.5*mat.Dot(xv, &px) + mat.Dot(p.Q, xv)
}

// Solve minimizes the problem starting from the feasible point x0. A nil x0
// starts at the origin.
//
// Each iteration solves the equality-constrained subproblem on the current
// working set through its KKT system. When that system is singular the step
// falls back to the projected negative gradient with an exact line search.
// Constraints with negative multipliers leave the working set and blocking
// constraints enter it, until every multiplier is non-negative.
func (s Solver) Solve(ctx context.Context, prob Problem, x0 []float64) (*Result, error) {
	n, m, err := prob.Dims()
	if err != nil {
		return nil, err
	}
	maxIter := s.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	tol := s.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	x := make([]float64, n)
	if x0 != nil {
		if len(x0) != n {
			return nil, fmt.Errorf("%w: start point has %d entries, want %d", ErrDimensionMismatch, len(x0), n)
		}
		copy(x, x0)
	}

	st := &state{prob: prob, n: n, m: m, tol: tol}
	for i := 0; i < m; i++ {
		if slack := st.slack(i, x); slack < -tol*(1+math.Abs(prob.H.AtVec(i))) {
			return nil, fmt.Errorf("%w: row %d violated by %g", ErrInfeasibleStart, i, -slack)
		}
	}
	for i := 0; i < m; i++ {
		if math.Abs(st.slack(i, x)) <= tol && st.independent(i) {
			st.working = append(st.working, i)
		}
	}

	for iter := 1; iter <= maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		g := st.gradient(x)
		p, lambda, exact := st.step(g)

		if floats.Norm(p, 2) <= tol*(1+floats.Norm(x, 2)) {
			if lambda == nil {
				lambda = st.multipliers(g)
			}
			drop, most := -1, -tol
			for k, l := range lambda {
				if l < most {
					drop, most = k, l
				}
			}
			if drop < 0 {
				return st.result(x, iter), nil
			}
			st.working = append(st.working[:drop], st.working[drop+1:]...)
			continue
		}

		// Full step length along p: 1 for a Newton step, the exact line
		// minimizer for a gradient step.
		alpha := 1.0
		if !exact {
			alpha = st.lineMinimizer(p, g)
		}
		block := -1
		for i := 0; i < m; i++ {
			if st.inWorking(i) {
				continue
			}
			gp := rowDot(prob.G, i, p)
			if gp <= tol {
				continue
			}
			if a := st.slack(i, x) / gp; a < alpha {
				alpha, block = math.Max(a, 0), i
			}
		}
		if math.IsInf(alpha, 1) {
			return nil, ErrUnbounded
		}
		floats.AddScaled(x, alpha, p)
		if block >= 0 {
			st.working = append(st.working, block)
		}
	}
	return nil, fmt.Errorf("%w (%d)", ErrMaxIterations, maxIter)
}

type state struct {
	prob    Problem
	n, m    int
	tol     float64
	working []int
}

func (st *state) slack(i int, x []float64) float64 {
	return st.prob.H.AtVec(i) - rowDot(st.prob.G, i, x)
}

func (st *state) inWorking(i int) bool {
	for _, w := range st.working {
		if w == i {
			return true
		}
	}
	return false
}

func (st *state) gradient(x []float64) []float64 {
	var g mat.VecDense
	g.MulVec(st.prob.P, mat.NewVecDense(st.n, x))
	g.AddVec(&g, st.prob.Q)
	return append([]float64(nil), g.RawVector().Data...)
}

// independent reports whether row i of G is linearly independent of the
// rows already in the working set.
func (st *state) independent(i int) bool {
	basis := st.basis()
	r := mat.Row(nil, i, st.prob.G)
	scale := floats.Norm(r, 2)
	if scale == 0 {
		return false
	}
	for _, b := range basis {
		floats.AddScaled(r, -floats.Dot(r, b), b)
	}
	return floats.Norm(r, 2) > 1e-9*scale
}

// basis returns an orthonormal basis for the span of the working-set rows.
func (st *state) basis() [][]float64 {
	var basis [][]float64
	for _, w := range st.working {
		r := mat.Row(nil, w, st.prob.G)
		for _, b := range basis {
			floats.AddScaled(r, -floats.Dot(r, b), b)
		}
		if nrm := floats.Norm(r, 2); nrm > 1e-12 {
			floats.Scale(1/nrm, r)
			basis = append(basis, r)
		}
	}
	return basis
}

// step returns the search direction for gradient g. For a nonsingular KKT
// system it also returns the working-set multipliers and reports exact=true.
func (st *state) step(g []float64) (p, lambda []float64, exact bool) {
	n, k := st.n, len(st.working)
	kkt := mat.NewDense(n+k, n+k, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			kkt.Set(i, j, st.prob.P.At(i, j))
		}
	}
	for r, w := range st.working {
		for j := 0; j < n; j++ {
			v := st.prob.G.At(w, j)
			kkt.Set(n+r, j, v)
			kkt.Set(j, n+r, v)
		}
	}
	rhs := mat.NewVecDense(n+k, nil)
	for i := 0; i < n; i++ {
		rhs.SetVec(i, -g[i])
	}

	var sol mat.VecDense
	if err := sol.SolveVec(kkt, rhs); err == nil {
		raw := sol.RawVector().Data
		return append([]float64(nil), raw[:n]...), append([]float64(nil), raw[n:]...), true
	}

	// Singular: project -g onto the null space of the working rows.
	p = make([]float64, n)
	floats.ScaleTo(p, -1, g)
	for _, b := range st.basis() {
		floats.AddScaled(p, -floats.Dot(p, b), b)
	}
	return p, nil, false
}

// multipliers solves Aᵀλ = -g in the least-squares sense for the working rows.
func (st *state) multipliers(g []float64) []float64 {
	k := len(st.working)
	if k == 0 {
		return nil
	}
	at := mat.NewDense(st.n, k, nil)
	for c, w := range st.working {
		for j := 0; j < st.n; j++ {
			at.Set(j, c, st.prob.G.At(w, j))
		}
	}
	rhs := mat.NewVecDense(st.n, nil)
	for i, v := range g {
		rhs.SetVec(i, -v)
	}
	var lambda mat.VecDense
	if err := lambda.SolveVec(at, rhs); err != nil {
		return make([]float64, k)
	}
	return append([]float64(nil), lambda.RawVector().Data...)
}

// lineMinimizer returns argmin over α >= 0 of the objective along p.
func (st *state) lineMinimizer(p, g []float64) float64 {
	pv := mat.NewVecDense(st.n, p)
	var pp mat.VecDense
	pp.MulVec(st.prob.P, pv)
	curv := mat.Dot(pv, &pp)
	slope := floats.Dot(g, p)
	if curv <= st.tol {
		return math.Inf(1)
	}
	return math.Max(-slope/curv, 0)
}

func (st *state) result(x []float64, iter int) *Result {
	return &Result{
		X:          x,
		Objective:  st.prob.Objective(x),
		Iterations: iter,
		Active:     append([]int(nil), st.working...),
	}
}

func rowDot(g *mat.Dense, i int, x []float64) float64 {
	var s float64
	for j, v := range x {
		s += g.At(i, j) * v
	}
	return s
}
