// Package qp solves small dense convex quadratic programs with linear
// inequality constraints.
//
// The rooting optimizer uses it as a general fallback for the per-edge
// regression problem in two variables (the root position on the edge and
// the rate), where the closed-form active-set enumeration cannot be applied
// directly. Problems are expressed with gonum matrices:
//
//	prob := qp.Problem{
//		P: mat.NewSymDense(2, []float64{2, 0, 0, 2}),
//		Q: mat.NewVecDense(2, []float64{-2, -5}),
//		G: mat.NewDense(2, 2, []float64{-1, 0, 0, -1}),
//		H: mat.NewVecDense(2, []float64{0, 0}),
//	}
//	res, err := qp.Solver{}.Solve(ctx, prob, nil)
//
// [Solver.Solve] needs a feasible start point. For the box-like constraints
// used by rooting the origin always qualifies.
package qp
