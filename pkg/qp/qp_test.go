package qp

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// box returns the constraints x >= 0, y >= 0, x <= l.
func box(l float64) (*mat.Dense, *mat.VecDense) {
	g := mat.NewDense(3, 2, []float64{
		-1, 0,
		0, -1,
		1, 0,
	})
	return g, mat.NewVecDense(3, []float64{0, 0, l})
}

func TestSolveUnconstrained(t *testing.T) {
	prob := Problem{
		P: mat.NewSymDense(2, []float64{2, 0, 0, 4}),
		Q: mat.NewVecDense(2, []float64{-2, -8}),
	}
	res, err := Solver{}.Solve(context.Background(), prob, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1, res.X[0], 1e-9)
	assert.InDelta(t, 2, res.X[1], 1e-9)
	assert.InDelta(t, -9, res.Objective, 1e-9)
	assert.Empty(t, res.Active)
}

func TestSolveInteriorOptimum(t *testing.T) {
	g, h := box(10)
	prob := Problem{
		P: mat.NewSymDense(2, []float64{2, 0, 0, 2}),
		Q: mat.NewVecDense(2, []float64{-4, -6}),
		G: g, H: h,
	}
	res, err := Solver{}.Solve(context.Background(), prob, nil)
	require.NoError(t, err)
	assert.InDelta(t, 2, res.X[0], 1e-9)
	assert.InDelta(t, 3, res.X[1], 1e-9)
	assert.Empty(t, res.Active)
}

func TestSolveUpperBoundActive(t *testing.T) {
	g, h := box(1)
	prob := Problem{
		P: mat.NewSymDense(2, []float64{2, 0, 0, 2}),
		Q: mat.NewVecDense(2, []float64{-6, -2}),
		G: g, H: h,
	}
	res, err := Solver{}.Solve(context.Background(), prob, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1, res.X[0], 1e-9)
	assert.InDelta(t, 1, res.X[1], 1e-9)
	assert.Equal(t, []int{2}, res.Active)
}

func TestSolveLowerBoundsActive(t *testing.T) {
	g, h := box(5)
	prob := Problem{
		P: mat.NewSymDense(2, []float64{2, 1, 1, 2}),
		Q: mat.NewVecDense(2, []float64{3, 3}),
		G: g, H: h,
	}
	res, err := Solver{}.Solve(context.Background(), prob, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0, res.X[0], 1e-12)
	assert.InDelta(t, 0, res.X[1], 1e-12)
	assert.ElementsMatch(t, []int{0, 1}, res.Active)
}

func TestSolveSingularHessian(t *testing.T) {
	// The second variable does not appear in the objective.
	g, h := box(4)
	prob := Problem{
		P: mat.NewSymDense(2, []float64{2, 0, 0, 0}),
		Q: mat.NewVecDense(2, []float64{-3, 0}),
		G: g, H: h,
	}
	res, err := Solver{}.Solve(context.Background(), prob, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, res.X[0], 1e-9)
	assert.InDelta(t, -2.25, res.Objective, 1e-9)
}

func TestSolveZeroWidthBox(t *testing.T) {
	g, h := box(0)
	prob := Problem{
		P: mat.NewSymDense(2, []float64{2, 0, 0, 2}),
		Q: mat.NewVecDense(2, []float64{-4, -4}),
		G: g, H: h,
	}
	res, err := Solver{}.Solve(context.Background(), prob, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0, res.X[0], 1e-12)
	assert.InDelta(t, 2, res.X[1], 1e-9)
}

func TestSolveUnbounded(t *testing.T) {
	prob := Problem{
		P: mat.NewSymDense(1, []float64{0}),
		Q: mat.NewVecDense(1, []float64{-1}),
	}
	_, err := Solver{}.Solve(context.Background(), prob, nil)
	assert.ErrorIs(t, err, ErrUnbounded)
}

func TestSolveErrors(t *testing.T) {
	g, h := box(1)
	ctx := context.Background()
	valid := Problem{
		P: mat.NewSymDense(2, []float64{1, 0, 0, 1}),
		Q: mat.NewVecDense(2, []float64{0, 0}),
		G: g, H: h,
	}

	t.Run("infeasible start", func(t *testing.T) {
		_, err := Solver{}.Solve(ctx, valid, []float64{2, 0})
		assert.ErrorIs(t, err, ErrInfeasibleStart)
	})
	t.Run("start length", func(t *testing.T) {
		_, err := Solver{}.Solve(ctx, valid, []float64{0})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
	t.Run("q length", func(t *testing.T) {
		bad := valid
		bad.Q = mat.NewVecDense(3, nil)
		_, err := Solver{}.Solve(ctx, bad, nil)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
	t.Run("G without h", func(t *testing.T) {
		bad := valid
		bad.H = nil
		_, err := Solver{}.Solve(ctx, bad, nil)
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Solver{}.Solve(cctx, valid, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// bruteForce minimizes over a fine grid in x, solving for y in closed form.
func bruteForce(p [3]float64, q [2]float64, l float64) float64 {
	best := math.Inf(1)
	const steps = 20000
	for i := 0; i <= steps; i++ {
		x := l * float64(i) / steps
		y := 0.0
		if p[2] > 0 {
			y = math.Max(-(p[1]*x+q[1])/p[2], 0)
		}
		f := 0.5*(p[0]*x*x+2*p[1]*x*y+p[2]*y*y) + q[0]*x + q[1]*y
		best = math.Min(best, f)
	}
	return best
}

func TestSolveMatchesGridSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		// Random PSD matrix AᵀA.
		a, b, c, d := rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()
		p := [3]float64{a*a + c*c, a*b + c*d, b*b + d*d}
		q := [2]float64{rng.NormFloat64() * 3, rng.NormFloat64() * 3}
		l := rng.Float64() * 3

		g, h := box(l)
		prob := Problem{
			P: mat.NewSymDense(2, []float64{p[0], p[1], p[1], p[2]}),
			Q: mat.NewVecDense(2, q[:]),
			G: g, H: h,
		}
		res, err := Solver{}.Solve(context.Background(), prob, nil)
		require.NoError(t, err, "trial %d", trial)
		assert.GreaterOrEqual(t, res.X[0], -1e-9)
		assert.LessOrEqual(t, res.X[0], l+1e-9)
		assert.GreaterOrEqual(t, res.X[1], -1e-9)
		assert.LessOrEqual(t, res.Objective, bruteForce(p, q, l)+1e-6, "trial %d", trial)
	}
}
