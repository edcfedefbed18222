package rooting

import (
	"context"
	"io"
	"math"
	"math/rand"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/fastroot/pkg/qp"
	"github.com/matzehuels/fastroot/pkg/tree"
)

func TestQuadraticStationary(t *testing.T) {
	// f = (x-1)² + (mu-2)² = x² + mu² - 2x - 4mu + 5
	q := Quadratic{A: 1, B: 1, D: -2, E: -4, F: 5}
	x, mu, ok := q.Stationary()
	require.True(t, ok)
	assert.InDelta(t, 1, x, 1e-12)
	assert.InDelta(t, 2, mu, 1e-12)
	assert.InDelta(t, 0, q.Eval(x, mu), 1e-12)

	_, _, ok = Quadratic{A: 1, B: 0}.Stationary()
	assert.False(t, ok, "B = 0 is singular")
	_, _, ok = Quadratic{A: 1, B: 1, C: 2}.Stationary()
	assert.False(t, ok, "4AB = C² is singular")
}

func TestQuadraticActiveSet(t *testing.T) {
	tests := []struct {
		name   string
		q      Quadratic
		l      float64
		wantX  float64
		wantMu float64
	}{
		// (x+1)² + (mu-2)²: x wants to be negative.
		{"x at zero", Quadratic{A: 1, B: 1, D: 2, E: -4}, 3, 0, 2},
		// (x-5)² + (mu-2)²: x wants to exceed l.
		{"x at l", Quadratic{A: 1, B: 1, D: -10, E: -4}, 3, 3, 2},
		// (x-1)² + (mu+2)²: mu wants to be negative.
		{"mu at zero", Quadratic{A: 1, B: 1, D: -2, E: 4}, 3, 1, 0},
		// (x+1)² + (mu+1)²: both bounds bind at the origin.
		{"corner", Quadratic{A: 1, B: 1, D: 2, E: 2}, 3, 0, 0},
		// Zero-length edge.
		{"degenerate edge", Quadratic{A: 1, B: 1, D: -2, E: -4}, 0, 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, mu := tt.q.ActiveSet(tt.l)
			assert.InDelta(t, tt.wantX, x, 1e-12)
			assert.InDelta(t, tt.wantMu, mu, 1e-12)
		})
	}
}

func TestQuadraticActiveSetIsGlobal(t *testing.T) {
	// Every face must be compared, not just the one named by the first
	// violated bound.
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 200; trial++ {
		a, b := 0.1+rng.Float64()*5, 0.1+rng.Float64()*5
		c := (rng.Float64()*2 - 1) * 2 * math.Sqrt(a*b) * 0.99
		q := Quadratic{A: a, B: b, C: c, D: rng.NormFloat64() * 5, E: rng.NormFloat64() * 5}
		l := rng.Float64() * 3

		if x, mu, ok := q.Stationary(); ok && x >= 0 && x <= l && mu >= 0 {
			continue
		}
		x, mu := q.ActiveSet(l)
		grid := math.Inf(1)
		for i := 0; i <= 200; i++ {
			gx := l * float64(i) / 200
			for j := 0; j <= 200; j++ {
				grid = math.Min(grid, q.Eval(gx, 10*float64(j)/200))
			}
		}
		require.LessOrEqual(t, q.Eval(x, mu), grid+1e-9, "trial %d", trial)
	}
}

// TestActiveSetMatchesQuadProg solves every edge of random trees with both
// optimizers and compares the optimal objective values.
func TestActiveSetMatchesQuadProg(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(4))
	solver := qp.Solver{MaxIterations: DefaultMaxIterations}
	edges := 0

	for trial := 0; trial < 40; trial++ {
		tr := randomTree(rng, 3+rng.Intn(25))
		times := randomTimes(rng, tr)
		p := newPropagator(tr, times, nil)
		p.bottomUp()
		p.prepareRoot()
		obj := &regressionObjective{
			p:      p,
			solver: SolverActiveSet,
			qp:     solver,
			logger: log.New(io.Discard),
			stats:  &Stats{},
		}

		err := p.topDown(ctx, func(parent, child *tree.Node) error {
			q := obj.quadratic(parent, child)
			l := child.Length
			x, mu, _, err := obj.optimize(ctx, q, l)
			require.NoError(t, err)
			fAS := q.Eval(x, mu)

			res, err := solver.Solve(ctx, q.Problem(l), []float64{0, 0})
			require.NoError(t, err)
			fQP := res.Objective + q.F

			assert.InDelta(t, fAS, fQP, 1e-6*math.Max(1, math.Abs(fAS)), "edge above %s", child)
			assert.GreaterOrEqual(t, x, 0.0)
			assert.LessOrEqual(t, x, l)
			assert.GreaterOrEqual(t, mu, 0.0)
			edges++
			return nil
		})
		require.NoError(t, err)
	}
	assert.Positive(t, edges)
}

type failingQP struct{ calls int }

func (f *failingQP) Solve(context.Context, qp.Problem, []float64) (*qp.Result, error) {
	f.calls++
	return nil, qp.ErrMaxIterations
}

func TestQuadProgFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	tr := parse(t, "((A:1,B:1):1,(C:1,D:1):1);")
	times := map[string]float64{"A": 1, "B": 1, "C": 1, "D": 1}

	want, err := Root(ctx, tr, Config{Method: Regression, Covariates: times, Solver: SolverActiveSet})
	require.NoError(t, err)

	stub := &failingQP{}
	got, err := Root(ctx, tr, Config{Method: Regression, Covariates: times, Solver: SolverQuadProg, QP: stub})
	require.NoError(t, err)

	assert.Positive(t, stub.calls)
	assert.Equal(t, stub.calls, got.Stats.QPFailures)
	assert.Equal(t, got.Stats.ActiveSet, got.Stats.QPFailures)
	assert.Equal(t, got.Stats.Edges, got.Stats.ClosedForm+got.Stats.ActiveSet)
	assert.InDelta(t, want.Objective, got.Objective, 1e-12)
	assert.Equal(t, want.Edge.Leaves, got.Edge.Leaves)
}

func TestSingularRegressionUsesQuadProg(t *testing.T) {
	ctx := context.Background()
	tr := parse(t, "((A:1,B:2):1,(C:3,D:1):2,E:1);")
	zero := map[string]float64{"A": 0, "B": 0, "C": 0, "D": 0, "E": 0}

	auto, err := Root(ctx, tr, Config{Method: Regression, Covariates: zero})
	require.NoError(t, err)
	assert.Equal(t, auto.Stats.Edges, auto.Stats.QuadProg)

	as, err := Root(ctx, tr, Config{Method: Regression, Covariates: zero, Solver: SolverActiveSet})
	require.NoError(t, err)
	assert.Zero(t, as.Stats.QuadProg)
	assert.InDelta(t, as.Objective, auto.Objective, 1e-9)
	assert.Zero(t, auto.Mu)
}
