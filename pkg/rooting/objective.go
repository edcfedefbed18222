package rooting

import (
	"context"
	"errors"
	"math"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fastroot/pkg/observability"
	"github.com/matzehuels/fastroot/pkg/tree"
)

// candidate is the best root position found on one edge, identified by the
// edge's child node. offset is measured from the child end.
type candidate struct {
	node      *tree.Node
	objective float64
	offset    float64
	mu        float64
	path      solvePath
}

// objective turns the propagated statistics of one edge into its optimal
// root position. Exactly one implementation is selected per run.
type objective interface {
	evaluate(ctx context.Context, parent, child *tree.Node) (candidate, error)
}

func newObjective(m Method, p *propagator, cfg *Config, stats *Stats) objective {
	switch m {
	case Midpoint:
		return midpointObjective{p}
	case Outgroup:
		return outgroupObjective{p}
	case Regression:
		return &regressionObjective{
			p:      p,
			solver: cfg.Solver,
			qp:     cfg.QP,
			logger: cfg.Logger,
			stats:  stats,
		}
	default:
		return minVarObjective{p}
	}
}

// =============================================================================
// MinVar
// =============================================================================

type minVarObjective struct{ p *propagator }

// evaluate minimizes the variance of root-to-tip distances for a root at
// distance x above the child:
//
//	Var(x) = α·x² + β·x + γ
//	α = 1 − (2k−n)²/n²
//	β = 2(2·SDI − SD)/n − 2·SD·(2k−n)/n²
//	γ = SSD/n − SD²/n²
//
// with k leaves below the child and SD, SSD, SDI taken at the child.
func (o minVarObjective) evaluate(_ context.Context, _, child *tree.Node) (candidate, error) {
	cs := o.p.stat(child)
	n := float64(o.p.n)
	k := float64(cs.nleaf)
	l := child.Length
	skew := 2*k - n

	alpha := 1 - skew*skew/(n*n)
	beta := 2*(2*cs.sdi-cs.sd)/n - 2*cs.sd*skew/(n*n)
	gamma := cs.ssd/n - cs.sd*cs.sd/(n*n)
	variance := func(x float64) float64 { return alpha*x*x + beta*x + gamma }

	var x float64
	if alpha > singularTol {
		x = clamp(-beta/(2*alpha), 0, l)
	} else if variance(l) < variance(0) {
		x = l
	}
	return candidate{node: child, objective: variance(x), offset: x}, nil
}

// =============================================================================
// Midpoint
// =============================================================================

type midpointObjective struct{ p *propagator }

// evaluate minimizes the largest root-to-tip distance for a root at distance
// x above the child: max(maxIn + x, maxOut − x).
func (o midpointObjective) evaluate(_ context.Context, _, child *tree.Node) (candidate, error) {
	cs := o.p.stat(child)
	l := child.Length
	x := clamp((cs.maxOut-cs.maxIn)/2, 0, l)
	height := math.Max(cs.maxIn+x, cs.maxOut-x)
	return candidate{node: child, objective: height, offset: x}, nil
}

// =============================================================================
// Outgroup
// =============================================================================

type outgroupObjective struct{ p *propagator }

// evaluate counts the leaves on the wrong side of the edge for the better of
// the two orientations: outgroup below the child, or outgroup above it. The
// root goes to the middle of the edge.
func (o outgroupObjective) evaluate(_ context.Context, _, child *tree.Node) (candidate, error) {
	cs := o.p.stat(child)
	n, k := o.p.n, cs.nleaf
	total, below := o.p.nOG, cs.nOut

	outBelow := (total - below) + (k - below)
	outAbove := below + ((n - k) - (total - below))
	return candidate{
		node:      child,
		objective: float64(min(outBelow, outAbove)),
		offset:    child.Length / 2,
	}, nil
}

// =============================================================================
// Regression
// =============================================================================

// solvePath records which optimizer produced an edge's solution.
type solvePath int

const (
	pathClosedForm solvePath = iota
	pathActiveSet
	pathQuadProg
)

type regressionObjective struct {
	p      *propagator
	solver SolverKind
	qp     QPSolver
	logger *log.Logger
	stats  *Stats
}

// quadratic returns the residual sum of squares Σ(mu·t − d)² for a root at
// distance x from the parent end of the edge, as a function of (x, mu).
func (o *regressionObjective) quadratic(parent, child *tree.Node) Quadratic {
	ps, cs := o.p.stat(parent), o.p.stat(child)
	l := child.Length
	deltaT := o.p.rootST - 2*cs.st
	deltaD := -2*float64(cs.nleaf)*l - 2*cs.sdi + ps.sd
	return Quadratic{
		A: float64(o.p.n),
		B: o.p.sst,
		C: -2 * deltaT,
		D: 2 * deltaD,
		E: -2 * ps.sdt,
		F: ps.ssd,
	}
}

func (o *regressionObjective) evaluate(ctx context.Context, parent, child *tree.Node) (candidate, error) {
	q := o.quadratic(parent, child)
	l := child.Length
	x, mu, path, err := o.optimize(ctx, q, l)
	if err != nil {
		return candidate{}, err
	}
	switch path {
	case pathClosedForm:
		o.stats.ClosedForm++
	case pathActiveSet:
		o.stats.ActiveSet++
	case pathQuadProg:
		o.stats.QuadProg++
	}
	return candidate{
		node:      child,
		objective: q.Eval(x, mu),
		offset:    l - x,
		mu:        mu,
		path:      path,
	}, nil
}

// optimize returns the constrained minimizer of q over 0 <= x <= l, mu >= 0.
// A feasible stationary point is taken as is. Otherwise the active-set
// enumeration always runs, and the QP solver runs on top of it when the
// solver policy asks for it. A failed QP solve is logged and the active-set
// solution is used; only cancellation is returned as an error.
func (o *regressionObjective) optimize(ctx context.Context, q Quadratic, l float64) (x, mu float64, path solvePath, err error) {
	sx, smu, ok := q.Stationary()
	if ok && l > 0 && sx >= 0 && sx <= l && smu >= 0 {
		return sx, smu, pathClosedForm, nil
	}

	x, mu = q.ActiveSet(l)
	useQP := o.solver == SolverQuadProg || (o.solver == SolverAuto && !ok)
	if !useQP {
		return x, mu, pathActiveSet, nil
	}

	res, err := o.qp.Solve(ctx, q.Problem(l), []float64{0, 0})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, 0, 0, err
		}
		o.stats.QPFailures++
		o.logger.Warn("qp solver failed, using active-set solution", "edge_length", l, "err", err)
		observability.Rooting().OnSolverFallback(ctx, Regression.String(), err)
		return x, mu, pathActiveSet, nil
	}
	return res.X[0], res.X[1], pathQuadProg, nil
}
