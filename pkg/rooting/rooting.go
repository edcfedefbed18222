package rooting

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/matzehuels/fastroot/pkg/observability"
	"github.com/matzehuels/fastroot/pkg/tree"
)

// EdgeInfo identifies the edge that received the root by the leaves on its
// child side.
type EdgeInfo struct {
	// Leaves are the labels below the child end, in tree order.
	Leaves []string `json:"leaves"`
	// Length is the length of the edge before it was split.
	Length float64 `json:"length"`
}

// Alternative is one rooted tree with its score.
type Alternative struct {
	Tree      *tree.Tree
	Objective float64
	Score     float64
	Edge      EdgeInfo
	// Offset is the distance of the new root from the child end of the edge.
	Offset float64
	// Mu is the fitted rate for Regression, 0 otherwise.
	Mu float64
}

// Stats counts how the per-edge problems were solved.
type Stats struct {
	Leaves     int `json:"leaves"`
	Edges      int `json:"edges"`
	ClosedForm int `json:"closed_form"`
	ActiveSet  int `json:"active_set"`
	QuadProg   int `json:"quadprog"`
	QPFailures int `json:"qp_failures"`
}

// Result is the outcome of [Root].
type Result struct {
	Alternative

	Method Method

	// Alternatives holds every returned rooting, best first. Alternatives[0]
	// is the same rooting as the embedded Alternative.
	Alternatives []Alternative

	// Truncated is set when fewer alternatives exist than were requested.
	Truncated bool

	// Annotated is the unrooted working tree, and EdgeObjectives[i] the best
	// objective on the edge above Annotated.Node(i) (NaN for its root).
	Annotated      *tree.Tree
	EdgeObjectives []float64

	Stats Stats
}

// Root finds the optimal root of t under cfg.Method and returns the rerooted
// tree. The input tree is not modified.
//
// The tree is copied and a degree-two root is removed first, so every edge
// of the unrooted tree is a candidate exactly once. One post-order pass and
// one pre-order pass compute every edge's optimum, and the selector keeps
// the first strict minimum. With cfg.Alternatives > 1 the next best edges
// are rooted as well.
func Root(ctx context.Context, t *tree.Tree, cfg Config) (result *Result, err error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger

	work := t.Clone()
	if err := work.Validate(); err != nil {
		return nil, err
	}
	work.Unroot()
	leaves := work.Leaves()
	if len(leaves) < 2 {
		return nil, ErrTooFewLeaves
	}

	outgroups, err := checkInputs(&cfg, leaves)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	observability.Rooting().OnRootStart(ctx, cfg.Method.String(), len(leaves))
	defer func() {
		observability.Rooting().OnRootComplete(ctx, cfg.Method.String(), time.Since(start), err)
	}()

	prop := newPropagator(work, cfg.Covariates, outgroups)
	prop.bottomUp()
	prop.prepareRoot()

	stats := Stats{Leaves: prop.n}
	obj := newObjective(cfg.Method, prop, &cfg, &stats)
	sel := newSelector(cfg.Epsilon)
	cands := make([]candidate, 0, work.Len()-1)
	edgeObj := make([]float64, work.Len())
	edgeObj[work.Root().Index] = math.NaN()

	err = prop.topDown(ctx, func(parent, child *tree.Node) error {
		c, err := obj.evaluate(ctx, parent, child)
		if err != nil {
			return err
		}
		cands = append(cands, c)
		edgeObj[child.Index] = c.objective
		if sel.offer(c) {
			logger.Debug("new best edge", "child", child.String(), "objective", c.objective, "offset", c.offset)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	stats.Edges = len(cands)

	ranked := rank(cands, cfg.Alternatives, cfg.Epsilon)
	result = &Result{
		Method:         cfg.Method,
		Alternatives:   make([]Alternative, 0, len(ranked)),
		Truncated:      len(ranked) < cfg.Alternatives,
		Annotated:      work,
		EdgeObjectives: edgeObj,
		Stats:          stats,
	}
	if result.Truncated {
		logger.Info("fewer distinct rootings than requested alternatives",
			"requested", cfg.Alternatives, "available", len(ranked))
	}

	for _, c := range ranked {
		alt, err := materialize(work, c, cfg.Method, prop.n)
		if err != nil {
			return nil, err
		}
		result.Alternatives = append(result.Alternatives, alt)
	}
	result.Alternative = result.Alternatives[0]
	logger.Debug("rooted tree", "method", cfg.Method, "score", result.Score, "edges", stats.Edges)
	return result, nil
}

// checkInputs verifies the method-specific inputs and returns the outgroup
// set restricted to labels present in the tree.
func checkInputs(cfg *Config, leaves []*tree.Node) (map[string]bool, error) {
	switch cfg.Method {
	case Regression:
		for _, leaf := range leaves {
			v, ok := cfg.Covariates[leaf.Label]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingCovariate, leaf.Label)
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: %s = %g", ErrInvalidCovariate, leaf.Label, v)
			}
		}
	case Outgroup:
		present := make(map[string]bool, len(leaves))
		for _, leaf := range leaves {
			present[leaf.Label] = true
		}
		set := make(map[string]bool)
		for _, label := range cfg.Outgroups {
			if !present[label] {
				cfg.Logger.Warn("outgroup not found in tree", "label", label)
				continue
			}
			set[label] = true
		}
		switch {
		case len(set) == 0:
			return nil, ErrNoOutgroup
		case len(set) == len(leaves):
			return nil, ErrOutgroupCoversTree
		}
		return set, nil
	}
	return nil, nil
}

// materialize roots a copy of work at candidate c.
func materialize(work *tree.Tree, c candidate, m Method, n int) (Alternative, error) {
	rooted := work.Clone()
	node := rooted.Node(c.node.Index)
	edge := EdgeInfo{Leaves: tree.LeafLabels(node), Length: node.Length}
	if err := reroot(rooted, node, c.offset); err != nil {
		return Alternative{}, err
	}
	return Alternative{
		Tree:      rooted,
		Objective: c.objective,
		Score:     normalize(m, c.objective, n),
		Edge:      edge,
		Offset:    c.offset,
		Mu:        c.mu,
	}, nil
}

// normalize converts a raw objective to the reported score. Regression
// reports the mean squared residual; the other objectives are already in
// reporting units.
func normalize(m Method, objective float64, n int) float64 {
	if m == Regression {
		return objective / float64(n)
	}
	return objective
}

// Describe returns the score line printed for each tree, for example
// "RTT score: 0.0125".
func (r *Result) Describe() string {
	return fmt.Sprintf("%s score: %g", r.Method, r.Score)
}

// Sorted returns the child-side leaf labels in lexical order.
func (e EdgeInfo) Sorted() []string {
	out := slices.Clone(e.Leaves)
	slices.Sort(out)
	return out
}
