// Package pipeline provides the batch rooting pipeline for fastroot.
//
// This package implements the read → root → write flow shared by the
// command line and tests: Newick records are split from the input, each tree
// is rooted with [rooting.Root], and the results are cached by content hash
// so that re-running a batch only roots trees that changed.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Read: split the input into Newick records
//  2. Root: parse and root each record, consulting the cache first
//  3. Render (optional): draw a rooted tree as DOT, SVG or PNG
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Method:       "RTT",
//	    Covariates:   times,
//	    Alternatives: 3,
//	}
//	result, err := runner.Execute(ctx, records, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, tr := range result.Trees {
//	    fmt.Println(tr.Newick[0])
//	}
package pipeline

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fastroot/pkg/cache"
	ferrors "github.com/matzehuels/fastroot/pkg/errors"
	"github.com/matzehuels/fastroot/pkg/rooting"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Config File
// =============================================================================

const (
	// DefaultMethod is the rooting method used when none is given.
	DefaultMethod = "MV"

	// DefaultSolver is the regression solver policy.
	DefaultSolver = string(rooting.SolverAuto)

	// DefaultAlternatives is the number of rooted trees returned per input.
	DefaultAlternatives = 1

	// MinRegressionIterations is the smallest QP iteration limit accepted
	// for root-to-tip rooting; smaller values are raised with a warning.
	MinRegressionIterations = 1000
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a rooting run.
type Options struct {
	Method        string             `json:"method,omitempty"`
	Solver        string             `json:"solver,omitempty"`
	Epsilon       float64            `json:"epsilon,omitempty"` // zero means rooting.DefaultEpsilon
	MaxIterations int                `json:"max_iterations,omitempty"`
	Alternatives  int                `json:"alternatives,omitempty"`
	Outgroups     []string           `json:"outgroups,omitempty"`
	Covariates    map[string]float64 `json:"covariates,omitempty"`
	Refresh       bool               `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// Warnings collects the adjustments made by ValidateAndSetDefaults.
	Warnings []string `json:"-"`

	method    rooting.Method
	solver    rooting.SolverKind
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Method   rooting.Method
	Trees    []TreeResult
	Warnings []string
	Duration time.Duration
}

// TreeResult is the outcome for one input tree. It is what the cache stores.
type TreeResult struct {
	// Index is the 1-based position of the tree in the input.
	Index int `json:"index"`

	// Newick holds the rooted trees, best first. Scores and Edges are
	// parallel to it: the score of each rooting and the leaves below the
	// edge that received its root.
	Newick []string   `json:"newick"`
	Scores []float64  `json:"scores"`
	Edges  [][]string `json:"edges"`

	// Annotated is the unrooted input with every edge's objective as a
	// [&score=...] comment.
	Annotated string `json:"annotated"`

	Objective float64       `json:"objective"`
	Score     float64       `json:"score"`
	RootEdge  []string      `json:"root_edge"`
	Offset    float64       `json:"offset"`
	Mu        float64       `json:"mu,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	Stats     rooting.Stats `json:"stats"`

	CacheHit bool          `json:"-"`
	Duration time.Duration `json:"-"`
}

// Describe returns the per-tree score line, for example
// "Tree 1 RTT score: 0.0125".
func (t TreeResult) Describe(m rooting.Method) string {
	return fmt.Sprintf("Tree %d %s score: %g", t.Index, m, t.Score)
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
//
// Supplying outgroups selects outgroup rooting and supplying sampling times
// selects root-to-tip rooting, whatever Method says; sampling times win when
// both are present. Each such override is logged as a warning.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	if o.Method == "" {
		o.Method = DefaultMethod
	}
	m, err := rooting.ParseMethod(o.Method)
	if err != nil {
		return ferrors.Wrap(ferrors.ErrCodeInvalidMethod, err, "invalid method")
	}

	if o.Solver == "" {
		o.Solver = DefaultSolver
	}
	s, err := rooting.ParseSolver(o.Solver)
	if err != nil {
		return ferrors.Wrap(ferrors.ErrCodeInvalidInput, err, "invalid solver")
	}

	if len(o.Outgroups) > 0 {
		if err := ferrors.ValidateOutgroups(o.Outgroups); err != nil {
			return err
		}
		if m != rooting.Outgroup {
			o.warn("rooting method set to outgroup rooting (OG) because outgroups were given", "was", m)
			m = rooting.Outgroup
		}
	}
	if len(o.Covariates) > 0 && m != rooting.Regression {
		o.warn("rooting method set to root-to-tip rooting (RTT) because sampling times were given", "was", m)
		m = rooting.Regression
	}

	switch {
	case m == rooting.Outgroup && len(o.Outgroups) == 0:
		return ferrors.New(ferrors.ErrCodeInvalidOutgroup, "outgroup rooting needs outgroups")
	case m == rooting.Regression && len(o.Covariates) == 0:
		return ferrors.New(ferrors.ErrCodeMissingCovariate, "root-to-tip rooting needs sampling times")
	}

	if m == rooting.Regression {
		if o.MaxIterations != 0 && o.MaxIterations < MinRegressionIterations {
			o.warn("maximum iterations must be at least 1000; using 1000", "given", o.MaxIterations)
		}
		o.MaxIterations = max(o.MaxIterations, MinRegressionIterations)
	} else if o.MaxIterations != 0 {
		o.warn("maximum iterations only apply to root-to-tip rooting (RTT)", "given", o.MaxIterations)
	}

	switch {
	case o.Epsilon < 0:
		return ferrors.New(ferrors.ErrCodeInvalidInput, "epsilon must be non-negative, got %g", o.Epsilon)
	case o.Epsilon == 0:
		o.Epsilon = rooting.DefaultEpsilon
	}
	switch {
	case o.Alternatives < 0:
		return ferrors.New(ferrors.ErrCodeInvalidInput, "alternatives must be positive, got %d", o.Alternatives)
	case o.Alternatives == 0:
		o.Alternatives = DefaultAlternatives
	}

	o.method, o.solver = m, s
	o.Method, o.Solver = m.String(), string(s)
	o.validated = true
	return nil
}

func (o *Options) warn(msg string, keyvals ...any) {
	o.Logger.Warn(msg, keyvals...)
	o.Warnings = append(o.Warnings, msg)
}

// RootingMethod returns the resolved method. Valid after ValidateAndSetDefaults.
func (o *Options) RootingMethod() rooting.Method { return o.method }

// RootingConfig returns the core configuration for these options.
func (o *Options) RootingConfig() rooting.Config {
	cfg := rooting.Config{
		Method:       o.method,
		Epsilon:      o.Epsilon,
		Alternatives: o.Alternatives,
		Solver:       o.solver,
		Logger:       o.Logger,
	}
	switch o.method {
	case rooting.Outgroup:
		cfg.Outgroups = o.Outgroups
	case rooting.Regression:
		cfg.Covariates = o.Covariates
		cfg.MaxIterations = o.MaxIterations
	}
	return cfg
}

// KeyOpts returns cache key options for these options. Inputs the resolved
// method ignores do not take part in the key.
func (o *Options) KeyOpts() cache.RootKeyOpts {
	k := cache.RootKeyOpts{
		Method:       o.Method,
		Epsilon:      o.Epsilon,
		Alternatives: o.Alternatives,
	}
	switch o.method {
	case rooting.Outgroup:
		k.Outgroups = cache.HashStrings(slices.Sorted(slices.Values(o.Outgroups)))
	case rooting.Regression:
		k.Solver = o.Solver
		k.MaxIterations = o.MaxIterations
		k.Covariates = hashCovariates(o.Covariates)
	}
	return k
}

func hashCovariates(times map[string]float64) string {
	items := make([]string, 0, 2*len(times))
	for _, label := range slices.Sorted(maps.Keys(times)) {
		items = append(items, label, strconv.FormatFloat(times[label], 'g', -1, 64))
	}
	return cache.HashStrings(items)
}
