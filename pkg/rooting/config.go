package rooting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/fastroot/pkg/qp"
)

var (
	// ErrMissingCovariate is returned by [Root] when regression rooting is
	// requested and a leaf has no sampling time.
	ErrMissingCovariate = errors.New("missing sampling time for leaf")

	// ErrInvalidCovariate is returned by [Root] when a leaf's sampling time
	// is NaN or infinite.
	ErrInvalidCovariate = errors.New("sampling time is not a finite number")

	// ErrNoOutgroup is returned by [Root] when none of the outgroup labels
	// names a leaf of the tree.
	ErrNoOutgroup = errors.New("no outgroup leaf found in tree")

	// ErrOutgroupCoversTree is returned by [Root] when every leaf of the tree
	// is an outgroup, leaving nothing to separate.
	ErrOutgroupCoversTree = errors.New("outgroup contains every leaf")

	// ErrTooFewLeaves is returned by [Root] for trees with fewer than two leaves.
	ErrTooFewLeaves = errors.New("tree needs at least two leaves")

	// ErrInvalidConfig is returned by [Root] when the configuration is
	// inconsistent (unknown method or solver, negative tolerances).
	ErrInvalidConfig = errors.New("invalid rooting config")
)

// Method selects the rooting criterion.
type Method int

const (
	// MinVar minimizes the variance of root-to-tip distances.
	MinVar Method = iota
	// Midpoint minimizes the largest root-to-tip distance.
	Midpoint
	// Outgroup places the root on the edge that best separates the outgroup.
	Outgroup
	// Regression minimizes the squared residuals of root-to-tip distance
	// regressed on leaf sampling times through the origin.
	Regression
)

var methodTags = [...]string{
	MinVar:     "MV",
	Midpoint:   "MP",
	Outgroup:   "OG",
	Regression: "RTT",
}

var methodNames = [...]string{
	MinVar:     "MinVar",
	Midpoint:   "Midpoint",
	Outgroup:   "Outgroup",
	Regression: "Root-to-Tip",
}

// String returns the short method tag (MV, MP, OG, RTT).
func (m Method) String() string {
	if m < 0 || int(m) >= len(methodTags) {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodTags[m]
}

// Description returns the human-readable method name.
func (m Method) Description() string {
	if m < 0 || int(m) >= len(methodNames) {
		return m.String()
	}
	return methodNames[m]
}

// Valid reports whether m is one of the defined methods.
func (m Method) Valid() bool { return m >= 0 && int(m) < len(methodTags) }

// ParseMethod converts a method tag or name to a Method. Matching is case
// insensitive and accepts both the short tags and the long names.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mv", "minvar":
		return MinVar, nil
	case "mp", "midpoint":
		return Midpoint, nil
	case "og", "outgroup":
		return Outgroup, nil
	case "rtt", "root-to-tip", "regression":
		return Regression, nil
	}
	return 0, fmt.Errorf("%w: unknown method %q (want MP, MV, OG or RTT)", ErrInvalidConfig, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: method %d", ErrInvalidConfig, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(b []byte) error {
	parsed, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// SolverKind controls when the general quadratic-program solver runs for
// regression rooting.
type SolverKind string

const (
	// SolverAuto uses the active-set enumeration and falls back to the QP
	// solver only for edges whose regression is numerically singular.
	SolverAuto SolverKind = "auto"
	// SolverActiveSet never calls the QP solver.
	SolverActiveSet SolverKind = "active-set"
	// SolverQuadProg calls the QP solver for every edge whose stationary
	// point is infeasible.
	SolverQuadProg SolverKind = "quadprog"
)

// ParseSolver converts a solver name to a SolverKind. An empty string
// selects SolverAuto.
func ParseSolver(s string) (SolverKind, error) {
	switch k := SolverKind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SolverAuto, nil
	case SolverAuto, SolverActiveSet, SolverQuadProg:
		return k, nil
	case "as":
		return SolverActiveSet, nil
	case "qp":
		return SolverQuadProg, nil
	}
	return "", fmt.Errorf("%w: unknown solver %q (want auto, active-set or quadprog)", ErrInvalidConfig, s)
}

// QPSolver solves the two-variable regression subproblem
// min ½zᵀPz + qᵀz subject to Gz <= h from the feasible start x0.
// [qp.Solver] is the default implementation.
type QPSolver interface {
	Solve(ctx context.Context, prob qp.Problem, x0 []float64) (*qp.Result, error)
}

const (
	// DefaultEpsilon is the strict-improvement tolerance of the selector.
	DefaultEpsilon = 1e-5

	// ExactEpsilon makes the selector keep the first strict minimum with no
	// tolerance. Zero cannot express this because it selects DefaultEpsilon.
	ExactEpsilon = math.SmallestNonzeroFloat64

	// DefaultMaxIterations bounds the QP solver's working-set changes.
	DefaultMaxIterations = 1000
)

// Config selects the rooting method and its inputs.
type Config struct {
	Method Method

	// Covariates maps leaf labels to sampling times. Required for Regression.
	Covariates map[string]float64

	// Outgroups lists outgroup leaf labels. Required for Outgroup. Labels
	// absent from the tree are ignored with a warning.
	Outgroups []string

	// Epsilon is the strict-improvement tolerance: a candidate replaces the
	// incumbent only if it is lower by more than Epsilon. Zero selects
	// DefaultEpsilon; use ExactEpsilon for plain strict-minimum selection.
	Epsilon float64

	// MaxIterations bounds the QP solver.
	MaxIterations int

	// Alternatives is the number of rooted trees to return, best first.
	Alternatives int

	Solver SolverKind

	// QP overrides the QP solver. Defaults to qp.Solver with MaxIterations.
	QP QPSolver

	// Logger receives warnings and debug output. Defaults to a discard logger.
	Logger *log.Logger
}

// DefaultConfig returns a MinVar configuration with every default filled in.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) setDefaults() {
	if c.Epsilon == 0 {
		c.Epsilon = DefaultEpsilon
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.Alternatives == 0 {
		c.Alternatives = 1
	}
	if c.Solver == "" {
		c.Solver = SolverAuto
	}
	if c.QP == nil {
		c.QP = qp.Solver{MaxIterations: c.MaxIterations}
	}
	if c.Logger == nil {
		c.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

func (c *Config) validate() error {
	if !c.Method.Valid() {
		return fmt.Errorf("%w: unknown method %d", ErrInvalidConfig, int(c.Method))
	}
	if _, err := ParseSolver(string(c.Solver)); err != nil {
		return err
	}
	switch {
	case c.Epsilon < 0:
		return fmt.Errorf("%w: epsilon must be non-negative, got %g", ErrInvalidConfig, c.Epsilon)
	case c.MaxIterations < 0:
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidConfig, c.MaxIterations)
	case c.Alternatives < 0:
		return fmt.Errorf("%w: alternatives must be positive, got %d", ErrInvalidConfig, c.Alternatives)
	}
	return nil
}
