package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fastroot/pkg/buildinfo"
	"github.com/matzehuels/fastroot/pkg/config"
	ferrors "github.com/matzehuels/fastroot/pkg/errors"
	fio "github.com/matzehuels/fastroot/pkg/io"
	"github.com/matzehuels/fastroot/pkg/observability"
	"github.com/matzehuels/fastroot/pkg/pipeline"
)

// rootOpts holds the command-line flags for the root command.
type rootOpts struct {
	input        string  // Newick file, "-" for stdin
	output       string  // rooted trees, "-" for stdout
	method       string  // MV, MP, OG or RTT
	outgroups    string  // file of labels, or a whitespace-separated list
	times        string  // sampling-time file ("label value" per line)
	maxIter      int     // QP iteration limit for RTT
	annotations  string  // file receiving score-annotated trees
	alternatives int     // rooted trees written per input tree
	solver       string  // auto, active-set or quadprog
	epsilon      float64 // strict-improvement tolerance for choosing the root edge
	noCache      bool
	refresh      bool
	report       string // JSON run report
	metricsFile  string // Prometheus textfile
	pick         bool   // choose among alternatives interactively
}

// rootCommand creates the root command, which reroots every tree of a
// Newick file.
func (c *CLI) rootCommand() *cobra.Command {
	opts := rootOpts{input: stdio, output: stdio}

	cmd := &cobra.Command{
		Use:   "root",
		Short: "Reroot the trees of a Newick file",
		Long: `Reroot every tree of a Newick file, one rooted tree per input tree.

Methods:
  MV   minimum variance of root-to-tip distances (default)
  MP   midpoint of the longest leaf-to-leaf path
  OG   outgroup rooting, needs --outgroups
  RTT  root-to-tip regression against --times

Giving --outgroups selects OG and giving --times selects RTT, whatever
--method says. With --alternatives N greater than 1 and a file output, the
N best rootings of tree i are written to <output>_tree<i><ext>.`,
		Example: `  # Minimum variance rooting from stdin to stdout
  fastroot root < trees.nwk

  # Midpoint rooting, keeping the three best roots of every tree
  fastroot root -i trees.nwk -m MP -A 3 -o rooted.nwk

  # Outgroup rooting from an inline list or a file of labels
  fastroot root -i trees.nwk -g "Chimp Gorilla"

  # Root-to-tip regression with a run report
  fastroot root -i trees.nwk -t times.txt --report run.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRoot(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.input, "input", "i", opts.input, "input Newick file (- for stdin)")
	flags.StringVarP(&opts.output, "output", "o", opts.output, "output file (- for stdout)")
	flags.StringVarP(&opts.method, "method", "m", pipeline.DefaultMethod, "rooting method: MV, MP, OG or RTT")
	flags.StringVarP(&opts.outgroups, "outgroups", "g", "", "outgroup labels: a file with one per line, or a quoted list")
	flags.StringVarP(&opts.times, "times", "t", "", "sampling-time file for root-to-tip rooting")
	flags.IntVarP(&opts.maxIter, "max-iter", "x", 0, "QP iteration limit for RTT (at least 1000)")
	flags.StringVarP(&opts.annotations, "annotations", "a", "", "write input trees with per-edge scores to this file")
	flags.IntVarP(&opts.alternatives, "alternatives", "A", pipeline.DefaultAlternatives, "number of best rootings to output per tree")
	flags.StringVar(&opts.solver, "solver", pipeline.DefaultSolver, "RTT solver: auto, active-set or quadprog")
	flags.Float64Var(&opts.epsilon, "epsilon", 0, "strict-improvement tolerance for choosing the root edge (0 keeps the default 1e-5)")
	flags.BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	flags.BoolVar(&opts.refresh, "refresh", false, "recompute and overwrite cached results")
	flags.StringVar(&opts.report, "report", "", "write a JSON run report to this file")
	flags.StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	flags.BoolVar(&opts.pick, "pick", false, "choose among alternative rootings interactively")

	_ = cmd.RegisterFlagCompletionFunc("method", cobra.FixedCompletions(
		[]string{"MV\tminimum variance", "MP\tmidpoint", "OG\toutgroup", "RTT\troot-to-tip regression"},
		cobra.ShellCompDirectiveNoFileComp))
	_ = cmd.RegisterFlagCompletionFunc("solver", cobra.FixedCompletions(
		[]string{"auto", "active-set", "quadprog"}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// runRoot executes the root command.
func (c *CLI) runRoot(cmd *cobra.Command, opts rootOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	started := time.Now()

	if opts.metricsFile != "" {
		metrics := observability.NewPrometheusHooks()
		observability.SetPipelineHooks(metrics)
		observability.SetRootingHooks(metrics)
		observability.SetCacheHooks(metrics)
		defer func() {
			observability.Reset()
			if werr := metrics.WriteTextfile(opts.metricsFile); werr != nil {
				logger.Warn("metrics not written", "path", opts.metricsFile, "err", werr)
			}
		}()
	}

	popts, err := c.pipelineOptions(cmd, opts)
	if err != nil {
		return err
	}
	popts.Logger = logger

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	records, err := readRecords(ctx, runner, cmd.InOrStdin(), opts.input)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rooting %d trees...", len(records)))
	spinner.Start()
	result, err := runner.Execute(ctx, records, popts)
	spinner.Stop()
	if err != nil {
		return err
	}
	cached := 0
	for _, tr := range result.Trees {
		logger.Debug("rooted tree", treeFields(tr)...)
		if tr.CacheHit {
			cached++
		}
	}
	prog.done("rooted trees", "trees", len(result.Trees), "method", result.Method, "cached", cached)

	perTree := popts.Alternatives > 1
	if perTree && opts.pick {
		picked, err := pickAlternatives(ctx, result)
		if err != nil {
			return err
		}
		perTree = !picked
	}

	written, err := writeTrees(cmd.OutOrStdout(), opts.output, result, perTree)
	if err != nil {
		return err
	}

	if opts.annotations != "" {
		lines := make([]string, len(result.Trees))
		for i, tr := range result.Trees {
			lines[i] = tr.Annotated
		}
		if err := writeLines(cmd.OutOrStdout(), opts.annotations, lines); err != nil {
			return err
		}
		written = append(written, opts.annotations)
	}

	if opts.report != "" {
		if err := ferrors.ValidateOutputPath(opts.report); err != nil {
			return err
		}
		if err := fio.ExportReport(buildReport(result, started), opts.report); err != nil {
			return ferrors.Wrap(ferrors.ErrCodeInvalidPath, err, "write report")
		}
		written = append(written, opts.report)
	}

	printSummary(result, written)
	return nil
}

// pipelineOptions merges the config file with the flags the user set.
func (c *CLI) pipelineOptions(cmd *cobra.Command, opts rootOpts) (pipeline.Options, error) {
	cfg := c.Config
	p := pipeline.Options{
		Method:       cfg.Method,
		Solver:       cfg.Solver,
		Epsilon:      cfg.Epsilon,
		Alternatives: cfg.Alternatives,
		Refresh:      opts.refresh,
	}
	// The pipeline applies the default limit to RTT on its own.
	if cfg.MaxIterations != config.Default().MaxIterations {
		p.MaxIterations = cfg.MaxIterations
	}

	flags := cmd.Flags()
	if flags.Changed("method") {
		p.Method = opts.method
	}
	if flags.Changed("solver") {
		p.Solver = opts.solver
	}
	if flags.Changed("epsilon") {
		p.Epsilon = opts.epsilon
	}
	if flags.Changed("max-iter") {
		p.MaxIterations = opts.maxIter
	}
	if flags.Changed("alternatives") {
		p.Alternatives = opts.alternatives
		if opts.alternatives < 1 {
			return p, ferrors.New(ferrors.ErrCodeInvalidInput, "--alternatives must be at least 1, got %d", opts.alternatives)
		}
	}

	if opts.outgroups != "" {
		labels, err := fio.LoadOutgroups(opts.outgroups)
		if err != nil {
			return p, ferrors.Wrap(ferrors.ErrCodeInvalidOutgroup, err, "load outgroups")
		}
		if err := ferrors.ValidateOutgroups(labels); err != nil {
			return p, err
		}
		p.Outgroups = labels
	}

	if opts.times != "" {
		times, err := fio.ImportCovariates(opts.times)
		switch {
		case errors.Is(err, os.ErrNotExist):
			return p, ferrors.Wrap(ferrors.ErrCodeFileNotFound, err, "sampling times")
		case err != nil:
			return p, ferrors.Wrap(ferrors.ErrCodeInvalidInput, err, "sampling times")
		case len(times) == 0:
			return p, ferrors.New(ferrors.ErrCodeMissingCovariate, "%s: no sampling times", opts.times)
		}
		p.Covariates = times
	}

	return p, nil
}

// =============================================================================
// Input / Output
// =============================================================================

// readRecords splits the input into Newick records.
func readRecords(ctx context.Context, r *pipeline.Runner, stdin io.Reader, path string) ([]string, error) {
	if path == stdio {
		return r.ReadTrees(ctx, stdin, "stdin")
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ferrors.New(ferrors.ErrCodeFileNotFound, "input %s not found", path)
	}
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeInvalidPath, err, "open input")
	}
	defer f.Close()
	return r.ReadTrees(ctx, f, path)
}

// writeTrees writes the rooted trees and returns the files it created.
//
// Without perTree the best rooting of every tree goes to output, one per
// line. With perTree every alternative is written: to stdout in input
// order, or to one file per input tree named by [alternativePath].
func writeTrees(stdout io.Writer, output string, result *pipeline.Result, perTree bool) ([]string, error) {
	if !perTree || output == stdio {
		var lines []string
		for _, tr := range result.Trees {
			if perTree {
				lines = append(lines, tr.Newick...)
			} else {
				lines = append(lines, tr.Newick[0])
			}
		}
		if err := writeLines(stdout, output, lines); err != nil {
			return nil, err
		}
		if output == stdio {
			return nil, nil
		}
		return []string{output}, nil
	}

	paths := make([]string, 0, len(result.Trees))
	for _, tr := range result.Trees {
		path := alternativePath(output, tr.Index)
		if err := writeLines(stdout, path, tr.Newick); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// alternativePath names the file holding the alternatives of tree index:
// "out/rooted.nwk" becomes "out/rooted_tree3.nwk". Every suffix is kept,
// so "a.tre.gz" becomes "a_tree3.tre.gz".
func alternativePath(output string, index int) string {
	dir, base := filepath.Split(output)
	tag := "_tree" + strconv.Itoa(index)
	if i := strings.Index(base, "."); i > 0 {
		return dir + base[:i] + tag + base[i:]
	}
	return dir + base + tag
}

// writeLines writes one line per item to path, or to stdout for "-".
func writeLines(stdout io.Writer, path string, lines []string) error {
	if path == stdio {
		return writeAll(stdout, lines)
	}
	if err := ferrors.ValidateOutputPath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return ferrors.Wrap(ferrors.ErrCodeInvalidPath, err, "create output")
	}
	if err := writeAll(f, lines); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeAll(w io.Writer, lines []string) error {
	bw := bufio.NewWriter(w)
	for _, line := range lines {
		bw.WriteString(line)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// =============================================================================
// Interactive Selection
// =============================================================================

// pickAlternatives lets the user choose one rooting per tree. It reports
// false, leaving result untouched, when no terminal is attached.
func pickAlternatives(ctx context.Context, result *pipeline.Result) (bool, error) {
	if !isTerminal(os.Stdin) || !isTerminal(uiOut) {
		printWarning("--pick needs an interactive terminal; writing all alternatives")
		return false, nil
	}
	for i := range result.Trees {
		tr := &result.Trees[i]
		if len(tr.Newick) < 2 {
			continue
		}
		model := NewAlternativeListModel(*tr, result.Method.String())
		final, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(uiOut)).Run()
		if err != nil {
			return false, ferrors.Wrap(ferrors.ErrCodeCancelled, err, "select rooting for tree %d", tr.Index)
		}
		choice := 0
		if m, ok := final.(AlternativeListModel); ok && m.Selected >= 0 {
			choice = m.Selected
		}
		keepAlternative(tr, choice)
	}
	return true, nil
}

// =============================================================================
// Report & Summary
// =============================================================================

// buildReport converts a pipeline result into the JSON run report.
func buildReport(result *pipeline.Result, started time.Time) *fio.Report {
	rep := &fio.Report{
		RunID:    uuid.NewString(),
		Version:  buildinfo.Version,
		Method:   result.Method.String(),
		Started:  started.UTC(),
		Duration: result.Duration.Round(time.Millisecond).String(),
		Trees:    make([]fio.TreeReport, 0, len(result.Trees)),
		Warnings: result.Warnings,
	}
	for _, tr := range result.Trees {
		tree := fio.TreeReport{
			Index:        tr.Index,
			Score:        tr.Score,
			Objective:    tr.Objective,
			Leaves:       tr.Stats.Leaves,
			RootEdge:     tr.RootEdge,
			Offset:       tr.Offset,
			Mu:           tr.Mu,
			Alternatives: len(tr.Newick),
			Truncated:    tr.Truncated,
			CacheHit:     tr.CacheHit,
		}
		s := tr.Stats
		if s.ClosedForm+s.ActiveSet+s.QuadProg+s.QPFailures > 0 {
			tree.Solver = &fio.SolverStats{
				ClosedForm: s.ClosedForm,
				ActiveSet:  s.ActiveSet,
				QuadProg:   s.QuadProg,
				QPFailures: s.QPFailures,
			}
		}
		rep.Trees = append(rep.Trees, tree)
	}
	return rep
}

// printSummary reports the run on the status stream.
func printSummary(result *pipeline.Result, written []string) {
	cached := 0
	for _, tr := range result.Trees {
		if tr.CacheHit {
			cached++
		}
		if tr.Truncated {
			printWarning("tree %d has fewer rootings than requested", tr.Index)
		}
	}
	msg := fmt.Sprintf("Rooted %d trees with %s", len(result.Trees), result.Method.Description())
	if cached > 0 {
		msg += StyleDim.Render(fmt.Sprintf(" (%d cached)", cached))
	}
	printSuccess("%s", msg)
	if len(result.Trees) == 1 {
		tr := result.Trees[0]
		printStats(tr.Describe(result.Method), tr.Stats.Leaves, tr.CacheHit)
	}
	for _, path := range written {
		printFile(path)
	}
	if len(written) > 0 && strings.HasSuffix(written[0], ".nwk") {
		printNextStep("Draw the first tree", "fastroot render "+written[0]+" -o tree.svg")
	}
}
