package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	ferrors "github.com/matzehuels/fastroot/pkg/errors"
	"github.com/matzehuels/fastroot/pkg/pipeline"
	"github.com/matzehuels/fastroot/pkg/render"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output        string // output file, "-" for stdout
	format        string // svg, png or dot; inferred from output when unset
	index         int    // 1-based tree to draw
	lengths       bool   // label edges with their lengths
	highlightRoot bool   // mark the root and its edges
	scores        string // label edges with this method's objective
	noCache       bool
}

// renderCommand creates the render command for drawing one tree of a
// Newick file.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{output: stdio, index: 1, highlightRoot: true}

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Draw a rooted tree as SVG, PNG or DOT",
		Long: `Draw one tree of a Newick file as a left-to-right node-link diagram.

The format follows the output extension (.svg, .png, .dot or .gv) unless
--format is given. Without a file the tree is read from stdin.`,
		Example: `  fastroot root -i trees.nwk | fastroot render -o tree.svg
  fastroot render rooted.nwk -n 2 --lengths -o tree.png`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := stdio
			if len(args) == 1 {
				input = args[0]
			}
			return c.runRender(cmd, input, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", opts.output, "output file (- for stdout)")
	flags.StringVarP(&opts.format, "format", "f", "", "output format: svg, png or dot")
	flags.IntVarP(&opts.index, "tree", "n", opts.index, "which tree of the file to draw (1-based)")
	flags.BoolVar(&opts.lengths, "lengths", false, "label edges with their lengths")
	flags.BoolVar(&opts.highlightRoot, "highlight-root", opts.highlightRoot, "mark the root and its edges")
	flags.StringVar(&opts.scores, "scores", "", "label every edge with its MV, MP, OG or RTT objective")
	flags.BoolVar(&opts.noCache, "no-cache", false, "disable the artifact cache")

	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(
		[]string{"svg", "png", "dot"}, cobra.ShellCompDirectiveNoFileComp))

	return cmd
}

// runRender executes the render command.
func (c *CLI) runRender(cmd *cobra.Command, input string, opts renderOpts) error {
	ctx := cmd.Context()

	format := render.FormatFromPath(opts.output, render.FormatSVG)
	if opts.format != "" {
		f, err := render.ParseFormat(opts.format)
		if err != nil {
			return ferrors.Wrap(ferrors.ErrCodeInvalidFormat, err, "render")
		}
		format = f
	}
	if format == render.FormatPNG && opts.output == stdio && isTerminal(os.Stdout) {
		return ferrors.New(ferrors.ErrCodeInvalidPath, "refusing to write PNG to a terminal; use --output")
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	records, err := readRecords(ctx, runner, cmd.InOrStdin(), input)
	if err != nil {
		return err
	}
	if opts.index < 1 || opts.index > len(records) {
		return ferrors.New(ferrors.ErrCodeInvalidInput, "tree %d out of range (input has %d)", opts.index, len(records))
	}

	data, cached, err := runner.Render(ctx, records[opts.index-1], pipeline.RenderOptions{
		Format:        format,
		Lengths:       opts.lengths,
		HighlightRoot: opts.highlightRoot,
		Scores:        opts.scores,
	})
	if err != nil {
		return err
	}

	if opts.output == stdio {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := ferrors.ValidateOutputPath(opts.output); err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return ferrors.Wrap(ferrors.ErrCodeInvalidPath, err, "write %s", opts.output)
	}

	printSuccess("Rendered tree %d as %s", opts.index, format)
	printStats(fmt.Sprintf("%d bytes", len(data)), 0, cached)
	printFile(opts.output)
	return nil
}
