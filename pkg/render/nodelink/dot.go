package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/fastroot/pkg/render"
	"github.com/matzehuels/fastroot/pkg/tree"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Lengths labels every edge with its length.
	Lengths bool

	// Scores, when non-nil, holds a per-edge rooting score indexed by the
	// child's Node.Index. NaN entries are not drawn.
	Scores []float64

	// HighlightRoot marks the root node and its outgoing edges.
	HighlightRoot bool
}

// ToDOT converts a tree to Graphviz DOT format, laid out left to right with
// the root on the left. The resulting DOT string can be rendered with [Render].
func ToDOT(t *tree.Tree, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph T {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=point, width=0.06];\n")
	buf.WriteString("  edge [arrowhead=none, fontsize=10];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.15;\n")
	buf.WriteString("\n")

	for _, n := range t.Nodes() {
		fmt.Fprintf(&buf, "  %s [%s];\n", nodeID(n), strings.Join(nodeAttrs(n, opts), ", "))
	}

	buf.WriteString("\n")
	for _, n := range t.Nodes() {
		if n.IsRoot() {
			continue
		}
		attrs := edgeAttrs(n, opts)
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %s -> %s;\n", nodeID(n.Parent), nodeID(n))
			continue
		}
		fmt.Fprintf(&buf, "  %s -> %s [%s];\n", nodeID(n.Parent), nodeID(n), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(n *tree.Node) string {
	return "n" + strconv.Itoa(n.Index)
}

func nodeAttrs(n *tree.Node, opts Options) []string {
	if n.IsLeaf() {
		return []string{"shape=plaintext", "width=0", fmt.Sprintf("label=%q", n.Label)}
	}
	if n.IsRoot() && opts.HighlightRoot {
		return []string{"color=firebrick", "width=0.12"}
	}
	if n.Label != "" {
		// internal labels are usually support values
		return []string{fmt.Sprintf("xlabel=%q", n.Label), "fontsize=9"}
	}
	return []string{"label=\"\""}
}

func edgeAttrs(n *tree.Node, opts Options) []string {
	var parts []string
	if opts.Lengths {
		parts = append(parts, strconv.FormatFloat(n.Length, 'g', 4, 64))
	}
	if opts.Scores != nil && n.Index < len(opts.Scores) && !math.IsNaN(opts.Scores[n.Index]) {
		parts = append(parts, "s="+strconv.FormatFloat(opts.Scores[n.Index], 'g', 4, 64))
	}
	var attrs []string
	if len(parts) > 0 {
		attrs = append(attrs, fmt.Sprintf("label=%q", strings.Join(parts, " ")))
	}
	if opts.HighlightRoot && n.Parent.IsRoot() {
		attrs = append(attrs, "color=firebrick", "penwidth=2")
	}
	return attrs
}

// Render renders DOT source in the given format. FormatDOT returns the
// source unchanged.
func Render(ctx context.Context, dot string, format render.Format) ([]byte, error) {
	switch format {
	case render.FormatDOT:
		return []byte(dot), nil
	case render.FormatSVG:
		return RenderSVG(ctx, dot)
	case render.FormatPNG:
		return RenderPNG(ctx, dot)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	data, err := renderGraphviz(ctx, dot, graphviz.SVG)
	if err != nil {
		return nil, err
	}
	return normalizeViewBox(data), nil
}

// RenderPNG renders a DOT graph to PNG using Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return renderGraphviz(ctx, dot, graphviz.PNG)
}

func renderGraphviz(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-sized svg element with one whose
// viewBox starts at the origin and whose size matches it, so the image scales.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
