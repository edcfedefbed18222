// Package nodelink draws rooted trees as node-link diagrams.
//
// # Overview
//
// The tree is laid out left to right with the root on the left. Leaves show
// their labels, internal nodes are drawn as points, and edges carry no arrow
// heads.
//
// # Usage
//
// Convert a tree to DOT, then render it:
//
//	dot := nodelink.ToDOT(t, nodelink.Options{Lengths: true, HighlightRoot: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot)
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Lengths: label each edge with its length
//   - Scores: label each edge with its rooting score
//   - HighlightRoot: colour the root and its two edges
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG and
// PNG rendering; no Graphviz installation is needed.
package nodelink
