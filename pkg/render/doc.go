// Package render provides drawing of rooted trees.
//
// # Overview
//
// The renderers turn a [tree.Tree] into a picture so that a chosen root can
// be checked by eye. The formats are:
//
//   - dot: Graphviz source, for external tooling
//   - svg: vector image rendered in-process
//   - png: raster image rendered in-process
//
// # Node-Link Diagrams
//
// The [nodelink] subpackage lays the tree out left to right with Graphviz,
// leaves labelled and edges optionally annotated with lengths or per-edge
// rooting scores.
//
//	dot := nodelink.ToDOT(t, nodelink.Options{Lengths: true})
//	svg, err := nodelink.Render(ctx, dot, render.FormatSVG)
//
// [tree.Tree]: github.com/matzehuels/fastroot/pkg/tree.Tree
// [nodelink]: github.com/matzehuels/fastroot/pkg/render/nodelink
package render
