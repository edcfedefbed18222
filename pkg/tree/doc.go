// Package tree provides the rooted, weighted, multifurcating tree model that
// every rooting method operates on.
//
// # Overview
//
// A [Tree] owns a root [Node]. Each node stores the length of the edge to its
// parent, so an edge of the tree is identified by its child node. Nodes carry
// a dense [Node.Index] assigned in pre-order by [Tree.Reindex], which lets the
// statistic passes keep per-node scratch values in plain slices instead of
// maps.
//
// # Basic Usage
//
// Build a tree bottom-up with [NewNode] and [Node.AddChild], then wrap the
// root with [New]:
//
//	root := tree.NewNode("")
//	root.AddChild(tree.NewNode("A"), 1)
//	root.AddChild(tree.NewNode("B"), 2)
//	t := tree.New(root)
//
// Call [Tree.Validate] before running any statistic pass. It rejects missing
// or negative edge lengths and empty or duplicate leaf labels.
//
// # Structural Changes
//
// Node methods change links only. After rewiring, call [Tree.Reindex] (or
// [Tree.SetRoot], which re-indexes) so that [Tree.Nodes] and every index are
// consistent again. [Tree.Clone] preserves indices, which allows a candidate
// edge found on one tree to be located on a copy by slot number.
//
// [Tree.Unroot] removes a degree-two root so that the two root edges of a
// rooted input collapse into one edge of the underlying unrooted tree.
//
// # Concurrency
//
// Trees are not safe for concurrent mutation. Separate trees share no state
// and may be processed in parallel.
package tree
