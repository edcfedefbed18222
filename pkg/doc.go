// Package pkg provides the core libraries for FastRoot tree rooting.
//
// # Overview
//
// FastRoot places the root of an unrooted phylogenetic tree in time linear
// in the number of leaves. The pkg directory is organized into these areas:
//
//  1. [tree] - Rooted tree model with dense node indices
//  2. [rooting] - Objectives, optimizer and rerooting for MV, MP, OG and RTT
//  3. [qp] - Small convex quadratic programs for the regression fallback
//  4. [io] - Newick, sampling-time and outgroup readers, JSON run reports
//  5. [pipeline] - Orchestration (read, root, cache, render)
//  6. [cache], [config], [errors], [observability] - Supporting infrastructure
//  7. [render] - Node-link drawings through Graphviz
//
// # Architecture
//
// The typical data flow through FastRoot:
//
//	Newick file
//	     ↓
//	[io] package (split records, parse trees)
//	     ↓
//	[rooting] package (score every edge, pick the best point)
//	     ↓
//	[pipeline] package (cache by tree and options)
//	     ↓
//	Rooted Newick, annotated trees, JSON report, SVG/PNG/DOT
//
// # Quick Start
//
// Root a tree by minimum variance:
//
//	import (
//	    "context"
//	    fio "github.com/matzehuels/fastroot/pkg/io"
//	    "github.com/matzehuels/fastroot/pkg/rooting"
//	)
//
//	t, _ := fio.ParseNewick("((A:1,B:3):2,(C:2,(D:1,E:4):1):1);")
//	res, _ := rooting.Root(context.Background(), t, rooting.Config{Method: rooting.MinVar})
//	fmt.Println(fio.Newick(res.Tree))
//
// Or run a batch with caching:
//
//	r := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	result, _ := r.Execute(ctx, records, pipeline.Options{Method: "MP"})
package pkg
