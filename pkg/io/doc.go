// Package io reads and writes the file formats used around the rooting core.
//
// # Newick
//
// Trees are exchanged in Newick format. [ReadNewick] splits its input into
// ';'-terminated records with [SplitNewick] and parses each one with the
// gotree Newick parser, converting the result to a [tree.Tree]:
//
//	trees, err := io.ReadNewick(os.Stdin)
//
// [Newick] and [WriteNewick] go the other way. [AnnotatedNewick] writes the
// per-edge objective of a rooting run as node comments:
//
//	((A[&score=0.5]:1,B[&score=0.75]:1)[&score=0.25]:0.5,C[&score=1]:2);
//
// # Leaf Tables
//
// Sampling times for root-to-tip rooting are read by [ReadCovariates] from
// "label value" lines:
//
//	A 2001.5
//	B 2003
//
// Outgroups are either a file with one label per line ([ReadOutgroups]) or
// a whitespace-separated list ([ParseOutgroups]). [LoadOutgroups] decides
// by checking whether the argument names an existing file.
//
// # Reports
//
// [WriteReport] encodes a [Report] describing a batch run as indented JSON.
package io
