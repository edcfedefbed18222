// Package rooting places the root of a weighted phylogenetic tree.
//
// # Methods
//
// Four criteria are supported, selected with [Config.Method]:
//
//   - [MinVar]: minimize the variance of root-to-tip distances
//   - [Midpoint]: minimize the largest root-to-tip distance
//   - [Outgroup]: separate the [Config.Outgroups] leaves from the rest
//   - [Regression]: fit root-to-tip distance d ≈ mu·t against the leaf
//     sampling times in [Config.Covariates], with mu >= 0
//
// # Algorithm
//
// Every method shares one linear-time engine. A post-order pass aggregates
// per-subtree statistics (leaf counts, distance and covariate sums). A second
// pass over the leaves fixes the whole-tree sums at the current root, and a
// pre-order pass moves those sums across each edge in O(1), so that the
// statistics at every node describe the tree as if it were rooted there.
//
// Right after each edge is crossed, the method's objective is minimized over
// root positions on that edge. For Regression this is a two-variable
// quadratic in the position x and the rate mu, solved in closed form when the
// stationary point is feasible and by enumerating the boundary faces
// otherwise (see [Quadratic]). The general solver in package qp serves as
// the path of record for numerically singular edges and can be forced with
// [SolverQuadProg].
//
// A selector keeps the first candidate that is not beaten by more than
// [Config.Epsilon], and the winning edge is split to hold the new root.
//
// # Usage
//
//	res, err := rooting.Root(ctx, t, rooting.Config{
//		Method:     rooting.Regression,
//		Covariates: times,
//	})
//	if err != nil {
//		return err
//	}
//	fmt.Println(res.Describe())
//
// [Root] never modifies its input. Each call owns its statistics, so
// independent trees may be rooted concurrently.
package rooting
