package rooting

import (
	"context"
	"math"

	"github.com/matzehuels/fastroot/pkg/tree"
)

// nodeStats holds the per-node aggregates of one rooting run, stored in a
// slice indexed by tree.Node.Index.
//
// Subtree fields (nleaf, sdi, st, maxIn, nOut) are filled bottom-up. The
// root-relative fields (sd, ssd, sdt, maxOut) describe the whole tree as if
// it were rooted at the node and are filled top-down.
type nodeStats struct {
	nleaf int
	sdi   float64 // Σ distance from the node to each leaf below it
	st    float64 // Σ covariate of the leaves below
	nOut  int     // outgroup leaves below

	sd  float64 // Σ distance from the node to every leaf
	ssd float64 // Σ squared distance from the node to every leaf
	sdt float64 // Σ distance·covariate over every leaf

	droot float64

	maxIn  float64 // farthest leaf below, from the node
	maxOut float64 // farthest leaf outside the subtree, from the node

	// Largest and second largest child values L_c + maxIn_c, for maxOut.
	top1, top2 float64
	top1Child  int
}

// propagator runs the two passes over one tree.
type propagator struct {
	t     *tree.Tree
	stats []nodeStats

	covariates map[string]float64
	outgroups  map[string]bool

	n      int     // leaves in the tree
	sst    float64 // Σ covariate² over all leaves
	rootST float64 // Σ covariate over all leaves
	nOG    int     // outgroup leaves in the tree
}

func newPropagator(t *tree.Tree, covariates map[string]float64, outgroups map[string]bool) *propagator {
	return &propagator{
		t:          t,
		stats:      make([]nodeStats, t.Len()),
		covariates: covariates,
		outgroups:  outgroups,
	}
}

func (p *propagator) stat(n *tree.Node) *nodeStats { return &p.stats[n.Index] }

// bottomUp fills the subtree aggregates in post-order.
func (p *propagator) bottomUp() {
	for _, v := range p.t.PostOrder() {
		s := p.stat(v)
		if v.IsLeaf() {
			*s = nodeStats{nleaf: 1, st: p.covariates[v.Label], top1Child: -1}
			if p.outgroups[v.Label] {
				s.nOut = 1
			}
			s.top1, s.top2 = math.Inf(-1), math.Inf(-1)
			continue
		}
		*s = nodeStats{top1: math.Inf(-1), top2: math.Inf(-1), top1Child: -1}
		for _, c := range v.Children {
			cs := p.stat(c)
			s.nleaf += cs.nleaf
			s.sdi += cs.sdi + float64(cs.nleaf)*c.Length
			s.st += cs.st
			s.nOut += cs.nOut

			reach := c.Length + cs.maxIn
			switch {
			case reach > s.top1:
				s.top2 = s.top1
				s.top1, s.top1Child = reach, c.Index
			case reach > s.top2:
				s.top2 = reach
			}
		}
		s.maxIn = s.top1
	}
}

// prepareRoot computes the whole-tree scalars and the root-relative sums at
// the current root by accumulating each leaf's distance to the root.
func (p *propagator) prepareRoot() {
	root := p.t.Root()
	rs := p.stat(root)
	p.n = rs.nleaf
	p.rootST = rs.st
	p.nOG = rs.nOut
	p.sst = 0

	rs.droot = 0
	rs.sd, rs.ssd, rs.sdt = 0, 0, 0
	rs.maxOut = math.Inf(-1)
	for _, v := range p.t.Nodes() {
		if v.IsRoot() {
			continue
		}
		s := p.stat(v)
		s.droot = p.stat(v.Parent).droot + v.Length
		if !v.IsLeaf() {
			continue
		}
		t := p.covariates[v.Label]
		rs.sd += s.droot
		rs.ssd += s.droot * s.droot
		rs.sdt += s.droot * t
		p.sst += t * t
	}
}

// topDown moves the root-relative sums from each parent to each child in
// pre-order and calls visit once per edge, right after the child has been
// updated. Cancellation is checked between edges.
func (p *propagator) topDown(ctx context.Context, visit func(parent, child *tree.Node) error) error {
	n := float64(p.n)
	for _, v := range p.t.Nodes() {
		if v.IsRoot() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		parent := v.Parent
		ps, cs := p.stat(parent), p.stat(v)
		l := v.Length
		k := float64(cs.nleaf)

		cs.sd = ps.sd + (n-2*k)*l
		cs.sdt = ps.sdt + l*(p.rootST-2*cs.st)
		cs.ssd = ps.ssd + (n-4*k)*l*l + 2*(ps.sd-2*cs.sdi)*l

		sibling := ps.top1
		if ps.top1Child == v.Index {
			sibling = ps.top2
		}
		cs.maxOut = l + math.Max(ps.maxOut, sibling)

		if err := visit(parent, v); err != nil {
			return err
		}
	}
	return nil
}
