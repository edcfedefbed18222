package rooting

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/fastroot/pkg/tree"
)

func TestRerootSplitsEdge(t *testing.T) {
	tr := parse(t, "((A:1,B:2):3,(C:4,D:5):6,E:7);")
	var c *tree.Node
	for _, n := range tr.Leaves() {
		if n.Label == "C" {
			c = n
		}
	}
	require.NoError(t, reroot(tr, c, 1.5))
	require.NoError(t, tr.Validate())

	root := tr.Root()
	require.Len(t, root.Children, 2)
	assert.Equal(t, "C", root.Children[0].Label)
	assert.InDelta(t, 1.5, root.Children[0].Length, 1e-12)
	assert.InDelta(t, 2.5, root.Children[1].Length, 1e-12)
	assert.Equal(t, 5, tr.NumLeaves())

	// Distances between leaves are unchanged, so D is 4+5 from C.
	d := leafDistances(root.Children[0])
	for leaf, dist := range d {
		if leaf.Label == "D" {
			assert.InDelta(t, 9, dist, 1e-12)
		}
	}
}

func TestRerootSuppressesOldRoot(t *testing.T) {
	tr := parse(t, "((A:1,B:2):3,C:4);")
	a := tr.Leaves()[0]
	require.NoError(t, reroot(tr, a, 0.5))

	// The old bifurcating root is left with one child and disappears.
	assert.Equal(t, 5, tr.Len())
	assert.Equal(t, 3, tr.NumLeaves())
	for _, n := range tr.Nodes() {
		assert.NotEqual(t, 1, len(n.Children), "unifurcation at %s", n)
	}
	dists := rootToTip(tr)
	assert.InDelta(t, 0.5, dists["A"], 1e-12)
	assert.InDelta(t, 0.5+2, dists["B"], 1e-12)
	assert.InDelta(t, 0.5+3+4, dists["C"], 1e-12)
}

func TestRerootPreservesPairwiseDistances(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for trial := 0; trial < 30; trial++ {
		tr := randomTree(rng, 4+rng.Intn(15))
		before := pairwise(tr)

		nodes := tr.Nodes()
		c := nodes[1+rng.Intn(len(nodes)-1)]
		require.NoError(t, reroot(tr, c, rng.Float64()*c.Length))
		require.NoError(t, tr.Validate())

		after := pairwise(tr)
		for k, v := range before {
			assert.InDelta(t, v, after[k], 1e-9, "pair %v", k)
		}
	}
}

func TestRerootRejectsRoot(t *testing.T) {
	tr := parse(t, "(A:1,B:1);")
	assert.Error(t, reroot(tr, tr.Root(), 0))
}

func pairwise(t *tree.Tree) map[[2]string]float64 {
	out := make(map[[2]string]float64)
	for _, leaf := range t.Leaves() {
		for other, d := range leafDistances(leaf) {
			key := [2]string{leaf.Label, other.Label}
			if slices.IsSorted(key[:]) {
				out[key] = d
			}
		}
	}
	return out
}
