package rooting

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	fio "github.com/matzehuels/fastroot/pkg/io"
	"github.com/matzehuels/fastroot/pkg/tree"
)

func parse(t *testing.T, s string) *tree.Tree {
	t.Helper()
	tr, err := fio.ParseNewick(s)
	require.NoError(t, err)
	return tr
}

// randomTree joins random pairs of subtrees until two or three remain.
// About one edge in ten has length zero.
func randomTree(rng *rand.Rand, leaves int) *tree.Tree {
	length := func() float64 {
		if rng.Intn(10) == 0 {
			return 0
		}
		return 0.05 + rng.Float64()*2
	}
	pool := make([]*tree.Node, leaves)
	for i := range pool {
		pool[i] = tree.NewNode(fmt.Sprintf("L%d", i))
	}
	stop := 2 + rng.Intn(2)
	for len(pool) > stop {
		i := rng.Intn(len(pool))
		a := pool[i]
		pool = append(pool[:i], pool[i+1:]...)
		j := rng.Intn(len(pool))
		b := pool[j]
		pool = append(pool[:j], pool[j+1:]...)
		parent := tree.NewNode("")
		parent.AddChild(a, length())
		parent.AddChild(b, length())
		pool = append(pool, parent)
	}
	root := tree.NewNode("")
	for _, n := range pool {
		root.AddChild(n, length())
	}
	return tree.New(root)
}

func randomTimes(rng *rand.Rand, t *tree.Tree) map[string]float64 {
	times := make(map[string]float64)
	for _, leaf := range t.Leaves() {
		times[leaf.Label] = rng.Float64() * 10
	}
	return times
}

// leafDistances returns the distance from v to every leaf, walking the tree
// as an undirected graph.
func leafDistances(v *tree.Node) map[*tree.Node]float64 {
	out := make(map[*tree.Node]float64)
	type item struct {
		n, from *tree.Node
		d       float64
	}
	stack := []item{{n: v}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if it.n.IsLeaf() {
			out[it.n] = it.d
		}
		if p := it.n.Parent; p != nil && p != it.from {
			stack = append(stack, item{p, it.n, it.d + it.n.Length})
		}
		for _, c := range it.n.Children {
			if c != it.from {
				stack = append(stack, item{c, it.n, it.d + c.Length})
			}
		}
	}
	return out
}

func inSubtree(n, anc *tree.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == anc {
			return true
		}
	}
	return false
}

// rootToTip returns the root-to-tip distance of every leaf of a rooted tree.
func rootToTip(t *tree.Tree) map[string]float64 {
	out := make(map[string]float64)
	for leaf, d := range leafDistances(t.Root()) {
		out[leaf.Label] = d
	}
	return out
}

// directObjective evaluates a method's objective on a rooted tree from the
// root-to-tip distances alone.
func directObjective(m Method, t *tree.Tree, times map[string]float64, og map[string]bool) float64 {
	d := rootToTip(t)
	n := float64(len(d))
	switch m {
	case Midpoint:
		best := math.Inf(-1)
		for _, v := range d {
			best = math.Max(best, v)
		}
		return best
	case MinVar:
		var s, ss float64
		for _, v := range d {
			s += v
			ss += v * v
		}
		return ss/n - s*s/(n*n)
	case Regression:
		var std, stt float64
		for label, v := range d {
			std += times[label] * v
			stt += times[label] * times[label]
		}
		mu := 0.0
		if stt > 0 {
			mu = math.Max(std/stt, 0)
		}
		var rss float64
		for label, v := range d {
			r := mu*times[label] - v
			rss += r * r
		}
		return rss
	case Outgroup:
		// Misplaced leaves for the better side of the root split.
		root := t.Root()
		best := math.Inf(1)
		for _, side := range root.Children {
			below := make(map[string]bool)
			for _, l := range tree.LeafLabels(side) {
				below[l] = true
			}
			miss := 0
			for label := range d {
				if below[label] != og[label] {
					miss++
				}
			}
			best = math.Min(best, float64(miss))
		}
		return best
	}
	panic("unknown method")
}
