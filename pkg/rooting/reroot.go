package rooting

import (
	"fmt"

	"github.com/matzehuels/fastroot/pkg/tree"
)

// reroot splits the edge above c at distance offset from c, hangs a new root
// there and reverses the parent chain from c's old parent up to the old
// root. The old root is suppressed if it is left with a single child. The
// tree is re-indexed.
func reroot(t *tree.Tree, c *tree.Node, offset float64) error {
	p := c.Parent
	if p == nil {
		return fmt.Errorf("reroot: node %s has no parent edge", c)
	}
	oldRoot := t.Root()
	l := c.Length
	offset = clamp(offset, 0, l)

	if err := p.RemoveChild(c); err != nil {
		return fmt.Errorf("reroot: %w", err)
	}
	root := tree.NewNode("")
	root.AddChild(c, offset)

	prev, cur, curLen := root, p, l-offset
	for cur != nil {
		next, nextLen := cur.Parent, cur.Length
		if next != nil {
			if err := next.RemoveChild(cur); err != nil {
				return fmt.Errorf("reroot: %w", err)
			}
		}
		prev.AddChild(cur, curLen)
		prev, cur, curLen = cur, next, nextLen
	}

	t.SetRoot(root)
	t.SuppressUnifurcation(oldRoot)
	return nil
}
