package tree

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrNoRoot is returned by [Tree.Validate] when the tree has no root node.
	ErrNoRoot = errors.New("tree has no root")

	// ErrMissingLength is returned by [Tree.Validate] when a non-root node has
	// no edge length. Every statistic pass requires defined edge lengths.
	ErrMissingLength = errors.New("missing edge length")

	// ErrNegativeLength is returned by [Tree.Validate] when a non-root node has
	// a negative edge length.
	ErrNegativeLength = errors.New("negative edge length")

	// ErrEmptyLabel is returned by [Tree.Validate] when a leaf has no label.
	// Leaf labels are the identity used to attach covariates and outgroups.
	ErrEmptyLabel = errors.New("leaf label must not be empty")

	// ErrDuplicateLabel is returned by [Tree.Validate] when two leaves share a label.
	ErrDuplicateLabel = errors.New("duplicate leaf label")

	// ErrNotChild is returned by [Node.RemoveChild] when the node is not a
	// child of the receiver.
	ErrNotChild = errors.New("node is not a child")
)

// Node is a vertex of a rooted tree. The edge to the parent is stored on the
// child: Length is only meaningful when HasLength is true, and the root's
// edge length is ignored.
//
// Index is a dense slot number in [0, Tree.Len()) assigned by [Tree.Reindex].
// Algorithms use it to keep per-node scratch data in plain slices.
type Node struct {
	Label     string
	Length    float64
	HasLength bool
	Parent    *Node
	Children  []*Node
	Index     int
}

// NewNode creates a detached node with the given label.
func NewNode(label string) *Node {
	return &Node{Label: label, Index: -1}
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.Parent == nil }

// SetLength sets the length of the edge to the parent.
func (n *Node) SetLength(l float64) {
	n.Length = l
	n.HasLength = true
}

// AddChild appends child to n's children and sets the connecting edge length.
// Any previous parent link of child is overwritten but not cleaned up; callers
// moving a subtree must call [Node.RemoveChild] on the old parent first.
func (n *Node) AddChild(child *Node, length float64) {
	child.Parent = n
	child.SetLength(length)
	n.Children = append(n.Children, child)
}

// RemoveChild detaches child from n. The child keeps its edge length but
// loses its parent link. Returns ErrNotChild if child is not attached to n.
func (n *Node) RemoveChild(child *Node) error {
	i := slices.Index(n.Children, child)
	if i < 0 {
		return ErrNotChild
	}
	n.Children = slices.Delete(n.Children, i, i+1)
	child.Parent = nil
	return nil
}

// String returns the label, or a positional placeholder for unlabeled nodes.
func (n *Node) String() string {
	if n.Label != "" {
		return n.Label
	}
	return fmt.Sprintf("#%d", n.Index)
}

// Tree is a rooted, weighted, possibly multifurcating tree.
//
// The zero value is not usable - use [New] to create a tree from its root.
// Tree is not safe for concurrent use; independent trees share no state.
type Tree struct {
	root  *Node
	nodes []*Node // pre-order, nodes[i].Index == i
}

// New creates a tree rooted at root and indexes every node reachable from it.
func New(root *Node) *Tree {
	t := &Tree{root: root}
	if root != nil {
		root.Parent = nil
	}
	t.Reindex()
	return t
}

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() *Node { return t.root }

// SetRoot makes n the root and re-indexes the tree. The caller is responsible
// for having rewired parent links so that n has no parent.
func (t *Tree) SetRoot(n *Node) {
	t.root = n
	if n != nil {
		n.Parent = nil
	}
	t.Reindex()
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Nodes returns all nodes in pre-order. The returned slice is shared with the
// tree and must not be modified.
func (t *Tree) Nodes() []*Node { return t.nodes }

// Node returns the node with the given slot index.
func (t *Tree) Node(index int) *Node { return t.nodes[index] }

// Reindex recomputes the pre-order node list and every Node.Index.
// It must be called after any structural change made through Node methods.
func (t *Tree) Reindex() {
	t.nodes = t.nodes[:0]
	if t.root == nil {
		return
	}
	stack := []*Node{t.root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n.Index = len(t.nodes)
		t.nodes = append(t.nodes, n)
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// PreOrder returns the nodes with every parent before its children, children
// visited left to right.
func (t *Tree) PreOrder() []*Node { return slices.Clone(t.nodes) }

// PostOrder returns the nodes with every child before its parent.
func (t *Tree) PostOrder() []*Node {
	out := make([]*Node, 0, len(t.nodes))
	if t.root == nil {
		return out
	}
	type frame struct {
		n    *Node
		next int
	}
	stack := []frame{{n: t.root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.n.Children) {
			child := top.n.Children[top.next]
			top.next++
			stack = append(stack, frame{n: child})
			continue
		}
		out = append(out, top.n)
		stack = stack[:len(stack)-1]
	}
	return out
}

// Leaves returns the leaves in pre-order (left to right).
func (t *Tree) Leaves() []*Node {
	var leaves []*Node
	for _, n := range t.nodes {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
	}
	return leaves
}

// NumLeaves returns the number of leaves.
func (t *Tree) NumLeaves() int {
	count := 0
	for _, n := range t.nodes {
		if n.IsLeaf() {
			count++
		}
	}
	return count
}

// LeafLabels returns the leaf labels below n in left-to-right order.
func LeafLabels(n *Node) []string {
	var labels []string
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur.IsLeaf() {
			labels = append(labels, cur.Label)
			continue
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return labels
}

// Validate checks the invariants every rooting pass relies on: a root exists,
// every non-root node has a non-negative edge length, and leaf labels are
// non-empty and unique. Errors are wrapped with the offending node.
func (t *Tree) Validate() error {
	if t.root == nil {
		return ErrNoRoot
	}
	seen := make(map[string]bool)
	for _, n := range t.nodes {
		if !n.IsRoot() {
			if !n.HasLength {
				return fmt.Errorf("node %s: %w", n, ErrMissingLength)
			}
			if n.Length < 0 {
				return fmt.Errorf("node %s (%g): %w", n, n.Length, ErrNegativeLength)
			}
		}
		if !n.IsLeaf() {
			continue
		}
		if n.Label == "" {
			return fmt.Errorf("leaf %d: %w", n.Index, ErrEmptyLabel)
		}
		if seen[n.Label] {
			return fmt.Errorf("leaf %s: %w", n.Label, ErrDuplicateLabel)
		}
		seen[n.Label] = true
	}
	return nil
}

// Clone returns a deep copy. Node indices are preserved, so slot i of the
// clone corresponds to slot i of the original.
func (t *Tree) Clone() *Tree {
	if t.root == nil {
		return &Tree{}
	}
	copies := make([]*Node, len(t.nodes))
	for i, n := range t.nodes {
		copies[i] = &Node{
			Label:     n.Label,
			Length:    n.Length,
			HasLength: n.HasLength,
			Index:     n.Index,
			Children:  make([]*Node, 0, len(n.Children)),
		}
	}
	for i, n := range t.nodes {
		c := copies[i]
		if n.Parent != nil {
			c.Parent = copies[n.Parent.Index]
		}
		for _, child := range n.Children {
			c.Children = append(c.Children, copies[child.Index])
		}
	}
	return &Tree{root: copies[t.root.Index], nodes: copies}
}

// SuppressUnifurcation removes an internal node n with exactly one child,
// connecting that child directly to n's parent with the summed edge length.
// If n is the root, its child becomes the new root. It reports whether n was
// removed. The tree is re-indexed when a node is removed.
func (t *Tree) SuppressUnifurcation(n *Node) bool {
	if len(n.Children) != 1 {
		return false
	}
	child := n.Children[0]
	if n.IsRoot() {
		child.Parent = nil
		child.HasLength = false
		child.Length = 0
		n.Children = nil
		t.SetRoot(child)
		return true
	}
	parent := n.Parent
	i := slices.Index(parent.Children, n)
	parent.Children[i] = child
	child.Parent = parent
	child.SetLength(n.Length + child.Length)
	n.Parent = nil
	n.Children = nil
	t.Reindex()
	return true
}

// Unroot turns a bifurcating or unifurcating root into an interior node of
// degree three or more, so that every edge of the tree is a distinct edge of
// the underlying unrooted tree. The first internal child of a two-child root
// becomes the new root and absorbs its sibling with the summed edge length.
// A root whose two children are both leaves is left unchanged. It reports
// whether the tree changed.
func (t *Tree) Unroot() bool {
	root := t.root
	if root == nil {
		return false
	}
	if len(root.Children) == 1 {
		return t.SuppressUnifurcation(root)
	}
	if len(root.Children) != 2 {
		return false
	}
	left, right := root.Children[0], root.Children[1]
	newRoot, other := left, right
	if left.IsLeaf() {
		if right.IsLeaf() {
			return false
		}
		newRoot, other = right, left
	}
	length := newRoot.Length + other.Length
	root.Children = nil
	newRoot.AddChild(other, length)
	newRoot.HasLength = false
	newRoot.Length = 0
	t.SetRoot(newRoot)
	return true
}
