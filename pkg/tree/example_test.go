package tree_test

import (
	"fmt"

	"github.com/matzehuels/fastroot/pkg/tree"
)

func ExampleTree_basic() {
	// ((A:1,B:1):2,C:3);
	inner := tree.NewNode("")
	inner.AddChild(tree.NewNode("A"), 1)
	inner.AddChild(tree.NewNode("B"), 1)
	root := tree.NewNode("")
	root.AddChild(inner, 2)
	root.AddChild(tree.NewNode("C"), 3)

	t := tree.New(root)
	fmt.Println("Nodes:", t.Len())
	fmt.Println("Leaves:", t.NumLeaves())
	fmt.Println("Labels:", tree.LeafLabels(t.Root()))
	fmt.Println("Valid:", t.Validate() == nil)
	// Output:
	// Nodes: 5
	// Leaves: 3
	// Labels: [A B C]
	// Valid: true
}

func ExampleTree_Unroot() {
	// A bifurcating root is folded into its internal child.
	inner := tree.NewNode("")
	inner.AddChild(tree.NewNode("A"), 1)
	inner.AddChild(tree.NewNode("B"), 1)
	root := tree.NewNode("")
	root.AddChild(inner, 2)
	root.AddChild(tree.NewNode("C"), 3)
	t := tree.New(root)

	t.Unroot()
	fmt.Println("Root children:", len(t.Root().Children))
	for _, c := range t.Root().Children {
		fmt.Printf("%s:%g\n", c.Label, c.Length)
	}
	// Output:
	// Root children: 3
	// A:1
	// B:1
	// C:5
}
