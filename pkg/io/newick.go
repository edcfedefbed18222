package io

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/evolbioinfo/gotree/io/newick"
	gotree "github.com/evolbioinfo/gotree/tree"

	"github.com/matzehuels/fastroot/pkg/tree"
)

// ReadNewick decodes every tree in r. Trees are separated by ';' and may
// span several lines; whitespace between records is ignored.
//
// ReadNewick returns an error if a record is not valid Newick. The error
// names the 1-based position of the offending tree. ReadNewick does not
// close r.
func ReadNewick(r io.Reader) ([]*tree.Tree, error) {
	records, err := SplitNewick(r)
	if err != nil {
		return nil, err
	}
	trees := make([]*tree.Tree, 0, len(records))
	for i, rec := range records {
		t, err := ParseNewick(rec)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i+1, err)
		}
		trees = append(trees, t)
	}
	return trees, nil
}

// ImportNewick reads the Newick file at path with [ReadNewick].
func ImportNewick(path string) ([]*tree.Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadNewick(f)
}

// SplitNewick splits r into ';'-terminated Newick records without parsing
// them. Semicolons inside quoted labels and [comments] do not end a record.
// A trailing record without ';' is returned with one appended.
func SplitNewick(r io.Reader) ([]string, error) {
	br := bufio.NewReader(r)
	var (
		records []string
		cur     strings.Builder
		quote   rune
		depth   int // comment nesting
	)
	for {
		ch, _, err := br.ReadRune()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read newick: %w", err)
		}
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case depth > 0:
			if ch == ']' {
				depth--
			} else if ch == '[' {
				depth++
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '[':
			depth++
		case ch == ';':
			cur.WriteRune(ch)
			records = append(records, strings.TrimSpace(cur.String()))
			cur.Reset()
			continue
		}
		cur.WriteRune(ch)
	}
	if rest := strings.TrimSpace(cur.String()); rest != "" {
		records = append(records, rest+";")
	}
	return records, nil
}

// ParseNewick parses a single Newick record.
//
// Node names become labels. Internal nodes without a name but with a
// support value keep the support as their label so that it survives a
// round trip. Edges without a length are left without one; [tree.Tree.Validate]
// reports them.
func ParseNewick(s string) (*tree.Tree, error) {
	gt, err := newick.NewParser(strings.NewReader(s)).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse newick: %w", err)
	}
	return fromGotree(gt)
}

func fromGotree(gt *gotree.Tree) (*tree.Tree, error) {
	groot := gt.Root()
	if groot == nil {
		return nil, fmt.Errorf("parse newick: empty tree")
	}
	root := tree.NewNode(groot.Name())

	type frame struct {
		g, prev *gotree.Node
		n       *tree.Node
	}
	stack := []frame{{g: groot, n: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		edges := f.g.Edges()
		var children []frame
		for i, nb := range f.g.Neigh() {
			if nb == f.prev {
				continue
			}
			e := edges[i]
			child := tree.NewNode(nb.Name())
			if child.Label == "" && !nb.Tip() && e.Support() != gotree.NIL_SUPPORT {
				child.Label = strconv.FormatFloat(e.Support(), 'g', -1, 64)
			}
			f.n.Children = append(f.n.Children, child)
			child.Parent = f.n
			if l := e.Length(); l != gotree.NIL_LENGTH {
				child.SetLength(l)
			}
			children = append(children, frame{g: nb, prev: f.g, n: child})
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return tree.New(root), nil
}

// toGotree converts t for writing. comment, if non-nil, returns the
// comments attached after each node.
func toGotree(t *tree.Tree, comment func(*tree.Node) []string) *gotree.Tree {
	gt := gotree.NewTree()
	nodes := make([]*gotree.Node, t.Len())
	for _, n := range t.Nodes() {
		g := gt.NewNode()
		g.SetName(n.Label)
		if comment != nil {
			for _, c := range comment(n) {
				g.AddComment(c)
			}
		}
		nodes[n.Index] = g
		if n.IsRoot() {
			gt.SetRoot(g)
			continue
		}
		e := gt.ConnectNodes(nodes[n.Parent.Index], g)
		if n.HasLength {
			e.SetLength(n.Length)
		}
	}
	return gt
}

// Newick returns t in Newick format, terminated by ';'.
func Newick(t *tree.Tree) string {
	return toGotree(t, nil).Newick()
}

// WriteNewick writes t to w in Newick format followed by a newline.
func WriteNewick(t *tree.Tree, w io.Writer) error {
	_, err := io.WriteString(w, Newick(t)+"\n")
	return err
}

// AnnotatedNewick returns t in Newick format with the objective of every
// edge written as a comment on the edge's child node, for example
// "A[&score=0.25]:1". scores is indexed by node index; NaN entries are
// skipped.
func AnnotatedNewick(t *tree.Tree, scores []float64) string {
	return toGotree(t, func(n *tree.Node) []string {
		if n.Index >= len(scores) || math.IsNaN(scores[n.Index]) {
			return nil
		}
		return []string{"&score=" + strconv.FormatFloat(scores[n.Index], 'g', 6, 64)}
	}).Newick()
}
