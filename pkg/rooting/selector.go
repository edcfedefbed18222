package rooting

// selector tracks the running best candidate. A candidate replaces the
// incumbent only if it improves on it by more than epsilon, so among
// near-ties the first candidate offered wins.
type selector struct {
	epsilon float64
	best    candidate
	index   int // position of best in offer order, -1 before the first offer
	offered int
}

func newSelector(epsilon float64) *selector {
	return &selector{epsilon: epsilon, index: -1}
}

// offer considers c and reports whether it became the new best.
func (s *selector) offer(c candidate) bool {
	pos := s.offered
	s.offered++
	if s.index >= 0 && !(c.objective-s.best.objective < -s.epsilon) {
		return false
	}
	s.best, s.index = c, pos
	return true
}

// rank returns up to k candidates ordered best first. Rank r is the winner
// of a selector run, in the given order, over the candidates not yet ranked.
// A winner whose root point was already ranked is dropped, so the result
// holds distinct rootings and may be shorter than k.
func rank(cands []candidate, k int, epsilon float64) []candidate {
	taken := make([]bool, len(cands))
	seen := make(map[rootPoint]bool, k)
	out := make([]candidate, 0, min(k, len(cands)))
	for left := len(cands); len(out) < k && left > 0; left-- {
		sel := newSelector(epsilon)
		idx := make([]int, 0, left)
		for i, c := range cands {
			if taken[i] {
				continue
			}
			idx = append(idx, i)
			sel.offer(c)
		}
		win := idx[sel.index]
		taken[win] = true
		if p := pointOf(cands[win]); !seen[p] {
			seen[p] = true
			out = append(out, cands[win])
		}
	}
	return out
}

// rootPoint identifies where a candidate puts the root. A root clamped to
// either end of its edge sits on a node, which neighbouring edges share.
type rootPoint struct {
	node     int
	interior bool
}

// pointTolerance is the relative distance from an edge end below which an
// offset counts as lying on the end node.
const pointTolerance = 1e-12

func pointOf(c candidate) rootPoint {
	l := c.node.Length
	tol := pointTolerance * max(1, l)
	switch {
	case c.offset >= l-tol && c.node.Parent != nil:
		return rootPoint{node: c.node.Parent.Index}
	case c.offset <= tol:
		return rootPoint{node: c.node.Index}
	}
	return rootPoint{node: c.node.Index, interior: true}
}
