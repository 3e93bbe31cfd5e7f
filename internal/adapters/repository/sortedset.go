package repository

import "math/rand/v2"

// sortedSet is an in-memory treap ordered by (score ASC, member ASC), with
// subtree sizes for positional access. A reverse walk therefore lists equal
// scores by member descending, the same order Redis uses for ZREVRANGE.
//
// sortedSet is not safe for concurrent use; callers hold their own lock.
type sortedSet struct {
	root   *ssNode
	scores map[string]float64
}

type ssNode struct {
	member string
	score  float64
	prio   uint64
	left   *ssNode
	right  *ssNode
	size   int
}

// member is one (member, score) pair read back from a sortedSet.
type member struct {
	id    string
	score float64
}

func newSortedSet() *sortedSet {
	return &sortedSet{scores: make(map[string]float64)}
}

func nsize(n *ssNode) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *ssNode) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// before reports whether (aScore, aID) sorts before (bScore, bID).
func before(aScore float64, aID string, bScore float64, bID string) bool {
	if aScore != bScore {
		return aScore < bScore
	}
	return aID < bID
}

func rotateRight(y *ssNode) *ssNode {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *ssNode) *ssNode {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *ssNode, id string, score float64, prio uint64) *ssNode {
	if n == nil {
		return &ssNode{member: id, score: score, prio: prio, size: 1}
	}
	if before(score, id, n.score, n.member) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *ssNode, id string, score float64) *ssNode {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.member:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, score)
		}
	case before(score, id, n.score, n.member):
		n.left = remove(n.left, id, score)
	default:
		n.right = remove(n.right, id, score)
	}
	fix(n)
	return n
}

// Set inserts id or replaces its score.
func (s *sortedSet) Set(id string, score float64) {
	if old, ok := s.scores[id]; ok {
		if old == score {
			return
		}
		s.root = remove(s.root, id, old)
	}
	s.scores[id] = score
	s.root = insert(s.root, id, score, rand.Uint64())
}

// Score returns the score of id.
func (s *sortedSet) Score(id string) (float64, bool) {
	v, ok := s.scores[id]
	return v, ok
}

// Len returns the number of members.
func (s *sortedSet) Len() int {
	return len(s.scores)
}

// RangeByScore returns members with min <= score <= max, ascending.
func (s *sortedSet) RangeByScore(min, max float64) []string {
	var out []string
	collectRange(s.root, min, max, &out)
	return out
}

func collectRange(n *ssNode, min, max float64, out *[]string) {
	if n == nil {
		return
	}
	if n.score >= min {
		collectRange(n.left, min, max, out)
	}
	if n.score >= min && n.score <= max {
		*out = append(*out, n.member)
	}
	if n.score <= max {
		collectRange(n.right, min, max, out)
	}
}

// RevRange returns up to limit members by score descending, skipping the
// first offset of them.
func (s *sortedSet) RevRange(offset, limit int) []member {
	if offset >= s.Len() || limit < 1 {
		return nil
	}
	out := make([]member, 0, min(limit, s.Len()-offset))
	skip := offset
	collectRev(s.root, &skip, limit, &out)
	return out
}

func collectRev(n *ssNode, skip *int, limit int, out *[]member) {
	if n == nil || len(*out) >= limit {
		return
	}
	if *skip >= n.size {
		*skip -= n.size
		return
	}
	collectRev(n.right, skip, limit, out)
	if len(*out) >= limit {
		return
	}
	if *skip > 0 {
		*skip--
	} else {
		*out = append(*out, member{id: n.member, score: n.score})
	}
	collectRev(n.left, skip, limit, out)
}
