package rankcache

import (
	"math/rand/v2"
	"strconv"
)

// Treap ordered by (score ASC, member ASC) where members compare as their
// decimal strings, matching Redis sorted-set ordering. Descending queries
// walk the same order from the other end.

type node struct {
	member int64
	key    string
	score  int32
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aScore, aKey) sorts before (bScore, bKey).
func less(aScore int32, aKey string, bScore int32, bKey string) bool {
	if aScore != bScore {
		return aScore < bScore
	}
	return aKey < bKey
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func memberKey(member int64) string {
	return strconv.FormatInt(member, 10)
}

func newNode(member int64, score int32) *node {
	return &node{
		member: member,
		key:    memberKey(member),
		score:  score,
		prio:   rand.Uint64(),
		size:   1,
	}
}

func insert(n, nn *node) *node {
	if n == nil {
		return nn
	}
	if less(nn.score, nn.key, n.score, n.key) {
		n.left = insert(n.left, nn)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, nn)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, key string, score int32) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && key == n.key:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, key, score)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, key, score)
		}
	case less(score, key, n.score, n.key):
		n.left = deleteNode(n.left, key, score)
	default:
		n.right = deleteNode(n.right, key, score)
	}
	fix(n)
	return n
}

// position returns the number of nodes sorting before (score, key).
func position(n *node, score int32, key string) int {
	pos := 0
	for n != nil {
		if less(n.score, n.key, score, key) {
			pos += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return pos
}

// countBelow returns the number of nodes with a score lower than score, or
// not higher when inclusive is set.
func countBelow(n *node, score int32, inclusive bool) int {
	c := 0
	for n != nil {
		if n.score < score || (inclusive && n.score == score) {
			c += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return c
}

// kth returns the node at 0-based ascending index k.
func kth(n *node, k int) *node {
	for n != nil {
		l := nsize(n.left)
		switch {
		case k < l:
			n = n.left
		case k == l:
			return n
		default:
			k -= l + 1
			n = n.right
		}
	}
	return nil
}

// collect appends members at ascending indexes [from, to) of the subtree
// whose first index is base.
func collect(n *node, base, from, to int, out *[]int64) {
	if n == nil || from >= to {
		return
	}
	idx := base + nsize(n.left)
	if from < idx {
		collect(n.left, base, from, to, out)
	}
	if idx >= from && idx < to {
		*out = append(*out, n.member)
	}
	if to > idx+1 {
		collect(n.right, idx+1, from, to, out)
	}
}
