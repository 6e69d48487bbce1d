/*
Package otree implements an order-statistic tree keyed by uid.UID: a
randomized treap (heap-ordered by an independent random priority, so it
stays balanced in expectation regardless of insertion order) augmented at
every node with the subtree's element count and the subtree's total
"length" (each element can represent more than one logical position, e.g.
a run of text characters).

This gives every sequence CRDT built on top of it (text, attributed
strings, JSON arrays) O(log n) expected-time:
  - insert/remove by UID,
  - rank-by-UID (how many logical positions precede a UID), and
  - lookup-by-rank (which element holds logical position k),

without the tree ever needing to know what its elements actually are.
*/
package otree

import (
	"math/rand/v2"

	"github.com/brunokim/crlite/crdterr"
	"github.com/brunokim/crlite/uid"
)

// Element is anything the tree can index: it must carry a stable UID and
// report how many logical positions it occupies.
type Element interface {
	ID() uid.UID
	Len() int
}

type node[E Element] struct {
	elem                   E
	priority               uint64
	left, right            *node[E]
	subtreeCount           int
	subtreeLen             int
}

func (n *node[E]) count() int {
	if n == nil {
		return 0
	}
	return n.subtreeCount
}

func (n *node[E]) length() int {
	if n == nil {
		return 0
	}
	return n.subtreeLen
}

func (n *node[E]) recompute() {
	n.subtreeCount = 1 + n.left.count() + n.right.count()
	n.subtreeLen = n.elem.Len() + n.left.length() + n.right.length()
}

// Tree is an order-statistic tree of elements ordered by their UID.
type Tree[E Element] struct {
	root *node[E]
}

// New returns an empty tree.
func New[E Element]() *Tree[E] {
	return &Tree[E]{}
}

// Len returns the number of elements in the tree.
func (t *Tree[E]) Len() int {
	return t.root.count()
}

// TotalLength returns the sum of every element's Len(), i.e. the number
// of logical positions the tree covers.
func (t *Tree[E]) TotalLength() int {
	return t.root.length()
}

func merge[E Element](left, right *node[E]) *node[E] {
	if left == nil {
		return right
	}
	if right == nil {
		return left
	}
	if left.priority > right.priority {
		left.right = merge(left.right, right)
		left.recompute()
		return left
	}
	right.left = merge(left, right.left)
	right.recompute()
	return right
}

// split partitions n into (≤key, >key) by UID order.
func split[E Element](n *node[E], key uid.UID) (left, right *node[E]) {
	if n == nil {
		return nil, nil
	}
	if n.elem.ID().Compare(key) <= 0 {
		l, r := split(n.right, key)
		n.right = l
		n.recompute()
		return n, r
	}
	l, r := split(n.left, key)
	n.left = r
	n.recompute()
	return l, n
}

// Insert adds elem to the tree. It returns crdterr.ErrDuplicateUID if an
// element with the same UID is already present.
func (t *Tree[E]) Insert(elem E) error {
	if _, ok := t.Lookup(elem.ID()); ok {
		return crdterr.ErrDuplicateUID
	}
	n := &node[E]{elem: elem, priority: rand.Uint64()}
	n.recompute()
	left, right := split[E](t.root, elem.ID())
	t.root = merge(merge(left, n), right)
	return nil
}

// Lookup returns the element with the given UID, if present.
func (t *Tree[E]) Lookup(id uid.UID) (E, bool) {
	n := t.root
	for n != nil {
		c := id.Compare(n.elem.ID())
		switch {
		case c == 0:
			return n.elem, true
		case c < 0:
			n = n.left
		default:
			n = n.right
		}
	}
	var zero E
	return zero, false
}

// Remove deletes the element with the given UID. It returns
// crdterr.ErrUIDDoesNotExist if absent.
func (t *Tree[E]) Remove(id uid.UID) error {
	root, ok := removeNode(t.root, id)
	if !ok {
		return crdterr.ErrUIDDoesNotExist
	}
	t.root = root
	return nil
}

func removeNode[E Element](n *node[E], id uid.UID) (*node[E], bool) {
	if n == nil {
		return nil, false
	}
	c := id.Compare(n.elem.ID())
	switch {
	case c == 0:
		return merge(n.left, n.right), true
	case c < 0:
		left, ok := removeNode(n.left, id)
		if !ok {
			return n, false
		}
		n.left = left
		n.recompute()
		return n, true
	default:
		right, ok := removeNode(n.right, id)
		if !ok {
			return n, false
		}
		n.right = right
		n.recompute()
		return n, true
	}
}

// Predecessor returns the UID of the element whose UID is the greatest
// one strictly less than id, or uid.Min if none exists.
func (t *Tree[E]) Predecessor(id uid.UID) uid.UID {
	n := t.root
	best := uid.Min
	for n != nil {
		if n.elem.ID().Less(id) {
			best = n.elem.ID()
			n = n.right
		} else {
			n = n.left
		}
	}
	return best
}

// Successor returns the UID of the element whose UID is the least one
// strictly greater than id, or uid.Max if none exists.
func (t *Tree[E]) Successor(id uid.UID) uid.UID {
	n := t.root
	best := uid.Max
	for n != nil {
		if n.elem.ID().Compare(id) > 0 {
			best = n.elem.ID()
			n = n.left
		} else {
			n = n.right
		}
	}
	return best
}

// LookupByRank returns the element covering logical position rank (a
// 0-based offset into the concatenation of every element's Len() logical
// positions, in UID order), along with the offset within that element.
// It returns crdterr.ErrOutOfBounds if rank is outside [0, TotalLength).
func (t *Tree[E]) LookupByRank(rank int) (elem E, offsetInElem int, err error) {
	if rank < 0 || rank >= t.root.length() {
		var zero E
		return zero, 0, crdterr.ErrOutOfBounds
	}
	n := t.root
	for {
		leftLen := n.left.length()
		if rank < leftLen {
			n = n.left
			continue
		}
		rank -= leftLen
		elemLen := n.elem.Len()
		if rank < elemLen {
			return n.elem, rank, nil
		}
		rank -= elemLen
		n = n.right
	}
}

// RankOf returns the logical offset of the first position covered by the
// element with the given UID.
func (t *Tree[E]) RankOf(id uid.UID) (int, error) {
	n := t.root
	rank := 0
	for n != nil {
		c := id.Compare(n.elem.ID())
		switch {
		case c == 0:
			return rank + n.left.length(), nil
		case c < 0:
			n = n.left
		default:
			rank += n.left.length() + n.elem.Len()
			n = n.right
		}
	}
	return 0, crdterr.ErrUIDDoesNotExist
}

// Iter calls f for every element in ascending UID order, stopping early
// if f returns false.
func (t *Tree[E]) Iter(f func(E) bool) {
	iter(t.root, f)
}

func iter[E Element](n *node[E], f func(E) bool) bool {
	if n == nil {
		return true
	}
	if !iter(n.left, f) {
		return false
	}
	if !f(n.elem) {
		return false
	}
	return iter(n.right, f)
}

// Elements returns every element in ascending UID order.
func (t *Tree[E]) Elements() []E {
	elems := make([]E, 0, t.Len())
	t.Iter(func(e E) bool {
		elems = append(elems, e)
		return true
	})
	return elems
}
