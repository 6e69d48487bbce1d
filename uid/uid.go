/*
Package uid implements the dense, globally-ordered position identifiers
that every sequence-shaped CRDT (text, arrays, attributed strings) is
built on.

A UID is a variable-length path of (index, site, counter) triples,
allocated LSEQ-style: to insert between two existing UIDs a and b, walk
both paths level by level until they diverge, then draw a fresh index
from the gap at that level. The per-level index space doubles with depth
(baseBits bits at depth 1, baseBits+d-1 bits at depth d), following an
alternating boundary+ / boundary- strategy so that allocations don't
pile up against either end of the range as a sequence grows.

  # BEGIN ASCII ART

   MIN                                                          MAX
    |                                                             |
    |--- depth 1: [0, 2^baseBits) ---------------------------------|
    |      |                                                       |
    |      '-- depth 2: [0, 2^(baseBits+1)) per parent slot --------'

  # END ASCII ART
  # ALT TEXT: A number line from MIN to MAX. The top level divides the
              line into a small number of depth-1 slots; each slot that
              needs finer resolution recurses into a depth-2 range twice
              as wide, and so on.

Two UIDs from different sites landing on the same index at the same
depth never collide, because the generating dot's (site, counter) is
appended to the new path element.
*/
package uid

import (
	"fmt"
	"hash"
	"hash/fnv"
	"math/rand/v2"

	"github.com/brunokim/crlite/dot"
)

const (
	// baseBits is the bit width of the index space at depth 1.
	baseBits = 3
	// boundary caps how wide a single allocation's candidate range can
	// be, so that concurrent inserts at the same site spread out across
	// the tree instead of bunching at one edge.
	boundary = 10
)

// PathElem is one level of a UID's path.
type PathElem struct {
	Index   uint32
	Site    dot.SiteID
	Counter dot.Counter
}

// UID is a position identifier: a path of PathElem triples, totally
// ordered lexicographically by depth, then by (index, site, counter)
// within each depth.
type UID struct {
	Path []PathElem
}

// maxSentinelIndex is larger than any index boundAt can produce for any
// depth that fits in a uint32 exponent, so Max always compares greater
// than any UID generated by Between.
const maxSentinelIndex = ^uint32(0)

// Min is the sentinel UID preceding every real element in a sequence.
var Min = UID{Path: nil}

// Max is the sentinel UID following every real element in a sequence.
var Max = UID{Path: []PathElem{{Index: maxSentinelIndex}}}

// String renders a UID as a dotted path of "index@site.counter" parts,
// mainly for debugging and test failure messages.
func (u UID) String() string {
	if len(u.Path) == 0 {
		return "MIN"
	}
	s := ""
	for i, e := range u.Path {
		if i > 0 {
			s += "."
		}
		s += fmt.Sprintf("%d@%d#%d", e.Index, e.Site, e.Counter)
	}
	return s
}

func compareElem(a, b PathElem) int {
	if a.Index != b.Index {
		if a.Index < b.Index {
			return -1
		}
		return +1
	}
	if a.Site != b.Site {
		if a.Site < b.Site {
			return -1
		}
		return +1
	}
	if a.Counter != b.Counter {
		if a.Counter < b.Counter {
			return -1
		}
		return +1
	}
	return 0
}

// Compare orders UIDs lexicographically over their path of (index, site,
// counter) triples. A path that is a proper prefix of another sorts
// before it.
func (u UID) Compare(other UID) int {
	n := len(u.Path)
	if len(other.Path) < n {
		n = len(other.Path)
	}
	for i := 0; i < n; i++ {
		if c := compareElem(u.Path[i], other.Path[i]); c != 0 {
			return c
		}
	}
	if len(u.Path) == len(other.Path) {
		return 0
	}
	if len(u.Path) < len(other.Path) {
		return -1
	}
	return 1
}

// Less reports whether u sorts strictly before other.
func (u UID) Less(other UID) bool { return u.Compare(other) < 0 }

// Equal reports whether u and other are the same position.
func (u UID) Equal(other UID) bool { return u.Compare(other) == 0 }

// Site returns the site that generated the UID's deepest path element, or
// 0 for the sentinels.
func (u UID) Site() dot.SiteID {
	if len(u.Path) == 0 {
		return 0
	}
	return u.Path[len(u.Path)-1].Site
}

// Counter returns the counter of the UID's deepest path element, or 0 for
// the sentinels.
func (u UID) Counter() dot.Counter {
	if len(u.Path) == 0 {
		return 0
	}
	return u.Path[len(u.Path)-1].Counter
}

// width returns the bit width of the index space at the given depth
// (depth 1 is the root level).
func width(depth int) uint {
	return uint(baseBits + depth - 1)
}

// boundAt returns the exclusive upper bound of the index space at depth.
func boundAt(depth int) uint32 {
	w := width(depth)
	if w >= 32 {
		return maxSentinelIndex
	}
	return uint32(1) << w
}

// elemAt returns the path element of u at the given depth (1-based), and
// whether it exists.
func elemAt(u UID, depth int) (PathElem, bool) {
	if depth < 1 || depth > len(u.Path) {
		return PathElem{}, false
	}
	return u.Path[depth-1], true
}

// seed derives a deterministic 64-bit seed from (a, b, dot, depth) so that
// Between is a pure function of its arguments: the same (a, b) pair
// requested by the same dot always allocates the same index, which lets
// add_site rewrite stored UIDs in place instead of regenerating them.
func seed(a, b UID, d dot.Dot, depth int) uint64 {
	h := fnv.New64a()
	writeUID(h, a)
	h.Write([]byte{0})
	writeUID(h, b)
	h.Write([]byte{0})
	writeUint32(h, d.Site)
	writeUint32(h, d.Counter)
	writeUint32(h, uint32(depth))
	return h.Sum64()
}

func writeUID(h hash.Hash64, u UID) {
	for _, e := range u.Path {
		writeUint32(h, e.Index)
		writeUint32(h, e.Site)
		writeUint32(h, e.Counter)
	}
}

func writeUint32(h hash.Hash64, v uint32) {
	h.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

// generateIndex picks an index in (lo, hi) at the given depth, using the
// boundary+ strategy on odd depths and boundary- on even depths, per
// spec.md §3.
func generateIndex(lo, hi uint32, depth int, rng *rand.Rand) uint32 {
	var rangeLo, rangeHi uint32
	if depth%2 == 1 {
		// boundary+: favor the low end of the gap.
		rangeLo = lo + 1
		rangeHi = lo + boundary
		if rangeHi > hi {
			rangeHi = hi
		}
	} else {
		// boundary-: favor the high end of the gap.
		rangeLo = lo + 1
		if hi > lo+boundary {
			rangeLo = hi - boundary
		}
		rangeHi = hi
	}
	if rangeHi <= rangeLo {
		return rangeLo
	}
	return rangeLo + uint32(rng.IntN(int(rangeHi-rangeLo)))
}

// Between returns a UID u such that a < u < b, given a < b. It is
// deterministic given (a, b, dot): the randomness used to pick an index
// within an allocation's candidate range is itself seeded from a hash of
// the inputs, so replaying the same (a, b, dot) — as add_site does when
// rewriting cached UIDs to a freshly-assigned site — reproduces the exact
// same UID without needing to persist or re-thread an RNG.
func Between(a, b UID, d dot.Dot) UID {
	var prefix []PathElem
	depth := 1
	for {
		aElem, aHas := elemAt(a, depth)
		bElem, bHas := elemAt(b, depth)

		var lo, hi uint32
		var inherited PathElem
		var hasInherited bool

		switch {
		case aHas && bHas && aElem.Index == bElem.Index:
			// Shared ancestor at this depth; descend further.
			prefix = append(prefix, aElem)
			depth++
			continue
		case aHas && bHas:
			lo, hi = aElem.Index, bElem.Index
			inherited, hasInherited = aElem, true
		case aHas && !bHas:
			lo, hi = aElem.Index, boundAt(depth)
			inherited, hasInherited = aElem, true
		case !aHas && bHas:
			lo, hi = 0, bElem.Index
			if hi == 0 {
				inherited, hasInherited = bElem, true
			} else {
				inherited, hasInherited = PathElem{Index: 0, Site: d.Site, Counter: d.Counter}, true
			}
		default:
			lo, hi = 0, boundAt(depth)
		}
		if bound := boundAt(depth); hi > bound {
			hi = bound
		}

		if hi > lo+1 {
			rng := rand.New(rand.NewPCG(seed(a, b, d, depth), 0))
			idx := generateIndex(lo, hi, depth, rng)
			path := make([]PathElem, len(prefix), len(prefix)+1)
			copy(path, prefix)
			path = append(path, PathElem{Index: idx, Site: d.Site, Counter: d.Counter})
			return UID{Path: path}
		}

		// No room at this depth; descend under an element that keeps
		// the result inside (a, b): a's own element when a has one,
		// otherwise an index-0 element below b's.
		if hasInherited {
			prefix = append(prefix, inherited)
		}
		depth++
	}
}
