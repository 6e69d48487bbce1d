package otree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunokim/crlite/crdterr"
	"github.com/brunokim/crlite/dot"
	"github.com/brunokim/crlite/otree"
	"github.com/brunokim/crlite/uid"
)

// charElem is a minimal otree.Element: one rune at one UID.
type charElem struct {
	id uid.UID
	r  rune
}

func (e charElem) ID() uid.UID { return e.id }
func (e charElem) Len() int    { return 1 }

func genUIDs(n int) []uid.UID {
	lo, hi := uid.Min, uid.Max
	uids := make([]uid.UID, n)
	for i := 0; i < n; i++ {
		d := dot.Dot{Site: 1, Counter: dot.Counter(i + 1)}
		mid := uid.Between(lo, hi, d)
		uids[i] = mid
		lo = mid
	}
	return uids
}

func TestTree_InsertLookupRemove(t *testing.T) {
	tree := otree.New[charElem]()
	uids := genUIDs(5)
	for i, id := range uids {
		require.NoError(t, tree.Insert(charElem{id: id, r: rune('a' + i)}))
	}
	assert.Equal(t, 5, tree.Len())

	elem, ok := tree.Lookup(uids[2])
	require.True(t, ok)
	assert.Equal(t, rune('c'), elem.r)

	require.NoError(t, tree.Remove(uids[2]))
	assert.Equal(t, 4, tree.Len())
	_, ok = tree.Lookup(uids[2])
	assert.False(t, ok)

	assert.Error(t, tree.Remove(uids[2]))
}

func TestTree_InsertDuplicate(t *testing.T) {
	tree := otree.New[charElem]()
	id := genUIDs(1)[0]
	require.NoError(t, tree.Insert(charElem{id: id, r: 'x'}))
	assert.Error(t, tree.Insert(charElem{id: id, r: 'y'}))
}

func TestTree_IterIsUIDOrdered(t *testing.T) {
	tree := otree.New[charElem]()
	uids := genUIDs(10)
	// Insert in a shuffled-ish order (reverse) to exercise balancing.
	for i := len(uids) - 1; i >= 0; i-- {
		require.NoError(t, tree.Insert(charElem{id: uids[i], r: rune('a' + i)}))
	}

	var got []uid.UID
	tree.Iter(func(e charElem) bool {
		got = append(got, e.id)
		return true
	})
	require.Len(t, got, len(uids))
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Less(got[i]))
	}
}

func TestTree_LookupByRankAndRankOf(t *testing.T) {
	tree := otree.New[charElem]()
	uids := genUIDs(6)
	for i, id := range uids {
		require.NoError(t, tree.Insert(charElem{id: id, r: rune('a' + i)}))
	}

	for rank := 0; rank < 6; rank++ {
		elem, offset, err := tree.LookupByRank(rank)
		require.NoError(t, err)
		assert.Equal(t, 0, offset)
		assert.Equal(t, rune('a'+rank), elem.r)

		gotRank, err := tree.RankOf(elem.id)
		require.NoError(t, err)
		assert.Equal(t, rank, gotRank)
	}

	_, _, err := tree.LookupByRank(6)
	assert.ErrorIs(t, err, crdterr.ErrOutOfBounds)
}

func TestTree_PredecessorSuccessor(t *testing.T) {
	tree := otree.New[charElem]()
	uids := genUIDs(3)
	for i, id := range uids {
		require.NoError(t, tree.Insert(charElem{id: id, r: rune('a' + i)}))
	}

	assert.True(t, tree.Predecessor(uids[1]).Equal(uids[0]))
	assert.True(t, tree.Successor(uids[1]).Equal(uids[2]))
	assert.True(t, tree.Predecessor(uids[0]).Equal(uid.Min))
	assert.True(t, tree.Successor(uids[2]).Equal(uid.Max))
}
