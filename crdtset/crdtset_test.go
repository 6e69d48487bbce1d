package crdtset_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunokim/crlite/crdtset"
	"github.com/brunokim/crlite/dot"
)

// TestAddWins mirrors spec §8's concrete scenario: two sites both insert
// 10, one removes it; after exchange 10 survives because the other
// site's insert dot was never observed by the remover.
func TestAddWins(t *testing.T) {
	a := crdtset.New[int]()
	b := crdtset.FromState(crdtset.State[int]{}, nil)
	_, err := b.AddSiteID(dot.SiteID(2))
	require.NoError(t, err)

	opA, err := a.Insert(10) // site 1's insert
	require.NoError(t, err)
	opB, err := b.Insert(10) // site 2's concurrent insert, not yet seen by a
	require.NoError(t, err)

	// a removes 10 having only observed its own insert.
	opRemoveA, err := a.Remove(10)
	require.NoError(t, err)
	assert.False(t, a.Contains(10))

	// Full exchange: b learns of a's insert and removal; a learns of b's
	// insert. b's insert dot was never named by the removal, so it
	// survives on both replicas: add-wins.
	b.ExecuteOp(opA)
	b.ExecuteOp(opRemoveA)
	a.ExecuteOp(opB)

	assert.True(t, a.Contains(10))
	assert.True(t, b.Contains(10))
}

// TestOutOfOrderRemoveThenInsertStaysRemoved mirrors spec.md's "causal
// delivery is not required" note: a fresh replica receiving a value's
// Remove op before its Insert op must still end up without the value,
// matching a replica that received them (or made them) in order.
func TestOutOfOrderRemoveThenInsertStaysRemoved(t *testing.T) {
	a := crdtset.New[string]()
	opA, err := a.Insert("x")
	require.NoError(t, err)
	opRemoveA, err := a.Remove("x")
	require.NoError(t, err)
	assert.False(t, a.Contains("x"))

	fresh := crdtset.FromState(crdtset.State[string]{}, nil)
	_, err = fresh.AddSiteID(dot.SiteID(2))
	require.NoError(t, err)

	// Remove arrives before the Insert it names.
	fresh.ExecuteOp(opRemoveA)
	fresh.ExecuteOp(opA)

	assert.False(t, fresh.Contains("x"))
}

func TestRemoveNonExistentIsNoop(t *testing.T) {
	s := crdtset.New[string]()
	op, err := s.Remove("missing")
	assert.NoError(t, err)
	assert.Nil(t, op)
}

func TestExecuteOp_Idempotent(t *testing.T) {
	a := crdtset.New[int]()
	op, err := a.Insert(5)
	require.NoError(t, err)

	b := crdtset.New[int]()
	b.ExecuteOp(op)
	b.ExecuteOp(op)
	assert.True(t, b.Contains(5))
	assert.Len(t, b.Values(), 1)
}
