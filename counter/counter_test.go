package counter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/brunokim/crlite/counter"
)

func TestIncrement_AccumulatesLocally(t *testing.T) {
	c := counter.New()
	_, err := c.Increment(3)
	require.NoError(t, err)
	_, err = c.Increment(-1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Value())
}

// TestAdditivity mirrors spec §8: after arbitrary interleaving of
// increments at multiple sites, the total equals the sum of all
// increments, applied exactly once per unique dot.
func TestAdditivity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(2, 6).Draw(rt, "n")
		sites := make([]*counter.Counter, n)
		var want int64
		var allOps []*counter.Op
		for i := range sites {
			sites[i] = counter.FromState(counter.State{}, nil)
			if _, err := sites[i].AddSiteID(uint32(i + 1)); err != nil {
				rt.Fatalf("add site id: %v", err)
			}
		}
		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for s := 0; s < steps; s++ {
			i := rapid.IntRange(0, n-1).Draw(rt, "site")
			amount := int64(rapid.IntRange(-5, 5).Draw(rt, "amount"))
			op, err := sites[i].Increment(amount)
			if err != nil {
				rt.Fatalf("increment: %v", err)
			}
			want += amount
			allOps = append(allOps, op)
		}

		for _, c := range sites {
			for _, op := range allOps {
				c.ExecuteOp(op)
			}
			// Replaying every op a second time must not double-count.
			for _, op := range allOps {
				c.ExecuteOp(op)
			}
			if c.Value() != want {
				rt.Fatalf("got %d, want %d", c.Value(), want)
			}
		}
	})
}
