/*
Package counter implements a PN-counter: a per-site signed accumulator
whose total value is the sum across every site. Increments (positive or
negative) are associative and commutative by construction, and each op
is gated by the Summary so a replayed op is never double-counted.
*/
package counter

import (
	"github.com/brunokim/crlite/crdterr"
	"github.com/brunokim/crlite/dot"
	"github.com/brunokim/crlite/site"
)

// Op carries one site's new accumulator value and the delta that
// produced it, so a receiver can apply it without needing to know the
// sender's full history.
type Op struct {
	SiteDot    dot.Dot `json:"site_dot" cbor:"site_dot"`
	NewCounter int64   `json:"new_counter" cbor:"new_counter"`
	Delta      int64   `json:"delta" cbor:"delta"`
}

// Counter is a PN-counter.
type Counter struct {
	Clock        site.Clock
	accumulators map[dot.SiteID]int64
	cachedOps    []*Op
}

// New returns a Counter at zero, freshly created at site 1.
func New() *Counter {
	return &Counter{
		Clock:        site.Clock{SiteID: 1, Summary: dot.New()},
		accumulators: make(map[dot.SiteID]int64),
	}
}

// Value returns the sum of every site's accumulator.
func (c *Counter) Value() int64 {
	var total int64
	for _, v := range c.accumulators {
		total += v
	}
	return total
}

// Accumulator is one site's entry in a persisted Counter snapshot, kept
// as a pair sequence rather than a keyed map per the integer-keyed-map
// wire rule.
type Accumulator struct {
	Site  dot.SiteID `json:"site" cbor:"site"`
	Value int64      `json:"value" cbor:"value"`
}

// State is the persisted snapshot of a Counter, deliberately excluding
// the site id (see package site for why site assignment is
// receiver-local).
type State struct {
	Summary      dot.Summary   `json:"summary" cbor:"summary"`
	Accumulators []Accumulator `json:"accumulators" cbor:"accumulators"`
}

// State returns a persisted snapshot of c.
func (c *Counter) State() State {
	accs := make([]Accumulator, 0, len(c.accumulators))
	for site, v := range c.accumulators {
		accs = append(accs, Accumulator{Site: site, Value: v})
	}
	return State{Summary: c.Clock.Summary.Clone(), Accumulators: accs}
}

// FromState loads a Counter from a persisted snapshot. siteID installs
// the replica's own site id; pass nil to load awaiting assignment.
func FromState(st State, siteID *dot.SiteID) *Counter {
	c := &Counter{accumulators: make(map[dot.SiteID]int64, len(st.Accumulators))}
	for _, a := range st.Accumulators {
		c.accumulators[a.Site] = a.Value
	}
	c.Clock.Summary = st.Summary.Clone()
	if siteID != nil {
		c.Clock.SiteID = *siteID
	}
	return c
}

// Increment advances the local site's accumulator by amount (negative
// amounts decrement).
func (c *Counter) Increment(amount int64) (*Op, error) {
	d := c.Clock.NextDot()
	c.accumulators[c.Clock.SiteID] += amount
	op := &Op{SiteDot: d, NewCounter: c.accumulators[c.Clock.SiteID], Delta: amount}
	if !c.Clock.HasSiteID() {
		c.cachedOps = append(c.cachedOps, op)
		return op, crdterr.ErrAwaitingSiteID
	}
	return op, nil
}

// ExecuteOp applies a remote increment, rejecting it if its dot is
// already reflected in the summary.
func (c *Counter) ExecuteOp(op *Op) {
	if c.Clock.Summary.Contains(op.SiteDot) {
		return
	}
	c.Clock.Summary.Insert(op.SiteDot)
	c.accumulators[op.SiteDot.Site] = op.NewCounter
}

// AddSiteID assigns siteID to a Counter created or loaded unassigned.
func (c *Counter) AddSiteID(siteID dot.SiteID) ([]*Op, error) {
	err := c.Clock.AddSiteID(siteID, func(old, new dot.SiteID) {
		if v, ok := c.accumulators[old]; ok {
			delete(c.accumulators, old)
			c.accumulators[new] += v
		}
		for _, op := range c.cachedOps {
			if op.SiteDot.Site == old {
				op.SiteDot.Site = new
			}
		}
	})
	if err != nil {
		return nil, err
	}
	drained := c.cachedOps
	c.cachedOps = nil
	return drained, nil
}
