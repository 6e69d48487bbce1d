/*
Package register implements the last-writer-wins Register CRDT: a
single value paired with the dot that last wrote it. Conflicting
concurrent writes resolve deterministically by dot order — higher
counter wins, ties broken by higher site id — so every replica that
observes the same set of writes converges on the same value regardless
of delivery order.
*/
package register

import (
	"github.com/brunokim/crlite/crdterr"
	"github.com/brunokim/crlite/dot"
	"github.com/brunokim/crlite/site"
)

// Op is the wire-level effect of Update.
type Op[V any] struct {
	Value V       `json:"value" cbor:"value"`
	Dot   dot.Dot `json:"dot" cbor:"dot"`
}

// Register is a last-writer-wins single value.
type Register[V any] struct {
	Clock     site.Clock
	value     V
	writeDot  dot.Dot
	cachedOps []*Op[V]
}

// New returns a Register holding the zero value of V, freshly created
// at site 1.
func New[V any]() *Register[V] {
	return &Register[V]{Clock: site.Clock{SiteID: 1, Summary: dot.New()}}
}

// Value returns the current value.
func (r *Register[V]) Value() V { return r.value }

// State is the persisted snapshot of a Register, deliberately excluding
// the site id (see package site for why site assignment is
// receiver-local).
type State[V any] struct {
	Summary  dot.Summary `json:"summary" cbor:"summary"`
	Value    V           `json:"value" cbor:"value"`
	WriteDot dot.Dot     `json:"write_dot" cbor:"write_dot"`
}

// State returns a persisted snapshot of r.
func (r *Register[V]) State() State[V] {
	return State[V]{Summary: r.Clock.Summary.Clone(), Value: r.value, WriteDot: r.writeDot}
}

// FromState loads a Register from a persisted snapshot. siteID installs
// the replica's own site id; pass nil to load awaiting assignment.
func FromState[V any](st State[V], siteID *dot.SiteID) *Register[V] {
	r := &Register[V]{value: st.Value, writeDot: st.WriteDot}
	r.Clock.Summary = st.Summary.Clone()
	if siteID != nil {
		r.Clock.SiteID = *siteID
	}
	return r
}

// wins reports whether a write with dot d should overwrite the current
// value: strictly higher counter wins, ties broken by higher site id.
func wins(d, current dot.Dot) bool {
	if d.Counter != current.Counter {
		return d.Counter > current.Counter
	}
	return d.Site > current.Site
}

// Update replaces the value with v under a freshly drawn dot.
func (r *Register[V]) Update(v V) (*Op[V], error) {
	d := r.Clock.NextDot()
	r.value = v
	r.writeDot = d
	op := &Op[V]{Value: v, Dot: d}
	if !r.Clock.HasSiteID() {
		r.cachedOps = append(r.cachedOps, op)
		return op, crdterr.ErrAwaitingSiteID
	}
	return op, nil
}

// ExecuteOp applies a remote write, accepting it only if its dot
// strictly wins over the write currently held.
func (r *Register[V]) ExecuteOp(op *Op[V]) {
	if r.Clock.Summary.Contains(op.Dot) {
		return
	}
	r.Clock.Summary.Insert(op.Dot)
	if wins(op.Dot, r.writeDot) {
		r.value = op.Value
		r.writeDot = op.Dot
	}
}

// AddSiteID assigns siteID to a Register created or loaded unassigned.
func (r *Register[V]) AddSiteID(siteID dot.SiteID) ([]*Op[V], error) {
	err := r.Clock.AddSiteID(siteID, func(old, new dot.SiteID) {
		if r.writeDot.Site == old {
			r.writeDot.Site = new
		}
		for _, op := range r.cachedOps {
			if op.Dot.Site == old {
				op.Dot.Site = new
			}
		}
	})
	if err != nil {
		return nil, err
	}
	drained := r.cachedOps
	r.cachedOps = nil
	return drained, nil
}
