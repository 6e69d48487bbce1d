/*
Package crdtset implements the add-wins Set CRDT: a value is observable
iff at least one of the dots that added it hasn't been tombstoned. A
concurrent insert and remove of the same value therefore always
resolves in favor of the insert (add-wins), since the remove can only
tombstone dots it has already observed.
*/
package crdtset

import (
	"github.com/brunokim/crlite/crdterr"
	"github.com/brunokim/crlite/dot"
	"github.com/brunokim/crlite/site"
)

// Op is the wire-level effect of an insert or remove.
type Op[V comparable] struct {
	Value       V         `json:"value" cbor:"value"`
	AddedDot    *dot.Dot  `json:"added_dot,omitempty" cbor:"added_dot,omitempty"`
	RemovedDots []dot.Dot `json:"removed_dots,omitempty" cbor:"removed_dots,omitempty"`
}

// Set is an add-wins set of comparable values.
type Set[V comparable] struct {
	Clock     site.Clock
	dots      map[V]map[dot.Dot]bool
	cachedOps []*Op[V]
}

// New returns an empty Set freshly created at site 1.
func New[V comparable]() *Set[V] {
	return &Set[V]{
		Clock: site.Clock{SiteID: 1, Summary: dot.New()},
		dots:  make(map[V]map[dot.Dot]bool),
	}
}

// Entry is the wire form of one value's surviving dot set.
type Entry[V comparable] struct {
	Value V         `json:"value" cbor:"value"`
	Dots  []dot.Dot `json:"dots" cbor:"dots"`
}

// State is the persisted snapshot of a Set, deliberately excluding the
// site id (see package site for why site assignment is receiver-local).
type State[V comparable] struct {
	Summary dot.Summary `json:"summary" cbor:"summary"`
	Entries []Entry[V]  `json:"entries" cbor:"entries"`
}

// State returns a persisted snapshot of s.
func (s *Set[V]) State() State[V] {
	entries := make([]Entry[V], 0, len(s.dots))
	for v, dots := range s.dots {
		ds := make([]dot.Dot, 0, len(dots))
		for d := range dots {
			ds = append(ds, d)
		}
		entries = append(entries, Entry[V]{Value: v, Dots: ds})
	}
	return State[V]{Summary: s.Clock.Summary.Clone(), Entries: entries}
}

// FromState loads a Set from a persisted snapshot. siteID installs the
// replica's own site id; pass nil to load awaiting assignment.
func FromState[V comparable](st State[V], siteID *dot.SiteID) *Set[V] {
	s := &Set[V]{dots: make(map[V]map[dot.Dot]bool)}
	for _, e := range st.Entries {
		m := make(map[dot.Dot]bool, len(e.Dots))
		for _, d := range e.Dots {
			m[d] = true
		}
		s.dots[e.Value] = m
	}
	s.Clock.Summary = st.Summary.Clone()
	if siteID != nil {
		s.Clock.SiteID = *siteID
	}
	return s
}

// Contains reports whether v currently has a surviving dot.
func (s *Set[V]) Contains(v V) bool {
	return len(s.dots[v]) > 0
}

// Values returns every value with at least one surviving dot.
func (s *Set[V]) Values() []V {
	values := make([]V, 0, len(s.dots))
	for v, dots := range s.dots {
		if len(dots) > 0 {
			values = append(values, v)
		}
	}
	return values
}

// Insert adds v with a fresh dot.
func (s *Set[V]) Insert(v V) (*Op[V], error) {
	d := s.Clock.NextDot()
	if s.dots[v] == nil {
		s.dots[v] = make(map[dot.Dot]bool)
	}
	s.dots[v][d] = true
	op := &Op[V]{Value: v, AddedDot: &d}
	return s.emit(op)
}

// Remove tombstones every dot currently observed for v.
func (s *Set[V]) Remove(v V) (*Op[V], error) {
	existing := s.dots[v]
	if len(existing) == 0 {
		return nil, nil
	}
	removed := make([]dot.Dot, 0, len(existing))
	for d := range existing {
		removed = append(removed, d)
	}
	delete(s.dots, v)
	op := &Op[V]{Value: v, RemovedDots: removed}
	return s.emit(op)
}

func (s *Set[V]) emit(op *Op[V]) (*Op[V], error) {
	if !s.Clock.HasSiteID() {
		s.cachedOps = append(s.cachedOps, op)
		return op, crdterr.ErrAwaitingSiteID
	}
	return op, nil
}

// ExecuteOp applies a remote op: insert ops union the dot set, remove
// ops drop the named dots, and the value stays observable as long as any
// dot survives.
func (s *Set[V]) ExecuteOp(op *Op[V]) {
	if op.AddedDot != nil {
		if s.Clock.Summary.Contains(*op.AddedDot) {
			return
		}
		if s.dots[op.Value] == nil {
			s.dots[op.Value] = make(map[dot.Dot]bool)
		}
		s.dots[op.Value][*op.AddedDot] = true
		s.Clock.Summary.Insert(*op.AddedDot)
	}
	for _, d := range op.RemovedDots {
		// Mark d seen even if its Insert hasn't arrived yet, so that a
		// late-arriving Insert for an already-tombstoned dot is rejected
		// by the Contains check above instead of reviving the value.
		s.Clock.Summary.Insert(d)
		delete(s.dots[op.Value], d)
	}
	if len(s.dots[op.Value]) == 0 {
		delete(s.dots, op.Value)
	}
}

// AddSiteID assigns siteID to a Set created or loaded unassigned.
func (s *Set[V]) AddSiteID(siteID dot.SiteID) ([]*Op[V], error) {
	err := s.Clock.AddSiteID(siteID, func(old, new dot.SiteID) {
		rewritten := make(map[V]map[dot.Dot]bool, len(s.dots))
		for v, dots := range s.dots {
			nd := make(map[dot.Dot]bool, len(dots))
			for d := range dots {
				if d.Site == old {
					d.Site = new
				}
				nd[d] = true
			}
			rewritten[v] = nd
		}
		s.dots = rewritten
		for _, op := range s.cachedOps {
			if op.AddedDot != nil && op.AddedDot.Site == old {
				d := *op.AddedDot
				d.Site = new
				op.AddedDot = &d
			}
			for i, d := range op.RemovedDots {
				if d.Site == old {
					d.Site = new
					op.RemovedDots[i] = d
				}
			}
		}
	})
	if err != nil {
		return nil, err
	}
	drained := s.cachedOps
	s.cachedOps = nil
	return drained, nil
}
