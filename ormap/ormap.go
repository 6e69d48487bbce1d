/*
Package ormap implements the observed-remove Map CRDT: for each string
key, a set of (value, dot) entries. Insert adds a fresh entry and
tombstones every entry this replica had locally observed at that key;
remove tombstones every entry this replica has observed. A read resolves
to the surviving entry with the highest dot, so concurrent writes to the
same key settle on a deterministic winner everywhere once every replica
has seen the same ops — the same last-writer-wins tie-break idiom as
package register, but scoped per key instead of to a whole value.
*/
package ormap

import (
	"github.com/brunokim/crlite/crdterr"
	"github.com/brunokim/crlite/dot"
	"github.com/brunokim/crlite/site"
)

// entry is one surviving (value, dot) pair at a key.
type entry[V any] struct {
	value V
	d     dot.Dot
}

// Op is the wire-level effect of Insert or Remove: it adds at most one
// new entry and tombstones zero or more previously-observed dots.
type Op[V any] struct {
	Key         string    `json:"key" cbor:"key"`
	AddedValue  *V        `json:"added_value,omitempty" cbor:"added_value,omitempty"`
	AddedDot    *dot.Dot  `json:"added_dot,omitempty" cbor:"added_dot,omitempty"`
	RemovedDots []dot.Dot `json:"removed_dots,omitempty" cbor:"removed_dots,omitempty"`
}

// Map is an observed-remove map keyed by string.
type Map[V any] struct {
	Clock     site.Clock
	entries   map[string][]entry[V]
	cachedOps []*Op[V]
}

// New returns an empty Map freshly created at site 1.
func New[V any]() *Map[V] {
	return &Map[V]{
		Clock:   site.Clock{SiteID: 1, Summary: dot.New()},
		entries: make(map[string][]entry[V]),
	}
}

// Get returns the surviving entry with the highest dot at key, per the
// same (counter, site) order used by package register.
func (m *Map[V]) Get(key string) (V, bool) {
	es := m.entries[key]
	var zero V
	if len(es) == 0 {
		return zero, false
	}
	best := es[0]
	for _, e := range es[1:] {
		if wins(e.d, best.d) {
			best = e
		}
	}
	return best.value, true
}

func wins(d, current dot.Dot) bool {
	if d.Counter != current.Counter {
		return d.Counter > current.Counter
	}
	return d.Site > current.Site
}

// Keys returns every key with at least one surviving entry.
func (m *Map[V]) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k, es := range m.entries {
		if len(es) > 0 {
			keys = append(keys, k)
		}
	}
	return keys
}

// Insert adds (key, v) under a fresh dot, tombstoning every entry this
// replica currently observes at key.
func (m *Map[V]) Insert(key string, v V) (*Op[V], error) {
	d := m.Clock.NextDot()
	removed := m.observedDots(key)
	m.entries[key] = []entry[V]{{value: v, d: d}}
	op := &Op[V]{Key: key, AddedValue: &v, AddedDot: &d, RemovedDots: removed}
	return m.emit(op)
}

// Remove tombstones every entry this replica currently observes at key.
func (m *Map[V]) Remove(key string) (*Op[V], error) {
	removed := m.observedDots(key)
	if len(removed) == 0 {
		return nil, nil
	}
	delete(m.entries, key)
	op := &Op[V]{Key: key, RemovedDots: removed}
	return m.emit(op)
}

func (m *Map[V]) observedDots(key string) []dot.Dot {
	es := m.entries[key]
	dots := make([]dot.Dot, len(es))
	for i, e := range es {
		dots[i] = e.d
	}
	return dots
}

func (m *Map[V]) emit(op *Op[V]) (*Op[V], error) {
	if !m.Clock.HasSiteID() {
		m.cachedOps = append(m.cachedOps, op)
		return op, crdterr.ErrAwaitingSiteID
	}
	return op, nil
}

// ExecuteOp applies a remote op: unions in the added entry (if any and
// not already observed) and drops the named dots, matching the teacher's
// tombstone-filtering idiom for deriving observable state.
func (m *Map[V]) ExecuteOp(op *Op[V]) {
	es := m.entries[op.Key]
	if op.AddedDot != nil && !m.Clock.Summary.Contains(*op.AddedDot) {
		es = append(es, entry[V]{value: *op.AddedValue, d: *op.AddedDot})
		m.Clock.Summary.Insert(*op.AddedDot)
	}
	if len(op.RemovedDots) > 0 {
		removed := make(map[dot.Dot]bool, len(op.RemovedDots))
		for _, d := range op.RemovedDots {
			removed[d] = true
			// Mark d seen even if its Insert hasn't arrived yet, so a
			// late-arriving Insert for an already-tombstoned dot is
			// rejected by the Contains check above instead of reviving it.
			m.Clock.Summary.Insert(d)
		}
		filtered := es[:0:0]
		for _, e := range es {
			if !removed[e.d] {
				filtered = append(filtered, e)
			}
		}
		es = filtered
	}
	if len(es) == 0 {
		delete(m.entries, op.Key)
	} else {
		m.entries[op.Key] = es
	}
}

// AddSiteID assigns siteID to a Map created or loaded unassigned.
func (m *Map[V]) AddSiteID(siteID dot.SiteID) ([]*Op[V], error) {
	err := m.Clock.AddSiteID(siteID, func(old, new dot.SiteID) {
		for key, es := range m.entries {
			for i := range es {
				if es[i].d.Site == old {
					es[i].d.Site = new
				}
			}
			m.entries[key] = es
		}
		for _, op := range m.cachedOps {
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
	drained := m.cachedOps
	m.cachedOps = nil
	return drained, nil
}

// wireEntry is the textual/binary representation of one stored entry.
type wireEntry[V any] struct {
	Key   string  `json:"key" cbor:"key"`
	Value V       `json:"value" cbor:"value"`
	Dot   dot.Dot `json:"dot" cbor:"dot"`
}

// State is the persisted snapshot of a Map, deliberately excluding the
// site id.
type State[V any] struct {
	Summary dot.Summary    `json:"summary" cbor:"summary"`
	Entries []wireEntry[V] `json:"entries" cbor:"entries"`
}

// State returns a persisted snapshot of m.
func (m *Map[V]) State() State[V] {
	var entries []wireEntry[V]
	for key, es := range m.entries {
		for _, e := range es {
			entries = append(entries, wireEntry[V]{Key: key, Value: e.value, Dot: e.d})
		}
	}
	return State[V]{Summary: m.Clock.Summary.Clone(), Entries: entries}
}

// FromState loads a Map from a persisted snapshot. siteID installs the
// replica's own site id; pass nil to load awaiting assignment.
func FromState[V any](st State[V], siteID *dot.SiteID) *Map[V] {
	m := &Map[V]{entries: make(map[string][]entry[V])}
	for _, we := range st.Entries {
		m.entries[we.Key] = append(m.entries[we.Key], entry[V]{value: we.Value, d: we.Dot})
	}
	m.Clock.Summary = st.Summary.Clone()
	if siteID != nil {
		m.Clock.SiteID = *siteID
	}
	return m
}
