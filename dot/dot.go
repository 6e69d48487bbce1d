// Package dot provides the causal-identifier scheme shared by every CRDT
// in this module: a site-scoped monotone counter (Dot) and the per-site
// high-water-mark table that summarizes which dots a replica has observed
// (Summary).
package dot

import (
	"fmt"

	"github.com/brunokim/crlite/crdterr"
)

// SiteID identifies a replica. Site 0 is the "unassigned" sentinel used
// by CRDTs that were loaded from state before being told which site they
// are.
type SiteID = uint32

// Counter is a site-scoped, monotonically increasing op sequence number.
type Counter = uint32

// Dot uniquely names one operation: the site that generated it, and that
// site's counter value at generation time.
type Dot struct {
	Site    SiteID
	Counter Counter
}

// String renders a dot as "S<site>@<counter>", matching the teacher's
// AtomID.String convention.
func (d Dot) String() string {
	return fmt.Sprintf("S%d@%d", d.Site, d.Counter)
}

// Compare orders dots lexicographically by (site, counter).
func (d Dot) Compare(other Dot) int {
	if d.Site != other.Site {
		if d.Site < other.Site {
			return -1
		}
		return +1
	}
	if d.Counter != other.Counter {
		if d.Counter < other.Counter {
			return -1
		}
		return +1
	}
	return 0
}

// Less reports whether d sorts strictly before other under Compare.
func (d Dot) Less(other Dot) bool { return d.Compare(other) < 0 }

// Summary is a per-site max-counter table: a version vector recording, for
// each site, the highest counter this replica has observed from it.
// Entries for sites never observed are implicitly 0.
type Summary struct {
	counters map[SiteID]Counter
}

// New returns an empty summary.
func New() Summary {
	return Summary{counters: make(map[SiteID]Counter)}
}

// Get returns the highest counter observed for site, or 0 if none.
func (s Summary) Get(site SiteID) Counter {
	return s.counters[site]
}

// Increment advances site's counter by one and returns the new value.
func (s Summary) Increment(site SiteID) Counter {
	s.counters[site]++
	return s.counters[site]
}

// GetDot atomically increments site's counter and returns the resulting
// dot. Every mutating CRDT method calls this before touching local state,
// so that the dot is consumed even if the caller later discards the op.
func (s Summary) GetDot(site SiteID) Dot {
	return Dot{Site: site, Counter: s.Increment(site)}
}

// Contains reports whether dot has already been observed by this summary.
func (s Summary) Contains(d Dot) bool {
	return s.counters[d.Site] >= d.Counter
}

// Insert records dot as observed, advancing the site's entry if dot's
// counter is higher than what's already recorded.
func (s Summary) Insert(d Dot) {
	if d.Counter > s.counters[d.Site] {
		s.counters[d.Site] = d.Counter
	}
}

// Merge folds other into s, taking the pointwise maximum of every site's
// counter.
func (s Summary) Merge(other Summary) {
	for site, counter := range other.counters {
		if counter > s.counters[site] {
			s.counters[site] = counter
		}
	}
}

// Clone returns an independent copy of s.
func (s Summary) Clone() Summary {
	c := make(map[SiteID]Counter, len(s.counters))
	for site, counter := range s.counters {
		c[site] = counter
	}
	return Summary{counters: c}
}

// AddSiteID remaps the unassigned site-0 entry, if any, to siteID. It is a
// one-shot operation: callers must ensure siteID isn't already in use by
// this summary, and must call it exactly once per CRDT lifecycle
// transition (0 -> k).
func (s Summary) AddSiteID(siteID SiteID) {
	counter, ok := s.counters[0]
	if !ok {
		return
	}
	delete(s.counters, 0)
	if counter > s.counters[siteID] {
		s.counters[siteID] = counter
	}
}

// ValidateNoUnassignedSites fails if the summary still has an entry for
// the unassigned site 0, which would indicate a state was shared between
// replicas before every embedded dot was rewritten to a real site.
func (s Summary) ValidateNoUnassignedSites() error {
	if _, ok := s.counters[0]; ok {
		return crdterr.ErrInvalidSiteID
	}
	return nil
}

// ViewableAt reports whether d would be visible to a replica whose
// observed history is exactly summarized by at, i.e. whether at already
// contains d. Named separately from Contains to read naturally at
// call sites that are asking "was this dot part of the document as of
// this snapshot" rather than "have I already applied this op".
func (at Summary) ViewableAt(d Dot) bool {
	return at.Contains(d)
}

// Sites returns the set of site IDs with a nonzero entry, for iteration
// (e.g. by test harnesses).
func (s Summary) Sites() []SiteID {
	sites := make([]SiteID, 0, len(s.counters))
	for site := range s.counters {
		sites = append(sites, site)
	}
	return sites
}

// MarshalJSON encodes the summary as a sequence of [site, counter] pairs
// rather than a JSON object, so that the wire format doesn't depend on
// JSON's string-only object keys (spec requirement: integer-keyed maps
// serialize as pair sequences).
func (s Summary) MarshalJSON() ([]byte, error) {
	return marshalPairs(s.counters)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *Summary) UnmarshalJSON(data []byte) error {
	m, err := unmarshalPairs(data)
	if err != nil {
		return err
	}
	s.counters = m
	return nil
}
