/*
Package site provides the lifecycle machinery shared by every CRDT type
in this module: a UUID-backed registry mapping stable replica identities
to the small integer dot.SiteID values used internally, and a generic
Clock embeddable in any CRDT that needs "operate locally before knowing
my site id, then rewrite everything once assigned" semantics.

This generalizes the teacher's Sitemap/siteIndex/remapSite trio: instead
of one RGA hardcoding the site-0-rewrite dance, any CRDT embeds a Clock
and calls AddSiteID with a callback that knows how to walk its own
internal UIDs and dots.
*/
package site

import (
	"github.com/google/uuid"

	"github.com/brunokim/crlite/crdterr"
	"github.com/brunokim/crlite/dot"
)

// Registry assigns small, dense dot.SiteID values to replica UUIDs, in
// the order they're first seen. Site 0 is reserved for "not yet
// assigned" and is never handed out by Assign.
type Registry struct {
	ids []uuid.UUID // in first-seen order, ids[i-1] corresponds to site i
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Assign returns the site id for id, registering it if this is the first
// time it's been seen. Site ids are 1-based; 0 is reserved for
// "unassigned".
func (r *Registry) Assign(id uuid.UUID) dot.SiteID {
	for i, known := range r.ids {
		if known == id {
			return dot.SiteID(i + 1)
		}
	}
	r.ids = append(r.ids, id)
	return dot.SiteID(len(r.ids))
}

// Fork mints a fresh replica UUID, registers it, and returns both the
// UUID and its assigned site id. This generalizes the teacher's
// CausalTree.Fork/RList.Fork (mint a uuidv1, splice it into the sitemap)
// into a single Registry method any CRDT-holding application can call
// when spinning up a new simulated editor.
func (r *Registry) Fork() (uuid.UUID, dot.SiteID, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return uuid.UUID{}, 0, err
	}
	return id, r.Assign(id), nil
}

// Lookup returns the UUID registered for siteID, if any.
func (r *Registry) Lookup(siteID dot.SiteID) (uuid.UUID, bool) {
	if siteID == 0 || int(siteID) > len(r.ids) {
		return uuid.UUID{}, false
	}
	return r.ids[siteID-1], true
}

// Clock is the embeddable per-CRDT lifecycle state: its own site id (0
// until assigned) and its summary of observed dots. Ops produced before
// a site id was known are cached by the owning CRDT, not by Clock.
type Clock struct {
	SiteID  dot.SiteID
	Summary dot.Summary
}

// NewClock returns a Clock with no site id yet assigned.
func NewClock() Clock {
	return Clock{SiteID: 0, Summary: dot.New()}
}

// NextDot consumes the next local dot for this clock's site.
func (c *Clock) NextDot() dot.Dot {
	return c.Summary.GetDot(c.SiteID)
}

// HasSiteID reports whether the clock has a site id other than the
// unassigned 0, whether it was set by AddSiteID or directly.
func (c *Clock) HasSiteID() bool {
	return c.SiteID != 0
}

// AddSiteID assigns siteID to a clock that was operating under the
// unassigned site 0, rewriting its own summary and invoking rewrite so
// the owning CRDT can remap any UIDs or dots it cached under site 0. It
// returns crdterr.ErrAlreadyHasSiteID if called twice.
func (c *Clock) AddSiteID(siteID dot.SiteID, rewrite func(old dot.SiteID, new dot.SiteID)) error {
	if c.HasSiteID() {
		return crdterr.ErrAlreadyHasSiteID
	}
	c.SiteID = siteID
	c.Summary.AddSiteID(siteID)
	if rewrite != nil {
		rewrite(0, siteID)
	}
	return nil
}
