package jsonval

import (
	"github.com/brunokim/crlite/crdterr"
	"github.com/brunokim/crlite/dot"
	"github.com/brunokim/crlite/otree"
	"github.com/brunokim/crlite/site"
	"github.com/brunokim/crlite/uid"
)

// ArrayElement is one position in a JSON array: a stable UID and the
// nested Json node it holds. Every element has Len() 1 — unlike text
// runs, array entries are never merged or split.
type ArrayElement struct {
	UID   uid.UID `json:"uid" cbor:"uid"`
	Value *Json   `json:"value" cbor:"value"`
}

// ID implements otree.Element.
func (e ArrayElement) ID() uid.UID { return e.UID }

// Len implements otree.Element.
func (e ArrayElement) Len() int { return 1 }

// ArrayOp is the wire-level effect of an array insert or remove.
type ArrayOp struct {
	InsertedElements []ArrayElement `json:"inserted_elements,omitempty" cbor:"inserted_elements,omitempty"`
	RemovedUIDs      []uid.UID      `json:"removed_uids,omitempty" cbor:"removed_uids,omitempty"`
}

// arrayCRDT is the ordered-sequence-of-Json engine backing a KindArray
// node: an order-statistic tree of ArrayElement, generalizing package
// text's tree usage to nested composite values instead of string runs.
type arrayCRDT struct {
	Clock     site.Clock
	tree      *otree.Tree[ArrayElement]
	cachedOps []*ArrayOp
}

func newArrayCRDT() *arrayCRDT {
	return &arrayCRDT{Clock: site.Clock{SiteID: 1, Summary: dot.New()}, tree: otree.New[ArrayElement]()}
}

func (a *arrayCRDT) insertAt(idx int, value *Json) (*ArrayOp, error) {
	n := a.tree.Len()
	if idx < 0 || idx > n {
		return nil, crdterr.ErrOutOfBounds
	}
	d := a.Clock.NextDot()

	predUID := uid.Min
	if idx > 0 {
		elem, _, err := a.tree.LookupByRank(idx - 1)
		if err != nil {
			return nil, err
		}
		predUID = elem.ID()
	}
	succUID := uid.Max
	if idx < n {
		elem, _, err := a.tree.LookupByRank(idx)
		if err != nil {
			return nil, err
		}
		succUID = elem.ID()
	}

	newID := uid.Between(predUID, succUID, d)
	elem := ArrayElement{UID: newID, Value: value}
	if err := a.tree.Insert(elem); err != nil {
		return nil, err
	}
	return a.emit(&ArrayOp{InsertedElements: []ArrayElement{elem}})
}

func (a *arrayCRDT) removeAt(idx int) (*ArrayOp, error) {
	elem, _, err := a.tree.LookupByRank(idx)
	if err != nil {
		return nil, err
	}
	if err := a.tree.Remove(elem.ID()); err != nil {
		return nil, err
	}
	return a.emit(&ArrayOp{RemovedUIDs: []uid.UID{elem.ID()}})
}

func (a *arrayCRDT) emit(op *ArrayOp) (*ArrayOp, error) {
	if !a.Clock.HasSiteID() {
		a.cachedOps = append(a.cachedOps, op)
		return op, crdterr.ErrAwaitingSiteID
	}
	return op, nil
}

func (a *arrayCRDT) executeOp(op *ArrayOp) {
	for _, elem := range op.InsertedElements {
		d := dot.Dot{Site: elem.UID.Site(), Counter: elem.UID.Counter()}
		if a.Clock.Summary.Contains(d) {
			continue
		}
		if err := a.tree.Insert(elem); err != nil {
			continue
		}
		a.Clock.Summary.Insert(d)
	}
	for _, id := range op.RemovedUIDs {
		// Mark the UID's originating dot seen even if its Insert hasn't
		// arrived yet, so a later-arriving Insert for an already-removed
		// UID is rejected by the Contains check above instead of
		// resurrecting it.
		d := dot.Dot{Site: id.Site(), Counter: id.Counter()}
		a.Clock.Summary.Insert(d)
		a.tree.Remove(id)
	}
}

func (a *arrayCRDT) addSiteID(siteID dot.SiteID) ([]*ArrayOp, error) {
	err := a.Clock.AddSiteID(siteID, func(old, new dot.SiteID) {
		rewritten := otree.New[ArrayElement]()
		a.tree.Iter(func(e ArrayElement) bool {
			e.UID = rewriteArrayUID(e.UID, old, new)
			rewritten.Insert(e)
			return true
		})
		a.tree = rewritten
		for _, op := range a.cachedOps {
			for i := range op.InsertedElements {
				op.InsertedElements[i].UID = rewriteArrayUID(op.InsertedElements[i].UID, old, new)
			}
			for i := range op.RemovedUIDs {
				op.RemovedUIDs[i] = rewriteArrayUID(op.RemovedUIDs[i], old, new)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	drained := a.cachedOps
	a.cachedOps = nil
	return drained, nil
}

func rewriteArrayUID(u uid.UID, old, new dot.SiteID) uid.UID {
	path := make([]uid.PathElem, len(u.Path))
	for i, e := range u.Path {
		if e.Site == old {
			e.Site = new
		}
		path[i] = e
	}
	return uid.UID{Path: path}
}

// ArrayState is the persisted snapshot of an array node.
type ArrayState struct {
	Summary  dot.Summary    `json:"summary" cbor:"summary"`
	Elements []ArrayElement `json:"elements" cbor:"elements"`
}

func (a *arrayCRDT) state() ArrayState {
	return ArrayState{Summary: a.Clock.Summary.Clone(), Elements: a.tree.Elements()}
}

func arrayFromState(st ArrayState, siteID *dot.SiteID) *arrayCRDT {
	tree := otree.New[ArrayElement]()
	for _, e := range st.Elements {
		tree.Insert(e)
	}
	c := site.Clock{Summary: st.Summary.Clone()}
	if siteID != nil {
		c.SiteID = *siteID
	}
	return &arrayCRDT{Clock: c, tree: tree}
}
