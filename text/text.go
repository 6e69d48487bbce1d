/*
Package text implements the run-length text CRDT: a Text value is a
sequence of string-valued elements ordered by uid.UID, stored in an
otree.Tree, with a single local "pending edit" that batches adjacent
keystrokes into one op instead of emitting one per character.

An element's own UID doubles as its provenance: the UID's deepest path
triple is (index, site, counter), and (site, counter) is exactly the dot
that generated the element. execute_op never needs a separate dot field
on the wire — it recovers it from the inserted element's own UID.
*/
package text

import (
	"strings"
	"unicode/utf8"

	"github.com/brunokim/crlite/crdterr"
	"github.com/brunokim/crlite/dot"
	"github.com/brunokim/crlite/otree"
	"github.com/brunokim/crlite/site"
	"github.com/brunokim/crlite/uid"
)

// Element is one run of text at a stable position.
type Element struct {
	UID  uid.UID `json:"uid" cbor:"uid"`
	Text string  `json:"text" cbor:"text"`
}

// ID implements otree.Element.
func (e Element) ID() uid.UID { return e.UID }

// Len implements otree.Element, counting Unicode scalars.
func (e Element) Len() int { return utf8.RuneCountInString(e.Text) }

// Op is the wire-level effect of a Text mutation: a set of newly-visible
// elements and a set of UIDs no longer visible.
type Op struct {
	InsertedElements []Element `json:"inserted_elements" cbor:"inserted_elements"`
	RemovedUIDs      []uid.UID `json:"removed_uids" cbor:"removed_uids"`
}

// LocalOp describes one splice into the local string view, derived by
// diffing local_value() before and after an op is applied.
type LocalOp struct {
	Idx  int
	Len  int
	Text string
}

type pendingEdit struct {
	idx  int
	text []rune
	rem  int
}

// Text is a CRDT string.
type Text struct {
	Clock     site.Clock
	tree      *otree.Tree[Element]
	pending   *pendingEdit
	cachedOps []*Op
	attrs     []AttributeRun
}

// New returns an empty Text freshly created at site 1.
func New() *Text {
	return &Text{
		Clock: site.Clock{SiteID: 1, Summary: dot.New()},
		tree:  otree.New[Element](),
	}
}

// FromStr returns a Text whose initial content is s.
func FromStr(s string) (*Text, error) {
	t := New()
	if _, err := t.Replace(0, 0, s); err != nil {
		return nil, err
	}
	return t, nil
}

// TextState is the wire-level persisted form of a Text: summary and
// elements, but deliberately not the site id (see package site for why
// site assignment is a receiver-local concern).
type TextState struct {
	Summary  dot.Summary `json:"summary" cbor:"summary"`
	Elements []Element   `json:"elements" cbor:"elements"`
}

// State returns the persisted snapshot of t, flushing any pending edit
// first so the snapshot reflects the replica's full local view.
func (t *Text) State() TextState {
	t.flushPending()
	return TextState{Summary: t.Clock.Summary.Clone(), Elements: t.tree.Elements()}
}

// FromState loads a Text from a persisted snapshot. siteID installs the
// replica's own site id; pass nil to load awaiting assignment (site 0),
// in which case every subsequent mutation is cached until AddSiteID.
func FromState(s TextState, siteID *dot.SiteID) *Text {
	tree := otree.New[Element]()
	for _, e := range s.Elements {
		tree.Insert(e)
	}
	c := site.Clock{Summary: s.Summary.Clone()}
	if siteID != nil {
		c.SiteID = *siteID
	}
	return &Text{Clock: c, tree: tree}
}

// Len returns the current length in Unicode scalars, including the
// effect of any not-yet-flushed pending edit.
func (t *Text) Len() int {
	n := t.tree.TotalLength()
	if t.pending != nil {
		n = n - t.pending.rem + len(t.pending.text)
	}
	return n
}

func (t *Text) baseRunes() []rune {
	runes := make([]rune, 0, t.tree.TotalLength())
	t.tree.Iter(func(e Element) bool {
		runes = append(runes, []rune(e.Text)...)
		return true
	})
	return runes
}

// LocalValue returns the concatenation of every element in UID order,
// with any pending edit applied as if it had already been flushed.
func (t *Text) LocalValue() string {
	base := t.baseRunes()
	if t.pending == nil {
		return string(base)
	}
	p := t.pending
	out := make([]rune, 0, len(base)-p.rem+len(p.text))
	out = append(out, base[:p.idx]...)
	out = append(out, p.text...)
	out = append(out, base[p.idx+p.rem:]...)
	return string(out)
}

// contiguous reports whether a new edit (i, l) can be absorbed into
// pending edit p without flushing it first.
func contiguous(p *pendingEdit, i, l int) bool {
	pLen := len(p.text)
	return i >= p.idx && i <= p.idx+pLen && i+l <= p.idx+pLen+p.rem
}

// Replace splices text into the range [index, index+len). It returns
// nil, nil if the edit was a no-op or was absorbed into the pending
// edit without producing a visible op. It returns crdterr.ErrOutOfBounds
// if index+len exceeds Len(), and crdterr.ErrAwaitingSiteID (with the op
// cached internally) if a flush occurs before a site id is assigned.
func (t *Text) Replace(index, length int, text string) (*Op, error) {
	if length == 0 && text == "" {
		return nil, nil
	}
	if index < 0 || index+length > t.Len() {
		return nil, crdterr.ErrOutOfBounds
	}
	textRunes := []rune(text)
	t.adjustAttributesForEdit(index, length, len(textRunes))

	if t.pending != nil && contiguous(t.pending, index, length) {
		p := t.pending
		off := index - p.idx
		pLen := len(p.text)
		if index+length <= p.idx+pLen {
			merged := make([]rune, 0, pLen-length+len(textRunes))
			merged = append(merged, p.text[:off]...)
			merged = append(merged, textRunes...)
			merged = append(merged, p.text[off+length:]...)
			p.text = merged
		} else {
			extra := (index + length) - (p.idx + pLen)
			merged := make([]rune, 0, off+len(textRunes))
			merged = append(merged, p.text[:off]...)
			merged = append(merged, textRunes...)
			p.text = merged
			p.rem += extra
		}
		return nil, nil
	}

	flushed, err := t.flushPending()
	t.pending = &pendingEdit{idx: index, text: append([]rune(nil), textRunes...), rem: length}
	return flushed, err
}

// Flush forces any pending edit to be emitted as a real op, e.g. before
// exchanging ops with another replica.
func (t *Text) Flush() (*Op, error) {
	return t.flushPending()
}

func (t *Text) flushPending() (*Op, error) {
	if t.pending == nil {
		return nil, nil
	}
	p := t.pending
	t.pending = nil
	d := t.Clock.NextDot()
	op, err := t.replaceNoBatch(p.idx, p.rem, string(p.text), d)
	if err != nil {
		return nil, err
	}
	if op == nil {
		return nil, nil
	}
	if !t.Clock.HasSiteID() {
		t.cachedOps = append(t.cachedOps, op)
		return op, crdterr.ErrAwaitingSiteID
	}
	return op, nil
}

type cutPoint struct {
	leftUID, rightUID uid.UID
}

// cut ensures there is an element boundary exactly at logical position
// rank, splitting an element if rank falls inside one, and returns the
// UIDs immediately bracketing that boundary.
func (t *Text) cut(rank int, d dot.Dot, op *Op) cutPoint {
	total := t.tree.TotalLength()
	if rank <= 0 {
		return cutPoint{leftUID: uid.Min, rightUID: t.tree.Successor(uid.Min)}
	}
	if rank >= total {
		return cutPoint{leftUID: t.tree.Predecessor(uid.Max), rightUID: uid.Max}
	}
	elem, offset, err := t.tree.LookupByRank(rank)
	if err != nil {
		// rank is within [0, total) so this cannot happen; treat as a
		// boundary at the end to fail safely rather than panic.
		return cutPoint{leftUID: t.tree.Predecessor(uid.Max), rightUID: uid.Max}
	}
	if offset == 0 {
		return cutPoint{leftUID: t.tree.Predecessor(elem.ID()), rightUID: elem.ID()}
	}
	return t.splitElement(elem, offset, d, op)
}

func (t *Text) splitElement(elem Element, offset int, d dot.Dot, op *Op) cutPoint {
	runes := []rune(elem.Text)
	pred := t.tree.Predecessor(elem.ID())

	leftID := uid.Between(pred, elem.ID(), d)
	rightID := uid.Between(leftID, elem.ID(), d)

	t.tree.Remove(elem.ID())
	left := Element{UID: leftID, Text: string(runes[:offset])}
	right := Element{UID: rightID, Text: string(runes[offset:])}
	t.tree.Insert(left)
	t.tree.Insert(right)

	op.RemovedUIDs = append(op.RemovedUIDs, elem.ID())
	op.InsertedElements = append(op.InsertedElements, left, right)
	return cutPoint{leftUID: leftID, rightUID: rightID}
}

// replaceNoBatch performs the unbatched splice algorithm of §4.E: locate
// (and split, if needed) the boundaries at idx and idx+remLen, remove
// every whole element in between, and insert one fresh element for text
// if non-empty.
func (t *Text) replaceNoBatch(idx, remLen int, text string, d dot.Dot) (*Op, error) {
	if idx < 0 || idx+remLen > t.tree.TotalLength() {
		return nil, crdterr.ErrOutOfBounds
	}
	if remLen == 0 && text == "" {
		return nil, nil
	}
	op := &Op{}

	var left, right cutPoint
	if remLen == 0 {
		c := t.cut(idx, d, op)
		left, right = c, c
	} else {
		left = t.cut(idx, d, op)
		right = t.cut(idx+remLen, d, op)

		// The second cut may have split the element that followed the
		// first boundary, so start from whatever now follows it.
		id := t.tree.Successor(left.leftUID)
		for {
			if _, ok := t.tree.Lookup(id); !ok {
				break
			}
			next := t.tree.Successor(id)
			op.RemovedUIDs = append(op.RemovedUIDs, id)
			t.tree.Remove(id)
			if id.Equal(right.leftUID) {
				break
			}
			id = next
		}
	}

	if text != "" {
		newID := uid.Between(left.leftUID, right.rightUID, d)
		elem := Element{UID: newID, Text: text}
		t.tree.Insert(elem)
		op.InsertedElements = append(op.InsertedElements, elem)
	}

	if len(op.InsertedElements) == 0 && len(op.RemovedUIDs) == 0 {
		return nil, nil
	}
	return op, nil
}

// ExecuteOp applies a remote op, returning the local splices it produced
// for a view layer to replay. Applying the same op twice is a no-op: an
// inserted element is skipped once its generating dot is already in the
// summary, and a removed UID that's already gone is simply not found.
func (t *Text) ExecuteOp(op *Op) []LocalOp {
	before := t.LocalValue()
	// One op can insert several elements under the same dot (both halves
	// of a split plus the new text), so dots are recorded only after
	// every element of the op has been checked against the summary.
	var seen []dot.Dot
	for _, elem := range op.InsertedElements {
		d := dot.Dot{Site: elem.UID.Site(), Counter: elem.UID.Counter()}
		if t.Clock.Summary.Contains(d) {
			continue
		}
		if err := t.tree.Insert(elem); err != nil {
			continue
		}
		seen = append(seen, d)
	}
	for _, d := range seen {
		t.Clock.Summary.Insert(d)
	}
	for _, id := range op.RemovedUIDs {
		// Mark the UID's originating dot seen even if its Insert hasn't
		// arrived yet, so a later-arriving Insert for an already-removed
		// UID is rejected by the Contains check above instead of
		// resurrecting it.
		d := dot.Dot{Site: id.Site(), Counter: id.Counter()}
		t.Clock.Summary.Insert(d)
		t.tree.Remove(id)
	}
	after := t.LocalValue()
	return diffLocalOps(before, after)
}

func diffLocalOps(before, after string) []LocalOp {
	if before == after {
		return nil
	}
	b, a := []rune(before), []rune(after)
	prefix := 0
	for prefix < len(b) && prefix < len(a) && b[prefix] == a[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(b)-prefix && suffix < len(a)-prefix &&
		b[len(b)-1-suffix] == a[len(a)-1-suffix] {
		suffix++
	}
	return []LocalOp{{
		Idx:  prefix,
		Len:  len(b) - prefix - suffix,
		Text: string(a[prefix : len(a)-suffix]),
	}}
}

// AddSiteID assigns siteID to a Text that was created or loaded
// unassigned, rewriting every site-0 reference embedded in its elements
// and cached ops, and returns the drained cached ops in generation
// order.
func (t *Text) AddSiteID(siteID dot.SiteID) ([]*Op, error) {
	err := t.Clock.AddSiteID(siteID, func(old, new dot.SiteID) {
		rewritten := otree.New[Element]()
		t.tree.Iter(func(e Element) bool {
			e.UID = rewriteUID(e.UID, old, new)
			rewritten.Insert(e)
			return true
		})
		t.tree = rewritten
		for _, op := range t.cachedOps {
			for i := range op.InsertedElements {
				op.InsertedElements[i].UID = rewriteUID(op.InsertedElements[i].UID, old, new)
			}
			for i := range op.RemovedUIDs {
				op.RemovedUIDs[i] = rewriteUID(op.RemovedUIDs[i], old, new)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	drained := t.cachedOps
	t.cachedOps = nil
	return drained, nil
}

func rewriteUID(u uid.UID, old, new dot.SiteID) uid.UID {
	path := make([]uid.PathElem, len(u.Path))
	for i, e := range u.Path {
		if e.Site == old {
			e.Site = new
		}
		path[i] = e
	}
	return uid.UID{Path: path}
}

// String implements fmt.Stringer for debugging.
func (t *Text) String() string {
	var b strings.Builder
	b.WriteString(t.LocalValue())
	return b.String()
}
