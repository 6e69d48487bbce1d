package text

import "sort"

// AttributeRun marks that every attribute in Names applies to the
// half-open unicode-scalar range [Start, End) of a Text's current
// LocalValue. This is a local-only annotation layer: it isn't part of
// the replicated op stream and two replicas are free to carry different
// attribute runs over the same replicated text, the same way the
// teacher's attributed-string sketch left formatting as a client-side
// concern layered on top of the shared sequence.
//
// Deliberately small: overlapping runs over the same range are not
// merged or split apart, and names are just an unordered set — there's
// no nested-attribute resolution algorithm here, matching how thin the
// original's own attributed-string module was left.
type AttributeRun struct {
	Start, End int
	Names      map[string]bool
}

// SetAttribute marks every position in [start, end) as carrying name, in
// addition to whatever else already applies there.
func (t *Text) SetAttribute(start, end int, name string) {
	if start >= end {
		return
	}
	t.attrs = append(t.attrs, AttributeRun{Start: start, End: end, Names: map[string]bool{name: true}})
}

// ClearAttribute removes name from every run overlapping [start, end),
// splitting a run if name only applies to part of it.
func (t *Text) ClearAttribute(start, end int, name string) {
	if start >= end {
		return
	}
	var kept []AttributeRun
	for _, r := range t.attrs {
		if r.End <= start || r.Start >= end || !r.Names[name] {
			kept = append(kept, r)
			continue
		}
		if r.Start < start {
			kept = append(kept, cloneRun(r, r.Start, start))
		}
		if r.End > end {
			kept = append(kept, cloneRun(r, end, r.End))
		}
	}
	t.attrs = kept
}

func cloneRun(r AttributeRun, start, end int) AttributeRun {
	names := make(map[string]bool, len(r.Names))
	for n := range r.Names {
		names[n] = true
	}
	return AttributeRun{Start: start, End: end, Names: names}
}

// AttributesAt returns the sorted attribute names applying at idx.
func (t *Text) AttributesAt(idx int) []string {
	var names []string
	for _, r := range t.attrs {
		if idx >= r.Start && idx < r.End {
			for n := range r.Names {
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}

// AttributeRuns returns every currently tracked run, in no particular
// order.
func (t *Text) AttributeRuns() []AttributeRun {
	return append([]AttributeRun(nil), t.attrs...)
}

// adjustAttributesForEdit shifts and clips every tracked run to account
// for a local edit that replaced removedLen characters at index with
// insertedLen fresh ones.
func (t *Text) adjustAttributesForEdit(index, removedLen, insertedLen int) {
	if len(t.attrs) == 0 {
		return
	}
	delta := insertedLen - removedLen
	editEnd := index + removedLen
	var adjusted []AttributeRun
	for _, r := range t.attrs {
		switch {
		case r.End <= index:
			adjusted = append(adjusted, r)
		case r.Start >= editEnd:
			r.Start += delta
			r.End += delta
			adjusted = append(adjusted, r)
		default:
			if r.Start < index {
				// leave the untouched prefix in place
			} else {
				r.Start = index
			}
			if r.End > editEnd {
				r.End += delta
			} else {
				r.End = index + insertedLen
			}
			if r.Start < r.End {
				adjusted = append(adjusted, r)
			}
		}
	}
	t.attrs = adjusted
}
