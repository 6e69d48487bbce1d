package text

import (
	"github.com/brunokim/crlite/crdterr"
	"github.com/brunokim/crlite/diff"
)

// ReplaceAll transforms t's content into target by applying the minimal
// sequence of character-level edits diff.Diff computes, rather than
// discarding and reinserting the whole string. Runs of adjacent inserts
// or deletes still coalesce into a single flushed edit via the usual
// pending-edit batching, and every op flushed along the way is merged
// into the one returned op, so a small diff against a long unchanged
// string produces one small op instead of one op per character.
func (t *Text) ReplaceAll(target string) (*Op, error) {
	ops, err := diff.Diff(t.LocalValue(), target)
	if err != nil {
		return nil, err
	}
	merged := &Op{}
	keep := func(op *Op, err error) error {
		if op != nil {
			merged.InsertedElements = append(merged.InsertedElements, op.InsertedElements...)
			merged.RemovedUIDs = append(merged.RemovedUIDs, op.RemovedUIDs...)
		}
		return err
	}
	idx := 0
	for _, o := range ops {
		switch o.Op {
		case diff.Keep:
			idx++
		case diff.Insert:
			if err := keep(t.Replace(idx, 0, string(o.Char))); err != nil && err != crdterr.ErrAwaitingSiteID {
				return nil, err
			}
			idx++
		case diff.Delete:
			if err := keep(t.Replace(idx, 1, "")); err != nil && err != crdterr.ErrAwaitingSiteID {
				return nil, err
			}
		}
	}
	err = keep(t.Flush())
	if len(merged.InsertedElements) == 0 && len(merged.RemovedUIDs) == 0 {
		return nil, err
	}
	return merged, err
}
