package jsonval

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"

	"github.com/brunokim/crlite/counter"
	"github.com/brunokim/crlite/ormap"
	"github.com/brunokim/crlite/register"
	"github.com/brunokim/crlite/text"
)

// Wire is the persisted, site-id-free snapshot of a Json node: exactly
// one nested State field is populated, selected by Kind, mirroring the
// tagged-variant shape of Json itself. Recursion is free — Object and
// Array's own State/ArrayState types hold *Json values, which round-trip
// through this same Wire via Json's Marshal/UnmarshalJSON methods.
type Wire struct {
	Kind Kind `json:"kind" cbor:"kind"`

	Object *ormap.State[*Json] `json:"object,omitempty" cbor:"object,omitempty"`
	Array  *ArrayState         `json:"array,omitempty" cbor:"array,omitempty"`
	Str    *text.TextState     `json:"string,omitempty" cbor:"string,omitempty"`

	IsCounter bool                     `json:"is_counter,omitempty" cbor:"is_counter,omitempty"`
	Number    *register.State[float64] `json:"number,omitempty" cbor:"number,omitempty"`
	Counter   *counter.State           `json:"counter,omitempty" cbor:"counter,omitempty"`

	Bool *register.State[bool] `json:"bool,omitempty" cbor:"bool,omitempty"`
}

func (j *Json) toWire() Wire {
	w := Wire{Kind: j.Kind}
	switch j.Kind {
	case KindObject:
		st := j.obj.State()
		w.Object = &st
	case KindArray:
		st := j.arr.state()
		w.Array = &st
	case KindString:
		st := j.str.State()
		w.Str = &st
	case KindNumber:
		w.IsCounter = j.isCounter
		if j.isCounter {
			st := j.cnt.State()
			w.Counter = &st
		} else {
			st := j.num.State()
			w.Number = &st
		}
	case KindBool:
		st := j.b.State()
		w.Bool = &st
	}
	return w
}

func fromWire(w Wire) *Json {
	j := &Json{Kind: w.Kind}
	switch w.Kind {
	case KindObject:
		var st ormap.State[*Json]
		if w.Object != nil {
			st = *w.Object
		}
		st.Entries = append(st.Entries[:0:0], st.Entries...)
		for i := range st.Entries {
			st.Entries[i].Value = cloneNode(st.Entries[i].Value)
		}
		j.obj = ormap.FromState(st, nil)
	case KindArray:
		var st ArrayState
		if w.Array != nil {
			st = *w.Array
		}
		st.Elements = append(st.Elements[:0:0], st.Elements...)
		for i := range st.Elements {
			st.Elements[i].Value = cloneNode(st.Elements[i].Value)
		}
		j.arr = arrayFromState(st, nil)
	case KindString:
		var st text.TextState
		if w.Str != nil {
			st = *w.Str
		}
		j.str = text.FromState(st, nil)
	case KindNumber:
		j.isCounter = w.IsCounter
		if w.IsCounter {
			var st counter.State
			if w.Counter != nil {
				st = *w.Counter
			}
			j.cnt = counter.FromState(st, nil)
		} else {
			var st register.State[float64]
			if w.Number != nil {
				st = *w.Number
			}
			j.num = register.FromState(st, nil)
		}
	case KindBool:
		var st register.State[bool]
		if w.Bool != nil {
			st = *w.Bool
		}
		j.b = register.FromState(st, nil)
	}
	return j
}

// cloneNode rebuilds a nested node from its snapshot, so the loaded tree
// shares no node, and no site id, with the snapshot's source.
func cloneNode(n *Json) *Json {
	if n == nil {
		return nil
	}
	return fromWire(n.toWire())
}

// MarshalJSON implements json.Marshaler, so a *Json nested anywhere
// (inside an ormap.State[*Json] or ArrayState) encodes through the same
// tagged Wire form as a top-level value.
func (j *Json) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.toWire())
}

// UnmarshalJSON implements json.Unmarshaler. Every reconstructed node is
// loaded awaiting site assignment, per the rule that site id is never
// part of shared state.
func (j *Json) UnmarshalJSON(data []byte) error {
	var w Wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*j = *fromWire(w)
	return nil
}

// MarshalCBOR implements cbor.Marshaler.
func (j *Json) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(j.toWire())
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (j *Json) UnmarshalCBOR(data []byte) error {
	var w Wire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return err
	}
	*j = *fromWire(w)
	return nil
}

// State returns the persisted snapshot of the whole document, excluding
// every nested site id.
func (j *Json) State() Wire {
	return j.toWire()
}

// FromState reconstructs a Json document from a persisted snapshot,
// awaiting site assignment throughout. Call AddSiteID to assign a single
// site id to the whole tree before mutating it locally.
func FromState(w Wire) *Json {
	return fromWire(w)
}
