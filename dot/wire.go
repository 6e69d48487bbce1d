package dot

import (
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
)

// pair is the wire representation of one Summary entry. Encoding a
// site->counter table as a sequence of pairs rather than a keyed map
// keeps both our JSON and CBOR encodings free of the "must the map key be
// a string" question (JSON requires it; some CBOR implementations don't).
type pair struct {
	Site    SiteID  `json:"site" cbor:"site"`
	Counter Counter `json:"counter" cbor:"counter"`
}

func toPairs(m map[SiteID]Counter) []pair {
	pairs := make([]pair, 0, len(m))
	for site, counter := range m {
		pairs = append(pairs, pair{Site: site, Counter: counter})
	}
	return pairs
}

func fromPairs(pairs []pair) map[SiteID]Counter {
	m := make(map[SiteID]Counter, len(pairs))
	for _, p := range pairs {
		m[p.Site] = p.Counter
	}
	return m
}

func marshalPairs(m map[SiteID]Counter) ([]byte, error) {
	return json.Marshal(toPairs(m))
}

func unmarshalPairs(data []byte) (map[SiteID]Counter, error) {
	var pairs []pair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, err
	}
	return fromPairs(pairs), nil
}

// MarshalCBOR implements cbor.Marshaler, using the same pair-sequence
// shape as MarshalJSON.
func (s Summary) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(toPairs(s.counters))
}

// UnmarshalCBOR implements cbor.Unmarshaler.
func (s *Summary) UnmarshalCBOR(data []byte) error {
	var pairs []pair
	if err := cbor.Unmarshal(data, &pairs); err != nil {
		return err
	}
	s.counters = fromPairs(pairs)
	return nil
}
