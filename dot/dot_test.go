package dot_test

import (
	"encoding/json"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunokim/crlite/dot"
)

func TestSummary_GetDot(t *testing.T) {
	s := dot.New()
	d1 := s.GetDot(1)
	d2 := s.GetDot(1)
	d3 := s.GetDot(2)

	assert.Equal(t, dot.Dot{Site: 1, Counter: 1}, d1)
	assert.Equal(t, dot.Dot{Site: 1, Counter: 2}, d2)
	assert.Equal(t, dot.Dot{Site: 2, Counter: 1}, d3)
	assert.True(t, s.Contains(d1))
	assert.True(t, s.Contains(d2))
	assert.True(t, s.Contains(d3))
	assert.False(t, s.Contains(dot.Dot{Site: 1, Counter: 3}))
}

func TestSummary_Merge(t *testing.T) {
	a := dot.New()
	a.Insert(dot.Dot{Site: 1, Counter: 5})
	b := dot.New()
	b.Insert(dot.Dot{Site: 1, Counter: 3})
	b.Insert(dot.Dot{Site: 2, Counter: 7})

	a.Merge(b)

	assert.Equal(t, dot.Counter(5), a.Get(1))
	assert.Equal(t, dot.Counter(7), a.Get(2))
}

func TestSummary_AddSiteID(t *testing.T) {
	s := dot.New()
	s.GetDot(0)
	s.GetDot(0)
	require.Equal(t, dot.Counter(2), s.Get(0))

	s.AddSiteID(5)

	assert.Equal(t, dot.Counter(0), s.Get(0))
	assert.Equal(t, dot.Counter(2), s.Get(5))
	assert.NoError(t, s.ValidateNoUnassignedSites())
}

func TestSummary_ValidateNoUnassignedSites(t *testing.T) {
	s := dot.New()
	s.GetDot(0)
	assert.Error(t, s.ValidateNoUnassignedSites())
}

func TestSummary_ViewableAt(t *testing.T) {
	at := dot.New()
	d := at.GetDot(3)

	assert.True(t, at.ViewableAt(d))
	assert.False(t, at.ViewableAt(dot.Dot{Site: 3, Counter: d.Counter + 1}))
}

func TestDot_Compare(t *testing.T) {
	lo := dot.Dot{Site: 1, Counter: 1}
	hi := dot.Dot{Site: 1, Counter: 2}
	other := dot.Dot{Site: 2, Counter: 1}

	assert.True(t, lo.Less(hi))
	assert.False(t, hi.Less(lo))
	assert.True(t, lo.Less(other))
	assert.Equal(t, 0, lo.Compare(dot.Dot{Site: 1, Counter: 1}))
}

func TestSummary_RoundTrip(t *testing.T) {
	s := dot.New()
	s.Insert(dot.Dot{Site: 1, Counter: 4})
	s.Insert(dot.Dot{Site: 7, Counter: 2})

	jsonBytes, err := json.Marshal(s)
	require.NoError(t, err)
	var fromJSON dot.Summary
	require.NoError(t, json.Unmarshal(jsonBytes, &fromJSON))

	cborBytes, err := cbor.Marshal(s)
	require.NoError(t, err)
	var fromCBOR dot.Summary
	require.NoError(t, cbor.Unmarshal(cborBytes, &fromCBOR))

	assert.ElementsMatch(t, fromJSON.Sites(), fromCBOR.Sites())
	assert.Equal(t, s.Get(1), fromJSON.Get(1))
	assert.Equal(t, s.Get(7), fromJSON.Get(7))
	assert.Equal(t, s.Get(1), fromCBOR.Get(1))
	assert.Equal(t, s.Get(7), fromCBOR.Get(7))
}
