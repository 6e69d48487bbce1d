package jsonval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunokim/crlite/jsonval"
)

// TestPointerRouting mirrors the "JSON pointer routing" scenario: a
// concurrent insert into a nested array is addressed by its parent's
// stable pointer, and both replicas converge once the op crosses over.
func TestPointerRouting(t *testing.T) {
	a, err := jsonval.FromStr(`{"bar":["Hello","Aloha"]}`)
	require.NoError(t, err)

	data, err := a.Get("/bar")
	require.NoError(t, err)
	assert.Equal(t, []any{"Hello", "Aloha"}, data)

	op, err := a.Insert("/bar/0", "Bonjour")
	require.NoError(t, err)
	require.NotNil(t, op)

	got, err := a.Get("/bar")
	require.NoError(t, err)
	assert.Equal(t, []any{"Bonjour", "Hello", "Aloha"}, got)

	// A second replica starts from the same document, receives the op,
	// and converges to the identical array.
	raw, err := jsonval.FromStr(`{"bar":["Hello","Aloha"]}`)
	require.NoError(t, err)
	require.NoError(t, raw.ExecuteOp(op))

	gotB, err := raw.Get("/bar")
	require.NoError(t, err)
	assert.Equal(t, got, gotB)
}

func TestInsertIntoObject(t *testing.T) {
	doc := jsonval.NewObject()
	_, err := doc.Insert("/name", "ditto")
	require.NoError(t, err)
	_, err = doc.Insert("/count", 3.0)
	require.NoError(t, err)

	name, err := doc.Get("/name")
	require.NoError(t, err)
	assert.Equal(t, "ditto", name)

	count, err := doc.Get("/count")
	require.NoError(t, err)
	assert.Equal(t, 3.0, count)
}

func TestRemoveFromObject(t *testing.T) {
	doc, err := jsonval.FromStr(`{"a":1,"b":2}`)
	require.NoError(t, err)

	op, err := doc.Remove("/a")
	require.NoError(t, err)
	require.NotNil(t, op)

	_, err = doc.Get("/a")
	assert.Error(t, err)
	b, err := doc.Get("/b")
	require.NoError(t, err)
	assert.Equal(t, 2.0, b)
}

func TestReplaceTextNested(t *testing.T) {
	doc, err := jsonval.FromStr(`{"msg":"hello"}`)
	require.NoError(t, err)

	_, err = doc.ReplaceText("/msg", 5, 0, " world")
	require.NoError(t, err)

	got, err := doc.Get("/msg")
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestIncrementCounterNumber(t *testing.T) {
	doc := jsonval.NewCounterNumber()

	_, err := doc.Increment("", 5)
	require.NoError(t, err)
	_, err = doc.Increment("", 2)
	require.NoError(t, err)

	got, err := doc.Get("")
	require.NoError(t, err)
	assert.Equal(t, 7.0, got)
}

func TestIncrementRegisterNumber(t *testing.T) {
	doc, err := jsonval.FromStr(`{"score":10}`)
	require.NoError(t, err)

	_, err = doc.Increment("/score", 5)
	require.NoError(t, err)

	got, err := doc.Get("/score")
	require.NoError(t, err)
	assert.Equal(t, 15.0, got)
}

func TestAppendToEndOfArray(t *testing.T) {
	doc, err := jsonval.FromStr(`{"items":["a","b"]}`)
	require.NoError(t, err)

	_, err = doc.Insert("/items/-", "c")
	require.NoError(t, err)

	got, err := doc.Get("/items")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, got)
}

func TestRemoveFromArray(t *testing.T) {
	doc, err := jsonval.FromStr(`{"items":["a","b","c"]}`)
	require.NoError(t, err)

	_, err = doc.Remove("/items/1")
	require.NoError(t, err)

	got, err := doc.Get("/items")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "c"}, got)
}

// TestOutOfOrderArrayRemoveThenInsertStaysRemoved mirrors spec.md's
// "causal delivery is not required" note for the array variant: a
// replica receiving an element's removal before the insert that created
// it must not resurrect that element once the insert finally arrives.
func TestOutOfOrderArrayRemoveThenInsertStaysRemoved(t *testing.T) {
	doc, err := jsonval.FromStr(`{"items":["a","b","c"]}`)
	require.NoError(t, err)

	opInsert, err := doc.Insert("/items/-", "d")
	require.NoError(t, err)
	require.NotNil(t, opInsert)

	opRemove, err := doc.Remove("/items/3")
	require.NoError(t, err)
	require.NotNil(t, opRemove)

	fresh, err := jsonval.FromStr(`{"items":["a","b","c"]}`)
	require.NoError(t, err)

	// Remove arrives before the Insert it names.
	require.NoError(t, fresh.ExecuteOp(opRemove))
	require.NoError(t, fresh.ExecuteOp(opInsert))

	got, err := fresh.Get("/items")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, got)
}

func TestAddSiteIDCascades(t *testing.T) {
	doc, err := jsonval.FromStr(`{"items":["a"],"msg":"hi"}`)
	require.NoError(t, err)

	reloaded := jsonval.FromState(doc.State())
	_, err = reloaded.Insert("/items/-", "b")
	assert.ErrorContains(t, err, "awaiting site id")

	// the edit is cached and visible locally even before a site id exists.
	got, err := reloaded.Get("/items")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, got)

	require.NoError(t, reloaded.AddSiteID(7))
	_, err = reloaded.Insert("/items/-", "c")
	require.NoError(t, err)

	got, err = reloaded.Get("/items")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, got)
}

func TestFlushForcesPendingTextEdit(t *testing.T) {
	doc, err := jsonval.FromStr(`{"msg":"hi"}`)
	require.NoError(t, err)

	op, err := doc.ReplaceText("/msg", 2, 0, "!")
	require.NoError(t, err)
	assert.Nil(t, op.TextOp) // absorbed into the pending edit, not yet flushed

	flushed, err := doc.Flush("/msg")
	require.NoError(t, err)
	require.NotNil(t, flushed)
	require.NotNil(t, flushed.TextOp)

	got, err := doc.Get("/msg")
	require.NoError(t, err)
	assert.Equal(t, "hi!", got)
}

func TestWrongTypeErrors(t *testing.T) {
	doc, err := jsonval.FromStr(`{"name":"x"}`)
	require.NoError(t, err)

	_, err = doc.Increment("/name", 1)
	assert.Error(t, err)
}
