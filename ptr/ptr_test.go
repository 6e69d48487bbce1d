package ptr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunokim/crlite/ptr"
)

func TestParse_RoundTrip(t *testing.T) {
	cases := []string{
		"",
		"/foo",
		"/foo/0",
		"/a~1b",
		"/m~0n",
		"/arr/-",
	}
	for _, s := range cases {
		p, err := ptr.Parse(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, p.String(), s)
	}
}

func TestParse_Escapes(t *testing.T) {
	p, err := ptr.Parse("/a~1b~0c")
	require.NoError(t, err)
	require.Len(t, p.Tokens, 1)
	assert.Equal(t, ptr.Token("a/b~c"), p.Tokens[0])
}

func TestParse_RejectsMissingLeadingSlash(t *testing.T) {
	_, err := ptr.Parse("foo")
	assert.Error(t, err)
}

func TestHead(t *testing.T) {
	p, err := ptr.Parse("/a/b/c")
	require.NoError(t, err)

	head, rest, ok := p.Head()
	require.True(t, ok)
	assert.Equal(t, ptr.Token("a"), head)
	assert.Equal(t, "/b/c", rest.String())

	_, _, ok = ptr.Root.Head()
	assert.False(t, ok)
}

func TestIndex(t *testing.T) {
	n, err := ptr.Index("0")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = ptr.Index("12")
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = ptr.Index("01")
	assert.Error(t, err)

	_, err = ptr.Index(ptr.EndOfArray)
	assert.Error(t, err)
}
