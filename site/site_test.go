package site_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunokim/crlite/crdterr"
	"github.com/brunokim/crlite/dot"
	"github.com/brunokim/crlite/site"
)

func TestRegistry_AssignIsStable(t *testing.T) {
	r := site.NewRegistry()
	a := uuid.New()
	b := uuid.New()

	s1 := r.Assign(a)
	s2 := r.Assign(b)
	s1Again := r.Assign(a)

	assert.Equal(t, s1, s1Again)
	assert.NotEqual(t, s1, s2)
	assert.NotEqual(t, dot.SiteID(0), s1)

	got, ok := r.Lookup(s1)
	require.True(t, ok)
	assert.Equal(t, a, got)
}

func TestRegistry_Fork(t *testing.T) {
	r := site.NewRegistry()
	a := uuid.New()
	r.Assign(a)

	id, siteID, err := r.Fork()
	require.NoError(t, err)
	assert.NotEqual(t, dot.SiteID(0), siteID)

	got, ok := r.Lookup(siteID)
	require.True(t, ok)
	assert.Equal(t, id, got)
}

func TestClock_AddSiteIDRewritesAndRejectsSecondCall(t *testing.T) {
	c := site.NewClock()
	c.NextDot()
	c.NextDot()

	var rewrites [][2]dot.SiteID
	err := c.AddSiteID(5, func(old, new_ dot.SiteID) {
		rewrites = append(rewrites, [2]dot.SiteID{old, new_})
	})
	require.NoError(t, err)
	assert.Equal(t, dot.SiteID(5), c.SiteID)
	assert.Equal(t, [][2]dot.SiteID{{0, 5}}, rewrites)
	assert.Equal(t, dot.Counter(2), c.Summary.Get(5))
	assert.NoError(t, c.Summary.ValidateNoUnassignedSites())

	err = c.AddSiteID(6, nil)
	assert.ErrorIs(t, err, crdterr.ErrAlreadyHasSiteID)
}
