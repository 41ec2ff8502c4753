package lrucache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm/meshauth/internal/lrucache"
	"github.com/pthm/meshauth/meshauth"
)

func TestCache_GetSetInvalidate(t *testing.T) {
	c, err := lrucache.New(16)
	require.NoError(t, err)

	_, ok := c.GetAccounts("foo")
	assert.False(t, ok)

	c.SetAccounts("foo", meshauth.NewSet[meshauth.Account](1, 2))
	got, ok := c.GetAccounts("foo")
	require.True(t, ok)
	assert.True(t, got.Has(meshauth.Account(1)))

	c.InvalidateAccounts("foo")
	_, ok = c.GetAccounts("foo")
	assert.False(t, ok)
}

func TestCache_BoundedEviction(t *testing.T) {
	c, err := lrucache.New(2)
	require.NoError(t, err)

	c.SetDescendants("a", meshauth.NewSet[string]("x"))
	c.SetDescendants("b", meshauth.NewSet[string]("y"))
	c.SetDescendants("c", meshauth.NewSet[string]("z"))

	_, aStillPresent := c.GetDescendants("a")
	_, cPresent := c.GetDescendants("c")
	assert.False(t, aStillPresent, "oldest entry should have been evicted once capacity was exceeded")
	assert.True(t, cPresent)
}

func TestCache_Flush(t *testing.T) {
	c, err := lrucache.New(16)
	require.NoError(t, err)

	c.SetAncestors("n", meshauth.NewSet[string]("m"))
	c.Flush()

	_, ok := c.GetAncestors("n")
	assert.False(t, ok)
}
