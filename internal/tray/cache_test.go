package tray

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedAccounts(t *testing.T) {
	src := &fakeAccounts{ids: []string{"a@example.com", "b@example.com"}}
	c := NewCachedAccounts(src, 1, time.Minute, nil)

	ids, err := c.IDs()
	require.NoError(t, err)
	assert.Equal(t, src.ids, ids)

	src.ids = []string{"c@example.com"}
	ids, err = c.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, ids, "served from cache")
	assert.Equal(t, int32(1), src.calls.Load())

	c.Invalidate()
	ids, err = c.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"c@example.com"}, ids)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestCachedAccounts_ErrorsAreNotCached(t *testing.T) {
	src := &fakeAccounts{err: errors.New("boom")}
	c := NewCachedAccounts(src, 0, time.Minute, nil)

	_, err := c.IDs()
	assert.Error(t, err)

	src.err = nil
	src.ids = []string{"a@example.com"}
	ids, err := c.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com"}, ids)
}

func TestCachedAccounts_ZeroTTLDisablesCache(t *testing.T) {
	src := &fakeAccounts{ids: []string{"a@example.com"}}
	c := NewCachedAccounts(src, 1, 0, nil)

	_, err := c.IDs()
	require.NoError(t, err)
	_, err = c.IDs()
	require.NoError(t, err)
	c.Invalidate()

	assert.Equal(t, int32(2), src.calls.Load())
}
