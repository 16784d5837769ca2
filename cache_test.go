package modsh

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheSetGet(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := NewCache(fs, "/cache/data.json", time.Hour)
	require.NoError(t, err)

	c.Set("greeting", "hello")
	v, ok := c.Get("greeting")
	require.True(t, ok)
	assert.Equal(t, "hello", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	c.Delete("greeting")
	_, ok = c.Get("greeting")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := NewCache(fs, "/data.json", time.Millisecond)
	require.NoError(t, err)

	c.Set("short", 1)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
	assert.Empty(t, c.Keys())
}

func TestCacheSyncRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := NewCache(fs, "/data.json", time.Hour)
	require.NoError(t, err)

	c.Set("count", 42)
	require.NoError(t, c.Sync(time.Second))

	// A fresh cache over the same filesystem sees the synced data.
	reloaded, err := NewCache(fs, "/data.json", time.Hour)
	require.NoError(t, err)
	v, ok := reloaded.Get("count")
	require.True(t, ok)
	assert.EqualValues(t, 42, v)
}

func TestCacheSyncDropsExpired(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := NewCache(fs, "/data.json", time.Millisecond)
	require.NoError(t, err)

	c.Set("short", 1)
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, c.Sync(time.Second))

	reloaded, err := NewCache(fs, "/data.json", time.Hour)
	require.NoError(t, err)
	_, ok := reloaded.Get("short")
	assert.False(t, ok)
}

func TestCacheSyncLockTimeout(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := NewCache(fs, "/data.json", time.Hour)
	require.NoError(t, err)

	// A stale lock file blocks the sync until the wait times out.
	require.NoError(t, afero.WriteFile(fs, "/data.json.lock", []byte("LOCKED"), 0o644))
	err = c.Sync(50 * time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")
}

func TestCacheTTLListing(t *testing.T) {
	fs := afero.NewMemMapFs()
	c, err := NewCache(fs, "/data.json", time.Hour)
	require.NoError(t, err)

	c.Set("a", 1)
	ttls := c.ShowTTL()
	require.Contains(t, ttls, "a")
	assert.Greater(t, ttls["a"], 59*time.Minute)
}
