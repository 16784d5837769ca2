package modsh

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Cache is a dictionary-like store that syncs its in-memory content with a
// file on an afero filesystem for persistence. Keys expire after the
// configured TTL: reading or syncing an expired key drops it. Only
// JSON-serializable values are supported. File sync is guarded by a lock
// file so multiple processes sharing a real filesystem stay consistent.
type Cache struct {
	fs       afero.Fs
	filename string
	metafile string
	lockfile string
	ttl      time.Duration

	mu   sync.Mutex
	data map[string]any
	meta map[string]cacheMeta
}

type cacheMeta struct {
	Age time.Time     `json:"age"`
	TTL time.Duration `json:"ttl"`
}

func (m cacheMeta) expired(now time.Time) bool {
	return now.Sub(m.Age) > m.TTL
}

// NewCache opens (or creates) a cache file and loads its content.
func NewCache(fs afero.Fs, filename string, ttl time.Duration) (*Cache, error) {
	c := &Cache{
		fs:       fs,
		filename: filename,
		metafile: filename + ".meta",
		lockfile: filename + ".lock",
		ttl:      ttl,
		data:     map[string]any{},
		meta:     map[string]cacheMeta{},
	}
	if dir := filepath.Dir(filename); dir != "." && dir != "/" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache: create directory: %w", err)
		}
	}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

// load reads cached data and key metadata from the backing files, creating
// them when missing.
func (c *Cache) load() error {
	for _, f := range []struct {
		path string
		into any
	}{
		{c.metafile, &c.meta},
		{c.filename, &c.data},
	} {
		exists, err := afero.Exists(c.fs, f.path)
		if err != nil {
			return fmt.Errorf("cache: stat %s: %w", f.path, err)
		}
		if !exists {
			if err := afero.WriteFile(c.fs, f.path, []byte("{}"), 0o644); err != nil {
				return fmt.Errorf("cache: init %s: %w", f.path, err)
			}
			continue
		}
		raw, err := afero.ReadFile(c.fs, f.path)
		if err != nil {
			return fmt.Errorf("cache: read %s: %w", f.path, err)
		}
		if err := json.Unmarshal(raw, f.into); err != nil {
			return fmt.Errorf("cache: decode %s: %w", f.path, err)
		}
	}
	return nil
}

// Get returns the cached value for key. Expired keys are removed and
// reported as missing.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.meta[key]
	if !ok {
		return nil, false
	}
	if meta.expired(time.Now()) {
		delete(c.data, key)
		delete(c.meta, key)
		return nil, false
	}
	v, ok := c.data[key]
	return v, ok
}

// Set stores a value under key with a fresh TTL.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.meta[key] = cacheMeta{Age: time.Now(), TTL: c.ttl}
}

// Delete removes a key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	delete(c.meta, key)
}

// Keys returns the non-expired keys.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	var keys []string
	for k, m := range c.meta {
		if !m.expired(now) {
			keys = append(keys, k)
		}
	}
	return keys
}

// ShowTTL returns the remaining time-to-live per cached key.
func (c *Cache) ShowTTL() map[string]time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	out := map[string]time.Duration{}
	for k, m := range c.meta {
		out[k] = m.TTL - now.Sub(m.Age)
	}
	return out
}

// Sync dumps the in-memory content to the backing files, dropping expired
// keys first. It waits up to timeout for a competing lock file to clear.
func (c *Cache) Sync(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		exists, err := afero.Exists(c.fs, c.lockfile)
		if err != nil {
			return fmt.Errorf("cache: stat lock: %w", err)
		}
		if !exists {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("cache: %q is locked, %s wait timeout expired", c.filename, timeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
	if err := afero.WriteFile(c.fs, c.lockfile, []byte("LOCKED "+time.Now().Format(time.RFC3339)), 0o644); err != nil {
		return fmt.Errorf("cache: create lock: %w", err)
	}
	defer c.fs.Remove(c.lockfile)

	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, m := range c.meta {
		if m.expired(now) {
			delete(c.data, k)
			delete(c.meta, k)
		}
	}
	metaRaw, err := json.Marshal(c.meta)
	if err != nil {
		return fmt.Errorf("cache: encode metadata: %w", err)
	}
	dataRaw, err := json.Marshal(c.data)
	if err != nil {
		return fmt.Errorf("cache: encode data: %w", err)
	}
	if err := afero.WriteFile(c.fs, c.metafile, metaRaw, 0o644); err != nil {
		return fmt.Errorf("cache: write metadata: %w", err)
	}
	if err := afero.WriteFile(c.fs, c.filename, dataRaw, 0o644); err != nil {
		return fmt.Errorf("cache: write data: %w", err)
	}
	return nil
}
