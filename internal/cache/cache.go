package cache

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// refreshFlight prefixes the flight keys of refreshes.
const refreshFlight = "refresh:"

// Factory computes the result of a query for the cache.
type Factory func(ctx context.Context) ([]any, error)

// QueryCache maps cache keys to query results.
type QueryCache struct {
	name string

	mu      sync.RWMutex
	entries map[string][]any

	group singleflight.Group
}

// New returns an empty cache. name labels its metrics.
func New(name string) *QueryCache {
	return &QueryCache{name: name, entries: make(map[string][]any)}
}

// Get returns the cached result of key.
func (c *QueryCache) Get(key string) ([]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores result under key.
func (c *QueryCache) Put(key string, result []any) {
	c.mu.Lock()
	c.entries[key] = result
	n := len(c.entries)
	c.mu.Unlock()
	entriesGauge.WithLabelValues(c.name).Set(float64(n))
}

// putIfAbsent stores result under key unless an entry exists, and returns
// the stored entry.
func (c *QueryCache) putIfAbsent(key string, result []any) []any {
	c.mu.Lock()
	if v, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return v
	}
	c.entries[key] = result
	n := len(c.entries)
	c.mu.Unlock()
	entriesGauge.WithLabelValues(c.name).Set(float64(n))
	return result
}

// Remove drops key.
func (c *QueryCache) Remove(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	n := len(c.entries)
	c.mu.Unlock()
	entriesGauge.WithLabelValues(c.name).Set(float64(n))
}

// Clear drops every entry.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	clear(c.entries)
	c.mu.Unlock()
	entriesGauge.WithLabelValues(c.name).Set(0)
}

// Size returns the number of entries.
func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetOrCreate returns the cached result of key, running factory to fill a
// miss. Callers missing the same key at the same time wait for one factory
// run and share its result or error. An entry stored by a Refresh while the
// factory ran wins over the factory's result.
func (c *QueryCache) GetOrCreate(ctx context.Context, key string, factory Factory) ([]any, error) {
	if v, ok := c.Get(key); ok {
		sampleLookup(c.name, true)
		slog.Debug("query cache hit", "cache", c.name, "key", key)
		return v, nil
	}
	sampleLookup(c.name, false)

	v, err, shared := c.group.Do(key, func() (any, error) {
		// a previous flight may have filled the key since the lookup
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		result, err := factory(ctx)
		sampleFetch(c.name, "create", err)
		if err != nil {
			return nil, err
		}
		return c.putIfAbsent(key, result), nil
	})
	slog.Debug("query cache miss", "cache", c.name, "key", key, "shared", shared, "error", err)
	if err != nil {
		return nil, err
	}
	return v.([]any), nil
}

// Refresh runs factory, stores its result under key and returns it. It
// never joins a GetOrCreate flight; concurrent refreshes of one key share
// one factory run.
func (c *QueryCache) Refresh(ctx context.Context, key string, factory Factory) ([]any, error) {
	v, err, _ := c.group.Do(refreshFlight+key, func() (any, error) {
		result, err := factory(ctx)
		sampleFetch(c.name, "refresh", err)
		if err != nil {
			return nil, err
		}
		c.Put(key, result)
		return result, nil
	})
	slog.Debug("query cache refresh", "cache", c.name, "key", key, "error", err)
	if err != nil {
		return nil, err
	}
	return v.([]any), nil
}
