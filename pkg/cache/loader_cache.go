// Package cache provides a small generic read-through cache: LRU storage
// with singleflight so concurrent misses for one key trigger one load.
package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// LoaderCache caches values loaded by a callback. A burst of N concurrent
// misses for the same key runs one load; the rest wait and share the result.
// Keys are serialized to strings for both the LRU and singleflight.
type LoaderCache[K comparable, V any] struct {
	lru    *lru.Cache[string, V]
	group  singleflight.Group
	keyStr func(K) string
}

// NewLoaderCache creates a loader cache bounded to maxEntries.
func NewLoaderCache[K comparable, V any](maxEntries int, keyStr func(K) string) (*LoaderCache[K, V], error) {
	store, err := lru.New[string, V](maxEntries)
	if err != nil {
		return nil, err
	}

	return &LoaderCache[K, V]{lru: store, keyStr: keyStr}, nil
}

// Get returns the cached value for key, loading and storing it on miss.
// The second return reports whether the value came from cache, so callers
// can record hit/miss metrics without the cache knowing about metrics.
func (c *LoaderCache[K, V]) Get(ctx context.Context, key K, load func(context.Context, K) (V, error)) (V, bool, error) {
	k := c.keyStr(key)
	if v, ok := c.lru.Get(k); ok {
		return v, true, nil
	}

	val, err, _ := c.group.Do(k, func() (any, error) {
		loaded, loadErr := load(ctx, key)
		if loadErr != nil {
			var zero V

			return zero, loadErr
		}

		c.lru.Add(k, loaded)

		return loaded, nil
	})
	if err != nil {
		var zero V

		return zero, false, err
	}

	return val.(V), false, nil
}

// Peek returns the cached value without loading on miss. For batch flows
// that load all misses in one query and Put the results back.
func (c *LoaderCache[K, V]) Peek(key K) (V, bool) {
	return c.lru.Get(c.keyStr(key))
}

// Put stores a value directly, bypassing the loader.
func (c *LoaderCache[K, V]) Put(key K, value V) {
	c.lru.Add(c.keyStr(key), value)
}

// Invalidate removes the entry for key.
func (c *LoaderCache[K, V]) Invalidate(key K) {
	c.lru.Remove(c.keyStr(key))
}

// Len returns the number of cached entries.
func (c *LoaderCache[K, V]) Len() int {
	return c.lru.Len()
}
