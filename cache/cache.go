// Package cache provides a read-through cache backed by a fixed-size LRU.
// Entries live until evicted by capacity or explicitly invalidated; the
// backing loader remains the source of truth, so every mutator must
// invalidate the keys it touches.
package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Loader fetches the value for a key on cache miss.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Cache is a read-through LRU. Safe for concurrent use.
type Cache[K comparable, V any] struct {
	lru  *lru.Cache[K, V]
	load Loader[K, V]
}

// New returns a cache holding at most size entries.
func New[K comparable, V any](size int, load Loader[K, V]) (*Cache[K, V], error) {
	l, err := lru.New[K, V](size)
	if err != nil {
		return nil, err
	}
	return &Cache[K, V]{lru: l, load: load}, nil
}

// Get returns the cached value for key, loading and caching it on a miss.
// Load failures are returned unchanged and nothing is cached.
func (c *Cache[K, V]) Get(ctx context.Context, key K) (V, error) {
	if v, ok := c.lru.Get(key); ok {
		return v, nil
	}
	v, err := c.load(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}
	c.lru.Add(key, v)
	return v, nil
}

// Put stores a value directly, replacing any cached entry.
func (c *Cache[K, V]) Put(key K, value V) {
	c.lru.Add(key, value)
}

// Invalidate drops the cached entry for key, if any.
func (c *Cache[K, V]) Invalidate(key K) {
	c.lru.Remove(key)
}

// Len reports the number of cached entries.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}
