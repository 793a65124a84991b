// Package cache provides a process-lifetime TTL cache used to share
// read-only external data (valid code lists, reward calendars) across all
// account processors of a scheduled run.
package cache

import (
	"reflect"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

// Cache is a key→value memoization map with a fixed TTL per instance.
// A read older than the TTL is a miss and evicts the entry. The cache
// performs no I/O itself and is safe for concurrent use.
type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry[V]
	now     func() time.Time
}

func New[V any](ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		ttl:     ttl,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache[V]) getLocked(key string) (V, bool) {
	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(e.fetchedAt) >= c.ttl {
		delete(c.entries, key)
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[V]{value: value, fetchedAt: c.now()}
}

func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.getLocked(key)
	return ok
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Cleanup evicts every expired entry and returns how many were removed.
func (c *Cache[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.fetchedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// GetOrSet returns the cached value for key when present and fresh.
// Otherwise it invokes fetch once and caches the result, unless the fetch
// failed or returned an empty value: those are never memoized, so the
// next caller retries. Concurrent misses on the same key may each invoke
// their own fetch; the last result wins.
func (c *Cache[V]) GetOrSet(key string, fetch func() (V, error)) (V, error) {
	c.mu.Lock()
	if v, ok := c.getLocked(key); ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err := fetch()
	if err != nil {
		return v, err
	}
	if !isEmpty(v) {
		c.Set(key, v)
	}
	return v, nil
}

func isEmpty[V any](v V) bool {
	rv := reflect.ValueOf(&v).Elem()
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.String:
		return rv.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return rv.IsNil()
	default:
		return rv.IsZero()
	}
}
