package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheTTL(t *testing.T) {
	now := time.Now()
	c := New[string](5 * time.Minute)
	c.now = func() time.Time { return now }

	t.Run("fresh entries are returned", func(t *testing.T) {
		c.Set("a", "value")
		v, ok := c.Get("a")
		require.True(t, ok)
		assert.Equal(t, "value", v)
		assert.True(t, c.Has("a"))
	})

	t.Run("expired entries are treated as misses and evicted", func(t *testing.T) {
		c.Set("b", "value")
		now = now.Add(5 * time.Minute)

		_, ok := c.Get("b")
		assert.False(t, ok)
		assert.False(t, c.Has("b"))
	})

	t.Run("delete removes an entry", func(t *testing.T) {
		c.Set("c", "value")
		c.Delete("c")
		_, ok := c.Get("c")
		assert.False(t, ok)
	})
}

func TestCacheCleanup(t *testing.T) {
	now := time.Now()
	c := New[int](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	now = now.Add(30 * time.Second)
	c.Set("c", 3)
	now = now.Add(40 * time.Second)

	// a and b are past the TTL, c is not.
	removed := c.Cleanup()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Has("c"))
}

func TestGetOrSet(t *testing.T) {
	t.Run("fetches at most once within the TTL", func(t *testing.T) {
		now := time.Now()
		c := New[[]string](5 * time.Minute)
		c.now = func() time.Time { return now }

		calls := 0
		fetch := func() ([]string, error) {
			calls++
			return []string{"CODE1"}, nil
		}

		v, err := c.GetOrSet("codes", fetch)
		require.NoError(t, err)
		assert.Equal(t, []string{"CODE1"}, v)

		v, err = c.GetOrSet("codes", fetch)
		require.NoError(t, err)
		assert.Equal(t, []string{"CODE1"}, v)
		assert.Equal(t, 1, calls)

		now = now.Add(5 * time.Minute)
		_, err = c.GetOrSet("codes", fetch)
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("failed fetches are not memoized", func(t *testing.T) {
		c := New[[]string](5 * time.Minute)

		calls := 0
		_, err := c.GetOrSet("codes", func() ([]string, error) {
			calls++
			return nil, errors.New("feed down")
		})
		require.Error(t, err)

		v, err := c.GetOrSet("codes", func() ([]string, error) {
			calls++
			return []string{"CODE1"}, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"CODE1"}, v)
		assert.Equal(t, 2, calls)
	})

	t.Run("empty results are not memoized", func(t *testing.T) {
		c := New[[]string](5 * time.Minute)

		calls := 0
		fetch := func() ([]string, error) {
			calls++
			return []string{}, nil
		}

		v, err := c.GetOrSet("codes", fetch)
		require.NoError(t, err)
		assert.Empty(t, v)

		_, err = c.GetOrSet("codes", fetch)
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Set("shared", n)
			c.Get("shared")
			c.GetOrSet("other", func() (int, error) { return n, nil })
		}(i)
	}
	wg.Wait()

	_, ok := c.Get("shared")
	assert.True(t, ok)
}
