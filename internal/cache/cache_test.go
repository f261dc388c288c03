// ABOUTME: Tests for the query cache
// ABOUTME: Covers TTL expiry, insertion-order eviction and invalidation

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet(t *testing.T) {
	c := New(time.Minute, 10, 0)
	defer c.Close()

	params := map[string]string{"level": "n5"}
	_, ok := c.Get("books.list", params)
	assert.False(t, ok)

	c.Set("books.list", params, []string{"b1", "b2"}, 0)

	v, ok := c.Get("books.list", params)
	require.True(t, ok)
	assert.Equal(t, []string{"b1", "b2"}, v)

	// Different params, different entry.
	_, ok = c.Get("books.list", map[string]string{"level": "n4"})
	assert.False(t, ok)
}

func TestKeyCanonicalization(t *testing.T) {
	// json.Marshal writes map keys in sorted order, so equivalent maps
	// produce identical keys.
	a := Key("op", map[string]any{"level": "n5", "year": 2024})
	b := Key("op", map[string]any{"year": 2024, "level": "n5"})
	assert.Equal(t, a, b)

	assert.Equal(t, "op", Key("op", nil))
	assert.NotEqual(t, Key("op1", nil), Key("op2", nil))
}

func TestExpiry(t *testing.T) {
	c := New(20*time.Millisecond, 10, time.Hour)
	defer c.Close()

	c.Set("op", nil, "value", 0)
	_, ok := c.Get("op", nil)
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)

	// Lazy expiry on read, before any sweep has run.
	_, ok = c.Get("op", nil)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestPeriodicSweep(t *testing.T) {
	c := New(10*time.Millisecond, 10, 20*time.Millisecond)
	defer c.Close()

	c.Set("op", nil, "value", 0)
	require.Equal(t, 1, c.Len())

	assert.Eventually(t, func() bool {
		return c.Len() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestEvictsOldestInserted(t *testing.T) {
	c := New(time.Minute, 2, 0)
	defer c.Close()

	c.Set("op", "a", 1, 0)
	c.Set("op", "b", 2, 0)
	c.Set("op", "c", 3, 0)

	_, ok := c.Get("op", "a")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = c.Get("op", "b")
	assert.True(t, ok)
	_, ok = c.Get("op", "c")
	assert.True(t, ok)
}

func TestSetRefreshesInsertionOrder(t *testing.T) {
	c := New(time.Minute, 2, 0)
	defer c.Close()

	c.Set("op", "a", 1, 0)
	c.Set("op", "b", 2, 0)
	c.Set("op", "a", 10, 0) // re-set moves "a" to the back
	c.Set("op", "c", 3, 0)

	_, ok := c.Get("op", "b")
	assert.False(t, ok, "b should now be the eviction candidate")
	v, ok := c.Get("op", "a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestInvalidate(t *testing.T) {
	c := New(time.Minute, 10, 0)
	defer c.Close()

	c.Set("books.list", map[string]string{"level": "n5"}, 1, 0)
	c.Set("books.list", map[string]string{"level": "n4"}, 2, 0)
	c.Set("exams.list", map[string]string{"level": "n5"}, 3, 0)

	c.Invalidate("books.list", map[string]string{"level": "n5"})
	_, ok := c.Get("books.list", map[string]string{"level": "n5"})
	assert.False(t, ok)
	_, ok = c.Get("books.list", map[string]string{"level": "n4"})
	assert.True(t, ok)

	c.InvalidateOp("books.list")
	_, ok = c.Get("books.list", map[string]string{"level": "n4"})
	assert.False(t, ok)
	_, ok = c.Get("exams.list", map[string]string{"level": "n5"})
	assert.True(t, ok, "other operations are untouched")
}

func TestFlush(t *testing.T) {
	c := New(time.Minute, 10, 0)
	defer c.Close()

	c.Set("a", nil, 1, 0)
	c.Set("b", nil, 2, 0)
	c.Flush()
	assert.Equal(t, 0, c.Len())
}

func TestCloseIsIdempotent(t *testing.T) {
	c := New(time.Minute, 10, 0)
	c.Close()
	c.Close()
}
