// ABOUTME: Tests for the batch loader
// ABOUTME: Covers cache-first resolution, write-back and failure isolation

package batch

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g333vn/Glingo-sub002/internal/cache"
	"github.com/g333vn/Glingo-sub002/internal/store"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c := cache.New(time.Minute, 64, 0)
	t.Cleanup(c.Close)
	return c
}

func TestLoad_CacheFirst(t *testing.T) {
	c := newTestCache(t)
	l := New(c, time.Minute, 4)

	c.Set("op", "k", "cached", 0)

	var fetched atomic.Bool
	results := l.Load(context.Background(), []Lookup{{
		Op:     "op",
		Params: "k",
		Fetch: func(context.Context) (any, error) {
			fetched.Store(true)
			return "fresh", nil
		},
	}})

	r := results[cache.Key("op", "k")]
	require.NoError(t, r.Err)
	assert.Equal(t, "cached", r.Value)
	assert.True(t, r.FromCache)
	assert.False(t, fetched.Load(), "cache hit must not fetch")
}

func TestLoad_FetchesMissesAndWritesBack(t *testing.T) {
	c := newTestCache(t)
	l := New(c, time.Minute, 4)

	results := l.Load(context.Background(), []Lookup{{
		Op:     "op",
		Params: "k",
		Fetch: func(context.Context) (any, error) {
			return "fresh", nil
		},
	}})

	r := results[cache.Key("op", "k")]
	require.NoError(t, r.Err)
	assert.Equal(t, "fresh", r.Value)
	assert.False(t, r.FromCache)

	v, ok := c.Get("op", "k")
	require.True(t, ok, "successful fetch is written back")
	assert.Equal(t, "fresh", v)
}

func TestLoad_PartialFailureIsIsolated(t *testing.T) {
	c := newTestCache(t)
	l := New(c, time.Minute, 4)

	boom := errors.New("fetch exploded")
	results := l.Load(context.Background(), []Lookup{
		{
			Op:     "op",
			Params: "bad",
			Fetch:  func(context.Context) (any, error) { return nil, boom },
		},
		{
			Op:     "op",
			Params: "good",
			Fetch:  func(context.Context) (any, error) { return 42, nil },
		},
	})

	bad := results[cache.Key("op", "bad")]
	assert.ErrorIs(t, bad.Err, boom)
	assert.Nil(t, bad.Value)

	good := results[cache.Key("op", "good")]
	require.NoError(t, good.Err, "one failure must not affect siblings")
	assert.Equal(t, 42, good.Value)

	_, ok := c.Get("op", "bad")
	assert.False(t, ok, "failures are never cached")
}

func TestBooksByLevel(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.PutBook(ctx, &store.Book{ID: "b1", Level: "n5", Title: "Core 1"}))
	require.NoError(t, st.PutBook(ctx, &store.Book{ID: "b2", Level: "n4", Title: "Core 2"}))

	c := newTestCache(t)
	l := New(c, time.Minute, 4)

	byLevel := l.BooksByLevel(ctx, st, []string{"n5", "n4", "n3"})
	require.Len(t, byLevel["n5"], 1)
	require.Len(t, byLevel["n4"], 1)
	assert.Empty(t, byLevel["n3"])
	assert.Equal(t, "Core 1", byLevel["n5"][0].Title)

	// Second pass is served from the cache.
	require.NoError(t, st.DeleteBook(ctx, "n5", "b1"))
	byLevel = l.BooksByLevel(ctx, st, []string{"n5"})
	require.Len(t, byLevel["n5"], 1, "cached listing survives the delete")
}
