// ABOUTME: Batch loader that resolves many catalog lookups in one call
// ABOUTME: Cache-first, with bounded concurrent fetches for the misses

package batch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/g333vn/Glingo-sub002/internal/cache"
	"github.com/g333vn/Glingo-sub002/internal/store"
)

// Lookup describes one cacheable fetch: the query-cache operation name,
// its parameters, and the function that performs the fetch on a miss.
type Lookup struct {
	Op     string
	Params any
	Fetch  func(ctx context.Context) (any, error)
}

// Result is the outcome of one lookup. A failed lookup carries its error
// and a nil Value; it never affects the other lookups in the batch.
type Result struct {
	Value     any
	Err       error
	FromCache bool
}

// Loader resolves batches of lookups against the query cache, fanning out
// misses concurrently.
type Loader struct {
	cache       *cache.Cache
	defaultTTL  time.Duration
	concurrency int
	logger      *slog.Logger
}

// New creates a loader. Successful fetches are written back to the cache
// with defaultTTL. Concurrency bounds the number of in-flight fetches
// (8 when non-positive).
func New(c *cache.Cache, defaultTTL time.Duration, concurrency int) *Loader {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Loader{
		cache:       c,
		defaultTTL:  defaultTTL,
		concurrency: concurrency,
		logger:      slog.Default().With("component", "batch"),
	}
}

// Load resolves every lookup and returns results keyed by the lookup's
// cache key. Cache hits are returned immediately; misses are fetched
// concurrently. A fetch failure is recorded in that lookup's Result only,
// so one failure never cancels or hides its siblings.
func (l *Loader) Load(ctx context.Context, lookups []Lookup) map[string]Result {
	results := make([]Result, len(lookups))
	keys := make([]string, len(lookups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for i, lk := range lookups {
		keys[i] = cache.Key(lk.Op, lk.Params)
		if v, ok := l.cache.Get(lk.Op, lk.Params); ok {
			results[i] = Result{Value: v, FromCache: true}
			continue
		}

		i, lk := i, lk
		g.Go(func() error {
			v, err := lk.Fetch(gctx)
			if err != nil {
				l.logger.Warn("batch fetch failed", "op", lk.Op, "error", err)
				results[i] = Result{Err: err}
				return nil
			}
			l.cache.Set(lk.Op, lk.Params, v, l.defaultTTL)
			results[i] = Result{Value: v}
			return nil
		})
	}

	// Goroutines never return errors, so Wait only blocks for completion.
	g.Wait()

	out := make(map[string]Result, len(lookups))
	for i, key := range keys {
		out[key] = results[i]
	}
	return out
}

// BooksByLevel loads the book listings for several levels at once,
// returning them keyed by level. Levels whose fetch failed are absent from
// the map.
func (l *Loader) BooksByLevel(ctx context.Context, st store.Store, levels []string) map[string][]store.Book {
	lookups := make([]Lookup, 0, len(levels))
	for _, level := range levels {
		level := level
		lookups = append(lookups, Lookup{
			Op:     "books.list",
			Params: map[string]string{"level": level},
			Fetch: func(ctx context.Context) (any, error) {
				books, err := st.ListBooks(ctx, level)
				if err != nil {
					return nil, err
				}
				return books, nil
			},
		})
	}

	resolved := l.Load(ctx, lookups)
	out := make(map[string][]store.Book, len(levels))
	for _, level := range levels {
		key := cache.Key("books.list", map[string]string{"level": level})
		r, ok := resolved[key]
		if !ok || r.Err != nil {
			continue
		}
		if books, ok := r.Value.([]store.Book); ok {
			out[level] = books
		}
	}
	return out
}
