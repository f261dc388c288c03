// ABOUTME: Cascade engine wiring: store access, query-cache invalidation
// ABOUTME: and the per-item error reporting shared by import and delete

package transfer

import (
	"fmt"
	"log/slog"

	"github.com/g333vn/Glingo-sub002/internal/cache"
	"github.com/g333vn/Glingo-sub002/internal/store"
)

// Engine performs cascade export, import and delete against the content
// store. A nil cache disables invalidation.
type Engine struct {
	store  store.Store
	cache  *cache.Cache
	logger *slog.Logger
}

// New creates a cascade engine.
func New(st store.Store, c *cache.Cache) *Engine {
	return &Engine{
		store:  st,
		cache:  c,
		logger: slog.Default().With("component", "transfer"),
	}
}

// ItemError records one failed item of a multi-item operation.
type ItemError struct {
	Store string `json:"store"`
	Key   string `json:"key"`
	Err   string `json:"error"`
}

func itemError(storeName, key string, err error) ItemError {
	return ItemError{Store: storeName, Key: key, Err: err.Error()}
}

// invalidate drops every cached result of the named query operations.
func (e *Engine) invalidate(ops ...string) {
	if e.cache == nil {
		return
	}
	for _, op := range ops {
		e.cache.InvalidateOp(op)
	}
}

func notFound(what, key string) error {
	return fmt.Errorf("%s %s not found", what, key)
}
