// ABOUTME: Thread-safe TTL cache for memoizing catalog query results.
// ABOUTME: Keys combine the operation name with a canonical form of its parameters.

package cache

import (
	"container/list"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// entry stores one cached result with its expiry and list element.
type entry struct {
	value     any
	expiresAt time.Time
	element   *list.Element
}

// Cache provides a thread-safe, TTL-based, size-limited cache for query
// results. Uses a doubly-linked list to maintain insertion order for O(1)
// eviction of the oldest entry when at capacity.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	order      *list.List // keys in insertion order (oldest at front)
	defaultTTL time.Duration
	maxSize    int
	done       chan struct{}
	closed     bool
}

// New creates a query cache with the given default TTL and maximum size.
// A background goroutine sweeps expired entries at the given interval
// (once a minute when sweepEvery is zero).
func New(defaultTTL time.Duration, maxSize int, sweepEvery time.Duration) *Cache {
	if sweepEvery <= 0 {
		sweepEvery = time.Minute
	}
	c := &Cache{
		entries:    make(map[string]*entry),
		order:      list.New(),
		defaultTTL: defaultTTL,
		maxSize:    maxSize,
		done:       make(chan struct{}),
	}
	go c.sweep(sweepEvery)
	return c
}

// Key builds the cache key for an operation and its parameters. Params are
// canonicalized through json.Marshal, which emits map keys in sorted
// order, so equivalent parameter sets always produce the same key.
func Key(op string, params any) string {
	if params == nil {
		return op
	}
	data, err := json.Marshal(params)
	if err != nil {
		// Unencodable params still get a usable, non-colliding key.
		return op + ":!unencodable"
	}
	return op + ":" + string(data)
}

// Get returns the cached value for the operation and params. Expired
// entries are treated as absent and removed lazily.
func (c *Cache) Get(op string, params any) (any, bool) {
	key := Key(op, params)

	c.mu.RLock()
	e, ok := c.entries[key]
	if ok && time.Now().Before(e.expiresAt) {
		v := e.value
		c.mu.RUnlock()
		return v, true
	}
	c.mu.RUnlock()

	if ok {
		c.mu.Lock()
		if e, stale := c.entries[key]; stale && !time.Now().Before(e.expiresAt) {
			c.removeLocked(key, e)
		}
		c.mu.Unlock()
	}
	return nil, false
}

// Set stores a value for the operation and params. A non-positive ttl uses
// the cache's default. If the cache is at capacity, the oldest inserted
// entry is evicted.
func (c *Cache) Set(op string, params any, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	key := Key(op, params)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, exists := c.entries[key]; exists {
		e.value = value
		e.expiresAt = now.Add(ttl)
		c.order.MoveToBack(e.element)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	elem := c.order.PushBack(key)
	c.entries[key] = &entry{
		value:     value,
		expiresAt: now.Add(ttl),
		element:   elem,
	}
}

// Invalidate removes the entry for an exact operation + params pair.
func (c *Cache) Invalidate(op string, params any) {
	key := Key(op, params)
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(key, e)
	}
}

// InvalidateOp removes every entry belonging to an operation regardless of
// params.
func (c *Cache) InvalidateOp(op string) {
	prefix := op + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if key == op || strings.HasPrefix(key, prefix) {
			c.removeLocked(key, e)
		}
	}
}

// Flush empties the cache.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.order.Init()
}

// Len returns the number of live entries (including not-yet-swept expired
// ones).
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// removeLocked deletes one entry. Must be called with mu held.
func (c *Cache) removeLocked(key string, e *entry) {
	c.order.Remove(e.element)
	delete(c.entries, key)
}

// evictOldest removes the oldest entry from the cache.
// Must be called with mu held. O(1) operation using linked list.
func (c *Cache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}

	key, _ := front.Value.(string)
	c.order.Remove(front)
	delete(c.entries, key)
}

// sweep runs in a background goroutine, periodically removing expired
// entries.
func (c *Cache) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runSweep()
		case <-c.done:
			return
		}
	}
}

// runSweep removes all expired entries from the cache.
func (c *Cache) runSweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			c.removeLocked(key, e)
		}
	}
}

// Close stops the background sweep goroutine. It is safe to call multiple times.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.done)
		c.closed = true
	}
}
