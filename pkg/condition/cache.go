package condition

import (
	"sync"
	"time"

	"github.com/google/cel-go/cel"
)

// cacheEntry holds one compiled CEL program and its optional expiry.
type cacheEntry struct {
	program   cel.Program
	expiresAt time.Time // zero means "never expires"
}

func (e cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Cache holds compiled CEL programs keyed by condition name. This caches
// a *compiled program*, never a decision -- nothing about tuple data is
// cached, only the pure function of the condition's schema. Condition
// definitions rarely change, and recompiling their CEL program on every
// tuple evaluated is the one genuinely expensive, schema-only-dependent
// step in the evaluator.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration // zero means entries never expire
	entries map[string]cacheEntry
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets a time-to-live for cached programs. Useful when condition
// definitions can be hot-reloaded and a stale compiled program should
// eventually be dropped even without an explicit invalidation call.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = ttl }
}

// NewCache returns an empty Cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{entries: make(map[string]cacheEntry)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached program for name, if present and unexpired.
func (c *Cache) Get(name string) (cel.Program, bool) {
	c.mu.RLock()
	entry, ok := c.entries[name]
	c.mu.RUnlock()
	if !ok || entry.expired(time.Now()) {
		return nil, false
	}
	return entry.program, true
}

// Set stores a compiled program for name.
func (c *Cache) Set(name string, program cel.Program) {
	entry := cacheEntry{program: program}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[name] = entry
	c.mu.Unlock()
}

// Invalidate drops a cached program, e.g. after a condition definition is
// rewritten.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
}

// Size returns the number of cached programs, for tests and diagnostics.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
