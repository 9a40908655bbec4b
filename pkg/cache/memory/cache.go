// Package memory is the default in-process response cache: unbounded, never
// evicting, lost on restart.
package memory

import (
	"sync"
	"sync/atomic"

	"github.com/campusdesk/campusdesk/pkg/models"
)

// Cache is an unbounded map-backed cache.
type Cache struct {
	mu      sync.RWMutex
	entries map[models.CacheKey]models.Entry
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[models.CacheKey]models.Entry)}
}

// Get returns the entry stored under key.
func (c *Cache) Get(key models.CacheKey) (models.Entry, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		c.misses.Add(1)
		return models.Entry{}, false
	}
	c.hits.Add(1)
	return e, true
}

// Put stores entry under key. The last writer wins.
func (c *Cache) Put(key models.CacheKey, entry models.Entry) {
	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Len returns the number of stored entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() (models.CacheStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var failures int64
	for _, e := range c.entries {
		if !e.Outcome.OK() {
			failures++
		}
	}
	return models.CacheStats{
		Backend:  "memory",
		Entries:  int64(len(c.entries)),
		Failures: failures,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
	}, nil
}
