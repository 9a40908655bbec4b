// Package lru is a bounded in-process response cache that evicts the least
// recently used answers once full.
package lru

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/campusdesk/campusdesk/pkg/models"
)

// Cache wraps a fixed-size LRU.
type Cache struct {
	entries *lru.Cache[models.CacheKey, models.Entry]
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a Cache holding at most size entries.
func New(size int) (*Cache, error) {
	l, err := lru.New[models.CacheKey, models.Entry](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &Cache{entries: l}, nil
}

// Get returns the entry stored under key and marks it recently used.
func (c *Cache) Get(key models.CacheKey) (models.Entry, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		c.misses.Add(1)
		return models.Entry{}, false
	}
	c.hits.Add(1)
	return e, true
}

// Put stores entry under key, evicting the oldest entry if full.
func (c *Cache) Put(key models.CacheKey, entry models.Entry) {
	c.entries.Add(key, entry)
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() (models.CacheStats, error) {
	var failures int64
	for _, e := range c.entries.Values() {
		if !e.Outcome.OK() {
			failures++
		}
	}
	return models.CacheStats{
		Backend:  "lru",
		Entries:  int64(c.entries.Len()),
		Failures: failures,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
	}, nil
}
