// Package cache defines the response cache contract shared by the resolver
// and its backends.
package cache

import "github.com/campusdesk/campusdesk/pkg/models"

// Cache stores resolved answers. Implementations must be safe for concurrent
// use. Neither operation reports failure: absence is a miss, and a backend
// that cannot persist a write drops it.
type Cache interface {
	Get(key models.CacheKey) (models.Entry, bool)
	Put(key models.CacheKey, entry models.Entry)
}

// Statter is implemented by caches that report performance metrics.
type Statter interface {
	Stats() (models.CacheStats, error)
}
