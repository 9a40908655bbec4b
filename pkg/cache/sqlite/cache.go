package sqlite

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/campusdesk/campusdesk/pkg/models"
)

// Cache is a persistent response cache backed by SQLite. Answers survive
// process restarts.
type Cache struct {
	db     *sql.DB
	logger *logrus.Entry
	hits   atomic.Int64
	misses atomic.Int64
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS answer_cache (
	query TEXT NOT NULL,
	language TEXT NOT NULL,
	answer TEXT NOT NULL,
	outcome TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY (query, language)
);
`

// New opens (or creates) the cache database at dbPath.
func New(dbPath string, logger *logrus.Entry) (*Cache, error) {
	if logger == nil {
		logger = logrus.WithField("component", "cache")
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db, logger: logger}, nil
}

// Get retrieves a cached answer. Read errors are logged and count as misses.
func (c *Cache) Get(key models.CacheKey) (models.Entry, bool) {
	var (
		e       models.Entry
		outcome string
		created int64
	)
	err := c.db.QueryRow(
		`SELECT answer, outcome, created_at FROM answer_cache WHERE query = ? AND language = ?`,
		key.Query, string(key.Language),
	).Scan(&e.Text, &outcome, &created)

	if err != nil {
		if err != sql.ErrNoRows {
			c.logger.WithError(err).Warn("cache read failed")
		}
		c.misses.Add(1)
		return models.Entry{}, false
	}

	e.Outcome = models.Outcome(outcome)
	e.CreatedAt = time.Unix(0, created).UTC()
	c.hits.Add(1)
	return e, true
}

// Put stores an answer. Write errors are logged and the write is dropped.
func (c *Cache) Put(key models.CacheKey, entry models.Entry) {
	created := entry.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO answer_cache (query, language, answer, outcome, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		key.Query, string(key.Language), entry.Text, string(entry.Outcome), created.UnixNano(),
	)
	if err != nil {
		c.logger.WithError(err).WithField("language", key.Language).Warn("cache write dropped")
	}
}

// Stats returns cache performance metrics.
func (c *Cache) Stats() (models.CacheStats, error) {
	var count, failures int64
	err := c.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN outcome != ? THEN 1 ELSE 0 END), 0) FROM answer_cache`,
		string(models.OutcomeSuccess),
	).Scan(&count, &failures)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return models.CacheStats{
		Backend:  "sqlite",
		Entries:  count,
		Failures: failures,
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
	}, nil
}

// Clear removes cache entries. If failuresOnly is true, only apology and
// untranslated fallback entries are removed.
func (c *Cache) Clear(failuresOnly bool) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if failuresOnly {
		res, err = c.db.Exec(`DELETE FROM answer_cache WHERE outcome != ?`, string(models.OutcomeSuccess))
	} else {
		res, err = c.db.Exec(`DELETE FROM answer_cache`)
	}
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}
