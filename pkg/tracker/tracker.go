package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/campusdesk/campusdesk/pkg/models"
)

// Tracker records and queries upstream call usage.
type Tracker interface {
	// Record stores one upstream call.
	Record(ctx context.Context, call models.UpstreamCall) error
	// CountSince returns the number of calls of kind made since a given time.
	// An empty provider counts calls across all providers.
	CountSince(ctx context.Context, kind models.CallKind, provider string, since time.Time) (int64, error)
	// Summary returns calls aggregated by kind, provider and outcome since a
	// given time. A zero since covers all recorded calls.
	Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error)
	// Recent returns the most recent calls, newest first.
	Recent(ctx context.Context, limit int) ([]models.UpstreamCall, error)
	// Close releases resources.
	Close() error
}

// SQLiteTracker implements Tracker with a SQLite database.
type SQLiteTracker struct {
	db *sql.DB
}

const createTable = `
CREATE TABLE IF NOT EXISTS upstream_calls (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	provider TEXT NOT NULL,
	language TEXT NOT NULL DEFAULT '',
	outcome TEXT NOT NULL,
	latency_ns INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_calls_kind_time ON upstream_calls(kind, provider, created_at);
`

// New creates a SQLiteTracker and runs auto-migration.
func New(dbPath string) (*SQLiteTracker, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open tracker db: %w", err)
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate tracker db: %w", err)
	}

	return &SQLiteTracker{db: db}, nil
}

// Record stores one upstream call.
func (t *SQLiteTracker) Record(ctx context.Context, call models.UpstreamCall) error {
	created := call.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO upstream_calls (kind, provider, language, outcome, latency_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(call.Kind), call.Provider, string(call.Language), string(call.Outcome),
		call.Latency.Nanoseconds(), created.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record call: %w", err)
	}
	return nil
}

// CountSince returns the number of calls of kind since a given time.
func (t *SQLiteTracker) CountSince(ctx context.Context, kind models.CallKind, provider string, since time.Time) (int64, error) {
	query := `SELECT COUNT(*) FROM upstream_calls WHERE kind = ? AND created_at >= ?`
	args := []any{string(kind), since.UnixNano()}
	if provider != "" {
		query += ` AND provider = ?`
		args = append(args, provider)
	}

	var n int64
	if err := t.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count calls: %w", err)
	}
	return n, nil
}

// Summary returns aggregated usage grouped by kind, provider and outcome.
func (t *SQLiteTracker) Summary(ctx context.Context, since time.Time) ([]models.UsageSummary, error) {
	query := `SELECT kind, provider, outcome, COUNT(*), CAST(AVG(latency_ns) AS INTEGER), MAX(created_at)
		 FROM upstream_calls`
	var args []any
	if !since.IsZero() {
		query += ` WHERE created_at >= ?`
		args = append(args, since.UnixNano())
	}
	query += ` GROUP BY kind, provider, outcome ORDER BY kind, provider, outcome`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	var summaries []models.UsageSummary
	for rows.Next() {
		var (
			s             models.UsageSummary
			kind, outcome string
			avg, last     int64
		)
		if err := rows.Scan(&kind, &s.Provider, &outcome, &s.Calls, &avg, &last); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		s.Kind = models.CallKind(kind)
		s.Outcome = models.Outcome(outcome)
		s.AvgLatency = time.Duration(avg)
		s.LastCalledAt = time.Unix(0, last).UTC()
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// Recent returns the most recent calls, newest first.
func (t *SQLiteTracker) Recent(ctx context.Context, limit int) ([]models.UpstreamCall, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, kind, provider, language, outcome, latency_ns, created_at
		 FROM upstream_calls ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent calls: %w", err)
	}
	defer rows.Close()

	var calls []models.UpstreamCall
	for rows.Next() {
		var (
			c                       models.UpstreamCall
			kind, language, outcome string
			latency, created        int64
		)
		if err := rows.Scan(&c.ID, &kind, &c.Provider, &language, &outcome, &latency, &created); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		c.Kind = models.CallKind(kind)
		c.Language = models.Language(language)
		c.Outcome = models.Outcome(outcome)
		c.Latency = time.Duration(latency)
		c.CreatedAt = time.Unix(0, created).UTC()
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// Close releases the database connection.
func (t *SQLiteTracker) Close() error {
	return t.db.Close()
}
