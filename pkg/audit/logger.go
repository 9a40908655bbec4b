package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/campusdesk/campusdesk/pkg/models"
)

// Logger writes and queries chat exchanges in a dedicated SQLite database.
type Logger struct {
	db      *sql.DB
	cfg     models.AuditConfig
	log     *logrus.Entry
	done    chan struct{}
	wg      sync.WaitGroup
	include map[string]bool
}

// New opens the audit SQLite database, creates the schema and starts the
// hourly retention sweeper.
func New(cfg models.AuditConfig, log *logrus.Entry) (*Logger, error) {
	if log == nil {
		log = logrus.WithField("component", "audit")
	}

	db, err := sql.Open("sqlite", cfg.DBPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	inc := make(map[string]bool)
	for _, v := range cfg.Include {
		inc[v] = true
	}

	l := &Logger{
		db:      db,
		cfg:     cfg,
		log:     log,
		done:    make(chan struct{}),
		include: inc,
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS chat_exchanges (
		request_id TEXT PRIMARY KEY,
		query      TEXT NOT NULL DEFAULT '',
		language   TEXT NOT NULL,
		response   TEXT NOT NULL DEFAULT '',
		cache_hit  INTEGER NOT NULL DEFAULT 0,
		outcome    TEXT NOT NULL,
		channel    TEXT NOT NULL,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_exchanges_created ON chat_exchanges(created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_exchanges_language ON chat_exchanges(language)`)
	return err
}

// Log inserts an exchange, honouring the include flags and body size cap.
// A nil Logger discards the exchange.
func (l *Logger) Log(ctx context.Context, ex models.ChatExchange) error {
	if l == nil || l.db == nil {
		return nil
	}

	query, response := ex.Query, ex.Response
	if !l.include["queries"] {
		query = ""
	}
	if !l.include["responses"] {
		response = ""
	}
	query = truncate(query, l.cfg.MaxBodySize)
	response = truncate(response, l.cfg.MaxBodySize)

	created := ex.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chat_exchanges
		(request_id, query, language, response, cache_hit, outcome, channel, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ex.RequestID, query, string(ex.Language), response, ex.CacheHit,
		string(ex.Outcome), ex.Channel, ex.LatencyMs, created.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("log exchange: %w", err)
	}
	return nil
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Query returns exchanges matching the given options, newest first.
func (l *Logger) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.ChatExchange, error) {
	q := `SELECT request_id, query, language, response, cache_hit, outcome, channel, latency_ms, created_at
		FROM chat_exchanges WHERE 1=1`
	var args []any

	if opts.RequestID != "" {
		q += " AND request_id = ?"
		args = append(args, opts.RequestID)
	}
	if opts.Language != "" {
		q += " AND language = ?"
		args = append(args, string(opts.Language))
	}
	if opts.Outcome != "" {
		q += " AND outcome = ?"
		args = append(args, string(opts.Outcome))
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since.UnixNano())
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var exchanges []models.ChatExchange
	for rows.Next() {
		var (
			e                 models.ChatExchange
			language, outcome string
			created           int64
		)
		if err := rows.Scan(
			&e.RequestID, &e.Query, &language, &e.Response, &e.CacheHit,
			&outcome, &e.Channel, &e.LatencyMs, &created,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		e.Language = models.Language(language)
		e.Outcome = models.Outcome(outcome)
		e.CreatedAt = time.Unix(0, created).UTC()
		exchanges = append(exchanges, e)
	}
	return exchanges, rows.Err()
}

// Stats returns exchange counts grouped by language and UTC day.
func (l *Logger) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT language, date(created_at / 1000000000, 'unixepoch') AS day, count(*), COALESCE(SUM(cache_hit), 0)
		 FROM chat_exchanges GROUP BY language, day ORDER BY day DESC, language`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var (
			s        models.AuditStat
			language string
			day      sql.NullString
		)
		if err := rows.Scan(&language, &day, &s.Count, &s.CacheHits); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		s.Language = models.Language(language)
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes exchanges older than the configured retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM chat_exchanges WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			n, err := l.Cleanup(context.Background())
			if err != nil {
				l.log.WithError(err).Warn("audit retention sweep failed")
				continue
			}
			if n > 0 {
				l.log.WithField("deleted", n).Info("audit retention sweep")
			}
		}
	}
}
