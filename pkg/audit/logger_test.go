package audit

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/campusdesk/campusdesk/pkg/models"
)

func tempCfg(t *testing.T) models.AuditConfig {
	t.Helper()
	return models.AuditConfig{
		Enabled:       true,
		DBPath:        filepath.Join(t.TempDir(), "audit_test.db"),
		RetentionDays: 90,
		MaxBodySize:   1024,
		Include:       []string{"queries", "responses"},
	}
}

func mustNew(t *testing.T, cfg models.AuditConfig) *Logger {
	t.Helper()
	l, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func sampleExchange() models.ChatExchange {
	return models.ChatExchange{
		RequestID: "req-001",
		Query:     "When is the fee deadline?",
		Language:  models.Hindi,
		Response:  "शुल्क की अंतिम तिथि 30 जून है।",
		CacheHit:  false,
		Outcome:   models.OutcomeSuccess,
		Channel:   "http",
		LatencyMs: 150,
		CreatedAt: time.Now(),
	}
}

func TestLogAndQuery(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	if err := l.Log(ctx, sampleExchange()); err != nil {
		t.Fatalf("Log: %v", err)
	}

	exchanges, err := l.Query(ctx, models.AuditQueryOpts{Language: models.Hindi})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(exchanges) != 1 {
		t.Fatalf("expected 1 exchange, got %d", len(exchanges))
	}
	got := exchanges[0]
	if got.RequestID != "req-001" || got.Channel != "http" || got.LatencyMs != 150 {
		t.Errorf("unexpected exchange: %+v", got)
	}
	if got.Response != sampleExchange().Response {
		t.Errorf("response = %q", got.Response)
	}

	none, _ := l.Query(ctx, models.AuditQueryOpts{Language: models.Tamil})
	if len(none) != 0 {
		t.Errorf("expected no tamil exchanges, got %d", len(none))
	}
}

func TestQueryFilters(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = l.Log(ctx, sampleExchange())
	failed := sampleExchange()
	failed.RequestID = "req-002"
	failed.Outcome = models.OutcomeQuotaExceeded
	_ = l.Log(ctx, failed)

	byID, err := l.Query(ctx, models.AuditQueryOpts{RequestID: "req-002"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(byID) != 1 || byID[0].Outcome != models.OutcomeQuotaExceeded {
		t.Fatalf("unexpected result: %+v", byID)
	}

	byOutcome, _ := l.Query(ctx, models.AuditQueryOpts{Outcome: models.OutcomeSuccess})
	if len(byOutcome) != 1 {
		t.Errorf("expected 1 success exchange, got %d", len(byOutcome))
	}

	recent, _ := l.Query(ctx, models.AuditQueryOpts{Since: time.Now().Add(time.Hour)})
	if len(recent) != 0 {
		t.Errorf("expected no exchanges in the future, got %d", len(recent))
	}
}

func TestBodyTruncation(t *testing.T) {
	cfg := tempCfg(t)
	cfg.MaxBodySize = 16
	l := mustNew(t, cfg)
	ctx := context.Background()

	ex := sampleExchange()
	ex.Query = strings.Repeat("x", 100)
	if err := l.Log(ctx, ex); err != nil {
		t.Fatalf("Log: %v", err)
	}

	exchanges, err := l.Query(ctx, models.AuditQueryOpts{RequestID: "req-001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(exchanges[0].Query) != 16 {
		t.Errorf("expected truncated query len 16, got %d", len(exchanges[0].Query))
	}
	if !utf8.ValidString(exchanges[0].Response) {
		t.Error("truncated response is not valid UTF-8")
	}
	if len(exchanges[0].Response) > 16 {
		t.Errorf("response not truncated: %d bytes", len(exchanges[0].Response))
	}
}

func TestIncludeFiltering(t *testing.T) {
	cfg := tempCfg(t)
	cfg.Include = nil
	l := mustNew(t, cfg)
	ctx := context.Background()

	if err := l.Log(ctx, sampleExchange()); err != nil {
		t.Fatalf("Log: %v", err)
	}

	exchanges, err := l.Query(ctx, models.AuditQueryOpts{RequestID: "req-001"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if exchanges[0].Query != "" {
		t.Errorf("expected empty query, got %q", exchanges[0].Query)
	}
	if exchanges[0].Response != "" {
		t.Errorf("expected empty response, got %q", exchanges[0].Response)
	}
	if exchanges[0].Language != models.Hindi {
		t.Errorf("metadata should still be stored, got %+v", exchanges[0])
	}
}

func TestCleanup(t *testing.T) {
	cfg := tempCfg(t)
	cfg.RetentionDays = 0 // everything is old
	l := mustNew(t, cfg)
	ctx := context.Background()

	ex := sampleExchange()
	ex.CreatedAt = time.Now().AddDate(0, 0, -1)
	_ = l.Log(ctx, ex)

	deleted, err := l.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}
}

func TestStats(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = l.Log(ctx, sampleExchange())
	e2 := sampleExchange()
	e2.RequestID = "req-002"
	e2.CacheHit = true
	_ = l.Log(ctx, e2)

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) == 0 {
		t.Fatal("expected stats")
	}
	if stats[0].Count != 2 || stats[0].CacheHits != 1 {
		t.Errorf("unexpected stat: %+v", stats[0])
	}
	if stats[0].Day != time.Now().UTC().Format("2006-01-02") {
		t.Errorf("unexpected day %q", stats[0].Day)
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	s := "नमस्ते" // 3-byte runes
	got := truncate(s, 4)
	if got != "न" {
		t.Errorf("truncate = %q, want %q", got, "न")
	}
	if truncate("abc", 0) != "abc" {
		t.Error("zero max disables truncation")
	}
}

func TestNilLoggerSafe(t *testing.T) {
	var l *Logger
	if err := l.Log(context.Background(), sampleExchange()); err != nil {
		t.Errorf("nil logger should be safe: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("nil close: %v", err)
	}
}

func TestNewInvalidPath(t *testing.T) {
	cfg := models.AuditConfig{
		Enabled: true,
		DBPath:  filepath.Join(os.TempDir(), "nonexistent", "deep", "path", "audit.db"),
		Include: []string{"queries"},
	}
	_, err := New(cfg, nil)
	if err == nil {
		t.Error("expected error for invalid path")
	}
}
