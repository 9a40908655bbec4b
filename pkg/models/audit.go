package models

import "time"

// ChatExchange is a single audited question/answer pair.
type ChatExchange struct {
	RequestID string    `json:"request_id"`
	Query     string    `json:"query,omitempty"`
	Language  Language  `json:"language"`
	Response  string    `json:"response,omitempty"`
	CacheHit  bool      `json:"cache_hit"`
	Outcome   Outcome   `json:"outcome"`
	Channel   string    `json:"channel"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditConfig controls the audit logging subsystem.
type AuditConfig struct {
	Enabled       bool     `yaml:"enabled"`
	DBPath        string   `yaml:"db_path"`
	RetentionDays int      `yaml:"retention_days"`
	Include       []string `yaml:"include"` // "queries", "responses"
	MaxBodySize   int      `yaml:"max_body_size"`
}

// AuditQueryOpts specifies filters for querying chat exchanges.
type AuditQueryOpts struct {
	Language  Language
	Outcome   Outcome
	Since     time.Time
	RequestID string
	Limit     int
}

// AuditStat holds exchange counts for a language/day combination.
type AuditStat struct {
	Language  Language
	Day       string
	Count     int
	CacheHits int
}
