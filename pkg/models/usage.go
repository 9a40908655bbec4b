package models

import "time"

// CallKind identifies the upstream service a call went to.
type CallKind string

const (
	CallGeneration  CallKind = "generation"
	CallTranslation CallKind = "translation"
)

// UpstreamCall records a single upstream attempt.
type UpstreamCall struct {
	ID        int64         `json:"id"`
	Kind      CallKind      `json:"kind"`
	Provider  string        `json:"provider"`
	Language  Language      `json:"language,omitempty"`
	Outcome   Outcome       `json:"outcome"`
	Latency   time.Duration `json:"latency"`
	CreatedAt time.Time     `json:"created_at"`
}

// UsageSummary aggregates upstream calls per kind, provider and outcome.
type UsageSummary struct {
	Kind         CallKind      `json:"kind"`
	Provider     string        `json:"provider"`
	Outcome      Outcome       `json:"outcome"`
	Calls        int64         `json:"calls"`
	AvgLatency   time.Duration `json:"avg_latency"`
	LastCalledAt time.Time     `json:"last_called_at"`
}
