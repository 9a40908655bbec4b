package models

import "time"

// CacheKey identifies a resolved answer. Queries are compared verbatim:
// no trimming, no case folding.
type CacheKey struct {
	Query    string   `json:"query"`
	Language Language `json:"language"`
}

// Key builds a CacheKey.
func Key(query string, lang Language) CacheKey {
	return CacheKey{Query: query, Language: lang}
}

// Outcome tags how an answer was produced.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeQuotaExceeded Outcome = "quota_exceeded"
	OutcomeFailed        Outcome = "failed"
)

// OK reports whether the outcome is a real answer rather than a fallback.
func (o Outcome) OK() bool { return o == OutcomeSuccess }

// Worst returns the less successful of two outcomes. A translation of an
// apology is still an apology.
func Worst(a, b Outcome) Outcome {
	rank := func(o Outcome) int {
		switch o {
		case OutcomeSuccess:
			return 0
		case OutcomeFailed:
			return 1
		default:
			return 2
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// Answer is the text produced by a generator or translator together with
// how it was produced.
type Answer struct {
	Text    string  `json:"text"`
	Outcome Outcome `json:"outcome"`
}

// Entry is a cached answer.
type Entry struct {
	Text      string    `json:"text"`
	Outcome   Outcome   `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}

// Answer converts the entry back into an Answer.
func (e Entry) Answer() Answer {
	return Answer{Text: e.Text, Outcome: e.Outcome}
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Backend  string `json:"backend"`
	Entries  int64  `json:"entries"`
	Failures int64  `json:"failures"`
	Hits     int64  `json:"hits"`
	Misses   int64  `json:"misses"`
}

// HitRate returns hits / (hits + misses), or 0 with no lookups.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
