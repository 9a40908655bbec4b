package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/campusdesk/campusdesk/pkg/models"
)

func formatLanguages(langs []models.Language) string {
	var b strings.Builder
	for _, l := range langs {
		marker := ""
		if l.IsSource() {
			marker = " (source)"
		}
		fmt.Fprintf(&b, "%-4s %s%s\n", l, l.Name(), marker)
	}
	return b.String()
}

// formatUsage formats upstream call summaries as a text table.
func formatUsage(rows []models.UsageSummary) string {
	if len(rows) == 0 {
		return "No upstream calls recorded."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-12s %-15s %8s %10s  %-19s\n",
		"Kind", "Provider", "Outcome", "Calls", "Avg", "Last Call")
	b.WriteString(strings.Repeat("-", 82) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-12s %-12s %-15s %8d %10s  %-19s\n",
			r.Kind, r.Provider, r.Outcome, r.Calls,
			r.AvgLatency.Round(time.Millisecond), r.LastCalledAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

// formatBudgetStatus formats budget statuses as a text table.
func formatBudgetStatus(statuses []models.BudgetStatus) string {
	if len(statuses) == 0 {
		return "No budget policies found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-12s %-8s %10s %10s %10s %6s\n",
		"Kind", "Provider", "Period", "Max Calls", "Used", "Remaining", "Usage%")
	b.WriteString(strings.Repeat("-", 76) + "\n")
	for _, s := range statuses {
		provider := s.Policy.Provider
		if provider == "" {
			provider = "*"
		}
		pct := float64(0)
		if s.Policy.MaxCalls > 0 {
			pct = float64(s.Used) / float64(s.Policy.MaxCalls) * 100
		}
		fmt.Fprintf(&b, "%-12s %-12s %-8s %10d %10d %10d %5.1f%%\n",
			s.Policy.Kind, provider, s.Policy.Period, s.Policy.MaxCalls, s.Used, s.Remaining, pct)
	}
	return b.String()
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	return fmt.Sprintf("Cache Statistics (%s)\n"+
		"  Entries:  %d\n"+
		"  Failures: %d\n"+
		"  Hits:     %d\n"+
		"  Misses:   %d\n"+
		"  Hit Rate: %.1f%%\n",
		stats.Backend, stats.Entries, stats.Failures, stats.Hits, stats.Misses, stats.HitRate()*100)
}

// formatExchanges formats audited chat exchanges as a text table.
func formatExchanges(exchanges []models.ChatExchange) string {
	if len(exchanges) == 0 {
		return "No audit entries found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %-19s %-4s %-15s %-5s %-40s\n",
		"Request ID", "Time", "Lang", "Outcome", "Hit", "Query")
	b.WriteString(strings.Repeat("-", 124) + "\n")
	for _, e := range exchanges {
		q := e.Query
		if r := []rune(q); len(r) > 40 {
			q = string(r[:37]) + "..."
		}
		fmt.Fprintf(&b, "%-36s %-19s %-4s %-15s %-5t %-40s\n",
			e.RequestID, e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.Language, e.Outcome, e.CacheHit, q)
	}
	return b.String()
}
