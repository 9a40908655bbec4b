package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campusdesk/pkg/audit"
	"github.com/campusdesk/campusdesk/pkg/models"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and manage the chat audit log",
	}

	cmd.AddCommand(
		newAuditSearchCmd(),
		newAuditStatsCmd(),
		newAuditCleanupCmd(),
	)
	return cmd
}

func newAuditSearchCmd() *cobra.Command {
	var (
		lang      string
		outcome   string
		since     string
		requestID string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search audited chat exchanges",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openAuditLogger()
			if err != nil {
				return err
			}
			defer l.Close()

			opts := models.AuditQueryOpts{
				Outcome:   models.Outcome(outcome),
				RequestID: requestID,
				Limit:     limit,
			}
			if lang != "" {
				opts.Language = models.ParseLanguage(lang)
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := l.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			fmt.Print(formatExchanges(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "language", "", "filter by answer language")
	cmd.Flags().StringVar(&outcome, "outcome", "", "filter by outcome (success, quota_exceeded, failed)")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&requestID, "request-id", "", "show a single request")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")
	return cmd
}

func newAuditStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show exchange counts per language and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openAuditLogger()
			if err != nil {
				return err
			}
			defer l.Close()

			stats, err := l.Stats(context.Background())
			if err != nil {
				return err
			}
			fmt.Print(formatAuditStats(stats))
			return nil
		},
	}
}

func newAuditCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete audit entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openAuditLogger()
			if err != nil {
				return err
			}
			defer l.Close()

			deleted, err := l.Cleanup(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d audit entries.\n", deleted)
			return nil
		},
	}
}

func openAuditLogger() (*audit.Logger, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return nil, err
	}
	return audit.New(cfg.Audit, newLogger(cfg.LogLevel).WithField("component", "audit"))
}

func formatExchanges(entries []models.ChatExchange) string {
	if len(entries) == 0 {
		return "No audit entries found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %-4s %-14s %-5s %8s %-19s  %s\n",
		"REQUEST ID", "LANG", "OUTCOME", "CACHE", "LATENCY", "TIME", "QUERY")
	b.WriteString(strings.Repeat("-", 120) + "\n")
	for _, e := range entries {
		hit := "miss"
		if e.CacheHit {
			hit = "hit"
		}
		fmt.Fprintf(&b, "%-36s %-4s %-14s %-5s %6dms %-19s  %s\n",
			e.RequestID, e.Language, e.Outcome, hit, e.LatencyMs,
			e.CreatedAt.Format("2006-01-02 15:04:05"), oneLine(e.Query, 60))
	}
	return b.String()
}

func formatAuditStats(stats []models.AuditStat) string {
	if len(stats) == 0 {
		return "No audit stats found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-12s %8s %10s\n", "LANGUAGE", "DAY", "COUNT", "CACHE HITS")
	b.WriteString(strings.Repeat("-", 43) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-10s %-12s %8d %10d\n", s.Language, s.Day, s.Count, s.CacheHits)
	}
	return b.String()
}

func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
