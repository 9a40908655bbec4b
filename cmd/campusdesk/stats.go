package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campusdesk/pkg/tracker"
)

func newStatsCmd() *cobra.Command {
	var (
		since  time.Duration
		recent int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show upstream generation and translation usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			ctx := context.Background()

			if recent > 0 {
				calls, err := tr.Recent(ctx, recent)
				if err != nil {
					return err
				}
				if len(calls) == 0 {
					fmt.Println("No upstream calls recorded.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tKIND\tPROVIDER\tLANGUAGE\tOUTCOME\tLATENCY")
				for _, c := range calls {
					lang := string(c.Language)
					if lang == "" {
						lang = "-"
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
						c.CreatedAt.Format("2006-01-02T15:04:05"), c.Kind, c.Provider, lang, c.Outcome,
						c.Latency.Round(time.Millisecond))
				}
				return w.Flush()
			}

			var from time.Time
			if since > 0 {
				from = time.Now().Add(-since)
			}
			summaries, err := tr.Summary(ctx, from)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tPROVIDER\tOUTCOME\tCALLS\tAVG LATENCY\tLAST CALL")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					s.Kind, s.Provider, s.Outcome, s.Calls,
					s.AvgLatency.Round(time.Millisecond), s.LastCalledAt.Format("2006-01-02T15:04:05"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().DurationVar(&since, "since", 0, "only count calls newer than this (e.g. 24h)")
	cmd.Flags().IntVar(&recent, "recent", 0, "list the most recent N calls instead of a summary")
	return cmd
}
