package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campusdesk/pkg/cache/sqlite"
	"github.com/campusdesk/campusdesk/pkg/config"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and clear the persistent answer cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openSQLiteCache()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			stats, err := c.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("Backend:  %s\nEntries:  %d\nFailures: %d\n", stats.Backend, stats.Entries, stats.Failures)
			return nil
		},
	}

	var failuresOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openSQLiteCache()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			n, err := c.Clear(failuresOnly)
			if err != nil {
				return err
			}
			if failuresOnly {
				fmt.Printf("Cleared %d apology and untranslated entries.\n", n)
			} else {
				fmt.Printf("Cleared %d cache entries.\n", n)
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&failuresOnly, "failures", false, "only clear non-success entries")

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}

// openSQLiteCache opens the persistent cache. In-process backends cannot be
// inspected from another process.
func openSQLiteCache() (*sqlite.Cache, error) {
	cfg, err := loadConfig(false)
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Backend != config.CacheSQLite {
		return nil, fmt.Errorf("cache backend %q lives in the server process; use the campusdesk_cache_stats MCP tool", cfg.Cache.Backend)
	}
	return sqlite.New(cfg.DBPath, newLogger(cfg.LogLevel).WithField("component", "cache"))
}
