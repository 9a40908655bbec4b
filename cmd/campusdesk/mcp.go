package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campusdesk/pkg/mcp"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server (stdio JSON-RPC)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			deps := mcp.Deps{
				Resolver: a.resolver,
				Tracker:  a.tracker,
				Cache:    a.stats,
				Budget:   a.budget,
				Logger:   a.log.WithField("component", "mcp"),
			}
			if a.auditor != nil {
				deps.Auditor = a.auditor
			}
			return mcp.New(deps, version).Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
