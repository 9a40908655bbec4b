package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campusdesk/pkg/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var auditor server.Auditor
			if a.auditor != nil {
				auditor = a.auditor
			}
			srv := server.New(a.cfg.Listen, a.resolver, auditor, a.log.WithField("component", "server"))
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().String("listen", "", "listen address (overrides config)")
	_ = overrides.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	return cmd
}
