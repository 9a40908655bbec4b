package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/campusdesk/campusdesk/pkg/models"
)

func newAskCmd() *cobra.Command {
	var (
		lang   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := buildApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.resolver.Resolve(ctx, strings.Join(args, " "), models.ParseLanguage(lang))
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Println(res.Text)
			if !res.Outcome.OK() {
				fmt.Fprintf(os.Stderr, "outcome: %s\n", res.Outcome)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&lang, "language", "l", "en", "answer language code (en, hi, gu, ta, mr)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}
