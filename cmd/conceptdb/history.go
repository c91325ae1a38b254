package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/conceptdb/internal/app"
	"github.com/yungbote/conceptdb/internal/platform/logger"
	"github.com/yungbote/conceptdb/internal/services"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var (
		kind  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent import runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				runs, err := a.Services.History.ListRecent(ctx, kind, limit)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"imports": runs})
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Only runs of this kind (concepts, mappings, variants, aggregates_*)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs")
	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the mutating API endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			tokens := services.NewTokenService(logger.Nop(), cfg.Auth.JWTSecret)
			if !tokens.Enabled() {
				return usagef("auth.jwt_secret (or JWT_SECRET_KEY) is not configured")
			}
			tok, err := tokens.Issue(subject, ttl)
			if err != nil {
				return usagef("%v", err)
			}
			return printJSON(cmd, map[string]any{"token": tok, "subject": subject, "expiresIn": ttl.String()})
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "Operator name recorded with each import run")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

