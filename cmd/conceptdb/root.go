package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/conceptdb/internal/app"
	domain "github.com/yungbote/conceptdb/internal/domain/concepts"
	"github.com/yungbote/conceptdb/internal/platform/logger"
)

const (
	exitError      = 1
	exitValidation = 2
	exitConflict   = 3
)

type rootOptions struct {
	configPath string
	logMode    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "conceptdb",
		Short:         "Concept identity and aggregation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to YAML config (default: $CONCEPTDB_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.logMode, "log-mode", "", "Override log mode (development|production)")

	cmd.AddCommand(
		newServeCmd(opts),
		newImportCmd(opts),
		newMappingsCmd(opts),
		newVariantsCmd(opts),
		newLookupCmd(opts),
		newAggregatesCmd(opts),
		newHistoryCmd(opts),
		newTokenCmd(opts),
	)
	return cmd
}

func (o *rootOptions) loadConfig() (*app.Config, error) {
	cfg, err := app.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logMode != "" {
		cfg.Log.Mode = o.logMode
	}
	return cfg, nil
}

// withApp wires the application for one command and closes it afterwards,
// which also persists the embedded graph snapshot.
func (o *rootOptions) withApp(ctx context.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a, err := app.NewWithLogger(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func exitCode(err error) int {
	switch domain.CodeOf(err) {
	case domain.CodeValidation:
		return exitValidation
	case domain.CodeConflict, domain.CodeAmbiguous, domain.CodeInvariantViolation:
		return exitConflict
	}
	var usage *usageError
	if errors.As(err, &usage) {
		return exitValidation
	}
	return exitError
}

type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}
