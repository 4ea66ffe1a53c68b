package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/kanjigate/internal/config"
	"github.com/phrazzld/kanjigate/internal/curriculum"
	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/service"
	"github.com/spf13/cobra"
)

var (
	syncTargetsPath string
	syncAudit       bool

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass against the Anki collection",
		Long: `Run one sync pass: annotate vocabulary, create missing cards, promote
mastered cards, unlock cards whose prerequisites are known and suspend the
cards that are still locked.

Targets are read from --targets or data.targets_path when set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			path := syncTargetsPath
			if path == "" {
				path = cfg.Data.TargetsPath
			}
			var targets []domain.Target
			if path != "" {
				if targets, err = curriculum.LoadTargets(path); err != nil {
					return err
				}
			}
			return runSync(cmd.Context(), cmd.OutOrStdout(), cfg, logger, targets)
		},
	}
)

func init() {
	syncCmd.Flags().StringVar(&syncTargetsPath, "targets", "", "targets file (yaml, json or one entry per line)")
	syncCmd.Flags().BoolVar(&syncAudit, "audit", false, "check that no known card depends on an unknown one after the run")
}

// runSync wires the application and runs one sync pass over targets.
func runSync(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger, targets []domain.Target) error {
	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.cleanup()

	report, err := app.sync.Run(ctx, service.RunOptions{
		Targets:      targets,
		ObservedPath: cfg.Data.ObservedPath,
		Audit:        syncAudit,
		Observer:     newConsoleObserver(out, verbose),
	})
	printReport(out, report)
	if err != nil {
		return err
	}
	if n := len(report.Violations); n > 0 {
		return fmt.Errorf("%d known cards depend on cards that are not known", n)
	}
	return nil
}
