package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/platform/sqldb"
	"github.com/spf13/cobra"
)

var (
	historyLimit int

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			cache, err := openCache(cmd.Context(), cfg.Cache, logger)
			if err != nil {
				return err
			}
			if cache == nil {
				return errors.New("run history needs a cache database; cache.driver is none")
			}
			defer func() { _ = cache.Close() }()

			runs, err := cache.runs.Recent(cmd.Context(), historyLimit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), runs)
			return nil
		},
	}
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", sqldb.DefaultRecentLimit, "number of runs to show")
}

// printHistory writes one line per run, newest first, with the changed
// count of every phase that changed something.
func printHistory(w io.Writer, runs []*domain.SyncRun) {
	if len(runs) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("no sync runs recorded"))
		return
	}
	for _, run := range runs {
		var status string
		switch run.Status {
		case domain.SyncRunCompleted:
			status = SuccessStyle.Render(string(run.Status))
		case domain.SyncRunFailed:
			status = ErrorStyle.Render(string(run.Status))
		default:
			status = WarningStyle.Render(string(run.Status))
		}

		var changed []string
		for _, p := range run.Phases {
			if p.Changed > 0 || p.Failed > 0 {
				changed = append(changed, fmt.Sprintf("%s +%d/!%d", p.Phase, p.Changed, p.Failed))
			}
		}
		detail := strings.Join(changed, ", ")
		if detail == "" {
			detail = "no changes"
		}

		fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
			SubtitleStyle.Render(run.ID.String()[:8]),
			run.StartedAt.Local().Format(time.DateTime),
			status,
			SubtitleStyle.Render(run.Duration().Round(time.Millisecond).String()),
			detail)
		if run.Error != "" {
			fmt.Fprintf(w, "          %s\n", ErrorStyle.Render(run.Error))
		}
	}
}
