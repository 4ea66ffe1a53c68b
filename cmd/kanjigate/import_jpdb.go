package main

import (
	"fmt"

	"github.com/phrazzld/kanjigate/internal/curriculum"
	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/spf13/cobra"
)

var (
	importKnownOnly bool

	importJPDBCmd = &cobra.Command{
		Use:   "import-jpdb <review-export.json>",
		Short: "Import vocabulary and kanji from a jpdb.io review export",
		Long: `Read a jpdb.io review export and sync every vocabulary and kanji card in it
as a target. Cards ever graded "easy" are imported as known.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := curriculum.LoadReviewExport(args[0])
			if err != nil {
				return err
			}
			if importKnownOnly {
				targets = knownOnly(targets)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d targets from %s\n\n",
				TitleStyle.Render("importing"), len(targets), args[0])

			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			return runSync(cmd.Context(), cmd.OutOrStdout(), cfg, logger, targets)
		},
	}
)

func init() {
	importJPDBCmd.Flags().BoolVar(&importKnownOnly, "known-only", false, "import only cards graded easy at least once")
}

func knownOnly(targets []domain.Target) []domain.Target {
	out := targets[:0]
	for _, t := range targets {
		if t.Known {
			out = append(out, t)
		}
	}
	return out
}
