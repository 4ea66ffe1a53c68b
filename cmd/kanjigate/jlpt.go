package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/phrazzld/kanjigate/internal/curriculum"
	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/phrazzld/kanjigate/internal/store"
	"github.com/spf13/cobra"
)

var (
	jlptDir    string
	jlptOut    string
	jlptLevels []string

	jlptCmd = &cobra.Command{
		Use:   "jlpt",
		Short: "Report known vocabulary against the JLPT word lists",
		Long: `Compare the known vocabulary cards in Anki with the JLPT word lists
(<dir>/n5.csv ... <dir>/n1.csv, columns kanji, kana, waller_definition) and
write the missing words of each level to missing_jlpt_<level>_vocab.txt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			app, err := newApplication(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.cleanup()
			return reportJLPT(cmd.Context(), cmd.OutOrStdout(), app.cards, logger, jlptDir, jlptOut, jlptLevels)
		},
	}
)

func init() {
	jlptCmd.Flags().StringVar(&jlptDir, "dir", "jlpt", "directory holding the JLPT word lists")
	jlptCmd.Flags().StringVar(&jlptOut, "out", ".", "directory for the missing word files")
	jlptCmd.Flags().StringSliceVar(&jlptLevels, "levels", curriculum.JLPTLevels, "levels to check")
}

// reportJLPT prints per-level coverage of the known vocabulary and writes
// the missing words of each level to outDir. Levels without a word list are
// skipped.
func reportJLPT(ctx context.Context, w io.Writer, cards store.CardStore, logger *slog.Logger, dir, outDir string, levels []string) error {
	known, err := cards.FindByState(ctx, domain.StateKnown, domain.TierVocabulary)
	if err != nil {
		return fmt.Errorf("failed to list known vocabulary: %w", err)
	}
	vocab := curriculum.NewKnownVocabulary(known)
	fmt.Fprintf(w, "%s %d known vocabulary forms\n\n", TitleStyle.Render("JLPT coverage"), vocab.Len())

	var results []curriculum.Coverage
	for _, level := range levels {
		words, err := curriculum.LoadVocabList(dir, level)
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("no word list for level", slog.String("level", level), slog.String("dir", dir))
			continue
		}
		if err != nil {
			return err
		}

		c := curriculum.CheckCoverage(level, words, vocab)
		results = append(results, c)
		if err := writeMissingFile(filepath.Join(outDir, curriculum.MissingFileName(level)), c); err != nil {
			return err
		}
		fmt.Fprintf(w, "  %s %4d / %-4d %s\n", GlyphStyle.Render(c.Level), c.Known, c.Total, percent(c.Percent()))
	}

	if len(results) == 0 {
		return fmt.Errorf("no JLPT word lists found in %s", dir)
	}
	total := curriculum.Overall(results)
	fmt.Fprintf(w, "\n  %s %d / %d %s\n", TitleStyle.Render("all"), total.Known, total.Total, percent(total.Percent()))
	return nil
}

func percent(p float64) string {
	s := fmt.Sprintf("%.1f%%", p)
	switch {
	case p >= 80:
		return SuccessStyle.Render(s)
	case p >= 50:
		return WarningStyle.Render(s)
	default:
		return ErrorStyle.Render(s)
	}
}

func writeMissingFile(path string, c curriculum.Coverage) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return curriculum.WriteMissing(f, c)
}
