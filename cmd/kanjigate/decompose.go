package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/phrazzld/kanjigate/internal/domain/decomp"
	"github.com/spf13/cobra"
)

var (
	decomposeTable string

	decomposeCmd = &cobra.Command{
		Use:   "decompose <text>...",
		Short: "Preview how text decomposes into characters and components",
		Long: `Print the characters of each argument and the prerequisite graph sync would
build for them. Nothing is written to Anki.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			path := decomposeTable
			if path == "" {
				path = cfg.Data.DecompositionPath
			}
			table, err := loadTable(path, logger)
			if err != nil {
				return err
			}
			printGraph(cmd.OutOrStdout(), table, args)
			return nil
		},
	}
)

func init() {
	decomposeCmd.Flags().StringVar(&decomposeTable, "table", "", "decomposition table (default is data.decomposition_path)")
}

// printGraph writes the glyphs of each text followed by both graph tiers.
func printGraph(w io.Writer, table decomp.Table, texts []string) {
	var inputs []decomp.Input
	for _, text := range texts {
		glyphs := decomp.Decompose(text)
		fmt.Fprintf(w, "%s %s %s\n", GlyphStyle.Render(decomp.Normalize(text)), SubtitleStyle.Render("→"), strings.Join(glyphs, " "))
		for _, g := range glyphs {
			inputs = append(inputs, decomp.Input{Identity: g})
		}
	}

	g := decomp.BuildGraph(table, inputs)
	if g.Size() == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("no characters"))
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, TitleStyle.Render("characters"))
	for _, n := range g.CharacterNodes() {
		fmt.Fprintf(w, "  %s %s\n", GlyphStyle.Render(n.Identity), strings.Join(n.Prerequisites, " "))
	}
	if len(g.Characters) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("none"))
	}

	fmt.Fprintln(w, TitleStyle.Render("components"))
	ids := make([]string, 0, len(g.Terminals))
	for _, n := range g.TerminalNodes() {
		ids = append(ids, n.Identity)
	}
	fmt.Fprintf(w, "  %s\n", strings.Join(ids, " "))
}
