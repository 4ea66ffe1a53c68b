package main

import (
	"fmt"

	"github.com/phrazzld/kanjigate/internal/curriculum"
	"github.com/spf13/cobra"
)

var kradfileCmd = &cobra.Command{
	Use:   "kradfile <kradfile> <table.json>",
	Short: "Convert a KRADFILE into a JSON decomposition table",
	Long: `Convert a KRADFILE (EUC-JP or UTF-8) into the JSON decomposition table read
by data.decomposition_path.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := curriculum.ConvertKRADFILE(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d entries written to %s\n",
			SuccessStyle.Render("converted"), n, args[1])
		return nil
	},
}
