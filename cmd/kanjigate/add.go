package main

import (
	"fmt"

	"github.com/phrazzld/kanjigate/internal/domain"
	"github.com/spf13/cobra"
)

var (
	addTier  string
	addKnown bool

	addCmd = &cobra.Command{
		Use:   "add <text>...",
		Short: "Add study targets and sync",
		Long: `Add one or more words or characters as study targets, then run a full sync.

A single character is added as a character target and anything longer as
vocabulary, unless --tier says otherwise. --known marks the targets as
already mastered; components they depend on are marked known as well.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targets, err := targetsFromArgs(args, addTier, addKnown)
			if err != nil {
				return err
			}
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			return runSync(cmd.Context(), cmd.OutOrStdout(), cfg, logger, targets)
		},
	}
)

func init() {
	addCmd.Flags().StringVar(&addTier, "tier", "", "force the tier of every target (vocabulary, character, subcomponent)")
	addCmd.Flags().BoolVar(&addKnown, "known", false, "mark the targets as already known")
}

func targetsFromArgs(args []string, tierName string, known bool) ([]domain.Target, error) {
	var tier domain.Tier
	if tierName != "" {
		var err error
		if tier, err = domain.ParseTier(tierName); err != nil {
			return nil, fmt.Errorf("invalid --tier: %w", err)
		}
	}
	targets := make([]domain.Target, 0, len(args))
	for _, a := range args {
		targets = append(targets, domain.Target{Text: a, Tier: tier, Known: known})
	}
	return targets, nil
}
