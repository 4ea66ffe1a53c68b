package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/kanjigate/internal/config"
	"github.com/spf13/cobra"
)

var (
	// Version is set via -ldflags.
	Version = "dev"

	cfgFile  string
	logLevel string
	verbose  bool

	rootCmd = &cobra.Command{
		Use:   "kanjigate",
		Short: "Gate Anki kanji study on prerequisite mastery",
		Long: TitleStyle.Render("kanjigate") + SubtitleStyle.Render(" - prerequisite-gated kanji curriculum for Anki") + `

kanjigate decomposes vocabulary into characters and characters into their
components, creates the missing cards through AnkiConnect, and keeps every
card suspended until everything it is built from is known.

` + SubtitleStyle.Render("Examples:") + `
  kanjigate sync                   Run one full sync pass
  kanjigate add 語学 日本          Add vocabulary targets and sync
  kanjigate import-jpdb r.json     Import a jpdb.io review export
  kanjigate decompose 語学         Preview the decomposition graph
  kanjigate history                Show recent sync runs`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./kanjigate.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print every item, not only failures")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(importJPDBCmd)
	rootCmd.AddCommand(jlptCmd)
	rootCmd.AddCommand(kradfileCmd)
	rootCmd.AddCommand(decomposeCmd)
	rootCmd.AddCommand(historyCmd)
}

// Execute runs the root command and exits non-zero on failure. An interrupt
// cancels the running sync between items.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		stop()
		os.Exit(1)
	}
}

// loadConfig reads configuration and applies the --log-level override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
		if err := config.Validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	return cfg, nil
}
