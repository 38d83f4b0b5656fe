// Package main is the docrank command line: persona-driven section ranking
// over a document collection, per-document outlines, and an HTTP API.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docrank/internal/config"
)

var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "docrank",
	Short:         "Rank document sections for a persona and task",
	Long:          "docrank infers document outlines from typography and ranks their top-level sections by embedding similarity to a persona and job to be done.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		cfg = config.Load()
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger = cfg.NewLogger(os.Stdout)
		slog.SetDefault(logger)
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
