package main

import (
	"github.com/spf13/cobra"

	"github.com/mrlynn/design-reviewer-backend/internal/api"
	"github.com/mrlynn/design-reviewer-backend/version"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "reviewer",
	Short: "Design review backend with versioned templates and LLM-assisted generation",
	Long: `Reviewer is the backend for MongoDB application design reviews.

It manages versioned review templates and generates review documents by
combining a template, the customer's responses, and reference context
retrieved from a vector store.

The server provides:
  - Template CRUD with full version history and revert
  - Document generation grounded in retrieved reference material
  - Ad-hoc design questions and transcript analysis`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.reviewer/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}
