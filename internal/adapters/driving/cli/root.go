// Package cli implements the RazorSearch command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/razorsearch/internal/core/ports/driving"
	"github.com/custodia-labs/razorsearch/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Services used by the commands. Wired lazily from configuration on
// first use; tests swap these for mocks.
var (
	searchService driving.SearchService
	ingestService driving.IngestOrchestrator
	memoryService driving.MemoryService
)

var (
	verboseFlag bool
	configFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "razorsearch",
	Short: "Semantic search over your Slack and GitHub",
	Long: `RazorSearch ingests Slack messages and GitHub repositories into a
vector store and serves semantic search over them, with optional LLM
query enrichment, result summaries and a memory of past queries.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file (default ~/.razorsearch/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
