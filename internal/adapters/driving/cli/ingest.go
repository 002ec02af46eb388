package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest content from configured sources",
	Long: `Walks every configured source (GitHub organisation repositories,
Slack channels) and indexes its content into the vector store. Already
indexed documents are skipped, so re-running is cheap and safe.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if ingestService == nil {
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		ing, err := a.ingestor()
		if err != nil {
			return err
		}
		ingestService = ing
		defer func() { ingestService = nil }()
	}

	report, err := ingestService.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Printf("Ingested %d documents (%d skipped, %d errors)\n",
		report.Ingested, report.Skipped, report.Errors)
	return nil
}
