package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	historyUser  string
	historyLimit int
	historyDays  int

	popularLimit int
	popularDays  int

	clickUser string

	memoryJSON bool
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and update query memory",
	Long: `Query memory records every search: what was asked, by whom, how many
results came back and which ones were clicked. These commands read the
memory and record result clicks.`,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent queries",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var popularCmd = &cobra.Command{
	Use:   "popular",
	Short: "Show the most popular queries",
	Args:  cobra.NoArgs,
	RunE:  runPopular,
}

var clickCmd = &cobra.Command{
	Use:   "click [query] [result-id]",
	Short: "Record that a search result was opened",
	Args:  cobra.ExactArgs(2),
	RunE:  runClick,
}

func init() {
	historyCmd.Flags().StringVar(&historyUser, "user", "", "restrict to one user ID")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of records")
	historyCmd.Flags().IntVar(&historyDays, "days", 0, "only queries from the last N days (0 = all)")

	popularCmd.Flags().IntVarP(&popularLimit, "limit", "n", 10, "maximum number of queries")
	popularCmd.Flags().IntVar(&popularDays, "days", 30, "aggregation window in days")

	clickCmd.Flags().StringVar(&clickUser, "user", "", "user ID for memory scoping")

	memoryCmd.PersistentFlags().BoolVar(&memoryJSON, "json", false, "output as JSON")

	memoryCmd.AddCommand(historyCmd)
	memoryCmd.AddCommand(popularCmd)
	memoryCmd.AddCommand(clickCmd)
	rootCmd.AddCommand(memoryCmd)
}

// withMemory wires the memory service when tests have not provided one.
func withMemory(cmd *cobra.Command, run func() error) error {
	if memoryService != nil {
		return run()
	}

	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	mem := a.memory()
	if mem == nil {
		return fmt.Errorf("query memory is disabled in configuration")
	}
	memoryService = mem
	defer func() { memoryService = nil }()
	return run()
}

func runHistory(cmd *cobra.Command, _ []string) error {
	return withMemory(cmd, func() error {
		records, err := memoryService.QueryHistory(cmd.Context(), historyUser, historyLimit, historyDays)
		if err != nil {
			return fmt.Errorf("query history failed: %w", err)
		}

		if memoryJSON {
			return printJSON(cmd, records)
		}

		if len(records) == 0 {
			cmd.Println("No queries recorded.")
			return nil
		}
		for _, rec := range records {
			line := fmt.Sprintf("%s  %s (%d results", rec.Time().Format("2006-01-02 15:04"), rec.Query, rec.ResultCount)
			if rec.ClickCount > 0 {
				line += fmt.Sprintf(", %d clicked", rec.ClickCount)
			}
			line += ")"
			if rec.UserID != "" {
				line += "  [" + rec.UserID + "]"
			}
			cmd.Println(line)
		}
		return nil
	})
}

func runPopular(cmd *cobra.Command, _ []string) error {
	return withMemory(cmd, func() error {
		popular, err := memoryService.PopularQueries(cmd.Context(), popularLimit, popularDays)
		if err != nil {
			return fmt.Errorf("popular queries failed: %w", err)
		}

		if memoryJSON {
			return printJSON(cmd, popular)
		}

		if len(popular) == 0 {
			cmd.Println("No queries recorded.")
			return nil
		}
		for i, p := range popular {
			cmd.Printf("  [%d] %s (score %.1f, asked %d times, %d clicks)\n",
				i+1, p.Query, p.PopularityScore, p.Count, p.TotalClicks)
		}
		return nil
	})
}

func runClick(cmd *cobra.Command, args []string) error {
	return withMemory(cmd, func() error {
		if err := memoryService.RecordClick(cmd.Context(), args[0], args[1], clickUser); err != nil {
			return fmt.Errorf("record click failed: %w", err)
		}
		cmd.Println("Click recorded.")
		return nil
	})
}
