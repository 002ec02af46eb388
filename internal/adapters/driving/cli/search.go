package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/razorsearch/internal/core/domain"
)

var (
	searchLimit   int
	searchSources []string
	searchUser    string
	searchMemory  bool
	searchSummary bool
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Performs semantic search across ingested Slack and GitHub content.
The query is optionally rewritten by the LLM for better recall, and the
search is recorded in query memory when memory is enabled.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().StringSliceVar(&searchSources, "source", nil, "restrict to sources (github, slack)")
	searchCmd.Flags().StringVar(&searchUser, "user", "", "user ID for memory scoping")
	searchCmd.Flags().BoolVar(&searchMemory, "memory", false, "include similar past queries and history")
	searchCmd.Flags().BoolVar(&searchSummary, "summary", false, "summarise the top results with the LLM")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output the response as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if searchService == nil {
		a, err := loadApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		searchService = a.searcher()
		defer func() { searchService = nil }()
	}

	response, err := searchService.Search(ctx, args[0], domain.SearchOptions{
		Limit:         searchLimit,
		Sources:       searchSources,
		UserID:        searchUser,
		IncludeMemory: searchMemory,
		Summarise:     searchSummary,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return printJSON(cmd, response)
	}
	printSearchResponse(cmd, response)
	return nil
}

func printSearchResponse(cmd *cobra.Command, response *domain.SearchResponse) {
	if response.EnrichedQuery != response.Query {
		cmd.Printf("Searched for: %s\n\n", response.EnrichedQuery)
	}

	if response.Total == 0 {
		cmd.Println("No results found.")
	} else {
		cmd.Printf("Results (%d):\n\n", response.Total)
		for i, r := range response.Results {
			cmd.Printf("  [%d] %s (%.2f)\n", i+1, r.Title, r.Score)
			cmd.Printf("      Source: %s\n", r.Source)
			if r.Snippet != "" {
				cmd.Printf("      %s\n", r.Snippet)
			}
			if r.URL != "" {
				cmd.Printf("      %s\n", r.URL)
			}
			cmd.Println()
		}
	}

	if response.Summary != "" {
		cmd.Println("Summary:")
		cmd.Printf("  %s\n\n", response.Summary)
	}

	if response.Memory != nil {
		if len(response.Memory.Suggestions) > 0 {
			cmd.Println("Related past queries:")
			for _, s := range response.Memory.Suggestions {
				cmd.Printf("  - %s\n", s)
			}
			cmd.Println()
		}
		if len(response.Memory.RecentHistory) > 0 {
			cmd.Println("Recent searches:")
			for _, rec := range response.Memory.RecentHistory {
				cmd.Printf("  - %s (%d results)\n", rec.Query, rec.ResultCount)
			}
		}
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
