package domain

// SearchOptions configures a search request.
type SearchOptions struct {
	// Limit is the maximum number of results. Defaults to the configured
	// maximum when zero.
	Limit int

	// Sources filters results to specific source tags ("slack", "github").
	Sources []string

	// UserID identifies the searching user for memory scoping. Optional.
	UserID string

	// IncludeMemory requests the best-effort memory block.
	IncludeMemory bool

	// Summarise requests an LLM summary of the top results.
	Summarise bool
}

// SearchResult represents a single search hit.
type SearchResult struct {
	// ID is the result identifier, used later for click tracking.
	ID string

	// Source is the source tag the hit came from.
	Source string

	// Title is the human-readable title.
	Title string

	// Snippet is the matched content, possibly truncated for display.
	Snippet string

	// URL is the provenance link.
	URL string

	// Score is the similarity score (0-1).
	Score float64

	// Metadata carries remaining payload fields.
	Metadata map[string]any
}

// SearchResponse is the full response to a search request.
type SearchResponse struct {
	// Query is the original query text.
	Query string

	// EnrichedQuery is the LLM-rewritten query actually searched, equal to
	// Query when enrichment is disabled or failed.
	EnrichedQuery string

	// Results are the ranked hits.
	Results []SearchResult

	// Total is len(Results).
	Total int

	// Summary is the optional LLM summary of the top results. Empty when
	// summarisation is disabled or failed.
	Summary string

	// Memory is the optional memory context. Nil when the memory store is
	// disabled or failed.
	Memory *MemoryBlock
}
