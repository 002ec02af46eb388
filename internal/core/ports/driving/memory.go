package driving

import (
	"context"

	"github.com/custodia-labs/razorsearch/internal/core/domain"
)

// SaveQueryInput carries everything recorded about one search.
type SaveQueryInput struct {
	// Query is the raw query text.
	Query string

	// UserID identifies who searched. Optional.
	UserID string

	// ResultsClicked seeds the clicked-result list, if already known.
	ResultsClicked []string

	// SourcesSearched lists the source tags the search covered.
	SourcesSearched []string

	// ResultCount is how many results the search returned.
	ResultCount int

	// Metadata carries extra payload fields stored verbatim.
	Metadata map[string]any
}

// MemoryService exposes the query memory operations to external actors.
type MemoryService interface {
	// SaveQuery records a search. Returns the new record's ID.
	SaveQuery(ctx context.Context, in SaveQueryInput) (string, error)

	// SimilarQueries returns past queries near the given one, scoped to
	// the tenant and optionally to one user, ordered by descending score.
	SimilarQueries(ctx context.Context, query string, limit int, userID string, minScore float64) ([]domain.SimilarQuery, error)

	// QueryHistory returns recent records newest first. daysBack of zero
	// means no time cutoff.
	QueryHistory(ctx context.Context, userID string, limit, daysBack int) ([]domain.QueryRecord, error)

	// PopularQueries aggregates history over the window and ranks by
	// popularity score.
	PopularQueries(ctx context.Context, limit, daysBack int) ([]domain.PopularQuery, error)

	// RecordClick attaches a clicked result to the nearest matching
	// record. A no-op when no record matches.
	RecordClick(ctx context.Context, query, resultID, userID string) error
}
