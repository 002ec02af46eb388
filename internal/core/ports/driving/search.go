package driving

import (
	"context"

	"github.com/custodia-labs/razorsearch/internal/core/domain"
)

// SearchService provides semantic search to external actors.
type SearchService interface {
	// Search runs semantic search with optional enrichment, summarisation
	// and memory context.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)
}
