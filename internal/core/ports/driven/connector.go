package driven

import (
	"context"

	"github.com/custodia-labs/razorsearch/internal/core/domain"
)

// SourceConnector fetches content items from one data source.
// GitHub and Slack each implement this interface; the ingestion
// orchestrator consumes the uniform RawItem stream without knowing which
// source produced it.
type SourceConnector interface {
	// Source returns the source tag ("github" or "slack").
	Source() string

	// Validate checks the connector is properly configured and
	// authenticated, typically with a lightweight test API call.
	// Returns nil if ready to ingest.
	Validate(ctx context.Context) error

	// Items streams content items. The item channel is closed when the
	// source is exhausted. Failures confined to one repository or channel
	// are emitted on the error channel and the stream continues; they
	// never abort the run. Connectors handle pagination and rate limiting
	// internally.
	Items(ctx context.Context) (<-chan domain.RawItem, <-chan error)

	// Close releases resources.
	Close() error
}
