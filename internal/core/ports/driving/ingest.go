package driving

import "context"

// IngestReport summarises one ingestion run.
type IngestReport struct {
	// Ingested is the number of documents upserted.
	Ingested int

	// Skipped is the number of items skipped (already present, filtered
	// out as not useful, or too short).
	Skipped int

	// Errors is the number of item or group level failures that were
	// logged and stepped over.
	Errors int
}

// IngestOrchestrator drives ingestion runs across configured connectors.
type IngestOrchestrator interface {
	// Run walks every connector and ingests its items. Per-item and
	// per-group failures are contained; Run only returns an error when
	// the run as a whole cannot proceed (for example, context cancelled
	// or no connectors configured).
	Run(ctx context.Context) (*IngestReport, error)
}
