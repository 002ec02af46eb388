package cli

import (
	"context"

	"github.com/custodia-labs/razorsearch/internal/core/domain"
	"github.com/custodia-labs/razorsearch/internal/core/ports/driving"
)

// --- Mock implementations ---

// mockSearchService implements driving.SearchService for testing.
type mockSearchService struct {
	response *domain.SearchResponse
	err      error
	lastOpts domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.response != nil {
		return m.response, nil
	}
	return &domain.SearchResponse{
		Query:         query,
		EnrichedQuery: query,
		Results: []domain.SearchResult{
			{
				ID:      "r1",
				Source:  "github",
				Title:   "api-service README",
				Snippet: "API service handles payment settlement batches.",
				URL:     "https://github.com/acme/api-service",
				Score:   0.91,
			},
		},
		Total: 1,
	}, nil
}

// mockIngestService implements driving.IngestOrchestrator for testing.
type mockIngestService struct {
	report *driving.IngestReport
	err    error
}

func (m *mockIngestService) Run(_ context.Context) (*driving.IngestReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.report != nil {
		return m.report, nil
	}
	return &driving.IngestReport{Ingested: 3, Skipped: 1}, nil
}

// mockMemoryService implements driving.MemoryService for testing.
type mockMemoryService struct {
	history []domain.QueryRecord
	popular []domain.PopularQuery
	clicks  [][3]string
	err     error
}

func (m *mockMemoryService) SaveQuery(_ context.Context, in driving.SaveQueryInput) (string, error) {
	return "id-1", m.err
}

func (m *mockMemoryService) SimilarQueries(_ context.Context, _ string, _ int, _ string, _ float64) ([]domain.SimilarQuery, error) {
	return nil, m.err
}

func (m *mockMemoryService) QueryHistory(_ context.Context, _ string, _, _ int) ([]domain.QueryRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.history, nil
}

func (m *mockMemoryService) PopularQueries(_ context.Context, _, _ int) ([]domain.PopularQuery, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.popular, nil
}

func (m *mockMemoryService) RecordClick(_ context.Context, query, resultID, userID string) error {
	if m.err != nil {
		return m.err
	}
	m.clicks = append(m.clicks, [3]string{query, resultID, userID})
	return nil
}

// --- Test helpers ---

// setupTestServices installs mocks for all services and returns a
// cleanup function restoring the previous wiring.
func setupTestServices() func() {
	prevSearch := searchService
	prevIngest := ingestService
	prevMemory := memoryService

	searchService = &mockSearchService{}
	ingestService = &mockIngestService{}
	memoryService = &mockMemoryService{}

	return func() {
		searchService = prevSearch
		ingestService = prevIngest
		memoryService = prevMemory
	}
}
