package services

import (
	"context"

	"github.com/custodia-labs/razorsearch/internal/core/domain"
	"github.com/custodia-labs/razorsearch/internal/core/ports/driven"
	"github.com/custodia-labs/razorsearch/internal/core/ports/driving"
)

// --- Mock implementations shared by the service tests ---

// mockEmbedder implements driven.EmbeddingService for testing. Vectors
// are looked up per text so tests control which queries land near each
// other; unknown texts get the fallback vector.
type mockEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	embedErr error
	dims     int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		vectors:  make(map[string][]float32),
		fallback: []float32{1, 0, 0},
		dims:     3,
	}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *mockEmbedder) Dimensions() int {
	return m.dims
}

func (m *mockEmbedder) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbedder) Close() error {
	return nil
}

// mockLLM implements driven.LLMService for testing.
type mockLLM struct {
	response    string
	completeErr error
	calls       int
	lastSystem  string
	lastPrompt  string
	lastOpts    driven.CompleteOptions
}

func (m *mockLLM) Complete(_ context.Context, system, prompt string, opts driven.CompleteOptions) (string, error) {
	m.calls++
	m.lastSystem = system
	m.lastPrompt = prompt
	m.lastOpts = opts
	if m.completeErr != nil {
		return "", m.completeErr
	}
	return m.response, nil
}

func (m *mockLLM) ModelName() string {
	return "mock-llm"
}

func (m *mockLLM) Close() error {
	return nil
}

// failingMemory implements driving.MemoryService with every operation
// returning the same error, for testing degraded memory paths.
type failingMemory struct {
	err error
}

func (m *failingMemory) SaveQuery(_ context.Context, _ driving.SaveQueryInput) (string, error) {
	return "", m.err
}

func (m *failingMemory) SimilarQueries(_ context.Context, _ string, _ int, _ string, _ float64) ([]domain.SimilarQuery, error) {
	return nil, m.err
}

func (m *failingMemory) QueryHistory(_ context.Context, _ string, _, _ int) ([]domain.QueryRecord, error) {
	return nil, m.err
}

func (m *failingMemory) PopularQueries(_ context.Context, _, _ int) ([]domain.PopularQuery, error) {
	return nil, m.err
}

func (m *failingMemory) RecordClick(_ context.Context, _, _, _ string) error {
	return m.err
}
