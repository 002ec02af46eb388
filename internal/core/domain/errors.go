package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates a conditional update lost a concurrent race.
	// Callers may re-read and retry.
	ErrConflict = errors.New("conflict")

	// ErrEmptyQuery indicates a search was attempted with a blank query.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Features requiring LLM (query enrichment, summarisation, usefulness
	// filtering) are disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Nothing can be indexed or searched without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreUnavailable indicates the vector store is not configured.
	ErrVectorStoreUnavailable = errors.New("vector store unavailable")

	// ErrMemoryUnavailable indicates the query memory store is not configured.
	// Search still works; the memory block is simply omitted.
	ErrMemoryUnavailable = errors.New("query memory unavailable")

	// Connector errors.

	// ErrConnectorValidation indicates connector validation failed.
	// The source is misconfigured or credentials are invalid.
	ErrConnectorValidation = errors.New("connector validation failed")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
