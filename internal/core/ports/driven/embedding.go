package driven

import "context"

// EmbeddingService generates vector embeddings from text.
// This service is required: without embeddings nothing can be indexed or
// searched.
//
// Implementations may include:
//   - OpenAI / Azure OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Compatible inference servers behind the same API
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 1536, 3072).
	// Zero means unknown; callers should probe with a sample embedding
	// before creating collections.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
