package driven

import "context"

// LLMService provides chat-completion style language model calls.
// This is an optional service - when nil, every feature built on it
// (query enrichment, usefulness filtering, summarisation, message
// refinement) degrades to its documented fallback.
type LLMService interface {
	// Complete produces a completion from a system prompt and user prompt.
	Complete(ctx context.Context, systemPrompt, userPrompt string, opts CompleteOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// CompleteOptions configures a completion call.
type CompleteOptions struct {
	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float32

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int
}
