// Package openai provides an LLM service adapter using the OpenAI chat
// completion API.
package openai

import (
	"context"
	"fmt"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/razorsearch/internal/core/ports/driven"
	"github.com/custodia-labs/razorsearch/internal/logger"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultModel   = "gpt-4o"
	DefaultTimeout = 30 * time.Second

	maxRetries = 2
	retryDelay = time.Second
)

// Config holds configuration for the OpenAI LLM service.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL, for Azure OpenAI or compatible
	// APIs. Optional.
	BaseURL string

	// Model is the chat model to use (default: gpt-4o).
	Model string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration
}

// LLMService calls the OpenAI chat completion API.
type LLMService struct {
	client  *goopenai.Client
	model   string
	timeout time.Duration
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &LLMService{
		client:  goopenai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}, nil
}

// Complete sends a system and user prompt and returns the reply text.
// Transient failures are retried with a short delay.
func (s *LLMService) Complete(ctx context.Context, system, prompt string, opts driven.CompleteOptions) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("Retrying completion request (attempt %d)", attempt+1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		reply, err := s.complete(ctx, system, prompt, opts)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("openai: chat completion failed after %d attempts: %w", maxRetries+1, lastErr)
}

func (s *LLMService) complete(ctx context.Context, system, prompt string, opts driven.CompleteOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	messages := []goopenai.ChatCompletionMessage{
		{Role: goopenai.ChatMessageRoleSystem, Content: system},
		{Role: goopenai.ChatMessageRoleUser, Content: prompt},
	}

	resp, err := s.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// ModelName returns the model identifier.
func (s *LLMService) ModelName() string {
	return s.model
}

// Close releases resources (no-op for HTTP-based API).
func (s *LLMService) Close() error {
	return nil
}
