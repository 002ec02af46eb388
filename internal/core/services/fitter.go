package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/razorsearch/internal/core/ports/driven"
	"github.com/custodia-labs/razorsearch/internal/logger"
)

// DefaultTokenBudget leaves comfortable headroom under the embedding
// provider's 8192-token input limit.
const DefaultTokenBudget = 6000

const (
	truncationNote          = "\n\n[Note: Content truncated due to length]"
	summarisedNote          = "\n\n[Note: This conversation was summarised due to length constraints]"
	summarisedTruncatedNote = "\n\n[Note: Content was summarised and truncated due to length]"

	summariseSystem = "You are a conversation summariser. Create comprehensive but concise summaries."

	summarisePrompt = `This conversation is too long for embedding. Create a comprehensive but concise summary that preserves:
- Key technical discussions and solutions
- Important decisions
- Action items and outcomes
- Critical context

Keep it under 1500 words maximum.

Conversation to summarise:
%s

Concise summary:`
)

// EstimateTokens estimates the token count of text using the fixed
// heuristic of one token per four characters of English text.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// ContentFitter guarantees text fits a token budget, summarising through
// the LLM when possible and hard-truncating otherwise. This is the only
// place content can be silently lossy; callers must treat the output as
// best-effort, not exact.
type ContentFitter struct {
	llm    driven.LLMService
	budget int
}

// NewContentFitter creates a content fitter. The llm is optional; without
// it oversized text is always truncated. A budget of zero or less uses
// DefaultTokenBudget.
func NewContentFitter(llm driven.LLMService, budget int) *ContentFitter {
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	return &ContentFitter{llm: llm, budget: budget}
}

// Budget returns the token budget the fitter enforces.
func (f *ContentFitter) Budget() int {
	return f.budget
}

// Fit returns text whose estimated token count is at or under the budget.
// Text already under budget is returned unchanged. Oversized text is
// summarised by the LLM; if the summary is still too long, or the LLM is
// absent or fails, the text is hard-truncated with a marker appended.
func (f *ContentFitter) Fit(ctx context.Context, text string) string {
	if EstimateTokens(text) <= f.budget {
		return text
	}

	maxChars := f.budget * 4
	logger.Debug("Text too long (~%d tokens), fitting to %d", EstimateTokens(text), f.budget)

	if f.llm != nil {
		// Give the model up to twice the budget worth of context.
		window := text
		if len(window) > maxChars*2 {
			window = window[:maxChars*2]
		}

		summary, err := f.llm.Complete(ctx, summariseSystem, fmt.Sprintf(summarisePrompt, window), driven.CompleteOptions{
			Temperature: 0.2,
			MaxTokens:   1500,
		})
		if err == nil {
			result := strings.TrimSpace(summary) + summarisedNote
			if EstimateTokens(result) <= f.budget {
				logger.Debug("Summarised to ~%d tokens", EstimateTokens(result))
				return result
			}
			logger.Warn("Summary still too long, truncating to %d tokens", f.budget)
			return truncateWithNote(result, maxChars, summarisedTruncatedNote)
		}
		logger.Warn("Summarisation failed, falling back to truncation: %v", err)
	}

	return truncateWithNote(text, maxChars, truncationNote)
}

// truncateWithNote cuts text so that text plus note fits in maxChars.
func truncateWithNote(text string, maxChars int, note string) string {
	keep := maxChars - len(note)
	if keep < 0 {
		keep = 0
	}
	if len(text) > keep {
		text = text[:keep]
	}
	return text + note
}
