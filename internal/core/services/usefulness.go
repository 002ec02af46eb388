package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/razorsearch/internal/core/ports/driven"
	"github.com/custodia-labs/razorsearch/internal/logger"
)

const (
	usefulnessSystem = "You are a content evaluator. Respond with only 'USEFUL' or 'NOT_USEFUL'."

	usefulnessPrompt = `Evaluate if this %s contains useful information for documentation and knowledge base.

Content:
%s

Consider it USEFUL if it contains:
- Technical discussions or solutions
- Important decisions
- Any new technical feature announcements
- Bug reports or troubleshooting
- Feature requests or specifications
- Architecture or design discussions
- Meeting notes or action items
- Links to important resources

Consider it NOT USEFUL if it's:
- Simple greetings (hi, hello, good morning, etc.)
- Jokes, memes, or casual banter
- Random chatter or off-topic
- Simple acknowledgments (thanks, ok, got it, etc.)
- Out of office or availability messages
- Version bumps or mechanical changes with no context
- Just emoji reactions
- Any bot announcements or messages

Respond with ONLY "USEFUL" or "NOT_USEFUL":`
)

// FallbackPolicy names a call site's defaults when the usefulness verdict
// cannot be obtained. The commit and message call sites deliberately
// disagree on the ambiguous case; the asymmetry is inherited behaviour and
// is kept as explicit per-call-site configuration rather than unified.
type FallbackPolicy struct {
	// Label names the content in the classification prompt.
	Label string

	// OnAmbiguous is the verdict when the LLM replies with neither token.
	OnAmbiguous bool

	// OnFailure is the verdict when the LLM call fails or is unavailable.
	OnFailure bool
}

// Fallback policies per call site.
var (
	// CommitPolicy includes commits on ambiguity and on failure.
	CommitPolicy = FallbackPolicy{Label: "commit message", OnAmbiguous: true, OnFailure: true}

	// MessagePolicy excludes chat messages on ambiguity but includes them
	// on failure.
	MessagePolicy = FallbackPolicy{Label: "chat message", OnAmbiguous: false, OnFailure: true}
)

// UsefulnessFilter decides whether a piece of content is worth indexing,
// using an LLM yes/no judgement with per-call-site fallback defaults.
type UsefulnessFilter struct {
	llm driven.LLMService
}

// NewUsefulnessFilter creates a usefulness filter. The llm is optional;
// without it every call returns the policy's failure default.
func NewUsefulnessFilter(llm driven.LLMService) *UsefulnessFilter {
	return &UsefulnessFilter{llm: llm}
}

// ShouldIndex classifies content as worth indexing. NOT_USEFUL takes
// precedence when both tokens appear in the reply.
func (u *UsefulnessFilter) ShouldIndex(ctx context.Context, content string, policy FallbackPolicy) bool {
	if u.llm == nil {
		return policy.OnFailure
	}

	reply, err := u.llm.Complete(ctx, usefulnessSystem, fmt.Sprintf(usefulnessPrompt, policy.Label, content), driven.CompleteOptions{
		Temperature: 0.1,
		MaxTokens:   10,
	})
	if err != nil {
		logger.Warn("Usefulness check failed (%s): %v", policy.Label, err)
		return policy.OnFailure
	}

	verdict := strings.ToUpper(strings.TrimSpace(reply))
	switch {
	case strings.Contains(verdict, "NOT_USEFUL") || strings.Contains(verdict, "NOT USEFUL"):
		return false
	case strings.Contains(verdict, "USEFUL"):
		return true
	default:
		logger.Warn("Unclear usefulness verdict %q (%s)", verdict, policy.Label)
		return policy.OnAmbiguous
	}
}
