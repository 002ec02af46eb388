package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("useful verdict includes", func(t *testing.T) {
		filter := NewUsefulnessFilter(&mockLLM{response: "USEFUL"})
		assert.True(t, filter.ShouldIndex(ctx, "we decided to move to pgbouncer", MessagePolicy))
	})

	t.Run("not useful verdict excludes", func(t *testing.T) {
		filter := NewUsefulnessFilter(&mockLLM{response: "NOT_USEFUL"})
		assert.False(t, filter.ShouldIndex(ctx, "good morning!", MessagePolicy))
	})

	t.Run("negative verdict wins when both tokens appear", func(t *testing.T) {
		filter := NewUsefulnessFilter(&mockLLM{response: "USEFUL... actually NOT_USEFUL"})
		assert.False(t, filter.ShouldIndex(ctx, "hmm", CommitPolicy))
	})

	t.Run("verdict is case insensitive", func(t *testing.T) {
		filter := NewUsefulnessFilter(&mockLLM{response: "useful"})
		assert.True(t, filter.ShouldIndex(ctx, "fix race in pool shutdown", CommitPolicy))
	})

	t.Run("ambiguous reply follows the policy", func(t *testing.T) {
		llm := &mockLLM{response: "I cannot tell"}
		filter := NewUsefulnessFilter(llm)

		assert.True(t, filter.ShouldIndex(ctx, "chore: bump deps", CommitPolicy))
		assert.False(t, filter.ShouldIndex(ctx, "lol", MessagePolicy))
	})

	t.Run("LLM failure follows the policy", func(t *testing.T) {
		llm := &mockLLM{completeErr: errors.New("model offline")}
		filter := NewUsefulnessFilter(llm)

		assert.True(t, filter.ShouldIndex(ctx, "chore: bump deps", CommitPolicy))
		assert.True(t, filter.ShouldIndex(ctx, "lol", MessagePolicy))
	})

	t.Run("nil LLM follows the failure default", func(t *testing.T) {
		filter := NewUsefulnessFilter(nil)

		assert.True(t, filter.ShouldIndex(ctx, "anything", CommitPolicy))
		assert.True(t, filter.ShouldIndex(ctx, "anything", MessagePolicy))
	})
}
