package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/razorsearch/internal/core/ports/driven"
)

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"choices": [{"index": 0, "message": {"role": "assistant", "content": "refined"}}]
}`

func newTestService(t *testing.T, url string) *LLMService {
	t.Helper()
	svc, err := NewLLMService(Config{APIKey: "test-key", BaseURL: url})
	require.NoError(t, err)
	return svc
}

func TestNewLLMService(t *testing.T) {
	t.Run("requires API key", func(t *testing.T) {
		_, err := NewLLMService(Config{})
		assert.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		svc, err := NewLLMService(Config{APIKey: "test-key"})
		require.NoError(t, err)
		assert.Equal(t, DefaultModel, svc.ModelName())
		assert.Equal(t, DefaultTimeout, svc.timeout)
	})
}

func TestComplete_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)
	reply, err := svc.Complete(context.Background(), "system", "prompt", driven.CompleteOptions{})

	require.NoError(t, err)
	assert.Equal(t, "refined", reply)
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_GivesUpAfterBoundedRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)
	_, err := svc.Complete(context.Background(), "system", "prompt", driven.CompleteOptions{})

	assert.Error(t, err)
	assert.Equal(t, int32(maxRetries+1), calls.Load())
}
