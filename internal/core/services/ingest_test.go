package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vectormem "github.com/custodia-labs/razorsearch/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/razorsearch/internal/core/domain"
	"github.com/custodia-labs/razorsearch/internal/core/ports/driven"
)

// mockConnector implements driven.SourceConnector for testing.
type mockConnector struct {
	source      string
	items       []domain.RawItem
	errs        []error
	validateErr error
}

func (m *mockConnector) Source() string {
	if m.source != "" {
		return m.source
	}
	return "github"
}

func (m *mockConnector) Validate(_ context.Context) error {
	return m.validateErr
}

func (m *mockConnector) Items(_ context.Context) (<-chan domain.RawItem, <-chan error) {
	itemCh := make(chan domain.RawItem, len(m.items)+1)
	errCh := make(chan error, len(m.errs)+1)
	for _, item := range m.items {
		itemCh <- item
	}
	for _, err := range m.errs {
		errCh <- err
	}
	close(itemCh)
	close(errCh)
	return itemCh, errCh
}

func (m *mockConnector) Close() error {
	return nil
}

func readmeItem(docID string) domain.RawItem {
	return domain.RawItem{
		DocID:   docID,
		Source:  domain.SourceGitHub,
		Type:    domain.ContentReadme,
		Group:   "api-service",
		Content: "API service handles payment settlement batches.",
		URL:     "https://github.com/acme/api-service",
		Metadata: map[string]any{
			"repo": "api-service",
		},
	}
}

func messageItem(docID, text string, thread ...domain.ThreadReply) domain.RawItem {
	return domain.RawItem{
		DocID:   docID,
		Source:  domain.SourceSlack,
		Type:    domain.ContentMessage,
		Group:   "tech-infra",
		Content: text,
		Author:  "alice",
		URL:     "https://slack.com/archives/C012AB3CD/p1700000000000100",
		Thread:  thread,
		Metadata: map[string]any{
			"channel": "tech-infra",
		},
	}
}

func newTestIngestor(store driven.VectorStore, llm driven.LLMService, conns ...driven.SourceConnector) *Ingestor {
	return NewIngestor(conns, store, newMockEmbedder(), llm, "acme")
}

func retrievePayload(t *testing.T, store driven.VectorStore, docID string) map[string]any {
	t.Helper()
	points, err := store.Retrieve(context.Background(), DocumentCollection, []string{domain.StorageID(docID)})
	require.NoError(t, err)
	require.Len(t, points, 1)
	return points[0].Payload
}

func TestIngestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("indexes readmes unconditionally", func(t *testing.T) {
		store := vectormem.NewStore()
		conn := &mockConnector{items: []domain.RawItem{readmeItem("gh_readme_api-service")}}

		report, err := newTestIngestor(store, nil, conn).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Ingested)
		assert.Equal(t, 0, report.Skipped)

		payload := retrievePayload(t, store, "gh_readme_api-service")
		assert.Equal(t, "acme", payload["tenant_id"])
		assert.Equal(t, "github", payload["source"])
		assert.Equal(t, "readme", payload["type"])
		assert.Equal(t, "api-service", payload["repo"])
		assert.Equal(t, "gh_readme_api-service", payload["doc_id"])
	})

	t.Run("skips already indexed documents", func(t *testing.T) {
		store := vectormem.NewStore()
		conn := &mockConnector{items: []domain.RawItem{readmeItem("gh_readme_api-service")}}
		ing := newTestIngestor(store, nil, conn)

		_, err := ing.Run(ctx)
		require.NoError(t, err)

		report, err := ing.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Ingested)
		assert.Equal(t, 1, report.Skipped)
	})

	t.Run("filtered messages are skipped", func(t *testing.T) {
		store := vectormem.NewStore()
		conn := &mockConnector{
			source: "slack",
			items:  []domain.RawItem{messageItem("slack_msg_C012AB3CD_1700000000_000100", "good morning everyone!")},
		}
		llm := &mockLLM{response: "NOT_USEFUL"}

		report, err := newTestIngestor(store, llm, conn).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Ingested)
		assert.Equal(t, 1, report.Skipped)
	})

	t.Run("messages fold in thread replies", func(t *testing.T) {
		store := vectormem.NewStore()
		item := messageItem("slack_msg_C012AB3CD_1700000000_000100",
			"we should switch the pool to pgbouncer",
			domain.ThreadReply{Author: "bob", Text: "agreed, transaction mode works for us"},
		)
		conn := &mockConnector{source: "slack", items: []domain.RawItem{item}}
		llm := &mockLLM{response: "USEFUL"}

		report, err := newTestIngestor(store, llm, conn).Run(ctx)
		require.NoError(t, err)
		require.Equal(t, 1, report.Ingested)

		payload := retrievePayload(t, store, item.DocID)
		content, _ := payload["content"].(string)
		assert.True(t, strings.HasPrefix(content, "[alice]:"))
		assert.Contains(t, content, "--- Thread Replies ---")
		assert.Contains(t, content, "[bob]:")
		assert.Equal(t, true, payload["has_thread"])
		assert.Equal(t, 1, payload["thread_reply_count"])
	})

	t.Run("group errors are counted, not fatal", func(t *testing.T) {
		store := vectormem.NewStore()
		conn := &mockConnector{
			items: []domain.RawItem{readmeItem("gh_readme_api-service")},
			errs:  []error{errors.New("repo billing-service: 403")},
		}

		report, err := newTestIngestor(store, nil, conn).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Ingested)
		assert.Equal(t, 1, report.Errors)
	})

	t.Run("validation failure skips the connector", func(t *testing.T) {
		store := vectormem.NewStore()
		bad := &mockConnector{
			source:      "slack",
			validateErr: errors.New("invalid_auth"),
			items:       []domain.RawItem{messageItem("slack_msg_C012AB3CD_1700000000_000100", "hello")},
		}
		good := &mockConnector{items: []domain.RawItem{readmeItem("gh_readme_api-service")}}

		report, err := newTestIngestor(store, nil, bad, good).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Ingested)
		assert.Equal(t, 1, report.Errors)
	})

	t.Run("embed failure counts as an item error", func(t *testing.T) {
		store := vectormem.NewStore()
		conn := &mockConnector{items: []domain.RawItem{readmeItem("gh_readme_api-service")}}
		embedder := newMockEmbedder()
		ing := NewIngestor([]driven.SourceConnector{conn}, store, embedder, nil, "acme")

		// Collection setup succeeds, the per-item embed fails.
		require.NoError(t, ing.ensureCollection(ctx))
		embedder.embedErr = errors.New("rate limited")

		report, err := ing.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Ingested)
		assert.Equal(t, 1, report.Errors)
	})

	t.Run("no connectors is an error", func(t *testing.T) {
		ing := NewIngestor(nil, vectormem.NewStore(), newMockEmbedder(), nil, "acme")

		_, err := ing.Run(ctx)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}
