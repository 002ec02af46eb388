package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/razorsearch/internal/core/domain"
	"github.com/custodia-labs/razorsearch/internal/core/ports/driven"
	"github.com/custodia-labs/razorsearch/internal/core/ports/driving"
	"github.com/custodia-labs/razorsearch/internal/logger"
)

// DocumentCollection is the vector store collection holding searchable
// documents.
const DocumentCollection = "documents"

const (
	refineSystem = "You are a message editor. Make messages clear and concise without adding verbosity."

	refinePrompt = `Refine this chat message to be concise and clear while preserving all important information.

Original message by %s:
%s

Rules:
- Keep technical details, decisions, and action items
- Remove excessive formatting, emojis or repetition
- Fix typos and improve clarity
- Stay concise - do NOT make it more verbose
- Preserve links and important context
- If it's already concise, return it as-is

Refined message:`
)

// Ensure Ingestor implements the interface.
var _ driving.IngestOrchestrator = (*Ingestor)(nil)

// Ingestor walks configured connectors and pushes their items through the
// shared pipeline: dedup check, usefulness filter, refinement, budget fit,
// embed and upsert. Item and group failures are logged and stepped over;
// only a dead store or a cancelled context aborts a run.
type Ingestor struct {
	connectors []driven.SourceConnector
	store      driven.VectorStore
	embedder   driven.EmbeddingService
	llm        driven.LLMService
	fitter     *ContentFitter
	filter     *UsefulnessFilter
	tenant     string

	ensured bool
}

// NewIngestor creates an ingestion orchestrator. The llm is optional:
// without it messages are indexed unrefined and usefulness filtering
// falls back to each call site's failure default.
func NewIngestor(
	connectors []driven.SourceConnector,
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	tenant string,
) *Ingestor {
	return &Ingestor{
		connectors: connectors,
		store:      store,
		embedder:   embedder,
		llm:        llm,
		fitter:     NewContentFitter(llm, DefaultTokenBudget),
		filter:     NewUsefulnessFilter(llm),
		tenant:     tenant,
	}
}

// Run walks every connector in order and ingests its item stream.
func (ing *Ingestor) Run(ctx context.Context) (*driving.IngestReport, error) {
	if len(ing.connectors) == 0 {
		return nil, fmt.Errorf("ingest: %w: no connectors configured", domain.ErrInvalidInput)
	}
	if err := ing.ensureCollection(ctx); err != nil {
		return nil, err
	}

	report := &driving.IngestReport{}
	for _, connector := range ing.connectors {
		if err := connector.Validate(ctx); err != nil {
			logger.Warn("Skipping %s: %v", connector.Source(), fmt.Errorf("%w: %w", domain.ErrConnectorValidation, err))
			report.Errors++
			continue
		}

		logger.Section("Ingesting from " + connector.Source())
		if err := ing.drain(ctx, connector, report); err != nil {
			return nil, err
		}
	}

	logger.Info("Ingestion complete: %d ingested, %d skipped, %d errors",
		report.Ingested, report.Skipped, report.Errors)
	return report, nil
}

func (ing *Ingestor) ensureCollection(ctx context.Context) error {
	if ing.ensured {
		return nil
	}
	dims := ing.embedder.Dimensions()
	if dims == 0 {
		sample, err := ing.embedder.Embed(ctx, "sample")
		if err != nil {
			return fmt.Errorf("probe embedding dimensions: %w", err)
		}
		dims = len(sample)
	}
	if err := ing.store.EnsureCollection(ctx, DocumentCollection, dims); err != nil {
		return fmt.Errorf("ensure collection %s: %w", DocumentCollection, err)
	}
	ing.ensured = true
	return nil
}

// drain consumes one connector's item and error channels until both close.
func (ing *Ingestor) drain(ctx context.Context, connector driven.SourceConnector, report *driving.IngestReport) error {
	items, errs := connector.Items(ctx)

	for items != nil || errs != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("Connector error (%s): %v", connector.Source(), err)
			report.Errors++

		case item, ok := <-items:
			if !ok {
				items = nil
				continue
			}
			ingested, err := ing.processItem(ctx, item)
			if err != nil {
				logger.Warn("Failed to ingest %s: %v", item.DocID, err)
				report.Errors++
				continue
			}
			if ingested {
				report.Ingested++
			} else {
				report.Skipped++
			}
		}
	}
	return nil
}

// processItem runs one item through the pipeline. Returns false when the
// item was skipped rather than indexed.
func (ing *Ingestor) processItem(ctx context.Context, item domain.RawItem) (bool, error) {
	storageID := domain.StorageID(item.DocID)

	// Existence check runs first so duplicates never pay for filtering,
	// refinement or embedding. A failed lookup is treated as absence:
	// re-ingesting an existing document is harmless, missing a new one
	// is not.
	existing, err := ing.store.Retrieve(ctx, DocumentCollection, []string{storageID})
	if err != nil {
		logger.Debug("Existence check failed for %s, ingesting anyway: %v", item.DocID, err)
	} else if len(existing) > 0 {
		logger.Debug("Skipping %s: already indexed", item.DocID)
		return false, nil
	}

	content, ok := ing.prepareContent(ctx, item)
	if !ok {
		logger.Debug("Filtered out %s", item.DocID)
		return false, nil
	}

	content = ing.fitter.Fit(ctx, content)

	vector, err := ing.embedder.Embed(ctx, content)
	if err != nil {
		return false, fmt.Errorf("embed %s: %w", item.DocID, err)
	}

	doc := domain.IngestedDocument{
		DocID:     item.DocID,
		StorageID: storageID,
		Content:   content,
		Payload:   ing.buildPayload(item, content),
	}

	err = ing.store.Upsert(ctx, DocumentCollection, []driven.Point{
		{ID: doc.StorageID, Vector: vector, Payload: doc.Payload},
	})
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", item.DocID, err)
	}

	logger.Debug("Indexed %s (~%d tokens)", item.DocID, EstimateTokens(content))
	return true, nil
}

// prepareContent applies the per-type filtering policy and assembles the
// final text. Returns false when the item should not be indexed.
func (ing *Ingestor) prepareContent(ctx context.Context, item domain.RawItem) (string, bool) {
	switch item.Type {
	case domain.ContentCommits:
		if !ing.filter.ShouldIndex(ctx, item.Content, CommitPolicy) {
			return "", false
		}
		return item.Content, true

	case domain.ContentMessage:
		if !ing.filter.ShouldIndex(ctx, item.Content, MessagePolicy) {
			return "", false
		}
		return ing.assembleMessage(ctx, item), true

	default:
		// Readmes and pull requests are indexed unconditionally.
		return item.Content, true
	}
}

// assembleMessage refines the parent message and folds in the useful
// thread replies, each filtered and refined individually.
func (ing *Ingestor) assembleMessage(ctx context.Context, item domain.RawItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]: %s", item.Author, ing.refine(ctx, item.Content, item.Author))

	var kept []domain.ThreadReply
	for _, reply := range item.Thread {
		if !ing.filter.ShouldIndex(ctx, reply.Text, MessagePolicy) {
			continue
		}
		kept = append(kept, domain.ThreadReply{
			Author: reply.Author,
			Text:   ing.refine(ctx, reply.Text, reply.Author),
		})
	}

	if len(kept) > 0 {
		b.WriteString("\n\n--- Thread Replies ---\n")
		for _, reply := range kept {
			fmt.Fprintf(&b, "\n[%s]: %s\n", reply.Author, reply.Text)
		}
	}
	return b.String()
}

// refine cleans one message through the LLM, falling back to the original
// text when the LLM is absent or fails.
func (ing *Ingestor) refine(ctx context.Context, text, author string) string {
	if ing.llm == nil {
		return text
	}
	refined, err := ing.llm.Complete(ctx, refineSystem, fmt.Sprintf(refinePrompt, author, text), driven.CompleteOptions{
		Temperature: 0.2,
		MaxTokens:   300,
	})
	if err != nil {
		logger.Warn("Message refinement failed: %v", err)
		return text
	}
	refined = strings.TrimSpace(refined)
	if refined == "" {
		return text
	}
	return refined
}

// buildPayload assembles the stored payload: the indexed content, the
// tenant and provenance fields, then the connector's metadata. Record
// fields win over metadata on key collisions.
func (ing *Ingestor) buildPayload(item domain.RawItem, content string) map[string]any {
	payload := make(map[string]any, len(item.Metadata)+8)
	for k, v := range item.Metadata {
		payload[k] = v
	}

	payload["content"] = content
	payload["doc_id"] = item.DocID
	payload["tenant_id"] = ing.tenant
	payload["source"] = item.Source
	payload["type"] = string(item.Type)
	if item.URL != "" {
		payload["url"] = item.URL
	}
	if item.Author != "" {
		payload["author"] = item.Author
	}
	if item.Type == domain.ContentMessage {
		payload["has_thread"] = len(item.Thread) > 0
		payload["thread_reply_count"] = len(item.Thread)
	}
	return payload
}
