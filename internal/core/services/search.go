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

const (
	// MaxSearchResults is the default cap on result pages.
	MaxSearchResults = 10

	// MinSimilarityScore is the default relevance floor for document hits.
	MinSimilarityScore = 0.5

	// snippetLength bounds displayed snippets.
	snippetLength = 280

	// Memory block shape: a few close past queries plus a short slice of
	// recent history.
	similarQueryLimit    = 3
	similarQueryMinScore = 0.7
	recentHistoryLimit   = 5
)

const (
	enrichSystem = "You are a helpful assistant that enhances search queries."

	enrichPrompt = `You are a search query enhancement assistant. Your task is to improve the following search query to make it more effective for semantic search across technical documentation, Slack messages, and GitHub issues.

Original query: %s

Please provide an enhanced version of this query that:
1. Preserves the original intent
2. Adds relevant technical terms and synonyms
3. Expands acronyms if appropriate
4. Makes it more suitable for semantic search

Return only the enhanced query, nothing else.`

	answerSystem = "You are a search assistant. Answer concisely from the provided results only."

	answerPrompt = `Using only the search results below, write a short answer to the query. Cite nothing outside the results. If the results do not answer the query, say so.

Query: %s

Results:
%s

Answer:`
)

// Ensure Searcher implements the interface.
var _ driving.SearchService = (*Searcher)(nil)

// SearchLimits overrides the result cap and the relevance floor. Zero
// values fall back to MaxSearchResults and MinSimilarityScore.
type SearchLimits struct {
	MaxResults int
	MinScore   float64
}

// Searcher runs semantic search over the document collection: optional
// LLM query enrichment, embedding, filtered nearest-neighbour lookup,
// then optional summarisation and memory context. Embedding and the
// vector store are required; the LLM and memory are optional and their
// failures degrade the response instead of failing it.
type Searcher struct {
	store      driven.VectorStore
	embedder   driven.EmbeddingService
	llm        driven.LLMService
	memory     driving.MemoryService
	tenant     string
	maxResults int
	minScore   float64
}

// NewSearcher creates a search service. llm and memory may be nil, which
// disables enrichment, summarisation and the memory block respectively.
func NewSearcher(
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	memory driving.MemoryService,
	tenant string,
	limits SearchLimits,
) *Searcher {
	if limits.MaxResults <= 0 {
		limits.MaxResults = MaxSearchResults
	}
	if limits.MinScore <= 0 {
		limits.MinScore = MinSimilarityScore
	}
	return &Searcher{
		store:      store,
		embedder:   embedder,
		llm:        llm,
		memory:     memory,
		tenant:     tenant,
		maxResults: limits.MaxResults,
		minScore:   limits.MinScore,
	}
}

// Search executes one search request.
func (s *Searcher) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	limit := opts.Limit
	if limit <= 0 || limit > s.maxResults {
		limit = s.maxResults
	}

	searchQuery := s.enrich(ctx, query)

	vector, err := s.embedder.Embed(ctx, searchQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	filter := driven.Filter{"tenant_id": s.tenant}
	if len(opts.Sources) > 0 {
		filter["source"] = opts.Sources
	}

	hits, err := s.store.Query(ctx, DocumentCollection, vector, filter, limit, s.minScore)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorStoreUnavailable, err)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, resultFromHit(hit))
	}

	response := &domain.SearchResponse{
		Query:         query,
		EnrichedQuery: searchQuery,
		Results:       results,
		Total:         len(results),
	}

	if opts.Summarise && len(results) > 0 {
		response.Summary = s.summarise(ctx, query, hits)
	}

	if s.memory != nil {
		if opts.IncludeMemory {
			response.Memory = s.memoryBlock(ctx, query, opts.UserID)
		}
		s.remember(ctx, query, opts, len(results))
	}

	return response, nil
}

// enrich rewrites the query through the LLM for better recall. Any
// failure falls back to the original query.
func (s *Searcher) enrich(ctx context.Context, query string) string {
	if s.llm == nil {
		return query
	}
	enriched, err := s.llm.Complete(ctx, enrichSystem, fmt.Sprintf(enrichPrompt, query), driven.CompleteOptions{
		Temperature: 0.3,
		MaxTokens:   150,
	})
	if err != nil {
		logger.Warn("Query enrichment failed, using original: %v", err)
		return query
	}
	enriched = strings.TrimSpace(enriched)
	if enriched == "" {
		return query
	}
	logger.Debug("Query enriched: %q -> %q", query, enriched)
	return enriched
}

// summarise answers the query from the top hits. Best-effort: failures
// leave the summary empty.
func (s *Searcher) summarise(ctx context.Context, query string, hits []driven.ScoredPoint) string {
	top := hits
	if len(top) > 5 {
		top = top[:5]
	}

	var b strings.Builder
	for i, hit := range top {
		fmt.Fprintf(&b, "%d. [%s] %s\n%s\n\n",
			i+1,
			payloadString(hit.Payload["source"]),
			titleFromPayload(hit.Payload),
			payloadString(hit.Payload["content"]))
	}

	summary, err := s.llm.Complete(ctx, answerSystem, fmt.Sprintf(answerPrompt, query, b.String()), driven.CompleteOptions{
		Temperature: 0.5,
		MaxTokens:   300,
	})
	if err != nil {
		logger.Warn("Result summarisation failed: %v", err)
		return ""
	}
	return strings.TrimSpace(summary)
}

// memoryBlock assembles the memory context. All lookups are best-effort;
// a failed store yields a nil block, partial failures yield a partial
// block.
func (s *Searcher) memoryBlock(ctx context.Context, query, userID string) *domain.MemoryBlock {
	block := &domain.MemoryBlock{}

	similar, err := s.memory.SimilarQueries(ctx, query, similarQueryLimit, userID, similarQueryMinScore)
	if err != nil {
		logger.Warn("Similar query lookup failed: %v", err)
	} else {
		block.SimilarQueries = similar
		for _, sq := range similar {
			block.Suggestions = append(block.Suggestions, sq.Record.Query)
		}
	}

	history, err := s.memory.QueryHistory(ctx, userID, recentHistoryLimit, 0)
	if err != nil {
		logger.Warn("Query history lookup failed: %v", err)
	} else {
		block.RecentHistory = history
	}

	return block
}

// remember saves the query to memory. Failures are logged, never
// surfaced: a dead memory store must not break search.
func (s *Searcher) remember(ctx context.Context, query string, opts domain.SearchOptions, resultCount int) {
	_, err := s.memory.SaveQuery(ctx, driving.SaveQueryInput{
		Query:           query,
		UserID:          opts.UserID,
		SourcesSearched: opts.Sources,
		ResultCount:     resultCount,
		Metadata: map[string]any{
			"query_length": len(query),
			"has_results":  resultCount > 0,
		},
	})
	if err != nil {
		logger.Warn("Failed to save query to memory: %v", err)
	}
}

// resultFromHit maps a stored point to a display result.
func resultFromHit(hit driven.ScoredPoint) domain.SearchResult {
	content := payloadString(hit.Payload["content"])
	snippet := content
	if len(snippet) > snippetLength {
		snippet = snippet[:snippetLength] + "..."
	}

	metadata := make(map[string]any)
	for k, v := range hit.Payload {
		switch k {
		case "content", "tenant_id", "source", "url", "doc_id":
			continue
		}
		metadata[k] = v
	}

	return domain.SearchResult{
		ID:       hit.ID,
		Source:   payloadString(hit.Payload["source"]),
		Title:    titleFromPayload(hit.Payload),
		Snippet:  snippet,
		URL:      payloadString(hit.Payload["url"]),
		Score:    hit.Score,
		Metadata: metadata,
	}
}

// titleFromPayload derives a display title from provenance fields when no
// explicit title was stored.
func titleFromPayload(payload map[string]any) string {
	if title := payloadString(payload["title"]); title != "" {
		return title
	}

	docType := payloadString(payload["type"])
	switch docType {
	case string(domain.ContentReadme):
		return fmt.Sprintf("%s README", payloadString(payload["repo"]))
	case string(domain.ContentPR):
		return fmt.Sprintf("Pull request in %s", payloadString(payload["repo"]))
	case string(domain.ContentCommits):
		return fmt.Sprintf("Commits in %s", payloadString(payload["repo"]))
	case string(domain.ContentMessage):
		if channel := payloadString(payload["channel"]); channel != "" {
			return fmt.Sprintf("Message in #%s", channel)
		}
		return "Chat message"
	default:
		return payloadString(payload["doc_id"])
	}
}
