package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/razorsearch/internal/core/domain"
	"github.com/custodia-labs/razorsearch/internal/core/ports/driven"
	"github.com/custodia-labs/razorsearch/internal/core/ports/driving"
	"github.com/custodia-labs/razorsearch/internal/logger"
)

// MemoryCollection is the vector store collection holding query records.
const MemoryCollection = "query_memory"

const (
	// recordType tags memory payloads so they are distinguishable from
	// any other payload sharing a backend.
	recordType = "query_memory"

	// historyOverFetch compensates for the backend's unordered scroll:
	// fetch more than asked for, then sort and truncate. A heuristic, not
	// a guarantee, under a large backlog.
	historyOverFetch = 2

	// popularFetchLimit is the history fetch size backing popularity
	// aggregation.
	popularFetchLimit = 1000
)

// payload fields owned by the record itself; caller metadata cannot
// overwrite these.
var reservedPayloadFields = map[string]struct{}{
	"query": {}, "tenant_id": {}, "timestamp": {}, "user_id": {},
	"result_count": {}, "results_clicked": {}, "click_count": {},
	"sources_searched": {}, "type": {}, "rev": {},
}

// Ensure Memory implements the driving port.
var _ driving.MemoryService = (*Memory)(nil)

// Memory is the query memory store. It records searches with embeddings,
// serves nearest-neighbour lookup of similar past queries, aggregates
// popularity and tracks per-query click-through.
//
// The collection is an append-only log for saves: identical query texts
// produce independent records. Only RecordClick mutates existing records.
type Memory struct {
	store    driven.VectorStore
	embedder driven.EmbeddingService
	tenant   string

	mu      sync.Mutex
	ensured bool

	// Injected for tests.
	now   func() time.Time
	newID func() string
}

// NewMemory creates a query memory store scoped to one tenant.
func NewMemory(store driven.VectorStore, embedder driven.EmbeddingService, tenant string) *Memory {
	return &Memory{
		store:    store,
		embedder: embedder,
		tenant:   tenant,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// ensureCollection creates the memory collection once per process.
// Dimensionality comes from the embedder, probed with a sample embedding
// when the adapter does not know it up front.
func (m *Memory) ensureCollection(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ensured {
		return nil
	}

	dims := m.embedder.Dimensions()
	if dims == 0 {
		sample, err := m.embedder.Embed(ctx, "sample")
		if err != nil {
			return fmt.Errorf("probe embedding dimensions: %w", err)
		}
		dims = len(sample)
	}

	if err := m.store.EnsureCollection(ctx, MemoryCollection, dims); err != nil {
		return fmt.Errorf("ensure collection %s: %w", MemoryCollection, err)
	}
	m.ensured = true
	return nil
}

// scopeFilter builds the tenant filter, additionally scoped to one user
// when userID is set.
func (m *Memory) scopeFilter(userID string) driven.Filter {
	filter := driven.Filter{"tenant_id": m.tenant}
	if userID != "" {
		filter["user_id"] = userID
	}
	return filter
}

// SaveQuery embeds the query and appends a new record. It never
// deduplicates by query text.
func (m *Memory) SaveQuery(ctx context.Context, in driving.SaveQueryInput) (string, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return "", fmt.Errorf("save query: %w", domain.ErrEmptyQuery)
	}
	if err := m.ensureCollection(ctx); err != nil {
		return "", err
	}

	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	payload := map[string]any{
		"query":        query,
		"tenant_id":    m.tenant,
		"timestamp":    m.now().Format(time.RFC3339Nano),
		"result_count": in.ResultCount,
		"type":         recordType,
		"rev":          int64(0),
	}
	if in.UserID != "" {
		payload["user_id"] = in.UserID
	}
	if len(in.ResultsClicked) > 0 {
		clicked := dedupeStrings(in.ResultsClicked)
		payload["results_clicked"] = clicked
		payload["click_count"] = len(clicked)
	}
	if len(in.SourcesSearched) > 0 {
		payload["sources_searched"] = in.SourcesSearched
	}
	for k, v := range in.Metadata {
		if _, reserved := reservedPayloadFields[k]; reserved {
			continue
		}
		payload[k] = v
	}

	id := m.newID()
	err = m.store.Upsert(ctx, MemoryCollection, []driven.Point{
		{ID: id, Vector: vector, Payload: payload},
	})
	if err != nil {
		return "", fmt.Errorf("save query: %w", err)
	}

	logger.Debug("Saved query %q as %s", query, id)
	return id, nil
}

// SimilarQueries embeds the query and returns past queries with
// similarity at or above minScore, nearest first, scoped to the tenant
// and optionally to one user.
func (m *Memory) SimilarQueries(ctx context.Context, query string, limit int, userID string, minScore float64) ([]domain.SimilarQuery, error) {
	if err := m.ensureCollection(ctx); err != nil {
		return nil, err
	}

	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := m.store.Query(ctx, MemoryCollection, vector, m.scopeFilter(userID), limit, minScore)
	if err != nil {
		return nil, fmt.Errorf("similar queries: %w", err)
	}

	similar := make([]domain.SimilarQuery, 0, len(hits))
	for _, hit := range hits {
		similar = append(similar, domain.SimilarQuery{
			Record: m.recordFromPayload(hit.ID, hit.Payload),
			Score:  hit.Score,
		})
	}
	return similar, nil
}

// QueryHistory returns recent records newest first. The backend scan is
// unordered, so it over-fetches before sorting and truncating; very old
// backlogs can still push recent items out of the page.
func (m *Memory) QueryHistory(ctx context.Context, userID string, limit, daysBack int) ([]domain.QueryRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("query history: %w: limit must be positive", domain.ErrInvalidInput)
	}
	if err := m.ensureCollection(ctx); err != nil {
		return nil, err
	}

	points, err := m.store.Scroll(ctx, MemoryCollection, m.scopeFilter(userID), limit*historyOverFetch)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	records := make([]domain.QueryRecord, 0, len(points))
	for _, p := range points {
		records = append(records, m.recordFromPayload(p.ID, p.Payload))
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Time().After(records[j].Time())
	})

	if daysBack > 0 {
		cutoff := m.now().AddDate(0, 0, -daysBack)
		kept := records[:0]
		for _, rec := range records {
			if rec.Time().After(cutoff) {
				kept = append(kept, rec)
			}
		}
		records = kept
	}

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// PopularQueries groups the window's history by exact query text and
// ranks by popularity score. Ties keep first-seen order.
func (m *Memory) PopularQueries(ctx context.Context, limit, daysBack int) ([]domain.PopularQuery, error) {
	history, err := m.QueryHistory(ctx, "", popularFetchLimit, daysBack)
	if err != nil {
		return nil, err
	}

	byQuery := make(map[string]*domain.PopularQuery, len(history))
	sources := make(map[string]map[string]struct{}, len(history))
	var order []string

	for _, rec := range history {
		agg, ok := byQuery[rec.Query]
		if !ok {
			agg = &domain.PopularQuery{Query: rec.Query, LastSeen: rec.Timestamp}
			byQuery[rec.Query] = agg
			sources[rec.Query] = make(map[string]struct{})
			order = append(order, rec.Query)
		}

		agg.Count++
		agg.TotalClicks += rec.ClickCount
		if last := (domain.QueryRecord{Timestamp: agg.LastSeen}); rec.Time().After(last.Time()) {
			agg.LastSeen = rec.Timestamp
		}
		for _, src := range rec.SourcesSearched {
			sources[rec.Query][src] = struct{}{}
		}
	}

	popular := make([]domain.PopularQuery, 0, len(order))
	for _, query := range order {
		agg := *byQuery[query]
		agg.Sources = sortedKeys(sources[query])
		agg.PopularityScore = domain.Popularity(agg.Count, agg.TotalClicks)
		popular = append(popular, agg)
	}

	sort.SliceStable(popular, func(i, j int) bool {
		return popular[i].PopularityScore > popular[j].PopularityScore
	})

	if len(popular) > limit {
		popular = popular[:limit]
	}
	return popular, nil
}

// RecordClick finds the single nearest record for the query (no score
// threshold) and appends resultID to its clicked list if absent. The
// append is idempotent, and the write is guarded with an optimistic
// revision check so concurrent clicks cannot overwrite each other.
// Silently does nothing when no record matches.
func (m *Memory) RecordClick(ctx context.Context, query, resultID, userID string) error {
	if err := m.ensureCollection(ctx); err != nil {
		return err
	}

	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return fmt.Errorf("embed query: %w", err)
	}

	hits, err := m.store.Query(ctx, MemoryCollection, vector, m.scopeFilter(userID), 1, 0)
	if err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	if len(hits) == 0 {
		logger.Debug("No memory record for %q, click dropped", query)
		return nil
	}

	point := hits[0].Point
	for attempt := 0; attempt < 2; attempt++ {
		clicked := payloadStrings(point.Payload["results_clicked"])
		if containsString(clicked, resultID) {
			return nil
		}
		clicked = append(clicked, resultID)

		rev := payloadInt64(point.Payload["rev"])
		payload := clonePayload(point.Payload)
		payload["results_clicked"] = clicked
		payload["click_count"] = len(clicked)
		payload["rev"] = rev + 1

		err = m.store.SetPayload(ctx, MemoryCollection, point.ID, payload, rev)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("record click: %w", err)
		}

		// Lost a concurrent race: re-read and retry once.
		current, retrieveErr := m.store.Retrieve(ctx, MemoryCollection, []string{point.ID})
		if retrieveErr != nil {
			return fmt.Errorf("record click: %w", retrieveErr)
		}
		if len(current) == 0 {
			return nil
		}
		point.Payload = current[0].Payload
	}

	return fmt.Errorf("record click: %w", domain.ErrConflict)
}

// recordFromPayload rebuilds a QueryRecord from stored payload fields,
// tolerating both freshly-built and JSON round-tripped value types.
func (m *Memory) recordFromPayload(id string, payload map[string]any) domain.QueryRecord {
	clicked := payloadStrings(payload["results_clicked"])

	metadata := make(map[string]any)
	for k, v := range payload {
		if _, reserved := reservedPayloadFields[k]; reserved {
			continue
		}
		metadata[k] = v
	}

	return domain.QueryRecord{
		ID:              id,
		Query:           payloadString(payload["query"]),
		TenantID:        payloadString(payload["tenant_id"]),
		Timestamp:       payloadString(payload["timestamp"]),
		UserID:          payloadString(payload["user_id"]),
		ResultCount:     payloadInt(payload["result_count"]),
		SourcesSearched: payloadStrings(payload["sources_searched"]),
		ResultsClicked:  clicked,
		ClickCount:      len(clicked),
		Metadata:        metadata,
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
