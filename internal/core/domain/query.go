package domain

import "time"

// QueryRecord is one saved search query in the memory collection.
// Records are append-only: identical query texts produce separate records,
// because the collection is a log of searches, not a key-value store.
type QueryRecord struct {
	// ID is the storage identifier of the record.
	ID string

	// Query is the raw query text as the user typed it.
	Query string

	// TenantID scopes the record to one organisation.
	TenantID string

	// Timestamp is the creation time in RFC 3339 format.
	// String form so records sort lexicographically newest-last.
	Timestamp string

	// UserID identifies who searched. Empty for anonymous queries.
	UserID string

	// ResultCount is how many results the search returned.
	ResultCount int

	// SourcesSearched lists the source tags the search covered.
	SourcesSearched []string

	// ResultsClicked is the ordered, deduplicated list of result IDs the
	// user clicked. Append-only.
	ResultsClicked []string

	// ClickCount is always len(ResultsClicked). Stored denormalised so
	// popularity aggregation never needs the full click list.
	ClickCount int

	// Metadata carries extra payload fields recorded at save time.
	Metadata map[string]any
}

// Time parses the record timestamp. Returns the zero time if unparseable.
func (r QueryRecord) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// SimilarQuery is a past query returned by nearest-neighbour lookup.
type SimilarQuery struct {
	// Record is the matched query record.
	Record QueryRecord

	// Score is the cosine similarity to the current query (0-1).
	Score float64
}

// PopularQuery is an aggregate over query history, grouped by exact query
// text. Derived at read time, never persisted.
type PopularQuery struct {
	// Query is the shared query text.
	Query string

	// Count is how many times the query was saved in the window.
	Count int

	// TotalClicks is the sum of click counts across occurrences.
	TotalClicks int

	// LastSeen is the newest timestamp among occurrences.
	LastSeen string

	// Sources is the union of sources searched across occurrences.
	Sources []string

	// PopularityScore is Count * (1 + TotalClicks/10): frequency weighted
	// by engagement, no decay.
	PopularityScore float64
}

// Popularity computes the frequency-and-engagement score used to rank
// historical queries.
func Popularity(count, totalClicks int) float64 {
	return float64(count) * (1 + float64(totalClicks)/10)
}

// MemoryBlock is the optional memory context attached to a search response.
type MemoryBlock struct {
	// SimilarQueries are past queries close to the current one.
	SimilarQueries []SimilarQuery

	// RecentHistory is the user's recent query history.
	RecentHistory []QueryRecord

	// Suggestions are query texts offered as alternatives, taken from the
	// top similar queries.
	Suggestions []string
}
