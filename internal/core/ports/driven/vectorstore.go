package driven

import "context"

// Point is one stored vector with its payload.
type Point struct {
	// ID is the point identifier within its collection.
	ID string

	// Vector is the embedding. May be nil on reads that skip vectors.
	Vector []float32

	// Payload is the metadata stored alongside the vector.
	Payload map[string]any
}

// ScoredPoint is a nearest-neighbour search hit.
type ScoredPoint struct {
	Point

	// Score is the cosine similarity to the query vector (0-1).
	Score float64
}

// Filter matches points whose payload contains every listed field with an
// equal value. Tenant isolation is enforced through these filters, never
// through physical separation.
type Filter map[string]any

// UnconditionalWrite disables the revision check on SetPayload.
const UnconditionalWrite = int64(-1)

// VectorStore persists embeddings and serves similarity search over them.
// Collections are logical namespaces (tables in the PostgreSQL adapter)
// created with a fixed dimensionality and cosine distance.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist.
	// Idempotent and safe to call repeatedly.
	EnsureCollection(ctx context.Context, collection string, dimensions int) error

	// Upsert inserts or replaces points by ID.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Query returns up to limit points nearest to vector, restricted by
	// filter, ordered by descending similarity. Points scoring below
	// minScore are excluded; pass 0 to disable the threshold.
	Query(ctx context.Context, collection string, vector []float32, filter Filter, limit int, minScore float64) ([]ScoredPoint, error)

	// Retrieve fetches points by ID. Missing IDs are simply absent from
	// the result, not an error.
	Retrieve(ctx context.Context, collection string, ids []string) ([]Point, error)

	// Scroll returns up to limit points matching filter, without vectors
	// and in no guaranteed order.
	Scroll(ctx context.Context, collection string, filter Filter, limit int) ([]Point, error)

	// SetPayload replaces a point's payload. When expectedRev is not
	// UnconditionalWrite, the write succeeds only if the stored payload's
	// "rev" field equals expectedRev; otherwise domain.ErrConflict is
	// returned and the caller may re-read and retry.
	SetPayload(ctx context.Context, collection, id string, payload map[string]any, expectedRev int64) error

	// Close releases resources.
	Close() error
}
