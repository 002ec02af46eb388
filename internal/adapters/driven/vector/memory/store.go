// Package memory provides an in-memory vector store. It backs tests and
// small single-process setups; nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/razorsearch/internal/core/domain"
	"github.com/custodia-labs/razorsearch/internal/core/ports/driven"
)

var _ driven.VectorStore = (*Store)(nil)

type collection struct {
	dimensions int
	points     map[string]driven.Point
	order      []string
}

// Store is a thread-safe in-memory vector store using exact cosine
// similarity.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewStore creates an empty in-memory vector store.
func NewStore() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) EnsureCollection(_ context.Context, name string, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("collection %s: %w: dimensions must be positive", name, domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.collections[name]; ok {
		if existing.dimensions != dimensions {
			return fmt.Errorf("collection %s: %w: dimension mismatch %d != %d",
				name, domain.ErrConflict, existing.dimensions, dimensions)
		}
		return nil
	}
	s.collections[name] = &collection{
		dimensions: dimensions,
		points:     make(map[string]driven.Point),
	}
	return nil
}

func (s *Store) collection(name string) (*collection, error) {
	coll, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", name, domain.ErrNotFound)
	}
	return coll, nil
}

func (s *Store) Upsert(_ context.Context, name string, points []driven.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, err := s.collection(name)
	if err != nil {
		return err
	}
	for _, p := range points {
		if len(p.Vector) != coll.dimensions {
			return fmt.Errorf("point %s: %w: vector has %d dimensions, collection expects %d",
				p.ID, domain.ErrInvalidInput, len(p.Vector), coll.dimensions)
		}
		if _, exists := coll.points[p.ID]; !exists {
			coll.order = append(coll.order, p.ID)
		}
		coll.points[p.ID] = driven.Point{ID: p.ID, Vector: p.Vector, Payload: copyPayload(p.Payload)}
	}
	return nil
}

func (s *Store) Query(_ context.Context, name string, vector []float32, filter driven.Filter, limit int, minScore float64) ([]driven.ScoredPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, err := s.collection(name)
	if err != nil {
		return nil, err
	}

	var scored []driven.ScoredPoint
	for _, id := range coll.order {
		p := coll.points[id]
		if !matches(p.Payload, filter) {
			continue
		}
		score := cosine(vector, p.Vector)
		if score < minScore {
			continue
		}
		scored = append(scored, driven.ScoredPoint{
			Point: driven.Point{ID: p.ID, Vector: p.Vector, Payload: copyPayload(p.Payload)},
			Score: score,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *Store) Retrieve(_ context.Context, name string, ids []string) ([]driven.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	var points []driven.Point
	for _, id := range ids {
		if p, ok := coll.points[id]; ok {
			points = append(points, driven.Point{ID: p.ID, Vector: p.Vector, Payload: copyPayload(p.Payload)})
		}
	}
	return points, nil
}

func (s *Store) Scroll(_ context.Context, name string, filter driven.Filter, limit int) ([]driven.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	var points []driven.Point
	for _, id := range coll.order {
		p := coll.points[id]
		if !matches(p.Payload, filter) {
			continue
		}
		points = append(points, driven.Point{ID: p.ID, Vector: p.Vector, Payload: copyPayload(p.Payload)})
		if limit > 0 && len(points) >= limit {
			break
		}
	}
	return points, nil
}

func (s *Store) SetPayload(_ context.Context, name, id string, payload map[string]any, expectedRev int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, err := s.collection(name)
	if err != nil {
		return err
	}
	p, ok := coll.points[id]
	if !ok {
		return fmt.Errorf("point %s: %w", id, domain.ErrNotFound)
	}
	if expectedRev != driven.UnconditionalWrite {
		if rev := payloadRev(p.Payload); rev != expectedRev {
			return fmt.Errorf("point %s: revision %d, expected %d: %w",
				id, rev, expectedRev, domain.ErrConflict)
		}
	}
	p.Payload = copyPayload(payload)
	coll.points[id] = p
	return nil
}

func (s *Store) Close() error { return nil }

// matches reports whether payload satisfies every filter clause. A
// []string clause value matches when the payload field equals any
// element.
func matches(payload map[string]any, filter driven.Filter) bool {
	for key, want := range filter {
		got, ok := payload[key]
		if !ok {
			return false
		}
		switch want := want.(type) {
		case []string:
			found := false
			for _, candidate := range want {
				if got == candidate {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			if got != want {
				return false
			}
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func copyPayload(payload map[string]any) map[string]any {
	cloned := make(map[string]any, len(payload))
	for k, v := range payload {
		cloned[k] = v
	}
	return cloned
}

func payloadRev(payload map[string]any) int64 {
	switch v := payload["rev"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
