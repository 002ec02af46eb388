// Package postgres provides a vector store adapter backed by PostgreSQL
// with the pgvector extension. Each collection maps to one table with a
// vector column and a JSONB payload.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/razorsearch/internal/core/domain"
	"github.com/custodia-labs/razorsearch/internal/core/ports/driven"
	"github.com/custodia-labs/razorsearch/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// collectionPattern restricts collection names to safe SQL identifiers,
// since table names cannot be bound as query parameters.
var collectionPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// tablePrefix namespaces collection tables.
const tablePrefix = "razorsearch_"

// Store is a PostgreSQL-backed vector store using pgvector for cosine
// similarity. Safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to PostgreSQL and makes sure the pgvector extension
// is available.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: enable pgvector: %w", err)
	}
	return &Store{pool: pool}, nil
}

// tableName validates the collection name and returns its table name.
func tableName(collection string) (string, error) {
	if !collectionPattern.MatchString(collection) {
		return "", fmt.Errorf("postgres: %w: invalid collection name %q", domain.ErrInvalidInput, collection)
	}
	return tablePrefix + collection, nil
}

// EnsureCollection creates the collection table and its index when absent.
func (s *Store) EnsureCollection(ctx context.Context, collection string, dimensions int) error {
	if dimensions <= 0 {
		return fmt.Errorf("postgres: %w: dimensions must be positive", domain.ErrInvalidInput)
	}
	table, err := tableName(collection)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}'::jsonb
		)`, table, dimensions))
	if err != nil {
		return fmt.Errorf("postgres: create table %s: %w", table, err)
	}

	_, err = s.pool.Exec(ctx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_payload_idx ON %s USING GIN (payload jsonb_path_ops)`,
		table, table))
	if err != nil {
		return fmt.Errorf("postgres: create payload index on %s: %w", table, err)
	}

	logger.Debug("Collection %s ready (%d dimensions)", collection, dimensions)
	return nil
}

// Upsert inserts or replaces points by ID.
func (s *Store) Upsert(ctx context.Context, collection string, points []driven.Point) error {
	table, err := tableName(collection)
	if err != nil {
		return err
	}

	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return fmt.Errorf("postgres: marshal payload for %s: %w", p.ID, err)
		}
		_, err = s.pool.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (id, embedding, payload)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE
			SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload`, table),
			p.ID, pgvector.NewVector(p.Vector), payload)
		if err != nil {
			return fmt.Errorf("postgres: upsert %s: %w", p.ID, err)
		}
	}
	return nil
}

// Query runs filtered cosine nearest-neighbour search.
func (s *Store) Query(ctx context.Context, collection string, vector []float32, filter driven.Filter, limit int, minScore float64) ([]driven.ScoredPoint, error) {
	table, err := tableName(collection)
	if err != nil {
		return nil, err
	}

	args := []any{pgvector.NewVector(vector), minScore}
	where, args, err := buildFilter(filter, args)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, embedding, payload, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE 1 - (embedding <=> $1) >= $2%s
		ORDER BY embedding <=> $1
		LIMIT %d`, table, where, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query %s: %w", collection, err)
	}
	defer rows.Close()

	var results []driven.ScoredPoint
	for rows.Next() {
		var (
			point driven.Point
			embed pgvector.Vector
			raw   []byte
			score float64
		)
		if err := rows.Scan(&point.ID, &embed, &raw, &score); err != nil {
			return nil, fmt.Errorf("postgres: scan result: %w", err)
		}
		point.Vector = embed.Slice()
		if err := json.Unmarshal(raw, &point.Payload); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal payload for %s: %w", point.ID, err)
		}
		results = append(results, driven.ScoredPoint{Point: point, Score: score})
	}
	return results, rows.Err()
}

// Retrieve fetches points by ID. Missing IDs are silently absent.
func (s *Store) Retrieve(ctx context.Context, collection string, ids []string) ([]driven.Point, error) {
	table, err := tableName(collection)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, embedding, payload FROM %s WHERE id = ANY($1)`, table), ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: retrieve from %s: %w", collection, err)
	}
	defer rows.Close()

	return scanPoints(rows)
}

// Scroll walks the collection with a payload filter, in no particular
// order.
func (s *Store) Scroll(ctx context.Context, collection string, filter driven.Filter, limit int) ([]driven.Point, error) {
	table, err := tableName(collection)
	if err != nil {
		return nil, err
	}

	where, args, err := buildFilter(filter, nil)
	if err != nil {
		return nil, err
	}
	where = strings.TrimPrefix(where, " AND")
	if where == "" {
		where = " TRUE"
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(
		`SELECT id, embedding, payload FROM %s WHERE%s LIMIT %d`, table, where, limit), args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: scroll %s: %w", collection, err)
	}
	defer rows.Close()

	return scanPoints(rows)
}

// SetPayload replaces a point's payload. With a non-negative expectedRev
// the write only lands when the stored revision still matches, so
// concurrent writers cannot silently overwrite each other.
func (s *Store) SetPayload(ctx context.Context, collection, id string, payload map[string]any, expectedRev int64) error {
	table, err := tableName(collection)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("postgres: marshal payload for %s: %w", id, err)
	}

	var update string
	if expectedRev == driven.UnconditionalWrite {
		update = fmt.Sprintf(`UPDATE %s SET payload = $2 WHERE id = $1`, table)
	} else {
		update = fmt.Sprintf(
			`UPDATE %s SET payload = $2 WHERE id = $1 AND COALESCE((payload->>'rev')::bigint, 0) = %d`,
			table, expectedRev)
	}

	result, err := s.pool.Exec(ctx, update, id, raw)
	if err != nil {
		return fmt.Errorf("postgres: set payload for %s: %w", id, err)
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	// Distinguish a missing point from a lost revision race.
	var exists bool
	err = s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table), id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres: check point %s: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("postgres: point %s: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("postgres: point %s: %w", id, domain.ErrConflict)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// buildFilter renders filter clauses as SQL appended after existing WHERE
// conditions. Scalar values use JSONB containment; string slices match
// when the payload field equals any element.
func buildFilter(filter driven.Filter, args []any) (string, []any, error) {
	var clauses strings.Builder
	for key, value := range filter {
		switch v := value.(type) {
		case []string:
			args = append(args, key, v)
			clauses.WriteString(fmt.Sprintf(" AND payload->>($%d::text) = ANY($%d)", len(args)-1, len(args)))
		default:
			contain, err := json.Marshal(map[string]any{key: v})
			if err != nil {
				return "", nil, fmt.Errorf("postgres: marshal filter %s: %w", key, err)
			}
			args = append(args, contain)
			clauses.WriteString(fmt.Sprintf(" AND payload @> $%d", len(args)))
		}
	}
	return clauses.String(), args, nil
}

func scanPoints(rows pgx.Rows) ([]driven.Point, error) {
	var points []driven.Point
	for rows.Next() {
		var (
			point driven.Point
			embed pgvector.Vector
			raw   []byte
		)
		if err := rows.Scan(&point.ID, &embed, &raw); err != nil {
			return nil, fmt.Errorf("postgres: scan point: %w", err)
		}
		point.Vector = embed.Slice()
		if err := json.Unmarshal(raw, &point.Payload); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal payload for %s: %w", point.ID, err)
		}
		points = append(points, point)
	}
	return points, rows.Err()
}
