// Package postgres provides a PostgreSQL implementation of
// pipeline.DocumentStore. It uses pgx/v5 for connection pooling, JSONB
// for document metadata, and BYTEA for the embedding vectors. Similarity
// queries scan the corpus and rank in process, which keeps the schema
// free of any vector extension.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/semstore-dev/semstore/pkg/api"
	"github.com/semstore-dev/semstore/pkg/pipeline"
	"github.com/semstore-dev/semstore/pkg/storage"
)

// Store is a PostgreSQL-backed DocumentStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements pipeline.DocumentStore at compile time.
var _ pipeline.DocumentStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// Add commits a batch of documents inside a single transaction: either
// the whole batch becomes visible or none of it does.
func (s *Store) Add(ctx context.Context, docs []api.Document) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	dims, err := dimensions(ctx, tx)
	if err != nil {
		return err
	}
	if _, err := storage.ValidateBatch(docs, dims); err != nil {
		return err
	}

	for _, doc := range docs {
		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for %s: %w", doc.ID, err)
		}

		_, err = tx.Exec(ctx,
			"INSERT INTO documents (id, content, metadata, embedding) VALUES ($1, $2, $3, $4)",
			doc.ID, doc.Text, metadata, storage.EncodeVector(doc.Embedding),
		)
		if err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("document %s: %w", doc.ID, storage.ErrDuplicateID)
			}
			return fmt.Errorf("inserting document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// Query scans the corpus and returns the k closest documents, ties
// broken by insertion order (the seq column).
func (s *Store) Query(ctx context.Context, vector []float32, k int) ([]storage.Match, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	rows, err := s.pool.Query(ctx,
		"SELECT id, content, metadata, embedding FROM documents ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []api.Document
	var vectors [][]float32
	for rows.Next() {
		var doc api.Document
		var metadata []byte
		var blob []byte
		if err := rows.Scan(&doc.ID, &doc.Text, &metadata, &blob); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata for %s: %w", doc.ID, err)
		}
		embedding, err := storage.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
		vectors = append(vectors, embedding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}

	if len(docs) == 0 {
		return []storage.Match{}, nil
	}
	if len(vector) != len(vectors[0]) {
		return nil, fmt.Errorf("query vector length %d, store dimensionality %d: %w",
			len(vector), len(vectors[0]), storage.ErrDimensionMismatch)
	}

	ranked := storage.Rank(vectors, vector, k)
	matches := make([]storage.Match, len(ranked))
	for i, r := range ranked {
		matches[i] = storage.Match{Document: docs[r.Index], Distance: r.Distance}
	}
	return matches, nil
}

// ListAll returns the corpus in insertion order, without embeddings.
func (s *Store) ListAll(ctx context.Context) ([]api.Document, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, content, metadata FROM documents ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := make([]api.Document, 0)
	for rows.Next() {
		var doc api.Document
		var metadata []byte
		if err := rows.Scan(&doc.ID, &doc.Text, &metadata); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata for %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading documents: %w", err)
	}
	return docs, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// dimensions returns the store's fixed embedding length, or 0 when the
// corpus is empty. Derived from the earliest stored vector.
func dimensions(ctx context.Context, tx pgx.Tx) (int, error) {
	var blobLen int
	err := tx.QueryRow(ctx,
		"SELECT length(embedding) FROM documents ORDER BY seq LIMIT 1").Scan(&blobLen)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading store dimensionality: %w", err)
	}
	return blobLen / 4, nil
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
