// Package sqlite provides a SQLite-backed implementation of
// pipeline.DocumentStore using the pure-Go modernc.org/sqlite driver.
// Embeddings are stored as little-endian float32 blobs; similarity
// queries scan the corpus and rank in process. Suitable for single-node
// deployments that need the corpus to survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/semstore-dev/semstore/pkg/api"
	"github.com/semstore-dev/semstore/pkg/pipeline"
	"github.com/semstore-dev/semstore/pkg/storage"
)

// Store is a SQLite-backed DocumentStore.
type Store struct {
	db *sql.DB
}

// Ensure Store implements pipeline.DocumentStore at compile time.
var _ pipeline.DocumentStore = (*Store)(nil)

// New opens (or creates) the database at the given path and applies
// pending schema migrations. WAL mode keeps concurrent readers from
// blocking the single writer.
func New(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows one writer at a time; a larger pool only produces
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Add commits a batch of documents inside a single transaction: either
// the whole batch becomes visible or none of it does.
func (s *Store) Add(ctx context.Context, docs []api.Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	dims, err := s.dimensions(ctx, tx)
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

		_, err = tx.ExecContext(ctx,
			"INSERT INTO documents (id, content, metadata, embedding) VALUES (?, ?, ?, ?)",
			doc.ID, doc.Text, string(metadata), storage.EncodeVector(doc.Embedding),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("document %s: %w", doc.ID, storage.ErrDuplicateID)
			}
			return fmt.Errorf("inserting document %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
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

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, metadata, embedding FROM documents ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []api.Document
	var vectors [][]float32
	for rows.Next() {
		doc, embedding, err := scanDocument(rows)
		if err != nil {
			return nil, err
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
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, metadata FROM documents ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := make([]api.Document, 0)
	for rows.Next() {
		var doc api.Document
		var metadata string
		if err := rows.Scan(&doc.ID, &doc.Text, &metadata); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if err := json.Unmarshal([]byte(metadata), &doc.Metadata); err != nil {
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
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// dimensions returns the store's fixed embedding length, or 0 when the
// corpus is empty. Derived from the earliest stored blob.
func (s *Store) dimensions(ctx context.Context, tx *sql.Tx) (int, error) {
	var blobLen int
	err := tx.QueryRowContext(ctx,
		"SELECT length(embedding) FROM documents ORDER BY seq LIMIT 1").Scan(&blobLen)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading store dimensionality: %w", err)
	}
	return blobLen / 4, nil
}

// scanDocument reads one full document row including its embedding.
func scanDocument(rows *sql.Rows) (api.Document, []float32, error) {
	var doc api.Document
	var metadata string
	var blob []byte
	if err := rows.Scan(&doc.ID, &doc.Text, &metadata, &blob); err != nil {
		return api.Document{}, nil, fmt.Errorf("scanning document: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &doc.Metadata); err != nil {
		return api.Document{}, nil, fmt.Errorf("unmarshaling metadata for %s: %w", doc.ID, err)
	}
	embedding, err := storage.DecodeVector(blob)
	if err != nil {
		return api.Document{}, nil, fmt.Errorf("decoding embedding for %s: %w", doc.ID, err)
	}
	return doc, embedding, nil
}

// isUniqueViolation checks if the error is a SQLite unique constraint
// failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
