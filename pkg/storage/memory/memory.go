// Package memory provides an in-memory implementation of
// pipeline.DocumentStore for testing and lightweight deployments.
// Documents are held in insertion order and lost when the process
// restarts. Similarity queries are brute-force cosine scans.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/semstore-dev/semstore/pkg/api"
	"github.com/semstore-dev/semstore/pkg/pipeline"
	"github.com/semstore-dev/semstore/pkg/storage"
)

// Store is an in-memory DocumentStore. The zero dims value means the
// store is empty; the first committed batch fixes the dimensionality.
type Store struct {
	mu   sync.RWMutex
	docs []api.Document // insertion order
	ids  map[string]struct{}
	dims int
}

// Ensure Store implements pipeline.DocumentStore at compile time.
var _ pipeline.DocumentStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{ids: make(map[string]struct{})}
}

// Add commits a batch of documents. The batch is validated in full
// before anything is appended, so a rejected batch leaves the corpus
// unchanged.
func (s *Store) Add(_ context.Context, docs []api.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dims, err := storage.ValidateBatch(docs, s.dims)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if _, exists := s.ids[doc.ID]; exists {
			return fmt.Errorf("document %s: %w", doc.ID, storage.ErrDuplicateID)
		}
	}

	for _, doc := range docs {
		s.ids[doc.ID] = struct{}{}
		s.docs = append(s.docs, doc)
	}
	s.dims = dims
	return nil
}

// Query returns the k documents closest to the given vector, ties broken
// by insertion order. An empty corpus yields an empty result.
func (s *Store) Query(_ context.Context, vector []float32, k int) ([]storage.Match, error) {
	if k < 1 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.docs) == 0 {
		return []storage.Match{}, nil
	}
	if len(vector) != s.dims {
		return nil, fmt.Errorf("query vector length %d, store dimensionality %d: %w",
			len(vector), s.dims, storage.ErrDimensionMismatch)
	}

	vectors := make([][]float32, len(s.docs))
	for i := range s.docs {
		vectors[i] = s.docs[i].Embedding
	}

	ranked := storage.Rank(vectors, vector, k)
	matches := make([]storage.Match, len(ranked))
	for i, r := range ranked {
		matches[i] = storage.Match{Document: s.docs[r.Index], Distance: r.Distance}
	}
	return matches, nil
}

// ListAll returns the corpus in insertion order, without embeddings.
func (s *Store) ListAll(_ context.Context) ([]api.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]api.Document, len(s.docs))
	for i, doc := range s.docs {
		docs[i] = api.Document{ID: doc.ID, Text: doc.Text, Metadata: doc.Metadata}
	}
	return docs, nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
