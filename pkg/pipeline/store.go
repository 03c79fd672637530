package pipeline

import (
	"context"

	"github.com/semstore-dev/semstore/pkg/api"
	"github.com/semstore-dev/semstore/pkg/storage"
)

// DocumentStore handles persistence and vector-similarity retrieval of
// documents. Implementations live under pkg/storage.
//
// The corpus is append-only: there is no update or delete operation.
// Implementations must support concurrent readers and writers; a reader
// may or may not observe a concurrently added batch, but never observes
// a partially committed one.
type DocumentStore interface {
	// Add commits a batch of documents. Every document must carry a
	// non-empty ID unique within the batch and the store, and an
	// embedding matching the store's fixed dimensionality (fixed by the
	// first committed batch). Violations are reported with the sentinel
	// errors in pkg/storage and leave the corpus unchanged.
	Add(ctx context.Context, docs []api.Document) error

	// Query returns the k stored documents closest to the given vector,
	// ordered from closest to farthest, ties broken by insertion order.
	// Fewer than k documents yields all of them; an empty corpus yields
	// an empty result, not an error.
	Query(ctx context.Context, vector []float32, k int) ([]storage.Match, error)

	// ListAll returns the entire corpus in insertion order. Embeddings
	// are not included.
	ListAll(ctx context.Context) ([]api.Document, error)

	// HealthCheck verifies the backing substrate is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases database connections and resources.
	Close() error
}
