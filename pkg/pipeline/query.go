package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/semstore-dev/semstore/pkg/api"
	"github.com/semstore-dev/semstore/pkg/embedding"
	"github.com/semstore-dev/semstore/pkg/observability"
)

// Retriever answers free-text queries with the most similar stored
// documents. The result count is fixed at api.DefaultQueryResults.
type Retriever struct {
	embedder embedding.Embedder
	store    DocumentStore
	k        int
	logger   *slog.Logger
}

// NewRetriever creates a retrieval pipeline over the shared embedder
// and store.
func NewRetriever(embedder embedding.Embedder, store DocumentStore, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, store: store, k: api.DefaultQueryResults, logger: logger}
}

// Query embeds the query text and returns the closest documents, ordered
// from closest to farthest. An empty string is a valid query and is
// embedded like any other text. An empty corpus yields an empty result
// slice, not an error.
func (r *Retriever) Query(ctx context.Context, text string) ([]api.QueryResult, error) {
	vectors, err := r.embedder.Embed(ctx, []string{text})
	if err != nil {
		r.logger.Error("query embedding failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	start := time.Now()
	matches, err := r.store.Query(ctx, vectors[0], r.k)
	if err != nil {
		observability.StoreQueryDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		r.logger.Error("store query failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("querying store: %w", err)
	}
	observability.StoreQueryDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())

	results := make([]api.QueryResult, len(matches))
	for i, m := range matches {
		results[i] = api.QueryResult{
			Filename: m.Document.Filename(),
			Score:    m.Distance,
			Text:     m.Document.Text,
		}
	}
	return results, nil
}
