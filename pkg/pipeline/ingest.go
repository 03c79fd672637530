package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/semstore-dev/semstore/pkg/api"
	"github.com/semstore-dev/semstore/pkg/embedding"
	"github.com/semstore-dev/semstore/pkg/observability"
)

// Upload is one raw uploaded file: its name and undecoded bytes.
type Upload struct {
	Filename string
	Data     []byte
}

// Ingestor turns batches of uploaded files into committed documents.
//
// The batch is fail-fast: a decode or embedding failure for any file
// aborts the whole batch before anything is written, so the store never
// holds a partially ingested batch.
type Ingestor struct {
	embedder embedding.Embedder
	store    DocumentStore
	logger   *slog.Logger
}

// NewIngestor creates an ingestion pipeline over the shared embedder
// and store.
func NewIngestor(embedder embedding.Embedder, store DocumentStore, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{embedder: embedder, store: store, logger: logger}
}

// Ingest decodes, embeds, and commits a batch of uploads, returning the
// generated document IDs in upload order.
//
// Any file that is not valid UTF-8 aborts the batch with an
// invalid_request error before any embedding work or storage write.
func (in *Ingestor) Ingest(ctx context.Context, uploads []Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, api.NewInvalidRequestError("files", "at least one file is required")
	}

	// Decode everything first. One bad file fails the whole batch.
	texts := make([]string, len(uploads))
	for i, up := range uploads {
		if !utf8.Valid(up.Data) {
			in.logger.Warn("rejecting batch: file is not valid UTF-8",
				slog.String("filename", up.Filename), slog.Int("batch_size", len(uploads)))
			return nil, api.NewInvalidRequestError("files",
				fmt.Sprintf("cannot decode file %q: content must be UTF-8 encoded", up.Filename))
		}
		texts[i] = string(up.Data)
	}

	start := time.Now()
	vectors, err := in.embedder.Embed(ctx, texts)
	if err != nil {
		observability.EmbeddingDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		in.logger.Error("embedding failed, aborting batch",
			slog.Int("documents", len(uploads)), slog.String("error", err.Error()))
		return nil, fmt.Errorf("embedding batch of %d documents: %w", len(uploads), err)
	}
	observability.EmbeddingDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())

	if len(vectors) != len(uploads) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(uploads))
	}

	docs := make([]api.Document, len(uploads))
	ids := make([]string, len(uploads))
	for i := range uploads {
		ids[i] = api.NewDocumentID()
		docs[i] = api.Document{
			ID:        ids[i],
			Text:      texts[i],
			Metadata:  map[string]string{api.MetadataFilename: uploads[i].Filename},
			Embedding: vectors[i],
		}
	}

	if err := in.store.Add(ctx, docs); err != nil {
		in.logger.Error("store add failed",
			slog.Int("documents", len(docs)), slog.String("error", err.Error()))
		return nil, fmt.Errorf("adding %d documents to store: %w", len(docs), err)
	}

	observability.DocumentsIngestedTotal.Add(float64(len(docs)))
	in.logger.Info("batch ingested", slog.Int("documents", len(docs)))
	return ids, nil
}
