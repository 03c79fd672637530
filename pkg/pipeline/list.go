package pipeline

import (
	"context"
	"fmt"

	"github.com/semstore-dev/semstore/pkg/api"
)

// Lister dumps the entire corpus for inspection, unranked and
// untruncated.
type Lister struct {
	store DocumentStore
}

// NewLister creates a listing pipeline over the shared store.
func NewLister(store DocumentStore) *Lister {
	return &Lister{store: store}
}

// List returns every stored document as (filename, text), with the
// "unknown" fallback when metadata carries no filename.
func (l *Lister) List(ctx context.Context) ([]api.ListEntry, error) {
	docs, err := l.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing store: %w", err)
	}

	entries := make([]api.ListEntry, len(docs))
	for i, doc := range docs {
		entries[i] = api.ListEntry{
			Filename: doc.Filename(),
			Text:     doc.Text,
		}
	}
	return entries, nil
}
