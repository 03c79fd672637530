package storage

import (
	"fmt"

	"github.com/semstore-dev/semstore/pkg/api"
)

// ValidateBatch checks a batch of documents before it is committed:
// every ID must be non-empty and unique within the batch, and every
// embedding must have the same length. storeDims is the store's current
// dimensionality, or 0 when the store is still empty; in that case the
// batch's own first embedding fixes the dimensionality, which is
// returned so the adapter can record it.
func ValidateBatch(docs []api.Document, storeDims int) (int, error) {
	dims := storeDims
	seen := make(map[string]bool, len(docs))

	for i, doc := range docs {
		if doc.ID == "" {
			return 0, fmt.Errorf("document %d: %w", i, ErrEmptyID)
		}
		if seen[doc.ID] {
			return 0, fmt.Errorf("document %d (%s): %w", i, doc.ID, ErrDuplicateID)
		}
		seen[doc.ID] = true

		if len(doc.Embedding) == 0 {
			return 0, fmt.Errorf("document %d (%s): empty embedding: %w", i, doc.ID, ErrDimensionMismatch)
		}
		if dims == 0 {
			dims = len(doc.Embedding)
		}
		if len(doc.Embedding) != dims {
			return 0, fmt.Errorf("document %d (%s): embedding length %d, want %d: %w",
				i, doc.ID, len(doc.Embedding), dims, ErrDimensionMismatch)
		}
	}

	return dims, nil
}
