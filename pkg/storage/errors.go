package storage

import "errors"

// Sentinel errors for document store operations. An empty result set is
// never an error; these cover genuine failures only.
var (
	// ErrDuplicateID is returned when a document ID already exists in the
	// store or occurs twice within one batch.
	ErrDuplicateID = errors.New("duplicate document id")

	// ErrEmptyID is returned when a document in a batch has no ID.
	ErrEmptyID = errors.New("empty document id")

	// ErrDimensionMismatch is returned when an embedding's length differs
	// from the store's fixed dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
