package api

import "github.com/google/uuid"

// NewDocumentID generates a fresh document identifier. IDs are random
// UUIDs, collision-resistant across the store's full history, and are
// never reused or mutated.
func NewDocumentID() string {
	return uuid.NewString()
}

// ValidateDocumentID reports whether the given string is a well-formed
// document identifier.
func ValidateDocumentID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
