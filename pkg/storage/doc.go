// Package storage provides utilities shared across document store
// adapter implementations: sentinel errors, batch validation, vector
// encoding, and distance ranking.
//
// Storage adapters (memory, sqlite, postgres) implement the
// pipeline.DocumentStore interface defined in pkg/pipeline/store.go.
// This package contains only shared types and helpers, not the
// interface itself.
package storage
