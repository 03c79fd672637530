// Package pipeline implements the ingestion, retrieval, and listing
// flows of the semantic document store. Each pipeline holds a shared
// Embedder and DocumentStore, constructed once at process startup and
// reused across concurrent requests.
package pipeline
