// Package transport serves the document store API over HTTP. It routes
// requests to the ingestion, query, and listing pipelines, translates
// pipeline errors into JSON error responses, and provides middleware for
// request IDs, structured logging, and panic recovery.
package transport
