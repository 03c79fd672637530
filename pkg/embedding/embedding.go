// Package embedding converts text into fixed-dimensional vectors via an
// external embedding service. The service is treated as a black box: it
// must be deterministic for identical input and produce vectors of a
// single, fixed dimensionality.
package embedding

import "context"

// Embedder converts batches of text into embedding vectors.
//
// Implementations must be safe for concurrent use: the pipelines share a
// single Embedder across all in-flight requests.
type Embedder interface {
	// Embed converts a batch of text strings into embedding vectors.
	// The returned slice has one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of the embedding vectors.
	// Returns 0 until the first successful Embed call.
	Dimensions() int
}
