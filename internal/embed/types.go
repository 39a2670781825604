// Package embed generates query and chunk embeddings through the OpenAI
// embeddings API, with cache-through layers to keep repeated queries off
// the wire.
package embed

import (
	"context"
)

// Embedding constants.
const (
	// DefaultDimensions matches the chunk store's vector column width.
	DefaultDimensions = 1536

	// DefaultBatchSize is texts per embedding request.
	DefaultBatchSize = 100

	// MaxBatchSize prevents oversized requests.
	MaxBatchSize = 2048

	// DefaultConcurrency caps in-flight embedding requests.
	DefaultConcurrency = 5
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text. Implementations
	// never fail a request outright: on exhausted retries they return a
	// zero vector so retrieval degrades instead of aborting.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, preserving
	// order. Failed sub-batches yield zero vectors in their positions.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	Close() error
}

// ZeroVector returns the all-zero fallback embedding. It matches nothing
// above any positive similarity threshold.
func ZeroVector(dim int) []float32 {
	return make([]float32, dim)
}

// IsZeroVector reports whether every component is zero.
func IsZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
