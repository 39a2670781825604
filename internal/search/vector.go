package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/yakgwan-ai/yakgwan/internal/embed"
	"github.com/yakgwan-ai/yakgwan/internal/store"
)

// DefaultVectorThreshold is the minimum cosine similarity for a hit.
const DefaultVectorThreshold = 0.7

// VectorSearcher embeds the query and runs cosine-similarity retrieval.
// Failures never abort the caller: the leg logs and returns empty so
// hybrid search can continue on the lexical side.
type VectorSearcher struct {
	store    store.ChunkStore
	embedder embed.Embedder
	logger   *slog.Logger
}

// NewVectorSearcher wires the store and embedder.
func NewVectorSearcher(st store.ChunkStore, embedder embed.Embedder, logger *slog.Logger) *VectorSearcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &VectorSearcher{store: st, embedder: embedder, logger: logger}
}

// Search returns up to limit chunks above threshold, most similar first.
func (v *VectorSearcher) Search(ctx context.Context, query string, threshold float64, limit int, filters store.SearchFilters) []store.SearchResult {
	if query == "" {
		return nil
	}
	if threshold <= 0 {
		threshold = DefaultVectorThreshold
	}

	started := time.Now()

	embedding, err := v.embedder.Embed(ctx, query)
	if err != nil {
		v.logger.Error("query embedding failed", "query", query, "error", err)
		return nil
	}
	if embed.IsZeroVector(embedding) {
		// Zero vector matches nothing above a positive threshold
		v.logger.Warn("query embedded to zero vector, skipping vector leg", "query", query)
		return nil
	}

	results, err := v.store.SearchVectors(ctx, embedding, threshold, limit, filters)
	if err != nil {
		v.logger.Error("vector search failed", "query", query, "error", err)
		return nil
	}

	v.logger.Debug("vector search complete",
		"query", query,
		"results", len(results),
		"threshold", threshold,
		"elapsed_ms", time.Since(started).Milliseconds())

	return results
}
