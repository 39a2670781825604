package search

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yakgwan-ai/yakgwan/internal/store"
)

// ClauseRelaxedThreshold replaces the vector threshold when a
// clause-number filter is active: the filter already constrains recall,
// so similarity only orders within the clause.
const ClauseRelaxedThreshold = 0.3

// Options tunes one hybrid search invocation.
type Options struct {
	// Limit is the final result count (default 10).
	Limit int
	// Threshold overrides the vector similarity floor (0 = default,
	// automatically relaxed when Filters.ClauseNumber is set).
	Threshold float64
	Filters   store.SearchFilters
	// UserID attributes the search log entry when known.
	UserID *int64
}

// Result is a hybrid search response.
type Result struct {
	Results     []store.SearchResult
	TotalTokens int
}

// HybridSearcher orchestrates both retrieval legs, fuses, and fills the
// token budget. The two legs run in parallel on separate pooled
// connections.
type HybridSearcher struct {
	vector    *VectorSearcher
	keyword   *KeywordSearcher
	fusion    *RRFFusion
	optimizer *ContextOptimizer
	store     store.ChunkStore
	logger    *slog.Logger
}

// NewHybridSearcher wires the pipeline stages.
func NewHybridSearcher(vector *VectorSearcher, keyword *KeywordSearcher, fusion *RRFFusion, optimizer *ContextOptimizer, st store.ChunkStore, logger *slog.Logger) *HybridSearcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridSearcher{
		vector:    vector,
		keyword:   keyword,
		fusion:    fusion,
		optimizer: optimizer,
		store:     st,
		logger:    logger,
	}
}

// Search runs the full hybrid pipeline:
// both legs at limit 2L, RRF fusion to L, token-budget optimization,
// then a search-log entry. Never returns an error; worst case is an
// empty result set.
func (h *HybridSearcher) Search(ctx context.Context, query string, opts Options) Result {
	started := time.Now()

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultVectorThreshold
	}
	if opts.Filters.ClauseNumber != "" && threshold > ClauseRelaxedThreshold {
		threshold = ClauseRelaxedThreshold
	}

	// Over-fetch both legs so fusion has enough overlap to work with
	fetchLimit := 2 * limit

	var vecResults, keyResults []store.SearchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vecResults = h.vector.Search(gctx, query, threshold, fetchLimit, opts.Filters)
		return nil
	})
	g.Go(func() error {
		keyResults = h.keyword.Search(gctx, query, fetchLimit, opts.Filters)
		return nil
	})
	_ = g.Wait()

	fused := h.fusion.Fuse(vecResults, keyResults, limit)
	included, totalTokens := h.optimizer.Optimize(fused)

	elapsed := time.Since(started)

	topSimilarity := 0.0
	if len(included) > 0 {
		topSimilarity = included[0].Similarity
	}
	h.store.LogSearch(ctx, store.SearchLogEntry{
		UserID:         opts.UserID,
		Query:          query,
		SearchType:     "hybrid",
		ResultsCount:   len(included),
		TopSimilarity:  topSimilarity,
		ResponseTimeMS: int(elapsed.Milliseconds()),
	})

	h.logger.Info("hybrid search complete",
		"query", query,
		"vector_results", len(vecResults),
		"keyword_results", len(keyResults),
		"fused", len(fused),
		"included", len(included),
		"total_tokens", totalTokens,
		"elapsed_ms", elapsed.Milliseconds())

	return Result{Results: included, TotalTokens: totalTokens}
}
