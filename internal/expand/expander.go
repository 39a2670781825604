// Package expand grows truncated chunks with their document neighbors
// under a token budget, stopping at section boundaries.
package expand

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yakgwan-ai/yakgwan/internal/store"
	"github.com/yakgwan-ai/yakgwan/internal/structure"
	"github.com/yakgwan-ai/yakgwan/internal/token"
)

// Budget and window defaults.
const (
	// DefaultMaxContextTokens caps the total expanded context handed to
	// answer generation.
	DefaultMaxContextTokens = 15000

	// DefaultAdjacentWindow is the neighbor count fetched per direction.
	DefaultAdjacentWindow = 2
)

// Request asks for one pivot chunk to be expanded.
type Request struct {
	ChunkID   int64
	Direction store.Direction
	Reasons   []string
}

// Expander merges pivot chunks with adjacent chunks from the store.
type Expander struct {
	store     store.ChunkStore
	counter   *token.Counter
	maxTokens int
	window    int
	logger    *slog.Logger
}

// NewExpander creates an expander. Zero maxTokens selects the default.
func NewExpander(st store.ChunkStore, counter *token.Counter, maxTokens int, logger *slog.Logger) *Expander {
	if counter == nil {
		counter = token.NewCounter()
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxContextTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{
		store:     st,
		counter:   counter,
		maxTokens: maxTokens,
		window:    DefaultAdjacentWindow,
		logger:    logger,
	}
}

// merged is the outcome of one pivot merge.
type merged struct {
	content   string
	included  []int64
	tokens    int
	truncated bool
}

// Expand applies the requested expansions to the result list. Pivots are
// rewritten in place with merged content and expansion metadata;
// untouched results pass through until the global budget is exhausted,
// after which trailing results are dropped.
func (e *Expander) Expand(ctx context.Context, results []store.SearchResult, requests []Request) []store.SearchResult {
	directions := make(map[int64]store.Direction, len(requests))
	for _, req := range requests {
		dir := req.Direction
		if dir == "" {
			dir = store.DirectionBoth
		}
		directions[req.ChunkID] = dir
	}

	var out []store.SearchResult
	total := 0

	for _, res := range results {
		dir, wants := directions[res.ID]
		if !wants {
			tokens := e.counter.ForChunk(res.TokenCount, res.Content)
			if total+tokens > e.maxTokens {
				e.logger.Warn("token budget reached, dropping trailing results",
					"chunk_id", res.ID, "total_tokens", total)
				break
			}
			out = append(out, res)
			total += tokens
			continue
		}

		if total >= e.maxTokens {
			e.logger.Warn("token budget reached, skipping expansion",
				"chunk_id", res.ID, "total_tokens", total)
			out = append(out, res)
			continue
		}

		adj, err := e.store.Adjacent(ctx, res.ID, dir, e.window)
		if err != nil {
			e.logger.Error("adjacent chunk lookup failed", "chunk_id", res.ID, "error", err)
			out = append(out, res)
			total += e.counter.ForChunk(res.TokenCount, res.Content)
			continue
		}

		m := e.merge(res, adj.Prev, adj.Next, e.maxTokens-total)

		if total+m.tokens > e.maxTokens {
			// The pivot alone blew the remaining budget; keep the
			// original if it still fits.
			pivotTokens := e.counter.ForChunk(res.TokenCount, res.Content)
			if total+pivotTokens <= e.maxTokens {
				out = append(out, res)
				total += pivotTokens
			}
			continue
		}

		expanded := res
		expanded.Content = m.content
		expanded.TokenCount = m.tokens
		expanded.Expanded = true
		expanded.IncludedChunks = m.included
		expanded.Truncated = m.truncated

		out = append(out, expanded)
		total += m.tokens

		e.logger.Info("chunk expanded",
			"chunk_id", res.ID,
			"direction", string(dir),
			"included_chunks", len(m.included),
			"tokens", m.tokens,
			"truncated", m.truncated)
	}

	e.logger.Debug("expansion pass complete", "results", len(out), "total_tokens", total)
	return out
}

// merge joins the pivot with its neighbors, alternating forward and
// backward, within budget. Forward extension stops when a candidate opens
// a new section.
func (e *Expander) merge(pivot store.SearchResult, prev, next []store.Chunk, budget int) merged {
	if budget > e.maxTokens || budget <= 0 {
		budget = e.maxTokens
	}

	pivotHasTable := structure.HasTable(pivot.Content)

	parts := []string{pivot.Content}
	included := []int64{pivot.ID}
	total := e.counter.ForChunk(pivot.TokenCount, pivot.Content)
	truncated := total > budget

	prevIdx := len(prev) - 1
	nextIdx := 0

	for (prevIdx >= 0 || nextIdx < len(next)) && !truncated {
		if nextIdx < len(next) {
			cand := next[nextIdx]
			if structure.StartsNewSection(cand.Content, pivotHasTable) {
				e.logger.Debug("new section detected, stopping merge", "chunk_id", cand.ID)
				break
			}
			tokens := e.counter.ForChunk(cand.TokenCount, cand.Content)
			if total+tokens > budget {
				truncated = true
				break
			}
			parts = append(parts, cand.Content)
			included = append(included, cand.ID)
			total += tokens
			nextIdx++
		}

		if prevIdx >= 0 {
			cand := prev[prevIdx]
			tokens := e.counter.ForChunk(cand.TokenCount, cand.Content)
			if total+tokens > budget {
				truncated = true
				break
			}
			parts = append([]string{cand.Content}, parts...)
			included = append([]int64{cand.ID}, included...)
			total += tokens
			prevIdx--
		}
	}

	return merged{
		content:   strings.Join(parts, "\n\n"),
		included:  included,
		tokens:    total,
		truncated: truncated,
	}
}
