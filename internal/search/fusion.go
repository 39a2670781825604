// Package search implements hybrid retrieval: vector and lexical legs,
// reciprocal rank fusion, token-budget optimization, and keyword
// reranking.
package search

import (
	"sort"

	"github.com/yakgwan-ai/yakgwan/internal/store"
)

// DefaultRRFConstant is the industry-standard smoothing parameter.
const DefaultRRFConstant = 60

// RRFFusion merges ranked result lists with Reciprocal Rank Fusion.
// A chunk appearing in both lists sums its contributions, which is the
// "endorsed by both retrievers" signal hybrid search relies on.
type RRFFusion struct {
	// K is the rank smoothing constant. Higher values flatten the
	// difference between adjacent ranks.
	K int
}

// NewRRFFusion creates a fusion with the given constant (0 uses the default).
func NewRRFFusion(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse merges the two ranked lists and returns the top limit results by
// RRF score. Each returned record is the cached SearchResult from
// whichever list saw the chunk first, with Similarity overwritten by the
// fused score; storage is never re-queried.
func (f *RRFFusion) Fuse(vecResults, keyResults []store.SearchResult, limit int) []store.SearchResult {
	if len(vecResults) == 0 && len(keyResults) == 0 {
		return nil
	}

	scores := make(map[int64]float64)
	cached := make(map[int64]store.SearchResult)
	var order []int64 // first-seen order for deterministic ties

	accumulate := func(results []store.SearchResult) {
		for rank, r := range results {
			if _, seen := cached[r.ID]; !seen {
				cached[r.ID] = r
				order = append(order, r.ID)
			}
			scores[r.ID] += 1.0 / float64(f.K+rank+1)
		}
	}
	accumulate(vecResults)
	accumulate(keyResults)

	sort.SliceStable(order, func(i, j int) bool {
		si, sj := scores[order[i]], scores[order[j]]
		if si != sj {
			return si > sj
		}
		return order[i] < order[j]
	})

	if limit <= 0 || limit > len(order) {
		limit = len(order)
	}

	fused := make([]store.SearchResult, 0, limit)
	for _, id := range order[:limit] {
		r := cached[id]
		r.Similarity = scores[id]
		fused = append(fused, r)
	}
	return fused
}
