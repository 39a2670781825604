package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yakgwan-ai/yakgwan/internal/store"
)

func tokenResult(id int64, tokens int) store.SearchResult {
	return store.SearchResult{
		Chunk: store.Chunk{ID: id, Content: "본문", TokenCount: tokens},
	}
}

func TestContextOptimizer_StopsAtFirstOverflow(t *testing.T) {
	// Given: a 100-token budget and chunks of 40/40/40
	opt := NewContextOptimizer(nil, 100)
	results := []store.SearchResult{tokenResult(1, 40), tokenResult(2, 40), tokenResult(3, 40)}

	// When
	included, total := opt.Optimize(results)

	// Then: the third chunk overflows and everything after is dropped
	require.Len(t, included, 2)
	assert.Equal(t, 80, total)
}

func TestContextOptimizer_PreservesOrdering(t *testing.T) {
	opt := NewContextOptimizer(nil, 1000)
	results := []store.SearchResult{tokenResult(3, 10), tokenResult(1, 10), tokenResult(2, 10)}

	included, total := opt.Optimize(results)

	require.Len(t, included, 3)
	assert.Equal(t, int64(3), included[0].ID)
	assert.Equal(t, int64(1), included[1].ID)
	assert.Equal(t, int64(2), included[2].ID)
	assert.Equal(t, 30, total)
}

func TestContextOptimizer_SkipsNothingBeforeOverflow(t *testing.T) {
	// Given: a later small chunk would fit but sits behind the overflow
	opt := NewContextOptimizer(nil, 50)
	results := []store.SearchResult{tokenResult(1, 30), tokenResult(2, 40), tokenResult(3, 5)}

	// When
	included, total := opt.Optimize(results)

	// Then: the fill is a strict prefix, not a best-fit packing
	require.Len(t, included, 1)
	assert.Equal(t, int64(1), included[0].ID)
	assert.Equal(t, 30, total)
}

func TestContextOptimizer_Idempotent(t *testing.T) {
	opt := NewContextOptimizer(nil, 100)
	results := []store.SearchResult{tokenResult(1, 40), tokenResult(2, 40), tokenResult(3, 40)}

	first, firstTotal := opt.Optimize(results)
	second, secondTotal := opt.Optimize(first)

	assert.Equal(t, first, second)
	assert.Equal(t, firstTotal, secondTotal)
}

func TestContextOptimizer_CountsContentWhenTokenCountMissing(t *testing.T) {
	opt := NewContextOptimizer(nil, 10000)
	results := []store.SearchResult{{Chunk: store.Chunk{ID: 1, Content: "암 진단비 지급 조건"}}}

	included, total := opt.Optimize(results)

	require.Len(t, included, 1)
	assert.Positive(t, total)
}

func TestContextOptimizer_DefaultBudget(t *testing.T) {
	opt := NewContextOptimizer(nil, 0)
	assert.Equal(t, DefaultContextTokenBudget, opt.MaxTokens())
}
