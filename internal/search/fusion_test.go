package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yakgwan-ai/yakgwan/internal/store"
)

func result(id int64, sim float64) store.SearchResult {
	return store.SearchResult{
		Chunk:      store.Chunk{ID: id, Content: "chunk"},
		Similarity: sim,
	}
}

func TestRRFFusion_DuplicatesSumContributions(t *testing.T) {
	// Given: chunk 1 ranks first in both lists, chunks 2 and 3 appear once
	fusion := NewRRFFusion(60)
	vec := []store.SearchResult{result(1, 0.9), result(2, 0.8)}
	key := []store.SearchResult{result(1, 0.5), result(3, 0.4)}

	// When
	fused := fusion.Fuse(vec, key, 10)

	// Then: the doubly-endorsed chunk wins with summed scores
	require.Len(t, fused, 3)
	assert.Equal(t, int64(1), fused[0].ID)
	assert.InDelta(t, 2.0/61.0, fused[0].Similarity, 1e-12)
	assert.InDelta(t, 1.0/62.0, fused[1].Similarity, 1e-12)
}

func TestRRFFusion_TieBreaksByFirstSeen(t *testing.T) {
	// Given: chunks 5 and 2 at the same rank of different lists tie exactly
	fusion := NewRRFFusion(60)
	vec := []store.SearchResult{result(5, 0.9)}
	key := []store.SearchResult{result(2, 0.9)}

	// When
	fused := fusion.Fuse(vec, key, 10)

	// Then: lower first-seen id orders first, deterministically
	require.Len(t, fused, 2)
	assert.Equal(t, int64(2), fused[0].ID)
	assert.Equal(t, int64(5), fused[1].ID)
}

func TestRRFFusion_LimitTruncates(t *testing.T) {
	fusion := NewRRFFusion(0)
	vec := []store.SearchResult{result(1, 0.9), result(2, 0.8), result(3, 0.7)}

	fused := fusion.Fuse(vec, nil, 2)

	require.Len(t, fused, 2)
	assert.Equal(t, int64(1), fused[0].ID)
	assert.Equal(t, int64(2), fused[1].ID)
}

func TestRRFFusion_SimilarityOverwrittenNotRequeried(t *testing.T) {
	// Given: the cached record carries the original cosine similarity
	fusion := NewRRFFusion(60)
	vec := []store.SearchResult{result(7, 0.93)}

	// When
	fused := fusion.Fuse(vec, nil, 10)

	// Then: the fused score replaces it and the chunk payload survives
	require.Len(t, fused, 1)
	assert.InDelta(t, 1.0/61.0, fused[0].Similarity, 1e-12)
	assert.Equal(t, "chunk", fused[0].Content)
}

func TestRRFFusion_EmptyInputs(t *testing.T) {
	fusion := NewRRFFusion(60)
	assert.Nil(t, fusion.Fuse(nil, nil, 10))
}
