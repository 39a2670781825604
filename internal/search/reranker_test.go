package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yakgwan-ai/yakgwan/internal/store"
)

func contentResult(id int64, sim float64, content string) store.SearchResult {
	return store.SearchResult{
		Chunk:      store.Chunk{ID: id, Content: content},
		Similarity: sim,
	}
}

func TestReranker_ExactHitOutranksCloseSimilarity(t *testing.T) {
	// Given: chunk 2 trails on cosine similarity but contains both keywords
	r := NewReranker(0, 0, 0)
	results := []store.SearchResult{
		contentResult(1, 0.80, "수술급여금의 지급 사유와 한도를 정한다"),
		contentResult(2, 0.78, "암 진단비는 진단 확정일에 지급한다"),
	}

	// When
	out := r.Rerank(results, []string{"암", "진단비"})

	// Then: full exact coverage plus front bonus overcomes the 0.02 gap
	require.Len(t, out, 2)
	assert.Equal(t, int64(2), out[0].ID)
	assert.Equal(t, 2, out[0].OriginalRank)
	assert.Equal(t, 1, out[1].OriginalRank)
}

func TestReranker_ScoreComposition(t *testing.T) {
	// Given: one keyword hits exactly at the front, the other misses
	r := NewReranker(0, 0, 0)
	results := []store.SearchResult{contentResult(1, 0.5, "면책기간 동안에는 보험금을 지급하지 아니한다")}

	// When
	out := r.Rerank(results, []string{"면책기간", "진단비"})

	// Then: exact 1/2, partial 0, front 1/1
	want := 0.5 + DefaultExactWeight*0.5 + DefaultFrontWeight*1.0
	require.Len(t, out, 1)
	assert.InDelta(t, want, out[0].Similarity, 1e-12)
}

func TestReranker_PartialHalfKeyword(t *testing.T) {
	// Given: only the front half of a long keyword appears in the content
	r := NewReranker(0, 0, 0)
	results := []store.SearchResult{contentResult(1, 0.5, "갑상선암 관련 특약")}

	// When
	out := r.Rerank(results, []string{"갑상선암진단비"})

	// Then: the half-match earns 0.5 at the partial weight, no front bonus
	want := 0.5 + DefaultPartialWeight*0.5
	require.Len(t, out, 1)
	assert.InDelta(t, want, out[0].Similarity, 1e-12)
}

func TestReranker_ShortKeywordGetsNoPartialCredit(t *testing.T) {
	// Given: a 3-rune keyword absent from the content
	r := NewReranker(0, 0, 0)
	results := []store.SearchResult{contentResult(1, 0.5, "입원 기간에 따른 급여")}

	out := r.Rerank(results, []string{"진단비"})

	require.Len(t, out, 1)
	assert.InDelta(t, 0.5, out[0].Similarity, 1e-12)
}

func TestReranker_FrontWindowBoundary(t *testing.T) {
	// Given: the keyword sits past the 200-rune front window
	r := NewReranker(0, 0, 0)
	content := strings.Repeat("가", 200) + " 면책기간"
	results := []store.SearchResult{contentResult(1, 0.5, content)}

	// When
	out := r.Rerank(results, []string{"면책기간"})

	// Then: exact credit applies but the front bonus does not
	want := 0.5 + DefaultExactWeight*1.0
	require.Len(t, out, 1)
	assert.InDelta(t, want, out[0].Similarity, 1e-12)
}

func TestReranker_NoKeywordsReturnsInputUnchanged(t *testing.T) {
	r := NewReranker(0, 0, 0)
	results := []store.SearchResult{contentResult(1, 0.9, "본문")}

	out := r.Rerank(results, nil)

	assert.Equal(t, results, out)
	assert.Zero(t, out[0].OriginalRank)
}

func TestReranker_CaseInsensitive(t *testing.T) {
	r := NewReranker(0, 0, 0)
	results := []store.SearchResult{contentResult(1, 0.5, "CI보험금 지급 기준")}

	out := r.Rerank(results, []string{"ci보험금"})

	want := 0.5 + DefaultExactWeight*1.0 + DefaultFrontWeight*1.0
	require.Len(t, out, 1)
	assert.InDelta(t, want, out[0].Similarity, 1e-12)
}
