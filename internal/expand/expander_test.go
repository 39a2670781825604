package expand

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yakgwan-ai/yakgwan/internal/store"
)

func seed(st *store.MemoryStore, id int64, index int, content string, tokens int) {
	st.Add(store.Chunk{
		ID:         id,
		DocumentID: 1,
		ChunkIndex: index,
		Content:    content,
		TokenCount: tokens,
	}, nil)
}

func pivotResult(id int64, index int, content string, tokens int) store.SearchResult {
	return store.SearchResult{
		Chunk: store.Chunk{
			ID:         id,
			DocumentID: 1,
			ChunkIndex: index,
			Content:    content,
			TokenCount: tokens,
		},
		Similarity: 0.9,
	}
}

func TestExpand_ForwardMergesAdjacentChunks(t *testing.T) {
	// Given: a pivot cut mid-sentence with two continuation chunks behind it
	st := store.NewMemoryStore()
	seed(st, 10, 0, "제28조 신청은 서면으로 한다.", 50)
	seed(st, 11, 1, "① 신청서에는 사유를 기재하여야", 50)
	seed(st, 12, 2, "하며, 증빙 서류를 첨부한다.", 50)
	seed(st, 13, 3, "제29조 보험금의 지급", 50)

	e := NewExpander(st, nil, 0, nil)
	results := []store.SearchResult{pivotResult(11, 1, "① 신청서에는 사유를 기재하여야", 50)}

	// When
	out := e.Expand(context.Background(), results, []Request{
		{ChunkID: 11, Direction: store.DirectionNext},
	})

	// Then: forward stops at the 제29조 header
	require.Len(t, out, 1)
	assert.True(t, out[0].Expanded)
	assert.Equal(t, []int64{11, 12}, out[0].IncludedChunks)
	assert.Contains(t, out[0].Content, "증빙 서류를 첨부한다")
	assert.NotContains(t, out[0].Content, "제29조")
	assert.False(t, out[0].Truncated)
	assert.Equal(t, 100, out[0].TokenCount)
}

func TestExpand_BothDirectionsIncludePivotInOrder(t *testing.T) {
	// Given: neighbors on both sides with no section boundaries
	st := store.NewMemoryStore()
	seed(st, 20, 0, "보장 개시일은 계약일로 한다.", 30)
	seed(st, 21, 1, "다만 암보장은 90일이 지난", 30)
	seed(st, 22, 2, "날의 다음날부터 개시한다.", 30)

	e := NewExpander(st, nil, 0, nil)
	results := []store.SearchResult{pivotResult(21, 1, "다만 암보장은 90일이 지난", 30)}

	// When
	out := e.Expand(context.Background(), results, []Request{
		{ChunkID: 21, Direction: store.DirectionBoth},
	})

	// Then: included ids ascend in chunk order around the pivot
	require.Len(t, out, 1)
	assert.Equal(t, []int64{20, 21, 22}, out[0].IncludedChunks)
	parts := strings.Split(out[0].Content, "\n\n")
	require.Len(t, parts, 3)
	assert.Equal(t, "보장 개시일은 계약일로 한다.", parts[0])
	assert.Equal(t, "다만 암보장은 90일이 지난", parts[1])
	assert.Equal(t, "날의 다음날부터 개시한다.", parts[2])
}

func TestExpand_WindowLimitsToTwoPerDirection(t *testing.T) {
	// Given: four continuation chunks behind the pivot
	st := store.NewMemoryStore()
	seed(st, 30, 0, "피보험자가 보험기간 중", 20)
	for i := 1; i <= 4; i++ {
		seed(st, 30+int64(i), i, "후속 내용이 계속 이어진다.", 20)
	}

	e := NewExpander(st, nil, 0, nil)
	results := []store.SearchResult{pivotResult(30, 0, "피보험자가 보험기간 중", 20)}

	out := e.Expand(context.Background(), results, []Request{
		{ChunkID: 30, Direction: store.DirectionNext},
	})

	require.Len(t, out, 1)
	assert.Equal(t, []int64{30, 31, 32}, out[0].IncludedChunks)
}

func TestExpand_BudgetStopsMergeAndMarksTruncated(t *testing.T) {
	// Given: a 100-token budget, a 60-token pivot, 60-token neighbors
	st := store.NewMemoryStore()
	seed(st, 40, 0, "보험금 청구 절차는 다음과", 60)
	seed(st, 41, 1, "같다. 청구서와 진단서를 제출한다.", 60)

	e := NewExpander(st, nil, 100, nil)
	results := []store.SearchResult{pivotResult(40, 0, "보험금 청구 절차는 다음과", 60)}

	out := e.Expand(context.Background(), results, []Request{
		{ChunkID: 40, Direction: store.DirectionNext},
	})

	require.Len(t, out, 1)
	assert.True(t, out[0].Truncated)
	assert.Equal(t, []int64{40}, out[0].IncludedChunks)
	assert.Equal(t, 60, out[0].TokenCount)
}

func TestExpand_TableContinuationIsNotBoundary(t *testing.T) {
	// Given: a pivot with a table and a continuation row behind it
	st := store.NewMemoryStore()
	seed(st, 50, 0, "보장 내용은 다음과 같다.\n| 구분 | 금액 |", 40)
	seed(st, 51, 1, "| 암진단 | 3000만원 |", 40)

	e := NewExpander(st, nil, 0, nil)
	results := []store.SearchResult{pivotResult(50, 0, "보장 내용은 다음과 같다.\n| 구분 | 금액 |", 40)}

	out := e.Expand(context.Background(), results, []Request{
		{ChunkID: 50, Direction: store.DirectionNext},
	})

	require.Len(t, out, 1)
	assert.Equal(t, []int64{50, 51}, out[0].IncludedChunks)
}

func TestExpand_NewTableIsBoundary(t *testing.T) {
	// Given: a plain-text pivot and a table chunk behind it
	st := store.NewMemoryStore()
	seed(st, 60, 0, "보험금은 약정한 금액을 지급한다.", 40)
	seed(st, 61, 1, "| 구분 | 금액 |", 40)

	e := NewExpander(st, nil, 0, nil)
	results := []store.SearchResult{pivotResult(60, 0, "보험금은 약정한 금액을 지급한다.", 40)}

	out := e.Expand(context.Background(), results, []Request{
		{ChunkID: 60, Direction: store.DirectionNext},
	})

	require.Len(t, out, 1)
	assert.Equal(t, []int64{60}, out[0].IncludedChunks)
	assert.True(t, out[0].Expanded)
}

func TestExpand_NonExpandedResultsPassThrough(t *testing.T) {
	st := store.NewMemoryStore()
	seed(st, 70, 0, "본문 내용", 10)

	e := NewExpander(st, nil, 0, nil)
	results := []store.SearchResult{
		pivotResult(70, 0, "본문 내용", 10),
		pivotResult(71, 1, "다른 본문", 10),
	}

	out := e.Expand(context.Background(), results, nil)

	require.Len(t, out, 2)
	assert.False(t, out[0].Expanded)
	assert.False(t, out[1].Expanded)
	assert.Equal(t, results[0].Content, out[0].Content)
}

func TestExpand_GlobalBudgetDropsTrailingResults(t *testing.T) {
	// Given: three pass-through results against a 100-token budget
	st := store.NewMemoryStore()

	e := NewExpander(st, nil, 100, nil)
	results := []store.SearchResult{
		pivotResult(80, 0, "첫번째", 60),
		pivotResult(81, 1, "두번째", 30),
		pivotResult(82, 2, "세번째", 30),
	}

	out := e.Expand(context.Background(), results, nil)

	require.Len(t, out, 2)
	assert.Equal(t, int64(80), out[0].ID)
	assert.Equal(t, int64(81), out[1].ID)
}

func TestExpand_MissingPivotKeepsOriginal(t *testing.T) {
	// Given: the pivot id is absent from the store
	st := store.NewMemoryStore()

	e := NewExpander(st, nil, 0, nil)
	results := []store.SearchResult{pivotResult(90, 0, "저장소에 없는 청크", 10)}

	out := e.Expand(context.Background(), results, []Request{
		{ChunkID: 90, Direction: store.DirectionBoth},
	})

	// Then: no neighbors found, the pivot survives alone as expanded
	require.Len(t, out, 1)
	assert.Equal(t, []int64{90}, out[0].IncludedChunks)
}
