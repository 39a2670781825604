package judge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yakgwan-ai/yakgwan/internal/llm"
	"github.com/yakgwan-ai/yakgwan/internal/store"
)

// scriptedClient returns canned completions in order.
type scriptedClient struct {
	responses []string
	err       error
	calls     int
}

func (s *scriptedClient) Complete(_ context.Context, _ llm.Request) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.responses) == 0 {
		return `{"is_sufficient": true, "missing_info": "", "expand_chunks": [], "explanation": ""}`, nil
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

func chunkResult(id int64, content string, tokens int) store.SearchResult {
	return store.SearchResult{
		Chunk: store.Chunk{ID: id, Content: content, TokenCount: tokens},
	}
}

func TestEvaluate_NoResultsIsSufficient(t *testing.T) {
	c := &scriptedClient{}
	j := NewJudge(c, "", nil)

	d := j.Evaluate(context.Background(), "질문", nil, nil, 0)

	assert.True(t, d.Sufficient)
	assert.Zero(t, c.calls, "no LLM call without results")
}

func TestEvaluate_ExpansionBudgetForcesSufficient(t *testing.T) {
	c := &scriptedClient{}
	j := NewJudge(c, "", nil)
	results := []store.SearchResult{chunkResult(1, "불완전한 내용이", 10)}

	d := j.Evaluate(context.Background(), "질문", results, nil, MaxExpansionCount)

	assert.True(t, d.Sufficient)
	assert.Empty(t, d.Expansions)
	assert.Zero(t, c.calls)
}

func TestEvaluate_TokenCeilingOnLaterPasses(t *testing.T) {
	// Given: a second pass with the context already past 10k tokens
	c := &scriptedClient{}
	j := NewJudge(c, "", nil)
	results := []store.SearchResult{chunkResult(1, "본문", 11000)}

	d := j.Evaluate(context.Background(), "질문", results, nil, 1)

	assert.True(t, d.Sufficient)
	assert.Zero(t, c.calls)

	// The same context on pass 0 is still judged normally
	d = j.Evaluate(context.Background(), "질문", results, nil, 0)
	assert.Equal(t, 1, c.calls)
	_ = d
}

func TestEvaluate_CompleteChunksAreSufficient(t *testing.T) {
	// Given: a complete chunk and a sufficient LLM verdict
	c := &scriptedClient{}
	j := NewJudge(c, "", nil)
	results := []store.SearchResult{
		chunkResult(1, "제15조 회사는 보험금을 지급한다.", 30),
	}

	d := j.Evaluate(context.Background(), "보험금 지급", results, []string{"보험금"}, 0)

	assert.True(t, d.Sufficient)
	assert.Empty(t, d.Expansions)
}

func TestEvaluate_IncompleteRelevantChunkExpands(t *testing.T) {
	// Given: a relevant chunk cut at the tail
	c := &scriptedClient{}
	j := NewJudge(c, "", nil)
	results := []store.SearchResult{
		chunkResult(7, "제15조 회사는 암 진단비를 진단 확정일에", 30),
	}

	d := j.Evaluate(context.Background(), "암 진단비", results, []string{"암", "진단비"}, 0)

	assert.False(t, d.Sufficient)
	require.Len(t, d.Expansions, 1)
	assert.Equal(t, int64(7), d.Expansions[0].ChunkID)
	assert.Equal(t, store.DirectionNext, d.Expansions[0].Direction)
	assert.NotEmpty(t, d.Expansions[0].Reasons)
}

func TestEvaluate_RelevanceGateSuppressesExpansion(t *testing.T) {
	// Given: an incomplete chunk sharing no keywords with the query
	c := &scriptedClient{}
	j := NewJudge(c, "", nil)
	results := []store.SearchResult{
		chunkResult(8, "제30조 대출 이율과 상환 방식은 다음과", 30),
	}

	d := j.Evaluate(context.Background(), "암 진단비", results, []string{"암", "진단비", "악성신생물"}, 0)

	assert.True(t, d.Sufficient)
	assert.Empty(t, d.Expansions)
}

func TestEvaluate_BothDirectionRefinedToNext(t *testing.T) {
	// Given: a chunk broken at both ends that still matches the keywords
	c := &scriptedClient{}
	j := NewJudge(c, "", nil)
	results := []store.SearchResult{
		chunkResult(9, "를 포함한다. 암 진단비는 진단 확정일에 지급하되 면책기간이", 30),
	}

	d := j.Evaluate(context.Background(), "암 진단비", results, []string{"암", "진단비"}, 0)

	require.Len(t, d.Expansions, 1)
	assert.Equal(t, store.DirectionNext, d.Expansions[0].Direction)
}

func TestEvaluate_AlreadyExpandedChunksSkipped(t *testing.T) {
	c := &scriptedClient{}
	j := NewJudge(c, "", nil)
	r := chunkResult(10, "제15조 회사는 암 진단비를 진단 확정일에", 30)
	r.Expanded = true
	r.IncludedChunks = []int64{10, 11}

	d := j.Evaluate(context.Background(), "암 진단비", []store.SearchResult{r}, []string{"암", "진단비"}, 0)

	assert.True(t, d.Sufficient)
	assert.Empty(t, d.Expansions)
}

func TestEvaluate_LLMProposalsUnionedBidirectional(t *testing.T) {
	// Given: complete chunks but an insufficient LLM verdict naming chunk 2
	c := &scriptedClient{responses: []string{
		`{"is_sufficient": false, "missing_info": "지급 한도", "expand_chunks": [2], "explanation": "한도 조항 누락"}`,
	}}
	j := NewJudge(c, "", nil)
	results := []store.SearchResult{
		chunkResult(21, "제15조 회사는 암 진단비를 지급한다.", 30),
		chunkResult(22, "제16조 지급 한도는 별표에 따른다.", 30),
	}

	d := j.Evaluate(context.Background(), "암 진단비 한도", results, []string{"암", "진단비", "한도"}, 0)

	assert.False(t, d.Sufficient)
	require.Len(t, d.Expansions, 1)
	assert.Equal(t, int64(22), d.Expansions[0].ChunkID)
	assert.Equal(t, store.DirectionBoth, d.Expansions[0].Direction)
}

func TestEvaluate_LaterPassUsesLLMOnlySingleChunkNext(t *testing.T) {
	// Given: pass 1 with the LLM naming two chunks
	c := &scriptedClient{responses: []string{
		`{"is_sufficient": false, "missing_info": "", "expand_chunks": [1, 2], "explanation": ""}`,
	}}
	j := NewJudge(c, "", nil)
	results := []store.SearchResult{
		chunkResult(31, "앞부분이 잘린 를 포함한 내용", 30),
		chunkResult(32, "또 다른 내용", 30),
	}

	d := j.Evaluate(context.Background(), "질문", results, []string{"내용"}, 1)

	// Then: one expansion at most, direction forced forward
	assert.False(t, d.Sufficient)
	require.Len(t, d.Expansions, 1)
	assert.Equal(t, int64(31), d.Expansions[0].ChunkID)
	assert.Equal(t, store.DirectionNext, d.Expansions[0].Direction)
}

func TestEvaluate_MalformedLLMResponseDefaultsSufficient(t *testing.T) {
	c := &scriptedClient{responses: []string{"판단할 수 없습니다"}}
	j := NewJudge(c, "", nil)
	results := []store.SearchResult{
		chunkResult(41, "제15조 회사는 보험금을 지급한다.", 30),
	}

	d := j.Evaluate(context.Background(), "보험금", results, []string{"보험금"}, 0)

	assert.True(t, d.Sufficient)
	require.NotNil(t, d.LLMCheck)
	assert.True(t, d.LLMCheck.IsSufficient)
}

func TestEvaluate_LLMErrorDefaultsSufficient(t *testing.T) {
	c := &scriptedClient{err: errors.New("upstream unavailable")}
	j := NewJudge(c, "", nil)
	results := []store.SearchResult{
		chunkResult(51, "제15조 회사는 보험금을 지급한다.", 30),
	}

	d := j.Evaluate(context.Background(), "보험금", results, []string{"보험금"}, 0)

	assert.True(t, d.Sufficient)
}

func TestEvaluate_OutOfRangeIndicesDropped(t *testing.T) {
	c := &scriptedClient{responses: []string{
		`{"is_sufficient": false, "missing_info": "", "expand_chunks": [0, 5], "explanation": ""}`,
	}}
	j := NewJudge(c, "", nil)
	results := []store.SearchResult{
		chunkResult(61, "제15조 회사는 보험금을 지급한다.", 30),
	}

	d := j.Evaluate(context.Background(), "보험금", results, []string{"보험금"}, 1)

	// Then: nothing valid to expand forces a sufficient verdict
	assert.True(t, d.Sufficient)
	assert.Empty(t, d.Expansions)
}
