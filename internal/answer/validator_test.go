package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yakgwan-ai/yakgwan/internal/llm"
	"github.com/yakgwan-ai/yakgwan/internal/store"
)

// fakeClient returns a fixed completion.
type fakeClient struct {
	response string
	err      error
	calls    int
	lastReq  llm.Request
}

func (f *fakeClient) Complete(_ context.Context, req llm.Request) (string, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

const groundedVerdict = `{"grounded": true, "score": 0.9, "reason": "근거 있음"}`

func wellFormedAnswer() string {
	return "**📌 답변**\n암 진단비는 제15조에 따라 3,000만원이 지급됩니다 [참조 1].\n\n" +
		"**📋 관련 약관**\n- [참조 1] 제15조: 암 진단비 지급"
}

func sourceResults() []store.SearchResult {
	return []store.SearchResult{
		{Chunk: store.Chunk{
			ID:           1,
			Content:      "제15조 암 진단비는 진단 확정시 3,000만원이 지급됩니다",
			ClauseNumber: "제15조",
		}},
	}
}

func seededStore(clauses ...string) *store.MemoryStore {
	st := store.NewMemoryStore()
	for i, cl := range clauses {
		st.Add(store.Chunk{ID: int64(i + 1), DocumentID: 1, ChunkIndex: i, Content: "본문", ClauseNumber: cl}, nil)
	}
	return st
}

func TestValidate_ReliableAnswer(t *testing.T) {
	// Given: a well-formed grounded answer citing an existing clause
	c := &fakeClient{response: groundedVerdict}
	v := NewValidator(c, "gpt-4o-mini", seededStore("제15조"), nil)

	// When
	report := v.Validate(context.Background(), wellFormedAnswer(), sourceResults())

	// Then: every axis passes and the weighted score clears 0.7
	assert.True(t, report.Format.Passed)
	assert.True(t, report.ClauseExistence.Passed)
	assert.Equal(t, 1.0, report.ClauseExistence.Score)
	assert.True(t, report.Hallucination.Passed)
	assert.True(t, report.IsReliable)
	assert.GreaterOrEqual(t, report.ConfidenceScore, 0.7)
	assert.LessOrEqual(t, report.ConfidenceScore, 1.0)
}

func TestValidate_FormatCheck(t *testing.T) {
	c := &fakeClient{response: groundedVerdict}
	v := NewValidator(c, "", nil, nil)

	tests := []struct {
		name      string
		answer    string
		wantScore float64
		wantPass  bool
	}{
		{
			name:      "both sections and reference",
			answer:    wellFormedAnswer(),
			wantScore: 1.0,
			wantPass:  true,
		},
		{
			name:      "sections without reference token",
			answer:    "**📌 답변**\n내용\n\n**📋 관련 약관**\n- 내용",
			wantScore: 0.5,
			wantPass:  false,
		},
		{
			name:      "unstructured prose",
			answer:    "암 진단비는 3000만원입니다.",
			wantScore: 0.0,
			wantPass:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check, _ := v.checkFormat(tt.answer, sourceResults())
			assert.Equal(t, tt.wantScore, check.Score)
			assert.Equal(t, tt.wantPass, check.Passed)
		})
	}
}

func TestValidate_FormatWarnsWhenClausesUncited(t *testing.T) {
	c := &fakeClient{response: groundedVerdict}
	v := NewValidator(c, "", nil, nil)

	// Given: sources carry 제15조 but the answer cites no clause
	answer := "**📌 답변**\n지급됩니다 [참조 1].\n\n**📋 관련 약관**\n- [참조 1] 내용"
	_, warnings := v.checkFormat(answer, sourceResults())

	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[len(warnings)-1], "clause")
}

func TestValidate_ContextMatchFailsOnForeignKeywords(t *testing.T) {
	c := &fakeClient{response: groundedVerdict}
	v := NewValidator(c, "", nil, nil)

	// Given: an answer about something absent from the sources
	check := v.checkContextMatch("자동차보험 할인 특약은 운전경력에 따라 적용됩니다", sourceResults())

	assert.False(t, check.Passed)
	assert.Less(t, check.Score, 0.7)
}

func TestValidate_ContextMatchNoSources(t *testing.T) {
	c := &fakeClient{response: groundedVerdict}
	v := NewValidator(c, "", nil, nil)

	check := v.checkContextMatch("암 진단비 지급", nil)

	assert.False(t, check.Passed)
	assert.Zero(t, check.Score)
}

func TestValidate_ClauseExistence(t *testing.T) {
	c := &fakeClient{response: groundedVerdict}

	t.Run("fabricated clause scores low", func(t *testing.T) {
		v := NewValidator(c, "", seededStore("제15조"), nil)
		check, warning := v.checkClauseExistence(context.Background(), "제15조와 제99조에 따릅니다")

		assert.False(t, check.Passed)
		assert.InDelta(t, 0.5, check.Score, 1e-9)
		assert.Contains(t, check.Details, "제99조")
		assert.Empty(t, warning)
	})

	t.Run("no clauses is n/a", func(t *testing.T) {
		v := NewValidator(c, "", seededStore(), nil)
		check, warning := v.checkClauseExistence(context.Background(), "조항 언급이 없는 답변입니다")

		assert.True(t, check.Passed)
		assert.Equal(t, 1.0, check.Score)
		assert.Empty(t, warning)
	})

	t.Run("nil store degrades to neutral with warning", func(t *testing.T) {
		v := NewValidator(c, "", nil, nil)
		check, warning := v.checkClauseExistence(context.Background(), "제15조에 따릅니다")

		assert.True(t, check.Passed)
		assert.InDelta(t, 0.5, check.Score, 1e-9)
		assert.Contains(t, warning, "store unavailable")
	})

	t.Run("spaced citation normalized", func(t *testing.T) {
		v := NewValidator(c, "", seededStore("제15조"), nil)
		check, warning := v.checkClauseExistence(context.Background(), "제 15 조에 따릅니다")

		assert.True(t, check.Passed)
		assert.Equal(t, 1.0, check.Score)
		assert.Empty(t, warning)
	})
}

func TestValidate_ReportWarnsWhenClausesUnverifiable(t *testing.T) {
	// Given: a clause-citing answer but no store to verify against
	c := &fakeClient{response: groundedVerdict}
	v := NewValidator(c, "", nil, nil)

	report := v.Validate(context.Background(), wellFormedAnswer(), sourceResults())

	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[len(report.Warnings)-1], "store unavailable")
}

func TestValidate_HallucinationNeutralOnFailure(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		c := &fakeClient{err: errors.New("rate limited")}
		v := NewValidator(c, "", nil, nil)

		check := v.checkHallucination(context.Background(), "답변", sourceResults())

		assert.True(t, check.Passed)
		assert.InDelta(t, 0.5, check.Score, 1e-9)
	})

	t.Run("malformed verdict", func(t *testing.T) {
		c := &fakeClient{response: "근거가 있는 것 같습니다"}
		v := NewValidator(c, "", nil, nil)

		check := v.checkHallucination(context.Background(), "답변", sourceResults())

		assert.True(t, check.Passed)
		assert.InDelta(t, 0.5, check.Score, 1e-9)
	})

	t.Run("fenced verdict parsed", func(t *testing.T) {
		c := &fakeClient{response: "```json\n{\"grounded\": false, \"score\": 0.2, \"reason\": \"근거 없음\"}\n```"}
		v := NewValidator(c, "", nil, nil)

		check := v.checkHallucination(context.Background(), "답변", sourceResults())

		assert.False(t, check.Passed)
		assert.InDelta(t, 0.2, check.Score, 1e-9)
	})
}

func TestValidate_WeightsSumToOne(t *testing.T) {
	sum := WeightHallucination + WeightContext + WeightClause + WeightFormat
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestValidate_ConfidenceWithinBounds(t *testing.T) {
	// Given: every axis at its floor
	c := &fakeClient{response: `{"grounded": false, "score": 0.0, "reason": "전혀 근거 없음"}`}
	v := NewValidator(c, "", seededStore(), nil)

	report := v.Validate(context.Background(), "전혀 관련이 없고 구조도 없는 답변", nil)

	assert.GreaterOrEqual(t, report.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, report.ConfidenceScore, 1.0)
	assert.False(t, report.IsReliable)
}

func TestExtractClauseNumbers(t *testing.T) {
	clauses := extractClauseNumbers("제5조와 제 15 조, 그리고 다시 제5조에 따릅니다")
	assert.Equal(t, []string{"제15조", "제5조"}, clauses)
}
