// Package judge decides whether retrieved context suffices to answer a
// query, and which chunks to expand when it does not.
//
// The decision is bounded: at most MaxExpansionCount passes, structural
// analysis on the first pass only, and a token ceiling on later passes.
// The judge can therefore never loop the graph indefinitely.
package judge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yakgwan-ai/yakgwan/internal/expand"
	"github.com/yakgwan-ai/yakgwan/internal/llm"
	"github.com/yakgwan-ai/yakgwan/internal/store"
	"github.com/yakgwan-ai/yakgwan/internal/structure"
	"github.com/yakgwan-ai/yakgwan/internal/token"
)

// Loop bounds.
const (
	// MaxExpansionCount caps judge/expand round trips per request.
	MaxExpansionCount = 3

	// LaterPassTokenCeiling forces sufficiency on passes after the first
	// once the context has grown past this size.
	LaterPassTokenCeiling = 10000

	// RelevanceThreshold is the fraction of expanded terms a chunk must
	// contain literally before structural incompleteness justifies
	// expansion.
	RelevanceThreshold = 0.3
)

// Decision is the judge's verdict for one pass.
type Decision struct {
	Sufficient    bool
	Expansions    []expand.Request
	Reason        string
	CurrentTokens int
	LLMCheck      *SufficiencyCheck
}

// SufficiencyCheck is the model's view of context adequacy.
type SufficiencyCheck struct {
	IsSufficient bool   `json:"is_sufficient"`
	MissingInfo  string `json:"missing_info"`
	ExpandChunks []int  `json:"expand_chunks"`
	Explanation  string `json:"explanation"`
}

// Judge evaluates context sufficiency.
type Judge struct {
	client    llm.Client
	analyzer  *structure.Analyzer
	counter   *token.Counter
	model     string
	threshold float64
	logger    *slog.Logger
}

// NewJudge wires the LLM client and structure analyzer. Model may be
// empty to use the client default.
func NewJudge(client llm.Client, model string, logger *slog.Logger) *Judge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Judge{
		client:    client,
		analyzer:  structure.NewAnalyzer(logger),
		counter:   token.NewCounter(),
		model:     model,
		threshold: RelevanceThreshold,
		logger:    logger,
	}
}

// Evaluate runs one judgement pass.
//
// Pass 0 combines structural completeness (gated by keyword relevance)
// with the LLM sufficiency check. Passes 1 and later trust the LLM alone
// and expand at most one chunk. An exhausted pass budget or an oversized
// context forces sufficiency.
func (j *Judge) Evaluate(ctx context.Context, query string, results []store.SearchResult, expandedTerms []string, expansionCount int) Decision {
	if len(results) == 0 {
		return Decision{Sufficient: true, Reason: "no search results"}
	}

	if expansionCount >= MaxExpansionCount {
		j.logger.Info("expansion budget exhausted", "expansion_count", expansionCount)
		return Decision{Sufficient: true, Reason: "max expansions reached"}
	}

	currentTokens := 0
	for _, r := range results {
		currentTokens += j.counter.ForChunk(r.TokenCount, r.Content)
	}

	if expansionCount >= 1 && currentTokens > LaterPassTokenCeiling {
		j.logger.Warn("context over token ceiling, stopping expansion",
			"current_tokens", currentTokens)
		return Decision{Sufficient: true, Reason: "token ceiling reached", CurrentTokens: currentTokens}
	}

	if len(expandedTerms) == 0 {
		// Fallback when preprocessing produced nothing usable
		for _, w := range strings.Fields(query) {
			if len([]rune(w)) >= 2 {
				expandedTerms = append(expandedTerms, w)
			}
		}
	}

	check := j.sufficiencyCheck(ctx, query, results)

	// Later passes: LLM only, one chunk, forward.
	if expansionCount >= 1 {
		d := Decision{
			Sufficient:    check.IsSufficient,
			Reason:        "llm-only pass",
			CurrentTokens: currentTokens,
			LLMCheck:      &check,
		}
		if !check.IsSufficient {
			for _, id := range j.resolveIndices(results, check.ExpandChunks) {
				d.Expansions = append(d.Expansions, expand.Request{
					ChunkID:   id,
					Direction: store.DirectionNext,
					Reasons:   []string{"llm sufficiency check"},
				})
				break
			}
		}
		d.Sufficient = len(d.Expansions) == 0
		return d
	}

	// First pass: structural check per result.
	var requests []expand.Request
	for _, r := range results {
		if r.Expanded {
			j.logger.Debug("chunk already expanded, skipping", "chunk_id", r.ID)
			continue
		}

		comp := j.analyzer.CheckCompleteness(r.Content)
		if comp.IsComplete {
			continue
		}

		if !j.relevant(expandedTerms, r.Content) {
			j.logger.Info("chunk incomplete but not relevant, skipping",
				"chunk_id", r.ID, "reasons", strings.Join(comp.Reasons, "; "))
			continue
		}

		dir := refineDirection(comp)
		requests = append(requests, expand.Request{
			ChunkID:   r.ID,
			Direction: dir,
			Reasons:   comp.Reasons,
		})
		j.logger.Info("chunk needs expansion",
			"chunk_id", r.ID,
			"direction", string(dir),
			"reasons", strings.Join(comp.Reasons, "; "))
	}

	// Union in the LLM's proposals, bidirectional.
	for _, id := range j.resolveIndices(results, check.ExpandChunks) {
		if containsChunk(requests, id) {
			continue
		}
		requests = append(requests, expand.Request{
			ChunkID:   id,
			Direction: store.DirectionBoth,
			Reasons:   []string{"llm sufficiency check"},
		})
	}

	sufficient := len(requests) == 0 && check.IsSufficient
	return Decision{
		Sufficient:    sufficient,
		Expansions:    requests,
		Reason:        "first pass",
		CurrentTokens: currentTokens,
		LLMCheck:      &check,
	}
}

// relevant applies the literal-keyword gate: the chunk must contain at
// least the threshold fraction of expanded terms.
func (j *Judge) relevant(terms []string, content string) bool {
	if len(terms) == 0 {
		return true
	}
	lower := strings.ToLower(content)
	matched := 0
	for _, t := range terms {
		if strings.Contains(lower, strings.ToLower(t)) {
			matched++
		}
	}
	return float64(matched)/float64(len(terms)) >= j.threshold
}

// refineDirection narrows a bidirectional verdict using the issue lists.
// When both ends look broken, forward wins: the keyword-bearing content
// usually sits in the tail behind an unrelated prefix.
func refineDirection(c structure.Completeness) store.Direction {
	if c.Direction != store.DirectionBoth {
		return c.Direction
	}
	switch {
	case len(c.FrontIssues) > 0 && len(c.BackIssues) == 0:
		return store.DirectionPrev
	default:
		return store.DirectionNext
	}
}

const sufficiencySystemPrompt = "당신은 문서 컨텍스트의 충분성을 판단하는 전문가입니다. " +
	"반드시 JSON 객체 하나로만 답변하세요."

// sufficiencyCheck asks the model whether the context answers the query.
// Any API or parse failure defaults to sufficient so the loop always
// terminates.
func (j *Judge) sufficiencyCheck(ctx context.Context, query string, results []store.SearchResult) SufficiencyCheck {
	var sb strings.Builder
	for i, r := range results {
		fmt.Fprintf(&sb, "[청크 %d (ID: %d)]:\n%s\n\n", i+1, r.ID, r.Content)
	}

	user := fmt.Sprintf(`다음 질문에 답변하기 위해 제공된 컨텍스트가 충분한지 판단해주세요.

질문: %s

컨텍스트:
%s
다음 JSON 형식으로만 답변하세요:
{"is_sufficient": true/false, "missing_info": "무엇이 필요한지, 충분하면 빈 문자열", "expand_chunks": [확장이 필요한 청크 번호들], "explanation": "판단 이유"}

중요: 청크의 내용이 잘려서 문맥이 불완전한 경우 is_sufficient를 false로 판단하세요.`, query, sb.String())

	resp, err := j.client.Complete(ctx, llm.Request{
		Model:       j.model,
		System:      sufficiencySystemPrompt,
		User:        user,
		Temperature: 0.1,
		MaxTokens:   500,
	})
	if err != nil {
		j.logger.Error("sufficiency check failed, defaulting to sufficient", "error", err)
		return SufficiencyCheck{IsSufficient: true, MissingInfo: "판단 불가"}
	}

	var check SufficiencyCheck
	if !llm.DecodeObject(resp, &check) {
		j.logger.Warn("sufficiency response unparseable, defaulting to sufficient",
			"response", truncate(resp, 200))
		return SufficiencyCheck{IsSufficient: true, MissingInfo: "판단 불가"}
	}

	j.logger.Info("sufficiency check",
		"sufficient", check.IsSufficient,
		"expand_chunks", len(check.ExpandChunks))
	return check
}

// resolveIndices maps 1-based chunk indices from the model back to chunk
// ids, dropping out-of-range values.
func (j *Judge) resolveIndices(results []store.SearchResult, indices []int) []int64 {
	var ids []int64
	for _, idx := range indices {
		if idx >= 1 && idx <= len(results) {
			ids = append(ids, results[idx-1].ID)
		}
	}
	return ids
}

func containsChunk(requests []expand.Request, id int64) bool {
	for _, r := range requests {
		if r.ChunkID == id {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
