package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yakgwan-ai/yakgwan/internal/answer"
	"github.com/yakgwan-ai/yakgwan/internal/expand"
	"github.com/yakgwan-ai/yakgwan/internal/judge"
	"github.com/yakgwan-ai/yakgwan/internal/query"
	"github.com/yakgwan-ai/yakgwan/internal/search"
	"github.com/yakgwan-ai/yakgwan/internal/store"
)

// Node identifies a position in the request graph.
type Node int

const (
	NodeRouter Node = iota
	NodeSearch
	NodeJudge
	NodeExpand
	NodeAnswer
	NodeUpload
	NodeManage
	NodeEnd
)

func (n Node) String() string {
	switch n {
	case NodeRouter:
		return "router"
	case NodeSearch:
		return "search"
	case NodeJudge:
		return "context_judgement"
	case NodeExpand:
		return "chunk_expansion"
	case NodeAnswer:
		return "answer"
	case NodeUpload:
		return "upload"
	case NodeManage:
		return "management"
	case NodeEnd:
		return "end"
	}
	return fmt.Sprintf("node(%d)", int(n))
}

// DefaultSearchLimit is the result count requested from hybrid search.
const DefaultSearchLimit = 5

// Graph wires the retrieval pipeline into a bounded node walk:
//
//	router → search → judge ⇄ expand → answer
//
// Upload and management intents terminate immediately; this build serves
// retrieval only.
type Graph struct {
	router       *Router
	preprocessor *query.Preprocessor
	searcher     *search.HybridSearcher
	reranker     *search.Reranker
	judge        *judge.Judge
	expander     *expand.Expander
	answerer     *answer.Answerer
	limit        int
	logger       *slog.Logger
}

// NewGraph wires the pipeline stages. limit <= 0 selects the default.
func NewGraph(
	router *Router,
	preprocessor *query.Preprocessor,
	searcher *search.HybridSearcher,
	reranker *search.Reranker,
	j *judge.Judge,
	expander *expand.Expander,
	answerer *answer.Answerer,
	limit int,
	logger *slog.Logger,
) *Graph {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{
		router:       router,
		preprocessor: preprocessor,
		searcher:     searcher,
		reranker:     reranker,
		judge:        j,
		expander:     expander,
		answerer:     answerer,
		limit:        limit,
		logger:       logger,
	}
}

// Run walks the graph for one request and always returns a final state.
// Panics anywhere in the walk are converted into an error state so the
// caller gets a presentable answer on every path.
func (g *Graph) Run(ctx context.Context, q string, taskType TaskType) (st *State) {
	st = NewState(q, taskType)

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("graph execution panicked", "request_id", st.RequestID, "panic", r)
			st.Error = fmt.Sprintf("%v", r)
			st.FinalAnswer = fmt.Sprintf("시스템 오류가 발생했습니다: %v", r)
			st.MergeTaskResult("system", map[string]any{
				"success": false,
				"error":   st.Error,
			})
		}
	}()

	g.logger.Info("graph run started", "request_id", st.RequestID, "query", truncateQuery(q))

	node := NodeRouter
	for node != NodeEnd {
		g.logger.Debug("entering node", "request_id", st.RequestID, "node", node.String())

		switch node {
		case NodeRouter:
			node = g.routeNode(st)
		case NodeSearch:
			node = g.searchNode(ctx, st)
		case NodeJudge:
			node = g.judgeNode(ctx, st)
		case NodeExpand:
			node = g.expandNode(ctx, st)
		case NodeAnswer:
			node = g.answerNode(ctx, st)
		case NodeUpload:
			node = g.unsupportedNode(st, "upload",
				"죄송합니다. 문서 업로드는 이 인터페이스에서 지원되지 않습니다.")
		case NodeManage:
			node = g.unsupportedNode(st, "management",
				"죄송합니다. 문서 관리 기능은 이 인터페이스에서 지원되지 않습니다.")
		default:
			node = NodeEnd
		}
	}

	g.logger.Info("graph run finished",
		"request_id", st.RequestID,
		"task_type", st.TaskType,
		"expansions", st.ExpansionCount,
		"error", st.Error)

	return st
}

func (g *Graph) routeNode(st *State) Node {
	st.TaskType = g.router.Route(st)
	switch st.TaskType {
	case TaskUpload:
		return NodeUpload
	case TaskManage:
		return NodeManage
	default:
		return NodeSearch
	}
}

// searchNode preprocesses the query and runs hybrid retrieval. Incomplete
// queries skip retrieval entirely and answer with the dictionary's
// suggestions. A detected clause number becomes an equality filter, which
// also relaxes the vector threshold inside the searcher.
func (g *Graph) searchNode(ctx context.Context, st *State) Node {
	if strings.TrimSpace(st.Query) == "" {
		st.searchErr = fmt.Errorf("검색 쿼리가 비어있습니다")
		return NodeAnswer
	}

	pre := g.preprocessor.Preprocess(st.Query)
	st.ExpandedTerms = pre.ExpandedTerms

	if !pre.IsComplete {
		g.logger.Info("incomplete query, answering with suggestions",
			"request_id", st.RequestID, "suggestions", pre.Suggestions)
		st.Suggestions = pre.Suggestions
		st.FinalAnswer = incompleteQueryAnswer(pre.Suggestions)
		st.MergeTaskResult("search", map[string]any{
			"success":          false,
			"incomplete_query": true,
			"suggestions":      pre.Suggestions,
		})
		return NodeEnd
	}

	res := g.searcher.Search(ctx, pre.Standardized, search.Options{
		Limit:   g.limit,
		Filters: store.SearchFilters{ClauseNumber: pre.ClauseNumber},
	})

	results := res.Results
	if len(results) > 1 {
		results = g.reranker.Rerank(results, pre.ExpandedTerms)
	}
	st.SearchResults = results

	st.MergeTaskResult("search", map[string]any{
		"success":      true,
		"count":        len(results),
		"query":        st.Query,
		"total_tokens": res.TotalTokens,
		"search_type":  "hybrid",
		"preprocessing": map[string]any{
			"original_query":     pre.Original,
			"standardized_query": pre.Standardized,
			"clause_number":      pre.ClauseNumber,
			"expanded_terms":     pre.ExpandedTerms,
		},
	})

	return NodeJudge
}

// judgeNode evaluates context completeness and either proceeds to
// answering or schedules expansions. The judge caps the cycle via its
// pass budget, so the walk always terminates.
func (g *Graph) judgeNode(ctx context.Context, st *State) Node {
	d := g.judge.Evaluate(ctx, st.Query, st.SearchResults, st.ExpandedTerms, st.ExpansionCount)
	st.ContextSufficient = &d.Sufficient
	st.ChunksToExpand = d.Expansions

	if d.Sufficient || len(d.Expansions) == 0 {
		return NodeAnswer
	}
	return NodeExpand
}

func (g *Graph) expandNode(ctx context.Context, st *State) Node {
	st.SearchResults = g.expander.Expand(ctx, st.SearchResults, st.ChunksToExpand)
	st.ExpansionCount++
	st.ChunksToExpand = nil
	return NodeJudge
}

func (g *Graph) answerNode(ctx context.Context, st *State) Node {
	resp := g.answerer.Answer(ctx, st.Query, st.SearchResults, st.searchErr)
	st.FinalAnswer = resp.Answer
	st.Validation = resp.Validation

	summary := map[string]any{
		"success":    !resp.Failed,
		"no_results": resp.NoResults,
	}
	if resp.Validation != nil {
		summary["confidence"] = resp.Validation.ConfidenceScore
		summary["regenerations"] = resp.Validation.RegenerationCount
	}
	if resp.Failed {
		st.Error = resp.Answer
		summary["error"] = resp.Answer
	}
	st.MergeTaskResult("answer", summary)

	return NodeEnd
}

func (g *Graph) unsupportedNode(st *State, name, message string) Node {
	g.logger.Info("unsupported task type requested",
		"request_id", st.RequestID, "task_type", st.TaskType)
	st.FinalAnswer = message
	st.MergeTaskResult(name, map[string]any{
		"success":     false,
		"unsupported": true,
	})
	return NodeEnd
}

func incompleteQueryAnswer(suggestions []string) string {
	var b strings.Builder
	b.WriteString("질문이 조금 더 구체적이면 정확한 답변을 드릴 수 있습니다.\n\n")
	for _, s := range suggestions {
		b.WriteString("- ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncateQuery(q string) string {
	runes := []rune(q)
	if len(runes) <= 50 {
		return q
	}
	return string(runes[:50]) + "..."
}
