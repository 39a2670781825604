// Package agent threads a request through the retrieval graph: intent
// routing, hybrid search, the judgement-expansion cycle, and answering.
package agent

import (
	"github.com/google/uuid"

	"github.com/yakgwan-ai/yakgwan/internal/answer"
	"github.com/yakgwan-ai/yakgwan/internal/expand"
	"github.com/yakgwan-ai/yakgwan/internal/store"
)

// TaskType identifies the handling pipeline for one request.
type TaskType string

const (
	TaskSearch TaskType = "search"
	TaskUpload TaskType = "upload"
	TaskManage TaskType = "manage"
)

// State carries one request through the graph. It is created at request
// arrival, mutated only by the node currently executing, and discarded at
// end of request. TaskResults grows monotonically: nodes add summaries
// under their own key and never clobber earlier entries.
type State struct {
	RequestID string   `json:"request_id"`
	Query     string   `json:"query"`
	TaskType  TaskType `json:"task_type"`

	SearchResults []store.SearchResult `json:"search_results,omitempty"`
	ExpandedTerms []string             `json:"expanded_terms,omitempty"`
	Suggestions   []string             `json:"suggestions,omitempty"`

	// ContextSufficient is nil until the judge has run, then carries its
	// verdict. JSON renders the unjudged state as null.
	ContextSufficient *bool            `json:"context_sufficient"`
	ExpansionCount    int              `json:"expansion_count"`
	ChunksToExpand    []expand.Request `json:"chunks_to_expand,omitempty"`

	FinalAnswer string         `json:"final_answer"`
	Validation  *answer.Report `json:"validation,omitempty"`
	Error       string         `json:"error,omitempty"`

	TaskResults map[string]map[string]any `json:"task_results"`

	// searchErr propagates a retrieval failure into the answer node,
	// which turns it into an apology instead of an empty-result reply.
	searchErr error
}

// NewState builds the initial state for a request. An empty taskType
// defers intent classification to the router.
func NewState(query string, taskType TaskType) *State {
	return &State{
		RequestID:   uuid.NewString(),
		Query:       query,
		TaskType:    taskType,
		TaskResults: make(map[string]map[string]any),
	}
}

// MergeTaskResult records a node's summary. Keys already present under
// the node's entry are kept, so earlier writers always win.
func (s *State) MergeTaskResult(node string, values map[string]any) {
	entry, ok := s.TaskResults[node]
	if !ok {
		entry = make(map[string]any, len(values))
		s.TaskResults[node] = entry
	}
	for k, v := range values {
		if _, exists := entry[k]; !exists {
			entry[k] = v
		}
	}
}
