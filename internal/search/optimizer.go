package search

import (
	"github.com/yakgwan-ai/yakgwan/internal/store"
	"github.com/yakgwan-ai/yakgwan/internal/token"
)

// DefaultContextTokenBudget caps the total context handed to answering.
const DefaultContextTokenBudget = 20000

// ContextOptimizer greedily fills a token budget, preserving the input
// ordering. It stops at the first result that would overflow; results are
// never re-sorted.
type ContextOptimizer struct {
	counter   *token.Counter
	maxTokens int
}

// NewContextOptimizer creates an optimizer with the given budget
// (0 uses the default).
func NewContextOptimizer(counter *token.Counter, maxTokens int) *ContextOptimizer {
	if counter == nil {
		counter = token.NewCounter()
	}
	if maxTokens <= 0 {
		maxTokens = DefaultContextTokenBudget
	}
	return &ContextOptimizer{counter: counter, maxTokens: maxTokens}
}

// Optimize returns the prefix of results that fits the budget, plus the
// running token total. Idempotent for a given input and budget.
func (o *ContextOptimizer) Optimize(results []store.SearchResult) ([]store.SearchResult, int) {
	var included []store.SearchResult
	total := 0

	for _, r := range results {
		tokens := o.counter.ForChunk(r.TokenCount, r.Content)
		if total+tokens > o.maxTokens {
			break
		}
		total += tokens
		included = append(included, r)
	}

	return included, total
}

// MaxTokens exposes the configured budget.
func (o *ContextOptimizer) MaxTokens() int { return o.maxTokens }
