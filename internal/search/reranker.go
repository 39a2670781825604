package search

import (
	"sort"
	"strings"

	"github.com/yakgwan-ai/yakgwan/internal/store"
)

// Rerank weight defaults. Exact keyword presence dominates; partial hits
// and front-of-chunk placement are tiebreakers.
const (
	DefaultExactWeight   = 0.3
	DefaultPartialWeight = 0.1
	DefaultFrontWeight   = 0.05

	// frontWindow is the rune width of the "front of chunk" region.
	frontWindow = 200

	// partialMinLen is the minimum keyword length eligible for
	// half-keyword partial matching.
	partialMinLen = 4
)

// Reranker re-scores results by literal keyword evidence, countering the
// lost-in-the-middle failure where semantically close but literally
// off-topic chunks outrank exact hits.
type Reranker struct {
	exactWeight   float64
	partialWeight float64
	frontWeight   float64
}

// NewReranker builds a reranker; zero weights select the defaults.
func NewReranker(exact, partial, front float64) *Reranker {
	if exact == 0 {
		exact = DefaultExactWeight
	}
	if partial == 0 {
		partial = DefaultPartialWeight
	}
	if front == 0 {
		front = DefaultFrontWeight
	}
	return &Reranker{exactWeight: exact, partialWeight: partial, frontWeight: front}
}

// Rerank orders results by
//
//	rerank = similarity + w_e·exact_ratio + w_p·partial_ratio + w_f·front_ratio
//
// descending. The pre-rerank rank (1-indexed) is preserved on each record.
// With no keywords the input is returned unchanged.
func (r *Reranker) Rerank(results []store.SearchResult, keywords []string) []store.SearchResult {
	if len(results) == 0 || len(keywords) == 0 {
		return results
	}

	type scored struct {
		result store.SearchResult
		score  float64
	}

	items := make([]scored, len(results))
	for i, res := range results {
		res.OriginalRank = i + 1
		items[i] = scored{
			result: res,
			score:  res.Similarity + r.keywordBonus(res.Content, keywords),
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].score > items[j].score
	})

	out := make([]store.SearchResult, len(items))
	for i, it := range items {
		it.result.Similarity = it.score
		out[i] = it.result
	}
	return out
}

// keywordBonus computes the weighted exact/partial/front evidence for one
// chunk's content.
func (r *Reranker) keywordBonus(content string, keywords []string) float64 {
	lower := strings.ToLower(content)

	frontRunes := []rune(lower)
	if len(frontRunes) > frontWindow {
		frontRunes = frontRunes[:frontWindow]
	}
	front := string(frontRunes)

	var exact, partial, frontHits float64
	for _, kw := range keywords {
		k := strings.ToLower(kw)
		if k == "" {
			continue
		}
		if strings.Contains(lower, k) {
			exact++
			if strings.Contains(front, k) {
				frontHits++
			}
			continue
		}
		// Half-keyword fallback for longer terms: "갑상선암진단비"
		// still earns credit when only "갑상선암" appears.
		if runes := []rune(k); len(runes) >= partialMinLen {
			half := string(runes[:len(runes)/2])
			if strings.Contains(lower, half) {
				partial += 0.5
			}
		}
	}

	n := float64(len(keywords))
	exactRatio := exact / n
	partialRatio := partial / n
	frontRatio := 0.0
	if exact > 0 {
		frontRatio = frontHits / exact
	}

	return r.exactWeight*exactRatio + r.partialWeight*partialRatio + r.frontWeight*frontRatio
}
