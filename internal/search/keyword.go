package search

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/yakgwan-ai/yakgwan/internal/store"
	"github.com/yakgwan-ai/yakgwan/internal/textkr"
)

// KeywordSearcher runs conjunctive full-text retrieval over the chunk
// lexeme vectors. Like the vector leg, failures degrade to empty results.
type KeywordSearcher struct {
	store     store.ChunkStore
	extractor *textkr.Extractor
	logger    *slog.Logger
}

// NewKeywordSearcher wires the store and keyword extractor.
func NewKeywordSearcher(st store.ChunkStore, extractor *textkr.Extractor, logger *slog.Logger) *KeywordSearcher {
	if extractor == nil {
		extractor = textkr.NewExtractor(nil, logger)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KeywordSearcher{store: st, extractor: extractor, logger: logger}
}

var keywordCleanRe = regexp.MustCompile(`[^\w\s가-힣]`)

// Search extracts noun keywords and runs an AND-semantics tsquery. An
// empty keyword list returns nil without touching storage.
func (k *KeywordSearcher) Search(ctx context.Context, query string, limit int, filters store.SearchFilters) []store.SearchResult {
	clean := keywordCleanRe.ReplaceAllString(query, " ")
	terms := k.extractor.Extract(clean)
	if len(terms) == 0 {
		return nil
	}

	tsquery := BuildTSQuery(terms)

	started := time.Now()
	results, err := k.store.SearchKeywords(ctx, tsquery, limit, filters)
	if err != nil {
		k.logger.Error("keyword search failed", "query", query, "tsquery", tsquery, "error", err)
		return nil
	}

	k.logger.Debug("keyword search complete",
		"query", query,
		"tsquery", tsquery,
		"results", len(results),
		"elapsed_ms", time.Since(started).Milliseconds())

	return results
}

// BuildTSQuery joins terms conjunctively: "암 & 진단비". Lexemes containing
// tsquery operators are dropped rather than escaped.
func BuildTSQuery(terms []string) string {
	safe := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == "" || strings.ContainsAny(t, "&|!()<>:'") {
			continue
		}
		safe = append(safe, t)
	}
	return strings.Join(safe, " & ")
}
