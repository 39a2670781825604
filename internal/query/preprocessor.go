// Package query normalizes user questions before retrieval: whitespace
// cleanup, domain term standardization, synonym expansion, clause-number
// detection, and incomplete-query screening.
package query

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/yakgwan-ai/yakgwan/internal/textkr"
)

// Preprocessed is the result of preprocessing one query.
type Preprocessed struct {
	Original     string `json:"original"`
	Normalized   string `json:"normalized"`
	Standardized string `json:"standardized"`
	// ExpandedTerms is the synonym-expanded noun keyword list, insertion
	// ordered with base keywords first.
	ExpandedTerms []string `json:"expanded_terms"`
	// ClauseNumber is "제N조" when the query names a clause, else empty.
	ClauseNumber string   `json:"clause_number,omitempty"`
	IsComplete   bool     `json:"is_complete"`
	Suggestions  []string `json:"suggestions,omitempty"`
}

// Preprocessor applies the term dictionary and keyword extractor.
type Preprocessor struct {
	dict      *TermDictionary
	extractor *textkr.Extractor
	logger    *slog.Logger
}

// NewPreprocessor wires the dictionary and extractor. A nil extractor gets
// the default tagger seeded with the dictionary's terms.
func NewPreprocessor(dict *TermDictionary, extractor *textkr.Extractor, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = textkr.NewExtractor(textkr.NewDictTagger(dict.AllTerms()), logger)
	}
	return &Preprocessor{dict: dict, extractor: extractor, logger: logger}
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	clauseRes    = []*regexp.Regexp{
		regexp.MustCompile(`제\s*(\d+)\s*조`),
		regexp.MustCompile(`(\d+)\s*조`),
	}
)

// Preprocess runs the full pipeline. It never fails: any internal problem
// degrades to identity preprocessing so search can proceed.
func (p *Preprocessor) Preprocess(query string) Preprocessed {
	result, err := p.preprocess(query)
	if err != nil {
		p.logger.Warn("preprocessing failed, falling back to identity", "query", query, "error", err)
		return Preprocessed{
			Original:      query,
			Normalized:    query,
			Standardized:  query,
			ExpandedTerms: []string{query},
			IsComplete:    true,
		}
	}
	return result
}

func (p *Preprocessor) preprocess(query string) (Preprocessed, error) {
	if p.dict == nil {
		return Preprocessed{}, fmt.Errorf("no term dictionary loaded")
	}

	normalized := strings.TrimSpace(whitespaceRe.ReplaceAllString(query, " "))
	standardized := p.standardize(normalized)

	baseKeywords := p.extractor.Extract(standardized)
	expanded := p.expandSynonyms(baseKeywords)

	clause := extractClauseNumber(standardized)
	isComplete, suggestions := p.checkCompleteness(standardized)

	p.logger.Debug("query preprocessed",
		"standardized", standardized,
		"keywords", baseKeywords,
		"expanded", expanded,
		"clause", clause,
		"complete", isComplete)

	return Preprocessed{
		Original:      query,
		Normalized:    normalized,
		Standardized:  standardized,
		ExpandedTerms: expanded,
		ClauseNumber:  clause,
		IsComplete:    isComplete,
		Suggestions:   suggestions,
	}, nil
}

// standardize applies the spacing rules by plain substitution.
func (p *Preprocessor) standardize(query string) string {
	standardized := query
	for term, replacement := range p.dict.Spacing {
		if strings.Contains(standardized, term) {
			standardized = strings.ReplaceAll(standardized, term, replacement)
		}
	}
	return standardized
}

// expandSynonyms unions noun keywords from every synonym that matches a
// base keyword. Matching is bidirectional and substring-tolerant, so
// "갑상선암" picks up the synonyms of "암".
func (p *Preprocessor) expandSynonyms(baseKeywords []string) []string {
	seen := make(map[string]bool, len(baseKeywords))
	expanded := make([]string, 0, len(baseKeywords))

	add := func(words []string) {
		for _, w := range words {
			if !seen[w] {
				seen[w] = true
				expanded = append(expanded, w)
			}
		}
	}

	add(baseKeywords)

	for _, keyword := range baseKeywords {
		for _, term := range p.dict.synonymKeys {
			if !relatedTerm(keyword, term, p.dict.Synonyms[term]) {
				continue
			}
			for _, synonym := range p.dict.Synonyms[term] {
				add(p.extractor.Extract(synonym))
			}
			add(p.extractor.Extract(term))
		}
	}

	return expanded
}

// relatedTerm reports whether keyword matches the canonical term or any of
// its synonyms, in either containment direction.
func relatedTerm(keyword, term string, synonyms []string) bool {
	if strings.Contains(keyword, term) || strings.Contains(term, keyword) {
		return true
	}
	for _, s := range synonyms {
		if strings.Contains(keyword, s) || strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}

// extractClauseNumber finds clause references like "제15조" or "15조" and
// returns the canonical "제N조" form.
func extractClauseNumber(query string) string {
	for _, re := range clauseRes {
		if m := re.FindStringSubmatch(query); m != nil {
			return "제" + m[1] + "조"
		}
	}
	return ""
}

// checkCompleteness matches the incomplete patterns; any hit marks the
// query incomplete and collects the pattern's suggestion.
func (p *Preprocessor) checkCompleteness(query string) (bool, []string) {
	var suggestions []string
	for _, ip := range p.dict.IncompletePatterns {
		if ip.Pattern.MatchString(query) {
			suggestions = append(suggestions, ip.Suggestion)
		}
	}
	return len(suggestions) == 0, suggestions
}
