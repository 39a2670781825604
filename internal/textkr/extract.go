package textkr

import (
	"log/slog"
	"regexp"
	"strings"
)

// Extractor turns raw queries into de-duplicated, insertion-ordered noun
// keyword lists.
type Extractor struct {
	tagger Tagger
	logger *slog.Logger
}

// NewExtractor wires a tagger. A nil tagger gets the default DictTagger.
func NewExtractor(tagger Tagger, logger *slog.Logger) *Extractor {
	if tagger == nil {
		tagger = NewDictTagger(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{tagger: tagger, logger: logger}
}

// Extract returns noun keywords from the query.
//
// Noun-family tokens with contiguous spans are concatenated into compound
// nouns ("면책"+"기간" → "면책기간"). Compounds shorter than 2 runes are
// dropped unless allow-listed; stop-words are dropped; order of first
// appearance is preserved. If nothing survives, the rule-based fallback
// splitter is used.
func (e *Extractor) Extract(query string) []string {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	tokens := e.tagger.Tokenize(query)

	var keywords []string
	var current []string
	prevEnd := -1

	flush := func() {
		if len(current) == 0 {
			return
		}
		compound := strings.Join(current, "")
		if keepKeyword(compound) {
			keywords = append(keywords, compound)
		}
		current = nil
	}

	for _, tok := range tokens {
		if !tok.IsNoun() {
			flush()
			prevEnd = -1
			continue
		}
		if len(current) > 0 && tok.Start == prevEnd {
			current = append(current, tok.Form)
		} else {
			flush()
			current = []string{tok.Form}
		}
		prevEnd = tok.Start + tok.Len
	}
	flush()

	unique := dedupe(keywords)
	if len(unique) == 0 {
		e.logger.Debug("no nouns extracted, using fallback splitter", "query", query)
		return Fallback(query)
	}

	return unique
}

// keepKeyword applies the length filter, single-character allow-list, and
// stop-word filter.
func keepKeyword(word string) bool {
	if stopwords[word] {
		return false
	}
	if len([]rune(word)) >= 2 {
		return true
	}
	return singleCharAllow[word]
}

var nonWordRe = regexp.MustCompile(`[^\w\s가-힣]`)

// Fallback is the rule-based splitter used when tagging yields nothing:
// strip punctuation, split on whitespace, drop question words, strip one
// trailing particle per word, keep words of length >= 2.
func Fallback(query string) []string {
	clean := nonWordRe.ReplaceAllString(query, " ")
	words := strings.Fields(clean)
	if len(words) == 0 {
		return nil
	}

	var filtered []string
	for _, word := range words {
		if len([]rune(word)) < 2 || stopwords[word] {
			continue
		}
		stripped := string(stripTail([]rune(word), particles))
		if len([]rune(stripped)) >= 2 && !stopwords[stripped] {
			filtered = append(filtered, stripped)
		}
	}

	if len(filtered) == 0 {
		for _, word := range words {
			if len([]rune(word)) >= 2 {
				filtered = append(filtered, word)
			}
		}
	}

	return dedupe(filtered)
}

// dedupe removes duplicates preserving first-seen order.
func dedupe(words []string) []string {
	seen := make(map[string]bool, len(words))
	var out []string
	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}
