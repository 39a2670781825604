// Package textkr extracts noun keywords from Korean queries for lexical
// search and re-ranking.
//
// Tagging is pluggable via the Tagger interface. The default DictTagger is
// a dictionary-driven segmenter: it has no grammar model, but for the short
// interrogative queries this system sees, longest-match segmentation over a
// domain lexicon plus particle stripping recovers the same noun runs a full
// morphological analyzer would.
package textkr

import (
	"strings"
	"unicode"
)

// Noun-family tags. These mirror the tag set of standard Korean
// morphological analyzers so an external tagger can be dropped in.
const (
	TagNounGeneral = "NNG" // 보험, 진단, 치료
	TagNounProper  = "NNP" // 회사명, 지명
	TagNounBound   = "NNB" // 것, 수, 때
	TagNounSuffix  = "XSN" // 성, 비
	TagOther       = "UNK"
)

// Token is one tagged span. Start and Len are rune offsets into the
// original query so adjacency can be checked across tokens.
type Token struct {
	Form  string
	Tag   string
	Start int
	Len   int
}

// IsNoun reports whether the token belongs to the noun family.
func (t Token) IsNoun() bool {
	switch t.Tag {
	case TagNounGeneral, TagNounProper, TagNounBound, TagNounSuffix:
		return true
	}
	return false
}

// Tagger produces tagged tokens from a query.
type Tagger interface {
	Tokenize(query string) []Token
}

// particles are stripped from word tails, longest first.
var particles = []string{
	"에서", "으로", "이란", "에게", "부터", "까지", "처럼", "보다", "마다", "조차", "밖에",
	"은", "는", "이", "가", "을", "를", "의", "에", "로", "와", "과", "도", "만", "란", "께",
}

// endings are interrogative and verbal tails that follow nouns in
// conversational queries ("되나요", "인가요"). Stripped before particles.
var endings = []string{
	"인가요", "되나요", "하나요", "인가", "일까요", "할까요", "었나요", "났나요",
	"나요", "어요", "해요", "예요", "에요", "입니까", "습니까", "합니까",
}

// DictTagger segments words by greedy longest match over a noun lexicon.
// Unmatched hangul runs are tagged as general nouns so unknown domain
// terms still surface as keywords.
type DictTagger struct {
	lexicon map[string]string // surface -> tag
	maxLen  int
}

// NewDictTagger builds the default tagger with the built-in lexicon.
// Extra entries (e.g. from a configured term dictionary) are merged in.
func NewDictTagger(extra []string) *DictTagger {
	t := &DictTagger{lexicon: make(map[string]string, len(builtinNouns)+len(extra))}
	for _, w := range builtinNouns {
		t.add(w, TagNounGeneral)
	}
	for _, w := range boundNouns {
		t.add(w, TagNounBound)
	}
	for _, w := range nounSuffixes {
		t.add(w, TagNounSuffix)
	}
	for _, w := range extra {
		t.add(w, TagNounGeneral)
	}
	return t
}

func (t *DictTagger) add(word, tag string) {
	if word == "" {
		return
	}
	t.lexicon[word] = tag
	if n := len([]rune(word)); n > t.maxLen {
		t.maxLen = n
	}
}

var _ Tagger = (*DictTagger)(nil)

// Tokenize splits the query into words, strips endings and particles, then
// segments each word into lexicon entries by greedy longest match.
func (t *DictTagger) Tokenize(query string) []Token {
	var tokens []Token

	runes := []rune(query)
	i := 0
	for i < len(runes) {
		if !isWordRune(runes[i]) {
			i++
			continue
		}
		start := i
		for i < len(runes) && isWordRune(runes[i]) {
			i++
		}
		word := runes[start:i]
		tokens = append(tokens, t.tokenizeWord(word, start)...)
	}

	return tokens
}

// tokenizeWord handles one whitespace-delimited word at rune offset base.
func (t *DictTagger) tokenizeWord(word []rune, base int) []Token {
	// Lexicon entries win over particle stripping ("나이" keeps its 이)
	if tag, ok := t.lexicon[string(word)]; ok {
		return []Token{{Form: string(word), Tag: tag, Start: base, Len: len(word)}}
	}

	// A word that is nothing but a verbal ending ("되나요") is not a noun
	for _, e := range endings {
		if string(word) == e {
			return nil
		}
	}

	word = stripTail(word, endings)
	word = stripTail(word, particles)
	if len(word) == 0 {
		return nil
	}

	var tokens []Token
	i := 0
	unkStart := -1

	flushUnknown := func(end int) {
		if unkStart < 0 {
			return
		}
		form := string(word[unkStart:end])
		tokens = append(tokens, Token{
			Form:  form,
			Tag:   TagNounGeneral,
			Start: base + unkStart,
			Len:   end - unkStart,
		})
		unkStart = -1
	}

	for i < len(word) {
		matched := 0
		matchedTag := ""
		limit := t.maxLen
		if rest := len(word) - i; rest < limit {
			limit = rest
		}
		for n := limit; n >= 1; n-- {
			candidate := string(word[i : i+n])
			if tag, ok := t.lexicon[candidate]; ok {
				matched = n
				matchedTag = tag
				break
			}
		}

		if matched > 0 {
			flushUnknown(i)
			tokens = append(tokens, Token{
				Form:  string(word[i : i+matched]),
				Tag:   matchedTag,
				Start: base + i,
				Len:   matched,
			})
			i += matched
			continue
		}

		if unkStart < 0 {
			unkStart = i
		}
		i++
	}
	flushUnknown(len(word))

	return tokens
}

// stripTail removes the longest matching suffix, if the remainder is
// non-empty.
func stripTail(word []rune, suffixes []string) []rune {
	s := string(word)
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			rest := []rune(strings.TrimSuffix(s, suffix))
			if len(rest) > 0 {
				return rest
			}
		}
	}
	return word
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
