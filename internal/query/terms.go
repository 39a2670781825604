package query

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

//go:embed data/insurance_terms.json
var defaultTermsJSON []byte

// TermDictionary holds the domain term rules applied during preprocessing.
type TermDictionary struct {
	// Spacing maps joined terms to their spaced forms ("암진단비" → "암 진단비").
	Spacing map[string]string

	// Synonyms maps canonical terms to equivalent expressions.
	Synonyms map[string][]string

	// IncompletePatterns flag queries too vague to search.
	IncompletePatterns []IncompletePattern

	// synonymKeys is Synonyms' keys in sorted order, for deterministic
	// expansion output.
	synonymKeys []string
}

// IncompletePattern pairs a compiled regex with the advice shown when it
// matches.
type IncompletePattern struct {
	Pattern    *regexp.Regexp
	Suggestion string
}

// termsFile is the on-disk JSON schema.
type termsFile struct {
	Normalization struct {
		Spacing map[string]string `json:"spacing"`
	} `json:"normalization"`
	Synonyms           map[string][]string `json:"synonyms"`
	IncompletePatterns []struct {
		Pattern    string `json:"pattern"`
		Suggestion string `json:"suggestion"`
	} `json:"incomplete_patterns"`
}

// LoadTermDictionary reads a dictionary from path, or the embedded default
// when path is empty.
func LoadTermDictionary(path string) (*TermDictionary, error) {
	data := defaultTermsJSON
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read term dictionary %s: %w", path, err)
		}
	}

	var file termsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse term dictionary: %w", err)
	}

	dict := &TermDictionary{
		Spacing:  file.Normalization.Spacing,
		Synonyms: file.Synonyms,
	}

	for _, p := range file.IncompletePatterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid incomplete pattern %q: %w", p.Pattern, err)
		}
		dict.IncompletePatterns = append(dict.IncompletePatterns, IncompletePattern{
			Pattern:    re,
			Suggestion: p.Suggestion,
		})
	}

	for term := range dict.Synonyms {
		dict.synonymKeys = append(dict.synonymKeys, term)
	}
	sort.Strings(dict.synonymKeys)

	return dict, nil
}

// AllTerms returns every surface form in the dictionary (spacing outputs
// word by word, canonical terms, synonyms), for seeding the keyword
// tagger's lexicon.
func (d *TermDictionary) AllTerms() []string {
	var terms []string
	for _, spaced := range d.Spacing {
		terms = append(terms, strings.Fields(spaced)...)
	}
	for _, term := range d.synonymKeys {
		terms = append(terms, term)
		terms = append(terms, d.Synonyms[term]...)
	}
	return terms
}
