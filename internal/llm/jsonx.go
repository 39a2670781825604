package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls the first JSON object out of a model response. Models
// wrap JSON in markdown fences or prose more often than not, so this
// strips ```json fences and falls back to scanning for the first balanced
// brace pair.
func ExtractJSON(response string) (string, bool) {
	s := strings.TrimSpace(response)

	s = stripFences(s)

	if json.Valid([]byte(s)) && strings.HasPrefix(s, "{") {
		return s, true
	}

	// Scan for the first balanced object, respecting strings and escapes.
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					candidate := s[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					return "", false
				}
			}
		}
	}

	return "", false
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language tag line ("json")
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 8 && !strings.ContainsAny(first, "{}") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// DecodeObject extracts and unmarshals the first JSON object in response
// into v. Returns false when no parseable object is present.
func DecodeObject(response string, v any) bool {
	raw, ok := ExtractJSON(response)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), v) == nil
}
