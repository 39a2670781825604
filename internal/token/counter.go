// Package token counts tokens with the cl100k_base encoding so budget
// arithmetic matches the embedding and chat models.
package token

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens for budget decisions. The encoding is loaded once
// and shared; Count is safe for concurrent use.
type Counter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewCounter returns a lazy cl100k_base counter.
func NewCounter() *Counter {
	return &Counter{}
}

// Count returns the token count of text. If the encoding cannot be loaded,
// it falls back to a character-based estimate so budget checks still bound
// context growth.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}

	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding("cl100k_base")
	})

	if c.err != nil || c.enc == nil {
		// Korean runs roughly 1.5 chars per token under cl100k_base.
		return utf8.RuneCountInString(text)*2/3 + 1
	}

	return len(c.enc.Encode(text, nil, nil))
}

// ForChunk trusts a stored token count when present and recounts otherwise.
func (c *Counter) ForChunk(tokenCount int, content string) int {
	if tokenCount > 0 {
		return tokenCount
	}
	return c.Count(content)
}
