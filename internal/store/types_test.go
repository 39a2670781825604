package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchResult_Meta_PlainChunk(t *testing.T) {
	r := SearchResult{
		Chunk: Chunk{
			ID:       1,
			Metadata: map[string]any{"source": "vision"},
		},
		Similarity: 0.82,
	}

	m := r.Meta()

	assert.Equal(t, "vision", m["source"])
	assert.NotContains(t, m, "expanded")
	assert.NotContains(t, m, "included_chunks")
}

func TestSearchResult_Meta_ExpandedChunk(t *testing.T) {
	r := SearchResult{
		Chunk: Chunk{
			ID:         7,
			TokenCount: 4200,
			Metadata:   map[string]any{"source": "vision"},
		},
		Similarity:     0.05,
		Expanded:       true,
		IncludedChunks: []int64{6, 7, 8},
		Truncated:      true,
	}

	m := r.Meta()

	assert.Equal(t, true, m["expanded"])
	assert.Equal(t, []int64{6, 7, 8}, m["included_chunks"])
	assert.Equal(t, 4200, m["total_tokens"])
	assert.Equal(t, true, m["truncated"])
	// Original metadata survives alongside expansion markers
	assert.Equal(t, "vision", m["source"])
}

func TestSearchResult_Meta_DoesNotMutateOriginal(t *testing.T) {
	r := SearchResult{
		Chunk:    Chunk{Metadata: map[string]any{"k": "v"}},
		Expanded: true,
	}

	_ = r.Meta()

	assert.NotContains(t, r.Metadata, "expanded")
}
