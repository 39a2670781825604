// Package store provides read access to the ingested chunk corpus.
// The answering pipeline consumes chunks strictly read-only; writes happen
// on the ingestion side, which lives elsewhere.
package store

import (
	"context"
	"time"
)

// Chunk type discriminators assigned at ingestion time.
const (
	ChunkTypeText  = "text"
	ChunkTypeTable = "table"
	ChunkTypeImage = "image"
)

// EmbeddingDim is the fixed dimension of chunk embeddings.
const EmbeddingDim = 1536

// Direction selects which neighbors to fetch relative to a pivot chunk.
type Direction string

const (
	DirectionPrev Direction = "prev"
	DirectionNext Direction = "next"
	DirectionBoth Direction = "both"
	DirectionNone Direction = "none"
)

// DocumentInfo annotates a chunk with its parent document's display fields.
type DocumentInfo struct {
	Filename    string `json:"filename"`
	Type        string `json:"type"`
	CompanyName string `json:"company_name"`
}

// Chunk is the unit of retrieval. Within a document, ChunkIndex values are
// dense and totally ordered; adjacency is index ±1.
type Chunk struct {
	ID           int64          `json:"chunk_id"`
	DocumentID   int64          `json:"document_id"`
	ChunkIndex   int            `json:"chunk_index"`
	Content      string         `json:"content"`
	ChunkType    string         `json:"chunk_type"`
	TokenCount   int            `json:"token_count"`
	PageNumber   *int           `json:"page_number,omitempty"`
	SectionTitle string         `json:"section_title,omitempty"`
	ClauseNumber string         `json:"clause_number,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Document     DocumentInfo   `json:"document"`
}

// SearchResult is the transport record from search into judgement and
// answering. Similarity carries whatever score the producing stage assigned:
// cosine similarity from vector search, ts_rank from keyword search, the RRF
// score after fusion, and the rerank score after reranking.
type SearchResult struct {
	Chunk
	Similarity float64 `json:"similarity"`

	// OriginalRank preserves the pre-rerank position (1-indexed).
	// Zero until reranking runs.
	OriginalRank int `json:"original_rank,omitempty"`

	// Expanded marks results whose Content was replaced by a merged span.
	Expanded bool `json:"-"`

	// IncludedChunks lists the chunk ids merged into Content, in ascending
	// chunk_index order. Nil for non-expanded results.
	IncludedChunks []int64 `json:"-"`

	// Truncated marks expanded results whose merge stopped at the token
	// ceiling before exhausting the fetched neighbors.
	Truncated bool `json:"-"`
}

// Meta returns the wire-format metadata map, folding expansion markers into
// the chunk's free-form metadata.
func (r *SearchResult) Meta() map[string]any {
	m := make(map[string]any, len(r.Metadata)+4)
	for k, v := range r.Metadata {
		m[k] = v
	}
	if r.Expanded {
		m["expanded"] = true
		m["included_chunks"] = r.IncludedChunks
		m["total_tokens"] = r.TokenCount
		m["truncated"] = r.Truncated
	}
	return m
}

// SearchFilters narrow vector and keyword searches. Zero values mean no
// filtering; the active-document restriction is always applied by the store.
type SearchFilters struct {
	DocumentType string
	ClauseNumber string
}

// SearchLogEntry is one append-only record per executed search.
type SearchLogEntry struct {
	UserID         *int64
	Query          string
	SearchType     string // vector | keyword | hybrid
	ResultsCount   int
	TopSimilarity  float64
	ResponseTimeMS int
	CreatedAt      time.Time
}

// AdjacentChunks groups neighbors of a pivot, each slice ordered by
// ascending chunk_index (Prev[len-1] is the immediate predecessor).
type AdjacentChunks struct {
	Prev []Chunk
	Next []Chunk
}

// ChunkStore is the read interface the pipeline consumes. Implementations
// must restrict every query to chunks of active documents.
type ChunkStore interface {
	// SearchVectors returns chunks whose cosine similarity to the query
	// embedding exceeds threshold, most similar first.
	SearchVectors(ctx context.Context, embedding []float32, threshold float64, limit int, filters SearchFilters) ([]SearchResult, error)

	// SearchKeywords runs a ranked full-text search for the conjunctive
	// tsquery string, best rank first. Rank is mapped into Similarity.
	SearchKeywords(ctx context.Context, tsquery string, limit int, filters SearchFilters) ([]SearchResult, error)

	// Adjacent fetches up to limit neighbors of the pivot chunk in the
	// requested direction(s), within the same document.
	Adjacent(ctx context.Context, chunkID int64, dir Direction, limit int) (AdjacentChunks, error)

	// ByIDs loads chunks by id, preserving the given order and skipping
	// unknown ids.
	ByIDs(ctx context.Context, ids []int64) ([]Chunk, error)

	// SimilarChunks returns chunks nearest to the given chunk's embedding,
	// excluding the chunk itself.
	SimilarChunks(ctx context.Context, chunkID int64, limit int) ([]SearchResult, error)

	// ExistingClauses reports which of the given clause numbers (e.g.
	// "제15조") occur in any active document.
	ExistingClauses(ctx context.Context, clauses []string) (map[string]bool, error)

	// LogSearch appends a search log record. Implementations must swallow
	// their own failures; logging never fails a request.
	LogSearch(ctx context.Context, entry SearchLogEntry)

	Close()
}
