package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory ChunkStore. It backs tests and local
// experimentation; ranking quality is approximate (full-text rank is a
// term-frequency stand-in for ts_rank) but the contracts match the
// Postgres implementation.
type MemoryStore struct {
	mu         sync.RWMutex
	chunks     []Chunk
	embeddings map[int64][]float32
	logs       []SearchLogEntry
}

var _ ChunkStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{embeddings: make(map[int64][]float32)}
}

// Add inserts a chunk with an optional embedding.
func (m *MemoryStore) Add(c Chunk, embedding []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = append(m.chunks, c)
	if embedding != nil {
		m.embeddings[c.ID] = embedding
	}
}

// Logs returns the recorded search log entries.
func (m *MemoryStore) Logs() []SearchLogEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SearchLogEntry, len(m.logs))
	copy(out, m.logs)
	return out
}

func (m *MemoryStore) SearchVectors(_ context.Context, embedding []float32, threshold float64, limit int, filters SearchFilters) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []SearchResult
	for _, c := range m.chunks {
		if !matchFilters(c, filters) {
			continue
		}
		vec, ok := m.embeddings[c.ID]
		if !ok {
			continue
		}
		sim := cosineSimilarity(embedding, vec)
		if sim >= threshold {
			results = append(results, SearchResult{Chunk: c, Similarity: sim})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) SearchKeywords(_ context.Context, tsquery string, limit int, filters SearchFilters) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	terms := strings.Split(tsquery, " & ")

	var results []SearchResult
	for _, c := range m.chunks {
		if !matchFilters(c, filters) {
			continue
		}
		hits := 0
		for _, t := range terms {
			if t != "" && strings.Contains(c.Content, t) {
				hits++
			}
		}
		if hits == len(terms) && hits > 0 {
			rank := float64(hits) / float64(len(strings.Fields(c.Content))+1)
			results = append(results, SearchResult{Chunk: c, Similarity: rank})
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) Adjacent(_ context.Context, chunkID int64, dir Direction, limit int) (AdjacentChunks, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var adj AdjacentChunks
	pivot, ok := m.byID(chunkID)
	if !ok {
		return adj, nil
	}

	var same []Chunk
	for _, c := range m.chunks {
		if c.DocumentID == pivot.DocumentID {
			same = append(same, c)
		}
	}
	sort.SliceStable(same, func(i, j int) bool { return same[i].ChunkIndex < same[j].ChunkIndex })

	for _, c := range same {
		switch {
		case c.ChunkIndex < pivot.ChunkIndex && c.ChunkIndex >= pivot.ChunkIndex-limit:
			if dir == DirectionPrev || dir == DirectionBoth {
				adj.Prev = append(adj.Prev, c)
			}
		case c.ChunkIndex > pivot.ChunkIndex && c.ChunkIndex <= pivot.ChunkIndex+limit:
			if dir == DirectionNext || dir == DirectionBoth {
				adj.Next = append(adj.Next, c)
			}
		}
	}
	return adj, nil
}

func (m *MemoryStore) ByIDs(_ context.Context, ids []int64) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Chunk
	for _, id := range ids {
		if c, ok := m.byID(id); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryStore) SimilarChunks(ctx context.Context, chunkID int64, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	ref, ok := m.embeddings[chunkID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	results, err := m.SearchVectors(ctx, ref, -1, limit+1, SearchFilters{})
	if err != nil {
		return nil, err
	}

	out := results[:0]
	for _, r := range results {
		if r.ID != chunkID {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ExistingClauses(_ context.Context, clauses []string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	found := make(map[string]bool, len(clauses))
	for _, cl := range clauses {
		found[cl] = false
		for _, c := range m.chunks {
			if c.ClauseNumber == cl {
				found[cl] = true
				break
			}
		}
	}
	return found, nil
}

func (m *MemoryStore) LogSearch(_ context.Context, entry SearchLogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
}

func (m *MemoryStore) Close() {}

func (m *MemoryStore) byID(id int64) (Chunk, bool) {
	for _, c := range m.chunks {
		if c.ID == id {
			return c, true
		}
	}
	return Chunk{}, false
}

func matchFilters(c Chunk, filters SearchFilters) bool {
	if filters.DocumentType != "" && c.Document.Type != filters.DocumentType {
		return false
	}
	if filters.ClauseNumber != "" && c.ClauseNumber != filters.ClauseNumber {
		return false
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
