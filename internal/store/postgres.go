package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	yerrors "github.com/yakgwan-ai/yakgwan/internal/errors"
)

// PostgresStore implements ChunkStore over pgx with pgvector.
//
// Vector similarity uses the cosine distance operator (<=>), exposed to
// callers as 1 - distance. Full-text search uses the precomputed
// content_tsv column with the 'simple' dictionary so Korean tokens are
// matched verbatim.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ ChunkStore = (*PostgresStore)(nil)

// NewPostgresStore connects a pool and verifies connectivity.
func NewPostgresStore(ctx context.Context, dsn string, maxConns int, logger *slog.Logger) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, yerrors.ConfigError("invalid database dsn", err)
	}
	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, yerrors.New(yerrors.ErrCodeDBUnavailable, "failed to create connection pool", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, yerrors.New(yerrors.ErrCodeDBUnavailable, "postgres unreachable", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStore{pool: pool, logger: logger}, nil
}

// chunkColumns is the shared SELECT list for chunk rows joined with their
// parent document.
const chunkColumns = `
	dc.id, dc.document_id, dc.chunk_index, dc.content, dc.chunk_type,
	dc.token_count, dc.page_number, dc.section_title, dc.clause_number,
	dc.meta_data,
	d.filename, d.type, d.company_name`

func scanChunk(row pgx.CollectableRow) (Chunk, error) {
	var c Chunk
	var sectionTitle, clauseNumber *string
	var metadata map[string]any

	err := row.Scan(
		&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.ChunkType,
		&c.TokenCount, &c.PageNumber, &sectionTitle, &clauseNumber,
		&metadata,
		&c.Document.Filename, &c.Document.Type, &c.Document.CompanyName,
	)
	if err != nil {
		return Chunk{}, err
	}

	if sectionTitle != nil {
		c.SectionTitle = *sectionTitle
	}
	if clauseNumber != nil {
		c.ClauseNumber = *clauseNumber
	}
	c.Metadata = metadata
	return c, nil
}

// SearchVectors returns chunks above the cosine-similarity threshold,
// most similar first.
func (s *PostgresStore) SearchVectors(ctx context.Context, embedding []float32, threshold float64, limit int, filters SearchFilters) ([]SearchResult, error) {
	if len(embedding) != EmbeddingDim {
		return nil, yerrors.New(yerrors.ErrCodeBadDimension,
			fmt.Sprintf("expected %d-dim embedding, got %d", EmbeddingDim, len(embedding)), nil)
	}

	query := `
		SELECT` + chunkColumns + `,
			1 - (dc.embedding <=> $1) AS similarity
		FROM document_chunks dc
		JOIN documents d ON dc.document_id = d.id
		WHERE d.status = 'active'
		  AND dc.embedding IS NOT NULL
		  AND 1 - (dc.embedding <=> $1) >= $2`

	args := []any{pgvector.NewVector(embedding), threshold}
	query, args = appendFilters(query, args, filters)
	args = append(args, limit)
	query += fmt.Sprintf(`
		ORDER BY dc.embedding <=> $1
		LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, yerrors.StorageError("vector search query failed", err)
	}

	return collectResults(rows)
}

// SearchKeywords runs full-text search over content_tsv with the 'simple'
// dictionary. tsquery is a conjunctive expression like "암 & 진단비".
func (s *PostgresStore) SearchKeywords(ctx context.Context, tsquery string, limit int, filters SearchFilters) ([]SearchResult, error) {
	if tsquery == "" {
		return nil, nil
	}

	query := `
		SELECT` + chunkColumns + `,
			ts_rank(dc.content_tsv, to_tsquery('simple', $1)) AS similarity
		FROM document_chunks dc
		JOIN documents d ON dc.document_id = d.id
		WHERE d.status = 'active'
		  AND dc.content_tsv @@ to_tsquery('simple', $1)`

	args := []any{tsquery}
	query, args = appendFilters(query, args, filters)
	args = append(args, limit)
	query += fmt.Sprintf(`
		ORDER BY similarity DESC
		LIMIT $%d`, len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, yerrors.StorageError("keyword search query failed", err)
	}

	return collectResults(rows)
}

// appendFilters adds optional document-type and clause-number predicates.
func appendFilters(query string, args []any, filters SearchFilters) (string, []any) {
	if filters.DocumentType != "" {
		args = append(args, filters.DocumentType)
		query += fmt.Sprintf(`
		  AND d.type = $%d`, len(args))
	}
	if filters.ClauseNumber != "" {
		args = append(args, filters.ClauseNumber)
		query += fmt.Sprintf(`
		  AND dc.clause_number = $%d`, len(args))
	}
	return query, args
}

func collectResults(rows pgx.Rows) ([]SearchResult, error) {
	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SearchResult, error) {
		var r SearchResult
		var sectionTitle, clauseNumber *string
		var metadata map[string]any

		err := row.Scan(
			&r.ID, &r.DocumentID, &r.ChunkIndex, &r.Content, &r.ChunkType,
			&r.TokenCount, &r.PageNumber, &sectionTitle, &clauseNumber,
			&metadata,
			&r.Document.Filename, &r.Document.Type, &r.Document.CompanyName,
			&r.Similarity,
		)
		if err != nil {
			return SearchResult{}, err
		}

		if sectionTitle != nil {
			r.SectionTitle = *sectionTitle
		}
		if clauseNumber != nil {
			r.ClauseNumber = *clauseNumber
		}
		r.Metadata = metadata
		return r, nil
	})
	if err != nil {
		return nil, yerrors.StorageError("failed to scan search results", err)
	}
	return results, nil
}

// Adjacent fetches up to limit neighbors per requested direction, within
// the pivot's document, ordered by ascending chunk_index.
func (s *PostgresStore) Adjacent(ctx context.Context, chunkID int64, dir Direction, limit int) (AdjacentChunks, error) {
	var adj AdjacentChunks
	if dir == DirectionNone || limit <= 0 {
		return adj, nil
	}

	var documentID int64
	var chunkIndex int
	err := s.pool.QueryRow(ctx, `
		SELECT dc.document_id, dc.chunk_index
		FROM document_chunks dc
		JOIN documents d ON dc.document_id = d.id
		WHERE dc.id = $1 AND d.status = 'active'`, chunkID).Scan(&documentID, &chunkIndex)
	if err != nil {
		if err == pgx.ErrNoRows {
			return adj, yerrors.New(yerrors.ErrCodeChunkNotFound,
				fmt.Sprintf("chunk %d not found", chunkID), nil)
		}
		return adj, yerrors.StorageError("pivot lookup failed", err)
	}

	fetch := func(lo, hi int) ([]Chunk, error) {
		rows, err := s.pool.Query(ctx, `
			SELECT`+chunkColumns+`
			FROM document_chunks dc
			JOIN documents d ON dc.document_id = d.id
			WHERE dc.document_id = $1
			  AND dc.chunk_index BETWEEN $2 AND $3
			ORDER BY dc.chunk_index`, documentID, lo, hi)
		if err != nil {
			return nil, yerrors.StorageError("adjacent chunk query failed", err)
		}
		chunks, err := pgx.CollectRows(rows, scanChunk)
		if err != nil {
			return nil, yerrors.StorageError("failed to scan adjacent chunks", err)
		}
		return chunks, nil
	}

	if dir == DirectionPrev || dir == DirectionBoth {
		lo := chunkIndex - limit
		if lo < 0 {
			lo = 0
		}
		if chunkIndex > 0 {
			adj.Prev, err = fetch(lo, chunkIndex-1)
			if err != nil {
				return adj, err
			}
		}
	}
	if dir == DirectionNext || dir == DirectionBoth {
		adj.Next, err = fetch(chunkIndex+1, chunkIndex+limit)
		if err != nil {
			return adj, err
		}
	}

	return adj, nil
}

// ByIDs loads chunks preserving input order; unknown ids are skipped.
func (s *PostgresStore) ByIDs(ctx context.Context, ids []int64) ([]Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT`+chunkColumns+`
		FROM document_chunks dc
		JOIN documents d ON dc.document_id = d.id
		WHERE dc.id = ANY($1) AND d.status = 'active'`, ids)
	if err != nil {
		return nil, yerrors.StorageError("chunk lookup failed", err)
	}

	chunks, err := pgx.CollectRows(rows, scanChunk)
	if err != nil {
		return nil, yerrors.StorageError("failed to scan chunks", err)
	}

	byID := make(map[int64]Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	ordered := make([]Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

// SimilarChunks returns the nearest chunks to the given chunk's embedding,
// excluding the chunk itself.
func (s *PostgresStore) SimilarChunks(ctx context.Context, chunkID int64, limit int) ([]SearchResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT`+chunkColumns+`,
			1 - (dc.embedding <=> ref.embedding) AS similarity
		FROM document_chunks dc
		JOIN documents d ON dc.document_id = d.id
		JOIN document_chunks ref ON ref.id = $1
		WHERE d.status = 'active'
		  AND dc.id != $1
		  AND dc.embedding IS NOT NULL
		  AND ref.embedding IS NOT NULL
		ORDER BY dc.embedding <=> ref.embedding
		LIMIT $2`, chunkID, limit)
	if err != nil {
		return nil, yerrors.StorageError("similar chunk query failed", err)
	}

	return collectResults(rows)
}

// ExistingClauses reports which clause numbers occur in active documents.
func (s *PostgresStore) ExistingClauses(ctx context.Context, clauses []string) (map[string]bool, error) {
	found := make(map[string]bool, len(clauses))
	if len(clauses) == 0 {
		return found, nil
	}
	for _, c := range clauses {
		found[c] = false
	}

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT dc.clause_number
		FROM document_chunks dc
		JOIN documents d ON dc.document_id = d.id
		WHERE d.status = 'active'
		  AND dc.clause_number = ANY($1)`, clauses)
	if err != nil {
		return nil, yerrors.StorageError("clause lookup failed", err)
	}
	defer rows.Close()

	for rows.Next() {
		var clause string
		if err := rows.Scan(&clause); err != nil {
			return nil, yerrors.StorageError("failed to scan clause", err)
		}
		found[clause] = true
	}
	if err := rows.Err(); err != nil {
		return nil, yerrors.StorageError("clause lookup failed", err)
	}

	return found, nil
}

// LogSearch appends a search log record. Failures are logged and dropped;
// search logging never fails a request.
func (s *PostgresStore) LogSearch(ctx context.Context, entry SearchLogEntry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO search_logs (user_id, query, search_type, results_count, top_similarity, response_time_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.UserID, entry.Query, entry.SearchType, entry.ResultsCount,
		entry.TopSimilarity, entry.ResponseTimeMS, entry.CreatedAt)
	if err != nil {
		s.logger.Warn("search log insert failed", "error", err)
	}
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
