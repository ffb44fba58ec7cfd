package repository

import (
	"context"
	"time"

	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/helicon-hq/helicon/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const chunkColumns = `id, source_id, chunk_index, heading, content, token_count, embedding, scope, workspace_id, space_id, created_at`

// ChunkRepository handles persistence and vector search of knowledge chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceForSource deletes the source's existing chunk set and inserts the
// given batch. There is deliberately no wrapping transaction: a reader racing
// a refresh may briefly observe zero chunks.
func (r *ChunkRepository) ReplaceForSource(ctx context.Context, sourceID string, chunks []domain.KnowledgeChunk) error {
	if err := r.DeleteBySource(ctx, sourceID); err != nil {
		return err
	}
	return r.InsertBatch(ctx, chunks)
}

// InsertBatch inserts chunks without touching existing rows. Used for the
// second and later batches of an ingestion run.
func (r *ChunkRepository) InsertBatch(ctx context.Context, chunks []domain.KnowledgeChunk) error {
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO knowledge_chunks (`+chunkColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			c.ID,
			c.SourceID,
			c.ChunkIndex,
			c.Heading,
			c.Content,
			c.TokenCount,
			pgvector.NewVector(c.Embedding),
			c.Scope,
			nullableString(c.WorkspaceID),
			nullableString(c.SpaceID),
			createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *ChunkRepository) DeleteBySource(ctx context.Context, sourceID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM knowledge_chunks WHERE source_id = $1`, sourceID)
	return err
}

// ListBySource returns a source's chunks ordered by chunk index, starting
// after afterIndex (-1 for the first page), at most limit rows.
func (r *ChunkRepository) ListBySource(ctx context.Context, sourceID string, afterIndex int, limit int) ([]*domain.KnowledgeChunk, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+`
		 FROM knowledge_chunks
		 WHERE source_id = $1 AND chunk_index > $2
		 ORDER BY chunk_index ASC
		 LIMIT $3`,
		sourceID, afterIndex, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// SearchByEmbedding returns the chunks nearest the query embedding under the
// cosine distance operator, most similar first. Visibility: system scope, or
// workspace scope matching the caller's workspace, or space scope matching
// the caller's space. Similarity is reported as 1 - distance.
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, filter service.SearchFilter, limit int) ([]domain.ChunkMatch, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+chunkColumns+`, 1 - (embedding <=> $1) AS similarity
		 FROM knowledge_chunks
		 WHERE embedding IS NOT NULL
		   AND (scope = 'system'
		    OR (scope = 'workspace' AND workspace_id = $2)
		    OR (scope = 'space' AND space_id = $3))
		 ORDER BY embedding <=> $1
		 LIMIT $4`,
		pgvector.NewVector(embedding),
		nullableString(filter.WorkspaceID),
		nullableString(filter.SpaceID),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []domain.ChunkMatch
	for rows.Next() {
		match, err := scanChunkMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func scanChunkRows(rows pgx.Rows) ([]*domain.KnowledgeChunk, error) {
	var results []*domain.KnowledgeChunk
	for rows.Next() {
		var c domain.KnowledgeChunk
		var embedding pgvector.Vector
		var workspaceID, spaceID *string
		if err := rows.Scan(
			&c.ID, &c.SourceID, &c.ChunkIndex, &c.Heading, &c.Content, &c.TokenCount,
			&embedding, &c.Scope, &workspaceID, &spaceID, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		c.Embedding = embedding.Slice()
		if workspaceID != nil {
			c.WorkspaceID = *workspaceID
		}
		if spaceID != nil {
			c.SpaceID = *spaceID
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}

func scanChunkMatch(rows pgx.Rows) (domain.ChunkMatch, error) {
	var match domain.ChunkMatch
	var embedding pgvector.Vector
	var workspaceID, spaceID *string
	err := rows.Scan(
		&match.Chunk.ID, &match.Chunk.SourceID, &match.Chunk.ChunkIndex,
		&match.Chunk.Heading, &match.Chunk.Content, &match.Chunk.TokenCount,
		&embedding, &match.Chunk.Scope, &workspaceID, &spaceID, &match.Chunk.CreatedAt,
		&match.Similarity,
	)
	if err != nil {
		return domain.ChunkMatch{}, err
	}
	match.Chunk.Embedding = embedding.Slice()
	if workspaceID != nil {
		match.Chunk.WorkspaceID = *workspaceID
	}
	if spaceID != nil {
		match.Chunk.SpaceID = *spaceID
	}
	return match, nil
}
