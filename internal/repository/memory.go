package repository

import (
	"context"
	"time"

	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/helicon-hq/helicon/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// MemoryRepository handles persistence and vector search of agent memories.
type MemoryRepository struct {
	db dbtx
}

func NewMemoryRepository(pool *pgxpool.Pool) *MemoryRepository {
	return &MemoryRepository{db: pool}
}

func (r *MemoryRepository) Insert(ctx context.Context, m *domain.Memory) error {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO memories (id, scope, workspace_id, space_id, content, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.Scope, nullableString(m.WorkspaceID), nullableString(m.SpaceID),
		m.Content, pgvector.NewVector(m.Embedding), createdAt,
	)
	return err
}

// SearchByEmbedding returns memories nearest the query embedding under the
// same visibility rule as chunks, dropping hits below minSimilarity outright.
func (r *MemoryRepository) SearchByEmbedding(ctx context.Context, embedding []float32, filter service.SearchFilter, minSimilarity float64, limit int) ([]domain.MemoryMatch, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, scope, workspace_id, space_id, content, embedding, created_at,
		        1 - (embedding <=> $1) AS similarity
		 FROM memories
		 WHERE embedding IS NOT NULL
		   AND (scope = 'system'
		    OR (scope = 'workspace' AND workspace_id = $2)
		    OR (scope = 'space' AND space_id = $3))
		   AND 1 - (embedding <=> $1) >= $4
		 ORDER BY embedding <=> $1
		 LIMIT $5`,
		pgvector.NewVector(embedding),
		nullableString(filter.WorkspaceID),
		nullableString(filter.SpaceID),
		minSimilarity,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []domain.MemoryMatch
	for rows.Next() {
		var match domain.MemoryMatch
		var vec pgvector.Vector
		var workspaceID, spaceID *string
		if err := rows.Scan(
			&match.Memory.ID, &match.Memory.Scope, &workspaceID, &spaceID,
			&match.Memory.Content, &vec, &match.Memory.CreatedAt, &match.Similarity,
		); err != nil {
			return nil, err
		}
		match.Memory.Embedding = vec.Slice()
		if workspaceID != nil {
			match.Memory.WorkspaceID = *workspaceID
		}
		if spaceID != nil {
			match.Memory.SpaceID = *spaceID
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}
