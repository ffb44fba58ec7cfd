//go:build integration

package repository

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// unitVector builds a 1536-dim unit vector at the given angle in the plane
// of the first two axes. Cosine similarity between two of these is the
// cosine of the angle between them, which makes ranking assertions exact.
func unitVector(angle float64) []float32 {
	v := make([]float32, 1536)
	v[0] = float32(math.Cos(angle))
	v[1] = float32(math.Sin(angle))
	return v
}

func newTestSource(scope domain.KnowledgeScope, workspaceID, spaceID string) *domain.KnowledgeSource {
	return domain.NewKnowledgeSource(
		uuid.NewString(),
		"Test Source",
		domain.SourceTypeMarkdown,
		"",
		scope,
		workspaceID,
		spaceID,
		time.Now().UTC().Truncate(time.Microsecond),
	)
}

func newTestChunk(sourceID string, index int, scope domain.KnowledgeScope, workspaceID, spaceID string, embedding []float32) domain.KnowledgeChunk {
	return domain.KnowledgeChunk{
		ID:          uuid.NewString(),
		SourceID:    sourceID,
		ChunkIndex:  index,
		Heading:     "Heading",
		Content:     "Chunk content",
		TokenCount:  4,
		Embedding:   embedding,
		Scope:       scope,
		WorkspaceID: workspaceID,
		SpaceID:     spaceID,
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
}

func insertPage(ctx context.Context, t *testing.T, pool *pgxpool.Pool, p *domain.TypedPage) {
	t.Helper()
	_, err := pool.Exec(ctx,
		`INSERT INTO pages (id, workspace_id, space_id, title, plain_text, page_type, metadata, updated_at, deleted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.WorkspaceID, nullableString(p.SpaceID), p.Title, p.PlainText,
		p.PageType, p.Metadata, p.UpdatedAt, p.DeletedAt,
	)
	require.NoError(t, err)
}

func insertTask(ctx context.Context, t *testing.T, pool *pgxpool.Pool, task *domain.Task) {
	t.Helper()
	_, err := pool.Exec(ctx,
		`INSERT INTO tasks (id, workspace_id, space_id, title, labels, done)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		task.ID, task.WorkspaceID, nullableString(task.SpaceID), task.Title, task.Labels, task.Done,
	)
	require.NoError(t, err)
}

func insertRelation(ctx context.Context, t *testing.T, pool *pgxpool.Pool, fromID, toID, workspaceID, relationType string) {
	t.Helper()
	_, err := pool.Exec(ctx,
		`INSERT INTO page_relations (from_page_id, to_page_id, workspace_id, relation_type)
		 VALUES ($1, $2, $3, $4)`,
		fromID, toID, workspaceID, relationType,
	)
	require.NoError(t, err)
}
