//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/helicon-hq/helicon/internal/service"
	"github.com/helicon-hq/helicon/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemory(scope domain.KnowledgeScope, workspaceID, spaceID string, embedding []float32) *domain.Memory {
	m := domain.NewMemory(
		uuid.NewString(),
		scope,
		workspaceID,
		spaceID,
		"The reactor design favors passive cooling",
		time.Now().UTC().Truncate(time.Microsecond),
	)
	m.Embedding = embedding
	return m
}

func TestMemoryRepository_InsertAndSearch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMemoryRepository(pool)

	workspaceID := uuid.NewString()
	m := newTestMemory(domain.ScopeWorkspace, workspaceID, "", unitVector(0.1))
	require.NoError(t, repo.Insert(ctx, m))

	matches, err := repo.SearchByEmbedding(ctx, unitVector(0), service.SearchFilter{WorkspaceID: workspaceID}, 0, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, m.ID, matches[0].Memory.ID)
	assert.Equal(t, m.Content, matches[0].Memory.Content)
	assert.InDelta(t, 0.995, matches[0].Similarity, 0.01)
}

func TestMemoryRepository_SearchByEmbedding_MinSimilarityFloor(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMemoryRepository(pool)

	workspaceID := uuid.NewString()
	near := newTestMemory(domain.ScopeWorkspace, workspaceID, "", unitVector(0.1))
	far := newTestMemory(domain.ScopeWorkspace, workspaceID, "", unitVector(1.2))
	require.NoError(t, repo.Insert(ctx, near))
	require.NoError(t, repo.Insert(ctx, far))

	matches, err := repo.SearchByEmbedding(ctx, unitVector(0), service.SearchFilter{WorkspaceID: workspaceID}, 0.5, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1, "matches below the similarity floor are dropped")
	assert.Equal(t, near.ID, matches[0].Memory.ID)
}

func TestMemoryRepository_SearchByEmbedding_ScopeIsolation(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMemoryRepository(pool)

	workspaceA := uuid.NewString()
	workspaceB := uuid.NewString()

	mineA := newTestMemory(domain.ScopeWorkspace, workspaceA, "", unitVector(0.1))
	otherB := newTestMemory(domain.ScopeWorkspace, workspaceB, "", unitVector(0.1))
	shared := newTestMemory(domain.ScopeSystem, "", "", unitVector(0.2))
	require.NoError(t, repo.Insert(ctx, mineA))
	require.NoError(t, repo.Insert(ctx, otherB))
	require.NoError(t, repo.Insert(ctx, shared))

	matches, err := repo.SearchByEmbedding(ctx, unitVector(0), service.SearchFilter{WorkspaceID: workspaceA}, 0, 10)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	for _, m := range matches {
		assert.NotEqual(t, otherB.ID, m.Memory.ID, "other workspace's memories must not leak")
	}
}
