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

func TestSourceRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	workspaceID := uuid.NewString()
	s := newTestSource(domain.ScopeWorkspace, workspaceID, "")
	s.Name = "Team Handbook"
	require.NoError(t, repo.Create(ctx, s))

	retrieved, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, retrieved.ID)
	assert.Equal(t, "Team Handbook", retrieved.Name)
	assert.Equal(t, domain.SourceTypeMarkdown, retrieved.Type)
	assert.Equal(t, domain.ScopeWorkspace, retrieved.Scope)
	assert.Equal(t, workspaceID, retrieved.WorkspaceID)
	assert.Empty(t, retrieved.SpaceID)
	assert.Equal(t, domain.SourceStatusPending, retrieved.Status)
	assert.Zero(t, retrieved.ChunkCount)
	assert.Nil(t, retrieved.LastSyncedAt)
}

func TestSourceRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestSourceRepository_List_ScopeVisibility(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	workspaceA := uuid.NewString()
	workspaceB := uuid.NewString()
	spaceA := uuid.NewString()
	spaceB := uuid.NewString()

	system := newTestSource(domain.ScopeSystem, "", "")
	wsA := newTestSource(domain.ScopeWorkspace, workspaceA, "")
	wsB := newTestSource(domain.ScopeWorkspace, workspaceB, "")
	spA := newTestSource(domain.ScopeSpace, workspaceA, spaceA)
	spB := newTestSource(domain.ScopeSpace, workspaceB, spaceB)
	for _, s := range []*domain.KnowledgeSource{system, wsA, wsB, spA, spB} {
		require.NoError(t, repo.Create(ctx, s))
	}

	list, err := repo.List(ctx, service.SourceFilter{WorkspaceID: workspaceA, SpaceID: spaceA})
	require.NoError(t, err)

	ids := make(map[string]bool)
	for _, s := range list {
		ids[s.ID] = true
	}
	assert.Len(t, list, 3)
	assert.True(t, ids[system.ID], "system source should be visible to everyone")
	assert.True(t, ids[wsA.ID], "caller's workspace source should be visible")
	assert.True(t, ids[spA.ID], "caller's space source should be visible")
	assert.False(t, ids[wsB.ID], "other workspace's source must not leak")
	assert.False(t, ids[spB.ID], "other space's source must not leak")
}

func TestSourceRepository_List_NoTenant(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	system := newTestSource(domain.ScopeSystem, "", "")
	ws := newTestSource(domain.ScopeWorkspace, uuid.NewString(), "")
	require.NoError(t, repo.Create(ctx, system))
	require.NoError(t, repo.Create(ctx, ws))

	list, err := repo.List(ctx, service.SourceFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, system.ID, list[0].ID)
}

func TestSourceRepository_List_Filters(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	workspaceID := uuid.NewString()
	md := newTestSource(domain.ScopeWorkspace, workspaceID, "")

	url := newTestSource(domain.ScopeWorkspace, workspaceID, "")
	url.Type = domain.SourceTypeURL
	url.Origin = "https://example.com/docs"

	system := newTestSource(domain.ScopeSystem, "", "")

	require.NoError(t, repo.Create(ctx, md))
	require.NoError(t, repo.Create(ctx, url))
	require.NoError(t, repo.Create(ctx, system))
	require.NoError(t, repo.MarkReady(ctx, url.ID, 3, time.Now().UTC()))

	byType, err := repo.List(ctx, service.SourceFilter{WorkspaceID: workspaceID, Type: domain.SourceTypeURL})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, url.ID, byType[0].ID)

	byStatus, err := repo.List(ctx, service.SourceFilter{WorkspaceID: workspaceID, Status: domain.SourceStatusReady})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, url.ID, byStatus[0].ID)

	byScope, err := repo.List(ctx, service.SourceFilter{WorkspaceID: workspaceID, Scope: domain.ScopeSystem})
	require.NoError(t, err)
	require.Len(t, byScope, 1)
	assert.Equal(t, system.ID, byScope[0].ID)

	byBoth, err := repo.List(ctx, service.SourceFilter{
		WorkspaceID: workspaceID,
		Type:        domain.SourceTypeMarkdown,
		Status:      domain.SourceStatusReady,
	})
	require.NoError(t, err)
	assert.Empty(t, byBoth)
}

func TestSourceRepository_ListRefreshable(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	workspaceA := uuid.NewString()
	workspaceB := uuid.NewString()

	urlA := newTestSource(domain.ScopeWorkspace, workspaceA, "")
	urlA.Type = domain.SourceTypeURL
	urlA.Origin = "https://example.com/a"

	pageB := newTestSource(domain.ScopeWorkspace, workspaceB, "")
	pageB.Type = domain.SourceTypePage
	pageB.Origin = uuid.NewString()

	mdA := newTestSource(domain.ScopeWorkspace, workspaceA, "")

	for _, s := range []*domain.KnowledgeSource{urlA, pageB, mdA} {
		require.NoError(t, repo.Create(ctx, s))
	}

	all, err := repo.ListRefreshable(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2, "markdown sources are never refreshable")

	scoped, err := repo.ListRefreshable(ctx, workspaceA)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, urlA.ID, scoped[0].ID)
}

func TestSourceRepository_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	s := newTestSource(domain.ScopeSystem, "", "")
	require.NoError(t, repo.Create(ctx, s))

	require.NoError(t, repo.UpdateStatus(ctx, s.ID, domain.SourceStatusProcessing))
	retrieved, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatusProcessing, retrieved.Status)

	syncedAt := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.MarkReady(ctx, s.ID, 7, syncedAt))
	retrieved, err = repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatusReady, retrieved.Status)
	assert.Equal(t, 7, retrieved.ChunkCount)
	require.NotNil(t, retrieved.LastSyncedAt)
	assert.WithinDuration(t, syncedAt, *retrieved.LastSyncedAt, time.Second)
	assert.Empty(t, retrieved.Error)

	require.NoError(t, repo.MarkError(ctx, s.ID, "fetch failed: connection refused"))
	retrieved, err = repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatusError, retrieved.Status)
	assert.Equal(t, "fetch failed: connection refused", retrieved.Error)
	assert.Equal(t, 7, retrieved.ChunkCount, "chunk count survives a failed refresh")

	require.NoError(t, repo.MarkReady(ctx, s.ID, 9, time.Now().UTC()))
	retrieved, err = repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, retrieved.Error, "a successful run clears the previous error")
}

func TestSourceRepository_StatusTransitions_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)
	ghost := uuid.NewString()

	assert.ErrorIs(t, repo.UpdateStatus(ctx, ghost, domain.SourceStatusProcessing), domain.ErrSourceNotFound)
	assert.ErrorIs(t, repo.MarkReady(ctx, ghost, 1, time.Now().UTC()), domain.ErrSourceNotFound)
	assert.ErrorIs(t, repo.MarkError(ctx, ghost, "boom"), domain.ErrSourceNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, ghost), domain.ErrSourceNotFound)
}

func TestSourceRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	s := newTestSource(domain.ScopeSystem, "", "")
	require.NoError(t, repo.Create(ctx, s))
	require.NoError(t, repo.Delete(ctx, s.ID))

	_, err := repo.GetByID(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestSourceRepository_Delete_CascadesChunks(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	sourceRepo := NewSourceRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	s := newTestSource(domain.ScopeSystem, "", "")
	require.NoError(t, sourceRepo.Create(ctx, s))
	require.NoError(t, chunkRepo.InsertBatch(ctx, []domain.KnowledgeChunk{
		newTestChunk(s.ID, 0, domain.ScopeSystem, "", "", unitVector(0)),
	}))

	require.NoError(t, sourceRepo.Delete(ctx, s.ID))

	chunks, err := chunkRepo.ListBySource(ctx, s.ID, -1, 0)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSourceRepository_ResetStuckProcessing(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSourceRepository(pool)

	stuck := newTestSource(domain.ScopeSystem, "", "")
	ready := newTestSource(domain.ScopeSystem, "", "")
	require.NoError(t, repo.Create(ctx, stuck))
	require.NoError(t, repo.Create(ctx, ready))
	require.NoError(t, repo.UpdateStatus(ctx, stuck.ID, domain.SourceStatusProcessing))
	require.NoError(t, repo.MarkReady(ctx, ready.ID, 2, time.Now().UTC()))

	swept, err := repo.ResetStuckProcessing(ctx, "interrupted by restart")
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	retrieved, err := repo.GetByID(ctx, stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatusError, retrieved.Status)
	assert.Equal(t, "interrupted by restart", retrieved.Error)

	untouched, err := repo.GetByID(ctx, ready.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceStatusReady, untouched.Status)
}
