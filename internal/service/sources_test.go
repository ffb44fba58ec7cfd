package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/helicon-hq/helicon/internal/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockIngestSubmitter is a mock implementation of IngestSubmitter
type MockIngestSubmitter struct {
	mock.Mock
}

func (m *MockIngestSubmitter) Submit(ctx context.Context, sourceID string, directContent string) error {
	args := m.Called(ctx, sourceID, directContent)
	return args.Error(0)
}

func TestSourceService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to space scope when a space id is present", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)
		mockUUIDGen := NewMockUUIDGenerator("source-1")

		// Setup expectations
		mockSources.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.KnowledgeSource) bool {
			return s.Scope == domain.ScopeSpace && s.WorkspaceID == "workspace-1" && s.SpaceID == "space-1"
		})).Return(nil)
		mockQueue.On("Submit", mock.Anything, "source-1", "").Return(nil)

		svc := NewSourceServiceWithUUIDGen(mockSources, mockChunks, mockQueue, mockUUIDGen)

		// Execute
		source, err := svc.Create(ctx, CreateSourceInput{
			Name:        "Field Notes",
			Type:        domain.SourceTypeURL,
			Origin:      "https://example.com/notes",
			WorkspaceID: "workspace-1",
			SpaceID:     "space-1",
		})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "source-1", source.ID)
		assert.Equal(t, domain.ScopeSpace, source.Scope)
		assert.Equal(t, domain.SourceStatusPending, source.Status)
		mockSources.AssertExpectations(t)
		mockQueue.AssertExpectations(t)
	})

	t.Run("defaults to workspace scope with only a workspace id", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)
		mockUUIDGen := NewMockUUIDGenerator("source-1")

		mockSources.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.KnowledgeSource) bool {
			return s.Scope == domain.ScopeWorkspace && s.WorkspaceID == "workspace-1" && s.SpaceID == ""
		})).Return(nil)
		mockQueue.On("Submit", mock.Anything, "source-1", "").Return(nil)

		svc := NewSourceServiceWithUUIDGen(mockSources, mockChunks, mockQueue, mockUUIDGen)

		source, err := svc.Create(ctx, CreateSourceInput{
			Name:        "Field Notes",
			Type:        domain.SourceTypeURL,
			Origin:      "https://example.com/notes",
			WorkspaceID: "workspace-1",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.ScopeWorkspace, source.Scope)
		mockSources.AssertExpectations(t)
	})

	t.Run("defaults to system scope with no tenant fields", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)
		mockUUIDGen := NewMockUUIDGenerator("source-1")

		mockSources.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.KnowledgeSource) bool {
			return s.Scope == domain.ScopeSystem && s.WorkspaceID == "" && s.SpaceID == ""
		})).Return(nil)
		mockQueue.On("Submit", mock.Anything, "source-1", "").Return(nil)

		svc := NewSourceServiceWithUUIDGen(mockSources, mockChunks, mockQueue, mockUUIDGen)

		source, err := svc.Create(ctx, CreateSourceInput{
			Name:   "Reference Handbook",
			Type:   domain.SourceTypeURL,
			Origin: "https://example.com/handbook",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.ScopeSystem, source.Scope)
		mockSources.AssertExpectations(t)
	})

	t.Run("explicit workspace scope drops the space id", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)
		mockUUIDGen := NewMockUUIDGenerator("source-1")

		mockSources.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.KnowledgeSource) bool {
			return s.Scope == domain.ScopeWorkspace && s.WorkspaceID == "workspace-1" && s.SpaceID == ""
		})).Return(nil)
		mockQueue.On("Submit", mock.Anything, "source-1", "").Return(nil)

		svc := NewSourceServiceWithUUIDGen(mockSources, mockChunks, mockQueue, mockUUIDGen)

		source, err := svc.Create(ctx, CreateSourceInput{
			Name:        "Field Notes",
			Type:        domain.SourceTypeURL,
			Origin:      "https://example.com/notes",
			Scope:       domain.ScopeWorkspace,
			WorkspaceID: "workspace-1",
			SpaceID:     "space-1",
		})

		require.NoError(t, err)
		assert.Empty(t, source.SpaceID)
		mockSources.AssertExpectations(t)
	})

	t.Run("rejects an unknown source type", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)
		mockUUIDGen := NewMockUUIDGenerator("source-1")

		svc := NewSourceServiceWithUUIDGen(mockSources, mockChunks, mockQueue, mockUUIDGen)

		// Execute
		source, err := svc.Create(ctx, CreateSourceInput{
			Name:        "Feed",
			Type:        domain.SourceType("rss"),
			Origin:      "https://example.com/feed",
			WorkspaceID: "workspace-1",
		})

		// Assert
		require.Error(t, err)
		assert.Nil(t, source)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
		mockSources.AssertNotCalled(t, "Create")
		mockQueue.AssertNotCalled(t, "Submit")
	})

	t.Run("markdown sources require direct content", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)
		mockUUIDGen := NewMockUUIDGenerator("source-1")

		svc := NewSourceServiceWithUUIDGen(mockSources, mockChunks, mockQueue, mockUUIDGen)

		source, err := svc.Create(ctx, CreateSourceInput{
			Name:        "Notes",
			Type:        domain.SourceTypeMarkdown,
			WorkspaceID: "workspace-1",
			Content:     "   \n",
		})

		assert.ErrorIs(t, err, domain.ErrNoDirectContent)
		assert.Nil(t, source)
		mockSources.AssertNotCalled(t, "Create")
	})

	t.Run("markdown content travels with the ingestion job", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)
		mockUUIDGen := NewMockUUIDGenerator("source-1")

		mockSources.On("Create", mock.Anything, mock.Anything).Return(nil)
		mockQueue.On("Submit", mock.Anything, "source-1", "# Notes\n\nBody.").Return(nil)

		svc := NewSourceServiceWithUUIDGen(mockSources, mockChunks, mockQueue, mockUUIDGen)

		_, err := svc.Create(ctx, CreateSourceInput{
			Name:        "Notes",
			Type:        domain.SourceTypeMarkdown,
			WorkspaceID: "workspace-1",
			Content:     "# Notes\n\nBody.",
		})

		require.NoError(t, err)
		mockQueue.AssertExpectations(t)
	})

	t.Run("enqueue failure leaves the source created in the error state", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)
		mockUUIDGen := NewMockUUIDGenerator("source-1")

		// Setup expectations
		mockSources.On("Create", mock.Anything, mock.Anything).Return(nil)
		mockQueue.On("Submit", mock.Anything, "source-1", "").Return(domain.ErrQueueFull)
		mockSources.On("MarkError", mock.Anything, "source-1", "ingestion queue is full").Return(nil)

		svc := NewSourceServiceWithUUIDGen(mockSources, mockChunks, mockQueue, mockUUIDGen)

		// Execute
		source, err := svc.Create(ctx, CreateSourceInput{
			Name:        "Field Notes",
			Type:        domain.SourceTypeURL,
			Origin:      "https://example.com/notes",
			WorkspaceID: "workspace-1",
		})

		// Assert: creation itself succeeded, a refresh can retry the run
		require.NoError(t, err)
		assert.Equal(t, domain.SourceStatusError, source.Status)
		assert.Equal(t, "ingestion queue is full", source.Error)
		mockSources.AssertExpectations(t)
	})

	t.Run("repository failure aborts the create", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)
		mockUUIDGen := NewMockUUIDGenerator("source-1")

		repoErr := errors.New("connection reset")
		mockSources.On("Create", mock.Anything, mock.Anything).Return(repoErr)

		svc := NewSourceServiceWithUUIDGen(mockSources, mockChunks, mockQueue, mockUUIDGen)

		source, err := svc.Create(ctx, CreateSourceInput{
			Name:        "Field Notes",
			Type:        domain.SourceTypeURL,
			Origin:      "https://example.com/notes",
			WorkspaceID: "workspace-1",
		})

		assert.ErrorIs(t, err, repoErr)
		assert.Nil(t, source)
		mockQueue.AssertNotCalled(t, "Submit")
	})
}

func TestSourceService_GetByID(t *testing.T) {
	ctx := context.Background()

	workspaceSource := domain.NewKnowledgeSource(
		"source-1", "Field Notes", domain.SourceTypeURL, "https://example.com/notes",
		domain.ScopeWorkspace, "workspace-1", "", time.Now().UTC(),
	)

	t.Run("returns a source visible to the caller", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		mockSources.On("GetByID", mock.Anything, "source-1").Return(workspaceSource, nil)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		source, err := svc.GetByID(ctx, "source-1", "workspace-1", "")

		require.NoError(t, err)
		assert.Equal(t, "source-1", source.ID)
	})

	t.Run("hides sources outside the caller's workspace", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		mockSources.On("GetByID", mock.Anything, "source-1").Return(workspaceSource, nil)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		source, err := svc.GetByID(ctx, "source-1", "workspace-2", "")

		assert.ErrorIs(t, err, domain.ErrSourceNotFound)
		assert.Nil(t, source)
	})

	t.Run("system sources are visible without tenant fields", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		systemSource := domain.NewKnowledgeSource(
			"source-2", "Handbook", domain.SourceTypeURL, "https://example.com/handbook",
			domain.ScopeSystem, "", "", time.Now().UTC(),
		)
		mockSources.On("GetByID", mock.Anything, "source-2").Return(systemSource, nil)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		source, err := svc.GetByID(ctx, "source-2", "", "")

		require.NoError(t, err)
		assert.Equal(t, domain.ScopeSystem, source.Scope)
	})

	t.Run("space sources require the matching space id", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		spaceSource := domain.NewKnowledgeSource(
			"source-3", "Lab Notes", domain.SourceTypePage, "page-1",
			domain.ScopeSpace, "workspace-1", "space-1", time.Now().UTC(),
		)
		mockSources.On("GetByID", mock.Anything, "source-3").Return(spaceSource, nil)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		// Same workspace, but no space id
		source, err := svc.GetByID(ctx, "source-3", "workspace-1", "")

		assert.ErrorIs(t, err, domain.ErrSourceNotFound)
		assert.Nil(t, source)
	})
}

func TestSourceService_Delete(t *testing.T) {
	ctx := context.Background()

	source := domain.NewKnowledgeSource(
		"source-1", "Field Notes", domain.SourceTypeURL, "https://example.com/notes",
		domain.ScopeWorkspace, "workspace-1", "", time.Now().UTC(),
	)

	t.Run("deletes a visible source", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		mockSources.On("GetByID", mock.Anything, "source-1").Return(source, nil)
		mockSources.On("Delete", mock.Anything, "source-1").Return(nil)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		err := svc.Delete(ctx, "source-1", "workspace-1", "")

		require.NoError(t, err)
		mockSources.AssertExpectations(t)
	})

	t.Run("refuses to delete across workspaces", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		mockSources.On("GetByID", mock.Anything, "source-1").Return(source, nil)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		err := svc.Delete(ctx, "source-1", "workspace-2", "")

		assert.ErrorIs(t, err, domain.ErrSourceNotFound)
		mockSources.AssertNotCalled(t, "Delete")
	})
}

func TestSourceService_ListChunks(t *testing.T) {
	ctx := context.Background()

	source := domain.NewKnowledgeSource(
		"source-1", "Field Notes", domain.SourceTypeURL, "https://example.com/notes",
		domain.ScopeWorkspace, "workspace-1", "", time.Now().UTC(),
	)

	chunkAt := func(index int) *domain.KnowledgeChunk {
		return &domain.KnowledgeChunk{ID: "chunk", SourceID: "source-1", ChunkIndex: index}
	}

	t.Run("returns a next cursor when more rows exist", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		mockSources.On("GetByID", mock.Anything, "source-1").Return(source, nil)
		// One extra row is requested to detect the next page.
		mockChunks.On("ListBySource", mock.Anything, "source-1", -1, 3).
			Return([]*domain.KnowledgeChunk{chunkAt(0), chunkAt(1), chunkAt(2)}, nil)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		// Execute
		out, err := svc.ListChunks(ctx, ListChunksInput{
			SourceID:    "source-1",
			WorkspaceID: "workspace-1",
			Limit:       2,
		})

		// Assert
		require.NoError(t, err)
		assert.Len(t, out.Items, 2)
		assert.True(t, out.HasMore)
		assert.Equal(t, pagination.EncodeIndexCursor(1), out.Cursor)
		mockChunks.AssertExpectations(t)
	})

	t.Run("final page has no cursor", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		mockSources.On("GetByID", mock.Anything, "source-1").Return(source, nil)
		mockChunks.On("ListBySource", mock.Anything, "source-1", -1, 3).
			Return([]*domain.KnowledgeChunk{chunkAt(0), chunkAt(1)}, nil)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		out, err := svc.ListChunks(ctx, ListChunksInput{
			SourceID:    "source-1",
			WorkspaceID: "workspace-1",
			Limit:       2,
		})

		require.NoError(t, err)
		assert.Len(t, out.Items, 2)
		assert.False(t, out.HasMore)
		assert.Empty(t, out.Cursor)
	})

	t.Run("defaults the page size", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		mockSources.On("GetByID", mock.Anything, "source-1").Return(source, nil)
		mockChunks.On("ListBySource", mock.Anything, "source-1", -1, 51).
			Return([]*domain.KnowledgeChunk{chunkAt(0)}, nil)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		_, err := svc.ListChunks(ctx, ListChunksInput{
			SourceID:    "source-1",
			WorkspaceID: "workspace-1",
		})

		require.NoError(t, err)
		mockChunks.AssertExpectations(t)
	})

	t.Run("resumes after the cursor position", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		mockSources.On("GetByID", mock.Anything, "source-1").Return(source, nil)
		mockChunks.On("ListBySource", mock.Anything, "source-1", 41, 3).
			Return([]*domain.KnowledgeChunk{chunkAt(42)}, nil)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		out, err := svc.ListChunks(ctx, ListChunksInput{
			SourceID:    "source-1",
			WorkspaceID: "workspace-1",
			Cursor:      pagination.EncodeIndexCursor(41),
			Limit:       2,
		})

		require.NoError(t, err)
		assert.Len(t, out.Items, 1)
		mockChunks.AssertExpectations(t)
	})

	t.Run("rejects a malformed cursor", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		mockSources.On("GetByID", mock.Anything, "source-1").Return(source, nil)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		out, err := svc.ListChunks(ctx, ListChunksInput{
			SourceID:    "source-1",
			WorkspaceID: "workspace-1",
			Cursor:      "!!not-a-cursor!!",
		})

		require.Error(t, err)
		assert.Nil(t, out)
		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
		mockChunks.AssertNotCalled(t, "ListBySource")
	})

	t.Run("hides chunk listings outside the caller's workspace", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		mockSources.On("GetByID", mock.Anything, "source-1").Return(source, nil)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		out, err := svc.ListChunks(ctx, ListChunksInput{
			SourceID:    "source-1",
			WorkspaceID: "workspace-2",
		})

		assert.ErrorIs(t, err, domain.ErrSourceNotFound)
		assert.Nil(t, out)
	})
}

func TestSourceService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("enqueues a run for a url source", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		source := domain.NewKnowledgeSource(
			"source-1", "Field Notes", domain.SourceTypeURL, "https://example.com/notes",
			domain.ScopeWorkspace, "workspace-1", "", time.Now().UTC(),
		)
		mockSources.On("GetByID", mock.Anything, "source-1").Return(source, nil)
		mockQueue.On("Submit", mock.Anything, "source-1", "").Return(nil)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		err := svc.Refresh(ctx, "source-1", "workspace-1", "", "")

		require.NoError(t, err)
		mockQueue.AssertExpectations(t)
	})

	t.Run("markdown refresh needs fresh content", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		source := domain.NewKnowledgeSource(
			"source-1", "Notes", domain.SourceTypeMarkdown, "",
			domain.ScopeWorkspace, "workspace-1", "", time.Now().UTC(),
		)
		mockSources.On("GetByID", mock.Anything, "source-1").Return(source, nil)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		err := svc.Refresh(ctx, "source-1", "workspace-1", "", "  ")

		assert.ErrorIs(t, err, domain.ErrNoDirectContent)
		mockQueue.AssertNotCalled(t, "Submit")
	})

	t.Run("propagates an in-flight rejection", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		source := domain.NewKnowledgeSource(
			"source-1", "Field Notes", domain.SourceTypeURL, "https://example.com/notes",
			domain.ScopeWorkspace, "workspace-1", "", time.Now().UTC(),
		)
		mockSources.On("GetByID", mock.Anything, "source-1").Return(source, nil)
		mockQueue.On("Submit", mock.Anything, "source-1", "").Return(domain.ErrIngestionInFlight)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		err := svc.Refresh(ctx, "source-1", "workspace-1", "", "")

		assert.ErrorIs(t, err, domain.ErrIngestionInFlight)
	})
}

func TestSourceService_RefreshAll(t *testing.T) {
	ctx := context.Background()

	refreshable := func(id string) *domain.KnowledgeSource {
		return domain.NewKnowledgeSource(
			id, "Source "+id, domain.SourceTypeURL, "https://example.com/"+id,
			domain.ScopeWorkspace, "workspace-1", "", time.Now().UTC(),
		)
	}

	t.Run("counts enqueued and skipped runs", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		mockSources.On("ListRefreshable", mock.Anything, "workspace-1").Return(
			[]*domain.KnowledgeSource{refreshable("source-1"), refreshable("source-2"), refreshable("source-3")}, nil,
		)
		mockQueue.On("Submit", mock.Anything, "source-1", "").Return(nil)
		mockQueue.On("Submit", mock.Anything, "source-2", "").Return(domain.ErrIngestionInFlight)
		mockQueue.On("Submit", mock.Anything, "source-3", "").Return(domain.ErrQueueFull)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		// Execute
		summary, err := svc.RefreshAll(ctx, "workspace-1")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Enqueued)
		assert.Equal(t, 2, summary.Skipped)
		mockQueue.AssertExpectations(t)
	})

	t.Run("fails the sweep on unexpected submit errors", func(t *testing.T) {
		mockSources := new(MockSourceRepository)
		mockChunks := new(MockChunkRepository)
		mockQueue := new(MockIngestSubmitter)

		mockSources.On("ListRefreshable", mock.Anything, "workspace-1").Return(
			[]*domain.KnowledgeSource{refreshable("source-1")}, nil,
		)
		submitErr := errors.New("queue backend unavailable")
		mockQueue.On("Submit", mock.Anything, "source-1", "").Return(submitErr)

		svc := NewSourceService(mockSources, mockChunks, mockQueue)

		summary, err := svc.RefreshAll(ctx, "workspace-1")

		assert.ErrorIs(t, err, submitErr)
		assert.Nil(t, summary)
	})
}
