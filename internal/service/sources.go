package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/helicon-hq/helicon/internal/pagination"
	"github.com/helicon-hq/helicon/internal/telemetry"
)

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// SourceFilter narrows source listings. WorkspaceID and SpaceID define the
// caller's visibility; Scope, Type, and Status are optional.
type SourceFilter struct {
	WorkspaceID string
	SpaceID     string
	Scope       domain.KnowledgeScope
	Type        domain.SourceType
	Status      domain.SourceStatus
}

// IngestSubmitter enqueues ingestion runs for background processing.
type IngestSubmitter interface {
	Submit(ctx context.Context, sourceID string, directContent string) error
}

// SourceService handles registration and lifecycle of knowledge sources.
// Ingestion itself runs in the background; creating or refreshing a source
// only enqueues work.
type SourceService struct {
	sources SourceRepositoryInterface
	chunks  ChunkRepositoryInterface
	queue   IngestSubmitter
	uuidGen UUIDGenerator
}

// NewSourceService creates a new SourceService instance
func NewSourceService(
	sources SourceRepositoryInterface,
	chunks ChunkRepositoryInterface,
	queue IngestSubmitter,
) *SourceService {
	return &SourceService{
		sources: sources,
		chunks:  chunks,
		queue:   queue,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// NewSourceServiceWithUUIDGen creates a new SourceService with custom UUID generator (for testing)
func NewSourceServiceWithUUIDGen(
	sources SourceRepositoryInterface,
	chunks ChunkRepositoryInterface,
	queue IngestSubmitter,
	uuidGen UUIDGenerator,
) *SourceService {
	return &SourceService{
		sources: sources,
		chunks:  chunks,
		queue:   queue,
		uuidGen: uuidGen,
	}
}

// CreateSourceInput represents the input for registering a knowledge source
type CreateSourceInput struct {
	Name        string
	Type        domain.SourceType
	Origin      string
	Scope       domain.KnowledgeScope
	WorkspaceID string
	SpaceID     string
	Content     string // markdown body, carried with the ingestion job
}

// Create registers a new source and enqueues its first ingestion run. When no
// scope is given, the narrowest scope the tenant fields allow is used. If the
// run cannot be enqueued the source is created in the error state so an
// explicit refresh can retry it.
func (s *SourceService) Create(ctx context.Context, input CreateSourceInput) (*domain.KnowledgeSource, error) {
	ctx, span := telemetry.StartSpan(ctx, "SourceService.Create", telemetry.SpanAttributes{
		WorkspaceID: input.WorkspaceID,
		SpaceID:     input.SpaceID,
		Operation:   "create",
	})
	defer span.End()

	scope := input.Scope
	if scope == "" {
		switch {
		case input.SpaceID != "":
			scope = domain.ScopeSpace
		case input.WorkspaceID != "":
			scope = domain.ScopeWorkspace
		default:
			scope = domain.ScopeSystem
		}
	}

	// The source carries only the tenant fields its scope needs.
	workspaceID := input.WorkspaceID
	spaceID := input.SpaceID
	switch scope {
	case domain.ScopeSystem:
		workspaceID = ""
		spaceID = ""
	case domain.ScopeWorkspace:
		spaceID = ""
	}

	now := time.Now().UTC()
	source := domain.NewKnowledgeSource(
		s.uuidGen.NewString(),
		input.Name,
		input.Type,
		input.Origin,
		scope,
		workspaceID,
		spaceID,
		now,
	)

	if err := domain.ValidateKnowledgeSource(source); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid knowledge source", err)
	}

	if source.Type == domain.SourceTypeMarkdown && strings.TrimSpace(input.Content) == "" {
		return nil, domain.ErrNoDirectContent
	}

	if err := s.sources.Create(ctx, source); err != nil {
		span.SetError(err)
		return nil, err
	}

	if err := s.queue.Submit(ctx, source.ID, input.Content); err != nil {
		message := sourceErrorMessage(err)
		if markErr := s.sources.MarkError(ctx, source.ID, message); markErr != nil {
			span.SetError(markErr)
			return nil, markErr
		}
		source.Status = domain.SourceStatusError
		source.Error = message
	}

	return source, nil
}

// GetByID retrieves a source visible to the caller. Sources outside the
// caller's visibility are indistinguishable from missing ones.
func (s *SourceService) GetByID(ctx context.Context, id, workspaceID, spaceID string) (*domain.KnowledgeSource, error) {
	ctx, span := telemetry.StartSpan(ctx, "SourceService.GetByID", telemetry.SpanAttributes{
		SourceID:  id,
		Operation: "get",
	})
	defer span.End()

	source, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visibleTo(source, workspaceID, spaceID) {
		return nil, domain.ErrSourceNotFound
	}
	return source, nil
}

// List retrieves the sources visible to the caller
func (s *SourceService) List(ctx context.Context, filter SourceFilter) ([]*domain.KnowledgeSource, error) {
	ctx, span := telemetry.StartSpan(ctx, "SourceService.List", telemetry.SpanAttributes{
		WorkspaceID: filter.WorkspaceID,
		SpaceID:     filter.SpaceID,
		Operation:   "list",
	})
	defer span.End()

	return s.sources.List(ctx, filter)
}

// Delete removes a source and, via the schema's cascade, its chunks
func (s *SourceService) Delete(ctx context.Context, id, workspaceID, spaceID string) error {
	ctx, span := telemetry.StartSpan(ctx, "SourceService.Delete", telemetry.SpanAttributes{
		SourceID:  id,
		Operation: "delete",
	})
	defer span.End()

	source, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !visibleTo(source, workspaceID, spaceID) {
		return domain.ErrSourceNotFound
	}

	return s.sources.Delete(ctx, id)
}

// ListChunksInput represents the input for paging through a source's chunks
type ListChunksInput struct {
	SourceID    string
	WorkspaceID string
	SpaceID     string
	Cursor      string
	Limit       int
}

// ListChunksOutput is one page of chunks plus the cursor for the next page
type ListChunksOutput struct {
	Items   []*domain.KnowledgeChunk
	Cursor  string
	HasMore bool
}

// ListChunks pages through a source's chunk set in chunk-index order
func (s *SourceService) ListChunks(ctx context.Context, input ListChunksInput) (*ListChunksOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "SourceService.ListChunks", telemetry.SpanAttributes{
		SourceID:  input.SourceID,
		Operation: "list_chunks",
	})
	defer span.End()

	source, err := s.sources.GetByID(ctx, input.SourceID)
	if err != nil {
		return nil, err
	}
	if !visibleTo(source, input.WorkspaceID, input.SpaceID) {
		return nil, domain.ErrSourceNotFound
	}

	afterIndex, err := pagination.DecodeIndexCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 50
	}

	// Fetch one extra row to detect whether a further page exists.
	items, err := s.chunks.ListBySource(ctx, input.SourceID, afterIndex, limit+1)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	cursor := ""
	if hasMore {
		cursor = pagination.EncodeIndexCursor(items[len(items)-1].ChunkIndex)
	}

	return &ListChunksOutput{
		Items:   items,
		Cursor:  cursor,
		HasMore: hasMore,
	}, nil
}

// Refresh enqueues a re-ingestion run for one source. Markdown sources must
// carry fresh content with the call since nothing is persisted between runs.
func (s *SourceService) Refresh(ctx context.Context, id, workspaceID, spaceID, directContent string) error {
	ctx, span := telemetry.StartSpan(ctx, "SourceService.Refresh", telemetry.SpanAttributes{
		SourceID:  id,
		Operation: "refresh",
	})
	defer span.End()

	source, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !visibleTo(source, workspaceID, spaceID) {
		return domain.ErrSourceNotFound
	}

	if source.Type == domain.SourceTypeMarkdown && strings.TrimSpace(directContent) == "" {
		return domain.ErrNoDirectContent
	}

	return s.queue.Submit(ctx, id, directContent)
}

// RefreshSummary reports how a bulk refresh went
type RefreshSummary struct {
	Enqueued int
	Skipped  int
}

// RefreshAll enqueues a run for every refreshable (url/page) source owned by
// the workspace. Sources already in flight and submissions rejected by a full
// queue are counted as skipped rather than failing the sweep.
func (s *SourceService) RefreshAll(ctx context.Context, workspaceID string) (*RefreshSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "SourceService.RefreshAll", telemetry.SpanAttributes{
		WorkspaceID: workspaceID,
		Operation:   "refresh_all",
	})
	defer span.End()

	sources, err := s.sources.ListRefreshable(ctx, workspaceID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	summary := &RefreshSummary{}
	for _, source := range sources {
		err := s.queue.Submit(ctx, source.ID, "")
		switch {
		case err == nil:
			summary.Enqueued++
		case errors.Is(err, domain.ErrIngestionInFlight), errors.Is(err, domain.ErrQueueFull):
			summary.Skipped++
		default:
			span.SetError(err)
			return nil, err
		}
	}

	return summary, nil
}

// visibleTo reports whether the caller identified by the tenant fields may
// see the source.
func visibleTo(s *domain.KnowledgeSource, workspaceID, spaceID string) bool {
	switch s.Scope {
	case domain.ScopeSystem:
		return true
	case domain.ScopeWorkspace:
		return workspaceID != "" && s.WorkspaceID == workspaceID
	case domain.ScopeSpace:
		return spaceID != "" && s.SpaceID == spaceID
	}
	return false
}
