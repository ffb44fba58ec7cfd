package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helicon-hq/helicon/internal/api"
	"github.com/helicon-hq/helicon/internal/api/middleware"
	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/helicon-hq/helicon/internal/service"
)

type SourcesService interface {
	Create(ctx context.Context, input service.CreateSourceInput) (*domain.KnowledgeSource, error)
	GetByID(ctx context.Context, id, workspaceID, spaceID string) (*domain.KnowledgeSource, error)
	List(ctx context.Context, filter service.SourceFilter) ([]*domain.KnowledgeSource, error)
	Delete(ctx context.Context, id, workspaceID, spaceID string) error
	ListChunks(ctx context.Context, input service.ListChunksInput) (*service.ListChunksOutput, error)
	Refresh(ctx context.Context, id, workspaceID, spaceID, directContent string) error
	RefreshAll(ctx context.Context, workspaceID string) (*service.RefreshSummary, error)
}

type SourcesHandler struct {
	svc SourcesService
}

func NewSourcesHandler(svc SourcesService) *SourcesHandler {
	return &SourcesHandler{svc: svc}
}

type CreateSourceRequest struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Origin  string `json:"origin"`
	Scope   string `json:"scope"`
	Content string `json:"content"`
}

type RefreshSourceRequest struct {
	Content string `json:"content"`
}

type SourceResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Origin       string `json:"origin,omitempty"`
	Scope        string `json:"scope"`
	WorkspaceID  string `json:"workspace_id,omitempty"`
	SpaceID      string `json:"space_id,omitempty"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	ChunkCount   int    `json:"chunk_count"`
	LastSyncedAt string `json:"last_synced_at,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

func sourceToResponse(s *domain.KnowledgeSource) *SourceResponse {
	resp := &SourceResponse{
		ID:          s.ID,
		Name:        s.Name,
		Type:        string(s.Type),
		Origin:      s.Origin,
		Scope:       string(s.Scope),
		WorkspaceID: s.WorkspaceID,
		SpaceID:     s.SpaceID,
		Status:      string(s.Status),
		Error:       s.Error,
		ChunkCount:  s.ChunkCount,
		CreatedAt:   formatTime(s.CreatedAt),
		UpdatedAt:   formatTime(s.UpdatedAt),
	}
	if s.LastSyncedAt != nil {
		resp.LastSyncedAt = formatTime(*s.LastSyncedAt)
	}
	return resp
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

func (h *SourcesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "name is required")
		return
	}
	if req.Type == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "type is required")
		return
	}

	input := service.CreateSourceInput{
		Name:        req.Name,
		Type:        domain.SourceType(req.Type),
		Origin:      req.Origin,
		Scope:       domain.KnowledgeScope(req.Scope),
		WorkspaceID: middleware.GetWorkspaceID(r.Context()),
		SpaceID:     middleware.GetSpaceID(r.Context()),
		Content:     req.Content,
	}

	source, err := h.svc.Create(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, sourceToResponse(source))
}

func (h *SourcesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sourceID")
	if id == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "source id is required")
		return
	}

	source, err := h.svc.GetByID(r.Context(), id,
		middleware.GetWorkspaceID(r.Context()), middleware.GetSpaceID(r.Context()))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, sourceToResponse(source))
}

type SourceListResponse struct {
	Items []*SourceResponse `json:"items"`
}

func (h *SourcesHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := service.SourceFilter{
		WorkspaceID: middleware.GetWorkspaceID(r.Context()),
		SpaceID:     middleware.GetSpaceID(r.Context()),
		Scope:       domain.KnowledgeScope(r.URL.Query().Get("scope")),
		Type:        domain.SourceType(r.URL.Query().Get("type")),
		Status:      domain.SourceStatus(r.URL.Query().Get("status")),
	}

	sources, err := h.svc.List(r.Context(), filter)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*SourceResponse, len(sources))
	for i, s := range sources {
		items[i] = sourceToResponse(s)
	}

	api.Success(w, http.StatusOK, SourceListResponse{Items: items})
}

func (h *SourcesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sourceID")
	if id == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "source id is required")
		return
	}

	err := h.svc.Delete(r.Context(), id,
		middleware.GetWorkspaceID(r.Context()), middleware.GetSpaceID(r.Context()))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type ChunkResponse struct {
	ID         string `json:"id"`
	SourceID   string `json:"source_id"`
	ChunkIndex int    `json:"chunk_index"`
	Heading    string `json:"heading,omitempty"`
	Content    string `json:"content"`
	TokenCount int    `json:"token_count"`
	CreatedAt  string `json:"created_at"`
}

func chunkToResponse(c *domain.KnowledgeChunk) *ChunkResponse {
	return &ChunkResponse{
		ID:         c.ID,
		SourceID:   c.SourceID,
		ChunkIndex: c.ChunkIndex,
		Heading:    c.Heading,
		Content:    c.Content,
		TokenCount: c.TokenCount,
		CreatedAt:  formatTime(c.CreatedAt),
	}
}

type ChunkListResponse struct {
	Items   []*ChunkResponse `json:"items"`
	Cursor  string           `json:"cursor,omitempty"`
	HasMore bool             `json:"has_more"`
}

func (h *SourcesHandler) ListChunks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sourceID")
	if id == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "source id is required")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	input := service.ListChunksInput{
		SourceID:    id,
		WorkspaceID: middleware.GetWorkspaceID(r.Context()),
		SpaceID:     middleware.GetSpaceID(r.Context()),
		Cursor:      r.URL.Query().Get("cursor"),
		Limit:       limit,
	}

	output, err := h.svc.ListChunks(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*ChunkResponse, len(output.Items))
	for i, c := range output.Items {
		items[i] = chunkToResponse(c)
	}

	api.Success(w, http.StatusOK, ChunkListResponse{
		Items:   items,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *SourcesHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sourceID")
	if id == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "source id is required")
		return
	}

	// The body is optional; markdown sources carry fresh content here.
	var req RefreshSourceRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
			return
		}
	}

	err := h.svc.Refresh(r.Context(), id,
		middleware.GetWorkspaceID(r.Context()), middleware.GetSpaceID(r.Context()), req.Content)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

type RefreshAllResponse struct {
	Enqueued int `json:"enqueued"`
	Skipped  int `json:"skipped"`
}

func (h *SourcesHandler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.RefreshAll(r.Context(), middleware.GetWorkspaceID(r.Context()))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, RefreshAllResponse{
		Enqueued: summary.Enqueued,
		Skipped:  summary.Skipped,
	})
}
