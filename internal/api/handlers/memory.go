package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/helicon-hq/helicon/internal/api"
	"github.com/helicon-hq/helicon/internal/api/middleware"
	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/helicon-hq/helicon/internal/service"
)

type MemoryService interface {
	StoreMemory(ctx context.Context, input service.StoreMemoryInput) (*domain.Memory, error)
	SearchMemories(ctx context.Context, input service.MemorySearchInput) ([]domain.MemoryMatch, error)
}

type MemoryHandler struct {
	svc MemoryService
}

func NewMemoryHandler(svc MemoryService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

type StoreMemoryRequest struct {
	Content string `json:"content"`
	Scope   string `json:"scope,omitempty"`
	SpaceID string `json:"space_id,omitempty"`
}

type MemoryResponse struct {
	ID          string `json:"id"`
	Scope       string `json:"scope"`
	WorkspaceID string `json:"workspace_id,omitempty"`
	SpaceID     string `json:"space_id,omitempty"`
	Content     string `json:"content"`
	CreatedAt   string `json:"created_at"`
}

func memoryToResponse(m *domain.Memory) *MemoryResponse {
	return &MemoryResponse{
		ID:          m.ID,
		Scope:       string(m.Scope),
		WorkspaceID: m.WorkspaceID,
		SpaceID:     m.SpaceID,
		Content:     m.Content,
		CreatedAt:   formatTime(m.CreatedAt),
	}
}

func (h *MemoryHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req StoreMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "content is required")
		return
	}

	spaceID := req.SpaceID
	if spaceID == "" {
		spaceID = middleware.GetSpaceID(r.Context())
	}

	input := service.StoreMemoryInput{
		Content:     req.Content,
		Scope:       domain.KnowledgeScope(req.Scope),
		WorkspaceID: middleware.GetWorkspaceID(r.Context()),
		SpaceID:     spaceID,
	}

	memory, err := h.svc.StoreMemory(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, memoryToResponse(memory))
}

type MemorySearchRequest struct {
	Query         string  `json:"query"`
	SpaceID       string  `json:"space_id,omitempty"`
	Limit         int     `json:"limit,omitempty"`
	MinSimilarity float64 `json:"min_similarity,omitempty"`
}

type MemoryMatchResponse struct {
	ID         string  `json:"id"`
	Scope      string  `json:"scope"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	CreatedAt  string  `json:"created_at"`
}

type MemorySearchResponse struct {
	Results []*MemoryMatchResponse `json:"results"`
}

func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req MemorySearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	spaceID := req.SpaceID
	if spaceID == "" {
		spaceID = middleware.GetSpaceID(r.Context())
	}

	input := service.MemorySearchInput{
		WorkspaceID:   middleware.GetWorkspaceID(r.Context()),
		SpaceID:       spaceID,
		Query:         req.Query,
		Limit:         req.Limit,
		MinSimilarity: req.MinSimilarity,
	}

	matches, err := h.svc.SearchMemories(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]*MemoryMatchResponse, len(matches))
	for i, m := range matches {
		results[i] = &MemoryMatchResponse{
			ID:         m.Memory.ID,
			Scope:      string(m.Memory.Scope),
			Content:    m.Memory.Content,
			Similarity: m.Similarity,
			CreatedAt:  formatTime(m.Memory.CreatedAt),
		}
	}

	api.Success(w, http.StatusOK, MemorySearchResponse{Results: results})
}
