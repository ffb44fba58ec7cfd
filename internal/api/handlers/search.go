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

type KnowledgeSearchService interface {
	SearchKnowledge(ctx context.Context, input service.SearchInput) ([]domain.ChunkMatch, error)
}

type SearchHandler struct {
	svc KnowledgeSearchService
}

func NewSearchHandler(svc KnowledgeSearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query   string `json:"query"`
	SpaceID string `json:"space_id,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

type ChunkMatchResponse struct {
	ID         string  `json:"id"`
	SourceID   string  `json:"source_id"`
	ChunkIndex int     `json:"chunk_index"`
	Heading    string  `json:"heading,omitempty"`
	Content    string  `json:"content"`
	TokenCount int     `json:"token_count"`
	Similarity float64 `json:"similarity"`
}

type SearchResponse struct {
	Results []*ChunkMatchResponse `json:"results"`
}

func chunkMatchToResponse(m domain.ChunkMatch) *ChunkMatchResponse {
	return &ChunkMatchResponse{
		ID:         m.Chunk.ID,
		SourceID:   m.Chunk.SourceID,
		ChunkIndex: m.Chunk.ChunkIndex,
		Heading:    m.Chunk.Heading,
		Content:    m.Chunk.Content,
		TokenCount: m.Chunk.TokenCount,
		Similarity: m.Similarity,
	}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	spaceID := req.SpaceID
	if spaceID == "" {
		spaceID = middleware.GetSpaceID(r.Context())
	}

	input := service.SearchInput{
		WorkspaceID: middleware.GetWorkspaceID(r.Context()),
		SpaceID:     spaceID,
		Query:       req.Query,
		Limit:       req.Limit,
	}

	matches, err := h.svc.SearchKnowledge(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]*ChunkMatchResponse, len(matches))
	for i, m := range matches {
		results[i] = chunkMatchToResponse(m)
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: results})
}
