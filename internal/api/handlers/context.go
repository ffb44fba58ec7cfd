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

// pageSnippetChars bounds how much page body travels in a bundle. Callers
// that need the full text fetch the page from the workspace product.
const pageSnippetChars = 300

type AssemblyService interface {
	AssembleContext(ctx context.Context, input service.ContextQueryInput) (*domain.ContextBundle, error)
}

type ContextHandler struct {
	svc AssemblyService
}

func NewContextHandler(svc AssemblyService) *ContextHandler {
	return &ContextHandler{svc: svc}
}

type ContextQueryRequest struct {
	Query   string `json:"query"`
	SpaceID string `json:"space_id,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

type BundlePageResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PageType  string `json:"page_type"`
	Status    string `json:"status,omitempty"`
	SpaceID   string `json:"space_id,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

type TimelineEntryResponse struct {
	PageID    string `json:"page_id"`
	Title     string `json:"title"`
	PageType  string `json:"page_type"`
	Status    string `json:"status,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

type HypothesesResponse struct {
	Validated []*BundlePageResponse `json:"validated"`
	Refuted   []*BundlePageResponse `json:"refuted"`
	Testing   []*BundlePageResponse `json:"testing"`
	Open      []*BundlePageResponse `json:"open"`
}

type OpenQuestionResponse struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	SpaceID string   `json:"space_id,omitempty"`
	Labels  []string `json:"labels,omitempty"`
}

type ContradictionResponse struct {
	FromPageID string `json:"from_page_id"`
	ToPageID   string `json:"to_page_id"`
	Type       string `json:"type"`
}

type StageResultResponse struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

type ContextBundleResponse struct {
	Query          string                   `json:"query"`
	DirectHits     []*BundlePageResponse    `json:"direct_hits"`
	KnowledgeHits  []*ChunkMatchResponse    `json:"knowledge_hits"`
	RelatedWork    []*BundlePageResponse    `json:"related_work"`
	Timeline       []*TimelineEntryResponse `json:"timeline"`
	Hypotheses     HypothesesResponse       `json:"hypotheses"`
	OpenQuestions  []*OpenQuestionResponse  `json:"open_questions"`
	Contradictions []*ContradictionResponse `json:"contradictions"`
	Experiments    []*BundlePageResponse    `json:"experiments"`
	Papers         []*BundlePageResponse    `json:"papers"`
	Stages         []*StageResultResponse   `json:"stages"`
}

func pageToResponse(p domain.TypedPage) *BundlePageResponse {
	return &BundlePageResponse{
		ID:        p.ID,
		Title:     p.Title,
		PageType:  string(p.PageType),
		Status:    p.MetadataStatus(),
		SpaceID:   p.SpaceID,
		Snippet:   snippet(p.PlainText),
		UpdatedAt: formatTime(p.UpdatedAt),
	}
}

func pagesToResponse(pages []domain.TypedPage) []*BundlePageResponse {
	out := make([]*BundlePageResponse, len(pages))
	for i, p := range pages {
		out[i] = pageToResponse(p)
	}
	return out
}

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= pageSnippetChars {
		return text
	}
	return string(runes[:pageSnippetChars])
}

func bundleToResponse(b *domain.ContextBundle) *ContextBundleResponse {
	resp := &ContextBundleResponse{
		Query:       b.Query,
		DirectHits:  pagesToResponse(b.DirectHits),
		RelatedWork: pagesToResponse(b.RelatedWork),
		Experiments: pagesToResponse(b.Experiments),
		Papers:      pagesToResponse(b.Papers),
		Hypotheses: HypothesesResponse{
			Validated: pagesToResponse(b.Hypotheses.Validated),
			Refuted:   pagesToResponse(b.Hypotheses.Refuted),
			Testing:   pagesToResponse(b.Hypotheses.Testing),
			Open:      pagesToResponse(b.Hypotheses.Open),
		},
	}

	resp.KnowledgeHits = make([]*ChunkMatchResponse, len(b.KnowledgeHits))
	for i, m := range b.KnowledgeHits {
		resp.KnowledgeHits[i] = chunkMatchToResponse(m)
	}

	resp.Timeline = make([]*TimelineEntryResponse, len(b.Timeline))
	for i, e := range b.Timeline {
		resp.Timeline[i] = &TimelineEntryResponse{
			PageID:    e.PageID,
			Title:     e.Title,
			PageType:  string(e.PageType),
			Status:    e.Status,
			UpdatedAt: formatTime(e.UpdatedAt),
		}
	}

	resp.OpenQuestions = make([]*OpenQuestionResponse, len(b.OpenQuestions))
	for i, task := range b.OpenQuestions {
		resp.OpenQuestions[i] = &OpenQuestionResponse{
			ID:      task.ID,
			Title:   task.Title,
			SpaceID: task.SpaceID,
			Labels:  task.Labels,
		}
	}

	resp.Contradictions = make([]*ContradictionResponse, len(b.Contradictions))
	for i, edge := range b.Contradictions {
		resp.Contradictions[i] = &ContradictionResponse{
			FromPageID: edge.FromPageID,
			ToPageID:   edge.ToPageID,
			Type:       edge.Type,
		}
	}

	resp.Stages = make([]*StageResultResponse, len(b.Stages))
	for i, s := range b.Stages {
		resp.Stages[i] = &StageResultResponse{
			Stage:  s.Stage,
			Status: string(s.Status),
			Reason: s.Reason,
		}
	}

	return resp
}

func (h *ContextHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req ContextQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	spaceID := req.SpaceID
	if spaceID == "" {
		spaceID = middleware.GetSpaceID(r.Context())
	}

	input := service.ContextQueryInput{
		WorkspaceID: middleware.GetWorkspaceID(r.Context()),
		SpaceID:     spaceID,
		Query:       req.Query,
		Limit:       req.Limit,
	}

	bundle, err := h.svc.AssembleContext(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, bundleToResponse(bundle))
}
