package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/helicon-hq/helicon/internal/service"
)

type MockKnowledgeSearchService struct {
	mock.Mock
}

func (m *MockKnowledgeSearchService) SearchKnowledge(ctx context.Context, input service.SearchInput) ([]domain.ChunkMatch, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChunkMatch), args.Error(1)
}

func TestSearchHandler_Search_Success(t *testing.T) {
	mockSvc := new(MockKnowledgeSearchService)
	handler := NewSearchHandler(mockSvc)

	matches := []domain.ChunkMatch{
		{
			Chunk: domain.KnowledgeChunk{
				ID:         "chunk-1",
				SourceID:   "source-1",
				ChunkIndex: 2,
				Heading:    "Night Ventilation",
				Content:    "Night ventilation flushes stored heat.",
				TokenCount: 10,
			},
			Similarity: 0.92,
		},
	}
	mockSvc.On("SearchKnowledge", mock.Anything, service.SearchInput{
		WorkspaceID: "workspace-1",
		SpaceID:     "space-1",
		Query:       "night ventilation",
		Limit:       5,
	}).Return(matches, nil)

	body := `{"query":"night ventilation","limit":5}`
	req := requestWithTenant(http.MethodPost, "/knowledge/search", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	results := data["results"].([]interface{})
	require.Len(t, results, 1)
	hit := results[0].(map[string]interface{})
	assert.Equal(t, "chunk-1", hit["id"])
	assert.Equal(t, 0.92, hit["similarity"])
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_SpaceFromBody(t *testing.T) {
	mockSvc := new(MockKnowledgeSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("SearchKnowledge", mock.Anything, mock.MatchedBy(func(input service.SearchInput) bool {
		return input.SpaceID == "space-override"
	})).Return([]domain.ChunkMatch{}, nil)

	body := `{"query":"thermal mass","space_id":"space-override"}`
	req := requestWithTenant(http.MethodPost, "/knowledge/search", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_InvalidJSON(t *testing.T) {
	mockSvc := new(MockKnowledgeSearchService)
	handler := NewSearchHandler(mockSvc)

	req := requestWithTenant(http.MethodPost, "/knowledge/search", []byte(`{`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "SearchKnowledge")
}

func TestSearchHandler_Search_EmptyQuery(t *testing.T) {
	mockSvc := new(MockKnowledgeSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("SearchKnowledge", mock.Anything, mock.Anything).Return(nil, domain.ErrEmptyQuery)

	body := `{"query":""}`
	req := requestWithTenant(http.MethodPost, "/knowledge/search", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "query text is required")
}

func TestSearchHandler_Search_EmbeddingUnavailable(t *testing.T) {
	mockSvc := new(MockKnowledgeSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("SearchKnowledge", mock.Anything, mock.Anything).Return(nil, domain.ErrEmbeddingUnavailable)

	body := `{"query":"thermal mass"}`
	req := requestWithTenant(http.MethodPost, "/knowledge/search", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "UPSTREAM_ERROR")
}
