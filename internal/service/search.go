package service

import (
	"context"
	"strings"
	"time"

	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/helicon-hq/helicon/internal/metrics"
	"github.com/helicon-hq/helicon/internal/telemetry"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50

	// Memory hits below this similarity are noise more often than signal.
	defaultMinSimilarity = 0.5
)

// SearchFilter limits vector search to rows visible to the caller
type SearchFilter struct {
	WorkspaceID string
	SpaceID     string
}

// MemoryRepositoryInterface defines the repository interface for agent memories
type MemoryRepositoryInterface interface {
	Insert(ctx context.Context, m *domain.Memory) error
	SearchByEmbedding(ctx context.Context, embedding []float32, filter SearchFilter, minSimilarity float64, limit int) ([]domain.MemoryMatch, error)
}

// VectorSearchService answers similarity queries over knowledge chunks and
// agent memories, and persists new memory embeddings.
type VectorSearchService struct {
	chunks   ChunkRepositoryInterface
	memories MemoryRepositoryInterface
	embedder EmbeddingClient
	uuidGen  UUIDGenerator
	metrics  *metrics.Metrics
}

// NewVectorSearchService creates a new VectorSearchService instance
func NewVectorSearchService(
	chunks ChunkRepositoryInterface,
	memories MemoryRepositoryInterface,
	embedder EmbeddingClient,
	m *metrics.Metrics,
) *VectorSearchService {
	if m == nil {
		m = metrics.NopMetrics()
	}
	return &VectorSearchService{
		chunks:   chunks,
		memories: memories,
		embedder: embedder,
		uuidGen:  &DefaultUUIDGenerator{},
		metrics:  m,
	}
}

// NewVectorSearchServiceWithUUIDGen creates a new VectorSearchService with custom UUID generator (for testing)
func NewVectorSearchServiceWithUUIDGen(
	chunks ChunkRepositoryInterface,
	memories MemoryRepositoryInterface,
	embedder EmbeddingClient,
	m *metrics.Metrics,
	uuidGen UUIDGenerator,
) *VectorSearchService {
	svc := NewVectorSearchService(chunks, memories, embedder, m)
	svc.uuidGen = uuidGen
	return svc
}

// EmbedText embeds a single piece of text via the provider
func (s *VectorSearchService) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyQuery
	}
	return s.embedder.GenerateEmbedding(ctx, text)
}

// SearchInput represents the input for a knowledge chunk search. Either Query
// or QueryEmbedding must be set; a caller that already holds an embedding
// skips the provider round trip.
type SearchInput struct {
	WorkspaceID    string
	SpaceID        string
	Query          string
	QueryEmbedding []float32
	Limit          int
}

// SearchKnowledge returns the chunks most similar to the query, most similar
// first, limited to rows visible to the caller.
func (s *VectorSearchService) SearchKnowledge(ctx context.Context, input SearchInput) ([]domain.ChunkMatch, error) {
	ctx, span := telemetry.StartSpan(ctx, "VectorSearchService.SearchKnowledge", telemetry.SpanAttributes{
		WorkspaceID: input.WorkspaceID,
		SpaceID:     input.SpaceID,
		Operation:   "search_knowledge",
	})
	defer span.End()

	embedding := input.QueryEmbedding
	if len(embedding) == 0 {
		var err error
		embedding, err = s.EmbedText(ctx, input.Query)
		if err != nil {
			return nil, err
		}
	}

	filter := SearchFilter{WorkspaceID: input.WorkspaceID, SpaceID: input.SpaceID}
	matches, err := s.chunks.SearchByEmbedding(ctx, embedding, filter, clampLimit(input.Limit))
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	s.metrics.SearchQueries.WithLabelValues("knowledge").Inc()
	return matches, nil
}

// MemorySearchInput represents the input for an agent memory search
type MemorySearchInput struct {
	WorkspaceID   string
	SpaceID       string
	Query         string
	Limit         int
	MinSimilarity float64
}

// SearchMemories returns memories similar to the query, excluding hits below
// the minimum similarity floor outright.
func (s *VectorSearchService) SearchMemories(ctx context.Context, input MemorySearchInput) ([]domain.MemoryMatch, error) {
	ctx, span := telemetry.StartSpan(ctx, "VectorSearchService.SearchMemories", telemetry.SpanAttributes{
		WorkspaceID: input.WorkspaceID,
		SpaceID:     input.SpaceID,
		Operation:   "search_memories",
	})
	defer span.End()

	embedding, err := s.EmbedText(ctx, input.Query)
	if err != nil {
		return nil, err
	}

	minSimilarity := input.MinSimilarity
	if minSimilarity <= 0 {
		minSimilarity = defaultMinSimilarity
	}

	filter := SearchFilter{WorkspaceID: input.WorkspaceID, SpaceID: input.SpaceID}
	matches, err := s.memories.SearchByEmbedding(ctx, embedding, filter, minSimilarity, clampLimit(input.Limit))
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	s.metrics.SearchQueries.WithLabelValues("memory").Inc()
	return matches, nil
}

// StoreMemoryInput represents the input for persisting one agent memory
type StoreMemoryInput struct {
	Content     string
	Scope       domain.KnowledgeScope
	WorkspaceID string
	SpaceID     string
}

// StoreMemory embeds the content and persists one memory row. The row is
// searchable as soon as it commits.
func (s *VectorSearchService) StoreMemory(ctx context.Context, input StoreMemoryInput) (*domain.Memory, error) {
	ctx, span := telemetry.StartSpan(ctx, "VectorSearchService.StoreMemory", telemetry.SpanAttributes{
		WorkspaceID: input.WorkspaceID,
		SpaceID:     input.SpaceID,
		Operation:   "store_memory",
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

	workspaceID := input.WorkspaceID
	spaceID := input.SpaceID
	switch scope {
	case domain.ScopeSystem:
		workspaceID = ""
		spaceID = ""
	case domain.ScopeWorkspace:
		spaceID = ""
	}

	memory := domain.NewMemory(
		s.uuidGen.NewString(),
		scope,
		workspaceID,
		spaceID,
		strings.TrimSpace(input.Content),
		time.Now().UTC(),
	)

	if err := domain.ValidateMemory(memory); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid memory", err)
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, memory.Content)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	memory.Embedding = embedding

	if err := s.memories.Insert(ctx, memory); err != nil {
		span.SetError(err)
		return nil, err
	}

	return memory, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultSearchLimit
	}
	if limit > maxSearchLimit {
		return maxSearchLimit
	}
	return limit
}
