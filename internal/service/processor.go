package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/helicon-hq/helicon/internal/metrics"
	"github.com/helicon-hq/helicon/internal/telemetry"
)

// embedBatchSize is the number of chunk texts sent to the embedding
// provider per call during an ingestion run.
const embedBatchSize = 5

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ContentFetcher defines the interface for retrieving url source content
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// SourceRepositoryInterface defines the repository interface for knowledge source persistence
type SourceRepositoryInterface interface {
	Create(ctx context.Context, s *domain.KnowledgeSource) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeSource, error)
	List(ctx context.Context, filter SourceFilter) ([]*domain.KnowledgeSource, error)
	ListRefreshable(ctx context.Context, workspaceID string) ([]*domain.KnowledgeSource, error)
	UpdateStatus(ctx context.Context, id string, status domain.SourceStatus) error
	MarkReady(ctx context.Context, id string, chunkCount int, syncedAt time.Time) error
	MarkError(ctx context.Context, id string, message string) error
	Delete(ctx context.Context, id string) error
}

// ChunkRepositoryInterface defines the repository interface for chunk persistence and search
type ChunkRepositoryInterface interface {
	ReplaceForSource(ctx context.Context, sourceID string, chunks []domain.KnowledgeChunk) error
	InsertBatch(ctx context.Context, chunks []domain.KnowledgeChunk) error
	DeleteBySource(ctx context.Context, sourceID string) error
	ListBySource(ctx context.Context, sourceID string, afterIndex int, limit int) ([]*domain.KnowledgeChunk, error)
	SearchByEmbedding(ctx context.Context, embedding []float32, filter SearchFilter, limit int) ([]domain.ChunkMatch, error)
}

// ProcessorService turns a registered knowledge source into its embedded
// chunk set: extract, chunk, embed, store.
type ProcessorService struct {
	sources  SourceRepositoryInterface
	chunks   ChunkRepositoryInterface
	pages    PageRepositoryInterface
	embedder EmbeddingClient
	fetcher  ContentFetcher
	uuidGen  UUIDGenerator
	chunkCfg ChunkConfig
	metrics  *metrics.Metrics
}

// NewProcessorService creates a new ProcessorService instance
func NewProcessorService(
	sources SourceRepositoryInterface,
	chunks ChunkRepositoryInterface,
	pages PageRepositoryInterface,
	embedder EmbeddingClient,
	fetcher ContentFetcher,
	m *metrics.Metrics,
) *ProcessorService {
	return NewProcessorServiceWithUUIDGen(sources, chunks, pages, embedder, fetcher, m, &DefaultUUIDGenerator{})
}

// NewProcessorServiceWithUUIDGen creates a new ProcessorService with custom UUID generator (for testing)
func NewProcessorServiceWithUUIDGen(
	sources SourceRepositoryInterface,
	chunks ChunkRepositoryInterface,
	pages PageRepositoryInterface,
	embedder EmbeddingClient,
	fetcher ContentFetcher,
	m *metrics.Metrics,
	uuidGen UUIDGenerator,
) *ProcessorService {
	if m == nil {
		m = metrics.NopMetrics()
	}
	return &ProcessorService{
		sources:  sources,
		chunks:   chunks,
		pages:    pages,
		embedder: embedder,
		fetcher:  fetcher,
		uuidGen:  uuidGen,
		chunkCfg: DefaultChunkConfig(),
		metrics:  m,
	}
}

// ProcessSource runs one full ingestion pass for a source. Failures mark the
// source 'error' with the failure message and are terminal until an explicit
// refresh; there are no retries. Chunk batches inserted before a mid-run
// failure are left in place.
func (s *ProcessorService) ProcessSource(ctx context.Context, sourceID string, directContent string) error {
	ctx, span := telemetry.StartSpan(ctx, "ProcessorService.ProcessSource", telemetry.SpanAttributes{
		SourceID:  sourceID,
		Operation: "ingest",
	})
	defer span.End()

	start := time.Now()

	source, err := s.sources.GetByID(ctx, sourceID)
	if err != nil {
		return err
	}

	if err := s.sources.UpdateStatus(ctx, sourceID, domain.SourceStatusProcessing); err != nil {
		return err
	}

	chunkCount, err := s.ingest(ctx, source, directContent)
	if err != nil {
		span.SetError(err)
		s.metrics.IngestRuns.WithLabelValues("error").Inc()
		if markErr := s.sources.MarkError(ctx, sourceID, sourceErrorMessage(err)); markErr != nil {
			return markErr
		}
		return err
	}

	if err := s.sources.MarkReady(ctx, sourceID, chunkCount, time.Now().UTC()); err != nil {
		return err
	}

	s.metrics.IngestRuns.WithLabelValues("ok").Inc()
	s.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	return nil
}

func (s *ProcessorService) ingest(ctx context.Context, source *domain.KnowledgeSource, directContent string) (int, error) {
	content, err := s.extractContent(ctx, source, directContent)
	if err != nil {
		return 0, err
	}

	if strings.TrimSpace(content) == "" {
		return 0, domain.ErrEmptyContent
	}

	pieces := chunkContent(content, s.chunkCfg)
	if len(pieces) == 0 {
		// Everything was dropped as too small. The previous chunk set is
		// still cleared; zero chunks is a valid ready state.
		if err := s.chunks.DeleteBySource(ctx, source.ID); err != nil {
			return 0, err
		}
		return 0, nil
	}

	now := time.Now().UTC()
	inserted := 0

	for batchStart := 0; batchStart < len(pieces); batchStart += embedBatchSize {
		batchEnd := batchStart + embedBatchSize
		if batchEnd > len(pieces) {
			batchEnd = len(pieces)
		}
		batch := pieces[batchStart:batchEnd]

		texts := make([]string, len(batch))
		for i, piece := range batch {
			texts[i] = piece.Content
		}

		embeddings, err := s.embedder.GenerateEmbeddings(ctx, texts)
		if err != nil {
			return inserted, err
		}

		rows := make([]domain.KnowledgeChunk, len(batch))
		for i, piece := range batch {
			rows[i] = domain.KnowledgeChunk{
				ID:          s.uuidGen.NewString(),
				SourceID:    source.ID,
				ChunkIndex:  batchStart + i,
				Heading:     piece.Heading,
				Content:     piece.Content,
				TokenCount:  domain.EstimateTokens(piece.Content),
				Embedding:   embeddings[i],
				Scope:       source.Scope,
				WorkspaceID: source.WorkspaceID,
				SpaceID:     source.SpaceID,
				CreatedAt:   now,
			}
		}

		// The first batch replaces the previous chunk set; later batches
		// append. No wrapping transaction, so a reader racing a refresh may
		// briefly see a partial set.
		if batchStart == 0 {
			err = s.chunks.ReplaceForSource(ctx, source.ID, rows)
		} else {
			err = s.chunks.InsertBatch(ctx, rows)
		}
		if err != nil {
			return inserted, err
		}

		inserted += len(rows)
		s.metrics.IngestChunks.Add(float64(len(rows)))
	}

	return inserted, nil
}

// extractContent resolves a source's raw text by type.
func (s *ProcessorService) extractContent(ctx context.Context, source *domain.KnowledgeSource, directContent string) (string, error) {
	switch source.Type {
	case domain.SourceTypeURL:
		content, err := s.fetcher.Fetch(ctx, source.Origin)
		if err != nil {
			return "", domain.NewDomainErrorWithCause(domain.ErrCodeUpstream, "source fetch failed", err)
		}
		return content, nil

	case domain.SourceTypePage:
		page, err := s.pages.GetByID(ctx, source.Origin)
		if err != nil {
			return "", err
		}
		return "# " + page.Title + "\n\n" + page.PlainText, nil

	case domain.SourceTypeMarkdown:
		if strings.TrimSpace(directContent) == "" {
			return "", domain.ErrNoDirectContent
		}
		return directContent, nil

	case domain.SourceTypeFile:
		return "", domain.ErrFileNotImplemented

	default:
		return "", domain.ErrInvalidSourceType
	}
}

// sourceErrorMessage extracts the human-readable message stored on a failed
// source, dropping the domain error code prefix.
func sourceErrorMessage(err error) string {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		if domainErr.Err != nil {
			return domainErr.Message + ": " + domainErr.Err.Error()
		}
		return domainErr.Message
	}
	return err.Error()
}
