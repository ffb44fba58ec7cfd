package service

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/helicon-hq/helicon/internal/metrics"
	"github.com/helicon-hq/helicon/internal/telemetry"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	// relatedWorkSeeds caps how many merged hits seed graph traversal.
	relatedWorkSeeds = 5
	// relatedWorkDepth is how many relation hops out from a seed are followed.
	relatedWorkDepth = 2
)

// PageRepositoryInterface defines the repository interface for page projections
type PageRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*domain.TypedPage, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.TypedPage, error)
	FullTextSearch(ctx context.Context, query, workspaceID, spaceID string, limit int) ([]*domain.TypedPage, error)
	SourcePages(ctx context.Context, sourceIDs []string) (map[string]*domain.TypedPage, error)
}

// TaskRepositoryInterface defines the repository interface for task projections
type TaskRepositoryInterface interface {
	FindOpenQuestions(ctx context.Context, query, workspaceID, spaceID string, limit int) ([]*domain.Task, error)
}

// GraphRepositoryInterface defines the repository interface for page relations
type GraphRepositoryInterface interface {
	RelatedPages(ctx context.Context, seedPageID, workspaceID string, maxDepth int) ([]*domain.TypedPage, error)
	Contradictions(ctx context.Context, workspaceID string) ([]domain.ContradictionEdge, error)
}

// SearchServiceInterface defines the knowledge search used during assembly
type SearchServiceInterface interface {
	SearchKnowledge(ctx context.Context, input SearchInput) ([]domain.ChunkMatch, error)
}

// ContextService assembles multi-stage context bundles answering "what do we
// know about X?" queries. Every call recomputes the bundle from scratch; a
// failing stage degrades to an empty contribution instead of failing the call.
type ContextService struct {
	pages   PageRepositoryInterface
	tasks   TaskRepositoryInterface
	graph   GraphRepositoryInterface
	search  SearchServiceInterface
	metrics *metrics.Metrics
}

// NewContextService creates a new ContextService instance
func NewContextService(
	pages PageRepositoryInterface,
	tasks TaskRepositoryInterface,
	graph GraphRepositoryInterface,
	search SearchServiceInterface,
	m *metrics.Metrics,
) *ContextService {
	if m == nil {
		m = metrics.NopMetrics()
	}
	return &ContextService{
		pages:   pages,
		tasks:   tasks,
		graph:   graph,
		search:  search,
		metrics: m,
	}
}

// ContextQueryInput represents the input for assembling a context bundle
type ContextQueryInput struct {
	WorkspaceID string
	SpaceID     string
	Query       string
	Limit       int
}

// AssembleContext builds a context bundle for the query. Text search,
// knowledge search, and the open-question lookup run concurrently; the
// remaining stages operate on the merged page set they produce.
func (s *ContextService) AssembleContext(ctx context.Context, input ContextQueryInput) (*domain.ContextBundle, error) {
	ctx, span := telemetry.StartSpan(ctx, "ContextService.AssembleContext", telemetry.SpanAttributes{
		WorkspaceID: input.WorkspaceID,
		SpaceID:     input.SpaceID,
		Operation:   "assemble_context",
	})
	defer span.End()

	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	if input.WorkspaceID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "workspace id is required")
	}

	limit := clampLimit(input.Limit)

	var (
		directHits    []*domain.TypedPage
		knowledgeHits []domain.ChunkMatch
		openQuestions []*domain.Task

		textStage      domain.StageResult
		knowledgeStage domain.StageResult
		questionStage  domain.StageResult
	)

	// Each branch writes only its own slot and swallows its own failure, so
	// the group itself never errors.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pages, err := s.pages.FullTextSearch(gctx, input.Query, input.WorkspaceID, input.SpaceID, limit)
		if err != nil {
			textStage = domain.DegradedStage(domain.StageTextSearch, err)
			return nil
		}
		directHits = pages
		textStage = domain.OKStage(domain.StageTextSearch)
		return nil
	})
	g.Go(func() error {
		matches, err := s.search.SearchKnowledge(gctx, SearchInput{
			WorkspaceID: input.WorkspaceID,
			SpaceID:     input.SpaceID,
			Query:       input.Query,
			Limit:       limit,
		})
		if err != nil {
			knowledgeStage = domain.DegradedStage(domain.StageKnowledgeSearch, err)
			return nil
		}
		knowledgeHits = matches
		knowledgeStage = domain.OKStage(domain.StageKnowledgeSearch)
		return nil
	})
	g.Go(func() error {
		tasks, err := s.tasks.FindOpenQuestions(gctx, input.Query, input.WorkspaceID, input.SpaceID, limit)
		if err != nil {
			questionStage = domain.DegradedStage(domain.StageOpenQuestions, err)
			return nil
		}
		openQuestions = tasks
		questionStage = domain.OKStage(domain.StageOpenQuestions)
		return nil
	})
	_ = g.Wait()

	stages := make([]domain.StageResult, 0, 9)
	stages = append(stages, textStage, knowledgeStage)

	// Stage 3: map hit chunks back to their origin pages and merge with the
	// direct hits. Direct hits keep precedence; knowledge-only pages append
	// after, in similarity order.
	merged := make([]*domain.TypedPage, 0, len(directHits))
	seen := make(map[string]bool, len(directHits))
	for _, p := range directHits {
		if !seen[p.ID] {
			seen[p.ID] = true
			merged = append(merged, p)
		}
	}

	sourceIDs := lo.Uniq(lo.Map(knowledgeHits, func(m domain.ChunkMatch, _ int) string {
		return m.Chunk.SourceID
	}))
	if len(sourceIDs) > 0 {
		sourcePages, err := s.pages.SourcePages(ctx, sourceIDs)
		if err != nil {
			stages = append(stages, domain.DegradedStage(domain.StageKnowledgeMap, err))
		} else {
			for _, match := range knowledgeHits {
				page, ok := sourcePages[match.Chunk.SourceID]
				if !ok || seen[page.ID] {
					continue
				}
				// A system-scoped page source can map to a page outside the
				// caller's workspace; those never enter the bundle.
				if page.WorkspaceID != input.WorkspaceID {
					continue
				}
				seen[page.ID] = true
				merged = append(merged, page)
			}
			stages = append(stages, domain.OKStage(domain.StageKnowledgeMap))
		}
	} else {
		stages = append(stages, domain.OKStage(domain.StageKnowledgeMap))
	}

	// Stage 4: graph traversal out from the first few merged hits. A seed
	// whose traversal fails is dropped; the others still contribute.
	seeds := merged
	if len(seeds) > relatedWorkSeeds {
		seeds = seeds[:relatedWorkSeeds]
	}
	var related []*domain.TypedPage
	seedFailures := 0
	var firstSeedErr error
	for _, seed := range seeds {
		pages, err := s.graph.RelatedPages(ctx, seed.ID, input.WorkspaceID, relatedWorkDepth)
		if err != nil {
			seedFailures++
			if firstSeedErr == nil {
				firstSeedErr = err
			}
			log.Printf("context: related work traversal failed for page %s: %v", seed.ID, err)
			continue
		}
		for _, p := range pages {
			if !seen[p.ID] {
				seen[p.ID] = true
				related = append(related, p)
			}
		}
	}
	if len(seeds) > 0 && seedFailures == len(seeds) {
		stages = append(stages, domain.DegradedStage(domain.StageRelatedWork, firstSeedErr))
	} else {
		stages = append(stages, domain.OKStage(domain.StageRelatedWork))
	}

	// Stage 5: every collected page on one time axis, newest first.
	collected := make([]*domain.TypedPage, 0, len(merged)+len(related))
	collected = append(collected, merged...)
	collected = append(collected, related...)
	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].UpdatedAt.After(collected[j].UpdatedAt)
	})
	timeline := lo.Map(collected, func(p *domain.TypedPage, _ int) domain.TimelineEntry {
		return domain.TimelineEntry{
			PageID:    p.ID,
			Title:     p.Title,
			PageType:  p.PageType,
			Status:    p.MetadataStatus(),
			UpdatedAt: p.UpdatedAt,
		}
	})
	stages = append(stages, domain.OKStage(domain.StageTimeline))

	// Stage 6: hypothesis pages bucketed by metadata status. Unrecognized
	// statuses land in no bucket at all.
	var buckets domain.HypothesisBuckets
	for _, p := range collected {
		if p.PageType != domain.PageTypeHypothesis {
			continue
		}
		switch p.MetadataStatus() {
		case domain.HypothesisStatusValidated:
			buckets.Validated = append(buckets.Validated, *p)
		case domain.HypothesisStatusRefuted:
			buckets.Refuted = append(buckets.Refuted, *p)
		case domain.HypothesisStatusTesting:
			buckets.Testing = append(buckets.Testing, *p)
		case domain.HypothesisStatusProposed, domain.HypothesisStatusInconclusive:
			buckets.Open = append(buckets.Open, *p)
		}
	}
	stages = append(stages, domain.OKStage(domain.StageHypotheses))

	// Stage 7 ran concurrently above.
	stages = append(stages, questionStage)

	// Stage 8: contradiction edges touching at least one merged page.
	var contradictions []domain.ContradictionEdge
	edges, err := s.graph.Contradictions(ctx, input.WorkspaceID)
	if err != nil {
		stages = append(stages, domain.DegradedStage(domain.StageContradictions, err))
	} else {
		mergedIDs := make(map[string]bool, len(merged))
		for _, p := range merged {
			mergedIDs[p.ID] = true
		}
		contradictions = lo.Filter(edges, func(e domain.ContradictionEdge, _ int) bool {
			return mergedIDs[e.FromPageID] || mergedIDs[e.ToPageID]
		})
		stages = append(stages, domain.OKStage(domain.StageContradictions))
	}

	// Stage 9: split the merged hits by research type.
	experiments := lo.Filter(merged, func(p *domain.TypedPage, _ int) bool {
		return p.PageType == domain.PageTypeExperiment
	})
	papers := lo.Filter(merged, func(p *domain.TypedPage, _ int) bool {
		return p.PageType == domain.PageTypePaper
	})
	stages = append(stages, domain.OKStage(domain.StageClassification))

	bundle := &domain.ContextBundle{
		Query:          input.Query,
		DirectHits:     derefPages(directHits),
		KnowledgeHits:  knowledgeHits,
		RelatedWork:    derefPages(related),
		Timeline:       timeline,
		Hypotheses:     buckets,
		OpenQuestions:  derefTasks(openQuestions),
		Contradictions: contradictions,
		Experiments:    derefPages(experiments),
		Papers:         derefPages(papers),
		Stages:         stages,
	}

	s.metrics.ContextAssemblies.Inc()
	for _, stage := range stages {
		if stage.Status == domain.StageDegraded {
			s.metrics.ContextStageDegraded.WithLabelValues(stage.Stage).Inc()
			log.Printf("context: stage %s degraded: %s", stage.Stage, stage.Reason)
		}
	}

	return bundle, nil
}

func derefPages(pages []*domain.TypedPage) []domain.TypedPage {
	return lo.Map(pages, func(p *domain.TypedPage, _ int) domain.TypedPage { return *p })
}

func derefTasks(tasks []*domain.Task) []domain.Task {
	return lo.Map(tasks, func(t *domain.Task, _ int) domain.Task { return *t })
}
