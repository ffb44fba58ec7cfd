package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/helicon-hq/helicon/internal/domain"
)

// RefreshSourceLister lists the sources a scheduled sweep can re-ingest
type RefreshSourceLister interface {
	ListRefreshable(ctx context.Context, workspaceID string) ([]*domain.KnowledgeSource, error)
}

// RefreshSubmitter enqueues the runs a sweep produces
type RefreshSubmitter interface {
	Submit(ctx context.Context, sourceID string, directContent string) error
}

// RefreshScheduler periodically re-enqueues every url and page source across
// all workspaces. Markdown sources never appear in a sweep: their content
// only exists inside explicit API calls.
type RefreshScheduler struct {
	sources  RefreshSourceLister
	queue    RefreshSubmitter
	schedule string
	cron     *cron.Cron
}

// NewRefreshScheduler creates a new RefreshScheduler instance. An empty
// schedule disables it.
func NewRefreshScheduler(sources RefreshSourceLister, queue RefreshSubmitter, schedule string) *RefreshScheduler {
	return &RefreshScheduler{
		sources:  sources,
		queue:    queue,
		schedule: schedule,
	}
}

// Start registers the sweep with the cron runner and begins scheduling
func (s *RefreshScheduler) Start(ctx context.Context) error {
	if s.schedule == "" {
		log.Println("Refresh scheduler disabled: no schedule configured")
		return nil
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() { s.sweep(ctx) }); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", s.schedule, err)
	}
	s.cron.Start()

	log.Printf("Refresh scheduler started with schedule %q", s.schedule)
	return nil
}

// Stop halts scheduling and waits for a sweep already running to finish
func (s *RefreshScheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	log.Println("Refresh scheduler shutdown complete")
}

func (s *RefreshScheduler) sweep(ctx context.Context) {
	sources, err := s.sources.ListRefreshable(ctx, "")
	if err != nil {
		log.Printf("Refresh sweep failed to list sources: %v", err)
		return
	}

	enqueued, skipped := 0, 0
	for _, source := range sources {
		err := s.queue.Submit(ctx, source.ID, "")
		switch {
		case err == nil:
			enqueued++
		case errors.Is(err, domain.ErrQueueStopped):
			log.Println("Refresh sweep aborted: ingest queue stopped")
			return
		case errors.Is(err, domain.ErrIngestionInFlight), errors.Is(err, domain.ErrQueueFull):
			skipped++
		default:
			log.Printf("Refresh sweep failed to enqueue source %s: %v", source.ID, err)
			skipped++
		}
	}

	log.Printf("Refresh sweep enqueued %d sources, skipped %d", enqueued, skipped)
}
