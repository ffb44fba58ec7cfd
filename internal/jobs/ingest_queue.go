package jobs

import (
	"context"
	"log"
	"sync"

	"github.com/helicon-hq/helicon/internal/domain"
)

const (
	// DefaultIngestWorkers is the number of concurrent ingestion runs
	DefaultIngestWorkers = 2

	// DefaultIngestQueueSize is the submission buffer capacity
	DefaultIngestQueueSize = 64
)

// SourceProcessor defines the interface for running one ingestion pass
type SourceProcessor interface {
	ProcessSource(ctx context.Context, sourceID string, directContent string) error
}

// IngestJob is one queued ingestion run. DirectContent is only set for
// markdown sources, whose body travels with the submission.
type IngestJob struct {
	SourceID      string
	DirectContent string
}

// IngestQueue fans queued ingestion runs out to a fixed set of workers.
// A source has at most one run queued or active at a time; a second
// submission is rejected until the first finishes.
type IngestQueue struct {
	processor SourceProcessor
	workers   int

	mu       sync.Mutex
	jobs     chan IngestJob
	inFlight map[string]bool
	stopped  bool

	wg sync.WaitGroup
}

// NewIngestQueue creates a new IngestQueue instance
func NewIngestQueue(processor SourceProcessor, workers, queueSize int) *IngestQueue {
	if workers <= 0 {
		workers = DefaultIngestWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultIngestQueueSize
	}
	return &IngestQueue{
		processor: processor,
		workers:   workers,
		jobs:      make(chan IngestJob, queueSize),
		inFlight:  make(map[string]bool),
	}
}

// Start launches the worker goroutines
func (q *IngestQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	log.Printf("Ingest queue started with %d workers (capacity %d)", q.workers, cap(q.jobs))
}

// Submit enqueues an ingestion run for the source. It never blocks: a full
// queue rejects the submission, as does a run already queued or active for
// the same source.
func (q *IngestQueue) Submit(ctx context.Context, sourceID string, directContent string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return domain.ErrQueueStopped
	}
	if q.inFlight[sourceID] {
		return domain.ErrIngestionInFlight
	}

	select {
	case q.jobs <- IngestJob{SourceID: sourceID, DirectContent: directContent}:
		q.inFlight[sourceID] = true
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Stop rejects further submissions, lets the workers drain what is already
// queued, and returns once they have finished.
func (q *IngestQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	close(q.jobs)
	q.wg.Wait()
	log.Println("Ingest queue shutdown complete")
}

func (q *IngestQueue) worker(ctx context.Context) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.process(ctx, job)
	}
}

func (q *IngestQueue) process(ctx context.Context, job IngestJob) {
	defer q.clearInFlight(job.SourceID)

	// The processor records the outcome on the source row; a failed run is
	// not an error of the queue itself.
	if err := q.processor.ProcessSource(ctx, job.SourceID, job.DirectContent); err != nil {
		log.Printf("Ingest run failed for source %s: %v", job.SourceID, err)
	}
}

func (q *IngestQueue) clearInFlight(sourceID string) {
	q.mu.Lock()
	delete(q.inFlight, sourceID)
	q.mu.Unlock()
}
