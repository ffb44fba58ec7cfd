package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/helicon-hq/helicon/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingProcessor records every run it is handed. Safe for use from
// multiple workers.
type recordingProcessor struct {
	mu   sync.Mutex
	runs []IngestJob
	err  error
}

func (p *recordingProcessor) ProcessSource(ctx context.Context, sourceID string, directContent string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, IngestJob{SourceID: sourceID, DirectContent: directContent})
	return p.err
}

func (p *recordingProcessor) Runs() []IngestJob {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]IngestJob(nil), p.runs...)
}

// TestIngestQueue_ProcessesSubmissions tests that submitted runs reach the processor
func TestIngestQueue_ProcessesSubmissions(t *testing.T) {
	processor := &recordingProcessor{}
	queue := NewIngestQueue(processor, 2, 8)
	queue.Start(context.Background())

	require.NoError(t, queue.Submit(context.Background(), "source-1", "# Notes\n\nBody."))
	require.NoError(t, queue.Submit(context.Background(), "source-2", ""))

	// Stop drains everything still queued before returning.
	queue.Stop()

	assert.ElementsMatch(t, []IngestJob{
		{SourceID: "source-1", DirectContent: "# Notes\n\nBody."},
		{SourceID: "source-2", DirectContent: ""},
	}, processor.Runs())
}

// TestIngestQueue_RejectsDuplicateSubmission tests the per-source in-flight guard
func TestIngestQueue_RejectsDuplicateSubmission(t *testing.T) {
	processor := &recordingProcessor{}
	// Not started, so the first submission stays queued.
	queue := NewIngestQueue(processor, 1, 8)

	require.NoError(t, queue.Submit(context.Background(), "source-1", ""))

	err := queue.Submit(context.Background(), "source-1", "")
	assert.ErrorIs(t, err, domain.ErrIngestionInFlight)

	// Other sources are unaffected.
	assert.NoError(t, queue.Submit(context.Background(), "source-2", ""))
}

// TestIngestQueue_RejectsWhenFull tests the bounded buffer
func TestIngestQueue_RejectsWhenFull(t *testing.T) {
	processor := &recordingProcessor{}
	queue := NewIngestQueue(processor, 1, 1)

	require.NoError(t, queue.Submit(context.Background(), "source-1", ""))

	err := queue.Submit(context.Background(), "source-2", "")
	assert.ErrorIs(t, err, domain.ErrQueueFull)

	// A rejected submission must not mark the source in flight.
	err = queue.Submit(context.Background(), "source-2", "")
	assert.ErrorIs(t, err, domain.ErrQueueFull)
}

// TestIngestQueue_AllowsResubmissionAfterRun tests that the in-flight guard
// clears once a run finishes, whether it succeeded or failed
func TestIngestQueue_AllowsResubmissionAfterRun(t *testing.T) {
	processor := &recordingProcessor{err: errors.New("ingest failed")}
	queue := NewIngestQueue(processor, 1, 8)
	queue.Start(context.Background())
	defer queue.Stop()

	require.NoError(t, queue.Submit(context.Background(), "source-1", ""))

	require.Eventually(t, func() bool {
		return queue.Submit(context.Background(), "source-1", "") == nil
	}, time.Second, 10*time.Millisecond)
}

// TestIngestQueue_StopRejectsNewSubmissions tests submission after shutdown
func TestIngestQueue_StopRejectsNewSubmissions(t *testing.T) {
	processor := &recordingProcessor{}
	queue := NewIngestQueue(processor, 1, 8)
	queue.Start(context.Background())
	queue.Stop()

	err := queue.Submit(context.Background(), "source-1", "")
	assert.ErrorIs(t, err, domain.ErrQueueStopped)

	// Stopping twice is safe.
	queue.Stop()
}

// TestIngestQueue_StopDrainsQueuedRuns tests that shutdown completes queued work
func TestIngestQueue_StopDrainsQueuedRuns(t *testing.T) {
	processor := &recordingProcessor{}
	queue := NewIngestQueue(processor, 2, 8)

	// Queue up work before any worker runs.
	require.NoError(t, queue.Submit(context.Background(), "source-1", ""))
	require.NoError(t, queue.Submit(context.Background(), "source-2", ""))
	require.NoError(t, queue.Submit(context.Background(), "source-3", ""))

	queue.Start(context.Background())
	queue.Stop()

	assert.Len(t, processor.Runs(), 3)
}

// TestIngestQueue_DefaultSizing tests the constructor fallbacks
func TestIngestQueue_DefaultSizing(t *testing.T) {
	queue := NewIngestQueue(&recordingProcessor{}, 0, 0)

	assert.Equal(t, DefaultIngestWorkers, queue.workers)
	assert.Equal(t, DefaultIngestQueueSize, cap(queue.jobs))
}
