package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/liquidation-ocr/constants"
	"github.com/joseph-ayodele/liquidation-ocr/internal/entity"
)

type recordingProcessor struct {
	mu      sync.Mutex
	seen    []uuid.UUID
	block   chan struct{}
	started chan struct{}
	err     error
}

func (p *recordingProcessor) ProcessDocument(ctx context.Context, id uuid.UUID, _ string) (*entity.Document, error) {
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	p.seen = append(p.seen, id)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &entity.Document{ID: id, Status: constants.DocumentStatusExtracted}, nil
}

func TestProcessorQueue_ProcessesAllJobsBeforeShutdown(t *testing.T) {
	proc := &recordingProcessor{}
	q := NewProcessorQueue(proc, nil, WithWorkers(3), WithQueueSize(10))

	var want []uuid.UUID
	for i := 0; i < 8; i++ {
		id := uuid.New()
		want = append(want, id)
		require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: id, Path: "x.png"}))
	}
	q.Shutdown(context.Background())

	assert.ElementsMatch(t, want, proc.seen)
}

func TestProcessorQueue_EnqueueAfterShutdown(t *testing.T) {
	q := NewProcessorQueue(&recordingProcessor{}, nil)
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	err := q.Enqueue(context.Background(), Job{DocumentID: uuid.New()})
	assert.True(t, errors.Is(err, ErrQueueClosed))
}

func TestProcessorQueue_BackpressureHonoursContext(t *testing.T) {
	proc := &recordingProcessor{block: make(chan struct{}), started: make(chan struct{}, 1)}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))
	<-proc.started // worker holds the first job
	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))
	proc.started = nil

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := q.Enqueue(ctx, Job{DocumentID: uuid.New()})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	close(proc.block)
	q.Shutdown(context.Background())
	assert.Len(t, proc.seen, 2)
}

func TestProcessorQueue_ProcessTimeout(t *testing.T) {
	proc := &recordingProcessor{block: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithProcessTimeout(10*time.Millisecond))

	require.NoError(t, q.Enqueue(context.Background(), Job{DocumentID: uuid.New()}))
	q.Shutdown(context.Background())
	assert.Empty(t, proc.seen, "the job was abandoned at its deadline")
}
