package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubQueue struct {
	mu        sync.Mutex
	due       []Job
	scheduled []Job
}

func (q *stubQueue) Schedule(_ context.Context, jobID string, payload []byte, _ time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.scheduled = append(q.scheduled, Job{ID: jobID, Payload: payload})
	return nil
}

func (q *stubQueue) Cancel(context.Context, string) error { return nil }

func (q *stubQueue) PopDue(context.Context, time.Time) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	due := q.due
	q.due = nil
	return due, nil
}

func (q *stubQueue) scheduledCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.scheduled)
}

func TestWorkerProcessesDueJobs(t *testing.T) {
	queue := &stubQueue{due: []Job{{ID: "a"}, {ID: "b"}}}

	var mu sync.Mutex
	seen := map[string]int{}
	handler := func(_ context.Context, job Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen[job.ID]++
		return nil
	}

	w := NewWorker(queue, handler, zap.NewNop(), 2, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, seen)
}

func TestWorkerRequeuesFailedJobs(t *testing.T) {
	queue := &stubQueue{due: []Job{{ID: "a", Payload: []byte("p")}}}

	handler := func(context.Context, Job) error {
		return fmt.Errorf("transient failure")
	}

	w := NewWorker(queue, handler, zap.NewNop(), 1, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	assert.Equal(t, 1, queue.scheduledCount())
}
