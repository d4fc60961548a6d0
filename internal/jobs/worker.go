package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const retryDelay = time.Minute

// Handler processes one due job. A returned error puts the job back on
// the queue for another attempt.
type Handler func(ctx context.Context, job Job) error

// Worker polls the queue and runs due jobs on a bounded pool.
type Worker struct {
	queue       Queue
	handler     Handler
	logger      *zap.Logger
	concurrency int
	pollEvery   time.Duration

	wg sync.WaitGroup
}

func NewWorker(queue Queue, handler Handler, logger *zap.Logger, concurrency int, pollEvery time.Duration) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		queue:       queue,
		handler:     handler,
		logger:      logger,
		concurrency: concurrency,
		pollEvery:   pollEvery,
	}
}

// Run polls until ctx is cancelled, then waits for in-flight jobs.
func (w *Worker) Run(ctx context.Context) {
	sem := make(chan struct{}, w.concurrency)
	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.wg.Wait()
			return
		case <-ticker.C:
			w.drain(ctx, sem)
		}
	}
}

func (w *Worker) drain(ctx context.Context, sem chan struct{}) {
	jobs, err := w.queue.PopDue(ctx, time.Now())
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error("failed to poll job queue", zap.Error(err))
		}
		return
	}

	for _, job := range jobs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			// Put unclaimed jobs back so a restart picks them up.
			w.requeue(job)
			continue
		}

		w.wg.Add(1)
		go func(job Job) {
			defer w.wg.Done()
			defer func() { <-sem }()
			w.process(ctx, job)
		}(job)
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	if err := w.handler(ctx, job); err != nil {
		w.logger.Error("job failed, scheduling retry",
			zap.String("job_id", job.ID),
			zap.Error(err),
		)
		w.requeue(job)
		return
	}
	w.logger.Debug("job completed", zap.String("job_id", job.ID))
}

func (w *Worker) requeue(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.queue.Schedule(ctx, job.ID, job.Payload, time.Now().Add(retryDelay)); err != nil {
		w.logger.Error("failed to requeue job", zap.String("job_id", job.ID), zap.Error(err))
	}
}
