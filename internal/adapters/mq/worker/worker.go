// Package worker drains queued analytics records into a sink.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/goratings/internal/adapters/mq/queue"
	"github.com/okian/goratings/pkg/logger"
	"github.com/okian/goratings/pkg/metrics"
)

// Record abstracts what workers read off the queue.
type Record = queue.Record

// Writer receives records in queue order.
type Writer interface {
	Write(ctx context.Context, r Record) error
}

// Queue defines how workers receive records.
type Queue interface {
	Dequeue() <-chan Record
}

// Worker drains a queue.
type Worker interface {
	// Run consumes records until the queue is closed and drained or ctx
	// is canceled.
	Run(ctx context.Context)

	// Shutdown waits for Run to return.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker writes every dequeued record to one Writer. There is
// exactly one worker per queue so records keep their order.
type InMemoryWorker struct {
	queue  Queue
	writer Writer
	name   string

	done chan struct{}

	mu       sync.Mutex
	firstErr error
	written  int

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, w Writer, opts ...Option) *InMemoryWorker {
	wk := &InMemoryWorker{
		queue:  q,
		writer: w,
		name:   "worker",
		done:   make(chan struct{}),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(wk)
	}
	wk.logger = wk.logger.Named(wk.name)
	return wk
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	records := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			w.fail(ctx.Err())
			return
		case r, ok := <-records:
			if !ok {
				return
			}
			w.process(ctx, r)
		}
	}
}

// process writes one record. After the first failure records are still
// drained so the producer never blocks, but no longer written.
func (w *InMemoryWorker) process(ctx context.Context, r Record) { //nolint:gocritic // hugeParam: records are passed by value for channel semantics
	if w.Err() != nil {
		return
	}

	start := time.Now()
	err := w.writer.Write(ctx, r)
	metrics.RecordSinkLatency(float64(time.Since(start).Microseconds()))
	if err != nil {
		metrics.RecordSinkError(w.name)
		w.logger.Error(ctx, "writing analytics failed",
			logger.Int64("game_id", r.Game.ID),
			logger.Error(err),
		)
		w.fail(fmt.Errorf("game %d: %w", r.Game.ID, err))
		return
	}

	w.mu.Lock()
	w.written++
	w.mu.Unlock()
}

func (w *InMemoryWorker) fail(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.firstErr == nil {
		w.firstErr = err
	}
}

// Shutdown waits for the worker to finish or ctx to expire.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Err returns the first write error, if any.
func (w *InMemoryWorker) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.firstErr
}

// Written returns the number of records written successfully.
func (w *InMemoryWorker) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}
