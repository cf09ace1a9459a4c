package report

import (
	"context"
	"errors"
	"time"

	"github.com/okian/goratings/internal/adapters/mq/queue"
	"github.com/okian/goratings/internal/adapters/mq/worker"
	"github.com/okian/goratings/internal/domain/model"
	"github.com/okian/goratings/pkg/logger"
)

const asyncShutdownTimeout = 30 * time.Second

// AsyncSink hands records to a background worker that writes them to the
// wrapped sink in order. Write only fails once the worker has failed.
type AsyncSink struct {
	next   Sink
	queue  *queue.InMemoryQueue
	worker *worker.InMemoryWorker
	cancel context.CancelFunc
}

// NewAsyncSink starts a worker draining into next. capacity bounds the
// records buffered in memory.
func NewAsyncSink(ctx context.Context, next Sink, capacity int, log logger.Logger) *AsyncSink {
	q := queue.NewInMemoryQueue(queue.WithCapacity(capacity))
	wk := worker.NewInMemoryWorker(q, next, worker.WithName("analytics"), worker.WithLogger(log))
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	go wk.Run(runCtx)
	return &AsyncSink{next: next, queue: q, worker: wk, cancel: cancel}
}

// Write implements Sink.
func (s *AsyncSink) Write(ctx context.Context, a model.Analytics) error { //nolint:gocritic // hugeParam: mirrors Sink
	if err := s.worker.Err(); err != nil {
		return err
	}
	return s.queue.Enqueue(ctx, a)
}

// Close drains queued records, then closes the wrapped sink.
func (s *AsyncSink) Close() error {
	defer s.cancel()
	if s.queue.IsClosed() {
		return nil
	}
	_ = s.queue.Close()

	ctx, cancel := context.WithTimeout(context.Background(), asyncShutdownTimeout)
	defer cancel()
	shutdownErr := s.worker.Shutdown(ctx)
	return errors.Join(shutdownErr, s.worker.Err(), s.next.Close())
}
