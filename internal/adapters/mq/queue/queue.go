// Package queue buffers analytics records between the engine and sinks.
//
// The engine is strictly sequential, but writing reports can be slow. The
// queue lets a single consumer drain records in the order they were produced
// while the engine moves on to the next game.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/goratings/internal/domain/model"
	"github.com/okian/goratings/pkg/metrics"
)

// defaultQueueCapacity bounds the records held in memory.
const defaultQueueCapacity = 4096

// Record is the payload type flowing through the queue.
type Record = model.Analytics

// Queue is a bounded FIFO of analytics records with a single consumer.
type Queue interface {
	// Enqueue adds a record, blocking while the queue is full. Returns
	// ErrClosed after Close and the context error on cancellation.
	Enqueue(ctx context.Context, r Record) error

	// Dequeue returns the channel records are delivered on, in enqueue
	// order. The channel is closed once the queue is closed and drained.
	Dequeue() <-chan Record

	// Len returns the current number of queued records.
	Len() int

	// Close stops accepting records. Queued records stay deliverable.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	records  chan Record
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.records = make(chan Record, q.capacity)
	metrics.UpdateAnalyticsQueueLength(0)
	return q
}

// Enqueue adds a record to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Record) error { //nolint:gocritic // hugeParam: records are passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return fmt.Errorf("%w: game %d", ErrClosed, r.Game.ID)
	}

	select {
	case q.records <- r:
		metrics.UpdateAnalyticsQueueLength(len(q.records))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue returns the delivery channel.
func (q *InMemoryQueue) Dequeue() <-chan Record {
	return q.records
}

// Len returns the current number of queued records.
func (q *InMemoryQueue) Len() int {
	size := len(q.records)
	metrics.UpdateAnalyticsQueueLength(size)
	return size
}

// Close stops accepting records.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.records)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
