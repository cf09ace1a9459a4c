// Package report writes per-game analytics for downstream aggregation.
package report

import (
	"context"
	"errors"

	"github.com/okian/goratings/internal/domain/model"
)

// Sink consumes analytics records in game order. Close flushes and
// releases the sink; Write must not be called afterwards.
type Sink interface {
	Write(ctx context.Context, a model.Analytics) error
	Close() error
}

// multi fans records out to several sinks.
type multi []Sink

// Multi combines sinks. Records reach them in argument order.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) Write(ctx context.Context, a model.Analytics) error { //nolint:gocritic // hugeParam: mirrors Sink
	for _, s := range m {
		if err := s.Write(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (m multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Collector keeps every record in memory. Useful in tests and for small
// runs that inspect analytics afterwards.
type Collector struct {
	Records []model.Analytics
	closed  bool
}

// Write implements Sink.
func (c *Collector) Write(_ context.Context, a model.Analytics) error { //nolint:gocritic // hugeParam: mirrors Sink
	if c.closed {
		return ErrSinkClosed
	}
	c.Records = append(c.Records, a)
	return nil
}

// Close implements Sink.
func (c *Collector) Close() error {
	c.closed = true
	return nil
}

// Closed reports whether Close was called.
func (c *Collector) Closed() bool { return c.closed }
