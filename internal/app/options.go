package service

import (
	"github.com/okian/goratings/internal/adapters/report"
	"github.com/okian/goratings/internal/adapters/repository"
	"github.com/okian/goratings/internal/domain/dedupe"
	"github.com/okian/goratings/internal/domain/glicko2"
	"github.com/okian/goratings/internal/domain/skip"
	"github.com/okian/goratings/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithUpdater sets the Glicko-2 updater.
func WithUpdater(u *glicko2.Updater) Option {
	return func(s *Service) {
		if u != nil {
			s.updater = u
		}
	}
}

// WithStore sets the player store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSkipHeuristic sets the predicate keeping games out of rating.
// Passing several heuristics combines them with skip.Any.
func WithSkipHeuristic(hs ...skip.Heuristic) Option {
	return func(s *Service) {
		switch len(hs) {
		case 0:
			s.heuristic = skip.Never
		case 1:
			s.heuristic = hs[0]
		default:
			s.heuristic = skip.Any(hs...)
		}
	}
}

// WithSinks adds analytics sinks. Records reach them in game order.
func WithSinks(sinks ...report.Sink) Option {
	return func(s *Service) {
		s.sinks = append(s.sinks, sinks...)
	}
}

// WithDeduper drops games whose id was already processed in this run.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		s.deduper = d
	}
}

// WithSnapshotter saves the store when the run finishes.
func WithSnapshotter(sn repository.Snapshotter) Option {
	return func(s *Service) {
		s.snapshotter = sn
	}
}

// WithNaiveWinRate drops deviation attenuation from reported predictions.
func WithNaiveWinRate(naive bool) Option {
	return func(s *Service) {
		s.naive = naive
	}
}

// WithRunID labels the run in logs and snapshots.
func WithRunID(id string) Option {
	return func(s *Service) {
		if id != "" {
			s.runID = id
		}
	}
}
