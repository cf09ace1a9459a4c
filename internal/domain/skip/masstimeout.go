package skip

import (
	"context"

	"github.com/okian/goratings/internal/domain/model"
)

// DefaultMinPairs is the number of distinct pairings timing out at one
// instant that counts as a mass timeout.
const DefaultMinPairs = 3

// MassTimeout skips timed out games when their end time is shared by timed
// out games of at least MinPairs distinct player pairs.
//
// It learns about the games of an instant through Observe. Games of an
// instant it was not shown are only counted against themselves.
type MassTimeout struct {
	minPairs int

	endedAt int64
	pairs   map[[2]model.PlayerID]struct{}
}

// MassTimeoutOption applies a configuration option to MassTimeout.
type MassTimeoutOption func(*MassTimeout)

// WithMinPairs sets the number of distinct pairs that marks a mass timeout.
func WithMinPairs(n int) MassTimeoutOption {
	return func(m *MassTimeout) {
		if n > 0 {
			m.minPairs = n
		}
	}
}

// NewMassTimeout creates the heuristic with configuration options.
func NewMassTimeout(opts ...MassTimeoutOption) *MassTimeout {
	m := &MassTimeout{minPairs: DefaultMinPairs}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name implements Heuristic.
func (m *MassTimeout) Name() string { return "mass_timeout" }

// MinPairs returns the configured threshold.
func (m *MassTimeout) MinPairs() int { return m.minPairs }

// Observe records the timed out pairings of one end time. Games must all
// share the same EndedAt.
func (m *MassTimeout) Observe(games []model.GameRecord) {
	m.pairs = make(map[[2]model.PlayerID]struct{})
	if len(games) == 0 {
		return
	}
	m.endedAt = games[0].EndedAt
	for _, g := range games {
		if g.TimedOut && g.EndedAt == m.endedAt {
			m.pairs[g.Pair()] = struct{}{}
		}
	}
}

// ShouldSkip implements Heuristic. Ratings are not consulted.
func (m *MassTimeout) ShouldSkip(_ context.Context, game model.GameRecord, _ Ratings) bool {
	if !game.TimedOut {
		return false
	}
	pairs := 1
	if m.pairs != nil && game.EndedAt == m.endedAt {
		pairs = len(m.pairs)
	}
	return pairs >= m.minPairs
}
