package repository

import (
	"github.com/okian/goratings/internal/domain/glicko2"
	"github.com/okian/goratings/internal/domain/model"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithDefaultEntry sets the entry created on a player's first reference.
func WithDefaultEntry(e glicko2.Entry) Option {
	return func(s *MemoryStore) {
		if e.Validate() == nil {
			s.defaultEntry = e
		}
	}
}

// WithCapacity preallocates room for n players.
func WithCapacity(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.entries = make(map[model.PlayerID]glicko2.Entry, n)
		}
	}
}
