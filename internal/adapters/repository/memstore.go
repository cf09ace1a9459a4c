package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/okian/goratings/internal/domain/glicko2"
	"github.com/okian/goratings/internal/domain/model"
	"github.com/okian/goratings/pkg/metrics"
)

// MemoryStore is an in-memory Store. It is not safe for concurrent writers;
// the rating engine is its only writer.
type MemoryStore struct {
	entries      map[model.PlayerID]glicko2.Entry
	defaultEntry glicko2.Entry
}

// NewMemoryStore creates an empty store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		entries:      make(map[model.PlayerID]glicko2.Entry),
		defaultEntry: glicko2.NewEntry(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultEntry returns the entry new players start from.
func (s *MemoryStore) DefaultEntry() glicko2.Entry { return s.defaultEntry }

// Get returns the player's entry, creating it on first reference.
func (s *MemoryStore) Get(_ context.Context, id model.PlayerID) glicko2.Entry {
	e, ok := s.entries[id]
	if !ok {
		e = s.defaultEntry
		s.entries[id] = e
		metrics.UpdatePlayersTotal(len(s.entries))
	}
	return e
}

// Lookup returns the player's entry without creating it.
func (s *MemoryStore) Lookup(_ context.Context, id model.PlayerID) (glicko2.Entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// Set replaces the player's entry.
func (s *MemoryStore) Set(_ context.Context, id model.PlayerID, e glicko2.Entry) {
	_, existed := s.entries[id]
	s.entries[id] = e
	if !existed {
		metrics.UpdatePlayersTotal(len(s.entries))
	}
}

// Len returns the number of players tracked.
func (s *MemoryStore) Len(_ context.Context) int { return len(s.entries) }

// Range visits players in ascending id order.
func (s *MemoryStore) Range(_ context.Context, fn func(id model.PlayerID, e glicko2.Entry) bool) {
	for _, id := range s.sortedIDs() {
		if !fn(id, s.entries[id]) {
			return
		}
	}
}

func (s *MemoryStore) sortedIDs() []model.PlayerID {
	ids := make([]model.PlayerID, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Rank returns the player's leaderboard position.
// Returns ErrNotFound if the player is unknown.
func (s *MemoryStore) Rank(ctx context.Context, id model.PlayerID) (Entry, error) {
	if _, ok := s.entries[id]; !ok {
		return Entry{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	for _, row := range s.leaderboard() {
		if row.PlayerID == id {
			return row, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %d", ErrNotFound, id)
}

// TopN returns the n best rated players, rating desc then id asc.
func (s *MemoryStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, n)
	}
	rows := s.leaderboard()
	if n < len(rows) {
		rows = rows[:n]
	}
	return rows, nil
}

// leaderboard orders every player; equal ratings share a rank.
func (s *MemoryStore) leaderboard() []Entry {
	rows := make([]Entry, 0, len(s.entries))
	for id, e := range s.entries {
		rows = append(rows, Entry{PlayerID: id, Rating: e})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Rating.Rating != rows[j].Rating.Rating {
			return rows[i].Rating.Rating > rows[j].Rating.Rating
		}
		return rows[i].PlayerID < rows[j].PlayerID
	})
	for i := range rows {
		if i > 0 && rows[i].Rating.Rating == rows[i-1].Rating.Rating {
			rows[i].Rank = rows[i-1].Rank
		} else {
			rows[i].Rank = i + 1
		}
	}
	return rows
}

// Copy returns an independent store with the same contents.
func (s *MemoryStore) Copy() *MemoryStore {
	out := &MemoryStore{
		entries:      make(map[model.PlayerID]glicko2.Entry, len(s.entries)),
		defaultEntry: s.defaultEntry,
	}
	for id, e := range s.entries {
		out.entries[id] = e
	}
	return out
}
