// Package repository defines the player rating store and its snapshots.
package repository

import (
	"context"
	"time"

	"github.com/okian/goratings/internal/domain/glicko2"
	"github.com/okian/goratings/internal/domain/model"
)

// Entry represents a leaderboard row.
type Entry struct {
	Rank     int
	PlayerID model.PlayerID
	Rating   glicko2.Entry
}

// Store maps players to their current rating state. A store has a single
// writer; entries are replaced wholesale and never deleted during a run.
type Store interface {
	// Get returns the player's entry, creating the default entry on first
	// reference.
	Get(ctx context.Context, id model.PlayerID) glicko2.Entry
	// Lookup returns the player's entry without creating it.
	Lookup(ctx context.Context, id model.PlayerID) (glicko2.Entry, bool)
	// Set replaces the player's entry.
	Set(ctx context.Context, id model.PlayerID, e glicko2.Entry)
	// Len returns the number of players tracked.
	Len(ctx context.Context) int
	// Range calls fn for every player in ascending id order until fn
	// returns false.
	Range(ctx context.Context, fn func(id model.PlayerID, e glicko2.Entry) bool)
}

// SnapshotMeta describes the run a snapshot was taken from.
type SnapshotMeta struct {
	RunID          string
	GamesProcessed int
	LastEndedAt    int64
	TakenAt        time.Time
}

// Snapshotter persists and restores complete store contents.
type Snapshotter interface {
	// Save writes every entry of store as one snapshot.
	Save(ctx context.Context, meta SnapshotMeta, store Store) error
	// Load restores the latest snapshot into store. Returns ErrNoSnapshot
	// when nothing was saved yet.
	Load(ctx context.Context, store Store) (SnapshotMeta, error)
	Close() error
}
