// Package skip decides which games are kept out of rating.
//
// Bulk automated forfeits, such as many games timing out at once during a
// server outage, say nothing about playing strength. A Heuristic flags such
// games before any rating state is read or written.
package skip

import (
	"context"

	"github.com/okian/goratings/internal/domain/glicko2"
	"github.com/okian/goratings/internal/domain/model"
)

// Ratings is the read-only view of the player store a heuristic may use.
// Heuristics must never create entries.
type Ratings interface {
	Lookup(ctx context.Context, id model.PlayerID) (glicko2.Entry, bool)
}

// Heuristic reports whether a game must be excluded from rating.
type Heuristic interface {
	// Name identifies the heuristic in logs and metrics.
	Name() string
	ShouldSkip(ctx context.Context, game model.GameRecord, ratings Ratings) bool
}

// BatchObserver is implemented by heuristics that need to see every game
// sharing one end time before the first of them is rated.
type BatchObserver interface {
	Observe(games []model.GameRecord)
}

// Func adapts a function to the Heuristic interface.
type Func struct {
	Label string
	Fn    func(ctx context.Context, game model.GameRecord, ratings Ratings) bool
}

// Name implements Heuristic.
func (f Func) Name() string { return f.Label }

// ShouldSkip implements Heuristic.
func (f Func) ShouldSkip(ctx context.Context, game model.GameRecord, ratings Ratings) bool {
	return f.Fn(ctx, game, ratings)
}

// Never rates every game.
var Never Heuristic = Func{ //nolint:gochecknoglobals // stateless predicate
	Label: "never",
	Fn:    func(context.Context, model.GameRecord, Ratings) bool { return false },
}

// anyOf skips a game when at least one member does.
type anyOf struct {
	members []Heuristic
}

// Any combines heuristics; a game is skipped when any of them says so.
// Observers among the members keep receiving batches.
func Any(hs ...Heuristic) Heuristic {
	return anyOf{members: hs}
}

func (a anyOf) Name() string { return "any" }

func (a anyOf) ShouldSkip(ctx context.Context, game model.GameRecord, ratings Ratings) bool {
	_, ok := a.Match(ctx, game, ratings)
	return ok
}

// Match returns the name of the first member that skips game.
func (a anyOf) Match(ctx context.Context, game model.GameRecord, ratings Ratings) (string, bool) {
	for _, h := range a.members {
		if h.ShouldSkip(ctx, game, ratings) {
			return h.Name(), true
		}
	}
	return "", false
}

func (a anyOf) Observe(games []model.GameRecord) {
	for _, h := range a.members {
		if o, ok := h.(BatchObserver); ok {
			o.Observe(games)
		}
	}
}

// Reason runs h against game and returns the name of the heuristic that
// fired, descending into composites.
func Reason(ctx context.Context, h Heuristic, game model.GameRecord, ratings Ratings) (string, bool) {
	if m, ok := h.(interface {
		Match(context.Context, model.GameRecord, Ratings) (string, bool)
	}); ok {
		return m.Match(ctx, game, ratings)
	}
	if h.ShouldSkip(ctx, game, ratings) {
		return h.Name(), true
	}
	return "", false
}
