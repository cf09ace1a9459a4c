package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/goratings/internal/domain/glicko2"
	"github.com/okian/goratings/internal/domain/model"
)

func TestMemoryStore_BasicOperations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if n := store.Len(ctx); n != 0 {
		t.Errorf("expected empty store, got %d", n)
	}

	if _, ok := store.Lookup(ctx, 1); ok {
		t.Error("expected lookup of unknown player to miss")
	}
	if n := store.Len(ctx); n != 0 {
		t.Errorf("lookup must not create entries, got %d", n)
	}

	e := store.Get(ctx, 1)
	if e != glicko2.NewEntry() {
		t.Errorf("expected default entry, got %+v", e)
	}
	if n := store.Len(ctx); n != 1 {
		t.Errorf("expected 1 player after first reference, got %d", n)
	}

	updated := glicko2.Entry{Rating: 1650, Deviation: 290, Volatility: 0.06}
	store.Set(ctx, 1, updated)
	if got, ok := store.Lookup(ctx, 1); !ok || got != updated {
		t.Errorf("expected %+v, got %+v (ok=%v)", updated, got, ok)
	}
	if n := store.Len(ctx); n != 1 {
		t.Errorf("replacing must not add players, got %d", n)
	}
}

func TestMemoryStore_DefaultEntry(t *testing.T) {
	ctx := context.Background()
	seed := glicko2.Entry{Rating: 1200, Deviation: 300, Volatility: 0.05}
	store := NewMemoryStore(WithDefaultEntry(seed), WithCapacity(16))

	if got := store.Get(ctx, 42); got != seed {
		t.Errorf("expected seed %+v, got %+v", seed, got)
	}

	invalid := NewMemoryStore(WithDefaultEntry(glicko2.Entry{Rating: 1500}))
	if invalid.DefaultEntry() != glicko2.NewEntry() {
		t.Errorf("invalid default entries must be ignored, got %+v", invalid.DefaultEntry())
	}
}

func TestMemoryStore_RangeOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for _, id := range []model.PlayerID{5, 3, 9, 1} {
		store.Get(ctx, id)
	}

	var seen []model.PlayerID
	store.Range(ctx, func(id model.PlayerID, _ glicko2.Entry) bool {
		seen = append(seen, id)
		return true
	})
	want := []model.PlayerID{1, 3, 5, 9}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("position %d: expected %d, got %d", i, want[i], seen[i])
		}
	}

	count := 0
	store.Range(ctx, func(model.PlayerID, glicko2.Entry) bool {
		count++
		return count < 2
	})
	if count != 2 {
		t.Errorf("expected range to stop after 2 players, got %d", count)
	}
}

func TestMemoryStore_Leaderboard(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Set(ctx, 1, glicko2.NewEntryWithRating(1500))
	store.Set(ctx, 2, glicko2.NewEntryWithRating(1800))
	store.Set(ctx, 3, glicko2.NewEntryWithRating(1500))
	store.Set(ctx, 4, glicko2.NewEntryWithRating(1200))

	top, err := store.TopN(ctx, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(top))
	}
	if top[0].PlayerID != 2 || top[0].Rank != 1 {
		t.Errorf("expected player 2 first, got %+v", top[0])
	}
	if top[1].PlayerID != 1 || top[2].PlayerID != 3 {
		t.Errorf("ties must break by id asc, got %d then %d", top[1].PlayerID, top[2].PlayerID)
	}
	if top[1].Rank != 2 || top[2].Rank != 2 {
		t.Errorf("tied players must share a rank, got %d and %d", top[1].Rank, top[2].Rank)
	}

	row, err := store.Rank(ctx, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.Rank != 4 {
		t.Errorf("expected rank 4, got %d", row.Rank)
	}

	if _, err := store.Rank(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestMemoryStore_Copy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Set(ctx, 1, glicko2.NewEntryWithRating(1700))

	cp := store.Copy()
	cp.Set(ctx, 1, glicko2.NewEntryWithRating(1000))
	cp.Get(ctx, 2)

	if got, _ := store.Lookup(ctx, 1); got.Rating != 1700 {
		t.Errorf("copy must not alias the original, got %v", got.Rating)
	}
	if store.Len(ctx) != 1 {
		t.Errorf("expected original to keep 1 player, got %d", store.Len(ctx))
	}
}
