package skip

import (
	"context"

	"github.com/okian/goratings/internal/domain/model"
)

// RatingFloor skips timed out games between two players that are both
// already rated below Floor. Unknown players never trigger it.
type RatingFloor struct {
	Floor float64
}

// Name implements Heuristic.
func (r RatingFloor) Name() string { return "rating_floor" }

// ShouldSkip implements Heuristic.
func (r RatingFloor) ShouldSkip(ctx context.Context, game model.GameRecord, ratings Ratings) bool {
	if !game.TimedOut {
		return false
	}
	black, ok := ratings.Lookup(ctx, game.BlackID)
	if !ok || black.Rating >= r.Floor {
		return false
	}
	white, ok := ratings.Lookup(ctx, game.WhiteID)
	return ok && white.Rating < r.Floor
}
