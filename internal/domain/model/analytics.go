package model

// Analytics is the per-game snapshot emitted by the engine. Skipped records
// only carry the source game.
type Analytics struct {
	Skipped bool
	Game    GameRecord

	// ExpectedWinRate is black's predicted win probability before the game.
	ExpectedWinRate float64

	BlackRating    float64
	BlackDeviation float64
	BlackRank      float64
	WhiteRating    float64
	WhiteDeviation float64
	WhiteRank      float64

	BlackUpdatedRating     float64
	BlackUpdatedDeviation  float64
	BlackUpdatedVolatility float64
	WhiteUpdatedRating     float64
	WhiteUpdatedDeviation  float64
	WhiteUpdatedVolatility float64
}

// SkippedAnalytics builds the record for a game excluded from rating.
func SkippedAnalytics(g GameRecord) Analytics {
	return Analytics{Skipped: true, Game: g}
}
