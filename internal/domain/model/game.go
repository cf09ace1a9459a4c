// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
)

// PlayerID identifies a player across every data source of a run.
type PlayerID int64

// NoDecision is the WinnerID of a game that ended without a winner
// (annulled, jigo, unknown result).
const NoDecision PlayerID = -1

// ErrInvalidGame marks a game record that cannot be rated.
var ErrInvalidGame = errors.New("invalid game record")

// GameRecord is one finished game as produced by a data source.
// Records are immutable once emitted and must reach the engine in
// non-decreasing EndedAt order.
type GameRecord struct {
	ID          int64    // unique within the run
	Size        int      // board size, e.g. 9, 13, 19
	Handicap    int      // stones granted to black
	Komi        float64  // compensation for white
	Rules       string   // ruleset name, e.g. "japanese", "aga"
	BlackID     PlayerID // black player
	WhiteID     PlayerID // white player
	TimePerMove *float64 // seconds per move, nil when unknown
	TimedOut    bool     // the game was decided by timeout
	WinnerID    PlayerID // BlackID, WhiteID or NoDecision
	EndedAt     int64    // ordinal end time (unix seconds or sequence)

	// Manual rank overrides force the side's rating before the game is rated.
	BlackManualRank *float64
	WhiteManualRank *float64
}

// Validate checks the invariants every rated game must satisfy.
func (g GameRecord) Validate() error {
	if g.BlackID == g.WhiteID {
		return fmt.Errorf("%w: game %d has the same player on both sides", ErrInvalidGame, g.ID)
	}
	if g.Handicap < 0 {
		return fmt.Errorf("%w: game %d has negative handicap %d", ErrInvalidGame, g.ID, g.Handicap)
	}
	if g.WinnerID != NoDecision && g.WinnerID != g.BlackID && g.WinnerID != g.WhiteID {
		return fmt.Errorf("%w: game %d winner %d did not play", ErrInvalidGame, g.ID, g.WinnerID)
	}
	return nil
}

// BlackWon reports whether black won the game.
func (g GameRecord) BlackWon() bool { return g.WinnerID == g.BlackID }

// WhiteWon reports whether white won the game.
func (g GameRecord) WhiteWon() bool { return g.WinnerID == g.WhiteID }

// Decided reports whether the game has a winner.
func (g GameRecord) Decided() bool { return g.WinnerID != NoDecision }

// Pair returns the two participants ordered by id, so the same pairing
// yields the same key regardless of colors.
func (g GameRecord) Pair() [2]PlayerID {
	if g.BlackID < g.WhiteID {
		return [2]PlayerID{g.BlackID, g.WhiteID}
	}
	return [2]PlayerID{g.WhiteID, g.BlackID}
}
