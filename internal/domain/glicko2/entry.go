// Package glicko2 implements the Glicko-2 rating period update for players
// rated one game at a time.
package glicko2

import (
	"fmt"
	"math"
)

// Public scale defaults.
const (
	DefaultRating     = 1500.0
	DefaultDeviation  = 350.0
	DefaultVolatility = 0.06

	// scale converts between the public rating scale and mu/phi.
	scale = 173.7178
)

// Entry is a player's rating state on the public 1500-centered scale.
// Entries are values; updates return a new Entry.
type Entry struct {
	Rating     float64
	Deviation  float64
	Volatility float64
}

// NewEntry returns an entry seeded at the standard defaults.
func NewEntry() Entry {
	return Entry{Rating: DefaultRating, Deviation: DefaultDeviation, Volatility: DefaultVolatility}
}

// NewEntryWithRating returns a default entry placed at rating.
func NewEntryWithRating(rating float64) Entry {
	e := NewEntry()
	e.Rating = rating
	return e
}

// Shifted returns a copy of e with its rating moved by delta.
func (e Entry) Shifted(delta float64) Entry {
	e.Rating += delta
	return e
}

// Validate checks that deviation and volatility are positive and finite.
func (e Entry) Validate() error {
	for name, v := range map[string]float64{"rating": e.Rating, "deviation": e.Deviation, "volatility": e.Volatility} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is %v", ErrInvalidEntry, name, v)
		}
	}
	if e.Deviation <= 0 {
		return fmt.Errorf("%w: deviation %g is not positive", ErrInvalidEntry, e.Deviation)
	}
	if e.Volatility <= 0 {
		return fmt.Errorf("%w: volatility %g is not positive", ErrInvalidEntry, e.Volatility)
	}
	return nil
}

func (e Entry) mu() float64  { return (e.Rating - DefaultRating) / scale }
func (e Entry) phi() float64 { return e.Deviation / scale }

// q is ln(10)/400, the Glicko-1 scale constant.
const q = math.Ln10 / 400

// ExpectedWinProbability returns the probability that black beats white once
// black's rating is shifted by adjustment. The combined deviation of both
// sides attenuates the rating gap unless naive is set.
func ExpectedWinProbability(black, white Entry, adjustment float64, naive bool) float64 {
	g := 1.0
	if !naive {
		rd := math.Sqrt(black.Deviation*black.Deviation + white.Deviation*white.Deviation)
		g = 1 / math.Sqrt(1+3*q*q*rd*rd/(math.Pi*math.Pi))
	}
	return 1 / (1 + math.Pow(10, -g*(black.Rating+adjustment-white.Rating)/400))
}
