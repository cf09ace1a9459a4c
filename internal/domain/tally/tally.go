// Package tally aggregates per-game analytics into run level statistics.
package tally

import (
	"context"
	"math"
	"sort"

	"github.com/okian/goratings/internal/domain/model"
)

// maxTrackedHandicap groups every larger handicap into its bucket.
const maxTrackedHandicap = 9

// probabilityFloor keeps the log loss finite for certain predictions.
const probabilityFloor = 1e-15

// Bucket holds prediction quality counters for one group of games.
type Bucket struct {
	Games   int
	Hits    int
	Brier   float64 // sum of squared prediction errors
	LogLoss float64 // sum of negative log likelihoods
}

func (b *Bucket) add(p float64, blackWon bool) {
	outcome := 0.0
	if blackWon {
		outcome = 1
	}
	b.Games++
	if (p > 0.5 && blackWon) || (p < 0.5 && !blackWon) {
		b.Hits++
	}
	b.Brier += (p - outcome) * (p - outcome)
	likelihood := p
	if !blackWon {
		likelihood = 1 - p
	}
	b.LogLoss -= math.Log(math.Max(likelihood, probabilityFloor))
}

// Accuracy returns the share of games the favourite won.
func (b Bucket) Accuracy() float64 {
	if b.Games == 0 {
		return 0
	}
	return float64(b.Hits) / float64(b.Games)
}

// MeanBrier returns the mean squared prediction error.
func (b Bucket) MeanBrier() float64 {
	if b.Games == 0 {
		return 0
	}
	return b.Brier / float64(b.Games)
}

// MeanLogLoss returns the mean negative log likelihood.
func (b Bucket) MeanLogLoss() float64 {
	if b.Games == 0 {
		return 0
	}
	return b.LogLoss / float64(b.Games)
}

// Tally counts games and prediction quality. It implements the analytics
// sink contract so it can sit next to report sinks.
type Tally struct {
	games    int
	skipped  int
	noResult int
	overall  Bucket
	handicap map[int]*Bucket
}

// New creates an empty Tally.
func New() *Tally {
	return &Tally{handicap: make(map[int]*Bucket)}
}

// Add records one analytics record.
func (t *Tally) Add(a model.Analytics) { //nolint:gocritic // hugeParam: analytics are values
	t.games++
	if a.Skipped {
		t.skipped++
		return
	}
	if !a.Game.Decided() {
		t.noResult++
		return
	}
	blackWon := a.Game.BlackWon()
	t.overall.add(a.ExpectedWinRate, blackWon)

	h := min(a.Game.Handicap, maxTrackedHandicap)
	b, ok := t.handicap[h]
	if !ok {
		b = &Bucket{}
		t.handicap[h] = b
	}
	b.add(a.ExpectedWinRate, blackWon)
}

// Write implements report.Sink.
func (t *Tally) Write(_ context.Context, a model.Analytics) error { //nolint:gocritic // hugeParam: analytics are values
	t.Add(a)
	return nil
}

// Close implements report.Sink.
func (t *Tally) Close() error { return nil }

// HandicapBucket is the bucket of one handicap value.
type HandicapBucket struct {
	Handicap int
	Bucket
}

// Summary is a point in time copy of the counters.
type Summary struct {
	Games      int
	Rated      int
	Skipped    int
	NoResult   int
	Overall    Bucket
	ByHandicap []HandicapBucket // ascending handicap
}

// Summary returns the current counters.
func (t *Tally) Summary() Summary {
	s := Summary{
		Games:    t.games,
		Rated:    t.games - t.skipped,
		Skipped:  t.skipped,
		NoResult: t.noResult,
		Overall:  t.overall,
	}
	for h, b := range t.handicap {
		s.ByHandicap = append(s.ByHandicap, HandicapBucket{Handicap: h, Bucket: *b})
	}
	sort.Slice(s.ByHandicap, func(i, j int) bool { return s.ByHandicap[i].Handicap < s.ByHandicap[j].Handicap })
	return s
}
