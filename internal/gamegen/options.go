package gamegen

import "github.com/okian/goratings/pkg/logger"

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithSeed sets the random seed. Equal seeds produce equal streams.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// WithPlayers sets the size of the player pool.
func WithPlayers(n int) Option {
	return func(g *Generator) {
		if n >= 2 {
			g.players = n
		}
	}
}

// WithGames sets the number of regular games.
func WithGames(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.games = n
		}
	}
}

// WithBoardSize sets the board size of every game.
func WithBoardSize(size int) Option {
	return func(g *Generator) {
		if size > 0 {
			g.size = size
		}
	}
}

// WithHandicapRate sets the share of mismatched pairings played with
// handicap stones.
func WithHandicapRate(rate float64) Option {
	return func(g *Generator) {
		if rate >= 0 && rate <= 1 {
			g.handicapRate = rate
		}
	}
}

// WithTimeoutRate sets the share of regular games decided by timeout.
func WithTimeoutRate(rate float64) Option {
	return func(g *Generator) {
		if rate >= 0 && rate <= 1 {
			g.timeoutRate = rate
		}
	}
}

// WithMassTimeout inserts a burst of pairs timed out games sharing one end
// time after the regular game at index at.
func WithMassTimeout(at, pairs int) Option {
	return func(g *Generator) {
		if at >= 0 && pairs > 0 {
			g.burstAt, g.burstPairs = at, pairs
		}
	}
}

// WithStart sets the end time of the first game and the gap between games.
func WithStart(start, step int64) Option {
	return func(g *Generator) {
		g.start = start
		if step > 0 {
			g.step = step
		}
	}
}

// WithLogger sets the logger reporting what was generated.
func WithLogger(log logger.Logger) Option {
	return func(g *Generator) {
		if log != nil {
			g.logger = log
		}
	}
}
