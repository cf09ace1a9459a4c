// Package gamegen produces deterministic synthetic game streams for smoke
// runs and tests. Players get a hidden rank and results follow it.
package gamegen

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"

	"github.com/okian/goratings/internal/adapters/source"
	"github.com/okian/goratings/internal/domain/model"
	"github.com/okian/goratings/pkg/logger"
)

// Generation defaults.
const (
	defaultPlayers = 100
	defaultGames   = 1000
	defaultSize    = 19
	defaultStart   = 1_600_000_000
	defaultStep    = 60

	// Hidden ranks are drawn from [minRank, maxRank) in rank units
	// (0 is 30k, 29 is 1k, 30 is 1d).
	minRank = 5.0
	maxRank = 38.0

	// rankSpread scales how decisive one rank of difference is.
	rankSpread = 1.2

	maxHandicap  = 9
	komi         = 6.5
	handicapKomi = 0.5

	liveMinSeconds   = 5.0
	liveRangeSeconds = 55.0
	correspondence   = 86400.0
	liveShare        = 0.8
)

// Player is one synthetic player with its hidden strength.
type Player struct {
	ID   model.PlayerID
	Rank float64
}

// Generator builds game streams. It is not safe for concurrent use.
type Generator struct {
	seed         uint64
	players      int
	games        int
	size         int
	handicapRate float64
	timeoutRate  float64
	burstAt      int
	burstPairs   int
	start        int64
	step         int64

	logger logger.Logger
}

// New creates a Generator with configuration options.
func New(opts ...Option) *Generator {
	g := &Generator{
		seed:         1,
		players:      defaultPlayers,
		games:        defaultGames,
		size:         defaultSize,
		handicapRate: 0.5,
		timeoutRate:  0.02,
		burstAt:      -1,
		start:        defaultStart,
		step:         defaultStep,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the player pool and the games in non-decreasing end time
// order. The burst, when configured, shares one end time.
func (g *Generator) Generate() ([]Player, []model.GameRecord) {
	rng := rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15))

	pool := make([]Player, g.players)
	for i := range pool {
		pool[i] = Player{
			ID:   model.PlayerID(i + 1),
			Rank: minRank + rng.Float64()*(maxRank-minRank),
		}
	}

	games := make([]model.GameRecord, 0, g.games+g.burstPairs)
	endedAt := g.start
	nextID := int64(1)
	for i := 0; i < g.games; i++ {
		games = append(games, g.game(rng, pool, nextID, endedAt))
		nextID++
		endedAt += g.step

		if i == g.burstAt {
			burst := g.burst(rng, pool, nextID, endedAt)
			games = append(games, burst...)
			nextID += int64(len(burst))
			endedAt += g.step
		}
	}
	return pool, games
}

// game draws one regular game between two distinct players.
func (g *Generator) game(rng *rand.Rand, pool []Player, id, endedAt int64) model.GameRecord {
	a, b := pick(rng, len(pool))
	black, white := pool[a], pool[b]

	handicap := 0
	diff := math.Abs(black.Rank - white.Rank)
	if diff >= 2 && rng.Float64() < g.handicapRate {
		// The weaker player takes black and the stones.
		if black.Rank > white.Rank {
			black, white = white, black
		}
		handicap = min(int(diff), maxHandicap)
	}

	game := model.GameRecord{
		ID:          id,
		Size:        g.size,
		Handicap:    handicap,
		Komi:        komi,
		Rules:       "japanese",
		BlackID:     black.ID,
		WhiteID:     white.ID,
		TimePerMove: timePerMove(rng),
		EndedAt:     endedAt,
	}
	if handicap > 0 {
		game.Komi = handicapKomi
	}

	pBlack := 1 / (1 + math.Exp(-(black.Rank+float64(handicap)-white.Rank)/rankSpread))
	if rng.Float64() < pBlack {
		game.WinnerID = black.ID
	} else {
		game.WinnerID = white.ID
	}
	game.TimedOut = rng.Float64() < g.timeoutRate
	return game
}

// burst draws timed out games between distinct pairs that end at the same
// instant, as when a server drops its connections. The burst is capped at
// half the pool.
func (g *Generator) burst(rng *rand.Rand, pool []Player, firstID, endedAt int64) []model.GameRecord {
	order := rng.Perm(len(pool))
	pairs := min(g.burstPairs, len(pool)/2)
	out := make([]model.GameRecord, 0, pairs)
	for i := 0; i < pairs; i++ {
		a, b := order[2*i], order[2*i+1]
		out = append(out, model.GameRecord{
			ID:          firstID + int64(i),
			Size:        g.size,
			Komi:        komi,
			Rules:       "japanese",
			BlackID:     pool[a].ID,
			WhiteID:     pool[b].ID,
			TimePerMove: timePerMove(rng),
			TimedOut:    true,
			WinnerID:    pool[b].ID,
			EndedAt:     endedAt,
		})
	}
	return out
}

// Source returns the generated games as a source.
func (g *Generator) Source() source.Source {
	_, games := g.Generate()
	return source.FromSlice(games)
}

// WriteCSV writes the generated games in the CSV source format and returns
// how many were written.
func (g *Generator) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	_, games := g.Generate()
	cw := source.NewCSVWriter(w)
	for _, game := range games {
		if err := cw.Write(game); err != nil {
			return 0, fmt.Errorf("write game %d: %w", game.ID, err)
		}
	}
	if err := cw.Flush(); err != nil {
		return 0, fmt.Errorf("flush games: %w", err)
	}
	g.logger.Info(ctx, "generated games",
		logger.Int("games", len(games)),
		logger.Int("players", g.players),
		logger.Int("burst_pairs", g.burstPairs),
	)
	return len(games), nil
}

func pick(rng *rand.Rand, n int) (a, b int) {
	a = rng.IntN(n)
	b = rng.IntN(n - 1)
	if b >= a {
		b++
	}
	return a, b
}

func timePerMove(rng *rand.Rand) *float64 {
	v := correspondence
	if rng.Float64() < liveShare {
		v = liveMinSeconds + rng.Float64()*liveRangeSeconds
	}
	return &v
}
