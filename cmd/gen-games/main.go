package main

import (
	"context"
	"flag"
	"os"

	"github.com/okian/goratings/internal/gamegen"
	"github.com/okian/goratings/pkg/logger"
)

// Default generation constants.
const (
	defaultPlayers = 200
	defaultGames   = 5000
)

func main() {
	var (
		output     = flag.String("output", "games.csv", "CSV file to write")
		seed       = flag.Uint64("seed", 1, "Random seed")
		players    = flag.Int("players", defaultPlayers, "Number of players")
		games      = flag.Int("games", defaultGames, "Number of regular games")
		size       = flag.Int("size", 19, "Board size")
		handicap   = flag.Float64("handicap-rate", 0.5, "Share of mismatched pairings played with handicap")
		timeouts   = flag.Float64("timeout-rate", 0.02, "Share of games decided by timeout")
		burstAt    = flag.Int("burst-at", -1, "Insert a mass timeout after this game index (-1 for none)")
		burstPairs = flag.Int("burst-pairs", 10, "Pairs timing out in the mass timeout")
		start      = flag.Int64("start", 1_600_000_000, "End time of the first game")
		step       = flag.Int64("step", 60, "End time gap between games")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	ctx := context.Background()
	log := logger.Get()

	opts := []gamegen.Option{
		gamegen.WithSeed(*seed),
		gamegen.WithPlayers(*players),
		gamegen.WithGames(*games),
		gamegen.WithBoardSize(*size),
		gamegen.WithHandicapRate(*handicap),
		gamegen.WithTimeoutRate(*timeouts),
		gamegen.WithStart(*start, *step),
		gamegen.WithLogger(log),
	}
	if *burstAt >= 0 {
		opts = append(opts, gamegen.WithMassTimeout(*burstAt, *burstPairs))
	}

	f, err := os.Create(*output)
	if err != nil {
		log.Error(ctx, "create output", logger.String("path", *output), logger.Error(err))
		os.Exit(1)
	}
	if _, err := gamegen.New(opts...).WriteCSV(ctx, f); err != nil {
		_ = f.Close()
		log.Error(ctx, "generate games", logger.Error(err))
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		log.Error(ctx, "close output", logger.Error(err))
		os.Exit(1)
	}
}
