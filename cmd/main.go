package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/okian/goratings/internal/adapters/report"
	"github.com/okian/goratings/internal/adapters/repository"
	"github.com/okian/goratings/internal/adapters/repository/postgres"
	"github.com/okian/goratings/internal/adapters/repository/sqlite"
	"github.com/okian/goratings/internal/adapters/source"
	service "github.com/okian/goratings/internal/app"
	"github.com/okian/goratings/internal/config"
	"github.com/okian/goratings/internal/domain/dedupe"
	"github.com/okian/goratings/internal/domain/glicko2"
	"github.com/okian/goratings/internal/domain/ranks"
	"github.com/okian/goratings/internal/domain/skip"
	"github.com/okian/goratings/internal/domain/tally"
	"github.com/okian/goratings/internal/domain/types"
	"github.com/okian/goratings/pkg/logger"
	"github.com/okian/goratings/pkg/metrics"
)

// analysisQueueSize bounds the analytics rows buffered ahead of the CSV file.
const analysisQueueSize = 4096

// errNoGames is returned when no games file is configured.
var errNoGames = errors.New("no games files configured (set games_files)")

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "rating run failed", logger.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1) //nolint:gocritic // exitAfterDefer: stop already called
	}
}

// run rates every configured games file and reports the outcome.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) (err error) {
	if len(cfg.GamesFiles) == 0 {
		return errNoGames
	}

	converter, err := newConverter(cfg)
	if err != nil {
		return err
	}

	store := repository.NewMemoryStore(repository.WithDefaultEntry(glicko2.Entry{
		Rating:     cfg.InitialRating,
		Deviation:  cfg.InitialDeviation,
		Volatility: cfg.InitialVolatility,
	}))

	counts := tally.New()
	sinks := []report.Sink{counts}
	if cfg.AnalysisOutfile != "" {
		csvSink, err := report.CreateCSVSink(cfg.AnalysisOutfile)
		if err != nil {
			return err
		}
		sinks = append(sinks, report.NewAsyncSink(ctx, csvSink, analysisQueueSize, log.Named("analysis")))
	}

	opts := []service.Option{
		service.WithLogger(log),
		service.WithUpdater(glicko2.NewUpdater(glicko2.WithTau(cfg.GlickoTau))),
		service.WithStore(store),
		service.WithSkipHeuristic(heuristics(cfg)...),
		service.WithSinks(sinks...),
		service.WithNaiveWinRate(cfg.NaiveWinRate),
	}
	// Game ids are only unique within one server's export; merging files
	// from several servers needs dedupe_size 0.
	if cfg.DedupeSize > 0 {
		opts = append(opts, service.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))))
	}

	snap, err := openSnapshotter(ctx, cfg)
	if err != nil {
		return err
	}
	if snap != nil {
		defer func() {
			if cerr := snap.Close(); cerr != nil {
				log.Warn(ctx, "close snapshot store", logger.Error(cerr))
			}
		}()
		opts = append(opts, service.WithSnapshotter(snap))
	}

	svc, err := service.New(converter, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if ferr := svc.Finish(ctx); ferr != nil {
			err = errors.Join(err, ferr)
		}
	}()

	if cfg.RestoreSnapshot && snap != nil {
		if _, err := svc.Restore(ctx); err != nil {
			if !errors.Is(err, repository.ErrNoSnapshot) {
				return err
			}
			log.Warn(ctx, "no snapshot to restore; starting from empty store")
		}
	}

	src, closeSources, err := openSources(cfg)
	if err != nil {
		return err
	}
	defer closeSources()

	if err := svc.Run(ctx, src); err != nil {
		return err
	}
	if err := svc.Finish(ctx); err != nil {
		return err
	}

	logSummary(ctx, log, counts.Summary())
	logLeaderboard(ctx, log, store, converter, cfg.TopPlayers)

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			return err
		}
	}
	return nil
}

func newConverter(cfg *config.Config) (*ranks.Converter, error) {
	system, err := ranks.ParseSystem(cfg.RankSystem)
	if err != nil {
		return nil, err
	}
	return ranks.New(system, cfg.RankOptions()...)
}

func heuristics(cfg *config.Config) []skip.Heuristic {
	var hs []skip.Heuristic
	if cfg.MassTimeoutRule {
		hs = append(hs, skip.NewMassTimeout(skip.WithMinPairs(cfg.MassTimeoutMinPairs)))
	}
	if cfg.TimeoutRatingFloor > 0 {
		hs = append(hs, skip.RatingFloor{Floor: cfg.TimeoutRatingFloor})
	}
	return hs
}

// openSnapshotter picks Postgres over SQLite; neither configured means no
// snapshots.
func openSnapshotter(ctx context.Context, cfg *config.Config) (repository.Snapshotter, error) {
	switch {
	case cfg.SnapshotDSN != "":
		return postgres.Open(ctx, cfg.SnapshotDSN)
	case cfg.SnapshotPath != "":
		return sqlite.Open(ctx, cfg.SnapshotPath)
	default:
		return nil, nil //nolint:nilnil // no snapshot store configured
	}
}

// openSources merges every games file by end time, capped and filtered as
// configured.
func openSources(cfg *config.Config) (source.Source, func(), error) {
	speed, err := types.ParseSpeed(cfg.Speed)
	if err != nil {
		return nil, nil, err
	}

	var (
		closers []io.Closer
		srcs    []source.Source
	)
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}
	for _, path := range cfg.GamesFiles {
		f, err := source.OpenCSV(path)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("open games file: %w", err)
		}
		closers = append(closers, f)

		var s source.Source = f
		if cfg.BoardSize != 0 || speed != types.SpeedAny {
			s = source.Filter(s, source.SizeAndSpeed(cfg.BoardSize, speed))
		}
		srcs = append(srcs, source.Limit(s, cfg.MaxGames))
	}
	return source.Merge(srcs...), closeAll, nil
}

func logSummary(ctx context.Context, log logger.Logger, s tally.Summary) {
	log.Info(ctx, "prediction summary",
		logger.Int("games", s.Games),
		logger.Int("rated", s.Rated),
		logger.Int("skipped", s.Skipped),
		logger.Int("no_result", s.NoResult),
		logger.Float64("accuracy", s.Overall.Accuracy()),
		logger.Float64("brier", s.Overall.MeanBrier()),
		logger.Float64("log_loss", s.Overall.MeanLogLoss()),
	)
	for _, b := range s.ByHandicap {
		log.Info(ctx, "prediction by handicap",
			logger.Int("handicap", b.Handicap),
			logger.Int("games", b.Games),
			logger.Float64("accuracy", b.Accuracy()),
			logger.Float64("brier", b.MeanBrier()),
		)
	}
}

func logLeaderboard(ctx context.Context, log logger.Logger, store *repository.MemoryStore, conv *ranks.Converter, n int) {
	if n <= 0 {
		return
	}
	top, err := store.TopN(ctx, n)
	if err != nil {
		log.Warn(ctx, "leaderboard unavailable", logger.Error(err))
		return
	}
	for i, e := range top {
		log.Info(ctx, "leaderboard",
			logger.Int("position", i+1),
			logger.Int64("player_id", int64(e.PlayerID)),
			logger.Float64("rating", e.Rating.Rating),
			logger.Float64("deviation", e.Rating.Deviation),
			logger.Float64("rank", conv.RatingToRank(e.Rating.Rating)),
		)
	}
}
