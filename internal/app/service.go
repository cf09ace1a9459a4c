// Package service runs the rating engine: it feeds an ordered game stream
// through the per-game pipeline and hands analytics to the report sinks.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/okian/goratings/internal/adapters/report"
	"github.com/okian/goratings/internal/adapters/repository"
	"github.com/okian/goratings/internal/adapters/source"
	"github.com/okian/goratings/internal/domain/dedupe"
	"github.com/okian/goratings/internal/domain/glicko2"
	"github.com/okian/goratings/internal/domain/model"
	"github.com/okian/goratings/internal/domain/ranks"
	"github.com/okian/goratings/internal/domain/skip"
	"github.com/okian/goratings/pkg/logger"
	"github.com/okian/goratings/pkg/metrics"
)

// Service rates games one at a time. It is single threaded: every game
// depends on the state left by all earlier games of its players, so the
// store has exactly one writer and games are never reordered.
type Service struct {
	converter   *ranks.Converter
	updater     *glicko2.Updater
	store       repository.Store
	heuristic   skip.Heuristic
	sinks       []report.Sink
	deduper     dedupe.Deduper
	snapshotter repository.Snapshotter
	naive       bool
	runID       string

	// Run state
	stats       Stats
	lastEndedAt int64
	started     bool
	resumeAfter *int64
	failed      bool
	finished    bool

	logger logger.Logger
}

// Stats counts what happened to the games pulled so far.
type Stats struct {
	Rated      int
	Skipped    int
	Duplicates int
	Resumed    int // games already covered by a restored snapshot
}

// New constructs a Service around converter with configuration options.
func New(converter *ranks.Converter, opts ...Option) (*Service, error) {
	if converter == nil {
		return nil, fmt.Errorf("%w: rank converter is required", ErrNotReady)
	}
	s := &Service{
		converter: converter,
		updater:   glicko2.NewUpdater(),
		heuristic: skip.Never,
		runID:     uuid.NewString(),
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	s.logger = s.logger.Named("engine")
	return s, nil
}

// RunID returns the label of this run.
func (s *Service) RunID() string { return s.runID }

// Store returns the player store.
func (s *Service) Store() repository.Store { return s.store }

// Stats returns the counters of the run so far.
func (s *Service) Stats() Stats { return s.stats }

// Restore seeds the store from the latest snapshot. Games ending at or
// before the snapshot's last game are then treated as already rated.
func (s *Service) Restore(ctx context.Context) (repository.SnapshotMeta, error) {
	if s.snapshotter == nil {
		return repository.SnapshotMeta{}, fmt.Errorf("%w: no snapshotter", ErrNotReady)
	}
	if s.started {
		return repository.SnapshotMeta{}, fmt.Errorf("%w: restore after games were processed", ErrNotReady)
	}
	meta, err := s.snapshotter.Load(ctx, s.store)
	if err != nil {
		return repository.SnapshotMeta{}, err
	}
	last := meta.LastEndedAt
	s.resumeAfter = &last
	s.logger.Info(ctx, "restored snapshot",
		logger.String("snapshot_run_id", meta.RunID),
		logger.Int("games_processed", meta.GamesProcessed),
		logger.Int64("last_ended_at", meta.LastEndedAt),
		logger.Int("players", s.store.Len(ctx)),
	)
	return meta, nil
}

// ProcessGame runs one game through the pipeline:
//
//  1. apply manual rank overrides
//  2. check the skip heuristic
//  3. fetch both entries
//  4. shift each side's opponent by the handicap adjustment
//  5. update both sides
//  6. persist both entries
//  7. compute black's expected win rate
//  8. emit analytics
//
// An error leaves the run invalid; there is no rollback of a partial game
// and Finish will not snapshot the store.
func (s *Service) ProcessGame(ctx context.Context, game model.GameRecord) (model.Analytics, error) { //nolint:gocritic // hugeParam: games are immutable values
	a, err := s.processGame(ctx, game)
	if err != nil {
		s.failed = true
	}
	return a, err
}

func (s *Service) processGame(ctx context.Context, game model.GameRecord) (model.Analytics, error) { //nolint:gocritic // hugeParam: games are immutable values
	start := time.Now()

	if err := game.Validate(); err != nil {
		metrics.RecordDataError()
		return model.Analytics{}, err
	}
	if s.started && game.EndedAt < s.lastEndedAt {
		return model.Analytics{}, fmt.Errorf("%w: game %d ended at %d after %d", ErrOutOfOrder, game.ID, game.EndedAt, s.lastEndedAt)
	}
	s.started = true
	s.lastEndedAt = game.EndedAt
	metrics.UpdateLastEndedAt(game.EndedAt)

	s.applyOverride(ctx, game.ID, game.BlackID, game.BlackManualRank)
	s.applyOverride(ctx, game.ID, game.WhiteID, game.WhiteManualRank)

	if reason, ok := skip.Reason(ctx, s.heuristic, game, s.store); ok {
		s.stats.Skipped++
		metrics.RecordGameSkipped(reason)
		s.logger.Debug(ctx, "game skipped",
			logger.Int64("game_id", game.ID),
			logger.String("reason", reason),
		)
		a := model.SkippedAnalytics(game)
		return a, s.emit(ctx, a)
	}

	black := s.store.Get(ctx, game.BlackID)
	white := s.store.Get(ctx, game.WhiteID)

	adjCtx := ranks.AdjustmentContext{Komi: game.Komi, Size: game.Size, Rules: game.Rules}
	blackAdj := s.converter.HandicapAdjustment(black.Rating, game.Handicap, adjCtx)
	whiteAdj := s.converter.HandicapAdjustment(white.Rating, game.Handicap, adjCtx)

	// Black faces white moved down by the handicap, white faces black moved
	// up by it. The two adjustments come from different ratings.
	updatedBlack, err := s.update(ctx, game, black, white.Shifted(-whiteAdj), game.BlackWon())
	if err != nil {
		return model.Analytics{}, fmt.Errorf("game %d: black: %w", game.ID, err)
	}
	updatedWhite, err := s.update(ctx, game, white, black.Shifted(blackAdj), game.WhiteWon())
	if err != nil {
		return model.Analytics{}, fmt.Errorf("game %d: white: %w", game.ID, err)
	}

	s.store.Set(ctx, game.BlackID, updatedBlack)
	s.store.Set(ctx, game.WhiteID, updatedWhite)

	expected := glicko2.ExpectedWinProbability(black, white, blackAdj, s.naive)

	a := model.Analytics{
		Game:                   game,
		ExpectedWinRate:        expected,
		BlackRating:            black.Rating,
		BlackDeviation:         black.Deviation,
		BlackRank:              s.converter.RatingToRank(black.Rating),
		WhiteRating:            white.Rating,
		WhiteDeviation:         white.Deviation,
		WhiteRank:              s.converter.RatingToRank(white.Rating),
		BlackUpdatedRating:     updatedBlack.Rating,
		BlackUpdatedDeviation:  updatedBlack.Deviation,
		BlackUpdatedVolatility: updatedBlack.Volatility,
		WhiteUpdatedRating:     updatedWhite.Rating,
		WhiteUpdatedDeviation:  updatedWhite.Deviation,
		WhiteUpdatedVolatility: updatedWhite.Volatility,
	}

	s.stats.Rated++
	metrics.RecordGameProcessed()
	metrics.RecordExpectedWinRate(expected)
	if game.Decided() && expected != 0.5 {
		metrics.RecordPrediction((expected > 0.5) == game.BlackWon())
	}
	metrics.RecordUpdateLatency(float64(time.Since(start).Microseconds()))

	return a, s.emit(ctx, a)
}

// applyOverride replaces a player's entry with a fresh one at the rating of
// a manually assigned rank.
func (s *Service) applyOverride(ctx context.Context, gameID int64, id model.PlayerID, rank *float64) {
	if rank == nil {
		return
	}
	e := glicko2.NewEntry()
	if d, ok := s.store.(interface{ DefaultEntry() glicko2.Entry }); ok {
		e = d.DefaultEntry()
	}
	e.Rating = s.converter.RankToRating(*rank)
	s.store.Set(ctx, id, e)
	metrics.RecordManualOverride()
	s.logger.Debug(ctx, "manual rank override",
		logger.Int64("game_id", gameID),
		logger.Int64("player_id", int64(id)),
		logger.Float64("rank", *rank),
		logger.Float64("rating", e.Rating),
	)
}

// update runs one single-opponent rating period. A side only scores when it
// won; games without a decision count as a loss for both.
func (s *Service) update(ctx context.Context, game model.GameRecord, player, opponent glicko2.Entry, won bool) (glicko2.Entry, error) { //nolint:gocritic // hugeParam: games are immutable values
	outcome := glicko2.Loss
	if won {
		outcome = glicko2.Win
	}
	out, err := s.updater.Update(player, []glicko2.Match{{Opponent: opponent, Outcome: outcome}})
	if err != nil {
		if errors.Is(err, glicko2.ErrNoConvergence) {
			metrics.RecordConvergenceFailure()
		}
		s.logger.Error(ctx, "rating update failed",
			logger.Int64("game_id", game.ID),
			logger.Error(err),
		)
		return glicko2.Entry{}, err
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, a model.Analytics) error { //nolint:gocritic // hugeParam: analytics are values
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, a); err != nil {
			return fmt.Errorf("game %d: write analytics: %w", a.Game.ID, err)
		}
	}
	return nil
}

// Run pulls every game from src and processes it. Games sharing one end
// time are gathered first so batch observing heuristics see the whole
// instant. Repeated game ids are dropped.
func (s *Service) Run(ctx context.Context, src source.Source) error {
	s.logger.Info(ctx, "rating run started",
		logger.String("run_id", s.runID),
		logger.String("rank_system", string(s.converter.System())),
		logger.String("handicap_policy", s.converter.Policy().String()),
	)

	var (
		batch   []model.GameRecord
		pending *model.GameRecord
	)
	for {
		batch = batch[:0]
		if pending != nil {
			batch = append(batch, *pending)
			pending = nil
		}

		// Gather one instant.
		for {
			g, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				s.failed = true
				metrics.RecordDataError()
				return fmt.Errorf("read games: %w", err)
			}
			if !s.accept(ctx, g) {
				continue
			}
			if len(batch) > 0 && g.EndedAt != batch[0].EndedAt {
				pending = &g
				break
			}
			batch = append(batch, g)
		}
		if len(batch) == 0 {
			break
		}

		s.observe(batch)
		for _, g := range batch {
			if _, err := s.ProcessGame(ctx, g); err != nil {
				return err
			}
		}
		if pending == nil {
			break
		}
	}

	s.logger.Info(ctx, "rating run finished",
		logger.String("run_id", s.runID),
		logger.Int("rated", s.stats.Rated),
		logger.Int("skipped", s.stats.Skipped),
		logger.Int("duplicates", s.stats.Duplicates),
		logger.Int("resumed", s.stats.Resumed),
		logger.Int("players", s.store.Len(ctx)),
	)
	return nil
}

// accept filters games already covered by a snapshot or seen in this run.
func (s *Service) accept(ctx context.Context, g model.GameRecord) bool { //nolint:gocritic // hugeParam: games are immutable values
	if s.resumeAfter != nil && g.EndedAt <= *s.resumeAfter {
		s.stats.Resumed++
		return false
	}
	if s.deduper != nil && s.deduper.SeenAndRecord(ctx, g.ID) {
		s.stats.Duplicates++
		metrics.RecordGameDuplicate()
		s.logger.Debug(ctx, "duplicate game dropped", logger.Int64("game_id", g.ID))
		return false
	}
	return true
}

func (s *Service) observe(batch []model.GameRecord) {
	if o, ok := s.heuristic.(skip.BatchObserver); ok {
		o.Observe(batch)
	}
}

// Finish closes every sink and saves a snapshot of the store when a
// snapshotter is configured and the run did not fail. It is safe to call
// more than once.
func (s *Service) Finish(ctx context.Context) error {
	if s.finished {
		return nil
	}
	s.finished = true

	var errs []error
	for _, sink := range s.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	switch {
	case s.snapshotter == nil:
	case s.failed:
		s.logger.Warn(ctx, "run failed, snapshot not saved", logger.String("run_id", s.runID))
	default:
		meta := repository.SnapshotMeta{
			RunID:          s.runID,
			GamesProcessed: s.stats.Rated + s.stats.Skipped,
			LastEndedAt:    s.lastEndedAt,
			TakenAt:        time.Now(),
		}
		if s.resumeAfter != nil && !s.started {
			meta.LastEndedAt = *s.resumeAfter
		}
		if err := s.snapshotter.Save(ctx, meta, s.store); err != nil {
			errs = append(errs, err)
		} else {
			s.logger.Info(ctx, "snapshot saved",
				logger.String("run_id", s.runID),
				logger.Int("players", s.store.Len(ctx)),
			)
		}
	}
	return errors.Join(errs...)
}
