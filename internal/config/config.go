// Package config defines run configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat snake_case names matching the koanf tags below.
// - Provide New() to build a Config with defaults.
// - Validate before handing values to the engine.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/goratings/internal/domain/ranks"
	"github.com/okian/goratings/internal/domain/types"
)

// Config contains run configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// RankSystem names the rank<->rating formula family.
	RankSystem string `koanf:"rank_system"`

	// Coefficients of the log, logp and sig systems.
	RankA float64 `koanf:"rank_a"`
	RankC float64 `koanf:"rank_c"`
	RankD float64 `koanf:"rank_d"`
	RankP float64 `koanf:"rank_p"`

	// Coefficients of the linear system.
	RankM float64 `koanf:"rank_m"`
	RankB float64 `koanf:"rank_b"`

	// Calibration constants of the exhaustivelog and exhaustivelogp systems.
	CalibrationA float64 `koanf:"calibration_a"`
	CalibrationC float64 `koanf:"calibration_c"`
	CalibrationD float64 `koanf:"calibration_d"`
	CalibrationP float64 `koanf:"calibration_p"`

	// HalfStoneHandicap counts handicap one as half a rank.
	HalfStoneHandicap bool `koanf:"half_stone_handicap"`

	// HalfStoneHandicapForAllRanks subtracts half a rank from every handicap.
	HalfStoneHandicapForAllRanks bool `koanf:"half_stone_handicap_for_all_ranks"`

	// PiecewisePoints holds the 38 control ratings of the optimizer system.
	PiecewisePoints []float64 `koanf:"piecewise_points"`

	// Glicko-2 parameters and the entry new players start from.
	GlickoTau         float64 `koanf:"glicko_tau"`
	InitialRating     float64 `koanf:"initial_rating"`
	InitialDeviation  float64 `koanf:"initial_deviation"`
	InitialVolatility float64 `koanf:"initial_volatility"`

	// MassTimeoutRule skips timed out games that arrive in bulk.
	MassTimeoutRule bool `koanf:"mass_timeout_rule"`

	// MassTimeoutMinPairs is the number of distinct pairs timing out at the
	// same instant that marks a mass timeout.
	MassTimeoutMinPairs int `koanf:"mass_timeout_min_pairs"`

	// TimeoutRatingFloor skips timeouts between two players rated below it.
	// Zero disables the rule.
	TimeoutRatingFloor float64 `koanf:"timeout_rating_floor"`

	// NaiveWinRate drops deviation attenuation from reported predictions.
	NaiveWinRate bool `koanf:"naive_win_rate"`

	// GamesFiles lists CSV game files; they are merged by end time.
	GamesFiles []string `koanf:"games_files"`

	// BoardSize filters games by board size, 0 for all.
	BoardSize int `koanf:"board_size"`

	// Speed filters games: any, live, correspondence.
	Speed string `koanf:"speed"`

	// MaxGames caps the games read from each file, 0 for all.
	MaxGames int `koanf:"max_games"`

	// DedupeSize bounds the remembered game ids. Games sharing an id across
	// all games files are rated once; 0 turns the check off.
	DedupeSize int `koanf:"dedupe_size"`

	// AnalysisOutfile receives one CSV row per game when set.
	AnalysisOutfile string `koanf:"analysis_outfile"`

	// SnapshotPath is a SQLite file storing store snapshots.
	SnapshotPath string `koanf:"snapshot_path"`

	// SnapshotDSN is a Postgres DSN storing store snapshots. Takes
	// precedence over SnapshotPath.
	SnapshotDSN string `koanf:"snapshot_dsn"`

	// RestoreSnapshot seeds the store from the latest snapshot.
	RestoreSnapshot bool `koanf:"restore_snapshot"`

	// MetricsTextfile receives the metrics in text format when set.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// TopPlayers is the size of the leaderboard logged at the end.
	TopPlayers int `koanf:"top_players"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		RankSystem:          string(ranks.SystemLog),
		RankA:               ranks.DefaultA,
		RankC:               ranks.DefaultC,
		RankD:               ranks.DefaultD,
		RankP:               ranks.DefaultP,
		RankM:               ranks.DefaultM,
		RankB:               ranks.DefaultB,
		CalibrationA:        ranks.DefaultA,
		CalibrationC:        ranks.DefaultC,
		CalibrationD:        ranks.DefaultD,
		CalibrationP:        ranks.DefaultP,
		GlickoTau:           0.5,
		InitialRating:       1500,
		InitialDeviation:    350,
		InitialVolatility:   0.06,
		MassTimeoutRule:     true,
		MassTimeoutMinPairs: 3,
		NaiveWinRate:        true,
		Speed:               "any",
		DedupeSize:          1_000_000,
		TopPlayers:          10,
	}
}

// Validate checks values the engine cannot work with. Formula coefficients
// are checked when the rank converter is built.
func (c *Config) Validate() error {
	if _, err := ranks.ParseSystem(c.RankSystem); err != nil {
		return fmt.Errorf("%w: rank_system: %w", ErrInvalidConfig, err)
	}
	if _, err := types.ParseSpeed(c.Speed); err != nil {
		return fmt.Errorf("%w: speed: %w", ErrInvalidConfig, err)
	}
	if c.GlickoTau <= 0 {
		return fmt.Errorf("%w: glicko_tau must be positive", ErrInvalidConfig)
	}
	if c.InitialDeviation <= 0 || c.InitialVolatility <= 0 {
		return fmt.Errorf("%w: initial_deviation and initial_volatility must be positive", ErrInvalidConfig)
	}
	if c.MassTimeoutMinPairs < 1 {
		return fmt.Errorf("%w: mass_timeout_min_pairs must be at least 1", ErrInvalidConfig)
	}
	if c.BoardSize < 0 || c.MaxGames < 0 || c.DedupeSize < 0 {
		return fmt.Errorf("%w: board_size, max_games and dedupe_size must not be negative", ErrInvalidConfig)
	}
	for _, f := range c.GamesFiles {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("%w: games_files must not contain empty paths", ErrInvalidConfig)
		}
	}
	return nil
}

// RankOptions translates the rank settings into converter options.
func (c *Config) RankOptions() []ranks.Option {
	opts := []ranks.Option{
		ranks.WithLogCoefficients(c.RankA, c.RankC, c.RankD, c.RankP),
		ranks.WithLinearCoefficients(c.RankM, c.RankB),
		ranks.WithCalibration(ranks.Calibration{
			A: c.CalibrationA, C: c.CalibrationC, D: c.CalibrationD, P: c.CalibrationP,
		}),
		ranks.WithHalfStoneHandicap(c.HalfStoneHandicap),
		ranks.WithHalfStoneHandicapForAllRanks(c.HalfStoneHandicapForAllRanks),
	}
	if len(c.PiecewisePoints) > 0 {
		opts = append(opts, ranks.WithControlPoints(c.PiecewisePoints))
	}
	return opts
}
