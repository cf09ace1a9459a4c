package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/goratings/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			// Clear any existing environment variables
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.RankSystem, convey.ShouldEqual, "log")
				convey.So(cfg.MassTimeoutMinPairs, convey.ShouldEqual, 3)
				convey.So(cfg.GamesFiles, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("GORATINGS_RANK_SYSTEM", "linear")
			_ = os.Setenv("GORATINGS_RANK_M", "120")
			_ = os.Setenv("GORATINGS_HALF_STONE_HANDICAP", "true")
			_ = os.Setenv("GORATINGS_GAMES_FILES", "a.csv, b.csv")
			_ = os.Setenv("GORATINGS_BOARD_SIZE", "19")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.RankSystem, convey.ShouldEqual, "linear")
				convey.So(cfg.RankM, convey.ShouldEqual, 120)
				convey.So(cfg.HalfStoneHandicap, convey.ShouldBeTrue)
				convey.So(cfg.GamesFiles, convey.ShouldResemble, []string{"a.csv", "b.csv"})
				convey.So(cfg.BoardSize, convey.ShouldEqual, 19)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
rank_system: optimizer
speed: live
mass_timeout_min_pairs: 5
games_files:
  - ogs.csv
`
			tmpFile := createTempConfigFile(t, yamlContent)
			_ = os.Setenv("GORATINGS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.RankSystem, convey.ShouldEqual, "optimizer")
				convey.So(cfg.Speed, convey.ShouldEqual, "live")
				convey.So(cfg.MassTimeoutMinPairs, convey.ShouldEqual, 5)
				convey.So(cfg.GamesFiles, convey.ShouldResemble, []string{"ogs.csv"})
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
rank_system: gor
speed: correspondence
`
			tmpFile := createTempConfigFile(t, yamlContent)
			_ = os.Setenv("GORATINGS_CONFIG", tmpFile)
			_ = os.Setenv("GORATINGS_RANK_SYSTEM", "sig") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.RankSystem, convey.ShouldEqual, "sig")       // Overridden by env
				convey.So(cfg.Speed, convey.ShouldEqual, "correspondence") // From file
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("GORATINGS_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("GORATINGS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an invalid value", func() {
			_ = os.Setenv("GORATINGS_SPEED", "blitz")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"GORATINGS_CONFIG",
		"GORATINGS_RANK_SYSTEM",
		"GORATINGS_RANK_M",
		"GORATINGS_HALF_STONE_HANDICAP",
		"GORATINGS_GAMES_FILES",
		"GORATINGS_BOARD_SIZE",
		"GORATINGS_SPEED",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goratings.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
