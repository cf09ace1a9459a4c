package config_test

import (
	"errors"
	"testing"

	"github.com/okian/goratings/internal/config"
	"github.com/okian/goratings/internal/domain/ranks"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.RankSystem, convey.ShouldEqual, "log")
			convey.So(cfg.RankA, convey.ShouldEqual, ranks.DefaultA)
			convey.So(cfg.RankC, convey.ShouldEqual, ranks.DefaultC)
			convey.So(cfg.GlickoTau, convey.ShouldEqual, 0.5)
			convey.So(cfg.InitialRating, convey.ShouldEqual, 1500)
			convey.So(cfg.InitialDeviation, convey.ShouldEqual, 350)
			convey.So(cfg.InitialVolatility, convey.ShouldEqual, 0.06)
			convey.So(cfg.MassTimeoutRule, convey.ShouldBeTrue)
			convey.So(cfg.MassTimeoutMinPairs, convey.ShouldEqual, 3)
			convey.So(cfg.NaiveWinRate, convey.ShouldBeTrue)
			convey.So(cfg.Speed, convey.ShouldEqual, "any")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the rank options build a converter", func() {
			conv, err := ranks.New(ranks.SystemLog, cfg.RankOptions()...)
			convey.So(err, convey.ShouldBeNil)
			convey.So(conv.System(), convey.ShouldEqual, ranks.SystemLog)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config", t, func() {
		cfg := config.New()

		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"unknown rank system", func(c *config.Config) { c.RankSystem = "elo" }},
			{"unknown speed", func(c *config.Config) { c.Speed = "blitz" }},
			{"non positive tau", func(c *config.Config) { c.GlickoTau = 0 }},
			{"zero initial deviation", func(c *config.Config) { c.InitialDeviation = 0 }},
			{"zero mass timeout pairs", func(c *config.Config) { c.MassTimeoutMinPairs = 0 }},
			{"negative board size", func(c *config.Config) { c.BoardSize = -1 }},
			{"blank games file", func(c *config.Config) { c.GamesFiles = []string{"a.csv", " "} }},
		}

		for _, tc := range cases {
			convey.Convey("When it has "+tc.name, func() {
				tc.mutate(cfg)

				convey.Convey("Then validation fails", func() {
					convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}
	})
}
