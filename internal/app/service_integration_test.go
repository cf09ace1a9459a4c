package service_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/goratings/internal/adapters/report"
	"github.com/okian/goratings/internal/adapters/repository"
	"github.com/okian/goratings/internal/adapters/repository/sqlite"
	"github.com/okian/goratings/internal/adapters/source"
	service "github.com/okian/goratings/internal/app"
	"github.com/okian/goratings/internal/domain/dedupe"
	"github.com/okian/goratings/internal/domain/model"
	"github.com/okian/goratings/internal/domain/skip"
	"github.com/okian/goratings/internal/domain/tally"
	"github.com/okian/goratings/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func trajectory() []model.GameRecord {
	g2 := game(2, 2, 3, 3, 200)
	g2.Handicap = 2
	return []model.GameRecord{
		game(1, 1, 2, 1, 100),
		g2,
		game(3, 3, 1, model.NoDecision, 300),
	}
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given two independent services", t, func() {
		ctx := context.Background()
		first := &report.Collector{}
		second := &report.Collector{}
		a, err := service.New(newConverter(t), service.WithSinks(first))
		So(err, ShouldBeNil)
		b, err := service.New(newConverter(t), service.WithSinks(second))
		So(err, ShouldBeNil)

		Convey("When both rate the same three games", func() {
			So(a.Run(ctx, source.FromSlice(trajectory())), ShouldBeNil)
			So(b.Run(ctx, source.FromSlice(trajectory())), ShouldBeNil)

			Convey("Then the trajectories are identical", func() {
				So(first.Records, ShouldHaveLength, 3)
				So(first.Records, ShouldResemble, second.Records)
			})

			Convey("Then every game lands on the known Glicko-2 values", func() {
				want := []struct {
					expected              float64
					blackRating, blackDev float64
					whiteRating, whiteDev float64
					blackVol, whiteVol    float64
				}{
					{0.500000000, 1662.310894, 290.318964, 1337.689106, 290.318964, 0.059999675, 0.059999675},
					{0.465951962, 1220.253700, 253.610287, 1653.213353, 281.696264, 0.059999316, 0.059999464},
					{0.491955395, 1531.552848, 242.083552, 1529.338239, 246.544337, 0.059999073, 0.059999336},
				}
				for i, w := range want {
					r := first.Records[i]
					So(r.ExpectedWinRate, ShouldAlmostEqual, w.expected, 1e-6)
					So(r.BlackUpdatedRating, ShouldAlmostEqual, w.blackRating, 1e-6)
					So(r.BlackUpdatedDeviation, ShouldAlmostEqual, w.blackDev, 1e-6)
					So(r.BlackUpdatedVolatility, ShouldAlmostEqual, w.blackVol, 1e-6)
					So(r.WhiteUpdatedRating, ShouldAlmostEqual, w.whiteRating, 1e-6)
					So(r.WhiteUpdatedDeviation, ShouldAlmostEqual, w.whiteDev, 1e-6)
					So(r.WhiteUpdatedVolatility, ShouldAlmostEqual, w.whiteVol, 1e-6)
				}
			})

			Convey("Then every player ends with a rating", func() {
				So(a.Store().Len(ctx), ShouldEqual, 3)
				So(a.Stats().Rated, ShouldEqual, 3)
			})

			Convey("Then each game starts from the previous game's result", func() {
				r := first.Records
				So(r[1].BlackRating, ShouldEqual, r[0].WhiteUpdatedRating)
				So(r[2].WhiteRating, ShouldEqual, r[0].BlackUpdatedRating)
				So(r[2].BlackRating, ShouldEqual, r[1].WhiteUpdatedRating)
			})
		})
	})

	Convey("Given a stream with repeated game ids", t, func() {
		ctx := context.Background()
		sink := &report.Collector{}
		svc, err := service.New(newConverter(t),
			service.WithSinks(sink),
			service.WithDeduper(dedupe.NewInMemoryDeduper()),
		)
		So(err, ShouldBeNil)
		games := trajectory()
		games = append(games[:2:2], games[1], games[2])

		Convey("When the stream is run", func() {
			So(svc.Run(ctx, source.FromSlice(games)), ShouldBeNil)

			Convey("Then the repeat is dropped", func() {
				So(sink.Records, ShouldHaveLength, 3)
				So(svc.Stats().Duplicates, ShouldEqual, 1)
			})
		})
	})

	Convey("Given a stream out of end time order", t, func() {
		svc, err := service.New(newConverter(t))
		So(err, ShouldBeNil)
		games := trajectory()
		games[0], games[2] = games[2], games[0]

		Convey("Then the run fails", func() {
			err := svc.Run(context.Background(), source.FromSlice(games))
			So(errors.Is(err, service.ErrOutOfOrder), ShouldBeTrue)
		})
	})

	Convey("Given a mass timeout among normal games", t, func() {
		ctx := context.Background()
		sink := &report.Collector{}
		svc, err := service.New(newConverter(t),
			service.WithSinks(sink),
			service.WithSkipHeuristic(skip.NewMassTimeout()),
		)
		So(err, ShouldBeNil)

		var games []model.GameRecord
		for i := range 4 {
			g := game(int64(i+1), model.PlayerID(10+2*i), model.PlayerID(11+2*i), model.PlayerID(11+2*i), 500)
			g.TimedOut = true
			games = append(games, g)
		}
		lone := game(5, 1, 2, 2, 600)
		lone.TimedOut = true
		games = append(games, lone)

		Convey("When the stream is run", func() {
			So(svc.Run(ctx, source.FromSlice(games)), ShouldBeNil)

			Convey("Then the burst is skipped and the lone timeout is rated", func() {
				So(sink.Records, ShouldHaveLength, 5)
				for _, r := range sink.Records[:4] {
					So(r.Skipped, ShouldBeTrue)
				}
				So(sink.Records[4].Skipped, ShouldBeFalse)
				So(svc.Stats().Skipped, ShouldEqual, 4)
				So(svc.Store().Len(ctx), ShouldEqual, 2)
			})
		})
	})
}

func TestServiceReporting(t *testing.T) {
	Convey("Given CSV, async and tally sinks", t, func() {
		ctx := context.Background()
		var out bytes.Buffer
		csvSink, err := report.NewCSVSink(&out)
		So(err, ShouldBeNil)
		async := report.NewAsyncSink(ctx, csvSink, 16, logger.Nop())
		counts := tally.New()
		svc, err := service.New(newConverter(t), service.WithSinks(async, counts))
		So(err, ShouldBeNil)

		Convey("When a run finishes", func() {
			So(svc.Run(ctx, source.FromSlice(trajectory())), ShouldBeNil)
			So(svc.Finish(ctx), ShouldBeNil)

			Convey("Then every game is written after the header", func() {
				lines := strings.Split(strings.TrimSpace(out.String()), "\n")
				So(lines, ShouldHaveLength, 4)
				So(lines[0], ShouldStartWith, "GameId,")
				So(lines[1], ShouldStartWith, "1,")
			})

			Convey("Then the tally saw every game", func() {
				s := counts.Summary()
				So(s.Games, ShouldEqual, 3)
				So(s.NoResult, ShouldEqual, 1)
				So(s.Overall.Games, ShouldEqual, 2)
			})

			Convey("Then finishing again is harmless", func() {
				So(svc.Finish(ctx), ShouldBeNil)
			})
		})
	})
}

func TestServiceSnapshots(t *testing.T) {
	Convey("Given a run saved to a sqlite snapshot", t, func() {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "ratings.db")
		snap, err := sqlite.Open(ctx, path)
		So(err, ShouldBeNil)
		defer snap.Close()

		games := trajectory()
		svc, err := service.New(newConverter(t), service.WithSnapshotter(snap), service.WithRunID("first"))
		So(err, ShouldBeNil)
		So(svc.Run(ctx, source.FromSlice(games[:2])), ShouldBeNil)
		So(svc.Finish(ctx), ShouldBeNil)

		Convey("When a new service restores it and reads the whole stream", func() {
			store := repository.NewMemoryStore()
			sink := &report.Collector{}
			next, err := service.New(newConverter(t),
				service.WithStore(store),
				service.WithSnapshotter(snap),
				service.WithSinks(sink),
			)
			So(err, ShouldBeNil)
			meta, err := next.Restore(ctx)
			So(err, ShouldBeNil)
			So(next.Run(ctx, source.FromSlice(games)), ShouldBeNil)

			Convey("Then only the unseen game is rated", func() {
				So(meta.RunID, ShouldEqual, "first")
				So(meta.LastEndedAt, ShouldEqual, 200)
				So(next.Stats().Resumed, ShouldEqual, 2)
				So(sink.Records, ShouldHaveLength, 1)
				So(sink.Records[0].Game.ID, ShouldEqual, 3)
			})

			Convey("Then it continues from the saved ratings", func() {
				saved, ok := svc.Store().Lookup(ctx, 3)
				So(ok, ShouldBeTrue)
				So(sink.Records[0].BlackRating, ShouldEqual, saved.Rating)
			})

			Convey("Then the result matches an uninterrupted run", func() {
				full := &report.Collector{}
				whole, err := service.New(newConverter(t), service.WithSinks(full))
				So(err, ShouldBeNil)
				So(whole.Run(ctx, source.FromSlice(games)), ShouldBeNil)
				So(sink.Records[0].BlackUpdatedRating, ShouldAlmostEqual, full.Records[2].BlackUpdatedRating, 1e-9)
				So(sink.Records[0].WhiteUpdatedVolatility, ShouldAlmostEqual, full.Records[2].WhiteUpdatedVolatility, 1e-12)
			})
		})
	})

	Convey("Given a run that fails part way", t, func() {
		ctx := context.Background()
		snap, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "failed.db"))
		So(err, ShouldBeNil)
		defer snap.Close()
		svc, err := service.New(newConverter(t), service.WithSnapshotter(snap))
		So(err, ShouldBeNil)
		games := trajectory()
		games[0], games[2] = games[2], games[0]
		So(svc.Run(ctx, source.FromSlice(games)), ShouldNotBeNil)

		Convey("Then finishing does not save a snapshot", func() {
			So(svc.Finish(ctx), ShouldBeNil)
			_, err := snap.Load(ctx, repository.NewMemoryStore())
			So(errors.Is(err, repository.ErrNoSnapshot), ShouldBeTrue)
		})
	})

	Convey("Given an empty snapshot database", t, func() {
		ctx := context.Background()
		snap, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "empty.db"))
		So(err, ShouldBeNil)
		defer snap.Close()
		svc, err := service.New(newConverter(t), service.WithSnapshotter(snap))
		So(err, ShouldBeNil)

		Convey("Then restoring reports that nothing was saved", func() {
			_, err := svc.Restore(ctx)
			So(errors.Is(err, repository.ErrNoSnapshot), ShouldBeTrue)
		})
	})

}
