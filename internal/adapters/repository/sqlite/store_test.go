package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/goratings/internal/adapters/repository"
	"github.com/okian/goratings/internal/domain/glicko2"
	. "github.com/smartystreets/goconvey/convey"
)

func openTempSnapshotter(t *testing.T) (*Snapshotter, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshots.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open snapshotter: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestSnapshotter(t *testing.T) {
	Convey("Given a SQLite snapshotter", t, func() {
		ctx := context.Background()
		snap, path := openTempSnapshotter(t)

		Convey("When nothing was saved yet", func() {
			_, err := snap.Load(ctx, repository.NewMemoryStore())

			Convey("Then loading reports no snapshot", func() {
				So(errors.Is(err, repository.ErrNoSnapshot), ShouldBeTrue)
			})
		})

		Convey("When two snapshots are saved", func() {
			first := repository.NewMemoryStore()
			first.Set(ctx, 1, glicko2.Entry{Rating: 1600, Deviation: 200, Volatility: 0.06})
			So(snap.Save(ctx, repository.SnapshotMeta{RunID: "run-a", GamesProcessed: 1, LastEndedAt: 10}, first), ShouldBeNil)

			second := first.Copy()
			second.Set(ctx, 2, glicko2.Entry{Rating: 1420.5, Deviation: 180.25, Volatility: 0.0601})
			takenAt := time.UnixMilli(1_700_000_000_000).UTC()
			So(snap.Save(ctx, repository.SnapshotMeta{RunID: "run-a", GamesProcessed: 2, LastEndedAt: 20, TakenAt: takenAt}, second), ShouldBeNil)

			restored := repository.NewMemoryStore()
			meta, err := snap.Load(ctx, restored)

			Convey("Then the latest one is restored exactly", func() {
				So(err, ShouldBeNil)
				So(meta.RunID, ShouldEqual, "run-a")
				So(meta.GamesProcessed, ShouldEqual, 2)
				So(meta.LastEndedAt, ShouldEqual, int64(20))
				So(meta.TakenAt, ShouldEqual, takenAt)
				So(restored.Len(ctx), ShouldEqual, 2)
				e, ok := restored.Lookup(ctx, 2)
				So(ok, ShouldBeTrue)
				So(e, ShouldResemble, glicko2.Entry{Rating: 1420.5, Deviation: 180.25, Volatility: 0.0601})
			})

			Convey("And reopening the file keeps the snapshots", func() {
				So(snap.Close(), ShouldBeNil)
				reopened, err := Open(ctx, path)
				So(err, ShouldBeNil)
				defer reopened.Close()

				meta, err := reopened.Load(ctx, repository.NewMemoryStore())
				So(err, ShouldBeNil)
				So(meta.GamesProcessed, ShouldEqual, 2)
			})
		})

		Convey("When the path is empty", func() {
			_, err := Open(ctx, "  ")

			Convey("Then opening fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestExtractUpMigration(t *testing.T) {
	Convey("Given migration text", t, func() {
		So(extractUpMigration("-- +migrate Up\nA\n-- +migrate Down\nB"), ShouldEqual, "\nA\n")
		So(extractUpMigration("-- +migrate Up\nA"), ShouldEqual, "\nA")
		So(extractUpMigration("A"), ShouldEqual, "A")
	})
}
