package dedupe_test

import (
	"context"
	"testing"

	dedupe "github.com/okian/goratings/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()

		Convey("When creating a deduper with default options", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("Then it should start empty", func() {
				So(d, ShouldNotBeNil)
				So(d.Size(), ShouldEqual, 0)
			})
		})

		Convey("When recording game ids", func() {
			d := dedupe.NewInMemoryDeduper()

			Convey("And the id is new", func() {
				seen := d.SeenAndRecord(ctx, 1)

				Convey("Then it should return false and record the id", func() {
					So(seen, ShouldBeFalse)
					So(d.Size(), ShouldEqual, 1)
				})
			})

			Convey("And the id was already seen", func() {
				d.SeenAndRecord(ctx, 1)
				seen := d.SeenAndRecord(ctx, 1)

				Convey("Then it should return true and not grow", func() {
					So(seen, ShouldBeTrue)
					So(d.Size(), ShouldEqual, 1)
				})
			})
		})

		Convey("When the deduper is bounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
			for id := int64(1); id <= 4; id++ {
				So(d.SeenAndRecord(ctx, id), ShouldBeFalse)
			}

			Convey("Then the oldest id is forgotten first", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, 4), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, 2), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, 1), ShouldBeFalse)
			})

			Convey("And eviction keeps cycling through the ring", func() {
				for id := int64(5); id <= 10; id++ {
					d.SeenAndRecord(ctx, id)
				}
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, 10), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, 8), ShouldBeTrue)
				So(d.SeenAndRecord(ctx, 7), ShouldBeFalse)
			})
		})

		Convey("When the deduper is unbounded", func() {
			d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
			for id := int64(0); id < 1000; id++ {
				d.SeenAndRecord(ctx, id)
			}

			Convey("Then every id is remembered", func() {
				So(d.Size(), ShouldEqual, 1000)
				So(d.SeenAndRecord(ctx, 0), ShouldBeTrue)
			})
		})
	})
}
