package types_test

import (
	"testing"

	types "github.com/okian/goratings/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func ptr(v float64) *float64 { return &v }

func TestParseSpeed(t *testing.T) {
	Convey("Given speed names", t, func() {
		Convey("When parsing known names", func() {
			Convey("Then they should map to speed classes", func() {
				for in, want := range map[string]types.Speed{
					"":               types.SpeedAny,
					"any":            types.SpeedAny,
					"LIVE":           types.SpeedLive,
					" corr ":         types.SpeedCorrespondence,
					"correspondence": types.SpeedCorrespondence,
				} {
					got, err := types.ParseSpeed(in)
					So(err, ShouldBeNil)
					So(got, ShouldEqual, want)
				}
			})
		})

		Convey("When parsing an unknown name", func() {
			_, err := types.ParseSpeed("blitz")

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When printing", func() {
			So(types.SpeedLive.String(), ShouldEqual, "live")
			So(types.SpeedCorrespondence.String(), ShouldEqual, "correspondence")
			So(types.SpeedAny.String(), ShouldEqual, "any")
		})
	})
}

func TestClassifySpeed(t *testing.T) {
	Convey("Given times per move", t, func() {
		Convey("When the time is at the threshold", func() {
			s, ok := types.ClassifySpeed(ptr(3600))

			Convey("Then it is live", func() {
				So(ok, ShouldBeTrue)
				So(s, ShouldEqual, types.SpeedLive)
			})
		})

		Convey("When the time is above the threshold", func() {
			s, ok := types.ClassifySpeed(ptr(3601))

			Convey("Then it is correspondence", func() {
				So(ok, ShouldBeTrue)
				So(s, ShouldEqual, types.SpeedCorrespondence)
			})
		})

		Convey("When the time is unknown", func() {
			_, ok := types.ClassifySpeed(nil)

			Convey("Then it cannot be classified", func() {
				So(ok, ShouldBeFalse)
			})
		})
	})
}
