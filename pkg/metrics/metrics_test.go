package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("ratings"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then its metrics should be registered on that registry", func() {
				So(manager, ShouldNotBeNil)
				manager.gamesProcessed.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "test_ratings_games_processed_total")
			})
		})

		Convey("When options receive empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "goratings")
				So(manager.subsystem, ShouldEqual, "engine")
				So(len(manager.histogramBuckets), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When win rate buckets fall outside the unit interval", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithWinRateBuckets([]float64{0.5, 1.5}), WithPrometheusRegistry(registry))

			Convey("Then the default buckets are kept", func() {
				So(manager.winRateBuckets, ShouldHaveLength, 9)
			})
		})

		Convey("When win rate buckets are valid", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithWinRateBuckets([]float64{0.25, 0.5, 0.75}), WithPrometheusRegistry(registry))

			Convey("Then they are used", func() {
				So(manager.winRateBuckets, ShouldResemble, []float64{0.25, 0.5, 0.75})
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording game flow", func() {
			before := testutil.ToFloat64(globalManager.gamesProcessed)
			RecordGameProcessed()
			RecordGameProcessed()

			Convey("Then the counter should advance", func() {
				So(testutil.ToFloat64(globalManager.gamesProcessed), ShouldEqual, before+2)
			})
		})

		Convey("When recording skips by reason", func() {
			before := testutil.ToFloat64(globalManager.gamesSkipped.WithLabelValues("mass_timeout"))
			RecordGameSkipped("mass_timeout")

			Convey("Then only that reason should advance", func() {
				So(testutil.ToFloat64(globalManager.gamesSkipped.WithLabelValues("mass_timeout")), ShouldEqual, before+1)
			})
		})

		Convey("When recording gauges", func() {
			UpdatePlayersTotal(42)
			UpdateLastEndedAt(1_600_000_000)
			RecordSnapshot(12.5, 42)

			Convey("Then the latest values should be kept", func() {
				So(testutil.ToFloat64(globalManager.playersTotal), ShouldEqual, 42.0)
				So(testutil.ToFloat64(globalManager.lastEndedAt), ShouldEqual, 1.6e9)
				So(testutil.ToFloat64(globalManager.snapshotEntries), ShouldEqual, 42.0)
			})
		})

		Convey("When recording predictions", func() {
			hits := testutil.ToFloat64(globalManager.predictionHits.WithLabelValues("hit"))
			misses := testutil.ToFloat64(globalManager.predictionHits.WithLabelValues("miss"))
			RecordPrediction(true)
			RecordPrediction(false)
			RecordPrediction(false)

			Convey("Then hits and misses are split", func() {
				So(testutil.ToFloat64(globalManager.predictionHits.WithLabelValues("hit")), ShouldEqual, hits+1)
				So(testutil.ToFloat64(globalManager.predictionHits.WithLabelValues("miss")), ShouldEqual, misses+2)
			})
		})

		Convey("When recording the remaining helpers", func() {
			So(func() {
				RecordGameDuplicate()
				RecordManualOverride()
				RecordConvergenceFailure()
				RecordDataError()
				RecordUpdateLatency(35)
				RecordExpectedWinRate(0.62)
				RecordSinkLatency(12)
			}, ShouldNotPanic)
		})

		Convey("When recording sink activity", func() {
			errs := testutil.ToFloat64(globalManager.sinkErrors.WithLabelValues("csv"))
			RecordSinkError("csv")
			UpdateAnalyticsQueueLength(7)

			Convey("Then the sink counters follow", func() {
				So(testutil.ToFloat64(globalManager.sinkErrors.WithLabelValues("csv")), ShouldEqual, errs+1)
				So(testutil.ToFloat64(globalManager.queueLength), ShouldEqual, 7.0)
			})
		})
	})
}

func TestWriteTextfile(t *testing.T) {
	Convey("Given a metrics textfile path", t, func() {
		path := filepath.Join(t.TempDir(), "goratings.prom")
		RecordGameProcessed()

		Convey("When writing the registry", func() {
			err := WriteTextfile(path)

			Convey("Then the file should hold the exposition text", func() {
				So(err, ShouldBeNil)
				raw, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(strings.Contains(string(raw), "goratings_engine_games_processed_total"), ShouldBeTrue)
			})
		})

		Convey("When the directory does not exist", func() {
			err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))

			Convey("Then the export should fail", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When asking for the registry", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
