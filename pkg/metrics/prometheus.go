// Package metrics provides Prometheus metrics for rating runs.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics of a rating run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	winRateBuckets   []float64
	registry         prometheus.Registerer

	// Game flow
	gamesProcessed     prometheus.Counter
	gamesSkipped       *prometheus.CounterVec
	gamesDuplicate     prometheus.Counter
	manualOverrides    prometheus.Counter
	convergenceFailure prometheus.Counter
	dataErrors         prometheus.Counter

	// Rating state
	playersTotal   prometheus.Gauge
	lastEndedAt    prometheus.Gauge
	updateLatency  prometheus.Histogram
	expectedWin    prometheus.Histogram
	predictionHits *prometheus.CounterVec

	// Snapshots
	snapshotDuration prometheus.Histogram
	snapshotEntries  prometheus.Gauge

	// Analytics sinks
	queueLength prometheus.Gauge
	sinkLatency prometheus.Histogram
	sinkErrors  *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "goratings",
		subsystem:        "engine",
		histogramBuckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		winRateBuckets:   prometheus.LinearBuckets(0.1, 0.1, 9),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.gamesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "games_processed_total",
		Help:      "Total number of games that updated ratings",
	})

	m.gamesSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "games_skipped_total",
		Help:      "Total number of games excluded from rating, by heuristic",
	}, []string{"reason"})

	m.gamesDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "games_duplicate_total",
		Help:      "Total number of repeated game ids dropped before rating",
	})

	m.manualOverrides = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "manual_overrides_total",
		Help:      "Total number of manual rank overrides applied",
	})

	m.convergenceFailure = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "convergence_failures_total",
		Help:      "Total number of volatility solves that did not converge",
	})

	m.dataErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "data_errors_total",
		Help:      "Total number of rejected game records",
	})

	m.playersTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "players_total",
		Help:      "Number of players holding a rating entry",
	})

	m.lastEndedAt = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_game_ended_at",
		Help:      "End ordinal of the last processed game",
	})

	m.updateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "update_latency_microseconds",
		Help:      "Time spent rating one game in microseconds",
		Buckets:   m.histogramBuckets,
	})

	m.expectedWin = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "expected_win_rate",
		Help:      "Distribution of black's predicted win probability",
		Buckets:   m.winRateBuckets,
	})

	m.predictionHits = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "predictions_total",
		Help:      "Decided games by whether the favourite won",
	}, []string{"outcome"})

	m.snapshotDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_duration_milliseconds",
		Help:      "Time spent writing or restoring a store snapshot",
		Buckets:   m.histogramBuckets,
	})

	m.snapshotEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "snapshot_entries",
		Help:      "Number of entries in the last snapshot written or restored",
	})

	m.queueLength = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analytics_queue_length",
		Help:      "Analytics records waiting to be written",
	})

	m.sinkLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sink_write_latency_microseconds",
		Help:      "Time spent writing one analytics record",
		Buckets:   m.histogramBuckets,
	})

	m.sinkErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sink_errors_total",
		Help:      "Total number of failed analytics writes, by sink",
	}, []string{"sink"})
}

// RecordGameProcessed increments the processed games counter.
func RecordGameProcessed() {
	globalManager.gamesProcessed.Inc()
}

// RecordGameSkipped increments the skipped games counter for reason.
func RecordGameSkipped(reason string) {
	globalManager.gamesSkipped.WithLabelValues(reason).Inc()
}

// RecordGameDuplicate increments the duplicate games counter.
func RecordGameDuplicate() {
	globalManager.gamesDuplicate.Inc()
}

// RecordManualOverride increments the manual override counter.
func RecordManualOverride() {
	globalManager.manualOverrides.Inc()
}

// RecordConvergenceFailure increments the convergence failure counter.
func RecordConvergenceFailure() {
	globalManager.convergenceFailure.Inc()
}

// RecordDataError increments the rejected records counter.
func RecordDataError() {
	globalManager.dataErrors.Inc()
}

// UpdatePlayersTotal sets the number of rated players.
func UpdatePlayersTotal(count int) {
	globalManager.playersTotal.Set(float64(count))
}

// UpdateLastEndedAt sets the end ordinal of the last processed game.
func UpdateLastEndedAt(endedAt int64) {
	globalManager.lastEndedAt.Set(float64(endedAt))
}

// RecordUpdateLatency records the time spent rating one game.
func RecordUpdateLatency(latencyUs float64) {
	globalManager.updateLatency.Observe(latencyUs)
}

// RecordExpectedWinRate records a pre-game prediction.
func RecordExpectedWinRate(p float64) {
	globalManager.expectedWin.Observe(p)
}

// RecordPrediction counts whether the favourite won a decided game.
func RecordPrediction(correct bool) {
	outcome := "miss"
	if correct {
		outcome = "hit"
	}
	globalManager.predictionHits.WithLabelValues(outcome).Inc()
}

// RecordSnapshot records a snapshot write or restore.
func RecordSnapshot(durationMs float64, entries int) {
	globalManager.snapshotDuration.Observe(durationMs)
	globalManager.snapshotEntries.Set(float64(entries))
}

// UpdateAnalyticsQueueLength sets the number of queued analytics records.
func UpdateAnalyticsQueueLength(n int) {
	globalManager.queueLength.Set(float64(n))
}

// RecordSinkLatency records the time spent writing one analytics record.
func RecordSinkLatency(latencyUs float64) {
	globalManager.sinkLatency.Observe(latencyUs)
}

// RecordSinkError increments the failed writes counter for sink.
func RecordSinkError(sink string) {
	globalManager.sinkErrors.WithLabelValues(sink).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes every metric of the custom registry to path in the
// text exposition format, for the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %w", ErrExportFailed, err)
	}
	return nil
}
