// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	KlinesProcessed       *prometheus.CounterVec
	KlinesStored          prometheus.Counter
	DuplicatesSkipped     prometheus.Counter
	KlineProcessingErrors *prometheus.CounterVec

	// Detection metrics
	ZonesCreated   *prometheus.CounterVec
	SweepsDetected prometheus.Counter
	BOSDetected    prometheus.Counter
	SignalsEmitted *prometheus.CounterVec

	// Stream metrics
	StreamSubscriptions prometheus.Gauge
	WSReconnects        prometheus.Counter
	WSMessageLatency    prometheus.Histogram

	// Backtest metrics
	BacktestRunsTotal *prometheus.CounterVec
	BacktestDuration  *prometheus.HistogramVec
	TradesSimulated   prometheus.Counter
	ReportsGenerated  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
	DBConnections   *prometheus.GaugeVec

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulBacktest  prometheus.Gauge
	UptimeSeconds           prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "smc_lab"
	}

	return &Metrics{
		// Ingestion metrics
		KlinesProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "klines_processed_total",
			Help:      "Total number of klines processed by timeframe",
		}, []string{"timeframe"}),
		KlinesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "klines_stored_total",
			Help:      "Total number of klines stored to database",
		}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of duplicate klines skipped",
		}),
		KlineProcessingErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "kline_processing_errors_total",
			Help:      "Total number of kline processing errors by type",
		}, []string{"error_type"}),

		// Detection metrics
		ZonesCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "zones_created_total",
			Help:      "Total number of zones created by type and polarity",
		}, []string{"zone_type", "polarity"}),
		SweepsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "sweeps_detected_total",
			Help:      "Total number of liquidity sweeps detected",
		}),
		BOSDetected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "bos_detected_total",
			Help:      "Total number of break-of-structure events detected",
		}),
		SignalsEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detection",
			Name:      "signals_emitted_total",
			Help:      "Total number of signals emitted by side",
		}, []string{"side"}),

		// Stream metrics
		StreamSubscriptions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "subscriptions",
			Help:      "Current number of active kline stream subscriptions",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Backtest metrics
		BacktestRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by status",
		}, []string{"status"}),
		BacktestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"policy"}),
		TradesSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated",
		}),
		ReportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
		DBConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "connections",
			Help:      "Number of database connections by state",
		}, []string{"database", "state"}),

		// Health metrics
		LastSuccessfulIngestion: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulBacktest: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_backtest_timestamp",
			Help:      "Unix timestamp of last successful backtest run",
		}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordKlineProcessed increments the klines processed counter.
func RecordKlineProcessed(timeframe string) {
	DefaultMetrics.KlinesProcessed.WithLabelValues(timeframe).Inc()
}

// RecordKlinesStored adds to the klines stored counter.
func RecordKlinesStored(n int) {
	DefaultMetrics.KlinesStored.Add(float64(n))
}

// RecordKlineError records a kline processing error.
func RecordKlineError(errorType string) {
	DefaultMetrics.KlineProcessingErrors.WithLabelValues(errorType).Inc()
}

// RecordZoneCreated increments the zones created counter.
func RecordZoneCreated(zoneType, polarity string) {
	DefaultMetrics.ZonesCreated.WithLabelValues(zoneType, polarity).Inc()
}

// RecordSignalEmitted increments the signals emitted counter.
func RecordSignalEmitted(side string) {
	DefaultMetrics.SignalsEmitted.WithLabelValues(side).Inc()
}

// RecordWSReconnect increments the WebSocket reconnect counter.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// UpdateStreamSubscriptions updates the subscription gauge.
func UpdateStreamSubscriptions(n int) {
	DefaultMetrics.StreamSubscriptions.Set(float64(n))
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordBacktestRun records a backtest run.
func RecordBacktestRun(policy, status string, durationSeconds float64) {
	DefaultMetrics.BacktestRunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.BacktestDuration.WithLabelValues(policy).Observe(durationSeconds)
}
