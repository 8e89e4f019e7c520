package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scan metrics
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgescan_scans_total",
			Help: "Total number of scans by outcome",
		},
		[]string{"kind", "outcome"}, // full/single, success/degraded/failure
	)

	ScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edgescan_scan_duration_seconds",
			Help:    "Duration of a full scan",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	// Venue metrics
	VenueFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgescan_venue_fetches_total",
			Help: "Total number of venue fetches",
		},
		[]string{"venue", "status"}, // success/unavailable
	)

	VenueListings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgescan_venue_listings_total",
			Help: "Listings returned by venues after normalization",
		},
		[]string{"venue"},
	)

	VenueSkippedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgescan_venue_skipped_records_total",
			Help: "Venue records skipped because they were malformed",
		},
		[]string{"venue"},
	)

	// Aggregator metrics
	AggregatorFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgescan_aggregator_fallback_total",
			Help: "Scans that substituted the fallback listing set",
		},
	)

	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edgescan_batch_size",
			Help:    "Number of listings handed to the oracle",
			Buckets: []float64{1, 5, 10, 15, 20, 25, 30, 50},
		},
	)

	// Extraction metrics
	ExtractionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgescan_extraction_failures_total",
			Help: "Oracle responses that could not be parsed",
		},
	)

	Candidates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgescan_candidates_total",
			Help: "Oracle candidates by classification status",
		},
		[]string{"status"}, // valid, incomplete, out_of_range
	)

	// Alert metrics
	AlertsTriggered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgescan_alerts_triggered_total",
			Help: "Total number of candidates that crossed the alert threshold",
		},
	)

	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgescan_alerts_sent_total",
			Help: "Total number of alerts sent",
		},
		[]string{"status", "type"}, // success/error, telegram/discord/smtp/log
	)

	AlertsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgescan_alerts_dropped_total",
			Help: "Alerts dropped because the dispatch queue was full",
		},
	)

	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgescan_alerts_suppressed_total",
			Help: "Total number of alerts suppressed due to cooldown",
		},
	)

	// API metrics
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgescan_api_requests_total",
			Help: "Total number of outbound API requests",
		},
		[]string{"api", "endpoint", "status"}, // gamma/kalshi/oracle, /markets, success/error
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edgescan_api_request_duration_seconds",
			Help:    "Duration of outbound API requests",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"api", "endpoint"},
	)

	// Database metrics
	DatabaseQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgescan_database_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	ScansThrottled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edgescan_scans_throttled_total",
			Help: "Total number of scan requests rejected by the rate limiter",
		},
	)

	// System health
	HealthChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgescan_health_checks_total",
			Help: "Total number of health check requests",
		},
		[]string{"status"}, // healthy/unhealthy
	)
)

// RecordScan records the outcome of a scan
func RecordScan(kind, outcome string, duration time.Duration) {
	ScansTotal.WithLabelValues(kind, outcome).Inc()
	ScanDuration.Observe(duration.Seconds())
}

// RecordVenueFetch records one adapter fetch
func RecordVenueFetch(venue string, listings int, err error) {
	if err != nil {
		VenueFetches.WithLabelValues(venue, "unavailable").Inc()
		return
	}
	VenueFetches.WithLabelValues(venue, "success").Inc()
	VenueListings.WithLabelValues(venue).Add(float64(listings))
}

// RecordAPIRequest records API request metrics
func RecordAPIRequest(api, endpoint string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	APIRequests.WithLabelValues(api, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(api, endpoint).Observe(duration.Seconds())
}

// RecordAlertSent records a delivery attempt for one sender type
func RecordAlertSent(alertType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AlertsSent.WithLabelValues(status, alertType).Inc()
}

// RecordDatabaseQuery records database query metrics
func RecordDatabaseQuery(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DatabaseQueries.WithLabelValues(operation, status).Inc()
}

// RecordHealthCheck records health check status
func RecordHealthCheck(healthy bool) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	HealthChecks.WithLabelValues(status).Inc()
}
