package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "misacard_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "misacard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Issuer API Metrics
	IssuerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "misacard_issuer_requests_total",
			Help: "Total number of requests to the card issuer API",
		},
		[]string{"operation", "status"},
	)

	IssuerRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "misacard_issuer_request_duration_seconds",
			Help:    "Issuer API request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// Activation Metrics
	ActivationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "misacard_activations_total",
			Help: "Total number of card activation writes",
		},
		[]string{"source", "result"},
	)

	// Sync Guard Metrics
	SyncRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "misacard_sync_requests_total",
			Help: "Total number of public sync submissions by outcome",
		},
		[]string{"outcome"},
	)

	// Expiry Metrics
	CardsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "misacard_cards_expired_total",
			Help: "Total number of cards transitioned to expired on read",
		},
	)

	// Import Metrics
	ImportedCardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "misacard_imported_cards_total",
			Help: "Total number of cards processed by batch import",
		},
		[]string{"format", "result"},
	)

	// Authentication Metrics
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "misacard_auth_attempts_total",
			Help: "Total number of admin login attempts",
		},
		[]string{"status"},
	)

	// Database Metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "misacard_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table"},
	)

	// System Metrics
	SystemInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "misacard_system_info",
			Help: "System information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, status int, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordIssuerRequest records an issuer API call
func RecordIssuerRequest(operation, status string, duration float64) {
	IssuerRequestsTotal.WithLabelValues(operation, status).Inc()
	IssuerRequestDuration.WithLabelValues(operation).Observe(duration)
}

// RecordActivation records an activation write attempt
func RecordActivation(source string, success bool) {
	result := "failed"
	if success {
		result = "success"
	}
	ActivationsTotal.WithLabelValues(source, result).Inc()
}

// RecordSyncOutcome records the outcome of a public sync submission
func RecordSyncOutcome(outcome string) {
	SyncRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordExpiredCards records cards swept to expired
func RecordExpiredCards(count int) {
	if count > 0 {
		CardsExpiredTotal.Add(float64(count))
	}
}

// RecordImport records a batch import item result
func RecordImport(format string, success bool) {
	result := "failed"
	if success {
		result = "success"
	}
	ImportedCardsTotal.WithLabelValues(format, result).Inc()
}

// RecordAuthAttempt records an admin login attempt
func RecordAuthAttempt(success bool) {
	status := "failed"
	if success {
		status = "success"
	}
	AuthAttemptsTotal.WithLabelValues(status).Inc()
}

// RecordDBQuery records database query metrics
func RecordDBQuery(operation, table string) {
	DBQueriesTotal.WithLabelValues(operation, table).Inc()
}

// SetSystemInfo sets system information metrics
func SetSystemInfo(version, goVersion string) {
	SystemInfo.WithLabelValues(version, goVersion).Set(1)
}
