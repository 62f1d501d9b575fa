// Package metrics defines Prometheus metrics for the lead service.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leadbook_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbook_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbook_errors_total",
			Help: "Errors returned to clients by user-facing code",
		},
		[]string{"code"},
	)

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leadbook_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)

	BuyerMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbook_buyer_mutations_total",
			Help: "Buyer writes by operation",
		},
		[]string{"op"},
	)

	HistoryEntries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "leadbook_history_entries_total",
			Help: "History entries recorded",
		},
	)

	ImportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbook_imports_total",
			Help: "CSV imports by outcome",
		},
		[]string{"outcome"},
	)

	ImportRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbook_import_rows_total",
			Help: "CSV data rows by result",
		},
		[]string{"result"},
	)

	ActiveImports = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "leadbook_active_imports",
			Help: "Imports currently holding a limiter slot",
		},
	)

	ExportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbook_exports_total",
			Help: "Exports by format and destination",
		},
		[]string{"format", "destination"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal, RateLimitedTotal,
		BuyerMutations, HistoryEntries,
		ImportsTotal, ImportRows, ActiveImports,
		ExportsTotal,
	)
}
