// Package metrics exposes Prometheus collectors for turns, oracle calls, storage and HTTP.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querybot_turns_total",
			Help: "Total number of conversational turns by outcome.",
		},
		[]string{"outcome"},
	)
	turnDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "querybot_turn_duration_seconds",
			Help:    "End-to-end latency of one submitted utterance.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
	)

	oracleCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querybot_oracle_calls_total",
			Help: "Total number of oracle completions by purpose and status.",
		},
		[]string{"purpose", "status"},
	)
	oracleCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querybot_oracle_call_duration_seconds",
			Help:    "Oracle completion latency by purpose.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"purpose"},
	)

	storageQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querybot_storage_queries_total",
			Help: "Total number of storage statements by kind and status.",
		},
		[]string{"kind", "status"},
	)
	storageRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querybot_storage_retries_total",
			Help: "Total number of storage retries after transient connection failures.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querybot_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querybot_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		turnsTotal,
		turnDurationSeconds,
		oracleCallsTotal,
		oracleCallDurationSeconds,
		storageQueriesTotal,
		storageRetriesTotal,
		httpRequestsTotal,
		httpRequestDurationSeconds,
	)
}

func ObserveTurn(outcome string, elapsed time.Duration) {
	turnsTotal.WithLabelValues(outcome).Inc()
	turnDurationSeconds.Observe(elapsed.Seconds())
}

func ObserveOracleCall(purpose, status string, elapsed time.Duration) {
	if purpose == "" {
		purpose = "unspecified"
	}
	oracleCallsTotal.WithLabelValues(purpose, status).Inc()
	oracleCallDurationSeconds.WithLabelValues(purpose).Observe(elapsed.Seconds())
}

func ObserveStorageQuery(kind, status string) {
	storageQueriesTotal.WithLabelValues(kind, status).Inc()
}

func IncStorageRetry() {
	storageRetriesTotal.Inc()
}

func ObserveHTTPRequest(method, path, status string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, path, status).Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
