// Package metrics exposes Prometheus counters for the HTTP surface and the
// image pipeline. Both services share one registry and serve it on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	httpRequestsTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, path and status code.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and path.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	jobsProcessedTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Image jobs reaching a terminal state, by status.",
		},
		[]string{"status"},
	)

	imagesProcessedTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "images_processed_total",
			Help: "Individual image URL outcomes, by result.",
		},
		[]string{"result"},
	)
)

// RecordHTTPRequest observes one finished HTTP request.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordJob counts a job that reached a terminal state.
func RecordJob(status string) {
	jobsProcessedTotal.WithLabelValues(status).Inc()
}

// RecordImage counts one image URL outcome ("ok" or "failed").
func RecordImage(result string) {
	imagesProcessedTotal.WithLabelValues(result).Inc()
}

// Handler serves the shared registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
