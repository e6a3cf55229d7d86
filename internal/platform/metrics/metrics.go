// Package metrics defines the Prometheus instruments shared by the services.
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
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	PlaybackStartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playback_starts_total",
		Help: "Playback start outcomes (created, resumed, reopened).",
	}, []string{"outcome"})

	PlaybackCompletionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playback_completions_total",
		Help: "Playback sessions marked completed.",
	})

	HistoryEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "history_events_total",
		Help: "Playback history events persisted, by result.",
	}, []string{"result"})
)

// Handler exposes the default registry, mounted at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency for every route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.code)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
