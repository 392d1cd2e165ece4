package http

import (
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rag_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	metricsRegistered atomic.Bool
)

func RegisterMetrics(reg prometheus.Registerer) {
	if !metricsRegistered.CompareAndSwap(false, true) {
		return
	}

	reg.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
	)
}

// Metrics is router middleware, so the route label is the matched template
// and not the raw path.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		if route == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		m := httpsnoop.CaptureMetrics(next, w, r)

		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(m.Code)).Inc()
		httpRequestDurationSeconds.WithLabelValues(r.Method, route).Observe(m.Duration.Seconds())
	})
}
