// Package metrics holds the proxy's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marco/movieExplorer/internal/catalog"
)

// Metrics groups the collectors registered for one proxy instance.
type Metrics struct {
	catalogRequests *prometheus.CounterVec
	catalogDuration *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		catalogRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "movieproxy",
			Name:      "catalog_requests_total",
			Help:      "Catalog operations by kind and outcome.",
		}, []string{"op", "outcome"}),
		catalogDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "movieproxy",
			Name:      "catalog_request_duration_seconds",
			Help:      "Duration of catalog operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "movieproxy",
			Name:      "http_requests_total",
			Help:      "HTTP requests served by route and status.",
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.catalogRequests, m.catalogDuration, m.httpRequests)
	return m
}

// ObserveCatalog records one catalog operation. Its signature matches
// catalog.RequestLogFunc.
func (m *Metrics) ObserveCatalog(op string, kind catalog.Kind, _ int, d time.Duration) {
	outcome := "ok"
	if kind != catalog.KindUnknown {
		outcome = kind.String()
	}
	m.catalogRequests.WithLabelValues(op, outcome).Inc()
	m.catalogDuration.WithLabelValues(op).Observe(d.Seconds())
}

// Middleware counts served requests by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
