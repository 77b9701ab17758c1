// Package metrics exposes Prometheus metrics for the HTTP server and the
// chat proxy on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "folio"

// Metrics holds the collectors. Create one per process; tests create their own.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ChatReplies     *prometheus.CounterVec
	BackendInfo     *prometheus.GaugeVec
}

// New registers all collectors, plus Go runtime and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ChatReplies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_replies_total",
			Help:      "Chat replies by provider and outcome (ok, unconfigured, error)",
		}, []string{"provider", "outcome"}),
		BackendInfo: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "content_backend_info",
			Help:      "Set to 1 for the content backend in use",
		}, []string{"mode"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SetBackend records which content backend is active.
func (m *Metrics) SetBackend(mode string) {
	m.BackendInfo.WithLabelValues(mode).Set(1)
}

// RecordChat counts one chat reply.
func (m *Metrics) RecordChat(provider, outcome string) {
	if provider == "" {
		provider = "none"
	}
	m.ChatReplies.WithLabelValues(provider, outcome).Inc()
}

// Middleware records request counts and latency. route maps a request to a
// low-cardinality label, normally the matched mux pattern.
func (m *Metrics) Middleware(route func(*http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		label := route(r)
		if label == "" {
			label = "unmatched"
		}
		m.RequestsTotal.WithLabelValues(r.Method, label, strconv.Itoa(sw.status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, label).Observe(time.Since(start).Seconds())
	})
}

// statusWriter remembers the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Status returns the recorded status code.
func (w *statusWriter) Status() int { return w.status }

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
