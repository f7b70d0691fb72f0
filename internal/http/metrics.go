// Package http agrupa la capa HTTP del IdP. Este archivo expone las métricas
// Prometheus; el resto vive en los subpaquetes (router, controllers, services).
package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/dropDatabas3/mockidp/internal/http/middlewares"
)

// Metrics agrupa los collectors del IdP. Cada instancia registra en su propio
// Registerer, así los tests no chocan con el registry global.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInflight        *prometheus.GaugeVec

	tokensIssued   *prometheus.CounterVec
	grantFailures  *prometheus.CounterVec
	introspections *prometheus.CounterVec
	revocations    prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Número total de requests procesadas",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latencia de los requests HTTP",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		httpInflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Requests en vuelo por ruta",
		}, []string{"route"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idp_tokens_issued_total",
			Help: "Token sets emitidos por grant / response_type",
		}, []string{"grant_type"}),
		grantFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idp_grant_failures_total",
			Help: "Requests de token rechazados por código OAuth",
		}, []string{"grant_type", "error"}),
		introspections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idp_introspections_total",
			Help: "Introspecciones por resultado",
		}, []string{"active"}),
		revocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "idp_revocations_total",
			Help: "Requests a /revoke",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal, m.httpRequestDuration, m.httpInflight,
		m.tokensIssued, m.grantFailures, m.introspections, m.revocations,
	)
	return m
}

// Handler sirve /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry expone el registry (tests).
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Middleware mide cada request bajo un nombre de ruta fijo (no el path crudo,
// para no explotar la cardinalidad).
func (m *Metrics) Middleware(route string) mw.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			g := m.httpInflight.WithLabelValues(route)
			g.Inc()
			defer g.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
			m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusWriter) WriteHeader(code int) {
	if !s.wrote {
		s.status = code
		s.wrote = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	s.wrote = true
	return s.ResponseWriter.Write(b)
}

// TokenIssued / GrantFailed / Introspected / Revoked implementan
// oauth.Recorder.
func (m *Metrics) TokenIssued(grantType string) { m.tokensIssued.WithLabelValues(grantType).Inc() }

func (m *Metrics) GrantFailed(grantType, code string) {
	m.grantFailures.WithLabelValues(grantType, code).Inc()
}

func (m *Metrics) Introspected(active bool) {
	m.introspections.WithLabelValues(strconv.FormatBool(active)).Inc()
}

func (m *Metrics) Revoked() { m.revocations.Inc() }
