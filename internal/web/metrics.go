package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/icumatch/internal/core"
)

// metrics holds the server's Prometheus collectors. Each Server owns its
// registry so several servers can coexist in tests.
type metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	warnings    *prometheus.CounterVec
	activeRuns  prometheus.GaugeFunc
	rateLimited prometheus.Counter
}

func newMetrics(limiter *RunLimiter) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "icumatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icumatch",
			Name:      "runs_total",
			Help:      "Runs processed by kind and result.",
		}, []string{"kind", "result"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icumatch",
			Name:      "records_total",
			Help:      "Classified culture records by outcome.",
		}, []string{"outcome"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "icumatch",
			Name:      "warnings_total",
			Help:      "Auxiliary data warnings by code.",
		}, []string{"code"}),
		activeRuns: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "icumatch",
			Name:      "active_runs",
			Help:      "Runs currently being processed.",
		}, func() float64 { return float64(limiter.ActiveCount()) }),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "icumatch",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.runs, m.outcomes, m.warnings, m.activeRuns, m.rateLimited,
	)
	return m
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrument records request latency labelled by the matched chi route.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

func (m *metrics) observeRun(kind, result string) {
	m.runs.WithLabelValues(kind, result).Inc()
}

func (m *metrics) observeResult(res *core.Result) {
	for outcome, n := range res.Counts() {
		m.outcomes.WithLabelValues(outcome.String()).Add(float64(n))
	}
	for _, w := range res.Warnings {
		m.warnings.WithLabelValues(w.Code).Inc()
	}
}
