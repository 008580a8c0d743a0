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

const namespace = "expensetrack"

// PrometheusRecorder exports metrics through a dedicated Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	httpDuration *prometheus.HistogramVec
	rateLimited  *prometheus.CounterVec
	authEvents   *prometheus.CounterVec
	expenseOps   *prometheus.CounterVec
}

// NewPrometheus registers the application collectors plus the Go and process
// collectors on a fresh registry.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route", "status"},
		),
		rateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "rate_limited_total",
			},
			[]string{"scope"},
		),
		authEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "events_total",
			},
			[]string{"event", "success"},
		),
		expenseOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "expenses",
				Name:      "operations_total",
			},
			[]string{"op"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpDuration.
		WithLabelValues(method, route, strconv.Itoa(status)).
		Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncRateLimited(scope string) {
	p.rateLimited.WithLabelValues(scope).Inc()
}

func (p *PrometheusRecorder) IncAuthEvent(event string, success bool) {
	p.authEvents.WithLabelValues(event, strconv.FormatBool(success)).Inc()
}

func (p *PrometheusRecorder) IncExpenseCreated() { p.expenseOps.WithLabelValues("create").Inc() }
func (p *PrometheusRecorder) IncExpenseUpdated() { p.expenseOps.WithLabelValues("update").Inc() }
func (p *PrometheusRecorder) IncExpenseDeleted() { p.expenseOps.WithLabelValues("delete").Inc() }
