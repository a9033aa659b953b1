package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinic/registry/internal/domain/validation"
)

// Metrics holds the registry's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// Write attempts by entity, operation and final state
	Submissions *prometheus.CounterVec

	// Violations by entity, field and kind
	Violations *prometheus.CounterVec

	SubmitLatency *prometheus.HistogramVec

	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// New creates a Metrics instance on its own registry, including Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_registry_submissions_total",
			Help: "Record write attempts by entity, operation and final state",
		}, []string{"entity", "op", "state"}),

		Violations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_registry_violations_total",
			Help: "Validation violations by entity, field and kind",
		}, []string{"entity", "field", "kind"}),

		SubmitLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clinic_registry_submit_duration_seconds",
			Help:    "Duration of validation and persistence of one record",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"entity", "op"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_registry_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clinic_registry_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveSubmission records the outcome of one write attempt.
func (m *Metrics) ObserveSubmission(entity, op string, sub *validation.Submission) {
	if m == nil || sub == nil {
		return
	}
	m.Submissions.WithLabelValues(entity, op, sub.State.String()).Inc()
	m.SubmitLatency.WithLabelValues(entity, op).Observe(sub.Duration.Seconds())
	for _, fe := range sub.Errors {
		field := fe.Field
		if field == "" {
			field = validation.NonFieldKey
		}
		m.Violations.WithLabelValues(entity, field, string(fe.Kind)).Inc()
	}
}

// Middleware counts requests by matched route so path ids do not explode cardinality.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if status < 400 {
					status = 500
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			method := c.Request().Method
			m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			m.HTTPLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
}
