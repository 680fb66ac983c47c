package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the Prometheus collectors of one server.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	onboardings *prometheus.CounterVec
	inquiries   *prometheus.CounterVec
	payments    *prometheus.CounterVec
}

// NewMetrics registers the API collectors on a fresh registry, along with the Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surgepay_http_requests_total",
			Help: "Counts API requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "surgepay_http_request_duration_seconds",
			Help:    "API request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		onboardings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surgepay_onboarding_completions_total",
			Help: "Onboarding completion attempts by result.",
		}, []string{"result"}),
		inquiries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surgepay_inquiries_total",
			Help: "Inquiry submissions by kind and result.",
		}, []string{"kind", "result"}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surgepay_payment_webhooks_total",
			Help: "Payment webhook calls by event and result.",
		}, []string{"event", "result"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.onboardings,
		m.inquiries,
		m.payments,
	)
	return m
}

// middleware records the count and latency of every request, by route template.
func (m *Metrics) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err)
			}

			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			method := ctx.Request().Method
			m.requests.WithLabelValues(method, route, strconv.Itoa(ctx.Response().Status)).Inc()
			m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return nil
		}
	}
}

func (m *Metrics) handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

func (m *Metrics) onboardingResult(result string) { m.onboardings.WithLabelValues(result).Inc() }

func (m *Metrics) inquiryResult(kind, result string) { m.inquiries.WithLabelValues(kind, result).Inc() }

func (m *Metrics) paymentResult(event, result string) { m.payments.WithLabelValues(event, result).Inc() }
