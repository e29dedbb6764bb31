package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics holds the service collectors. Each instance owns its registry so
// tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	taxResolutions   *prometheus.CounterVec
	missingRates     *prometheus.CounterVec
	ordersCreated    *prometheus.CounterVec
	checkoutFailures *prometheus.CounterVec
	paymentEvents    *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		taxResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tax_resolutions_total",
			Help:      "GST resolutions by tax category.",
		}, []string{"category"}),
		missingRates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tax_missing_rate_total",
			Help:      "Resolutions that fell back to 0% because no rate is configured.",
		}, []string{"category"}),
		ordersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders persisted at checkout, by tax category.",
		}, []string{"category"}),
		checkoutFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_failures_total",
			Help:      "Failed checkouts by reason.",
		}, []string{"reason"}),
		paymentEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_events_total",
			Help:      "Payment events consumed, by type and outcome.",
		}, []string{"type", "outcome"}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TaxResolved counts a resolution. configured is false when the rate fell back to zero.
func (m *Metrics) TaxResolved(category string, configured bool) {
	m.taxResolutions.WithLabelValues(category).Inc()
	if !configured {
		m.missingRates.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) OrderCreated(category string) {
	m.ordersCreated.WithLabelValues(category).Inc()
}

func (m *Metrics) CheckoutFailed(reason string) {
	m.checkoutFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) PaymentEventHandled(eventType, outcome string) {
	m.paymentEvents.WithLabelValues(eventType, outcome).Inc()
}

// Middleware records request counts and latency. Unmatched routes share one label.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		m.httpRequests.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
