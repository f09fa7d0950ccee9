package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/imrishuroy/abc-church-payments/internal/payments"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP and payment collectors exported at /metrics.
type Metrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	initiated prometheus.Counter
	resolved  *prometheus.CounterVec
	amount    *prometheus.CounterVec
	gatherer  prometheus.Gatherer
}

// New registers the collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		initiated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mpesa_stk_push_initiated_total",
			Help: "STK pushes accepted by the provider.",
		}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mpesa_transactions_resolved_total",
			Help: "Transactions resolved by a callback, by final status.",
		}, []string{"status"}),
		amount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mpesa_transaction_amount_kes_total",
			Help: "Sum of amounts per lifecycle stage.",
		}, []string{"stage"}),
		gatherer: reg,
	}
	reg.MustRegister(m.requests, m.latency, m.initiated, m.resolved, m.amount)
	return m
}

func (m *Metrics) Initiated(ctx context.Context, amount float64) {
	m.initiated.Inc()
	m.amount.WithLabelValues("initiated").Add(amount)
}

func (m *Metrics) Resolved(ctx context.Context, status string, amount float64) {
	m.resolved.WithLabelValues(status).Inc()
	m.amount.WithLabelValues(status).Add(amount)
}

// Middleware records request counts and latency per route pattern.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.latency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

var _ payments.Observer = (*Metrics)(nil)
