package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec

	contributions     prometheus.Counter
	contributedAmount prometheus.Counter
	refundRequests    prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		contributions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_contributions_total",
			Help: "Contributions recorded against campaigns.",
		}),
		contributedAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_contributed_amount_total",
			Help: "Sum of recorded contribution amounts.",
		}),
		refundRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_refund_requests_total",
			Help: "Refund requests that flagged a contribution.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.latency,
		m.contributions,
		m.contributedAmount,
		m.refundRequests,
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) ContributionRecorded(amount float64) {
	if m == nil {
		return
	}
	m.contributions.Inc()
	m.contributedAmount.Add(amount)
}

func (m *Metrics) RefundRequested() {
	if m == nil {
		return
	}
	m.refundRequests.Inc()
}
