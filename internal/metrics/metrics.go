package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	salesCreated    *prometheus.CounterVec
	stockRejected   prometheus.Counter
	summaryCache    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estoque",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "estoque",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		salesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estoque",
			Name:      "sales_created_total",
			Help:      "Sale records persisted, by category and payment method.",
		}, []string{"category", "payment_method"}),
		stockRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "estoque",
			Name:      "sales_rejected_insufficient_stock_total",
			Help:      "Sale records refused because stock ran out.",
		}),
		summaryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "estoque",
			Name:      "summary_cache_lookups_total",
			Help:      "Sales summary cache lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.requests,
		m.requestDuration,
		m.salesCreated,
		m.stockRejected,
		m.summaryCache,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// A nil *Metrics is valid and records nothing.

func (m *Metrics) ObserveRequest(route string, method string, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, status).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(seconds)
}

func (m *Metrics) SaleCreated(category string, paymentMethod string) {
	if m == nil {
		return
	}
	m.salesCreated.WithLabelValues(category, paymentMethod).Inc()
}

func (m *Metrics) StockRejected() {
	if m == nil {
		return
	}
	m.stockRejected.Inc()
}

func (m *Metrics) SummaryCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.summaryCache.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
