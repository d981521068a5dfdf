package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the client.
type Metrics struct {
	Registry          *prometheus.Registry
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   prometheus.Histogram
	PagesFetchedTotal *prometheus.CounterVec
	ItemsFetchedTotal prometheus.Counter
	CacheHitsTotal    prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deals_requests_total",
			Help: "Total HTTP requests issued against the search endpoint.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "deals_request_duration_seconds",
			Help:    "HTTP request latency for search requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	pages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deals_pages_fetched_total",
			Help: "Pages requested, by outcome.",
		},
		[]string{"status"},
	)
	items := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deals_items_fetched_total",
			Help: "Total number of raw items returned by the endpoint.",
		},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deals_page_cache_hits_total",
			Help: "Page requests served from the page cache.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deals_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, pages, items, cacheHits, errorsTotal)

	return &Metrics{
		Registry:          registry,
		RequestsTotal:     requests,
		RequestDuration:   requestDuration,
		PagesFetchedTotal: pages,
		ItemsFetchedTotal: items,
		CacheHitsTotal:    cacheHits,
		ErrorsTotal:       errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncPage counts a page outcome.
func (m *Metrics) IncPage(status string) {
	if m == nil {
		return
	}
	m.PagesFetchedTotal.WithLabelValues(status).Inc()
}

// AddItems adds n to the items fetched counter.
func (m *Metrics) AddItems(n int) {
	if m == nil {
		return
	}
	m.ItemsFetchedTotal.Add(float64(n))
}

// IncCacheHit increments the page cache hit counter.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
