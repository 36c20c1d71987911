package fetcher

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the fetcher.
type Metrics struct {
	Registry          *prometheus.Registry
	RequestsTotal     prometheus.Counter
	RequestDuration   prometheus.Histogram
	ItemsFetchedTotal prometheus.Counter
	PagesFetchedTotal prometheus.Counter
	DuplicatesTotal   prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookcsv_requests_total",
			Help: "Total HTTP requests issued against the search API.",
		},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookcsv_request_duration_seconds",
			Help:    "HTTP request latency for search API requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	itemsFetched := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookcsv_items_fetched_total",
			Help: "Total number of items collected across pages.",
		},
	)
	pagesFetched := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookcsv_pages_fetched_total",
			Help: "Total number of result pages consumed.",
		},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bookcsv_duplicates_total",
			Help: "Total number of duplicate volume ids skipped.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookcsv_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, itemsFetched, pagesFetched, duplicates, errorsTotal)

	return &Metrics{
		Registry:          registry,
		RequestsTotal:     requests,
		RequestDuration:   requestDuration,
		ItemsFetchedTotal: itemsFetched,
		PagesFetchedTotal: pagesFetched,
		DuplicatesTotal:   duplicates,
		ErrorsTotal:       errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest() {
	if m == nil {
		return
	}
	m.RequestsTotal.Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// AddItems increments the items fetched counter.
func (m *Metrics) AddItems(n int) {
	if m == nil {
		return
	}
	m.ItemsFetchedTotal.Add(float64(n))
}

// IncPage increments the pages fetched counter.
func (m *Metrics) IncPage() {
	if m == nil {
		return
	}
	m.PagesFetchedTotal.Inc()
}

// IncDuplicate increments the duplicates counter.
func (m *Metrics) IncDuplicate() {
	if m == nil {
		return
	}
	m.DuplicatesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}
