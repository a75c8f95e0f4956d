package search

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricSearchesTotal        = "search_requests_total"
	MetricSearchDuration       = "search_duration_seconds"
	MetricAdapterFailuresTotal = "search_adapter_failures_total"
	MetricCacheHitsTotal       = "search_cache_hits_total"
	MetricCacheMissesTotal     = "search_cache_misses_total"
)

// Metrics contains Prometheus metrics for the search pipeline.
// A nil *Metrics is valid; every method is a no-op on nil, so the
// service can run without a registry in tests.
type Metrics struct {
	searchesTotal   *prometheus.CounterVec
	searchDuration  prometheus.Histogram
	adapterFailures *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetrics creates a Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them.
func NewMetrics() *Metrics {
	return &Metrics{
		searchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSearchesTotal,
				Help: "Total number of search requests by outcome",
			},
			[]string{"status"},
		),
		searchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricSearchDuration,
				Help:    "Histogram of end-to-end search duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
			},
		),
		adapterFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricAdapterFailuresTotal,
				Help: "Total number of entity adapter failures by kind and reason",
			},
			[]string{"kind", "reason"},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricCacheHitsTotal,
				Help: "Total number of search result cache hits",
			},
		),
		cacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricCacheMissesTotal,
				Help: "Total number of search result cache misses",
			},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.searchesTotal,
		m.searchDuration,
		m.adapterFailures,
		m.cacheHits,
		m.cacheMisses,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observeSearch(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.searchesTotal.WithLabelValues(status).Inc()
	if elapsed > 0 {
		m.searchDuration.Observe(elapsed.Seconds())
	}
}

func (m *Metrics) adapterFailure(kind EntityKind, err error) {
	if m == nil {
		return
	}
	reason := "error"
	if errors.Is(err, ErrAdapterTimeout) {
		reason = "timeout"
	}
	m.adapterFailures.WithLabelValues(string(kind), reason).Inc()
}

func (m *Metrics) cacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) cacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}
