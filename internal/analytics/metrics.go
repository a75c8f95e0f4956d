package analytics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names as constants for consistency.
const (
	MetricEventsDroppedTotal     = "search_analytics_dropped_total"
	MetricEventWriteErrorsTotal  = "search_analytics_write_errors_total"
)

// RecorderMetrics counts analytics events lost to backpressure or sink
// failures. A nil *RecorderMetrics is valid; methods are no-ops on nil.
type RecorderMetrics struct {
	eventsDropped    prometheus.Counter
	eventWriteErrors prometheus.Counter
}

// NewRecorderMetrics creates a RecorderMetrics instance with all
// collectors initialized. The metrics are not registered; call Register
// to register them with a registry.
func NewRecorderMetrics() *RecorderMetrics {
	return &RecorderMetrics{
		eventsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricEventsDroppedTotal,
				Help: "Total number of analytics events dropped due to a full buffer",
			},
		),
		eventWriteErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricEventWriteErrorsTotal,
				Help: "Total number of analytics sink write failures",
			},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *RecorderMetrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.eventsDropped,
		m.eventWriteErrors,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *RecorderMetrics) dropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}

func (m *RecorderMetrics) writeError() {
	if m == nil {
		return
	}
	m.eventWriteErrors.Inc()
}
