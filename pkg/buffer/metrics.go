package buffer

import (
	"github.com/gilliangoud/RRCLiveLaps/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// bufferMetrics holds Prometheus metrics for ring operations.
type bufferMetrics struct {
	appends    prometheus.Counter
	overwrites prometheus.Counter
	lags       prometheus.Counter

	size        prometheus.Gauge
	utilization prometheus.Gauge
}

func newBufferMetrics(registry *metric.MetricsRegistry, prefix string) (*bufferMetrics, error) {
	labels := prometheus.Labels{"component": prefix}
	m := &bufferMetrics{
		appends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rrclivelaps",
			Subsystem:   "buffer",
			Name:        "appends_total",
			ConstLabels: labels,
			Help:        "Total number of items appended to the ring",
		}),
		overwrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rrclivelaps",
			Subsystem:   "buffer",
			Name:        "overwrites_total",
			ConstLabels: labels,
			Help:        "Total number of items overwritten by newer appends",
		}),
		lags: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "rrclivelaps",
			Subsystem:   "buffer",
			Name:        "lagged_reads_total",
			ConstLabels: labels,
			Help:        "Reads that asked for an already overwritten sequence",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "rrclivelaps",
			Subsystem:   "buffer",
			Name:        "size",
			ConstLabels: labels,
			Help:        "Current number of retained items",
		}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "rrclivelaps",
			Subsystem:   "buffer",
			Name:        "utilization",
			ConstLabels: labels,
			Help:        "Ring fill ratio (0.0 to 1.0)",
		}),
	}

	if err := registry.RegisterCounter(prefix, "buffer_appends", m.appends); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_overwrites", m.overwrites); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "buffer_lags", m.lags); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "buffer_size", m.size); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "buffer_utilization", m.utilization); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *bufferMetrics) recordAppend(size, capacity int, overwrote bool) {
	m.appends.Inc()
	if overwrote {
		m.overwrites.Inc()
	}
	m.size.Set(float64(size))
	m.utilization.Set(float64(size) / float64(capacity))
}

func (m *bufferMetrics) recordLag() {
	m.lags.Inc()
}
