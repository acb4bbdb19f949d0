package natsbridge

import (
	"log/slog"

	"github.com/gilliangoud/RRCLiveLaps/message"
	"github.com/gilliangoud/RRCLiveLaps/metric"
	"github.com/prometheus/client_golang/prometheus"
)

type bridgeMetrics struct {
	publishedTotal *prometheus.CounterVec
	failedTotal    *prometheus.CounterVec
	skippedTotal   prometheus.Counter
}

// newBridgeMetrics returns nil when registry is nil
func newBridgeMetrics(registry *metric.MetricsRegistry, logger *slog.Logger) *bridgeMetrics {
	if registry == nil {
		return nil
	}

	m := &bridgeMetrics{
		publishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "natsbridge",
			Name:      "published_total",
			Help:      "Events published to NATS",
		}, []string{"kind"}),
		failedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "natsbridge",
			Name:      "failed_total",
			Help:      "Events dropped after publish retries were exhausted",
		}, []string{"kind"}),
		skippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "natsbridge",
			Name:      "skipped_total",
			Help:      "Events the bridge missed because it lagged behind the hub",
		}),
	}

	if err := registry.RegisterCounterVec("natsbridge", "published", m.publishedTotal); err != nil {
		logger.Warn("Failed to register bridge metric", "metric", "published", "error", err)
	}
	if err := registry.RegisterCounterVec("natsbridge", "failed", m.failedTotal); err != nil {
		logger.Warn("Failed to register bridge metric", "metric", "failed", "error", err)
	}
	if err := registry.RegisterCounter("natsbridge", "skipped", m.skippedTotal); err != nil {
		logger.Warn("Failed to register bridge metric", "metric", "skipped", "error", err)
	}
	return m
}

func (m *bridgeMetrics) published(kind message.Kind) {
	if m == nil {
		return
	}
	m.publishedTotal.WithLabelValues(kind.String()).Inc()
}

func (m *bridgeMetrics) failed(kind message.Kind) {
	if m == nil {
		return
	}
	m.failedTotal.WithLabelValues(kind.String()).Inc()
}

func (m *bridgeMetrics) skipped(n uint64) {
	if m == nil {
		return
	}
	m.skippedTotal.Add(float64(n))
}
