package websocket

import (
	"log/slog"

	"github.com/gilliangoud/RRCLiveLaps/message"
	"github.com/gilliangoud/RRCLiveLaps/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the websocket output
type Metrics struct {
	messagesSent       *prometheus.CounterVec
	bytesSent          prometheus.Counter
	clientsConnected   prometheus.Gauge
	connectionTotal    prometheus.Counter
	disconnectionTotal *prometheus.CounterVec
	eventsSkipped      prometheus.Counter
	errorsTotal        *prometheus.CounterVec
}

// newMetrics creates and registers the metrics, or returns nil without a registry
func newMetrics(registry *metric.MetricsRegistry, logger *slog.Logger) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "websocket",
			Name:      "messages_sent_total",
			Help:      "Frames sent to WebSocket clients",
		}, []string{"kind"}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "websocket",
			Name:      "bytes_sent_total",
			Help:      "Payload bytes sent to WebSocket clients",
		}),
		clientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rrclivelaps",
			Subsystem: "websocket",
			Name:      "clients_connected",
			Help:      "Number of currently connected clients",
		}),
		connectionTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "websocket",
			Name:      "client_connections_total",
			Help:      "Client connections accepted",
		}),
		disconnectionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "websocket",
			Name:      "client_disconnections_total",
			Help:      "Client disconnections by reason",
		}, []string{"disconnect_reason"}),
		eventsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "websocket",
			Name:      "events_skipped_total",
			Help:      "Events lagging clients missed",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "websocket",
			Name:      "errors_total",
			Help:      "WebSocket errors by type",
		}, []string{"error_type"}),
	}

	register := func(name string, err error) {
		if err != nil {
			logger.Warn("Failed to register websocket metric", "metric", name, "error", err)
		}
	}
	register("messages_sent", registry.RegisterCounterVec("websocket", "messages_sent", m.messagesSent))
	register("bytes_sent", registry.RegisterCounter("websocket", "bytes_sent", m.bytesSent))
	register("clients_connected", registry.RegisterGauge("websocket", "clients_connected", m.clientsConnected))
	register("client_connections", registry.RegisterCounter("websocket", "client_connections", m.connectionTotal))
	register("client_disconnections", registry.RegisterCounterVec("websocket", "client_disconnections", m.disconnectionTotal))
	register("events_skipped", registry.RegisterCounter("websocket", "events_skipped", m.eventsSkipped))
	register("errors", registry.RegisterCounterVec("websocket", "errors", m.errorsTotal))

	return m
}

func (m *Metrics) clientConnected(count int) {
	if m == nil {
		return
	}
	m.connectionTotal.Inc()
	m.clientsConnected.Set(float64(count))
}

func (m *Metrics) clientDisconnected(reason string, count int) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.disconnectionTotal.WithLabelValues(reason).Inc()
	m.clientsConnected.Set(float64(count))
}

func (m *Metrics) recordSent(kind message.Kind, size int) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(kind.String()).Inc()
	m.bytesSent.Add(float64(size))
}

func (m *Metrics) recordLag(skipped uint64) {
	if m == nil {
		return
	}
	m.eventsSkipped.Add(float64(skipped))
}

func (m *Metrics) recordError(kind string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(kind).Inc()
}
