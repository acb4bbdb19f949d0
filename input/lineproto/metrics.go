package lineproto

import (
	"log/slog"

	"github.com/gilliangoud/RRCLiveLaps/metric"
	"github.com/prometheus/client_golang/prometheus"
)

type decoderMetrics struct {
	linesReceived       prometheus.Counter
	keepalivesSent      prometheus.Counter
	handshakeMismatches prometheus.Counter
}

// newDecoderMetrics returns nil when registry is nil (nil input = nil feature)
func newDecoderMetrics(registry *metric.MetricsRegistry, logger *slog.Logger) *decoderMetrics {
	if registry == nil {
		return nil
	}

	m := &decoderMetrics{
		linesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "lineproto",
			Name:      "lines_received_total",
			Help:      "Lines read from the decoder while streaming",
		}),
		keepalivesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "lineproto",
			Name:      "keepalives_sent_total",
			Help:      "PING commands written to the decoder",
		}),
		handshakeMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "lineproto",
			Name:      "handshake_mismatches_total",
			Help:      "Handshake replies that did not echo the expected acknowledgment",
		}),
	}

	// a second decoder on the same registry keeps working without its own counters
	for name, c := range map[string]prometheus.Counter{
		"lines_received":       m.linesReceived,
		"keepalives_sent":      m.keepalivesSent,
		"handshake_mismatches": m.handshakeMismatches,
	} {
		if err := registry.RegisterCounter("lineproto", name, c); err != nil {
			logger.Warn("Failed to register decoder metric", "metric", name, "error", err)
		}
	}

	return m
}

func (m *decoderMetrics) lineReceived() {
	if m == nil {
		return
	}
	m.linesReceived.Inc()
}

func (m *decoderMetrics) keepaliveSent() {
	if m == nil {
		return
	}
	m.keepalivesSent.Inc()
}

func (m *decoderMetrics) handshakeMismatch() {
	if m == nil {
		return
	}
	m.handshakeMismatches.Inc()
}
