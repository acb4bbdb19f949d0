package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains gateway-level metrics shared by all acquisition modes
type Metrics struct {
	PassingsPublished *prometheus.CounterVec
	RecordsMalformed  *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	SourceConnected   prometheus.Gauge
	SessionsTotal     *prometheus.CounterVec
}

// NewMetrics creates the core gateway metrics
func NewMetrics() *Metrics {
	return &Metrics{
		PassingsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Name:      "passings_published_total",
			Help:      "Passings published to the hub, by acquisition source",
		}, []string{"source"}),
		RecordsMalformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Name:      "records_malformed_total",
			Help:      "Inbound records dropped because they could not be parsed",
		}, []string{"source"}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Name:      "status_transitions_total",
			Help:      "Connection status events published, by event",
		}, []string{"event"}),
		SourceConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rrclivelaps",
			Name:      "source_connected",
			Help:      "1 while the active timing source is connected",
		}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Name:      "sessions_total",
			Help:      "Upstream sessions ended, by source and outcome",
		}, []string{"source", "outcome"}),
	}
}

func (m *Metrics) register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.PassingsPublished,
		m.RecordsMalformed,
		m.StatusTransitions,
		m.SourceConnected,
		m.SessionsTotal,
	)
}

// RecordPassing counts one published passing
func (m *Metrics) RecordPassing(source string) {
	if m == nil {
		return
	}
	m.PassingsPublished.WithLabelValues(source).Inc()
}

// RecordMalformed counts one dropped record
func (m *Metrics) RecordMalformed(source string) {
	if m == nil {
		return
	}
	m.RecordsMalformed.WithLabelValues(source).Inc()
}

// RecordStatus counts a status transition and updates the connected gauge
func (m *Metrics) RecordStatus(event string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(event).Inc()
	if event == "connected" {
		m.SourceConnected.Set(1)
	} else {
		m.SourceConnected.Set(0)
	}
}

// RecordSession counts an ended session with its outcome ("ok", "error", "fatal")
func (m *Metrics) RecordSession(source, outcome string) {
	if m == nil {
		return
	}
	m.SessionsTotal.WithLabelValues(source, outcome).Inc()
}
