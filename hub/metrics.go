package hub

import (
	"github.com/gilliangoud/RRCLiveLaps/message"
	"github.com/gilliangoud/RRCLiveLaps/metric"
	"github.com/prometheus/client_golang/prometheus"
)

type hubMetrics struct {
	published   *prometheus.CounterVec
	delivered   prometheus.Counter
	dropped     prometheus.Counter
	lagged      prometheus.Counter
	subscribers prometheus.Gauge
}

// newHubMetrics returns nil when registry is nil; all methods are nil-safe
func newHubMetrics(registry *metric.MetricsRegistry) (*hubMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &hubMetrics{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "hub",
			Name:      "events_published_total",
			Help:      "Events published to the hub, by kind",
		}, []string{"kind"}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "hub",
			Name:      "deliveries_total",
			Help:      "Sum of subscribers reached over all publishes",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "hub",
			Name:      "events_unobserved_total",
			Help:      "Events published while nobody was subscribed",
		}),
		lagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rrclivelaps",
			Subsystem: "hub",
			Name:      "events_skipped_total",
			Help:      "Events skipped by lagging subscribers",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rrclivelaps",
			Subsystem: "hub",
			Name:      "subscribers",
			Help:      "Active hub subscriptions",
		}),
	}

	if err := registry.RegisterCounterVec("hub", "events_published", m.published); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("hub", "deliveries", m.delivered); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("hub", "events_unobserved", m.dropped); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter("hub", "events_skipped", m.lagged); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge("hub", "subscribers", m.subscribers); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *hubMetrics) recordPublish(ev message.Event, delivered int) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(ev.Kind.String()).Inc()
	if delivered == 0 {
		m.dropped.Inc()
		return
	}
	m.delivered.Add(float64(delivered))
}

func (m *hubMetrics) recordLag(skipped uint64) {
	if m == nil {
		return
	}
	m.lagged.Add(float64(skipped))
}

func (m *hubMetrics) setSubscribers(n int) {
	if m == nil {
		return
	}
	m.subscribers.Set(float64(n))
}
