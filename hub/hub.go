package hub

import (
	"log/slog"
	"sync"

	"github.com/gilliangoud/RRCLiveLaps/message"
	"github.com/gilliangoud/RRCLiveLaps/metric"
	"github.com/gilliangoud/RRCLiveLaps/pkg/buffer"
	"github.com/google/uuid"
)

// DefaultCapacity is the number of recent events retained for slow subscribers
const DefaultCapacity = 100

// Publisher is the producer side of a Hub
type Publisher interface {
	Publish(ev message.Event) int
}

var _ Publisher = (*Hub)(nil)

// Hub is a multi-producer, multi-consumer broadcast channel for events
type Hub struct {
	ring   buffer.Ring[message.Event]
	logger *slog.Logger

	mu          sync.Mutex
	notify      chan struct{} // closed and replaced on every publish
	subscribers int

	done      chan struct{}
	closeOnce sync.Once

	metrics *hubMetrics
}

type hubOptions struct {
	capacity int
	logger   *slog.Logger
	registry *metric.MetricsRegistry
}

// Option configures a Hub
type Option func(*hubOptions)

// WithCapacity sets how many recent events are retained. Values below 1 use 1.
func WithCapacity(capacity int) Option {
	return func(o *hubOptions) {
		o.capacity = capacity
	}
}

// WithLogger sets the hub logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *hubOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics exports hub and ring metrics to registry. Nil disables metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *hubOptions) {
		o.registry = registry
	}
}

// New creates a hub
func New(opts ...Option) (*Hub, error) {
	o := &hubOptions{
		capacity: DefaultCapacity,
		logger:   slog.Default().With("component", "hub"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	ring, err := buffer.NewRing[message.Event](o.capacity,
		buffer.WithMetrics[message.Event](o.registry, "hub"),
	)
	if err != nil {
		return nil, err
	}

	metrics, err := newHubMetrics(o.registry)
	if err != nil {
		return nil, err
	}

	return &Hub{
		ring:    ring,
		logger:  o.logger,
		notify:  make(chan struct{}),
		done:    make(chan struct{}),
		metrics: metrics,
	}, nil
}

// Publish delivers ev to every current subscriber and returns how many there
// were. With no subscribers the event is discarded and 0 is returned.
// Publish never waits on subscribers.
func (h *Hub) Publish(ev message.Event) int {
	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		return 0
	default:
	}

	delivered := h.subscribers
	if delivered == 0 {
		h.mu.Unlock()
		h.logger.Debug("No subscribers for event", "event", ev.Kind.String())
		h.metrics.recordPublish(ev, 0)
		return 0
	}

	h.ring.Append(ev)
	close(h.notify)
	h.notify = make(chan struct{})
	h.mu.Unlock()

	h.metrics.recordPublish(ev, delivered)
	return delivered
}

// Subscribe registers a new subscriber. It observes only events published
// after this call returns.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub := &Subscription{
		id:     uuid.NewString(),
		hub:    h,
		next:   h.ring.Next(),
		closed: make(chan struct{}),
	}
	h.subscribers++
	h.metrics.setSubscribers(h.subscribers)
	return sub
}

// SubscriberCount returns the number of active subscriptions
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.subscribers
}

// Capacity returns the number of events retained for lagging subscribers
func (h *Hub) Capacity() int {
	return h.ring.Capacity()
}

// Stats returns statistics of the underlying ring
func (h *Hub) Stats() buffer.StatsSummary {
	return h.ring.Stats().Summary()
}

// Close stops the hub. Further publishes are discarded and blocked
// subscribers receive ErrHubClosed once they have drained retained events.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		close(h.done)
		h.mu.Unlock()
	})
}

func (h *Hub) unsubscribe() {
	h.mu.Lock()
	h.subscribers--
	h.metrics.setSubscribers(h.subscribers)
	h.mu.Unlock()
}

// wait returns the channel that is closed on the next publish
func (h *Hub) wait() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.notify
}
