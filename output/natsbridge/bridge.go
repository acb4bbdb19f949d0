package natsbridge

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/gilliangoud/RRCLiveLaps/component"
	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/gilliangoud/RRCLiveLaps/hub"
	"github.com/gilliangoud/RRCLiveLaps/message"
	"github.com/gilliangoud/RRCLiveLaps/metric"
	"github.com/gilliangoud/RRCLiveLaps/pkg/retry"
)

// DefaultSubjectPrefix is used when Deps.SubjectPrefix is empty
const DefaultSubjectPrefix = "timing"

// Publisher sends raw payloads to a subject
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// Deps holds runtime dependencies for a Bridge
type Deps struct {
	Hub             *hub.Hub
	Publisher       Publisher
	SubjectPrefix   string
	Retry           *retry.Config // nil uses retry.ForPublish
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
}

// Bridge forwards every hub event to NATS
type Bridge struct {
	hub       *hub.Hub
	publisher Publisher
	prefix    string
	retry     retry.Config
	logger    *slog.Logger

	metrics *bridgeMetrics
	flow    *component.FlowCounters
	running atomic.Bool
}

var _ component.Runner = (*Bridge)(nil)

// New creates a bridge. It subscribes to the hub only when Run is called.
func New(deps Deps) *Bridge {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "natsbridge")
	}

	prefix := strings.TrimSuffix(deps.SubjectPrefix, ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}

	cfg := retry.ForPublish()
	if deps.Retry != nil {
		cfg = *deps.Retry
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = errors.IsTransient
	}

	return &Bridge{
		hub:       deps.Hub,
		publisher: deps.Publisher,
		prefix:    prefix,
		retry:     cfg,
		logger:    logger,
		metrics:   newBridgeMetrics(deps.MetricsRegistry, logger),
		flow:      component.NewFlowCounters(),
	}
}

// Subject returns the subject an event is published to
func (b *Bridge) Subject(ev message.Event) string {
	return b.prefix + "." + ev.Kind.String()
}

// Run forwards events until ctx is cancelled or the hub is closed.
// Both end the bridge with a nil error.
func (b *Bridge) Run(ctx context.Context) error {
	if b.hub == nil || b.publisher == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "natsbridge", "Run", "dependency check")
	}
	if !b.running.CompareAndSwap(false, true) {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "natsbridge", "Run", "bridge start")
	}
	defer b.running.Store(false)

	b.flow.SetState(component.StateRunning)
	sub := b.hub.Subscribe()
	defer sub.Close()

	b.logger.Info("NATS bridge started", "prefix", b.prefix)

	for {
		ev, err := sub.Recv(ctx)
		if err != nil {
			var lagged *hub.LaggedError
			switch {
			case stderrors.As(err, &lagged):
				b.metrics.skipped(lagged.Skipped)
				b.logger.Warn("NATS bridge lagged behind the hub", "skipped", lagged.Skipped)
				continue
			case ctx.Err() != nil, stderrors.Is(err, hub.ErrHubClosed):
				b.flow.SetState(component.StateStopped)
				b.logger.Info("NATS bridge stopped")
				return nil
			default:
				b.flow.SetState(component.StateFailed)
				b.flow.RecordError(err)
				return errors.Wrap(err, "natsbridge", "Run", "receive event")
			}
		}

		b.forward(ctx, ev)
	}
}

func (b *Bridge) forward(ctx context.Context, ev message.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.flow.RecordError(err)
		b.logger.Error("Failed to encode event", "event", ev.String(), "error", err)
		return
	}

	subject := b.Subject(ev)
	err = retry.Do(ctx, b.retry, func() error {
		return b.publisher.Publish(ctx, subject, data)
	})
	if err != nil {
		b.flow.RecordError(err)
		b.metrics.failed(ev.Kind)
		if ctx.Err() == nil {
			b.logger.Error("Failed to publish event", "subject", subject, "error", err)
		}
		return
	}

	b.flow.RecordMessage(len(data))
	b.metrics.published(ev.Kind)
}

// Meta returns component metadata
func (b *Bridge) Meta() component.Metadata {
	return component.Metadata{
		Name:        "nats-bridge",
		Type:        component.TypeOutput,
		Description: "Republishes timing events on " + b.prefix + ".passing and " + b.prefix + ".status",
		Version:     "1.0.0",
	}
}

// Health reports healthy while the bridge is forwarding
func (b *Bridge) Health() component.HealthStatus {
	return b.flow.Health(b.flow.State() == component.StateRunning)
}

// DataFlow returns forwarding rates
func (b *Bridge) DataFlow() component.FlowMetrics {
	return b.flow.DataFlow()
}
