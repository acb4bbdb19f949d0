package lineproto

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/component"
	"github.com/gilliangoud/RRCLiveLaps/connstate"
	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/gilliangoud/RRCLiveLaps/hub"
	"github.com/gilliangoud/RRCLiveLaps/message"
	"github.com/gilliangoud/RRCLiveLaps/metric"
)

// DefaultKeepaliveInterval is the PING period while streaming
const DefaultKeepaliveInterval = 30 * time.Second

// source labels this package's core metrics
const source = "lineproto"

// DecoderDeps holds runtime dependencies for a Decoder
type DecoderDeps struct {
	Dialer            Dialer                  // Transport to the timing device
	Hub               hub.Publisher           // Destination of passings and status events
	Tracker           *connstate.Tracker      // Shared connection-status flag (nil creates a private one)
	KeepaliveInterval time.Duration           // Zero uses DefaultKeepaliveInterval
	MetricsRegistry   *metric.MetricsRegistry // Optional
	Logger            *slog.Logger            // Optional
}

// Decoder runs line-protocol sessions against one device
type Decoder struct {
	dialer    Dialer
	hub       hub.Publisher
	tracker   *connstate.Tracker
	keepalive time.Duration
	logger    *slog.Logger

	core    *metric.Metrics
	metrics *decoderMetrics
	flow    *component.FlowCounters

	running atomic.Bool
}

var _ component.Runner = (*Decoder)(nil)

type readResult struct {
	line string
	err  error
}

// NewDecoder creates a decoder. It does not connect until Run is called.
func NewDecoder(deps DecoderDeps) *Decoder {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "lineproto")
	}
	if deps.Dialer != nil {
		logger = logger.With("endpoint", deps.Dialer.String())
	}

	tracker := deps.Tracker
	if tracker == nil {
		tracker = connstate.New()
	}

	keepalive := deps.KeepaliveInterval
	if keepalive <= 0 {
		keepalive = DefaultKeepaliveInterval
	}

	var core *metric.Metrics
	if deps.MetricsRegistry != nil {
		core = deps.MetricsRegistry.CoreMetrics()
	}

	return &Decoder{
		dialer:    deps.Dialer,
		hub:       deps.Hub,
		tracker:   tracker,
		keepalive: keepalive,
		logger:    logger,
		core:      core,
		metrics:   newDecoderMetrics(deps.MetricsRegistry, logger),
		flow:      component.NewFlowCounters(),
	}
}

// Run performs one session: connect, handshake, stream until the stream ends.
// It returns nil when ctx is cancelled and a classified error otherwise.
// The tracker is always left false and a disconnect is published only after
// a connect was.
func (d *Decoder) Run(ctx context.Context) error {
	if d.dialer == nil || d.hub == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "lineproto", "Run", "dependency check")
	}
	if !d.running.CompareAndSwap(false, true) {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "lineproto", "Run", "session start")
	}
	defer d.running.Store(false)

	err := d.session(ctx)
	d.disconnect()

	if err != nil && ctx.Err() != nil {
		d.logger.Info("Decoder session cancelled")
		err = nil
	}

	switch {
	case err == nil:
		d.flow.SetState(component.StateStopped)
		d.core.RecordSession(source, "ok")
	case errors.IsFatal(err):
		d.flow.SetState(component.StateFailed)
		d.flow.RecordError(err)
		d.core.RecordSession(source, "fatal")
		d.logger.Error("Decoder session failed", "error", err)
	default:
		d.flow.SetState(component.StateFailed)
		d.flow.RecordError(err)
		d.core.RecordSession(source, "error")
		d.logger.Error("Decoder connection error", "error", err)
	}
	return err
}

func (d *Decoder) session(ctx context.Context) error {
	d.flow.SetState(component.StateConnecting)
	d.logger.Info("Connecting to decoder")

	conn, err := d.dialer.Dial(ctx)
	if err != nil {
		return errors.WrapTransient(fmt.Errorf("%w: %w", errors.ErrNoConnection, err),
			"lineproto", "Run", "connect")
	}
	defer conn.Close()

	// cancellation unblocks the reader by closing the stream
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	d.logger.Info("Connected to decoder")
	d.tracker.Set(true)
	d.publish(message.Connected())

	lines := make(chan readResult)
	done := make(chan struct{})
	defer close(done)
	go readLines(conn, lines, done)

	d.flow.SetState(component.StateHandshaking)
	if err := d.handshake(ctx, conn, lines); err != nil {
		return err
	}

	return d.stream(ctx, conn, lines)
}

// disconnect clears the tracker and announces it if a connect was announced
func (d *Decoder) disconnect() {
	if d.tracker.Set(false) {
		d.publish(message.Disconnected())
		d.logger.Info("Disconnected from decoder")
	}
}

func (d *Decoder) handshake(ctx context.Context, w io.Writer, lines <-chan readResult) error {
	steps := []struct{ command, ack string }{
		{SetProtocolCommand, SetProtocolAck},
		{PushPassingsCommand, PushPassingsAck},
	}

	for _, step := range steps {
		if err := writeLine(w, step.command); err != nil {
			return errors.WrapTransient(err, "lineproto", "handshake", "send "+step.command)
		}

		reply, err := next(ctx, lines)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.IsDisconnect(err) {
				return errors.WrapFatal(errors.ErrClosedDuringInit, "lineproto", "handshake", "await "+step.ack)
			}
			return errors.WrapTransient(err, "lineproto", "handshake", "await "+step.ack)
		}

		if reply != step.ack {
			d.metrics.handshakeMismatch()
			d.logger.Warn("Unexpected handshake reply",
				"command", step.command, "expected", step.ack, "reply", reply)
			continue
		}
		d.logger.Debug("Handshake step acknowledged", "command", step.command)
	}
	return nil
}

func (d *Decoder) stream(ctx context.Context, w io.Writer, lines <-chan readResult) error {
	d.flow.SetState(component.StateRunning)
	d.logger.Info("Streaming passings", "keepalive", d.keepalive)

	// first keepalive goes out immediately, then once per interval
	if err := d.sendKeepalive(w); err != nil {
		return err
	}
	ticker := time.NewTicker(d.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.sendKeepalive(w); err != nil {
				return err
			}
		case res := <-lines:
			if res.err != nil {
				if errors.IsDisconnect(res.err) {
					return errors.WrapTransient(errors.ErrConnectionClosed, "lineproto", "stream", "read")
				}
				return errors.WrapTransient(res.err, "lineproto", "stream", "read")
			}
			d.handleLine(res.line)
		}
	}
}

func (d *Decoder) sendKeepalive(w io.Writer) error {
	if err := writeLine(w, PingCommand); err != nil {
		return errors.WrapTransient(err, "lineproto", "stream", "send keepalive")
	}
	d.metrics.keepaliveSent()
	return nil
}

func (d *Decoder) handleLine(line string) {
	d.logger.Debug("Received line", "line", line)
	d.flow.RecordMessage(len(line))
	d.metrics.lineReceived()

	recordType, _, _ := strings.Cut(line, Delimiter)
	switch recordType {
	case RecordMarker:
		passing, err := ParseRecord(line)
		if err != nil {
			d.flow.RecordError(err)
			d.core.RecordMalformed(source)
			d.logger.Error("Error processing passing", "error", err, "line", line)
			return
		}
		d.publish(message.NewPassingEvent(passing))
	case PingCommand:
		// keepalive echo
	default:
	}
}

func (d *Decoder) publish(ev message.Event) int {
	delivered := d.hub.Publish(ev)
	switch ev.Kind {
	case message.KindPassing:
		d.core.RecordPassing(source)
	case message.KindStatus:
		d.core.RecordStatus(string(ev.Status.Event))
	}
	return delivered
}

// Meta returns the component metadata
func (d *Decoder) Meta() component.Metadata {
	endpoint := "unconfigured"
	if d.dialer != nil {
		endpoint = d.dialer.String()
	}
	return component.Metadata{
		Name:        "lineproto",
		Type:        component.TypeInput,
		Description: "Line-protocol decoder session on " + endpoint,
		Version:     "1.0.0",
	}
}

// Health reports healthy while a session is streaming
func (d *Decoder) Health() component.HealthStatus {
	return d.flow.Health(d.flow.State() == component.StateRunning)
}

// DataFlow returns inbound line rates
func (d *Decoder) DataFlow() component.FlowMetrics {
	return d.flow.DataFlow()
}

func writeLine(w io.Writer, line string) error {
	_, err := io.WriteString(w, line+"\n")
	return err
}

// next waits for the next line or for ctx to end
func next(ctx context.Context, lines <-chan readResult) (string, error) {
	select {
	case res := <-lines:
		return res.line, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// readLines feeds lines until the stream ends, then sends one terminal error
func readLines(r io.Reader, out chan<- readResult, done <-chan struct{}) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case out <- readResult{line: scanner.Text()}:
		case <-done:
			return
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case out <- readResult{err: err}:
	case <-done:
	}
}
