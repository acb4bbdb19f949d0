package jsonline

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/component"
	"github.com/gilliangoud/RRCLiveLaps/connstate"
	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/gilliangoud/RRCLiveLaps/hub"
	"github.com/gilliangoud/RRCLiveLaps/message"
	"github.com/gilliangoud/RRCLiveLaps/metric"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	source = "jsonline"

	// maxLineSize bounds a single JSON document
	maxLineSize = 1 << 20
)

// ServerDeps holds runtime dependencies for a Server
type ServerDeps struct {
	Address         string                  // host:port to listen on
	Hub             hub.Publisher           // Destination of passings and status events
	Tracker         *connstate.Tracker      // Shared connection-status flag (nil creates a private one)
	MetricsRegistry *metric.MetricsRegistry // Optional
	Logger          *slog.Logger            // Optional
	Now             func() time.Time        // Local clock for date substitution (nil uses time.Now)
}

// Server is the JSON-line ingestor listener
type Server struct {
	address string
	hub     hub.Publisher
	tracker *connstate.Tracker
	logger  *slog.Logger
	now     func() time.Time

	core        *metric.Metrics
	connections prometheus.Gauge
	flow        *component.FlowCounters

	mu       sync.RWMutex
	listener net.Listener
	ready    chan struct{}
	active   atomic.Int64
	running  atomic.Bool
}

var _ component.Discoverable = (*Server)(nil)

// NewServer creates a server. It does not listen until Serve is called.
func NewServer(deps ServerDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "jsonline")
	}
	tracker := deps.Tracker
	if tracker == nil {
		tracker = connstate.New()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		address: deps.Address,
		hub:     deps.Hub,
		tracker: tracker,
		logger:  logger,
		now:     now,
		flow:    component.NewFlowCounters(),
		ready:   make(chan struct{}),
	}

	if deps.MetricsRegistry != nil {
		s.core = deps.MetricsRegistry.CoreMetrics()
		s.connections = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rrclivelaps",
			Subsystem: "jsonline",
			Name:      "connections",
			Help:      "Producer connections currently open",
		})
		if err := deps.MetricsRegistry.RegisterGauge("jsonline", "connections", s.connections); err != nil {
			logger.Warn("Failed to register connections gauge", "error", err)
		}
	}
	return s
}

// Serve binds the listener and accepts producers until ctx is cancelled.
// A bind failure is returned as a fatal error. Serve waits for open
// connections to finish before returning.
func (s *Server) Serve(ctx context.Context) error {
	if s.hub == nil {
		return errors.WrapInvalid(errors.ErrMissingConfig, "jsonline", "Serve", "dependency check")
	}
	if !s.running.CompareAndSwap(false, true) {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "jsonline", "Serve", "listener start")
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.address)
	if err != nil {
		err = errors.WrapFatal(fmt.Errorf("%w: %w", errors.ErrBindFailed, err), "jsonline", "Serve", "bind "+s.address)
		s.flow.RecordError(err)
		s.flow.SetState(component.StateFailed)
		s.logger.Error("Failed to bind JSON server", "address", s.address, "error", err)
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	close(s.ready)

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	s.flow.SetState(component.StateRunning)
	s.logger.Info("JSON server listening", "address", ln.Addr().String())

	var wg sync.WaitGroup
	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				break
			}
			s.flow.RecordError(err)
			s.logger.Error("Error accepting connection", "error", err)
			backoff = nextBackoff(backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		s.logger.Info("New JSON client connection", "remote", conn.RemoteAddr().String())
		s.tracker.Set(true)
		s.publish(message.Connected())

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn)
		}()
	}

	_ = ln.Close()
	wg.Wait()
	s.flow.SetState(component.StateStopped)
	s.logger.Info("JSON server stopped")
	return nil
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		return time.Second
	}
	return d
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	logger := s.logger.With("remote", remote)

	s.active.Add(1)
	s.setConnectionsGauge()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
		s.active.Add(-1)
		s.setConnectionsGauge()

		logger.Info("JSON client disconnected")
		// unconditional: other producers may still be connected
		s.tracker.Set(false)
		s.publish(message.Disconnected())
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		logger.Debug("Received line", "line", string(line))
		s.flow.RecordMessage(len(line))

		passing, err := ParseLine(line, s.now)
		if err != nil {
			s.flow.RecordError(err)
			s.core.RecordMalformed(source)
			logger.Error("Error parsing JSON", "error", err, "data", string(line))
			continue
		}
		logger.Debug("JSON passing", "passing", passing.String())
		s.publish(message.NewPassingEvent(passing))
	}
	if err := scanner.Err(); err != nil && !errors.IsDisconnect(err) && ctx.Err() == nil {
		s.flow.RecordError(err)
		logger.Warn("JSON client read error", "error", err)
	}
}

func (s *Server) publish(ev message.Event) {
	s.hub.Publish(ev)
	switch ev.Kind {
	case message.KindPassing:
		s.core.RecordPassing(source)
	case message.KindStatus:
		s.core.RecordStatus(string(ev.Status.Event))
	}
}

func (s *Server) setConnectionsGauge() {
	if s.connections != nil {
		s.connections.Set(float64(s.active.Load()))
	}
}

// Addr returns the bound address, or nil before Serve has bound
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Ready is closed once the listener is bound
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// ActiveConnections returns the number of open producer connections
func (s *Server) ActiveConnections() int {
	return int(s.active.Load())
}

// Meta returns the component metadata
func (s *Server) Meta() component.Metadata {
	return component.Metadata{
		Name:        "jsonline",
		Type:        component.TypeInput,
		Description: "JSON-line ingestor listening on " + s.address,
		Version:     "1.0.0",
	}
}

// Health reports healthy while the listener is accepting
func (s *Server) Health() component.HealthStatus {
	return s.flow.Health(s.flow.State() == component.StateRunning)
}

// DataFlow returns inbound line rates
func (s *Server) DataFlow() component.FlowMetrics {
	return s.flow.DataFlow()
}
