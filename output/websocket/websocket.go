package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/component"
	"github.com/gilliangoud/RRCLiveLaps/connstate"
	"github.com/gilliangoud/RRCLiveLaps/hub"
	"github.com/gilliangoud/RRCLiveLaps/metric"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// DefaultPingInterval is how often idle clients are pinged
	DefaultPingInterval = 30 * time.Second
	// DefaultWriteTimeout bounds a single frame write
	DefaultWriteTimeout = 10 * time.Second
	// DefaultLagLogInterval is the minimum gap between lag warnings for one client
	DefaultLagLogInterval = 5 * time.Second
)

// Deps holds runtime dependencies for an Output
type Deps struct {
	Hub             *hub.Hub
	Tracker         *connstate.Tracker
	PingInterval    time.Duration // Zero uses DefaultPingInterval
	WriteTimeout    time.Duration // Zero uses DefaultWriteTimeout
	LagLogInterval  time.Duration // Zero uses DefaultLagLogInterval
	MetricsRegistry *metric.MetricsRegistry
	Logger          *slog.Logger
}

// Output upgrades HTTP requests and streams hub events to each client
type Output struct {
	hub            *hub.Hub
	tracker        *connstate.Tracker
	upgrader       websocket.Upgrader
	pingInterval   time.Duration
	writeTimeout   time.Duration
	lagLogInterval time.Duration
	logger         *slog.Logger

	clients   map[string]*client
	clientsMu sync.RWMutex
	wg        sync.WaitGroup

	// cancelled by Close; every client context derives from it
	ctx    context.Context
	cancel context.CancelFunc

	metrics *Metrics
	flow    *component.FlowCounters
}

var (
	_ component.Discoverable = (*Output)(nil)
	_ http.Handler           = (*Output)(nil)
)

// New creates a websocket output
func New(deps Deps) *Output {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "websocket")
	}
	tracker := deps.Tracker
	if tracker == nil {
		tracker = connstate.New()
	}

	o := &Output{
		hub:            deps.Hub,
		tracker:        tracker,
		pingInterval:   durationOr(deps.PingInterval, DefaultPingInterval),
		writeTimeout:   durationOr(deps.WriteTimeout, DefaultWriteTimeout),
		lagLogInterval: durationOr(deps.LagLogInterval, DefaultLagLogInterval),
		logger:         logger,
		upgrader: websocket.Upgrader{
			// the live lap page may be served from another origin
			CheckOrigin:     func(_ *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[string]*client),
		metrics: newMetrics(deps.MetricsRegistry, logger),
		flow:    component.NewFlowCounters(),
	}
	o.ctx, o.cancel = context.WithCancel(context.Background())
	o.flow.SetState(component.StateRunning)
	return o
}

func durationOr(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// ServeHTTP upgrades the request and serves the client until it goes away
func (o *Output) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if o.hub == nil {
		http.Error(w, "event hub unavailable", http.StatusServiceUnavailable)
		return
	}
	if o.ctx.Err() != nil {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := o.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		o.flow.RecordError(err)
		o.metrics.recordError("upgrade")
		o.logger.Debug("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		id:          uuid.NewString(),
		conn:        conn,
		output:      o,
		connectedAt: time.Now(),
		lagLimiter:  rate.NewLimiter(rate.Every(o.lagLogInterval), 1),
	}
	c.logger = o.logger.With("client", c.id, "remote", r.RemoteAddr)

	if !o.addClient(c) {
		_ = conn.Close()
		return
	}
	defer o.removeClient(c)

	c.serve(o.ctx)
}

func (o *Output) addClient(c *client) bool {
	o.clientsMu.Lock()
	defer o.clientsMu.Unlock()
	if o.ctx.Err() != nil {
		return false
	}
	o.clients[c.id] = c
	o.wg.Add(1)
	o.metrics.clientConnected(len(o.clients))
	c.logger.Info("WebSocket client connected", "clients", len(o.clients))
	return true
}

func (o *Output) removeClient(c *client) {
	o.clientsMu.Lock()
	delete(o.clients, c.id)
	count := len(o.clients)
	o.clientsMu.Unlock()

	_ = c.conn.Close()
	o.metrics.clientDisconnected(c.reason, count)
	c.logger.Info("WebSocket client disconnected",
		"reason", c.reason, "duration", time.Since(c.connectedAt), "clients", count)
	o.wg.Done()
}

// ClientCount returns the number of connected clients
func (o *Output) ClientCount() int {
	o.clientsMu.RLock()
	defer o.clientsMu.RUnlock()
	return len(o.clients)
}

// Close disconnects every client and waits for their handlers to return.
// New upgrades are refused afterwards.
func (o *Output) Close(ctx context.Context) error {
	o.clientsMu.Lock()
	o.cancel()
	o.clientsMu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.flow.SetState(component.StateStopped)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Meta returns component metadata
func (o *Output) Meta() component.Metadata {
	return component.Metadata{
		Name:        "websocket-output",
		Type:        component.TypeOutput,
		Description: "Streams passings and status events to WebSocket clients",
		Version:     "1.0.0",
	}
}

// Health reports healthy until Close is called
func (o *Output) Health() component.HealthStatus {
	return o.flow.Health(o.hub != nil && o.ctx.Err() == nil)
}

// DataFlow returns frame rates across all clients
func (o *Output) DataFlow() component.FlowMetrics {
	return o.flow.DataFlow()
}
