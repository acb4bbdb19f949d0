package http

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gilliangoud/RRCLiveLaps/component"
	"github.com/gilliangoud/RRCLiveLaps/config"
	"github.com/gilliangoud/RRCLiveLaps/connstate"
	"github.com/gilliangoud/RRCLiveLaps/errors"
	"github.com/gilliangoud/RRCLiveLaps/health"
	"github.com/gilliangoud/RRCLiveLaps/hub"
	"github.com/gilliangoud/RRCLiveLaps/metric"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const (
	// SystemName is reported as the aggregate health component
	SystemName = "rrclivelaps"

	maxConfigBody   = 64 << 10
	apiTimeout      = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Deps holds everything the HTTP surface exposes
type Deps struct {
	Address         string             // Listen address, e.g. 0.0.0.0:8080
	WSPath          string             // WebSocket route, default /ws
	WebSocket       http.Handler       // Serves WSPath; nil leaves the route unmounted
	Hub             *hub.Hub           // Source of /api/status hub statistics
	Tracker         *connstate.Tracker // Source of /api/status connected
	Config          *config.SafeConfig // Backs /api/config; nil disables the endpoint
	Health          *health.Monitor    // Backs /health
	MetricsRegistry *metric.MetricsRegistry
	Version         string
	Logger          *slog.Logger
}

// Server is the gateway HTTP server
type Server struct {
	deps      Deps
	logger    *slog.Logger
	router    chi.Router
	startTime time.Time
	flow      *component.FlowCounters

	ready chan struct{}
	addr  net.Addr
}

var _ component.Runner = (*Server)(nil)

// NewServer builds the router. Nothing listens until Run is called.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default().With("component", "http")
	}
	if deps.WSPath == "" {
		deps.WSPath = "/ws"
	}
	if deps.Tracker == nil {
		deps.Tracker = connstate.New()
	}
	if deps.Health == nil {
		deps.Health = health.NewMonitor()
	}

	s := &Server{
		deps:      deps,
		logger:    deps.Logger,
		startTime: time.Now(),
		flow:      component.NewFlowCounters(),
		ready:     make(chan struct{}),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.logRequests)
	r.Use(chimw.Recoverer)

	if s.deps.WebSocket != nil {
		r.Handle(s.deps.WSPath, s.deps.WebSocket)
	}
	r.Get("/health", s.deps.Health.Handler(SystemName).ServeHTTP)
	if s.deps.MetricsRegistry != nil {
		r.Handle("/metrics", s.deps.MetricsRegistry.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(apiTimeout))
		r.Use(chimw.NoCache)
		r.Get("/status", s.handleStatus)
		r.Get("/config", s.handleGetConfig)
		r.Put("/config", s.handlePutConfig)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method "+r.Method+" not allowed")
	})
	return r
}

// Handler returns the router
func (s *Server) Handler() http.Handler {
	return s.router
}

// Ready is closed once the listener is bound
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before Ready
func (s *Server) Addr() net.Addr {
	select {
	case <-s.ready:
		return s.addr
	default:
		return nil
	}
}

// Run listens on Deps.Address and serves until ctx is cancelled, then shuts
// down gracefully. A bind failure is fatal.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.deps.Address)
	if err != nil {
		s.flow.SetState(component.StateFailed)
		s.flow.RecordError(err)
		return errors.WrapFatal(stderrors.Join(errors.ErrBindFailed, err), "http", "Run", "listen "+s.deps.Address)
	}
	s.addr = ln.Addr()
	close(s.ready)

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.flow.SetState(component.StateRunning)
	s.logger.Info("HTTP server listening", "address", s.addr.String(), "ws_path", s.deps.WSPath)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		s.flow.SetState(component.StateFailed)
		s.flow.RecordError(err)
		return errors.WrapTransient(err, "http", "Run", "serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("HTTP shutdown did not complete", "error", err)
	}
	<-errCh

	s.flow.SetState(component.StateStopped)
	s.logger.Info("HTTP server stopped")
	return nil
}

// Meta returns component metadata
func (s *Server) Meta() component.Metadata {
	return component.Metadata{
		Name:        "http-server",
		Type:        component.TypeOutput,
		Description: "HTTP API, metrics and WebSocket endpoint",
		Version:     "1.0.0",
	}
}

// Health reports healthy while serving
func (s *Server) Health() component.HealthStatus {
	return s.flow.Health(s.flow.State() == component.StateRunning)
}

// DataFlow returns request rates
func (s *Server) DataFlow() component.FlowMetrics {
	return s.flow.DataFlow()
}
