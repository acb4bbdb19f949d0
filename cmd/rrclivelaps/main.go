// Package main implements the rrclivelaps gateway: it acquires passings from
// a timing decoder and fans them out to WebSocket clients and, optionally, NATS.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gilliangoud/RRCLiveLaps/component"
	"github.com/gilliangoud/RRCLiveLaps/config"
	"github.com/gilliangoud/RRCLiveLaps/connstate"
	"github.com/gilliangoud/RRCLiveLaps/errors"
	gatewayhttp "github.com/gilliangoud/RRCLiveLaps/gateway/http"
	"github.com/gilliangoud/RRCLiveLaps/health"
	"github.com/gilliangoud/RRCLiveLaps/hub"
	"github.com/gilliangoud/RRCLiveLaps/input/jsonline"
	"github.com/gilliangoud/RRCLiveLaps/input/lineproto"
	"github.com/gilliangoud/RRCLiveLaps/metric"
	"github.com/gilliangoud/RRCLiveLaps/natsclient"
	"github.com/gilliangoud/RRCLiveLaps/output/natsbridge"
	"github.com/gilliangoud/RRCLiveLaps/output/websocket"
)

const appName = "rrclivelaps"

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

// source is the acquisition side selected by the configured mode
type source interface {
	component.Discoverable
	Run(ctx context.Context) error
}

// serverSource adapts the JSON-line listener to source
type serverSource struct {
	*jsonline.Server
}

func (s serverSource) Run(ctx context.Context) error { return s.Serve(ctx) }

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, err := parseFlags(flag.NewFlagSet(appName, flag.ContinueOnError), args)
	if err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return fmt.Errorf("parse flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ListPorts {
		return listPorts()
	}

	logger := setupLogger(os.Stdout, cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfig(cliCfg.ConfigPath, logger)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		slog.Info("Configuration is valid", "path", cliCfg.ConfigPath)
		return nil
	}
	if cfg.Debug && cliCfg.LogLevel != "debug" {
		logger = setupLogger(os.Stdout, "debug", cliCfg.LogFormat)
		slog.SetDefault(logger)
	}

	slog.Info("Starting rrclivelaps",
		"version", Version,
		"config_path", cliCfg.ConfigPath,
		"mode", cfg.Mode.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, config.NewSafeConfig(cfg, cliCfg.ConfigPath), cliCfg.ShutdownTimeout, logger)
}

// loadConfig reads the configuration file, writing defaults when it is missing
func loadConfig(path string, logger *slog.Logger) (*config.Config, error) {
	loader := config.NewLoader()
	loader.SetLogger(logger)
	cfg, created, err := loader.LoadOrCreate(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if created {
		slog.Info("Wrote default configuration", "path", path)
	}
	return cfg, nil
}

func listPorts() error {
	ports, err := lineproto.SerialPorts()
	if err != nil {
		return fmt.Errorf("list serial ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p)
	}
	return nil
}

// serve wires the gateway and blocks until ctx is cancelled or the HTTP
// listener fails.
func serve(ctx context.Context, cfg *config.Config, safeCfg *config.SafeConfig,
	shutdownTimeout time.Duration, logger *slog.Logger,
) error {
	registry := metric.NewMetricsRegistry()
	tracker := connstate.New()
	monitor := health.NewMonitor()

	h, err := hub.New(
		hub.WithCapacity(cfg.Hub.Capacity),
		hub.WithLogger(logger.With("component", "hub")),
		hub.WithMetrics(registry),
	)
	if err != nil {
		return fmt.Errorf("create hub: %w", err)
	}

	shared := &component.Dependencies{
		Hub:             h,
		Tracker:         tracker,
		MetricsRegistry: registry,
		Logger:          logger,
	}

	src, err := newSource(cfg, shared)
	if err != nil {
		return err
	}
	monitor.Track("timing-source", src)

	ws := websocket.New(websocket.Deps{
		Hub:             h,
		Tracker:         tracker,
		MetricsRegistry: registry,
		Logger:          shared.GetLoggerWithComponent("websocket"),
	})
	monitor.Track("websocket", ws)

	server := gatewayhttp.NewServer(gatewayhttp.Deps{
		Address:         cfg.HTTP.Address(),
		WSPath:          cfg.HTTP.WSPath,
		WebSocket:       ws,
		Hub:             h,
		Tracker:         tracker,
		Config:          safeCfg,
		Health:          monitor,
		MetricsRegistry: registry,
		Version:         Version,
		Logger:          shared.GetLoggerWithComponent("http"),
	})
	monitor.Track("http", server)

	nc, bridge := setupNATS(ctx, cfg, shared)
	if bridge != nil {
		monitor.Track("nats-bridge", bridge)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(gctx)
	})

	g.Go(func() error {
		err := src.Run(gctx)
		switch {
		case err == nil:
			slog.Info("Timing source stopped", "mode", cfg.Mode.Mode)
		case errors.IsFatal(err):
			slog.Error("Timing source failed", "mode", cfg.Mode.Mode, "error", err, "class", errors.Classify(err))
		default:
			slog.Warn("Timing source session ended", "mode", cfg.Mode.Mode, "error", err, "class", errors.Classify(err))
		}
		// HTTP keeps serving the last status until shutdown
		return nil
	})

	if bridge != nil {
		g.Go(func() error {
			return bridge.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		if err := ws.Close(shutdownCtx); err != nil {
			slog.Warn("WebSocket clients did not close in time", "error", err)
		}
		h.Close()
		return nil
	})

	slog.Info("rrclivelaps started", "http", cfg.HTTP.Address(), "ws_path", cfg.HTTP.WSPath)
	err = g.Wait()

	if nc != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := nc.Close(closeCtx); cerr != nil {
			slog.Warn("NATS close failed", "error", cerr)
		}
	}

	if err != nil {
		return err
	}
	slog.Info("rrclivelaps shutdown complete")
	return nil
}

func newSource(cfg *config.Config, shared *component.Dependencies) (source, error) {
	switch cfg.Mode.Mode {
	case config.ModeTCP:
		return lineproto.NewDecoder(lineproto.DecoderDeps{
			Dialer:            lineproto.NewTCPDialer(cfg.Mode.Host, cfg.Mode.Port),
			Hub:               shared.Hub,
			Tracker:           shared.Tracker,
			KeepaliveInterval: cfg.Decoder.KeepaliveInterval.Std(),
			MetricsRegistry:   shared.MetricsRegistry,
			Logger:            shared.GetLoggerWithComponent("decoder").With("transport", "tcp"),
		}), nil
	case config.ModeUSB:
		return lineproto.NewDecoder(lineproto.DecoderDeps{
			Dialer:            lineproto.SerialDialer{PortPath: cfg.Mode.PortPath, BaudRate: cfg.Decoder.BaudRate},
			Hub:               shared.Hub,
			Tracker:           shared.Tracker,
			KeepaliveInterval: cfg.Decoder.KeepaliveInterval.Std(),
			MetricsRegistry:   shared.MetricsRegistry,
			Logger:            shared.GetLoggerWithComponent("decoder").With("transport", "serial"),
		}), nil
	case config.ModeTCPServer:
		return serverSource{jsonline.NewServer(jsonline.ServerDeps{
			Address:         cfg.Mode.Address(),
			Hub:             shared.Hub,
			Tracker:         shared.Tracker,
			MetricsRegistry: shared.MetricsRegistry,
			Logger:          shared.GetLoggerWithComponent("jsonline"),
		})}, nil
	default:
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "main", "newSource", "select mode "+cfg.Mode.Mode)
	}
}

// setupNATS connects the optional NATS bridge. A broker that cannot be
// reached disables the bridge without stopping the gateway.
func setupNATS(ctx context.Context, cfg *config.Config, shared *component.Dependencies,
) (*natsclient.Client, *natsbridge.Bridge) {
	if !cfg.NATS.Enabled {
		return nil, nil
	}

	nc, err := natsclient.NewClient(cfg.NATS.URL,
		natsclient.WithName(appName),
		natsclient.WithLogger(shared.GetLoggerWithComponent("nats")),
	)
	if err != nil {
		slog.Error("NATS bridge disabled", "error", err)
		return nil, nil
	}

	slog.Info("Connecting to NATS", "url", cfg.NATS.URL)
	if err := nc.Connect(ctx); err != nil {
		slog.Error("NATS bridge disabled", "error", err)
		return nil, nil
	}

	return nc, natsbridge.New(natsbridge.Deps{
		Hub:             shared.Hub,
		Publisher:       nc,
		SubjectPrefix:   cfg.NATS.SubjectPrefix,
		MetricsRegistry: shared.MetricsRegistry,
		Logger:          shared.GetLoggerWithComponent("nats-bridge"),
	})
}
