package component

import (
	"log/slog"

	"github.com/gilliangoud/RRCLiveLaps/connstate"
	"github.com/gilliangoud/RRCLiveLaps/hub"
	"github.com/gilliangoud/RRCLiveLaps/metric"
)

// Dependencies provides the shared runtime dependencies handed to components.
type Dependencies struct {
	Hub             *hub.Hub                // Broadcast hub events are published to and read from
	Tracker         *connstate.Tracker      // Connection-status flag of the active acquisition mode
	MetricsRegistry *metric.MetricsRegistry // Metrics registry for Prometheus (can be nil)
	Logger          *slog.Logger            // Structured logger (can be nil, defaults to slog.Default())
}

// GetLogger returns the configured logger or a default logger if none is provided
func (d *Dependencies) GetLogger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// GetLoggerWithComponent returns a logger configured with component context
func (d *Dependencies) GetLoggerWithComponent(componentName string) *slog.Logger {
	return d.GetLogger().With("component", componentName)
}

// CoreMetrics returns the gateway metrics, or nil when metrics are disabled
func (d *Dependencies) CoreMetrics() *metric.Metrics {
	if d.MetricsRegistry == nil {
		return nil
	}
	return d.MetricsRegistry.CoreMetrics()
}
