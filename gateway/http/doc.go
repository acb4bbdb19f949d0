// Package http serves the gateway's HTTP surface.
//
// Routes:
//
//	GET  <ws_path>      WebSocket stream of timing events (default /ws)
//	GET  /health        aggregated component health, 503 when unhealthy
//	GET  /metrics       Prometheus metrics
//	GET  /api/status    timing source connection state and hub statistics
//	GET  /api/config    current configuration
//	PUT  /api/config    validate and persist a new configuration
//
// A configuration change is written to the config file and reported with
// restart_required; the acquisition mode is chosen once at startup.
package http
