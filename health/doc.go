// Package health aggregates the health of the gateway components.
//
// A Status is healthy, degraded or unhealthy. A Monitor holds statuses that
// are pushed to it with Update, and components registered with Track whose
// Health is polled whenever the aggregate is read. The aggregate is:
//
//   - unhealthy if any status is unhealthy
//   - degraded if none is unhealthy but one is degraded
//   - healthy otherwise
//
// Messages derived from component errors pass through a sanitizer that masks
// URLs, device paths, addresses and credentials before they are served on
// the /health endpoint.
//
//	monitor := health.NewMonitor()
//	monitor.Track("decoder", decoder)
//	monitor.UpdateDegraded("timing-source", "Timing source disconnected")
//	router.Get("/health", monitor.Handler("rrclivelaps").ServeHTTP)
package health
