// Package metric provides the Prometheus registry shared by every gateway
// component, plus the core gateway metrics.
//
// # Architecture
//
//  1. Core Metrics: gateway-level series registered automatically (Metrics type)
//  2. Component Registry: keyed registration of component-specific collectors
//     (MetricsRegistrar interface)
//  3. Handler: promhttp handler mounted by the HTTP gateway at /metrics
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//
//	core := registry.CoreMetrics()
//	core.RecordPassing("lineproto")
//	core.RecordMalformed("jsonline")
//	core.RecordStatus("connected")
//
//	router.Handle("/metrics", registry.Handler())
//
// # Component Metrics
//
// Components create their own collectors and register them under a
// component name. Registration is keyed by "component.metric" so a second
// registration of the same key fails with an invalid-class error instead of
// panicking inside Prometheus:
//
//	lines := prometheus.NewCounter(prometheus.CounterOpts{
//	    Namespace: "rrclivelaps",
//	    Subsystem: "lineproto",
//	    Name:      "lines_received_total",
//	    Help:      "Lines received from the decoder",
//	})
//	if err := registry.RegisterCounter("lineproto", "lines_received", lines); err != nil {
//	    return err
//	}
//
// The nil-registry convention applies throughout: a component built without
// a registry simply has no metrics.
package metric
