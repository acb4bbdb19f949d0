// Package component defines the contracts shared by the gateway's acquisition
// modes and output adapters.
//
// Every long-running part of the gateway (the line-protocol decoder, the
// JSON-line ingestor, the websocket adapter and the NATS bridge) implements
// Discoverable so the HTTP gateway can report what is running and how healthy
// it is without knowing the concrete types:
//
//	var _ component.Discoverable = (*lineproto.Decoder)(nil)
//
//	func (d *Decoder) Meta() component.Metadata {
//		return component.Metadata{
//			Name:        "lineproto",
//			Type:        component.TypeInput,
//			Description: "Line-protocol decoder session",
//			Version:     "1.0.0",
//		}
//	}
//
// Health and DataFlow are computed from atomic counters kept by the component
// itself. They are cheap to call and safe from any goroutine.
//
// # Runners
//
// Components that own a blocking loop implement Runner. Run blocks until the
// session ends or ctx is cancelled, and returns a classified error from the
// errors package describing why the session ended:
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(func() error { return decoder.Run(ctx) })
//
// # Dependencies
//
// Dependencies bundles what every component receives from the bootstrap code:
// the hub, the connection-status tracker, the metrics registry and a logger.
// Constructors take their own Deps struct and copy the fields they need.
package component
