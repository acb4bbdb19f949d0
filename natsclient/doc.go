// Package natsclient manages the optional NATS connection the gateway uses to
// republish timing events to other services.
//
// The client wraps a *nats.Conn with connection status tracking, retrying
// connect at startup via pkg/retry, slog logging and a bounded drain on
// Close. It is intentionally small: core NATS publish and subscribe only.
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithName("rrclivelaps"),
//		natsclient.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
//
//	err = client.Publish(ctx, "timing.passing", payload)
//
// # Testing
//
// NewTestClient starts a NATS server in a container with testcontainers-go
// and returns a connected client. Tests using it are behind the integration
// build tag.
package natsclient
