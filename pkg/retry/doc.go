// Package retry provides exponential backoff retry logic for transient failures.
//
// The gateway uses it for the optional NATS bridge: establishing the broker
// connection at startup (ForConnect) and republishing a single event when the
// connection hiccups (ForPublish). Decoder sessions are deliberately not
// retried here; a session is one attempt.
//
// Basic retry with defaults:
//
//	err := retry.Do(ctx, retry.DefaultConfig(), func() error {
//	    return client.Connect(ctx)
//	})
//
// Only retry errors the errors package classifies as transient, and log each
// backoff:
//
//	cfg := retry.ForPublish()
//	cfg.ShouldRetry = errors.IsTransient
//	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
//	    logger.Debug("Retrying publish", "attempt", attempt, "delay", delay, "error", err)
//	}
//
// Errors wrapped with NonRetryable stop the loop immediately regardless of
// ShouldRetry. Context cancellation is honoured both between attempts and
// during the backoff sleep.
package retry
