// Package testutil provides shared fixtures and fakes for gateway tests:
// sample passings in every wire form the gateway accepts, and an in-memory
// publisher standing in for a NATS connection.
package testutil
