// Package connstate holds the shared connection-status cell of the active
// timing source.
//
// A single Tracker is created at startup and handed by pointer to exactly the
// components that need it: the active acquisition mode writes it, subscriber
// admission reads it to synthesize an initial status event.
package connstate

import "sync/atomic"

// Tracker records whether a timing source is currently live.
// The zero value is ready to use and reports disconnected.
type Tracker struct {
	connected atomic.Bool
}

// New returns a tracker in the disconnected state
func New() *Tracker {
	return &Tracker{}
}

// Get reports the current connection state
func (t *Tracker) Get() bool {
	return t.connected.Load()
}

// Set stores the connection state and returns the previous one
func (t *Tracker) Set(connected bool) bool {
	return t.connected.Swap(connected)
}
