// Package websocket streams hub events to browser clients over WebSocket.
//
// Output is an http.Handler; the gateway mounts it at the configured path
// (default /ws). Every upgraded connection becomes one hub subscriber:
//
//  1. subscribe to the hub, so nothing published from now on is missed
//  2. send the current connection status ({"event":"connected"} or
//     {"event":"disconnected"}) read from the tracker
//  3. forward every following event as one JSON text frame
//
// Frames use the untagged wire shape of message.Event, so a client tells
// passings and status messages apart by the presence of "transponder" or
// "event".
//
// A client that falls more than the hub capacity behind misses the oldest
// events and continues with the oldest retained one. The lag is logged at
// most once per interval per client. Write errors that only mean the peer
// went away end the client quietly; anything else is logged.
//
// Messages sent by the browser are read and discarded. Reading keeps ping
// and close frames flowing and notices a vanished peer.
package websocket
