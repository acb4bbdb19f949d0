// Package rrclivelaps is a race-timing gateway. It acquires passings from one
// timing source, normalizes them into a single event stream and fans that
// stream out to any number of live subscribers.
//
// # Architecture
//
// Exactly one acquisition mode is active per process, selected by
// configuration at startup:
//
//	┌──────────────┐  ┌──────────────┐  ┌──────────────┐
//	│  tcp mode    │  │  usb mode    │  │ tcpserver    │
//	│ line decoder │  │ line decoder │  │ JSON-line    │
//	│ (dials box)  │  │ (serial port)│  │ (listens)    │
//	└──────┬───────┘  └──────┬───────┘  └──────┬───────┘
//	       └─────────────────┼─────────────────┘
//	                         ↓ Publish
//	              ┌─────────────────────┐
//	              │   Broadcast Hub     │  bounded ring, never blocks
//	              │  (hub, pkg/buffer)  │  the producer
//	              └──────────┬──────────┘
//	         ┌───────────────┼────────────────┐
//	         ↓               ↓                ↓
//	   ┌──────────┐    ┌──────────┐     ┌────────────┐
//	   │WebSocket │    │WebSocket │ ... │ NATS bridge│
//	   │ client   │    │ client   │     │ (optional) │
//	   └──────────┘    └──────────┘     └────────────┘
//
// The connection-status tracker (connstate) is written by the active mode and
// read once per new WebSocket client, so every client starts with the current
// connected/disconnected state before it sees live events.
//
// # Delivery
//
// Publishing never waits for subscribers. A subscriber only sees events
// published after it subscribed. One that falls further behind than the ring
// capacity gets a lag notification and resumes at the oldest retained event;
// it never receives duplicates.
//
// # Wire format
//
// Events leave the gateway as an untagged JSON union. A passing is its field
// object:
//
//	{"passing_number":42,"transponder":"TR001","rtc_time":"2024-01-12T09:06:35.944",
//	 "strength":99,"tran_code":"EVT","noise":0,"hits":10,
//	 "date":"2024-01-12","time":"09:06:35.944"}
//
// A status change is {"event":"connected"} or {"event":"disconnected"}.
//
// # Packages
//
// Core:
//   - message: Passing, status and the tagged Event with its wire codec
//   - connstate: shared connection-status flag
//   - hub, pkg/buffer: broadcast hub over a sequence-numbered ring
//   - input/lineproto: handshake line protocol over TCP or serial
//   - input/jsonline: line-delimited JSON listener
//
// Outputs:
//   - output/websocket: per-client WebSocket forwarder
//   - output/natsbridge: republishes events on NATS subjects
//   - gateway/http: HTTP surface for /ws, /health, /metrics and /api
//
// Infrastructure:
//   - config: layered JSON/YAML configuration with schema validation
//   - errors: classified errors (transient, invalid, fatal)
//   - component: metadata, health and flow counters shared by components
//   - health, metric: health aggregation and Prometheus metrics
//   - natsclient, pkg/retry: NATS connection handling with backoff
//
// The executable lives in cmd/rrclivelaps.
package rrclivelaps
