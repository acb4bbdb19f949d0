// Package natsbridge republishes hub events on NATS subjects.
//
// The bridge is an ordinary hub subscriber. Each event is encoded with the
// same untagged JSON shape the websocket clients see and published to
//
//	<prefix>.passing   for passings
//	<prefix>.status    for connected/disconnected transitions
//
// Publishing goes through a small Publisher interface so the bridge can be
// driven by natsclient.Client in production and by a fake in tests. Transient
// publish failures are retried briefly; an event that still cannot be
// published is counted and dropped so a slow broker never stalls the hub.
// A lag notification from the hub is logged and the bridge carries on from
// the oldest retained event.
package natsbridge
