// Package buffer provides a thread-safe, sequence-numbered broadcast ring with
// built-in statistics and optional Prometheus metrics.
//
// # Overview
//
// A Ring keeps the most recent Capacity items. Every appended item receives a
// monotonically increasing sequence number. Readers never remove items; each
// reader keeps its own cursor and reads by sequence, so any number of readers
// can consume the same stream independently. Appending to a full ring
// overwrites the oldest item (the DropOldest policy), so writers never block.
//
// # Quick Start
//
//	ring, err := buffer.NewRing[message.Event](100)
//	if err != nil {
//		return err
//	}
//
//	seq := ring.Append(ev)
//
//	item, oldest, status := ring.Read(cursor)
//	switch status {
//	case buffer.ReadOK:
//		cursor++
//	case buffer.ReadLagged:
//		cursor = oldest // items before oldest were overwritten
//	case buffer.ReadPending:
//		// nothing at cursor yet
//	}
//
// With metrics:
//
//	ring, err := buffer.NewRing[message.Event](100,
//		buffer.WithMetrics[message.Event](registry, "hub"),
//	)
//
// # Observability
//
// Statistics are always collected (appends, reads, overwrites, lagged reads)
// and are available via Stats(). When a metrics registry is supplied the same
// counters are exported to Prometheus under rrclivelaps_buffer_*.
package buffer
