// Package jsonline accepts timing producers that push one JSON document per
// line over TCP.
//
// Any number of producers may be connected at once. Each connection is read
// on its own goroutine and every non-blank line is decoded independently:
//
//	{"Passing":{"Transponder":"TR002","UTCTime":"2024-01-12T09:06:35.944Z","Hits":3,"RSSI":120},"Time":32795.5}
//
// Transponder and UTCTime are required. Hits, RSSI, InternalData, PassingNo,
// Battery, Temperature, LoopID and Channel are optional. Malformed lines are
// logged and dropped; the connection stays open.
//
// # Timestamps
//
// UTCTime is split on its T separator into a date and a clock part (the
// trailing Z is removed). When the sibling Time field is present it replaces
// the clock part with HH:MM:SS.mmm computed from seconds since midnight
// (milliseconds truncated), and an empty or 0001-01-01 date is replaced with
// the gateway's local calendar date. rtc_time is date+"T"+time, or the raw
// UTCTime when either part is empty.
//
// # Connection status
//
// Every accepted connection sets the shared tracker and publishes a
// "connected" status event. Every connection that ends clears the tracker and
// publishes "disconnected", whether or not other producers are still
// connected. With overlapping producers this announces a disconnect while
// data is still flowing; the next accepted connection announces "connected"
// again.
package jsonline
