// Package lineproto implements a session with a timing decoder that speaks the
// semicolon-delimited line protocol, over TCP or a serial port.
//
// # Session
//
// Decoder.Run performs exactly one session attempt:
//
//  1. Connecting: the Dialer opens the byte stream. On success the shared
//     connection-status tracker is set and a "connected" status event is
//     published.
//  2. Handshaking: SETPROTOCOL;2.0 then SETPUSHPASSINGS;1;1 are sent and one
//     reply line is read after each. A reply that does not match the expected
//     echo is logged as a warning and the session continues. A stream that
//     closes during this phase ends the session with a fatal error wrapping
//     errors.ErrClosedDuringInit.
//  3. Streaming: inbound lines and a keepalive ticker are raced in one select
//     loop. Every tick sends PING. Lines whose first field is #P are parsed
//     into passings and published to the hub. PING echoes and unknown lines
//     are ignored.
//  4. Disconnecting: when the session ends for any reason the tracker is
//     cleared and, only if a connect was announced, a "disconnected" status
//     event is published.
//
// No reconnection is attempted. Callers that want one loop around Run.
//
// # Records
//
// A passing record looks like:
//
//	#P;42;TR001;2024-01-12;09:06:35;EVT;3;210;ABCD;1;2
//
// Field 1 is the passing number, 2 the transponder, 3 the date, 4 the time,
// 6 the hit count, 7 the peak signal strength and 8 the device internal code.
// Records with fewer than five fields are dropped and logged. Numeric fields
// that are absent or not numbers become 0; the record is never rejected for them.
//
// # Transports
//
// TCPDialer connects to host:port. SerialDialer opens a serial device using
// go.bug.st/serial. Both satisfy Dialer, so the session logic is identical.
package lineproto
