// Package errors provides classified error handling for the timing gateway.
//
// # Error Classification
//
// Every error that crosses a package boundary is put into one of three classes:
//
//   - Transient: the session or connection ended (EOF, reset, timeout). The
//     affected decoder session is over, but a caller may start a new one.
//   - Invalid: a single record or configuration value could not be used. The
//     record is dropped and the session continues.
//   - Fatal: nothing useful can happen on this session or listener any more
//     (closed during handshake, bind failure, bad configuration).
//
// # Wrapping Pattern
//
// All wrapping follows the format
//
//	"component.method: action failed: %w"
//
// and is produced by the Wrap family:
//
//	errors.WrapTransient(err, "lineproto", "Run", "read line")
//	errors.WrapInvalid(errors.ErrInsufficientFields, "lineproto", "ParseRecord", "split record")
//	errors.WrapFatal(errors.ErrClosedDuringInit, "lineproto", "handshake", "read ack")
//
// Classified errors support errors.Is and errors.As through Unwrap, so sentinel
// checks keep working through the chain:
//
//	if errors.Is(err, errors.ErrClosedDuringInit) {
//	    // handshake never completed
//	}
//
// # Disconnects
//
// IsDisconnect recognises the family of errors that only mean the peer went
// away (EOF, closed connection, broken pipe, connection reset). Subscriber
// adapters use it to end quietly instead of logging at error level.
package errors
