// Package message defines the canonical events that flow from the timing
// decoders through the hub to every subscriber.
//
// There are two kinds of event:
//
//   - Passing: one transponder detection reported by a timing device.
//   - Status: a connected/disconnected transition of the active timing source.
//
// Internally an Event carries an explicit Kind so consumers can switch on it
// safely. On the wire the tag is erased: a passing serializes as its field
// object and a status as {"event":"connected"} or {"event":"disconnected"}.
// Consumers tell the two apart structurally, by the presence of "transponder"
// or "event".
//
// Events have value semantics. Publishing copies the Event into the hub and
// every subscriber receives its own copy; nothing is shared after publish.
package message
