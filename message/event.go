package message

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StatusKind is the connection transition carried by a Status event
type StatusKind string

const (
	StatusConnected    StatusKind = "connected"
	StatusDisconnected StatusKind = "disconnected"
)

// Status is the {event: ...} notification of a timing source transition
type Status struct {
	Event StatusKind `json:"event"`
}

// Kind tags the variant held by an Event
type Kind int

const (
	KindPassing Kind = iota + 1
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindPassing:
		return "passing"
	case KindStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Event is the canonical hub event: exactly one of Passing or Status,
// selected by Kind.
type Event struct {
	Kind    Kind
	Passing Passing
	Status  Status
}

// NewPassingEvent wraps a passing as an Event
func NewPassingEvent(p Passing) Event {
	return Event{Kind: KindPassing, Passing: p}
}

// NewStatusEvent wraps a status transition as an Event
func NewStatusEvent(kind StatusKind) Event {
	return Event{Kind: KindStatus, Status: Status{Event: kind}}
}

// Connected returns a connected status event
func Connected() Event { return NewStatusEvent(StatusConnected) }

// Disconnected returns a disconnected status event
func Disconnected() Event { return NewStatusEvent(StatusDisconnected) }

// StatusFor returns the status event describing the given connection state.
// New subscribers receive it first so they do not wait for the next transition.
func StatusFor(connected bool) Event {
	if connected {
		return Connected()
	}
	return Disconnected()
}

// IsPassing reports whether the event carries a passing
func (e Event) IsPassing() bool { return e.Kind == KindPassing }

// IsStatus reports whether the event carries a status transition
func (e Event) IsStatus() bool { return e.Kind == KindStatus }

// MarshalJSON erases the tag: a passing becomes its field object, a status
// becomes {"event": "..."}.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindPassing:
		return json.Marshal(e.Passing)
	case KindStatus:
		return json.Marshal(e.Status)
	default:
		return nil, fmt.Errorf("message: cannot marshal event of kind %d", e.Kind)
	}
}

// UnmarshalJSON restores the tag from the wire shape. An object with an
// "event" key is a status, one with a "transponder" key is a passing.
func (e *Event) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}

	if raw, ok := probe["event"]; ok {
		var kind StatusKind
		if err := json.Unmarshal(raw, &kind); err != nil {
			return fmt.Errorf("message: status event: %w", err)
		}
		*e = NewStatusEvent(kind)
		return nil
	}

	if _, ok := probe["transponder"]; ok {
		var p Passing
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("message: passing event: %w", err)
		}
		*e = NewPassingEvent(p)
		return nil
	}

	return fmt.Errorf("message: object is neither a passing nor a status")
}

func (e Event) String() string {
	switch e.Kind {
	case KindPassing:
		return e.Passing.String()
	case KindStatus:
		return "status " + string(e.Status.Event)
	default:
		return "empty event"
	}
}
