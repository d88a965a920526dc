package mqtt

import "fmt"

// EventKind discriminates what the connection surfaced.
type EventKind int

const (
	// ConnAck fires when the client has (re)established its connection.
	ConnAck EventKind = iota
	// Inbound is a publish delivered on a subscribed topic.
	Inbound
	// ConnError is a lost connection. The client keeps reconnecting on its
	// own; the event exists for logging and state tracking.
	ConnError
)

func (k EventKind) String() string {
	if k < ConnAck || k > ConnError {
		return "unknown"
	}
	return [...]string{"connack", "publish", "connerror"}[k]
}

// Event is one connection lifecycle event or inbound message. The listener
// loops consume these one at a time.
type Event struct {
	Kind     EventKind
	Topic    string
	Payload  []byte
	Retained bool
	Err      error
}

func (e Event) String() string {
	switch e.Kind {
	case ConnAck:
		return "connack"
	case Inbound:
		return fmt.Sprintf("publish topic=%s retained=%v payload=%s", e.Topic, e.Retained, e.Payload)
	case ConnError:
		return fmt.Sprintf("connection error: %s", e.Err)
	}
	return "unknown event"
}

type EventChannel chan Event

// eventBuffer decouples the paho callbacks from the listener loop while it is
// busy publishing the previous message.
const eventBuffer = 100
