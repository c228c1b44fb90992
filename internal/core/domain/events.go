package domain

// EventKind identifies one of the bus event channels. Each kind has its own
// independent subscriber list.
type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventDisconnected EventKind = "disconnected"
	EventNotification EventKind = "notification"
	EventMessage      EventKind = "message"
	EventTyping       EventKind = "typing"
)

// Event is the tagged payload fanned out by the bus. Kind decides which of
// the payload fields is set; the others are zero.
type Event struct {
	Kind EventKind

	Reason       DisconnectReason // EventDisconnected
	Notification *Notification    // EventNotification
	Message      *Message         // EventMessage
	Typing       *TypingSignal    // EventTyping
}
