package ports

import (
	"context"
	"encoding/json"
)

// Wire event names carried over the realtime transport.
const (
	WireDisconnect   = "disconnect"
	WireConnectError = "connect_error"
	WireNotification = "notification"
	WireNewMessage   = "new_message"
	WireUserTyping   = "user_typing"

	WireJoin        = "join"
	WireLeave       = "leave"
	WireStartTyping = "start_typing"
	WireStopTyping  = "stop_typing"
)

// TransportEvent is one named frame read off the wire. Data is left raw; the
// connection manager decodes it into the matching domain type.
type TransportEvent struct {
	Name string
	Data json.RawMessage
}

// Conn is one live transport connection.
type Conn interface {
	// Emit sends a named event to the server.
	Emit(event string, payload any) error

	// Events returns the inbound frame channel. The channel is closed when
	// the connection drops or Close is called.
	Events() <-chan TransportEvent

	Close() error
}

// Transport dials the realtime server. The handshake authenticates with the
// given bearer token; a returned error means the handshake never completed.
type Transport interface {
	Dial(ctx context.Context, token string) (Conn, error)
}

// Emitter is the outbound half of a connection, as seen by the chat and
// typing components. The connection manager implements it and swallows emits
// while disconnected.
type Emitter interface {
	Emit(event string, payload any) error
}

// TokenSource supplies the bearer credential for the realtime handshake.
// The second return is false when no usable credential exists, which means
// "do not attempt connection".
type TokenSource interface {
	Token() (string, bool)
}
