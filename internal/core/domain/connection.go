package domain

// ConnectionState represents the lifecycle state of the realtime connection.
type ConnectionState int

const (
	// StateDisconnected means no connection exists and no retry is scheduled.
	StateDisconnected ConnectionState = iota

	// StateConnecting means a dial attempt is in flight.
	StateConnecting

	// StateConnected means the handshake succeeded and events are flowing.
	StateConnected

	// StateReconnecting means a retry is scheduled after a lost connection.
	StateReconnecting

	// StateFailed means the retry budget is exhausted. Only an explicit
	// reconnect request leaves this state.
	StateFailed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DisconnectReason distinguishes a client-initiated teardown from a loss
// eligible for automatic retry.
type DisconnectReason string

const (
	// DisconnectClient means Disconnect was called locally; no retry follows.
	DisconnectClient DisconnectReason = "client"

	// DisconnectServer means the transport dropped or the dial failed; the
	// manager retries within its budget.
	DisconnectServer DisconnectReason = "server"

	// DisconnectExhausted means the retry budget ran out.
	DisconnectExhausted DisconnectReason = "exhausted"
)
