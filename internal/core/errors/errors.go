package errors

import "errors"

// Domain errors - these represent contract violations and terminal states
var (
	// Connection lifecycle
	ErrNoCredential   = errors.New("no credential available")
	ErrRetryExhausted = errors.New("reconnect retry budget exhausted")
	ErrNotConnected   = errors.New("not connected")
	ErrAlreadyClosed  = errors.New("connection already closed")

	// Chat
	ErrEmptyMessage = errors.New("message body is empty")
	ErrChatNotFound = errors.New("chat not found")
	ErrNoActiveChat = errors.New("no chat selected")

	// Notifications
	ErrNotificationNotFound = errors.New("notification not found")

	// Remote store
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	ErrBadStatus         = errors.New("unexpected response status")
)
