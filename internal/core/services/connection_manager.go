package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gatherly/dashboard-sync/internal/core/domain"
	apperrors "github.com/gatherly/dashboard-sync/internal/core/errors"
	"github.com/gatherly/dashboard-sync/internal/core/ports"
)

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = time.Second
)

// ConnectionManagerConfig tunes the reconnect behaviour.
type ConnectionManagerConfig struct {
	// MaxAttempts is the retry budget after a lost connection.
	MaxAttempts int
	// BaseDelay is the backoff unit; retry n waits BaseDelay * n.
	BaseDelay time.Duration
}

// ConnectionManager owns the single transport connection shared by every
// higher component. It dials with the current credential, watches for loss,
// and retries with a bounded linear backoff. All failures surface
// asynchronously as disconnected bus events; Connect itself only fails when
// no credential exists, which is a configuration error rather than a
// retryable fault.
type ConnectionManager struct {
	transport ports.Transport
	tokens    ports.TokenSource
	bus       *EventBus
	logger    *slog.Logger

	maxAttempts int
	baseDelay   time.Duration

	mu         sync.Mutex
	state      domain.ConnectionState
	conn       ports.Conn
	attempts   int
	retryTimer *time.Timer
	// gen invalidates dial goroutines and read loops left over from a
	// previous connection when Disconnect or a fresh Connect intervenes.
	gen uint64
}

var _ ports.Emitter = (*ConnectionManager)(nil)

// NewConnectionManager creates a connection manager publishing to bus.
func NewConnectionManager(
	transport ports.Transport,
	tokens ports.TokenSource,
	bus *EventBus,
	cfg ConnectionManagerConfig,
	logger *slog.Logger,
) *ConnectionManager {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	return &ConnectionManager{
		transport:   transport,
		tokens:      tokens,
		bus:         bus,
		logger:      logger.With("component", "connection_manager"),
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
	}
}

// Connect opens the transport connection with the current credential. It is
// a no-op when already connected, connecting, or waiting on a scheduled
// retry. Transport errors do not propagate; they arrive as disconnected
// events.
func (m *ConnectionManager) Connect() error {
	m.mu.Lock()
	switch m.state {
	case domain.StateConnected, domain.StateConnecting, domain.StateReconnecting:
		m.mu.Unlock()
		return nil
	}

	token, ok := m.tokens.Token()
	if !ok {
		m.mu.Unlock()
		return apperrors.ErrNoCredential
	}

	m.attempts = 0
	m.state = domain.StateConnecting
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	go m.dial(gen, token)
	return nil
}

// Reconnect resumes from the terminal Failed state (or any idle state) after
// an explicit external trigger, e.g. a credential refresh.
func (m *ConnectionManager) Reconnect() error {
	return m.Connect()
}

// Disconnect tears the connection down and suppresses any pending retry.
// Idempotent; the retry counter resets to zero.
func (m *ConnectionManager) Disconnect() {
	m.mu.Lock()
	m.gen++
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	conn := m.conn
	m.conn = nil
	m.attempts = 0
	prev := m.state
	m.state = domain.StateDisconnected
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if prev != domain.StateDisconnected {
		m.logger.Info("disconnected by client")
		m.bus.Publish(domain.Event{Kind: domain.EventDisconnected, Reason: domain.DisconnectClient})
	}
}

// IsConnected reports whether the transport handshake is currently up.
func (m *ConnectionManager) IsConnected() bool {
	return m.State() == domain.StateConnected
}

// State returns the current connection state.
func (m *ConnectionManager) State() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Attempts returns the number of retries consumed since the last successful
// connect.
func (m *ConnectionManager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Emit sends a named event over the live connection. While disconnected it
// returns ErrNotConnected, or ErrRetryExhausted once the retry budget is
// spent; callers treat both as soft failures, but only the latter warrants a
// persistent warning.
func (m *ConnectionManager) Emit(event string, payload any) error {
	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	if conn == nil {
		if state == domain.StateFailed {
			return apperrors.ErrRetryExhausted
		}
		return apperrors.ErrNotConnected
	}
	return conn.Emit(event, payload)
}

func (m *ConnectionManager) dial(gen uint64, token string) {
	conn, err := m.transport.Dial(context.Background(), token)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		attempt := m.attempts
		m.mu.Unlock()
		m.logger.Warn("dial failed", "error", err, "attempt", attempt)
		m.handleLoss(gen)
		return
	}

	m.conn = conn
	m.state = domain.StateConnected
	m.attempts = 0
	m.mu.Unlock()

	m.logger.Info("connected")
	m.bus.Publish(domain.Event{Kind: domain.EventConnected})

	go m.readLoop(gen, conn)
}

func (m *ConnectionManager) readLoop(gen uint64, conn ports.Conn) {
	for ev := range conn.Events() {
		switch ev.Name {
		case ports.WireDisconnect, ports.WireConnectError:
			// Explicit server-side close; the channel drains below.
			_ = conn.Close()
		default:
			m.deliver(ev)
		}
	}
	m.handleLoss(gen)
}

// deliver decodes one wire frame and fans it out on the bus.
func (m *ConnectionManager) deliver(ev ports.TransportEvent) {
	switch ev.Name {
	case ports.WireNotification:
		var n domain.Notification
		if err := json.Unmarshal(ev.Data, &n); err != nil {
			m.logger.Warn("bad notification frame", "error", err)
			return
		}
		m.bus.Publish(domain.Event{Kind: domain.EventNotification, Notification: &n})

	case ports.WireNewMessage:
		var msg domain.Message
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			m.logger.Warn("bad message frame", "error", err)
			return
		}
		m.bus.Publish(domain.Event{Kind: domain.EventMessage, Message: &msg})

	case ports.WireUserTyping:
		var sig domain.TypingSignal
		if err := json.Unmarshal(ev.Data, &sig); err != nil {
			m.logger.Warn("bad typing frame", "error", err)
			return
		}
		m.bus.Publish(domain.Event{Kind: domain.EventTyping, Typing: &sig})

	default:
		m.logger.Debug("ignoring unknown frame", "event", ev.Name)
	}
}

// handleLoss reacts to a dropped connection or a failed dial: it publishes
// the disconnect and either schedules a retry or gives up.
func (m *ConnectionManager) handleLoss(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state == domain.StateDisconnected {
		// A Disconnect or newer Connect already took over.
		m.mu.Unlock()
		return
	}
	m.conn = nil

	if m.attempts >= m.maxAttempts {
		m.state = domain.StateFailed
		m.mu.Unlock()
		m.logger.Error("retry budget exhausted", "attempts", m.maxAttempts)
		m.bus.Publish(domain.Event{Kind: domain.EventDisconnected, Reason: domain.DisconnectExhausted})
		return
	}

	m.attempts++
	attempt := m.attempts
	m.state = domain.StateReconnecting
	delay := m.baseDelay * time.Duration(attempt)
	m.retryTimer = time.AfterFunc(delay, func() { m.retry(gen) })
	m.mu.Unlock()

	m.logger.Warn("connection lost, retry scheduled", "attempt", attempt, "delay", delay)
	m.bus.Publish(domain.Event{Kind: domain.EventDisconnected, Reason: domain.DisconnectServer})
}

// retry fires when the backoff timer elapses. The credential is re-checked:
// if the session ended in the meantime the chain stops silently.
func (m *ConnectionManager) retry(gen uint64) {
	m.mu.Lock()
	if gen != m.gen || m.state != domain.StateReconnecting {
		m.mu.Unlock()
		return
	}

	token, ok := m.tokens.Token()
	if !ok {
		m.state = domain.StateDisconnected
		m.attempts = 0
		m.mu.Unlock()
		m.logger.Info("credential gone, abandoning retry")
		return
	}
	m.mu.Unlock()

	// State stays Reconnecting while the retry dial is in flight.
	m.dial(gen, token)
}
