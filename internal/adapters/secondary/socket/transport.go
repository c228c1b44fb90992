package socket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/gatherly/dashboard-sync/internal/core/errors"
	"github.com/gatherly/dashboard-sync/internal/core/ports"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxFrameSize     = 32 * 1024
	handshakeTimeout = 10 * time.Second
	sendBuffer       = 64
	eventBuffer      = 64
)

// frame is the named-event JSON envelope carried on the wire, both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Transport dials the realtime server over a websocket. It implements
// ports.Transport; the connection manager owns when to dial and when to hang
// up.
type Transport struct {
	url    string
	dialer *websocket.Dialer
	logger *slog.Logger
}

var _ ports.Transport = (*Transport)(nil)

// NewTransport creates a websocket transport for the given ws:// or wss:// URL.
func NewTransport(url string, logger *slog.Logger) *Transport {
	return &Transport{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
		logger: logger.With("component", "socket_transport"),
	}
}

// Dial opens a connection authenticated with the bearer token. A non-nil
// error means the handshake never completed.
func (t *Transport) Dial(ctx context.Context, token string) (ports.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := t.dialer.DialContext(ctx, t.url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial realtime server: %w", err)
	}

	c := &conn{
		ws:     ws,
		events: make(chan ports.TransportEvent, eventBuffer),
		send:   make(chan frame, sendBuffer),
		done:   make(chan struct{}),
		logger: t.logger,
	}
	go c.readPump()
	go c.writePump()
	return c, nil
}

// conn wraps one live websocket. The read pump feeds the events channel and
// closes it when the connection dies, which is how the manager learns about
// the loss.
type conn struct {
	ws     *websocket.Conn
	events chan ports.TransportEvent
	send   chan frame
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

var _ ports.Conn = (*conn)(nil)

func (c *conn) Emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", event, err)
	}

	select {
	case <-c.done:
		return apperrors.ErrAlreadyClosed
	default:
	}

	select {
	case c.send <- frame{Event: event, Data: data}:
		return nil
	case <-c.done:
		return apperrors.ErrAlreadyClosed
	}
}

func (c *conn) Events() <-chan ports.TransportEvent {
	return c.events
}

func (c *conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
	return nil
}

// readPump pumps frames from the websocket into the events channel.
func (c *conn) readPump() {
	defer func() {
		_ = c.Close()
		close(c.events)
	}()

	c.ws.SetReadLimit(maxFrameSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			c.logger.Warn("unparseable frame", "error", err)
			continue
		}

		select {
		case c.events <- ports.TransportEvent{Name: f.Event, Data: f.Data}:
		case <-c.done:
			return
		}
	}
}

// writePump serializes outbound frames and keepalive pings onto the socket.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case f := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(f); err != nil {
				c.logger.Warn("websocket write error", "event", f.Event, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
