package socket_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/dashboard-sync/internal/adapters/secondary/socket"
	"github.com/gatherly/dashboard-sync/internal/core/ports"
)

type wireFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// testServer upgrades one connection and relays frames through channels.
type testServer struct {
	*httptest.Server
	authHeader chan string
	inbound    chan wireFrame
	outbound   chan wireFrame
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	upgrader := websocket.Upgrader{}
	s := &testServer{
		authHeader: make(chan string, 1),
		inbound:    make(chan wireFrame, 16),
		outbound:   make(chan wireFrame, 16),
	}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.authHeader <- r.Header.Get("Authorization")

		ws, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer ws.Close()

		go func() {
			for f := range s.outbound {
				if err := ws.WriteJSON(f); err != nil {
					return
				}
			}
		}()

		for {
			var f wireFrame
			if err := ws.ReadJSON(&f); err != nil {
				return
			}
			s.inbound <- f
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *testServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTransport_Dial(t *testing.T) {
	t.Run("sends the bearer token on the handshake", func(t *testing.T) {
		server := newTestServer(t)
		transport := socket.NewTransport(server.wsURL(), discardLogger())

		conn, err := transport.Dial(context.Background(), "tok-123")
		require.NoError(t, err)
		defer conn.Close()

		select {
		case auth := <-server.authHeader:
			assert.Equal(t, "Bearer tok-123", auth)
		case <-time.After(time.Second):
			t.Fatal("handshake never reached the server")
		}
	})

	t.Run("handshake failure returns an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusUnauthorized)
		}))
		defer server.Close()

		transport := socket.NewTransport("ws"+strings.TrimPrefix(server.URL, "http"), discardLogger())

		_, err := transport.Dial(context.Background(), "tok")
		assert.Error(t, err)
	})
}

func TestConn_Frames(t *testing.T) {
	t.Run("emit reaches the server as a named frame", func(t *testing.T) {
		server := newTestServer(t)
		transport := socket.NewTransport(server.wsURL(), discardLogger())

		conn, err := transport.Dial(context.Background(), "tok")
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.Emit(ports.WireJoin, map[string]int64{"chatId": 4}))

		select {
		case f := <-server.inbound:
			assert.Equal(t, ports.WireJoin, f.Event)
			assert.JSONEq(t, `{"chatId":4}`, string(f.Data))
		case <-time.After(time.Second):
			t.Fatal("frame never arrived")
		}
	})

	t.Run("server frames surface on the events channel", func(t *testing.T) {
		server := newTestServer(t)
		transport := socket.NewTransport(server.wsURL(), discardLogger())

		conn, err := transport.Dial(context.Background(), "tok")
		require.NoError(t, err)
		defer conn.Close()

		server.outbound <- wireFrame{
			Event: ports.WireNewMessage,
			Data:  json.RawMessage(`{"id":7,"chatId":4,"body":"hi"}`),
		}

		select {
		case ev := <-conn.Events():
			assert.Equal(t, ports.WireNewMessage, ev.Name)
			assert.JSONEq(t, `{"id":7,"chatId":4,"body":"hi"}`, string(ev.Data))
		case <-time.After(time.Second):
			t.Fatal("event never delivered")
		}
	})

	t.Run("server close drains the events channel", func(t *testing.T) {
		server := newTestServer(t)
		transport := socket.NewTransport(server.wsURL(), discardLogger())

		conn, err := transport.Dial(context.Background(), "tok")
		require.NoError(t, err)

		server.CloseClientConnections()

		select {
		case _, open := <-conn.Events():
			assert.False(t, open, "events channel must close on connection loss")
		case <-time.After(2 * time.Second):
			t.Fatal("events channel never closed")
		}
	})

	t.Run("emit after close is rejected", func(t *testing.T) {
		server := newTestServer(t)
		transport := socket.NewTransport(server.wsURL(), discardLogger())

		conn, err := transport.Dial(context.Background(), "tok")
		require.NoError(t, err)

		require.NoError(t, conn.Close())
		assert.Error(t, conn.Emit(ports.WireLeave, map[string]int64{"chatId": 4}))
	})
}
