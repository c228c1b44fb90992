package http

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gatherly/dashboard-sync/internal/core/domain"
	apperrors "github.com/gatherly/dashboard-sync/internal/core/errors"
)

// ConnectionInfo exposes the connection state the status endpoints report
type ConnectionInfo interface {
	State() domain.ConnectionState
	Attempts() int
}

// NotificationView exposes notification snapshots and actions
type NotificationView interface {
	Notifications() []domain.Notification
	UnreadCount() int
	MarkAsRead(ctx context.Context, id int64) error
	MarkAllAsRead(ctx context.Context) error
}

// ChatView exposes the cached chat list
type ChatView interface {
	Chats() []domain.Chat
	ActiveChat() (domain.Chat, bool)
}

// StatusHandler serves local snapshots of the sync core to UI surfaces
type StatusHandler struct {
	conn          ConnectionInfo
	notifications NotificationView
	chats         ChatView
	startTime     time.Time
	version       string
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(conn ConnectionInfo, notifications NotificationView, chats ChatView, version string) *StatusHandler {
	return &StatusHandler{
		conn:          conn,
		notifications: notifications,
		chats:         chats,
		startTime:     time.Now(),
		version:       version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	Version    string `json:"version,omitempty"`
	Uptime     string `json:"uptime,omitempty"`
	Goroutines int    `json:"goroutines,omitempty"`
}

// StatusResponse represents the connection and inbox snapshot
type StatusResponse struct {
	ConnectionState string `json:"connectionState"`
	RetryAttempts   int    `json:"retryAttempts"`
	UnreadCount     int    `json:"unreadCount"`
	ActiveChatID    *int64 `json:"activeChatId,omitempty"`
}

// HandleHealth handles liveness requests
func (h *StatusHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Version:    h.version,
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	}

	WriteJSON(w, http.StatusOK, response)
}

// HandleStatus returns the connection state and unread snapshot
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{
		ConnectionState: h.conn.State().String(),
		RetryAttempts:   h.conn.Attempts(),
		UnreadCount:     h.notifications.UnreadCount(),
	}

	if active, ok := h.chats.ActiveChat(); ok {
		id := active.ID
		response.ActiveChatID = &id
	}

	WriteJSON(w, http.StatusOK, response)
}

// HandleListNotifications returns the local notification snapshot
func (h *StatusHandler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	WriteList(w, h.notifications.Notifications())
}

// HandleMarkNotificationRead marks a single notification as read
func (h *StatusHandler) HandleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid notification id", "INVALID_ID")
		return
	}

	if err := h.notifications.MarkAsRead(r.Context(), id); err != nil {
		if errors.Is(err, apperrors.ErrNotificationNotFound) {
			WriteError(w, http.StatusNotFound, "notification not found", "NOT_FOUND")
			return
		}
		WriteError(w, http.StatusBadGateway, "failed to mark notification as read", "UPSTREAM_ERROR")
		return
	}

	WriteNoContent(w)
}

// HandleMarkAllNotificationsRead marks every notification as read
func (h *StatusHandler) HandleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkAllAsRead(r.Context()); err != nil {
		WriteError(w, http.StatusBadGateway, "failed to mark notifications as read", "UPSTREAM_ERROR")
		return
	}

	WriteNoContent(w)
}

// HandleListChats returns the cached chat list
func (h *StatusHandler) HandleListChats(w http.ResponseWriter, r *http.Request) {
	WriteList(w, h.chats.Chats())
}

// RegisterRoutes registers the API routes on the given router
func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.HandleStatus)
	r.Get("/notifications", h.HandleListNotifications)
	r.Post("/notifications/{id}/read", h.HandleMarkNotificationRead)
	r.Post("/notifications/read-all", h.HandleMarkAllNotificationsRead)
	r.Get("/chats", h.HandleListChats)
}
