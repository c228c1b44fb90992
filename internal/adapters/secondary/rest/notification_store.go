package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gatherly/dashboard-sync/internal/core/domain"
	"github.com/gatherly/dashboard-sync/internal/core/ports"
)

// NotificationStore talks to the persisted-notification REST API.
type NotificationStore struct {
	client *Client
}

var _ ports.NotificationStore = (*NotificationStore)(nil)

// NewNotificationStore creates a store backed by the shared REST client.
func NewNotificationStore(client *Client) *NotificationStore {
	return &NotificationStore{client: client}
}

// List fetches the persisted notification history.
func (s *NotificationStore) List(ctx context.Context) ([]domain.Notification, error) {
	var out []domain.Notification
	if err := s.client.do(ctx, http.MethodGet, "/api/v1/notifications", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UnreadCount fetches the authoritative unread total from the server.
func (s *NotificationStore) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := s.client.do(ctx, http.MethodGet, "/api/v1/notifications/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// MarkRead marks one stored notification read.
func (s *NotificationStore) MarkRead(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/v1/notifications/%d/read", id)
	return s.client.do(ctx, http.MethodPatch, path, nil, nil)
}

// MarkAllRead marks every stored notification read.
func (s *NotificationStore) MarkAllRead(ctx context.Context) error {
	return s.client.do(ctx, http.MethodPatch, "/api/v1/notifications/read-all", nil, nil)
}
