package ports

import (
	"context"

	"github.com/gatherly/dashboard-sync/internal/core/domain"
)

// NotificationStore is the remote persisted-notification API. The server is
// the system of record; nothing here is cached durably on the client.
type NotificationStore interface {
	List(ctx context.Context) ([]domain.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
}

// MessagePage selects one page of chat history.
type MessagePage struct {
	Limit  int
	Offset int
}

// ChatAPI is the remote chat REST API.
type ChatAPI interface {
	ListChats(ctx context.Context) ([]domain.Chat, error)
	Messages(ctx context.Context, chatID int64, page MessagePage) ([]domain.Message, error)
	SendMessage(ctx context.Context, chatID int64, body string) (*domain.Message, error)
	MarkRead(ctx context.Context, chatID int64) error
}
