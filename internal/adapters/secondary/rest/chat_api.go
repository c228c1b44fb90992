package rest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gatherly/dashboard-sync/internal/core/domain"
	"github.com/gatherly/dashboard-sync/internal/core/ports"
)

// ChatAPI talks to the chat REST API.
type ChatAPI struct {
	client *Client
}

var _ ports.ChatAPI = (*ChatAPI)(nil)

// NewChatAPI creates a chat API backed by the shared REST client.
func NewChatAPI(client *Client) *ChatAPI {
	return &ChatAPI{client: client}
}

// ListChats fetches the user's chat list.
func (a *ChatAPI) ListChats(ctx context.Context) ([]domain.Chat, error) {
	var out []domain.Chat
	if err := a.client.do(ctx, http.MethodGet, "/api/v1/chats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Messages fetches one page of a chat's message history.
func (a *ChatAPI) Messages(ctx context.Context, chatID int64, page ports.MessagePage) ([]domain.Message, error) {
	q := url.Values{}
	if page.Limit > 0 {
		q.Set("limit", strconv.Itoa(page.Limit))
	}
	if page.Offset > 0 {
		q.Set("offset", strconv.Itoa(page.Offset))
	}
	path := fmt.Sprintf("/api/v1/chats/%d/messages", chatID)
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out []domain.Message
	if err := a.client.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts a message and returns the canonical stored copy.
func (a *ChatAPI) SendMessage(ctx context.Context, chatID int64, body string) (*domain.Message, error) {
	payload := struct {
		Body string `json:"body"`
	}{Body: body}

	var out domain.Message
	path := fmt.Sprintf("/api/v1/chats/%d/messages", chatID)
	if err := a.client.do(ctx, http.MethodPost, path, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkRead sends the read receipt for a chat.
func (a *ChatAPI) MarkRead(ctx context.Context, chatID int64) error {
	path := fmt.Sprintf("/api/v1/chats/%d/read", chatID)
	return a.client.do(ctx, http.MethodPut, path, nil, nil)
}
