package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gatherly/dashboard-sync/internal/core/domain"
	"github.com/gatherly/dashboard-sync/internal/core/ports"
)

// MockNotificationStore is a mock implementation of ports.NotificationStore
type MockNotificationStore struct {
	mock.Mock
}

func NewMockNotificationStore() *MockNotificationStore {
	return &MockNotificationStore{}
}

func (m *MockNotificationStore) List(ctx context.Context) ([]domain.Notification, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Notification), args.Error(1)
}

func (m *MockNotificationStore) UnreadCount(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationStore) MarkRead(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockNotificationStore) MarkAllRead(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockChatAPI is a mock implementation of ports.ChatAPI
type MockChatAPI struct {
	mock.Mock
}

func NewMockChatAPI() *MockChatAPI {
	return &MockChatAPI{}
}

func (m *MockChatAPI) ListChats(ctx context.Context) ([]domain.Chat, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chat), args.Error(1)
}

func (m *MockChatAPI) Messages(ctx context.Context, chatID int64, page ports.MessagePage) ([]domain.Message, error) {
	args := m.Called(ctx, chatID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockChatAPI) SendMessage(ctx context.Context, chatID int64, body string) (*domain.Message, error) {
	args := m.Called(ctx, chatID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockChatAPI) MarkRead(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

// MockTransport is a mock implementation of ports.Transport
type MockTransport struct {
	mock.Mock
}

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) Dial(ctx context.Context, token string) (ports.Conn, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.Conn), args.Error(1)
}

// MockConn is a mock implementation of ports.Conn
type MockConn struct {
	mock.Mock
}

func NewMockConn() *MockConn {
	return &MockConn{}
}

func (m *MockConn) Emit(event string, payload any) error {
	args := m.Called(event, payload)
	return args.Error(0)
}

func (m *MockConn) Events() <-chan ports.TransportEvent {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(<-chan ports.TransportEvent)
}

func (m *MockConn) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockTokenSource is a mock implementation of ports.TokenSource
type MockTokenSource struct {
	mock.Mock
}

func NewMockTokenSource() *MockTokenSource {
	return &MockTokenSource{}
}

func (m *MockTokenSource) Token() (string, bool) {
	args := m.Called()
	return args.String(0), args.Bool(1)
}
