package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gatherly/dashboard-sync/internal/core/domain"
	apperrors "github.com/gatherly/dashboard-sync/internal/core/errors"
	"github.com/gatherly/dashboard-sync/internal/core/mocks"
	"github.com/gatherly/dashboard-sync/internal/core/ports"
	"github.com/gatherly/dashboard-sync/internal/core/services"
)

func chatFixtures() []domain.Chat {
	return []domain.Chat{
		{ID: 1, ParticipantLabel: "Ana Vendor", SubjectLabel: "Wedding DJ"},
		{ID: 2, ParticipantLabel: "Blue Catering", SubjectLabel: "Office party"},
	}
}

func newController(t *testing.T, api ports.ChatAPI) (*services.ChatSessionController, *recordingEmitter, *services.EventBus) {
	t.Helper()
	emitter := &recordingEmitter{}
	bus := services.NewEventBus(testLogger())
	typing := services.NewTypingIndicatorCoordinator(emitter, bus, 50*time.Millisecond, testLogger())
	c := services.NewChatSessionController(api, emitter, typing, bus, testLogger())
	return c, emitter, bus
}

func TestChatSessionController_ListChats(t *testing.T) {
	ctx := context.Background()

	t.Run("caches the fetched list", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, _, _ := newController(t, api)

		api.On("ListChats", ctx).Return(chatFixtures(), nil)

		got, err := c.ListChats(ctx)

		require.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, got, c.Chats())
	})

	t.Run("fetch failure leaves the cache usable", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, _, _ := newController(t, api)

		api.On("ListChats", ctx).Return(nil, errors.New("502"))

		_, err := c.ListChats(ctx)

		assert.Error(t, err)
		assert.Empty(t, c.Chats())
	})
}

func TestChatSessionController_EnsureChat(t *testing.T) {
	ctx := context.Background()

	t.Run("refetches once for a chat missing from the cache", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, _, _ := newController(t, api)

		// Deep link into a chat created after the first fetch.
		api.On("ListChats", ctx).Return(chatFixtures()[:1], nil).Once()
		_, err := c.ListChats(ctx)
		require.NoError(t, err)

		api.On("ListChats", ctx).Return(chatFixtures(), nil).Once()

		chat, err := c.EnsureChat(ctx, 2)

		require.NoError(t, err)
		assert.Equal(t, int64(2), chat.ID)
		api.AssertNumberOfCalls(t, "ListChats", 2)
	})

	t.Run("second miss is not-found, never a loop", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, _, _ := newController(t, api)

		api.On("ListChats", ctx).Return(chatFixtures(), nil)

		_, err := c.EnsureChat(ctx, 42)

		assert.ErrorIs(t, err, apperrors.ErrChatNotFound)
		api.AssertNumberOfCalls(t, "ListChats", 1)
	})
}

func TestChatSessionController_SelectChat(t *testing.T) {
	ctx := context.Background()

	t.Run("runs history, join, mark-read in order", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, emitter, _ := newController(t, api)

		history := []domain.Message{
			{ID: 10, ChatID: 1, SenderID: 5, SenderRole: domain.RoleProvider, Body: "hello"},
		}
		api.On("Messages", ctx, int64(1), mock.AnythingOfType("ports.MessagePage")).Return(history, nil)
		api.On("MarkRead", ctx, int64(1)).Return(nil)

		require.NoError(t, c.SelectChat(ctx, chatFixtures()[0]))

		assert.Equal(t, []string{ports.WireJoin}, emitter.events())
		assert.Len(t, c.Messages(), 1)
		active, ok := c.ActiveChat()
		require.True(t, ok)
		assert.Equal(t, int64(1), active.ID)
		api.AssertExpectations(t)
	})

	t.Run("leave previous strictly before join next", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, emitter, _ := newController(t, api)

		api.On("Messages", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Message{}, nil)
		api.On("MarkRead", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, c.SelectChat(ctx, chatFixtures()[0]))
		require.NoError(t, c.SelectChat(ctx, chatFixtures()[1]))

		assert.Equal(t, []string{ports.WireJoin, ports.WireLeave, ports.WireJoin}, emitter.events())
	})

	t.Run("closing the window leaves exactly once", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, emitter, _ := newController(t, api)

		api.On("Messages", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Message{}, nil)
		api.On("MarkRead", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, c.SelectChat(ctx, chatFixtures()[1]))
		c.Close()
		c.Close()

		assert.Equal(t, 1, emitter.count(ports.WireLeave))
		_, ok := c.ActiveChat()
		assert.False(t, ok)
	})

	t.Run("re-selecting the active chat is a local no-op", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, emitter, _ := newController(t, api)

		api.On("Messages", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Message{}, nil)
		api.On("MarkRead", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, c.SelectChat(ctx, chatFixtures()[0]))
		require.NoError(t, c.SelectChat(ctx, chatFixtures()[0]))

		assert.Equal(t, 1, emitter.count(ports.WireJoin))
		api.AssertNumberOfCalls(t, "Messages", 1)
	})

	t.Run("history failure still joins and Refresh recovers", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, emitter, _ := newController(t, api)

		api.On("Messages", mock.Anything, int64(1), mock.Anything).Return(nil, errors.New("504")).Once()
		api.On("MarkRead", mock.Anything, int64(1)).Return(nil)

		require.NoError(t, c.SelectChat(ctx, chatFixtures()[0]))

		assert.Empty(t, c.Messages())
		assert.Equal(t, 1, emitter.count(ports.WireJoin), "live traffic must still flow")

		api.On("Messages", mock.Anything, int64(1), mock.Anything).
			Return([]domain.Message{{ID: 11, ChatID: 1, Body: "recovered"}}, nil).Once()

		require.NoError(t, c.Refresh(ctx))
		assert.Len(t, c.Messages(), 1)
	})

	t.Run("refresh without a selection is rejected", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, _, _ := newController(t, api)

		assert.ErrorIs(t, c.Refresh(ctx), apperrors.ErrNoActiveChat)
	})
}

func TestChatSessionController_OnLiveMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("appends to the active conversation", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, _, bus := newController(t, api)

		api.On("ListChats", mock.Anything).Return(chatFixtures(), nil)
		api.On("Messages", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Message{}, nil)
		api.On("MarkRead", mock.Anything, mock.Anything).Return(nil)

		_, err := c.ListChats(ctx)
		require.NoError(t, err)
		require.NoError(t, c.SelectChat(ctx, chatFixtures()[0]))

		c.Attach()
		defer c.Detach()

		sentAt := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
		bus.Publish(domain.Event{Kind: domain.EventMessage, Message: &domain.Message{
			ID: 20, ChatID: 1, SenderID: 5, Body: "see you saturday", SentAt: sentAt,
		}})

		require.Len(t, c.Messages(), 1)
		assert.Equal(t, "see you saturday", c.Messages()[0].Body)

		chats := c.Chats()
		assert.Equal(t, "see you saturday", chats[0].LastMessagePreview)
		require.NotNil(t, chats[0].LastMessageAt)
		assert.Equal(t, sentAt, *chats[0].LastMessageAt)
	})

	t.Run("message for a closed chat still updates the preview", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, _, _ := newController(t, api)

		api.On("ListChats", mock.Anything).Return(chatFixtures(), nil)
		api.On("Messages", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Message{}, nil)
		api.On("MarkRead", mock.Anything, mock.Anything).Return(nil)

		_, err := c.ListChats(ctx)
		require.NoError(t, err)
		require.NoError(t, c.SelectChat(ctx, chatFixtures()[0]))

		c.OnLiveMessage(domain.Message{ID: 21, ChatID: 2, Body: "quote attached"})

		assert.Empty(t, c.Messages(), "active conversation untouched")
		assert.Equal(t, "quote attached", c.Chats()[1].LastMessagePreview)
	})
}

func TestChatSessionController_SendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects whitespace-only body without a network call", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, _, _ := newController(t, api)

		_, err := c.SendMessage(ctx, 1, "   \t\n")

		assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)
		api.AssertNotCalled(t, "SendMessage")
	})

	t.Run("appends the canonical server message and clears typing", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, emitter, _ := newController(t, api)

		api.On("ListChats", mock.Anything).Return(chatFixtures(), nil)
		api.On("Messages", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Message{}, nil)
		api.On("MarkRead", mock.Anything, mock.Anything).Return(nil)

		_, err := c.ListChats(ctx)
		require.NoError(t, err)
		require.NoError(t, c.SelectChat(ctx, chatFixtures()[0]))

		canonical := &domain.Message{ID: 30, ChatID: 1, SenderID: 7, Body: "confirmed!"}
		api.On("SendMessage", ctx, int64(1), "confirmed!").Return(canonical, nil)

		got, err := c.SendMessage(ctx, 1, "confirmed!")

		require.NoError(t, err)
		assert.Equal(t, canonical, got)
		require.Len(t, c.Messages(), 1)
		assert.Equal(t, int64(30), c.Messages()[0].ID)
		assert.Equal(t, "confirmed!", c.Chats()[0].LastMessagePreview)
		// Sending implies the user stopped typing.
		assert.Zero(t, emitter.count(ports.WireStartTyping))
	})

	t.Run("remote failure surfaces to the caller", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, _, _ := newController(t, api)

		remoteErr := errors.New("500")
		api.On("SendMessage", ctx, int64(1), "hello").Return(nil, remoteErr)

		_, err := c.SendMessage(ctx, 1, "hello")

		assert.ErrorIs(t, err, remoteErr)
		assert.Empty(t, c.Messages())
	})
}

func TestChatSessionController_MarkRead(t *testing.T) {
	ctx := context.Background()

	t.Run("failure is logged, never surfaced", func(t *testing.T) {
		api := mocks.NewMockChatAPI()
		c, _, _ := newController(t, api)

		api.On("Messages", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Message{}, nil)
		api.On("MarkRead", mock.Anything, int64(1)).Return(errors.New("503"))

		assert.NotPanics(t, func() {
			require.NoError(t, c.SelectChat(ctx, chatFixtures()[0]))
			c.MarkRead(ctx)
		})
	})
}
