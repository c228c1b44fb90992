package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gatherly/dashboard-sync/internal/core/domain"
	apperrors "github.com/gatherly/dashboard-sync/internal/core/errors"
	"github.com/gatherly/dashboard-sync/internal/core/ports"
)

const defaultHistoryLimit = 50

// roomPayload addresses one chat room in outbound transport frames.
type roomPayload struct {
	ChatID int64 `json:"chatId"`
}

// ChatSessionController holds the state behind one open chat window: the
// cached chat list and the currently selected conversation. Selecting a chat
// always runs fetch history, join room, mark read, in that order; leaving a
// chat always emits exactly one leave for it, however the exit was triggered.
// A leaked join wastes server fan-out and leaks this client into other users'
// typing broadcasts, so room membership never outlives the window.
type ChatSessionController struct {
	api     ports.ChatAPI
	emitter ports.Emitter
	typing  *TypingIndicatorCoordinator
	bus     *EventBus
	logger  *slog.Logger

	mu       sync.Mutex
	sub      Subscription
	chats    []domain.Chat
	active   *domain.Chat
	messages []domain.Message
}

// NewChatSessionController creates a controller for one chat window.
func NewChatSessionController(
	api ports.ChatAPI,
	emitter ports.Emitter,
	typing *TypingIndicatorCoordinator,
	bus *EventBus,
	logger *slog.Logger,
) *ChatSessionController {
	return &ChatSessionController{
		api:     api,
		emitter: emitter,
		typing:  typing,
		bus:     bus,
		logger:  logger.With("component", "chat_session"),
	}
}

// Attach subscribes the controller to live message pushes. Attaching an
// already-attached controller is a no-op.
func (c *ChatSessionController) Attach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != (Subscription{}) {
		return
	}
	c.sub = c.bus.Subscribe(domain.EventMessage, c.onBusEvent)
}

// Detach removes the bus subscription and leaves any joined room.
func (c *ChatSessionController) Detach() {
	c.mu.Lock()
	sub := c.sub
	c.sub = Subscription{}
	c.mu.Unlock()

	c.bus.Unsubscribe(sub)
	c.Close()
}

func (c *ChatSessionController) onBusEvent(e domain.Event) {
	if e.Message == nil {
		return
	}
	c.OnLiveMessage(*e.Message)
}

// ListChats fetches the chat list from the remote store and replaces the
// cache.
func (c *ChatSessionController) ListChats(ctx context.Context) ([]domain.Chat, error) {
	chats, err := c.api.ListChats(ctx)
	if err != nil {
		c.logger.Warn("chat list load failed", "error", err)
		return nil, err
	}

	c.mu.Lock()
	c.chats = chats
	out := make([]domain.Chat, len(chats))
	copy(out, chats)
	c.mu.Unlock()
	return out, nil
}

// EnsureChat finds a chat by id, refetching the list once if it is absent
// (a brand-new chat reached via deep link may not be in the cache yet). It
// never loops: a second miss is ErrChatNotFound.
func (c *ChatSessionController) EnsureChat(ctx context.Context, chatID int64) (domain.Chat, error) {
	if chat, ok := c.lookup(chatID); ok {
		return chat, nil
	}
	if _, err := c.ListChats(ctx); err != nil {
		return domain.Chat{}, err
	}
	if chat, ok := c.lookup(chatID); ok {
		return chat, nil
	}
	return domain.Chat{}, apperrors.ErrChatNotFound
}

func (c *ChatSessionController) lookup(chatID int64) (domain.Chat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, chat := range c.chats {
		if chat.ID == chatID {
			return chat, true
		}
	}
	return domain.Chat{}, false
}

// SelectChat makes chat the active conversation: leave the previous room if
// any, fetch history, join the new room, send the read receipt. Selecting the
// already-active chat is a local no-op. A failed history fetch leaves the
// message list empty but still joins, so live traffic flows and a manual
// Refresh can recover.
func (c *ChatSessionController) SelectChat(ctx context.Context, chat domain.Chat) error {
	c.mu.Lock()
	if c.active != nil && c.active.ID == chat.ID {
		c.mu.Unlock()
		return nil
	}
	prev := c.active
	c.active = nil
	c.messages = nil
	c.mu.Unlock()

	if prev != nil {
		c.leaveRoom(prev.ID)
	}

	messages, err := c.api.Messages(ctx, chat.ID, ports.MessagePage{Limit: defaultHistoryLimit})
	if err != nil {
		c.logger.Warn("message history load failed", "chat_id", chat.ID, "error", err)
		messages = nil
	}

	if err := c.emitter.Emit(ports.WireJoin, roomPayload{ChatID: chat.ID}); err != nil {
		c.logger.Warn("join emit failed", "chat_id", chat.ID, "error", err)
	}

	c.mu.Lock()
	active := chat
	c.active = &active
	c.messages = messages
	c.mu.Unlock()

	c.MarkRead(ctx)
	return nil
}

// Close leaves the active room, if any. Safe to call repeatedly; only the
// first call after a select emits a leave.
func (c *ChatSessionController) Close() {
	c.mu.Lock()
	prev := c.active
	c.active = nil
	c.messages = nil
	c.mu.Unlock()

	if prev != nil {
		c.leaveRoom(prev.ID)
	}
}

func (c *ChatSessionController) leaveRoom(chatID int64) {
	if err := c.emitter.Emit(ports.WireLeave, roomPayload{ChatID: chatID}); err != nil {
		c.logger.Warn("leave emit failed", "chat_id", chatID, "error", err)
	}
	c.typing.StopTyping(chatID)
}

// OnLiveMessage folds a pushed message in: appended to the active list when
// it belongs to the open chat, and the list preview is updated either way so
// the chat list stays current for rooms that are not open.
func (c *ChatSessionController) OnLiveMessage(msg domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil && c.active.ID == msg.ChatID {
		c.messages = append(c.messages, msg)
	}

	for i := range c.chats {
		if c.chats[i].ID == msg.ChatID {
			sentAt := msg.SentAt
			c.chats[i].LastMessagePreview = msg.Body
			c.chats[i].LastMessageAt = &sentAt
			break
		}
	}
}

// SendMessage posts a message. Empty or whitespace-only bodies are rejected
// locally without a network call. On success the canonical server message is
// appended to the active list and local typing state is cleared, since
// sending implies the user stopped typing.
func (c *ChatSessionController) SendMessage(ctx context.Context, chatID int64, body string) (*domain.Message, error) {
	if err := domain.ValidateMessageBody(body); err != nil {
		return nil, err
	}

	msg, err := c.api.SendMessage(ctx, chatID, body)
	if err != nil {
		c.logger.Warn("send failed", "chat_id", chatID, "error", err)
		return nil, err
	}

	// OnLiveMessage appends to the active list and refreshes the preview.
	c.OnLiveMessage(*msg)
	c.typing.StopTyping(chatID)
	return msg, nil
}

// MarkRead sends the read receipt for the active chat. A failure is logged
// and never surfaced; it must not block sending or receiving.
func (c *ChatSessionController) MarkRead(ctx context.Context) {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if active == nil {
		return
	}
	if err := c.api.MarkRead(ctx, active.ID); err != nil {
		c.logger.Warn("read receipt failed", "chat_id", active.ID, "error", err)
	}
}

// Refresh re-fetches history for the active chat after a failed load.
func (c *ChatSessionController) Refresh(ctx context.Context) error {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()

	if active == nil {
		return apperrors.ErrNoActiveChat
	}

	messages, err := c.api.Messages(ctx, active.ID, ports.MessagePage{Limit: defaultHistoryLimit})
	if err != nil {
		c.logger.Warn("refresh failed", "chat_id", active.ID, "error", err)
		return err
	}

	c.mu.Lock()
	if c.active != nil && c.active.ID == active.ID {
		c.messages = messages
	}
	c.mu.Unlock()
	return nil
}

// ActiveChat returns the currently selected chat, if any.
func (c *ChatSessionController) ActiveChat() (domain.Chat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return domain.Chat{}, false
	}
	return *c.active, true
}

// Messages returns a copy of the active conversation's message list.
func (c *ChatSessionController) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Chats returns a copy of the cached chat list.
func (c *ChatSessionController) Chats() []domain.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Chat, len(c.chats))
	copy(out, c.chats)
	return out
}
