package services

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gatherly/dashboard-sync/internal/core/domain"
	"github.com/gatherly/dashboard-sync/internal/core/ports"
)

const defaultQuietPeriod = time.Second

// TypingIndicatorCoordinator turns raw composer keystrokes into debounced
// start/stop typing signals and tracks which peers are currently typing in
// each chat.
//
// Outgoing: the first keystroke for a chat emits start_typing; a quiet-period
// timer restarted on every keystroke emits stop_typing once the user goes
// silent. Sending a message or leaving the chat stops immediately.
//
// Incoming: per-chat peer sets, purely presentational. On reconnect the sets
// reset to empty rather than replay; a typing signal older than the gap has
// no remaining meaning, and a peer that dropped without a stop signal must
// not be shown typing forever.
type TypingIndicatorCoordinator struct {
	emitter ports.Emitter
	bus     *EventBus
	logger  *slog.Logger
	quiet   time.Duration

	mu         sync.Mutex
	subs       []Subscription
	timers     map[int64]*time.Timer           // chats this client is typing in
	peers      map[int64]map[int64]struct{}    // chatID -> peer userIDs typing
	peerExpiry map[int64]map[int64]*time.Timer // guards against peers that never send a stop
}

// NewTypingIndicatorCoordinator creates a coordinator. quiet <= 0 selects the
// one-second default.
func NewTypingIndicatorCoordinator(emitter ports.Emitter, bus *EventBus, quiet time.Duration, logger *slog.Logger) *TypingIndicatorCoordinator {
	if quiet <= 0 {
		quiet = defaultQuietPeriod
	}
	return &TypingIndicatorCoordinator{
		emitter:    emitter,
		bus:        bus,
		logger:     logger.With("component", "typing"),
		quiet:      quiet,
		timers:     make(map[int64]*time.Timer),
		peers:      make(map[int64]map[int64]struct{}),
		peerExpiry: make(map[int64]map[int64]*time.Timer),
	}
}

// Attach subscribes to peer typing signals and to reconnects, which reset the
// peer sets. Attaching an already-attached coordinator is a no-op.
func (t *TypingIndicatorCoordinator) Attach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.subs) > 0 {
		return
	}
	t.subs = append(t.subs,
		t.bus.Subscribe(domain.EventTyping, t.onBusEvent),
		t.bus.Subscribe(domain.EventConnected, t.onConnected),
	)
}

// Detach removes the bus subscriptions and stops any pending local signal.
func (t *TypingIndicatorCoordinator) Detach() {
	t.mu.Lock()
	subs := t.subs
	t.subs = nil
	t.mu.Unlock()

	for _, sub := range subs {
		t.bus.Unsubscribe(sub)
	}

	t.mu.Lock()
	chats := make([]int64, 0, len(t.timers))
	for chatID := range t.timers {
		chats = append(chats, chatID)
	}
	t.mu.Unlock()

	for _, chatID := range chats {
		t.StopTyping(chatID)
	}
}

func (t *TypingIndicatorCoordinator) onBusEvent(e domain.Event) {
	if e.Typing == nil {
		return
	}
	t.OnTypingSignal(*e.Typing)
}

func (t *TypingIndicatorCoordinator) onConnected(domain.Event) {
	t.mu.Lock()
	for _, timers := range t.peerExpiry {
		for _, timer := range timers {
			timer.Stop()
		}
	}
	t.peers = make(map[int64]map[int64]struct{})
	t.peerExpiry = make(map[int64]map[int64]*time.Timer)
	t.mu.Unlock()
}

// Keystroke records composer activity for a chat. The first keystroke emits
// start_typing; every keystroke restarts the quiet-period timer.
func (t *TypingIndicatorCoordinator) Keystroke(chatID int64) {
	t.mu.Lock()
	timer, active := t.timers[chatID]
	if active {
		timer.Reset(t.quiet)
		t.mu.Unlock()
		return
	}
	t.timers[chatID] = time.AfterFunc(t.quiet, func() { t.quietElapsed(chatID) })
	t.mu.Unlock()

	if err := t.emitter.Emit(ports.WireStartTyping, roomPayload{ChatID: chatID}); err != nil {
		t.logger.Debug("start_typing emit failed", "chat_id", chatID, "error", err)
	}
}

// quietElapsed fires when the user stopped typing for a full quiet period.
func (t *TypingIndicatorCoordinator) quietElapsed(chatID int64) {
	t.mu.Lock()
	_, active := t.timers[chatID]
	delete(t.timers, chatID)
	t.mu.Unlock()

	if !active {
		return
	}
	if err := t.emitter.Emit(ports.WireStopTyping, roomPayload{ChatID: chatID}); err != nil {
		t.logger.Debug("stop_typing emit failed", "chat_id", chatID, "error", err)
	}
}

// StopTyping ends the local typing state for a chat immediately, emitting
// stop_typing if a start was outstanding. Called when the user sends the
// message or switches away from the chat.
func (t *TypingIndicatorCoordinator) StopTyping(chatID int64) {
	t.mu.Lock()
	timer, active := t.timers[chatID]
	if active {
		timer.Stop()
		delete(t.timers, chatID)
	}
	t.mu.Unlock()

	if !active {
		return
	}
	if err := t.emitter.Emit(ports.WireStopTyping, roomPayload{ChatID: chatID}); err != nil {
		t.logger.Debug("stop_typing emit failed", "chat_id", chatID, "error", err)
	}
}

// OnTypingSignal updates the peer set for a chat from an incoming signal.
// A typing peer also gets a local expiry timer: if neither a stop signal nor
// a refreshed start arrives within the quiet period, the peer is dropped from
// the set, so a peer that disconnects mid-typing never sticks on screen.
func (t *TypingIndicatorCoordinator) OnTypingSignal(sig domain.TypingSignal) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sig.IsTyping {
		set := t.peers[sig.ChatID]
		if set == nil {
			set = make(map[int64]struct{})
			t.peers[sig.ChatID] = set
		}
		set[sig.UserID] = struct{}{}

		if timer, ok := t.peerExpiry[sig.ChatID][sig.UserID]; ok {
			timer.Reset(t.quiet)
			return
		}
		if t.peerExpiry[sig.ChatID] == nil {
			t.peerExpiry[sig.ChatID] = make(map[int64]*time.Timer)
		}
		chatID, userID := sig.ChatID, sig.UserID
		t.peerExpiry[chatID][userID] = time.AfterFunc(t.quiet, func() {
			t.OnTypingSignal(domain.TypingSignal{ChatID: chatID, UserID: userID})
		})
		return
	}

	t.removePeerLocked(sig.ChatID, sig.UserID)
}

func (t *TypingIndicatorCoordinator) removePeerLocked(chatID, userID int64) {
	if timer, ok := t.peerExpiry[chatID][userID]; ok {
		timer.Stop()
		delete(t.peerExpiry[chatID], userID)
		if len(t.peerExpiry[chatID]) == 0 {
			delete(t.peerExpiry, chatID)
		}
	}
	if set, ok := t.peers[chatID]; ok {
		delete(set, userID)
		if len(set) == 0 {
			delete(t.peers, chatID)
		}
	}
}

// TypingUsers returns the peers currently reported as typing in a chat,
// sorted for stable rendering.
func (t *TypingIndicatorCoordinator) TypingUsers(chatID int64) []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	set := t.peers[chatID]
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsTyping reports whether this client currently has an outstanding
// start_typing for the chat.
func (t *TypingIndicatorCoordinator) IsTyping(chatID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, active := t.timers[chatID]
	return active
}
