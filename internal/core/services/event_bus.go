package services

import (
	"log/slog"
	"sync"

	"github.com/gatherly/dashboard-sync/internal/core/domain"
)

// EventHandler receives one bus event. Handlers run synchronously in the
// publisher's goroutine, in registration order.
type EventHandler func(domain.Event)

// Subscription is an opaque handle for one registered handler. Subscribe
// issues it and Unsubscribe removes by it, so two components registering the
// same method of their type stay independent subscribers. The zero value
// refers to nothing and unsubscribes nothing.
type Subscription struct {
	kind domain.EventKind
	id   uint64
}

type subscriber struct {
	id      uint64
	handler EventHandler
}

// EventBus multiplexes connection events to any number of independently
// registered consumers. Each event kind keeps its own subscriber list.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[domain.EventKind][]subscriber
	nextID uint64
	logger *slog.Logger
}

// NewEventBus creates a new event bus.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		subs:   make(map[domain.EventKind][]subscriber),
		logger: logger.With("component", "event_bus"),
	}
}

// Subscribe registers handler for kind and returns the handle that removes
// it. Callers own the handle; attaching a component twice is the caller's
// guard (every service here keeps its handles and makes Attach a no-op when
// they exist).
func (b *EventBus) Subscribe(kind domain.EventKind, handler EventHandler) Subscription {
	if handler == nil {
		return Subscription{}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs[kind] = append(b.subs[kind], subscriber{id: b.nextID, handler: handler})
	return Subscription{kind: kind, id: b.nextID}
}

// Unsubscribe removes exactly the registration the handle refers to.
// A zero, stale, or already-removed handle is a no-op, never an error.
func (b *EventBus) Unsubscribe(sub Subscription) {
	if sub.id == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.kind]
	for i, s := range list {
		if s.id == sub.id {
			b.subs[sub.kind] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Publish invokes every handler registered for event.Kind, in registration
// order, in the calling goroutine. A panicking handler is recovered and
// logged so it cannot abort the fan-out for the remaining handlers.
func (b *EventBus) Publish(event domain.Event) {
	b.mu.RLock()
	// Copy so a handler can unsubscribe itself mid-fan-out.
	list := make([]subscriber, len(b.subs[event.Kind]))
	copy(list, b.subs[event.Kind])
	b.mu.RUnlock()

	for _, s := range list {
		b.dispatch(event, s)
	}
}

func (b *EventBus) dispatch(event domain.Event, s subscriber) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked",
				"event_kind", string(event.Kind),
				"panic", r,
			)
		}
	}()
	s.handler(event)
}

// SubscriberCount returns the number of handlers registered for kind.
func (b *EventBus) SubscriberCount(kind domain.EventKind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}
