package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gatherly/dashboard-sync/internal/core/domain"
	apperrors "github.com/gatherly/dashboard-sync/internal/core/errors"
	"github.com/gatherly/dashboard-sync/internal/core/ports"
)

// NotificationReconciler merges server-pushed notifications with the
// REST-fetched history into one deduplicated, insertion-ordered collection
// and tracks the unread count.
//
// The unread count is always re-fetched from the remote store rather than
// derived from the in-memory list: the local list is only ever a partial view,
// and another tab or device may mark entries read at any time. A locally
// incremented counter would drift the moment that happens.
type NotificationReconciler struct {
	store  ports.NotificationStore
	bus    *EventBus
	logger *slog.Logger

	mu     sync.Mutex
	sub    Subscription
	items  []domain.Notification
	unread int
}

// NewNotificationReconciler creates a reconciler backed by the remote store.
func NewNotificationReconciler(store ports.NotificationStore, bus *EventBus, logger *slog.Logger) *NotificationReconciler {
	return &NotificationReconciler{
		store:  store,
		bus:    bus,
		logger: logger.With("component", "notification_reconciler"),
	}
}

// Attach subscribes the reconciler to live notification pushes. Attaching an
// already-attached reconciler is a no-op; Detach must be called when the
// owning surface unmounts.
func (r *NotificationReconciler) Attach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != (Subscription{}) {
		return
	}
	r.sub = r.bus.Subscribe(domain.EventNotification, r.onBusEvent)
}

// Detach removes the bus subscription.
func (r *NotificationReconciler) Detach() {
	r.mu.Lock()
	sub := r.sub
	r.sub = Subscription{}
	r.mu.Unlock()

	r.bus.Unsubscribe(sub)
}

func (r *NotificationReconciler) onBusEvent(e domain.Event) {
	if e.Notification == nil {
		return
	}
	r.OnLivePush(context.Background(), *e.Notification)
}

// LoadHistory fetches the persisted notifications and folds them into the
// local collection. Stored entries win on the read flag; an un-persisted live
// entry that the history reveals to be stored collapses into one copy.
func (r *NotificationReconciler) LoadHistory(ctx context.Context) ([]domain.Notification, error) {
	stored, err := r.store.List(ctx)
	if err != nil {
		r.logger.Warn("history load failed", "error", err)
		return nil, err
	}

	r.mu.Lock()
	r.merge(stored)
	out := r.snapshotLocked()
	r.mu.Unlock()

	r.refreshUnread(ctx)
	return out, nil
}

// merge folds the stored list into items. Caller holds the lock.
func (r *NotificationReconciler) merge(stored []domain.Notification) {
	byID := make(map[int64]int, len(r.items))
	byPrint := make(map[string]int)
	for i, n := range r.items {
		if n.Persisted() {
			byID[n.ID] = i
		} else {
			byPrint[n.Fingerprint()] = i
		}
	}

	for _, s := range stored {
		if i, ok := byID[s.ID]; ok {
			// Stored copy is authoritative, including the read flag.
			r.items[i] = s
			continue
		}
		if i, ok := byPrint[s.Fingerprint()]; ok && !r.items[i].Persisted() {
			r.items[i] = s
			byID[s.ID] = i
			continue
		}
		r.items = append(r.items, s)
		byID[s.ID] = len(r.items) - 1
	}
}

// OnLivePush appends an incoming live notification and refreshes the unread
// count from the remote endpoint.
func (r *NotificationReconciler) OnLivePush(ctx context.Context, n domain.Notification) {
	r.mu.Lock()
	if n.Persisted() {
		for i, existing := range r.items {
			if existing.ID == n.ID {
				r.items[i] = n
				r.mu.Unlock()
				r.refreshUnread(ctx)
				return
			}
		}
	}
	r.items = append(r.items, n)
	r.mu.Unlock()

	r.refreshUnread(ctx)
}

// MarkAsRead flips the local entry optimistically, asks the store to persist
// the flag, then re-fetches the unread count regardless of the outcome so a
// failed remote call cannot leave a stale number on screen.
func (r *NotificationReconciler) MarkAsRead(ctx context.Context, id int64) error {
	r.mu.Lock()
	found := false
	for i := range r.items {
		if r.items[i].ID == id {
			r.items[i].IsRead = true
			found = true
			break
		}
	}
	r.mu.Unlock()

	if !found {
		return apperrors.ErrNotificationNotFound
	}

	err := r.store.MarkRead(ctx, id)
	if err != nil {
		r.logger.Warn("mark-as-read failed", "notification_id", id, "error", err)
	}
	r.refreshUnread(ctx)
	return err
}

// MarkAllAsRead marks every stored notification read. Bulk success is
// authoritative: the local count drops to zero without a refresh round-trip.
func (r *NotificationReconciler) MarkAllAsRead(ctx context.Context) error {
	if err := r.store.MarkAllRead(ctx); err != nil {
		r.logger.Warn("mark-all-as-read failed", "error", err)
		r.refreshUnread(ctx)
		return err
	}

	r.mu.Lock()
	for i := range r.items {
		r.items[i].IsRead = true
	}
	r.unread = 0
	r.mu.Unlock()
	return nil
}

// Clear discards the local list. Nothing is deleted remotely; the next
// history load re-derives everything from the store.
func (r *NotificationReconciler) Clear() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}

// Notifications returns a copy of the current collection.
func (r *NotificationReconciler) Notifications() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// UnreadCount returns the last remotely confirmed unread count.
func (r *NotificationReconciler) UnreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread
}

func (r *NotificationReconciler) snapshotLocked() []domain.Notification {
	out := make([]domain.Notification, len(r.items))
	copy(out, r.items)
	return out
}

// refreshUnread pulls the authoritative unread count. On failure the last
// known value stands; the next event triggers another attempt.
func (r *NotificationReconciler) refreshUnread(ctx context.Context) {
	count, err := r.store.UnreadCount(ctx)
	if err != nil {
		r.logger.Warn("unread count refresh failed", "error", err)
		return
	}
	r.mu.Lock()
	r.unread = count
	r.mu.Unlock()
}
