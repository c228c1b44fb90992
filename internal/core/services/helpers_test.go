package services_test

import (
	"io"
	"log/slog"
	"sync"

	"github.com/gatherly/dashboard-sync/internal/core/domain"
	"github.com/gatherly/dashboard-sync/internal/core/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingEmitter captures outbound transport emits for assertions.
type recordingEmitter struct {
	mu    sync.Mutex
	calls []emitCall
	err   error
}

type emitCall struct {
	event   string
	payload any
}

func (f *recordingEmitter) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, emitCall{event: event, payload: payload})
	return f.err
}

func (f *recordingEmitter) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.event
	}
	return out
}

func (f *recordingEmitter) count(event string) int {
	n := 0
	for _, e := range f.events() {
		if e == event {
			n++
		}
	}
	return n
}

// eventRecorder subscribes to bus kinds and keeps the delivery order.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) attach(bus *services.EventBus, kinds ...domain.EventKind) {
	for _, kind := range kinds {
		kind := kind
		bus.Subscribe(kind, func(e domain.Event) {
			r.mu.Lock()
			r.events = append(r.events, e)
			r.mu.Unlock()
		})
	}
}

func (r *eventRecorder) kinds() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *eventRecorder) all() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}
