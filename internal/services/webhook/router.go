package webhook

import (
	"context"
	"log/slog"
	"sync"

	"github.com/killallgit/meeting-recorder/internal/logging"
)

// Handler reacts to one event type
type Handler func(ctx context.Context, event *Event) error

// Router dispatches events to the handler registered for their type
type Router struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Handle registers h for eventType, replacing any previous handler
func (r *Router) Handle(eventType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[eventType] = h
}

// Handles reports whether eventType has a handler
func (r *Router) Handles(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[eventType]
	return ok
}

// Dispatch runs the handler for the event. Unknown types are logged and
// ignored. A handler error is logged at critical priority and returned so
// callers can observe it; the webhook is still acknowledged upstream.
func (r *Router) Dispatch(ctx context.Context, event *Event) error {
	r.mu.RLock()
	h, ok := r.handlers[event.Event]
	r.mu.RUnlock()

	if !ok {
		slog.InfoContext(ctx, "Unhandled webhook event")
		return nil
	}

	if err := h(ctx, event); err != nil {
		slog.ErrorContext(ctx, "webhook handler failed", logging.ErrKey, err, logging.PriorityCritical())
		return err
	}
	return nil
}
