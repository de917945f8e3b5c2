// Package events translates named push notifications into store
// operations. Handlers are registered by name so a station's event
// wiring can be tested without any transport.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"tableside/internal/logger"
	"tableside/internal/push"
)

// Bridge maps event names to handlers and dispatches incoming events.
// Every handler must be idempotent: a refresh or catalog patch can be
// safely repeated, and no ordering is assumed between events.
type Bridge struct {
	logger   *logger.Logger
	handlers map[string]push.Handler
}

// New creates an empty bridge.
func New(log *logger.Logger) *Bridge {
	return &Bridge{
		logger:   log,
		handlers: make(map[string]push.Handler),
	}
}

// On registers a handler for the named event, replacing any previous one.
func (b *Bridge) On(eventType string, handler push.Handler) {
	b.handlers[eventType] = handler
}

// EventTypes returns the event names with registered handlers, for
// subscribing the transport.
func (b *Bridge) EventTypes() []string {
	types := make([]string, 0, len(b.handlers))
	for t := range b.handlers {
		types = append(types, t)
	}
	return types
}

// Dispatch routes an event to its handler. Events without a handler are
// logged and dropped.
func (b *Bridge) Dispatch(event push.Event) {
	handler, ok := b.handlers[event.Type]
	if !ok {
		b.logger.Warn("event_unhandled", "No handler registered for event", "", map[string]interface{}{
			"event_type": event.Type,
		})
		return
	}

	b.logger.Debug("event_received", "Dispatching push event", "", map[string]interface{}{
		"event_type": event.Type,
	})
	handler(event)
}

// Run subscribes the bridge's handlers on the given transport and blocks
// until the context is cancelled or the subscription fails.
func (b *Bridge) Run(ctx context.Context, sub push.Subscriber) error {
	if len(b.handlers) == 0 {
		return fmt.Errorf("no event handlers registered")
	}
	return sub.Subscribe(ctx, b.EventTypes(), b.Dispatch)
}

// DecodePayload unmarshals an event payload into v.
func DecodePayload(event push.Event, v interface{}) error {
	if len(event.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", event.Type)
	}
	if err := json.Unmarshal(event.Payload, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", event.Type, err)
	}
	return nil
}
