// Package push delivers server events to the stations. The transport is
// an opaque publish/subscribe channel: the restaurant backend fans events
// out over both its RabbitMQ event bus and a WebSocket gateway, and a
// station subscribes through whichever one its deployment reaches.
package push

import (
	"context"
	"encoding/json"
)

// Event types published by the backend services.
const (
	EventNewOrder            = "new_order"
	EventOrderUpdated        = "order_updated"
	EventOrderPaid           = "order_paid"
	EventMenuUpdated         = "menu_updated"
	EventAvailabilityUpdated = "menu_item_availability_updated"
	EventPromoUpdated        = "promo_updated"
	EventResetDevice         = "reset_device"
)

// Event is a named push notification with an opaque payload.
type Event struct {
	Type    string          `json:"event_type"`
	Payload json.RawMessage `json:"payload"`
}

// Handler processes a single event. Handlers must be idempotent: no
// ordering or exactly-once guarantee is assumed between events.
type Handler func(Event)

// Subscriber is a push channel subscription.
type Subscriber interface {
	// Subscribe delivers events to the handler until the context is
	// cancelled or the channel fails.
	Subscribe(ctx context.Context, eventTypes []string, handler Handler) error
	// RegisterDevice announces this station to the backend.
	RegisterDevice(role string, tableNumber int) error
	Close() error
}

// DeviceRegistration is the register_device payload.
type DeviceRegistration struct {
	Role        string `json:"role"`
	TableNumber int    `json:"table_number,omitempty"`
}
