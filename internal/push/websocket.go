package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"tableside/internal/logger"
)

// WSSubscriber consumes backend events from the WebSocket push gateway.
// Frames are JSON objects of the form {"event_type": ..., "payload": ...}.
type WSSubscriber struct {
	url    string
	logger *logger.Logger
	conn   *websocket.Conn
}

// NewWSSubscriber dials the push gateway.
func NewWSSubscriber(url string, log *logger.Logger) (*WSSubscriber, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial push gateway: %w", err)
	}
	return &WSSubscriber{url: url, logger: log, conn: conn}, nil
}

// Subscribe reads event frames until the context is cancelled or the
// connection fails. The gateway broadcasts every event type, so the
// eventTypes list is applied as a client-side filter.
func (s *WSSubscriber) Subscribe(ctx context.Context, eventTypes []string, handler Handler) error {
	wanted := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		wanted[t] = true
	}

	s.logger.Info("push_subscribed", fmt.Sprintf("Subscribed to %d event types", len(eventTypes)), "", map[string]interface{}{
		"url": s.url,
	})

	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("push_stopped", "Subscription stopped by context", "", nil)
				return ctx.Err()
			}
			return fmt.Errorf("push connection lost: %w", err)
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			s.logger.Error("push_decode_failed", "Failed to decode event frame, dropping", "", err, nil)
			continue
		}

		if len(wanted) > 0 && !wanted[event.Type] {
			continue
		}

		handler(event)
	}
}

// RegisterDevice emits a register_device frame to the gateway.
func (s *WSSubscriber) RegisterDevice(role string, tableNumber int) error {
	payload, err := json.Marshal(DeviceRegistration{Role: role, TableNumber: tableNumber})
	if err != nil {
		return fmt.Errorf("failed to marshal registration: %w", err)
	}
	frame, err := json.Marshal(Event{Type: "register_device", Payload: payload})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to send registration: %w", err)
	}
	return nil
}

// Close closes the connection.
func (s *WSSubscriber) Close() error {
	return s.conn.Close()
}
