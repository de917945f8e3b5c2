package events

import (
	"encoding/json"
	"testing"

	"tableside/internal/logger"
	"tableside/internal/push"
)

func TestDispatch_RoutesToHandler(t *testing.T) {
	b := New(logger.New("test"))

	var got []string
	b.On(push.EventMenuUpdated, func(e push.Event) { got = append(got, e.Type) })
	b.On(push.EventOrderPaid, func(e push.Event) { got = append(got, e.Type) })

	b.Dispatch(push.Event{Type: push.EventOrderPaid})
	b.Dispatch(push.Event{Type: push.EventMenuUpdated})

	if len(got) != 2 || got[0] != push.EventOrderPaid || got[1] != push.EventMenuUpdated {
		t.Errorf("unexpected dispatch order: %v", got)
	}
}

func TestDispatch_UnknownEventIsDropped(t *testing.T) {
	b := New(logger.New("test"))
	b.On(push.EventMenuUpdated, func(push.Event) { t.Errorf("handler must not fire") })

	// Must log and drop, not panic.
	b.Dispatch(push.Event{Type: "unrelated_event"})
}

func TestDispatch_HandlersAreRepeatable(t *testing.T) {
	b := New(logger.New("test"))

	calls := 0
	b.On(push.EventOrderUpdated, func(push.Event) { calls++ })

	// No ordering or dedup guarantee: the same event may arrive twice.
	event := push.Event{Type: push.EventOrderUpdated}
	b.Dispatch(event)
	b.Dispatch(event)

	if calls != 2 {
		t.Errorf("expected handler to run on every delivery, got %d", calls)
	}
}

func TestEventTypes(t *testing.T) {
	b := New(logger.New("test"))
	b.On(push.EventMenuUpdated, func(push.Event) {})
	b.On(push.EventResetDevice, func(push.Event) {})

	types := b.EventTypes()
	if len(types) != 2 {
		t.Fatalf("expected 2 event types, got %v", types)
	}
	seen := map[string]bool{}
	for _, typ := range types {
		seen[typ] = true
	}
	if !seen[push.EventMenuUpdated] || !seen[push.EventResetDevice] {
		t.Errorf("missing registered types: %v", types)
	}
}

func TestDecodePayload(t *testing.T) {
	payload, _ := json.Marshal(map[string]interface{}{"item_id": 7, "available": false})
	event := push.Event{Type: push.EventAvailabilityUpdated, Payload: payload}

	var got struct {
		ItemID    int  `json:"item_id"`
		Available bool `json:"available"`
	}
	if err := DecodePayload(event, &got); err != nil {
		t.Fatalf("DecodePayload returned error: %v", err)
	}
	if got.ItemID != 7 || got.Available {
		t.Errorf("unexpected payload: %+v", got)
	}

	if err := DecodePayload(push.Event{Type: "x"}, &got); err == nil {
		t.Errorf("expected error for missing payload")
	}
	if err := DecodePayload(push.Event{Type: "x", Payload: []byte("{")}, &got); err == nil {
		t.Errorf("expected error for malformed payload")
	}
}
