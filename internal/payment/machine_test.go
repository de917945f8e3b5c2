package payment

import (
	"errors"
	"testing"
	"time"
)

func TestApply_HappyPath(t *testing.T) {
	state := NewState()

	state, err := Apply(state, OrderPlaced{OrderIDs: []int{1, 2}})
	if err != nil {
		t.Fatalf("order placed: %v", err)
	}
	if state.Phase != PhaseOrderCreated {
		t.Fatalf("expected order_created, got %s", state.Phase)
	}

	state, err = Apply(state, MethodSelected{Method: "card"})
	if err != nil {
		t.Fatalf("method selected: %v", err)
	}
	if state.Phase != PhaseSelected || state.Method != "card" {
		t.Fatalf("expected payment_selected with card, got %+v", state)
	}

	state, err = Apply(state, Confirmed{ReceiptNumber: "RCP-123456"})
	if err != nil {
		t.Fatalf("confirmed: %v", err)
	}
	if state.Phase != PhaseConfirmed || state.ReceiptNumber != "RCP-123456" {
		t.Fatalf("expected payment_confirmed with receipt, got %+v", state)
	}

	state, err = Apply(state, SessionCleared{})
	if err != nil {
		t.Fatalf("cleared: %v", err)
	}
	if state.Phase != PhaseCleared {
		t.Fatalf("expected cleared, got %s", state.Phase)
	}
}

func TestApply_IllegalTransitions(t *testing.T) {
	created, _ := Apply(NewState(), OrderPlaced{OrderIDs: []int{1}})
	selected, _ := Apply(created, MethodSelected{Method: "cash"})
	confirmed, _ := Apply(selected, Confirmed{ReceiptNumber: "RCP-1"})

	tests := []struct {
		name  string
		state State
		event Event
	}{
		{"confirm before select", created, Confirmed{ReceiptNumber: "RCP-2"}},
		{"confirm twice", confirmed, Confirmed{ReceiptNumber: "RCP-3"}},
		{"select before order", NewState(), MethodSelected{Method: "card"}},
		{"clear before confirm", selected, SessionCleared{}},
		{"order placed with no ids", NewState(), OrderPlaced{}},
		{"empty method", created, MethodSelected{}},
		{"confirm failure outside selection", created, ConfirmFailed{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(tt.state, tt.event)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
		})
	}
}

func TestApply_ConfirmFailedKeepsSelection(t *testing.T) {
	state, _ := Apply(NewState(), OrderPlaced{OrderIDs: []int{1}})
	state, _ = Apply(state, MethodSelected{Method: "card"})

	state, err := Apply(state, ConfirmFailed{})
	if err != nil {
		t.Fatalf("confirm failed event: %v", err)
	}
	if state.Phase != PhaseSelected {
		t.Errorf("expected to stay in payment_selected, got %s", state.Phase)
	}
	if state.Method != "card" {
		t.Errorf("expected method kept for retry, got %q", state.Method)
	}
	if len(state.OrderIDs) != 1 {
		t.Errorf("expected orders kept, got %v", state.OrderIDs)
	}

	// A bare retry is legal without re-selecting the method.
	state, err = Apply(state, Confirmed{ReceiptNumber: "RCP-9"})
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if state.Phase != PhaseConfirmed {
		t.Errorf("expected payment_confirmed after retry, got %s", state.Phase)
	}
}

func TestReceiptNumber(t *testing.T) {
	now := time.UnixMilli(1748344512345)
	got := ReceiptNumber(now)
	if got != "RCP-512345" {
		t.Errorf("expected RCP-512345, got %s", got)
	}
}
