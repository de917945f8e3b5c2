// Package payment makes the checkout state machine explicit. The original
// flow was scattered across nested network callbacks; here every
// transition goes through a single reducer so illegal moves (confirming
// twice, selecting a method with nothing to pay) are rejected up front.
package payment

import (
	"errors"
	"fmt"
	"time"
)

// Phase identifies a checkout state.
type Phase string

const (
	PhaseNoOrder      Phase = "no_order"
	PhaseOrderCreated Phase = "order_created"
	PhaseSelected     Phase = "payment_selected"
	PhaseConfirmed    Phase = "payment_confirmed"
	PhaseCleared      Phase = "cleared"
)

// ErrInvalidTransition is returned when an event is not legal in the
// current phase.
var ErrInvalidTransition = errors.New("invalid payment transition")

// State is the full checkout state: a phase tag plus the data valid in
// that phase.
type State struct {
	Phase         Phase
	OrderIDs      []int
	Method        string
	ReceiptNumber string
}

// NewState returns the initial state.
func NewState() State {
	return State{Phase: PhaseNoOrder}
}

// Event is a checkout state-machine input.
type Event interface{ isPaymentEvent() }

// OrderPlaced records that one or more orders now exist for the table.
type OrderPlaced struct{ OrderIDs []int }

// MethodSelected records the operator picking a payment method.
type MethodSelected struct{ Method string }

// Confirmed records a successful payment call.
type Confirmed struct{ ReceiptNumber string }

// ConfirmFailed keeps the flow at method selection after a failed
// payment call so it can be retried as-is.
type ConfirmFailed struct{}

// SessionCleared ends the flow after optimistic settlement.
type SessionCleared struct{}

func (OrderPlaced) isPaymentEvent()    {}
func (MethodSelected) isPaymentEvent() {}
func (Confirmed) isPaymentEvent()      {}
func (ConfirmFailed) isPaymentEvent()  {}
func (SessionCleared) isPaymentEvent() {}

// Apply is the single reducer driving all transitions.
func Apply(state State, event Event) (State, error) {
	switch ev := event.(type) {
	case OrderPlaced:
		if state.Phase != PhaseNoOrder && state.Phase != PhaseOrderCreated {
			return state, fmt.Errorf("%w: order placed while %s", ErrInvalidTransition, state.Phase)
		}
		if len(ev.OrderIDs) == 0 {
			return state, fmt.Errorf("%w: order placed with no order ids", ErrInvalidTransition)
		}
		state.Phase = PhaseOrderCreated
		state.OrderIDs = append(state.OrderIDs, ev.OrderIDs...)
		return state, nil

	case MethodSelected:
		if state.Phase != PhaseOrderCreated && state.Phase != PhaseSelected {
			return state, fmt.Errorf("%w: method selected while %s", ErrInvalidTransition, state.Phase)
		}
		if ev.Method == "" {
			return state, fmt.Errorf("%w: empty payment method", ErrInvalidTransition)
		}
		state.Phase = PhaseSelected
		state.Method = ev.Method
		return state, nil

	case Confirmed:
		if state.Phase != PhaseSelected {
			return state, fmt.Errorf("%w: confirm while %s", ErrInvalidTransition, state.Phase)
		}
		state.Phase = PhaseConfirmed
		state.ReceiptNumber = ev.ReceiptNumber
		return state, nil

	case ConfirmFailed:
		if state.Phase != PhaseSelected {
			return state, fmt.Errorf("%w: confirm failure while %s", ErrInvalidTransition, state.Phase)
		}
		// Stay in selection with the method intact so a retry needs no
		// re-selection.
		return state, nil

	case SessionCleared:
		if state.Phase != PhaseConfirmed {
			return state, fmt.Errorf("%w: clear while %s", ErrInvalidTransition, state.Phase)
		}
		return State{Phase: PhaseCleared}, nil

	default:
		return state, fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, event)
	}
}

// ReceiptNumber generates a receipt identifier from the current time:
// "RCP-" plus the last six digits of the unix-millisecond clock.
func ReceiptNumber(now time.Time) string {
	ms := fmt.Sprintf("%d", now.UnixMilli())
	if len(ms) > 6 {
		ms = ms[len(ms)-6:]
	}
	return "RCP-" + ms
}
