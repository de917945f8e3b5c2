package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tableside/internal/api"
	"tableside/internal/logger"
	"tableside/internal/models"
)

// Processor is the slice of the API client the coordinator needs.
type Processor interface {
	ProcessPayment(ctx context.Context, req *api.PaymentRequest) (*api.PaymentResponse, error)
}

// Settler marks orders paid locally ahead of server confirmation.
type Settler interface {
	MarkPaidLocally(ctx context.Context, orderIDs []int, paymentMethod, receiptNumber string)
	UnpaidForTable() []models.Order
	TableNumber() int
}

// Coordinator drives a table's checkout through the state machine. The
// three network calls involved (create order, process payment, complete
// orders) are not transactional: a failure between steps leaves the
// server-side order for staff review, exactly as the floor staff expect.
type Coordinator struct {
	processor Processor
	settler   Settler
	logger    *logger.Logger
	state     State
	now       func() time.Time
}

// NewCoordinator creates a coordinator in the NoOrder phase.
func NewCoordinator(processor Processor, settler Settler, log *logger.Logger) *Coordinator {
	return &Coordinator{
		processor: processor,
		settler:   settler,
		logger:    log,
		state:     NewState(),
		now:       time.Now,
	}
}

// State returns the current checkout state.
func (c *Coordinator) State() State {
	return c.state
}

// OrderPlaced records a newly created order.
func (c *Coordinator) OrderPlaced(orderIDs []int) error {
	next, err := Apply(c.state, OrderPlaced{OrderIDs: orderIDs})
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// SelectMethod records the chosen payment method.
func (c *Coordinator) SelectMethod(method string) error {
	next, err := Apply(c.state, MethodSelected{Method: method})
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

// Confirm settles every unpaid order on this table. On success the
// orders are optimistically removed from the local list and the phase
// moves to Cleared; on failure the phase stays at payment-selected so
// the operator can retry, and the error is surfaced.
func (c *Coordinator) Confirm(ctx context.Context) (receipt string, err error) {
	if c.state.Phase != PhaseSelected {
		return "", fmt.Errorf("%w: confirm while %s", ErrInvalidTransition, c.state.Phase)
	}

	unpaid := c.settler.UnpaidForTable()
	if len(unpaid) == 0 {
		return "", fmt.Errorf("no unpaid orders to settle")
	}

	orderIDs := make([]int, 0, len(unpaid))
	amount := 0.0
	for _, order := range unpaid {
		orderIDs = append(orderIDs, order.ID)
		amount += order.TotalAmount
	}

	receipt = ReceiptNumber(c.now())
	resp, err := c.processor.ProcessPayment(ctx, &api.PaymentRequest{
		OrderIDs:       orderIDs,
		TableNumber:    c.settler.TableNumber(),
		Method:         c.state.Method,
		Amount:         amount,
		ReceiptNumber:  receipt,
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		c.logger.Error("payment_failed", "Payment processing failed, rolling back", "", err, map[string]interface{}{
			"order_ids": orderIDs,
			"method":    c.state.Method,
		})
		if rolled, applyErr := Apply(c.state, ConfirmFailed{}); applyErr == nil {
			c.state = rolled
		}
		return "", fmt.Errorf("payment failed: %w", err)
	}
	if resp.ReceiptNumber != "" {
		receipt = resp.ReceiptNumber
	}

	next, err := Apply(c.state, Confirmed{ReceiptNumber: receipt})
	if err != nil {
		return "", err
	}
	c.state = next

	// Optimistic settlement: drop the paid orders locally, then tell the
	// server fire-and-forget.
	c.settler.MarkPaidLocally(ctx, orderIDs, c.state.Method, receipt)

	c.logger.Info("payment_confirmed", "Payment confirmed", "", map[string]interface{}{
		"receipt":   receipt,
		"order_ids": orderIDs,
		"amount":    amount,
	})

	if cleared, err := Apply(c.state, SessionCleared{}); err == nil {
		c.state = cleared
	}
	return receipt, nil
}

// Reset returns the coordinator to the initial phase for the next
// checkout session.
func (c *Coordinator) Reset() {
	c.state = NewState()
}
