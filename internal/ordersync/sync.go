// Package ordersync maintains the authoritative visible list of a
// table's non-terminal orders. The list is replaced wholesale on every
// refresh; push events and a polling timer both trigger refreshes, and
// the last response to arrive wins.
package ordersync

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tableside/internal/logger"
	"tableside/internal/models"
)

// Fetcher is the slice of the API client the syncer needs.
type Fetcher interface {
	GetTableOrders(ctx context.Context, tableNumber int) ([]models.Order, error)
	UpdateOrder(ctx context.Context, orderID, tableNumber int, req *models.UpdateOrderRequest) error
}

// Syncer tracks the active orders for one table. The polling loop and
// push event handlers both trigger refreshes, so the order list is
// guarded by a mutex.
type Syncer struct {
	fetcher     Fetcher
	logger      *logger.Logger
	tableNumber int
	interval    time.Duration
	onChange    func()
	kick        chan struct{}

	mu     sync.Mutex
	orders []models.Order
}

// New creates a syncer for the given table. interval is the polling
// period; onChange may be nil.
func New(fetcher Fetcher, log *logger.Logger, tableNumber int, interval time.Duration, onChange func()) *Syncer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Syncer{
		fetcher:     fetcher,
		logger:      log,
		tableNumber: tableNumber,
		interval:    interval,
		onChange:    onChange,
		kick:        make(chan struct{}, 1),
	}
}

func (s *Syncer) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Refresh replaces the local list with the server's view of the table,
// filtered to non-terminal statuses and sorted newest first. On failure
// the previous list stays displayed and the error is returned so the
// caller can offer a retry.
func (s *Syncer) Refresh(ctx context.Context) error {
	fetched, err := s.fetcher.GetTableOrders(ctx, s.tableNumber)
	if err != nil {
		s.logger.Error("orders_refresh_failed", "Failed to load active orders, keeping previous list", "", err, map[string]interface{}{
			"table_number": s.tableNumber,
		})
		return fmt.Errorf("failed to refresh orders: %w", err)
	}

	active := fetched[:0]
	for _, order := range fetched {
		if !order.Status.IsTerminal() {
			active = append(active, order)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})

	s.mu.Lock()
	s.orders = active
	s.mu.Unlock()
	s.notify()
	return nil
}

// MarkPaidLocally optimistically removes the given orders from the local
// list before the server confirms completion. The server-side completion
// calls are fire-and-forget: failures are logged, never surfaced, and the
// next scheduled refresh reconciles any mismatch.
func (s *Syncer) MarkPaidLocally(ctx context.Context, orderIDs []int, paymentMethod, receiptNumber string) {
	paid := make(map[int]bool, len(orderIDs))
	for _, id := range orderIDs {
		paid[id] = true
	}

	s.mu.Lock()
	kept := s.orders[:0]
	for _, order := range s.orders {
		if !paid[order.ID] {
			kept = append(kept, order)
		}
	}
	s.orders = kept
	s.mu.Unlock()
	s.notify()

	for _, orderID := range orderIDs {
		req := &models.UpdateOrderRequest{
			Status:        models.StatusCompleted,
			PaymentMethod: paymentMethod,
			ReceiptNumber: receiptNumber,
		}
		if err := s.fetcher.UpdateOrder(ctx, orderID, s.tableNumber, req); err != nil {
			s.logger.Error("order_completion_failed", "Order completion call failed, payment recorded locally", "", err, map[string]interface{}{
				"order_id": orderID,
			})
		}
	}
}

// Orders returns a copy of the current active order list.
func (s *Syncer) Orders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// UnpaidForTable returns the station table's orders that can still be
// settled. Orders for other tables are excluded even if the server
// returned them.
func (s *Syncer) UnpaidForTable() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, order := range s.orders {
		if order.TableNumber == s.tableNumber && !order.Status.IsTerminal() {
			out = append(out, order)
		}
	}
	return out
}

// TableNumber returns the table this syncer is scoped to.
func (s *Syncer) TableNumber() int {
	return s.tableNumber
}

// RequestRefresh schedules an immediate refresh on the Run loop. Safe to
// call from push event handlers; redundant requests coalesce.
func (s *Syncer) RequestRefresh() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run polls the server every interval until the context is cancelled,
// providing eventual consistency even when a push event is missed.
// Refresh errors are already logged and keep prior state, so the loop
// just keeps going.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.Refresh(ctx); err == nil {
		s.logger.Debug("orders_synced", "Initial order list loaded", "", map[string]interface{}{
			"table_number": s.tableNumber,
			"count":        len(s.Orders()),
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Refresh(ctx)
		case <-s.kick:
			_ = s.Refresh(ctx)
		}
	}
}
