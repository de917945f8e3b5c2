// Package waiter implements the floor-staff station: an all-orders board
// with status and search filters, plus delivered/paid actions.
package waiter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"tableside/internal/api"
	"tableside/internal/events"
	"tableside/internal/logger"
	"tableside/internal/models"
	"tableside/internal/payment"
	"tableside/internal/push"
)

// Station holds the waiter board state.
type Station struct {
	client       *api.Client
	logger       *logger.Logger
	bridge       *events.Bridge
	out          io.Writer
	in           io.Reader
	orders       []models.Order
	statusFilter string
	search       string
	refresh      chan struct{}
}

// New builds a waiter station.
func New(client *api.Client, log *logger.Logger, out io.Writer, in io.Reader) *Station {
	s := &Station{
		client:       client,
		logger:       log,
		out:          out,
		in:           in,
		statusFilter: "All",
		refresh:      make(chan struct{}, 1),
	}
	s.bridge = s.buildBridge()
	return s
}

func (s *Station) buildBridge() *events.Bridge {
	bridge := events.New(s.logger)
	reload := func(push.Event) {
		select {
		case s.refresh <- struct{}{}:
		default:
		}
	}
	bridge.On(push.EventNewOrder, reload)
	bridge.On(push.EventOrderUpdated, reload)
	bridge.On(push.EventOrderPaid, reload)
	return bridge
}

// Run serves the waiter board until the context ends.
func (s *Station) Run(ctx context.Context, sub push.Subscriber) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sub.RegisterDevice("waiter", 0); err != nil {
		s.logger.Error("device_register_failed", "Device registration failed", "", err, nil)
	}

	go func() {
		if err := s.bridge.Run(ctx, sub); err != nil && ctx.Err() == nil {
			s.logger.Error("push_subscription_ended", "Push subscription ended", "", err, nil)
		}
	}()

	s.loadOrders(ctx)
	fmt.Fprintln(s.out, "Waiter station ready. Type 'help' for commands.")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.refresh:
			s.loadOrders(ctx)
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			s.handleCommand(ctx, line)
		}
	}
}

func (s *Station) handleCommand(ctx context.Context, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "help":
		fmt.Fprint(s.out, `Commands:
  orders                 reload and show the board
  filter <status|All>    filter by status
  search <term>          filter by id, customer or table
  show <order-id>        show order details
  delivered <order-id>   mark an order delivered
  paid <order-id>        mark an order paid (cash)
`)
	case "orders":
		s.loadOrders(ctx)
	case "filter":
		if len(fields) > 1 {
			s.statusFilter = strings.Join(fields[1:], " ")
		} else {
			s.statusFilter = "All"
		}
		s.loadOrders(ctx)
	case "search":
		s.search = strings.ToLower(strings.Join(fields[1:], " "))
		s.renderBoard()
	case "show":
		s.showOrder(ctx, fields[1:])
	case "delivered":
		s.updateOrder(ctx, fields[1:], models.StatusDelivered)
	case "paid":
		s.markPaid(ctx, fields[1:])
	default:
		fmt.Fprintf(s.out, "Unknown command %q. Type 'help'.\n", fields[0])
	}
}

// loadOrders reloads the board wholesale. On failure the previous board
// stays visible.
func (s *Station) loadOrders(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	orders, err := s.client.GetOrders(callCtx, s.statusFilter)
	if err != nil {
		fmt.Fprintf(s.out, "Error loading orders: %v ('orders' to retry)\n", err)
		return
	}
	s.orders = orders
	s.renderBoard()
}

func (s *Station) renderBoard() {
	filtered := s.orders
	if s.search != "" {
		filtered = nil
		for _, order := range s.orders {
			if strings.Contains(strconv.Itoa(order.ID), s.search) ||
				strings.Contains(strings.ToLower(order.CustomerName), s.search) ||
				strings.Contains(strconv.Itoa(order.TableNumber), s.search) {
				filtered = append(filtered, order)
			}
		}
	}

	if len(filtered) == 0 {
		fmt.Fprintln(s.out, "No orders.")
		return
	}
	fmt.Fprintf(s.out, "%-8s %-6s %-12s %-6s %-10s %s\n", "Order", "Table", "Status", "Items", "Amount", "Time")
	for _, order := range filtered {
		fmt.Fprintf(s.out, "#%-7d %-6d %-12s %-6d $%-9.2f %s\n",
			order.ID, order.TableNumber, order.Status, order.ItemCount,
			order.TotalAmount, order.CreatedAt.Local().Format("15:04"))
	}
}

func (s *Station) showOrder(ctx context.Context, args []string) {
	id, ok := s.parseID(args)
	if !ok {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	order, err := s.client.GetOrder(callCtx, id)
	if err != nil {
		fmt.Fprintf(s.out, "Error loading order #%d: %v\n", id, err)
		return
	}
	fmt.Fprintf(s.out, "Order #%d  table %d  %s  $%.2f\n", order.ID, order.TableNumber, order.Status, order.TotalAmount)
	for _, item := range order.Items {
		fmt.Fprintf(s.out, "  - %s x%d [%s]", item.Name, item.Quantity, item.Status)
		if item.Notes != "" {
			fmt.Fprintf(s.out, " (%s)", item.Notes)
		}
		fmt.Fprintln(s.out)
	}
}

func (s *Station) updateOrder(ctx context.Context, args []string, status models.OrderStatus) {
	id, ok := s.parseID(args)
	if !ok {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	order := s.findOrder(id)
	table := 0
	if order != nil {
		table = order.TableNumber
	}

	if err := s.client.UpdateOrder(callCtx, id, table, &models.UpdateOrderRequest{Status: status}); err != nil {
		// Fail-loud: an explicit message, nothing changed locally.
		fmt.Fprintf(s.out, "Error updating order #%d: %v\n", id, err)
		return
	}
	fmt.Fprintf(s.out, "Order #%d marked %s.\n", id, status)
	s.loadOrders(ctx)
}

func (s *Station) markPaid(ctx context.Context, args []string) {
	id, ok := s.parseID(args)
	if !ok {
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	order := s.findOrder(id)
	table := 0
	if order != nil {
		table = order.TableNumber
	}

	req := &models.UpdateOrderRequest{
		Status:        models.StatusCompleted,
		PaymentMethod: "cash",
		ReceiptNumber: payment.ReceiptNumber(time.Now()),
	}
	if err := s.client.UpdateOrder(callCtx, id, table, req); err != nil {
		fmt.Fprintf(s.out, "Error marking order #%d paid: %v\n", id, err)
		return
	}
	fmt.Fprintf(s.out, "Order #%d settled, receipt %s.\n", id, req.ReceiptNumber)
	s.loadOrders(ctx)
}

func (s *Station) findOrder(id int) *models.Order {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return &s.orders[i]
		}
	}
	return nil
}

func (s *Station) parseID(args []string) (int, bool) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Order id required.")
		return 0, false
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(s.out, "Order id must be a number.")
		return 0, false
	}
	return id, true
}
