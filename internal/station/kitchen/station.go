// Package kitchen implements the kitchen board: pending and in-progress
// orders, per-item and per-order status updates, and menu availability
// toggling with explicit rollback on write failure.
package kitchen

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"tableside/internal/api"
	"tableside/internal/catalog"
	"tableside/internal/events"
	"tableside/internal/logger"
	"tableside/internal/models"
	"tableside/internal/push"
)

// Station holds the kitchen board state.
type Station struct {
	client  *api.Client
	logger  *logger.Logger
	catalog *catalog.Cache
	bridge  *events.Bridge
	out     io.Writer
	in      io.Reader
	orders  []models.Order
	refresh chan struct{}
}

// New builds a kitchen station.
func New(client *api.Client, log *logger.Logger, out io.Writer, in io.Reader) *Station {
	s := &Station{
		client:  client,
		logger:  log,
		out:     out,
		in:      in,
		refresh: make(chan struct{}, 1),
	}
	s.catalog = catalog.NewCache(client, log, nil)
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
	bridge.On(push.EventMenuUpdated, func(push.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.catalog.Load(ctx); err != nil {
			s.logger.Error("menu_reload_failed", "Menu reload after push event failed", "", err, nil)
		}
	})
	bridge.On(push.EventAvailabilityUpdated, func(event push.Event) {
		var update models.AvailabilityUpdate
		if err := events.DecodePayload(event, &update); err != nil {
			s.logger.Error("event_decode_failed", "Bad availability payload", "", err, nil)
			return
		}
		s.catalog.SetAvailability(update.ItemID, update.Available)
	})
	return bridge
}

// Run serves the kitchen board until the context ends.
func (s *Station) Run(ctx context.Context, sub push.Subscriber) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sub.RegisterDevice("kitchen", 0); err != nil {
		s.logger.Error("device_register_failed", "Device registration failed", "", err, nil)
	}

	loadCtx, loadCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := s.catalog.Load(loadCtx); err != nil {
		fmt.Fprintf(s.out, "Could not load menu: %v\n", err)
	}
	loadCancel()

	go func() {
		if err := s.bridge.Run(ctx, sub); err != nil && ctx.Err() == nil {
			s.logger.Error("push_subscription_ended", "Push subscription ended", "", err, nil)
		}
	}()

	s.loadOrders(ctx)
	fmt.Fprintln(s.out, "Kitchen station ready. Type 'help' for commands.")

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
  board                      reload and show the order board
  start <order-id>           mark an order In Progress
  ready <order-id>           mark an order Ready
  item <item-id> <status>    update one order item (Pending|In Progress|Ready)
  86 <menu-item-id>          mark a menu item out of stock
  un86 <menu-item-id>        mark a menu item back in stock
`)
	case "board":
		s.loadOrders(ctx)
	case "start":
		s.updateOrder(ctx, fields[1:], models.StatusInProgress)
	case "ready":
		s.updateOrder(ctx, fields[1:], models.StatusReady)
	case "item":
		s.updateItem(ctx, fields[1:])
	case "86":
		s.setAvailability(ctx, fields[1:], false)
	case "un86":
		s.setAvailability(ctx, fields[1:], true)
	default:
		fmt.Fprintf(s.out, "Unknown command %q. Type 'help'.\n", fields[0])
	}
}

// loadOrders shows only orders the kitchen still works on.
func (s *Station) loadOrders(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	orders, err := s.client.GetOrders(callCtx, "")
	if err != nil {
		fmt.Fprintf(s.out, "Error loading orders: %v ('board' to retry)\n", err)
		return
	}

	var working []models.Order
	for _, order := range orders {
		if order.Status == models.StatusPending || order.Status == models.StatusInProgress {
			working = append(working, order)
		}
	}
	s.orders = working
	s.renderBoard()
}

func (s *Station) renderBoard() {
	if len(s.orders) == 0 {
		fmt.Fprintln(s.out, "Board is clear.")
		return
	}
	for _, order := range s.orders {
		fmt.Fprintf(s.out, "Order #%d  table %d  %s  %s\n",
			order.ID, order.TableNumber, order.Status, order.CreatedAt.Local().Format("15:04"))
		for _, item := range order.Items {
			fmt.Fprintf(s.out, "  [%d] %s x%d [%s]", item.ID, item.Name, item.Quantity, item.Status)
			if item.Notes != "" {
				fmt.Fprintf(s.out, " (%s)", item.Notes)
			}
			fmt.Fprintln(s.out)
		}
	}
}

func (s *Station) updateOrder(ctx context.Context, args []string, status models.OrderStatus) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Order id required.")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(s.out, "Order id must be a number.")
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.client.UpdateOrder(callCtx, id, 0, &models.UpdateOrderRequest{Status: status}); err != nil {
		fmt.Fprintf(s.out, "Error updating order #%d: %v\n", id, err)
		return
	}
	fmt.Fprintf(s.out, "Order #%d is now %s.\n", id, status)
	s.loadOrders(ctx)
}

func (s *Station) updateItem(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: item <item-id> <status>")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(s.out, "Item id must be a number.")
		return
	}
	status := models.OrderStatus(strings.Join(args[1:], " "))

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.client.UpdateOrderItem(callCtx, id, status); err != nil {
		fmt.Fprintf(s.out, "Error updating item %d: %v\n", id, err)
		return
	}
	fmt.Fprintf(s.out, "Item %d is now %s.\n", id, status)
	s.loadOrders(ctx)
}

// setAvailability applies the toggle optimistically and rolls the cached
// value back when the server rejects the write.
func (s *Station) setAvailability(ctx context.Context, args []string, available bool) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Menu item id required.")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(s.out, "Menu item id must be a number.")
		return
	}

	item, ok := s.catalog.Get(id)
	if !ok {
		fmt.Fprintf(s.out, "No menu item with id %d.\n", id)
		return
	}
	prev := item.Available
	s.catalog.SetAvailability(id, available)

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.client.SetMenuItemAvailability(callCtx, id, available); err != nil {
		s.catalog.SetAvailability(id, prev)
		fmt.Fprintf(s.out, "Error updating availability for %s: %v\n", item.Name, err)
		return
	}
	if available {
		fmt.Fprintf(s.out, "%s is back in stock.\n", item.Name)
	} else {
		fmt.Fprintf(s.out, "%s is out of stock.\n", item.Name)
	}
}
