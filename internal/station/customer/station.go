// Package customer implements the table-side ordering station: menu
// browsing, cart, order submission, active-order tracking and checkout.
package customer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"tableside/internal/api"
	"tableside/internal/cart"
	"tableside/internal/catalog"
	"tableside/internal/device"
	"tableside/internal/events"
	"tableside/internal/logger"
	"tableside/internal/models"
	"tableside/internal/ordersync"
	"tableside/internal/payment"
	"tableside/internal/push"
)

// Station wires the customer-facing stores together and drives them from
// a line-oriented command loop.
type Station struct {
	client   *api.Client
	logger   *logger.Logger
	devices  *device.Store
	state    device.State
	cart     *cart.Store
	catalog  *catalog.Cache
	orders   *ordersync.Syncer
	checkout *payment.Coordinator
	bridge   *events.Bridge
	out      io.Writer
	in       io.Reader
	restart  chan struct{}
}

// New builds a customer station for the given table.
func New(client *api.Client, log *logger.Logger, devices *device.Store, state device.State, interval time.Duration, out io.Writer, in io.Reader) *Station {
	s := &Station{
		client:  client,
		logger:  log,
		devices: devices,
		state:   state,
		out:     out,
		in:      in,
		restart: make(chan struct{}, 1),
	}

	s.cart = cart.NewStore(s.renderCart)
	s.catalog = catalog.NewCache(client, log, nil)
	s.orders = ordersync.New(client, log, state.TableNumber, interval, s.renderOrders)
	s.checkout = payment.NewCoordinator(client, s.orders, log)
	s.bridge = s.buildBridge()
	return s
}

// buildBridge maps push events onto store operations. Every handler is
// idempotent, so replays and out-of-order delivery are harmless.
func (s *Station) buildBridge() *events.Bridge {
	bridge := events.New(s.logger)

	bridge.On(push.EventMenuUpdated, func(push.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.catalog.Load(ctx); err != nil {
			s.logger.Error("menu_reload_failed", "Menu reload after push event failed", "", err, nil)
		}
	})
	bridge.On(push.EventPromoUpdated, func(push.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.catalog.Load(ctx); err != nil {
			s.logger.Error("menu_reload_failed", "Menu reload after promo event failed", "", err, nil)
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
	bridge.On(push.EventNewOrder, func(push.Event) { s.orders.RequestRefresh() })
	bridge.On(push.EventOrderUpdated, func(push.Event) { s.orders.RequestRefresh() })
	bridge.On(push.EventOrderPaid, func(push.Event) { s.orders.RequestRefresh() })
	bridge.On(push.EventResetDevice, func(push.Event) {
		if err := s.devices.Reset(); err != nil {
			s.logger.Error("device_reset_failed", "Failed to clear device state", "", err, nil)
		}
		fmt.Fprintln(s.out, "This device has been reset by the administrator. The station will restart.")
		select {
		case s.restart <- struct{}{}:
		default:
		}
	})

	return bridge
}

// Run starts the station: registers the device, loads the catalog,
// starts the polling loop and the push subscription, then serves the
// command loop until the context ends or the device is reset.
func (s *Station) Run(ctx context.Context, sub push.Subscriber) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sub.RegisterDevice("customer", s.state.TableNumber); err != nil {
		s.logger.Error("device_register_failed", "Device registration failed", "", err, nil)
	}

	loadCtx, loadCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := s.catalog.Load(loadCtx); err != nil {
		// Fail-soft: the station starts with an empty menu and the
		// operator can retry with the menu command.
		fmt.Fprintf(s.out, "Could not load menu: %v (try 'menu' to retry)\n", err)
	}
	loadCancel()

	go s.orders.Run(ctx)
	go func() {
		if err := s.bridge.Run(ctx, sub); err != nil && ctx.Err() == nil {
			s.logger.Error("push_subscription_ended", "Push subscription ended", "", err, nil)
		}
	}()

	fmt.Fprintf(s.out, "Table %d ready. Type 'help' for commands.\n", s.state.TableNumber)

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
		case <-s.restart:
			return fmt.Errorf("device reset by administrator")
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
		s.printHelp()
	case "menu":
		s.showMenu(ctx, fields[1:])
	case "add":
		s.addToCart(fields[1:])
	case "remove":
		s.removeFromCart(fields[1:])
	case "note":
		s.setNote(fields[1:], line)
	case "cart":
		s.renderCart()
	case "clear":
		s.cart.Clear()
	case "submit":
		s.submitOrder(ctx)
	case "orders":
		s.refreshOrders(ctx)
	case "pay":
		s.pay(ctx, fields[1:])
	case "ask":
		s.ask(ctx, fields[1:], line)
	case "lang":
		s.setLanguage(fields[1:])
	case "dark":
		s.toggleDarkMode()
	default:
		fmt.Fprintf(s.out, "Unknown command %q. Type 'help'.\n", fields[0])
	}
}

func (s *Station) printHelp() {
	fmt.Fprint(s.out, `Commands:
  menu [category] [search]   show the menu
  add <item-id> <qty>        add an item to the cart
  remove <line#>             remove a cart line
  note <line#> <text>        set notes on a cart line
  cart                       show the cart
  clear                      empty the cart
  submit                     place the order
  orders                     show active orders for this table
  pay <method>               pay all unpaid orders (cash|card|qr)
  ask <question>             ask the chatbot assistant
  lang <en|vi>               switch language
  dark                       toggle dark mode
`)
}

func (s *Station) showMenu(ctx context.Context, args []string) {
	if !s.catalog.Loaded() {
		loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := s.catalog.Load(loadCtx); err != nil {
			fmt.Fprintf(s.out, "Could not load menu: %v\n", err)
			return
		}
	}

	category, search := "All", ""
	if len(args) > 0 {
		category = args[0]
	}
	if len(args) > 1 {
		search = strings.Join(args[1:], " ")
	}

	items := s.catalog.Filter(category, search)
	if len(items) == 0 {
		fmt.Fprintln(s.out, "No menu items match.")
		return
	}
	for _, item := range items {
		marker := " "
		if !item.Available {
			marker = "✗"
		} else if item.BestSeller {
			marker = "★"
		}
		name := item.LocalizedName(s.state.Language)
		price := item.DiscountedPrice()
		if item.DiscountPercentage > 0 {
			fmt.Fprintf(s.out, "%s [%3d] %-30s %-12s $%.2f (was $%.2f)\n", marker, item.ID, name, item.Category, price, item.Price)
		} else {
			fmt.Fprintf(s.out, "%s [%3d] %-30s %-12s $%.2f\n", marker, item.ID, name, item.Category, price)
		}
	}
}

func (s *Station) addToCart(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: add <item-id> [qty]")
		return
	}
	itemID, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(s.out, "Item id must be a number.")
		return
	}
	qty := 1
	if len(args) > 1 {
		qty, err = strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintln(s.out, "Quantity must be a number.")
			return
		}
	}

	item, ok := s.catalog.Get(itemID)
	if !ok {
		fmt.Fprintf(s.out, "No menu item with id %d.\n", itemID)
		return
	}
	if !item.Available {
		fmt.Fprintf(s.out, "%s is out of stock.\n", item.Name)
		return
	}
	s.cart.Add(item, qty)
}

func (s *Station) removeFromCart(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: remove <line#>")
		return
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(s.out, "Line number must be a number.")
		return
	}
	s.cart.Remove(index - 1)
}

func (s *Station) setNote(args []string, line string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: note <line#> <text>")
		return
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(s.out, "Line number must be a number.")
		return
	}
	// Preserve the note text verbatim after the line number.
	idx := strings.Index(line, args[0])
	text := strings.TrimSpace(line[idx+len(args[0]):])
	s.cart.SetNotes(index-1, text)
}

// renderCart redraws the whole cart panel from store state.
func (s *Station) renderCart() {
	lines := s.cart.Lines()
	if len(lines) == 0 {
		fmt.Fprintln(s.out, "Cart is empty.")
		return
	}
	fmt.Fprintf(s.out, "Cart (%d items):\n", s.cart.Count())
	for i, line := range lines {
		fmt.Fprintf(s.out, "  %d. %-30s x%-3d $%.2f", i+1, line.Name, line.Quantity, line.UnitPrice*float64(line.Quantity))
		if line.Notes != "" {
			fmt.Fprintf(s.out, "  (%s)", line.Notes)
		}
		fmt.Fprintln(s.out)
	}
	fmt.Fprintf(s.out, "Total: $%.2f\n", s.cart.Total())
}

// renderOrders redraws the active-orders panel from store state.
func (s *Station) renderOrders() {
	orders := s.orders.Orders()
	if len(orders) == 0 {
		fmt.Fprintln(s.out, "No active orders.")
		return
	}
	fmt.Fprintf(s.out, "Active orders (%d):\n", len(orders))
	for _, order := range orders {
		fmt.Fprintf(s.out, "  Order #%d  %-12s $%.2f  %s\n",
			order.ID, order.Status, order.TotalAmount, order.CreatedAt.Local().Format("15:04"))
		for _, item := range order.Items {
			fmt.Fprintf(s.out, "    - %s x%d [%s]", item.Name, item.Quantity, item.Status)
			if item.Notes != "" {
				fmt.Fprintf(s.out, " (%s)", item.Notes)
			}
			fmt.Fprintln(s.out)
		}
	}
}

func (s *Station) submitOrder(ctx context.Context) {
	if s.state.TableNumber == 0 {
		fmt.Fprintln(s.out, "Table number is not set. Restart the station with --table.")
		return
	}
	if s.cart.Len() == 0 {
		fmt.Fprintln(s.out, "Please add at least one item to your order.")
		return
	}

	req := &models.CreateOrderRequest{
		TableNumber: s.state.TableNumber,
		Items:       s.cart.ToOrderItems(),
	}

	callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	resp, err := s.client.CreateOrder(callCtx, req)
	if err != nil {
		// Fail-loud: the cart stays intact for another attempt.
		fmt.Fprintf(s.out, "Error placing order: %v\n", err)
		return
	}

	fmt.Fprintf(s.out, "Order #%d has been placed successfully!\n", resp.ID)
	if err := s.checkout.OrderPlaced([]int{resp.ID}); err != nil {
		s.logger.Error("checkout_state_error", "Could not record order in checkout flow", "", err, nil)
	}

	// Cart is cleared only after the server confirms creation.
	s.cart.Clear()
	s.orders.RequestRefresh()
}

func (s *Station) refreshOrders(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.orders.Refresh(callCtx); err != nil {
		// Prior list stays displayed; the operator retries manually.
		fmt.Fprintf(s.out, "Error loading orders: %v ('orders' to retry)\n", err)
		return
	}
}

func (s *Station) pay(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: pay <cash|card|qr>")
		return
	}

	unpaid := s.orders.UnpaidForTable()
	if len(unpaid) == 0 {
		fmt.Fprintln(s.out, "You have no unpaid orders.")
		return
	}

	if s.checkout.State().Phase == payment.PhaseNoOrder {
		ids := make([]int, 0, len(unpaid))
		for _, order := range unpaid {
			ids = append(ids, order.ID)
		}
		if err := s.checkout.OrderPlaced(ids); err != nil {
			fmt.Fprintf(s.out, "Cannot start payment: %v\n", err)
			return
		}
	}

	if err := s.checkout.SelectMethod(args[0]); err != nil {
		fmt.Fprintf(s.out, "Cannot select payment method: %v\n", err)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	receipt, err := s.checkout.Confirm(callCtx)
	if err != nil {
		fmt.Fprintf(s.out, "Payment failed: %v\n", err)
		return
	}

	s.cart.Clear()
	s.checkout.Reset()
	fmt.Fprintf(s.out, "Payment confirmed. Receipt %s. Thank you for dining with us.\n", receipt)
}

func (s *Station) ask(ctx context.Context, args []string, line string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: ask <question>")
		return
	}
	idx := strings.Index(line, "ask")
	question := strings.TrimSpace(line[idx+len("ask"):])

	// The assistant can take a while to answer.
	callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := s.client.QueryChatbot(callCtx, question, s.state.TableNumber)
	if err != nil {
		fmt.Fprintf(s.out, "The assistant is unavailable right now: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, resp.Response)
}

func (s *Station) setLanguage(args []string) {
	if len(args) < 1 || (args[0] != "en" && args[0] != "vi") {
		fmt.Fprintln(s.out, "Usage: lang <en|vi>")
		return
	}
	s.state.Language = args[0]
	if err := s.devices.Save(s.state); err != nil {
		s.logger.Error("device_save_failed", "Failed to persist language", "", err, nil)
	}
	fmt.Fprintf(s.out, "Language set to %s.\n", args[0])
}

func (s *Station) toggleDarkMode() {
	s.state.DarkMode = !s.state.DarkMode
	if err := s.devices.Save(s.state); err != nil {
		s.logger.Error("device_save_failed", "Failed to persist dark mode", "", err, nil)
	}
	if s.state.DarkMode {
		fmt.Fprintln(s.out, "Dark mode on.")
	} else {
		fmt.Fprintln(s.out, "Dark mode off.")
	}
}
