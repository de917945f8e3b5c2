// Package manager implements the back-office console: menu item
// create/edit/delete, sales and popularity reports, and active-table
// monitoring.
package manager

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

// Station holds the manager console state.
type Station struct {
	client  *api.Client
	logger  *logger.Logger
	catalog *catalog.Cache
	bridge  *events.Bridge
	out     io.Writer
	in      io.Reader
}

// New builds a manager station.
func New(client *api.Client, log *logger.Logger, out io.Writer, in io.Reader) *Station {
	s := &Station{
		client: client,
		logger: log,
		out:    out,
		in:     in,
	}
	s.catalog = catalog.NewCache(client, log, nil)
	s.bridge = s.buildBridge()
	return s
}

func (s *Station) buildBridge() *events.Bridge {
	bridge := events.New(s.logger)
	reload := func(push.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.catalog.Load(ctx); err != nil {
			s.logger.Error("menu_reload_failed", "Menu reload after push event failed", "", err, nil)
		}
	}
	bridge.On(push.EventMenuUpdated, reload)
	bridge.On(push.EventPromoUpdated, reload)
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

// Run serves the console until the context ends.
func (s *Station) Run(ctx context.Context, sub push.Subscriber) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sub.RegisterDevice("manager", 0); err != nil {
		s.logger.Error("device_register_failed", "Device registration failed", "", err, nil)
	}

	loadCtx, loadCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := s.catalog.Load(loadCtx); err != nil {
		fmt.Fprintf(s.out, "Could not load menu: %v ('menu' to retry)\n", err)
	}
	loadCancel()

	go func() {
		if err := s.bridge.Run(ctx, sub); err != nil && ctx.Err() == nil {
			s.logger.Error("push_subscription_ended", "Push subscription ended", "", err, nil)
		}
	}()

	fmt.Fprintln(s.out, "Manager console ready. Type 'help' for commands.")

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
  menu [category]                          list menu items
  additem <name>|<category>|<price>[|<description>]
                                           add a menu item
  edititem <id> <field> <value>            change one field
                                           (name, namevi, category, price,
                                            description, discount, bestseller, image)
  delitem <id>                             delete a menu item
  report daily|weekly|monthly              sales report
  report popular [today|week|month]        popular items report
  report category [today|week|month]       per-category sales report
  tables                                   active-table monitor
`)
	case "menu":
		s.showMenu(ctx, fields[1:])
	case "additem":
		idx := strings.Index(line, "additem")
		s.addItem(ctx, strings.TrimSpace(line[idx+len("additem"):]))
	case "edititem":
		s.editItem(ctx, fields[1:], line)
	case "delitem":
		s.deleteItem(ctx, fields[1:])
	case "report":
		s.report(ctx, fields[1:])
	case "tables":
		s.showTables(ctx)
	default:
		fmt.Fprintf(s.out, "Unknown command %q. Type 'help'.\n", fields[0])
	}
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

	category := "All"
	if len(args) > 0 {
		category = args[0]
	}

	items := s.catalog.Filter(category, "")
	if len(items) == 0 {
		fmt.Fprintln(s.out, "No menu items.")
		return
	}
	fmt.Fprintf(s.out, "%-5s %-30s %-12s %-8s %-6s %-5s %s\n", "ID", "Name", "Category", "Price", "Disc%", "Best", "Stock")
	for _, item := range items {
		stock := "in"
		if !item.Available {
			stock = "out"
		}
		best := ""
		if item.BestSeller {
			best = "★"
		}
		fmt.Fprintf(s.out, "%-5d %-30s %-12s $%-7.2f %-6.0f %-5s %s\n",
			item.ID, item.Name, item.Category, item.Price, item.DiscountPercentage, best, stock)
	}
}

// parseNewItem parses "name|category|price[|description]" into a create
// request, enforcing the required fields.
func parseNewItem(arg string) (*models.MenuItemRequest, error) {
	parts := strings.Split(arg, "|")
	if len(parts) < 3 {
		return nil, fmt.Errorf("expected name|category|price")
	}
	name := strings.TrimSpace(parts[0])
	category := strings.TrimSpace(parts[1])
	price, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q", strings.TrimSpace(parts[2]))
	}
	if name == "" || category == "" {
		return nil, fmt.Errorf("name and category are required")
	}
	if price <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}

	req := &models.MenuItemRequest{Name: name, Category: category, Price: price}
	if len(parts) > 3 {
		req.Description = strings.TrimSpace(parts[3])
	}
	return req, nil
}

// requestFromItem seeds an update request with the item's current fields
// so an edit changes exactly one of them.
func requestFromItem(item models.MenuItem) *models.MenuItemRequest {
	return &models.MenuItemRequest{
		Name:               item.Name,
		NameVi:             item.NameVi,
		Category:           item.Category,
		Price:              item.Price,
		Description:        item.Description,
		ImagePath:          item.ImagePath,
		BestSeller:         item.BestSeller,
		DiscountPercentage: item.DiscountPercentage,
	}
}

// applyEdit sets one field of an update request from its text value.
func applyEdit(req *models.MenuItemRequest, field, value string) error {
	switch field {
	case "name":
		if value == "" {
			return fmt.Errorf("name is required")
		}
		req.Name = value
	case "namevi":
		req.NameVi = value
	case "category":
		if value == "" {
			return fmt.Errorf("category is required")
		}
		req.Category = value
	case "price":
		price, err := strconv.ParseFloat(value, 64)
		if err != nil || price <= 0 {
			return fmt.Errorf("price must be a positive number")
		}
		req.Price = price
	case "description":
		req.Description = value
	case "discount":
		discount, err := strconv.ParseFloat(value, 64)
		if err != nil || discount < 0 || discount > 100 {
			return fmt.Errorf("discount must be between 0 and 100")
		}
		req.DiscountPercentage = discount
	case "bestseller":
		switch value {
		case "on":
			req.BestSeller = true
		case "off":
			req.BestSeller = false
		default:
			return fmt.Errorf("bestseller must be on or off")
		}
	case "image":
		req.ImagePath = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

func (s *Station) addItem(ctx context.Context, arg string) {
	req, err := parseNewItem(arg)
	if err != nil {
		fmt.Fprintf(s.out, "Usage: additem <name>|<category>|<price>[|<description>] (%v)\n", err)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	id, err := s.client.CreateMenuItem(callCtx, req)
	if err != nil {
		fmt.Fprintf(s.out, "Error adding menu item: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Menu item #%d %q added.\n", id, req.Name)
	s.reloadMenu(ctx)
}

func (s *Station) editItem(ctx context.Context, args []string, line string) {
	if len(args) < 3 {
		fmt.Fprintln(s.out, "Usage: edititem <id> <field> <value>")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(s.out, "Item id must be a number.")
		return
	}
	item, ok := s.catalog.Get(id)
	if !ok {
		fmt.Fprintf(s.out, "No menu item with id %d.\n", id)
		return
	}

	field := args[1]
	// Keep the value verbatim after the field name.
	idx := strings.Index(line, field)
	value := strings.TrimSpace(line[idx+len(field):])

	req := requestFromItem(item)
	if err := applyEdit(req, field, value); err != nil {
		fmt.Fprintf(s.out, "Cannot edit %s: %v\n", field, err)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.client.UpdateMenuItem(callCtx, id, req); err != nil {
		fmt.Fprintf(s.out, "Error updating menu item #%d: %v\n", id, err)
		return
	}
	fmt.Fprintf(s.out, "Menu item #%d updated.\n", id)
	s.reloadMenu(ctx)
}

func (s *Station) deleteItem(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Item id required.")
		return
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintln(s.out, "Item id must be a number.")
		return
	}
	item, ok := s.catalog.Get(id)
	if !ok {
		fmt.Fprintf(s.out, "No menu item with id %d.\n", id)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.client.DeleteMenuItem(callCtx, id); err != nil {
		fmt.Fprintf(s.out, "Error deleting %s: %v\n", item.Name, err)
		return
	}
	fmt.Fprintf(s.out, "%s deleted from the menu.\n", item.Name)
	s.reloadMenu(ctx)
}

func (s *Station) reloadMenu(ctx context.Context) {
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.catalog.Load(loadCtx); err != nil {
		s.logger.Error("menu_reload_failed", "Menu reload after edit failed", "", err, nil)
	}
}

func (s *Station) report(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: report daily|weekly|monthly|popular|category [period]")
		return
	}

	period := ""
	if len(args) > 1 {
		period = args[1]
	}

	callCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch args[0] {
	case "daily", "weekly", "monthly":
		s.salesReport(callCtx, args[0])
	case "popular":
		s.popularReport(callCtx, period)
	case "category":
		s.categoryReport(callCtx, period)
	default:
		fmt.Fprintf(s.out, "Unknown report %q.\n", args[0])
	}
}

func (s *Station) salesReport(ctx context.Context, granularity string) {
	rows, err := s.client.GetSalesReport(ctx, granularity)
	if err != nil {
		fmt.Fprintf(s.out, "Error loading %s report: %v\n", granularity, err)
		return
	}
	if len(rows) == 0 {
		fmt.Fprintln(s.out, "No sales data for this period.")
		return
	}

	fmt.Fprintf(s.out, "%-12s %-8s %-8s %-12s %s\n", "Period", "Orders", "Items", "Sales", "Avg order")
	var orders, items int
	var sales float64
	for _, row := range rows {
		orders += row.OrderCount
		items += row.ItemCount
		sales += row.TotalAmount
		fmt.Fprintf(s.out, "%-12s %-8d %-8d $%-11.2f $%.2f\n",
			row.Label(), row.OrderCount, row.ItemCount, row.TotalAmount, row.AverageOrderValue())
	}
	fmt.Fprintf(s.out, "%-12s %-8d %-8d $%.2f\n", "Total", orders, items, sales)
}

func (s *Station) popularReport(ctx context.Context, period string) {
	rows, err := s.client.GetPopularItems(ctx, period)
	if err != nil {
		fmt.Fprintf(s.out, "Error loading popular-items report: %v\n", err)
		return
	}
	if len(rows) == 0 {
		fmt.Fprintln(s.out, "No sales data for this period.")
		return
	}

	total := 0.0
	for _, row := range rows {
		total += row.Revenue
	}

	fmt.Fprintf(s.out, "%-5s %-30s %-12s %-8s %-10s %s\n", "Rank", "Item", "Category", "Sold", "Revenue", "% of sales")
	for i, row := range rows {
		share := 0.0
		if total > 0 {
			share = row.Revenue / total * 100
		}
		fmt.Fprintf(s.out, "%-5d %-30s %-12s %-8d $%-9.2f %.1f%%\n",
			i+1, row.Name, row.Category, row.Quantity, row.Revenue, share)
	}
}

func (s *Station) categoryReport(ctx context.Context, period string) {
	rows, err := s.client.GetCategorySales(ctx, period)
	if err != nil {
		fmt.Fprintf(s.out, "Error loading category report: %v\n", err)
		return
	}
	if len(rows) == 0 {
		fmt.Fprintln(s.out, "No sales data for this period.")
		return
	}

	total := 0.0
	for _, row := range rows {
		total += row.Revenue
	}

	fmt.Fprintf(s.out, "%-15s %-8s %-10s %s\n", "Category", "Items", "Revenue", "% of revenue")
	for _, row := range rows {
		share := 0.0
		if total > 0 {
			share = row.Revenue / total * 100
		}
		fmt.Fprintf(s.out, "%-15s %-8d $%-9.2f %.1f%%\n", row.Category, row.ItemCount, row.Revenue, share)
	}
}

func (s *Station) showTables(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tables, err := s.client.GetActiveTables(callCtx)
	if err != nil {
		fmt.Fprintf(s.out, "Error loading active tables: %v ('tables' to retry)\n", err)
		return
	}
	if len(tables) == 0 {
		fmt.Fprintln(s.out, "No tables connected.")
		return
	}

	for _, table := range tables {
		status := "Available"
		if table.Busy() {
			status = "Busy"
		}
		fmt.Fprintf(s.out, "Table %d  %s  %s  last active %s\n",
			table.TableNumber, status, table.IPAddress, table.LastActive)
		for _, order := range table.Orders {
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
}
