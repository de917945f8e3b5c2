package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tableside/internal/logger"
	"tableside/internal/models"
)

// Error is returned for non-2xx API responses. Write paths surface it to
// the operator; read paths keep prior state and offer a retry.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// Client talks to the restaurant backend REST API. Every call carries a
// bounded timeout so a stuck request can never leave a station control
// disabled indefinitely.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger
	timeout time.Duration
	now     func() time.Time
}

// New creates an API client against the given base URL.
func New(baseURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  log,
		timeout: timeout,
		now:     time.Now,
	}
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, body, out interface{}) error {
	requestID := logger.GenerateRequestID()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("api_request_failed", fmt.Sprintf("%s %s failed", method, path), requestID, err, nil)
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api_request_completed", fmt.Sprintf("%s %s", method, path), requestID, map[string]interface{}{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, &errBody); err != nil || errBody.Error == "" {
			errBody.Error = http.StatusText(resp.StatusCode)
		}
		return &Error{StatusCode: resp.StatusCode, Message: errBody.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// tableHeaders builds the table-scoped auth header.
func (c *Client) tableHeaders(tableNumber int) map[string]string {
	return map[string]string{
		"X-Table-Auth": models.TableAuth(tableNumber, c.now()),
	}
}

// GetMenu fetches the full menu catalog.
func (c *Client) GetMenu(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if err := c.do(ctx, http.MethodGet, "/api/menu", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetMenuItem fetches a single catalog entry.
func (c *Client) GetMenuItem(ctx context.Context, itemID int) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/menu/%d", itemID), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateMenuItem adds a catalog entry and returns its new id.
func (c *Client) CreateMenuItem(ctx context.Context, req *models.MenuItemRequest) (int, error) {
	var resp struct {
		ID int `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/menu", nil, req, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

// UpdateMenuItem overwrites a catalog entry.
func (c *Client) UpdateMenuItem(ctx context.Context, itemID int, req *models.MenuItemRequest) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/menu/%d", itemID), nil, req, nil)
}

// DeleteMenuItem removes a catalog entry.
func (c *Client) DeleteMenuItem(ctx context.Context, itemID int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/menu/%d", itemID), nil, nil, nil)
}

// SetMenuItemAvailability toggles a catalog entry in or out of stock.
func (c *Client) SetMenuItemAvailability(ctx context.Context, itemID int, available bool) error {
	body := map[string]bool{"available": available}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/menu/%d/availability", itemID), nil, body, nil)
}

// CreateOrder submits a new order for a table.
func (c *Client) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.CreateOrderResponse, error) {
	var resp models.CreateOrderResponse
	headers := c.tableHeaders(req.TableNumber)
	if err := c.do(ctx, http.MethodPost, "/api/orders", headers, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetOrders lists orders, optionally filtered by status.
func (c *Client) GetOrders(ctx context.Context, status string) ([]models.Order, error) {
	path := "/api/orders"
	if status != "" && status != "All" {
		path += "?status=" + status
	}
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder fetches a single order with its items.
func (c *Client) GetOrder(ctx context.Context, orderID int) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/orders/%d", orderID), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetTableOrders lists a table's orders using the table auth token.
func (c *Client) GetTableOrders(ctx context.Context, tableNumber int) ([]models.Order, error) {
	var orders []models.Order
	path := fmt.Sprintf("/api/orders/table/%d", tableNumber)
	if err := c.do(ctx, http.MethodGet, path, c.tableHeaders(tableNumber), nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrder changes an order's status, optionally recording payment
// details when the order is being settled.
func (c *Client) UpdateOrder(ctx context.Context, orderID, tableNumber int, req *models.UpdateOrderRequest) error {
	path := fmt.Sprintf("/api/orders/%d", orderID)
	return c.do(ctx, http.MethodPut, path, c.tableHeaders(tableNumber), req, nil)
}

// UpdateOrderItem changes a single order item's status.
func (c *Client) UpdateOrderItem(ctx context.Context, itemID int, status models.OrderStatus) error {
	path := fmt.Sprintf("/api/order-items/%d", itemID)
	return c.do(ctx, http.MethodPut, path, nil, &models.UpdateOrderItemRequest{Status: status}, nil)
}

// PaymentRequest describes a payment to process.
type PaymentRequest struct {
	OrderIDs       []int   `json:"order_ids"`
	TableNumber    int     `json:"table_number"`
	Method         string  `json:"method"`
	Amount         float64 `json:"amount"`
	ReceiptNumber  string  `json:"receipt_number"`
	IdempotencyKey string  `json:"idempotency_key"`
}

// PaymentResponse is the payment endpoint's confirmation.
type PaymentResponse struct {
	ReceiptNumber string `json:"receipt_number"`
	Status        string `json:"status"`
}

// ProcessPayment submits a payment for one or more orders.
func (c *Client) ProcessPayment(ctx context.Context, req *PaymentRequest) (*PaymentResponse, error) {
	var resp PaymentResponse
	if err := c.do(ctx, http.MethodPost, "/api/payments", c.tableHeaders(req.TableNumber), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetSalesReport fetches the sales report for a granularity: "daily",
// "weekly" or "monthly".
func (c *Client) GetSalesReport(ctx context.Context, granularity string) ([]models.SalesPeriod, error) {
	var rows []models.SalesPeriod
	path := "/api/reports/" + granularity
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetPopularItems fetches the popular-items report. period narrows the
// range ("today", "week", "month"); empty means all time.
func (c *Client) GetPopularItems(ctx context.Context, period string) ([]models.PopularItem, error) {
	path := "/api/reports/popular-items"
	if period != "" {
		path += "?period=" + period
	}
	var rows []models.PopularItem
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetCategorySales fetches the per-category sales report.
func (c *Client) GetCategorySales(ctx context.Context, period string) ([]models.CategorySales, error) {
	path := "/api/reports/category"
	if period != "" {
		path += "?period=" + period
	}
	var rows []models.CategorySales
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetActiveTables lists connected tables with their open orders.
func (c *Client) GetActiveTables(ctx context.Context) ([]models.ActiveTable, error) {
	var tables []models.ActiveTable
	if err := c.do(ctx, http.MethodGet, "/api/admin/tables/active", nil, nil, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

// GetDevices lists connected client devices.
func (c *Client) GetDevices(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device
	if err := c.do(ctx, http.MethodGet, "/api/admin/devices", nil, nil, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// ResetDevice asks the server to broadcast a reset to one device.
func (c *Client) ResetDevice(ctx context.Context, deviceID string) error {
	path := fmt.Sprintf("/api/admin/devices/%s/reset", deviceID)
	return c.do(ctx, http.MethodPost, path, nil, nil, nil)
}

// GetChatbotSettings reads the chatbot configuration.
func (c *Client) GetChatbotSettings(ctx context.Context) (*models.ChatbotSettings, error) {
	var settings models.ChatbotSettings
	if err := c.do(ctx, http.MethodGet, "/api/admin/chatbot-settings", nil, nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// ToggleChatbot enables or disables the chatbot assistant.
func (c *Client) ToggleChatbot(ctx context.Context, enabled bool) error {
	body := map[string]bool{"enabled": enabled}
	return c.do(ctx, http.MethodPut, "/api/admin/chatbot-settings/toggle", nil, body, nil)
}

// ChatbotQueryRequest is a question for the chatbot assistant. The field
// names follow the chatbot service's own casing.
type ChatbotQueryRequest struct {
	Message     string `json:"message"`
	TableNumber string `json:"tableNumber,omitempty"`
	UseRAG      bool   `json:"useRag"`
}

// ChatbotQueryResponse is the assistant's answer.
type ChatbotQueryResponse struct {
	Response string `json:"response"`
}

// QueryChatbot asks the chatbot assistant a question. tableNumber 0 is
// sent as "unknown", matching untagged devices.
func (c *Client) QueryChatbot(ctx context.Context, message string, tableNumber int) (*ChatbotQueryResponse, error) {
	table := "unknown"
	if tableNumber > 0 {
		table = strconv.Itoa(tableNumber)
	}
	req := &ChatbotQueryRequest{Message: message, TableNumber: table, UseRAG: true}

	var resp ChatbotQueryResponse
	if err := c.do(ctx, http.MethodPost, "/api/chatbot", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
