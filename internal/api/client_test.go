package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tableside/internal/logger"
	"tableside/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(server.URL, 5*time.Second, logger.New("api-test"))
	return client, server
}

func TestGetMenu(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/menu" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode([]models.MenuItem{
			{ID: 1, Name: "Pho Bo", Price: 12.50, Available: true},
			{ID: 2, Name: "Banh Mi", Price: 6.00, Available: false},
		})
	}))

	items, err := client.GetMenu(context.Background())
	if err != nil {
		t.Fatalf("GetMenu returned error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Name != "Pho Bo" || items[1].Available {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestMenuItemLifecycle(t *testing.T) {
	var gotCreate, gotUpdate models.MenuItemRequest
	var gotDeletePath string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/menu":
			if err := json.NewDecoder(r.Body).Decode(&gotCreate); err != nil {
				t.Errorf("decode create body: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]interface{}{"id": 31})
		case r.Method == http.MethodPut && r.URL.Path == "/api/menu/31":
			if err := json.NewDecoder(r.Body).Decode(&gotUpdate); err != nil {
				t.Errorf("decode update body: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]string{"message": "updated"})
		case r.Method == http.MethodDelete && r.URL.Path == "/api/menu/31":
			gotDeletePath = r.URL.Path
			json.NewEncoder(w).Encode(map[string]string{"message": "deleted"})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))

	id, err := client.CreateMenuItem(context.Background(), &models.MenuItemRequest{
		Name: "Bun Cha", Category: "Noodles", Price: 11.50, BestSeller: true,
	})
	if err != nil {
		t.Fatalf("CreateMenuItem returned error: %v", err)
	}
	if id != 31 {
		t.Errorf("created id = %d, want 31", id)
	}
	if gotCreate.Name != "Bun Cha" || !gotCreate.BestSeller {
		t.Errorf("unexpected create body: %+v", gotCreate)
	}

	if err := client.UpdateMenuItem(context.Background(), 31, &models.MenuItemRequest{
		Name: "Bun Cha", Category: "Noodles", Price: 12.00, DiscountPercentage: 10,
	}); err != nil {
		t.Fatalf("UpdateMenuItem returned error: %v", err)
	}
	if gotUpdate.Price != 12.00 || gotUpdate.DiscountPercentage != 10 {
		t.Errorf("unexpected update body: %+v", gotUpdate)
	}

	if err := client.DeleteMenuItem(context.Background(), 31); err != nil {
		t.Fatalf("DeleteMenuItem returned error: %v", err)
	}
	if gotDeletePath != "/api/menu/31" {
		t.Errorf("delete path = %q", gotDeletePath)
	}
}

func TestGetSalesReport(t *testing.T) {
	var gotPath string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode([]models.SalesPeriod{
			{Date: "2026-08-30", OrderCount: 12, ItemCount: 30, TotalAmount: 412.50},
			{Date: "2026-08-31", OrderCount: 8, ItemCount: 19, TotalAmount: 240.00},
		})
	}))

	rows, err := client.GetSalesReport(context.Background(), "daily")
	if err != nil {
		t.Fatalf("GetSalesReport returned error: %v", err)
	}
	if gotPath != "/api/reports/daily" {
		t.Errorf("path = %q", gotPath)
	}
	if len(rows) != 2 || rows[0].Label() != "2026-08-30" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if got := rows[1].AverageOrderValue(); got != 30.00 {
		t.Errorf("average order value = %v, want 30.00", got)
	}
}

func TestGetPopularItems_PeriodFilter(t *testing.T) {
	var gotQuery string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/reports/popular-items" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode([]models.PopularItem{
			{Name: "Pho Bo", Category: "Noodles", Quantity: 42, Revenue: 525.00},
		})
	}))

	rows, err := client.GetPopularItems(context.Background(), "week")
	if err != nil {
		t.Fatalf("GetPopularItems returned error: %v", err)
	}
	if gotQuery != "period=week" {
		t.Errorf("query = %q, want period filter", gotQuery)
	}
	if len(rows) != 1 || rows[0].Quantity != 42 {
		t.Errorf("unexpected rows: %+v", rows)
	}

	if _, err := client.GetPopularItems(context.Background(), ""); err != nil {
		t.Fatalf("GetPopularItems returned error: %v", err)
	}
	if gotQuery != "" {
		t.Errorf("query = %q, expected none for all time", gotQuery)
	}
}

func TestGetCategorySales(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/reports/category" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]models.CategorySales{
			{Category: "Noodles", ItemCount: 61, Revenue: 765.00},
			{Category: "Drinks", ItemCount: 35, Revenue: 122.50},
		})
	}))

	rows, err := client.GetCategorySales(context.Background(), "")
	if err != nil {
		t.Fatalf("GetCategorySales returned error: %v", err)
	}
	if len(rows) != 2 || rows[1].Category != "Drinks" {
		t.Errorf("unexpected rows: %+v", rows)
	}
}

func TestGetActiveTables(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/admin/tables/active" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]models.ActiveTable{
			{TableNumber: 4, IPAddress: "10.0.0.4", Orders: []models.Order{{ID: 17, Status: models.StatusPending}}},
			{TableNumber: 6},
		})
	}))

	tables, err := client.GetActiveTables(context.Background())
	if err != nil {
		t.Fatalf("GetActiveTables returned error: %v", err)
	}
	if len(tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(tables))
	}
	if !tables[0].Busy() || tables[1].Busy() {
		t.Errorf("unexpected busy flags: %+v", tables)
	}
}

func TestQueryChatbot(t *testing.T) {
	var gotReq ChatbotQueryRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/chatbot" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(ChatbotQueryResponse{Response: "The pho is gluten free."})
	}))

	resp, err := client.QueryChatbot(context.Background(), "is the pho gluten free?", 12)
	if err != nil {
		t.Fatalf("QueryChatbot returned error: %v", err)
	}
	if resp.Response != "The pho is gluten free." {
		t.Errorf("unexpected answer: %q", resp.Response)
	}
	if gotReq.Message != "is the pho gluten free?" || gotReq.TableNumber != "12" || !gotReq.UseRAG {
		t.Errorf("unexpected request body: %+v", gotReq)
	}

	// Untagged devices send "unknown" instead of a table number.
	if _, err := client.QueryChatbot(context.Background(), "hours?", 0); err != nil {
		t.Fatalf("QueryChatbot returned error: %v", err)
	}
	if gotReq.TableNumber != "unknown" {
		t.Errorf("table = %q, want unknown", gotReq.TableNumber)
	}
}

func TestGetTableOrders_SendsTableAuth(t *testing.T) {
	fixed := time.UnixMilli(1748344512345)
	var gotAuth string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/orders/table/12" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("X-Table-Auth")
		json.NewEncoder(w).Encode([]models.Order{{ID: 7, TableNumber: 12}})
	}))
	client.now = func() time.Time { return fixed }

	orders, err := client.GetTableOrders(context.Background(), 12)
	if err != nil {
		t.Fatalf("GetTableOrders returned error: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != 7 {
		t.Fatalf("unexpected orders: %+v", orders)
	}

	want := models.TableAuth(12, fixed)
	if gotAuth != want {
		t.Errorf("X-Table-Auth = %q, want %q", gotAuth, want)
	}
}

func TestCreateOrder(t *testing.T) {
	var gotBody models.CreateOrderRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/orders" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("missing json content type")
		}
		if r.Header.Get("X-Table-Auth") == "" {
			t.Errorf("missing X-Table-Auth header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.CreateOrderResponse{ID: 42, Status: "Pending", TotalAmount: 25.00})
	}))

	req := &models.CreateOrderRequest{
		TableNumber: 3,
		Items: []models.CreateOrderItem{
			{MenuItemID: 1, Name: "Pho Bo", Price: 12.50, Quantity: 2},
		},
	}
	resp, err := client.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if resp.ID != 42 {
		t.Errorf("order id = %d, want 42", resp.ID)
	}
	if gotBody.TableNumber != 3 || len(gotBody.Items) != 1 || gotBody.Items[0].Quantity != 2 {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
}

func TestGetOrders_StatusFilter(t *testing.T) {
	var gotQuery string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode([]models.Order{})
	}))

	if _, err := client.GetOrders(context.Background(), "Pending"); err != nil {
		t.Fatalf("GetOrders returned error: %v", err)
	}
	if gotQuery != "status=Pending" {
		t.Errorf("query = %q, want status filter", gotQuery)
	}

	if _, err := client.GetOrders(context.Background(), "All"); err != nil {
		t.Fatalf("GetOrders returned error: %v", err)
	}
	if gotQuery != "" {
		t.Errorf("query = %q, expected no filter for All", gotQuery)
	}
}

func TestProcessPayment(t *testing.T) {
	var gotReq PaymentRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/payments" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(PaymentResponse{ReceiptNumber: gotReq.ReceiptNumber, Status: "paid"})
	}))

	req := &PaymentRequest{
		OrderIDs:       []int{7, 9},
		TableNumber:    4,
		Method:         "cash",
		Amount:         31.50,
		ReceiptNumber:  "RCP-512345",
		IdempotencyKey: "key-1",
	}
	resp, err := client.ProcessPayment(context.Background(), req)
	if err != nil {
		t.Fatalf("ProcessPayment returned error: %v", err)
	}
	if resp.Status != "paid" || resp.ReceiptNumber != "RCP-512345" {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(gotReq.OrderIDs) != 2 || gotReq.IdempotencyKey != "key-1" {
		t.Errorf("unexpected request body: %+v", gotReq)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantMsg    string
		wantStatus int
	}{
		{"json error body", http.StatusBadRequest, `{"error":"table not assigned"}`, "table not assigned", http.StatusBadRequest},
		{"empty body", http.StatusNotFound, ``, "Not Found", http.StatusNotFound},
		{"non-json body", http.StatusInternalServerError, `boom`, "Internal Server Error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			_, err := client.GetMenu(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}

			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *api.Error, got %T", err)
			}
			if apiErr.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", apiErr.StatusCode, tt.wantStatus)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	client.timeout = 50 * time.Millisecond
	client.http.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := client.GetMenu(context.Background())
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("request did not respect timeout, took %v", elapsed)
	}
}
