package models

import (
	"time"
)

// OrderStatus represents the lifecycle status of an order or order item
type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusInProgress OrderStatus = "In Progress"
	StatusReady      OrderStatus = "Ready"
	StatusDelivered  OrderStatus = "Delivered"
	StatusCompleted  OrderStatus = "Completed"
	StatusCancelled  OrderStatus = "Cancelled"
)

// IsTerminal reports whether the status ends an order's visible lifecycle.
// Terminal orders are never shown on station boards.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// OrderItem represents a single line of a submitted order
type OrderItem struct {
	ID         int         `json:"id"`
	MenuItemID int         `json:"menu_item_id"`
	Name       string      `json:"name"`
	Quantity   int         `json:"quantity"`
	UnitPrice  float64     `json:"price"`
	Status     OrderStatus `json:"status"`
	Notes      string      `json:"notes,omitempty"`
}

// Order is a server-owned snapshot of a submitted order. Clients never
// mutate it locally except to drop orders optimistically marked paid.
type Order struct {
	ID            int         `json:"id"`
	TableNumber   int         `json:"table_number"`
	Status        OrderStatus `json:"status"`
	Items         []OrderItem `json:"items"`
	TotalAmount   float64     `json:"total_amount"`
	PaymentStatus string      `json:"payment_status,omitempty"`
	ItemCount     int         `json:"item_count,omitempty"`
	CustomerName  string      `json:"customer_name,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
}

// CreateOrderItem is one line of an order submission.
type CreateOrderItem struct {
	MenuItemID int     `json:"menu_item_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Notes      string  `json:"notes"`
}

// CreateOrderRequest represents the request to create a new order
type CreateOrderRequest struct {
	TableNumber int               `json:"table_number"`
	Items       []CreateOrderItem `json:"items"`
}

// CreateOrderResponse represents the response after creating an order
type CreateOrderResponse struct {
	ID          int     `json:"id"`
	Status      string  `json:"status"`
	TotalAmount float64 `json:"total_amount"`
}

// UpdateOrderRequest updates an order's status, optionally recording how
// it was settled.
type UpdateOrderRequest struct {
	Status        OrderStatus `json:"status"`
	PaymentMethod string      `json:"payment_method,omitempty"`
	ReceiptNumber string      `json:"receipt_number,omitempty"`
}

// UpdateOrderItemRequest moves a single order item through its lifecycle.
type UpdateOrderItemRequest struct {
	Status OrderStatus `json:"status"`
}
