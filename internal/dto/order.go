package dto

import (
	"time"

	"github.com/Additional-Code/orderdesk/internal/entity"
)

// Customer is the embedded customer snapshot as exposed over transports.
type Customer struct {
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Avatar *string `json:"avatar,omitempty"`
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID            string    `json:"id"`
	OrderNumber   string    `json:"order_number"`
	Customer      Customer  `json:"customer"`
	OrderDate     string    `json:"order_date"`
	Status        string    `json:"status"`
	TotalAmount   float64   `json:"total_amount"`
	PaymentStatus string    `json:"payment_status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FromOrder maps an order entity onto the transport representation.
func FromOrder(order *entity.Order) OrderResponse {
	return OrderResponse{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Customer: Customer{
			Name:   order.CustomerName,
			Email:  order.CustomerEmail,
			Avatar: order.CustomerAvatar,
		},
		OrderDate:     order.OrderDate,
		Status:        order.Status,
		TotalAmount:   order.TotalAmount,
		PaymentStatus: order.PaymentStatus,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

// OrderListResponse is a single page of orders.
type OrderListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

// OrderStats feeds the dashboard summary cards.
type OrderStats struct {
	TotalOrdersThisMonth int `json:"total_orders_this_month"`
	PendingOrders        int `json:"pending_orders"`
	ShippedOrders        int `json:"shipped_orders"`
	RefundedOrders       int `json:"refunded_orders"`
}

// CustomerInput carries customer fields on create requests.
type CustomerInput struct {
	Name   string  `json:"name"`
	Email  string  `json:"email"`
	Avatar *string `json:"avatar"`
}

// CreateOrderRequest is the POST /orders payload. Status and payment status
// fall back to pending/unpaid when omitted.
type CreateOrderRequest struct {
	Customer      CustomerInput `json:"customer"`
	TotalAmount   float64       `json:"total_amount"`
	Status        string        `json:"status"`
	PaymentStatus string        `json:"payment_status"`
}

// CustomerUpdate is the customer section of a partial update. Name and email
// are applied only when non-empty; avatar distinguishes absent from explicit
// null, and null clears the stored avatar.
type CustomerUpdate struct {
	Name   string           `json:"name"`
	Email  string           `json:"email"`
	Avatar Optional[string] `json:"avatar"`
}

// UpdateOrderRequest is the PUT /orders/:id payload. Every field is
// tri-state: absent fields leave the order untouched.
type UpdateOrderRequest struct {
	Customer      Optional[CustomerUpdate] `json:"customer"`
	Status        Optional[string]         `json:"status"`
	TotalAmount   Optional[float64]        `json:"total_amount"`
	PaymentStatus Optional[string]         `json:"payment_status"`
}

// BulkStatusRequest is the PUT /orders/bulk/status payload.
type BulkStatusRequest struct {
	OrderIDs []string `json:"order_ids"`
	Status   string   `json:"status"`
}

// BulkStatusResult reports the orders actually touched by a bulk status
// update; absent ids are skipped, not reported.
type BulkStatusResult struct {
	UpdatedCount int               `json:"updated_count"`
	Orders       []BulkStatusOrder `json:"orders"`
}

// BulkStatusOrder is one affected order inside a BulkStatusResult.
type BulkStatusOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// BulkDuplicateRequest is the POST /orders/bulk/duplicate payload.
type BulkDuplicateRequest struct {
	OrderIDs []string `json:"order_ids"`
}

// BulkDuplicateResult summarises the created duplicates.
type BulkDuplicateResult struct {
	DuplicatedCount int              `json:"duplicated_count"`
	NewOrders       []DuplicateOrder `json:"new_orders"`
}

// DuplicateOrder links a fresh duplicate to its source order.
type DuplicateOrder struct {
	ID              string `json:"id"`
	OrderNumber     string `json:"order_number"`
	OriginalOrderID string `json:"original_order_id"`
}

// BulkDeleteRequest is the DELETE /orders/bulk payload.
type BulkDeleteRequest struct {
	OrderIDs []string `json:"order_ids"`
}

// BulkDeleteResult lists the ids that actually existed and were removed.
type BulkDeleteResult struct {
	DeletedCount int      `json:"deleted_count"`
	DeletedIDs   []string `json:"deleted_ids"`
}
