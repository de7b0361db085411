package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Order statuses accepted by the API and enforced by the schema.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusRefunded  = "refunded"
)

// Payment statuses.
const (
	PaymentPaid   = "paid"
	PaymentUnpaid = "unpaid"
)

// ValidStatus reports whether s is one of the order statuses.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusCompleted || s == StatusRefunded
}

// ValidPaymentStatus reports whether s is one of the payment statuses.
func ValidPaymentStatus(s string) bool {
	return s == PaymentPaid || s == PaymentUnpaid
}

// Order represents a purchase order stored in the relational database.
// The customer is an embedded snapshot, not a reference: editing it on one
// order never touches another order even when the email matches.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID             string    `bun:"id,pk"`
	OrderNumber    string    `bun:"order_number"`
	CustomerName   string    `bun:"customer_name"`
	CustomerEmail  string    `bun:"customer_email"`
	CustomerAvatar *string   `bun:"customer_avatar"`
	OrderDate      string    `bun:"order_date"`
	Status         string    `bun:"status"`
	TotalAmount    float64   `bun:"total_amount"`
	PaymentStatus  string    `bun:"payment_status"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero"`
}
