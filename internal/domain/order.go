package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

const orderNumberPrefix = "PP-"

// Order is the storefront order shell created alongside a captured payment.
type Order struct {
	ID          uuid.UUID
	OrderNumber string
	TotalAmount decimal.Decimal
	Currency    string
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderNumberFor derives the storefront order number from the PayPal order id.
func OrderNumberFor(providerOrderID string) string {
	return orderNumberPrefix + providerOrderID
}
