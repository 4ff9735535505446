package services

import (
	"encoding/json"

	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateOrderCommand struct {
	Items     []domain.LineItem
	Currency  string
	ReturnURL string
	CancelURL string
	BrandName string
}

// CaptureCommand captures a PayPal order. Leaving Items empty opts out of cart
// reconciliation; only the provider's own figures are then checked.
type CaptureCommand struct {
	OrderID string
	Items   []domain.LineItem
}

type RefundCommand struct {
	PaymentID uuid.UUID
	Amount    *decimal.Decimal
	Currency  string
	Note      string
}

type CaptureResult struct {
	ProviderOrderID string
	CaptureID       string
	Status          domain.PaymentStatus
	Payment         *domain.Payment
	RawResponse     json.RawMessage
	// Replayed is set when the capture had already been stored by an earlier call.
	Replayed bool
}

type WebhookResult struct {
	Event     *domain.WebhookEvent
	Duplicate bool
	Verified  bool
}

type RefundResult struct {
	Payment  *domain.Payment
	RefundID string
	Status   string
	Raw      json.RawMessage
}

type PaymentPage struct {
	Payments []*domain.Payment
	Total    int
	Page     int
	PerPage  int
	Pages    int
}

type PaymentDetail struct {
	Payment *domain.Payment
	Order   *domain.Order
}
