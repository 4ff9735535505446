package application

import (
	"context"
	"encoding/json"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/DanielPopoola/storefront-payments/internal/infrastructure/paypal"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayPalClient is the port for the PayPal REST API.
type PayPalClient interface {
	CreateOrder(ctx context.Context, req paypal.CreateOrderRequest) (*paypal.Order, error)
	GetOrder(ctx context.Context, orderID string) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.Order, error)
	Refund(ctx context.Context, captureID string, req paypal.RefundRequest) (*paypal.Refund, error)
	VerifyWebhookSignature(ctx context.Context, headers map[string]string, body []byte, webhookID string) (*paypal.VerifyWebhookResponse, error)
}

// CaptureRecord is everything needed to persist one provider capture.
type CaptureRecord struct {
	ProviderOrderID string
	CaptureID       string
	Amount          decimal.Decimal
	Currency        string
	PaymentStatus   domain.PaymentStatus
	OrderStatus     domain.OrderStatus
	Payer           domain.Payer
	RawResponse     json.RawMessage
}

// PaymentStore persists orders and payments. UpsertCaptureResult is the
// idempotency boundary: one payment per capture id, however many callers race.
type PaymentStore interface {
	UpsertCaptureResult(ctx context.Context, rec CaptureRecord) (payment *domain.Payment, created bool, err error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	FindByCaptureID(ctx context.Context, captureID string) (*domain.Payment, error)
	// MarkCaptureCompleted promotes a payment stored from a PENDING capture
	// (and its order) once the capture completes. Amount and capture id stay.
	MarkCaptureCompleted(ctx context.Context, captureID string) (payment *domain.Payment, promoted bool, err error)
	List(ctx context.Context, limit, offset int) ([]*domain.Payment, int, error)
	FindOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	AppendRefund(ctx context.Context, paymentID uuid.UUID, refund json.RawMessage) (*domain.Payment, error)
}

// WebhookStore keeps inbound webhook events, at most one row per event id.
type WebhookStore interface {
	InsertIfAbsent(ctx context.Context, event *domain.WebhookEvent) (stored *domain.WebhookEvent, inserted bool, err error)
}

// CaptureAttemptStore tracks captures whose outcome is unknown.
type CaptureAttemptStore interface {
	RecordAttempt(ctx context.Context, providerOrderID, lastErr string, nextRetryAt time.Time) error
	FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.CaptureAttempt, error)
	MarkResolved(ctx context.Context, providerOrderID string) error
	ScheduleRetry(ctx context.Context, providerOrderID, lastErr string, nextRetryAt time.Time) error
	MarkAbandoned(ctx context.Context, providerOrderID, lastErr string) error
}
