package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/storefront-payments/internal/application/services"
	"github.com/DanielPopoola/storefront-payments/internal/infrastructure/paypal"
	"github.com/go-playground/validator"
	"github.com/google/uuid"
)

type CheckoutService interface {
	CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (*paypal.Order, error)
}

type CaptureService interface {
	Capture(ctx context.Context, cmd services.CaptureCommand) (*services.CaptureResult, error)
}

type WebhookService interface {
	HandleEvent(ctx context.Context, header map[string][]string, body []byte) (*services.WebhookResult, error)
}

type RefundService interface {
	Refund(ctx context.Context, cmd services.RefundCommand) (*services.RefundResult, error)
}

type QueryService interface {
	ListPayments(ctx context.Context, page, perPage int) (*services.PaymentPage, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*services.PaymentDetail, error)
}

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// maxBodyBytes caps JSON request bodies, webhook deliveries included.
const maxBodyBytes = 1 << 20

type Handlers struct {
	checkout CheckoutService
	capture  CaptureService
	webhooks WebhookService
	refunds  RefundService
	query    QueryService
	health   HealthChecker
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandlers(
	checkout CheckoutService,
	capture CaptureService,
	webhooks WebhookService,
	refunds RefundService,
	query QueryService,
	health HealthChecker,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		checkout: checkout,
		capture:  capture,
		webhooks: webhooks,
		refunds:  refunds,
		query:    query,
		health:   health,
		validate: validator.New(),
		logger:   logger,
	}
}

// RegisterRoutes mounts every endpoint on mux. admin wraps the
// /payments-admin routes.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux, admin func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /paypal/create-paypal-order", h.HandleCreateOrder)
	mux.HandleFunc("POST /paypal/capture-paypal-order", h.HandleCapture)
	mux.HandleFunc("GET /paypal/return", h.HandleReturn)
	mux.HandleFunc("GET /paypal/cancel", h.HandleCancel)
	mux.HandleFunc("POST /paypal/webhook/paypal", h.HandleWebhook)

	mux.Handle("GET /payments-admin/api/payments", admin(http.HandlerFunc(h.HandleListPayments)))
	mux.Handle("GET /payments-admin/api/payments/{paymentID}", admin(http.HandlerFunc(h.HandleGetPayment)))
	mux.Handle("POST /payments-admin/api/payments/{paymentID}/refund", admin(http.HandlerFunc(h.HandleRefund)))

	mux.HandleFunc("GET /healthz", h.HandleHealth)
}
