// Package app wires configuration, storage, PayPal and the HTTP surface into
// one runnable service.
package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/storefront-payments/internal/api"
	"github.com/DanielPopoola/storefront-payments/internal/application/services"
	"github.com/DanielPopoola/storefront-payments/internal/config"
	"github.com/DanielPopoola/storefront-payments/internal/infrastructure/paypal"
	"github.com/DanielPopoola/storefront-payments/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/storefront-payments/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/storefront-payments/internal/interfaces/rest/middleware"
	"github.com/DanielPopoola/storefront-payments/internal/worker"
)

const EventCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"

type App struct {
	Handler    http.Handler
	Reconciler *worker.Reconciler
}

func New(cfg *config.Config, db *postgres.DB, logger *slog.Logger) (*App, error) {
	paymentRepo := postgres.NewPaymentRepository(db)
	webhookRepo := postgres.NewWebhookRepository(db)
	attemptRepo := postgres.NewCaptureAttemptRepository(db)

	tokens := paypal.NewTokenCache(
		cfg.PayPal.APIBaseURL(),
		cfg.PayPal.ClientID,
		cfg.PayPal.ClientSecret,
		paypal.WithMargin(cfg.PayPal.TokenMargin),
		paypal.WithTokenHTTPClient(&http.Client{Timeout: cfg.PayPal.RequestTimeout}),
	)
	paypalClient := paypal.NewClient(cfg.PayPal, tokens, logger)
	retryPayPalClient := paypal.NewRetryClient(paypalClient, cfg.Retry, logger)

	checkoutService := services.NewCheckoutService(retryPayPalClient, cfg.PayPal.BrandName, logger)
	captureService := services.NewCaptureService(retryPayPalClient, paymentRepo, attemptRepo, logger)
	webhookService := services.NewWebhookService(retryPayPalClient, webhookRepo, cfg.PayPal.WebhookID, logger)
	refundService := services.NewRefundService(retryPayPalClient, paymentRepo, logger)
	queryService := services.NewQueryService(paymentRepo, logger)

	webhookService.On(EventCaptureCompleted, captureService.HandleCaptureCompleted)

	h := handlers.NewHandlers(
		checkoutService,
		captureService,
		webhookService,
		refundService,
		queryService,
		db,
		logger,
	)

	mux := http.NewServeMux()
	if err := api.RegisterDocsRoutes(mux); err != nil {
		return nil, fmt.Errorf("register api docs: %w", err)
	}
	h.RegisterRoutes(mux, middleware.AdminToken(cfg.Admin.Token, logger))

	swagger, err := api.GetSwagger()
	if err != nil {
		return nil, err
	}
	validateRequests, err := middleware.OpenAPIValidator(swagger, logger)
	if err != nil {
		return nil, err
	}

	handler := validateRequests(mux)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Timeout(cfg.Server.WriteTimeout)(handler)

	reconciler := worker.NewReconciler(
		attemptRepo,
		captureService,
		cfg.Worker.Interval,
		cfg.Worker.BatchSize,
		cfg.Worker.MaxAttempts,
		cfg.Worker.Interval,
		logger,
	)

	return &App{Handler: handler, Reconciler: reconciler}, nil
}
