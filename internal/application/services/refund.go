package services

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/DanielPopoola/storefront-payments/internal/infrastructure/paypal"
)

type RefundService struct {
	client   application.PayPalClient
	payments application.PaymentStore
	logger   *slog.Logger
}

func NewRefundService(client application.PayPalClient, payments application.PaymentStore, logger *slog.Logger) *RefundService {
	return &RefundService{
		client:   client,
		payments: payments,
		logger:   logger,
	}
}

// Refund refunds a captured payment in full, or partially when Amount is set.
// It is not idempotent: every successful call moves money.
func (s *RefundService) Refund(ctx context.Context, cmd RefundCommand) (*RefundResult, error) {
	payment, err := s.payments.FindByID(ctx, cmd.PaymentID)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) {
			return nil, err
		}
		return nil, application.NewInternalError(err)
	}

	if payment.Provider != domain.ProviderPayPal {
		return nil, domain.NewUnsupportedProviderError(payment.Provider)
	}
	if payment.ProviderCaptureID == nil || *payment.ProviderCaptureID == "" {
		return nil, domain.NewMissingCaptureIDError(payment.ID.String())
	}
	captureID := *payment.ProviderCaptureID

	req := paypal.RefundRequest{NoteToPayer: cmd.Note}
	if cmd.Amount != nil {
		if !cmd.Amount.IsPositive() {
			return nil, domain.NewInvalidAmountError(cmd.Amount.String())
		}
		currency := cmd.Currency
		if currency == "" {
			currency = payment.Currency
		}
		req.Amount = &paypal.Money{
			CurrencyCode: domain.NormalizeCurrency(currency),
			Value:        domain.FormatAmount(*cmd.Amount),
		}
	}

	logger := s.logger.With("payment_id", payment.ID, "capture_id", captureID)

	refund, err := s.client.Refund(ctx, captureID, req)
	if err != nil {
		logger.Warn("paypal refund failed", "error", err)
		return nil, application.NewProviderError(application.ErrCodeRefundFailed, "PayPal refund failed", err)
	}

	updated, err := s.payments.AppendRefund(ctx, payment.ID, refund.Raw)
	if err != nil {
		logger.Error("refund completed at paypal but could not be recorded",
			"refund_id", refund.ID,
			"refund_status", refund.Status,
			"error", err,
		)
		return nil, application.NewInternalError(err)
	}

	logger.Info("payment refunded", "refund_id", refund.ID, "refund_status", refund.Status)

	return &RefundResult{
		Payment:  updated,
		RefundID: refund.ID,
		Status:   refund.Status,
		Raw:      refund.Raw,
	}, nil
}
