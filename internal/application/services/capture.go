package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/DanielPopoola/storefront-payments/internal/infrastructure/paypal"
	"github.com/shopspring/decimal"
)

// ErrNoCompletedCapture is returned by Reconcile when PayPal shows no
// completed capture for the order yet.
var ErrNoCompletedCapture = errors.New("order has no completed capture")

var errCapturePending = errors.New("capture pending at paypal")

const defaultAttemptDelay = time.Minute

type CaptureService struct {
	client   application.PayPalClient
	payments application.PaymentStore
	attempts application.CaptureAttemptStore
	logger   *slog.Logger
	now      func() time.Time
}

func NewCaptureService(
	client application.PayPalClient,
	payments application.PaymentStore,
	attempts application.CaptureAttemptStore,
	logger *slog.Logger,
) *CaptureService {
	return &CaptureService{
		client:   client,
		payments: payments,
		attempts: attempts,
		logger:   logger,
		now:      time.Now,
	}
}

// Capture fetches the order, reconciles its amount, captures it and stores the
// result. Calling it again for an order that was already captured returns the
// stored payment instead of capturing twice.
func (s *CaptureService) Capture(ctx context.Context, cmd CaptureCommand) (*CaptureResult, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return nil, domain.NewMissingOrderIDError()
	}
	logger := s.logger.With("provider_order_id", orderID)

	order, err := s.client.GetOrder(ctx, orderID)
	if err != nil {
		logger.Warn("failed to fetch paypal order", "error", err)
		return nil, application.NewProviderError(application.ErrCodeOrderFetchFailed, "failed to fetch PayPal order", err)
	}

	expected, currency, err := authoritativeAmount(order)
	if err != nil {
		return nil, err
	}

	if len(cmd.Items) > 0 {
		if err := domain.ValidateItems(cmd.Items); err != nil {
			return nil, err
		}
		computed := domain.ComputeTotal(cmd.Items)
		if err := domain.Reconcile(computed, expected); err != nil {
			logger.Warn("cart total does not match paypal order", "cart_total", domain.FormatAmount(computed), "order_amount", domain.FormatAmount(expected))
			return nil, err
		}
	} else if err := reconcileProviderFigures(order.PurchaseUnits[0]); err != nil {
		logger.Warn("paypal order breakdown is inconsistent", "error", err)
		return nil, err
	}

	if settled, ok := order.SettledCapture(); ok {
		result, found, err := s.storedCapture(ctx, logger, orderID, settled)
		if err != nil || found {
			return result, err
		}
		logger.Warn("order captured at paypal but not stored, persisting from order", "capture_id", settled.ID)
		return s.persist(ctx, logger, order, settled, expected, currency)
	}

	captured, err := s.client.CaptureOrder(ctx, orderID)
	if err != nil {
		if paypal.IsOutcomeUnknown(err) {
			logger.Error("capture outcome unknown", "error", err)
			s.recordAttempt(ctx, logger, orderID, err)
		} else {
			logger.Warn("paypal rejected capture", "error", err)
		}
		return nil, application.NewProviderError(application.ErrCodeCaptureFailed, "PayPal capture failed", err)
	}

	capture, ok := captured.SettledCapture()
	if !ok {
		if capture, ok = captured.FirstCapture(); !ok {
			return nil, application.NewCaptureFailedError("response contains no capture", captured.Raw)
		}
	}

	return s.persist(ctx, logger, captured, capture, expected, currency)
}

// Reconcile re-reads an order whose capture outcome is unknown and stores the
// capture if PayPal completed it. A stored PENDING capture that has since
// completed is promoted.
func (s *CaptureService) Reconcile(ctx context.Context, providerOrderID string) (*CaptureResult, error) {
	logger := s.logger.With("provider_order_id", providerOrderID)

	order, err := s.client.GetOrder(ctx, providerOrderID)
	if err != nil {
		return nil, application.NewProviderError(application.ErrCodeOrderFetchFailed, "failed to fetch PayPal order", err)
	}

	capture, ok := order.CompletedCapture()
	if !ok {
		return nil, ErrNoCompletedCapture
	}

	result, found, err := s.storedCapture(ctx, logger, providerOrderID, capture)
	if err != nil || found {
		return result, err
	}

	expected, currency, err := authoritativeAmount(order)
	if err != nil {
		return nil, err
	}
	return s.persist(ctx, logger, order, capture, expected, currency)
}

// HandleCaptureCompleted reacts to PAYMENT.CAPTURE.COMPLETED webhooks by making
// sure the capture is stored even when the buyer never returned to the site.
// Redeliveries of the event run no reactors, so a transient failure is handed
// to the reconciler.
func (s *CaptureService) HandleCaptureCompleted(ctx context.Context, event *domain.WebhookEvent) error {
	orderID, err := relatedOrderID(event.RawEvent)
	if err != nil {
		return err
	}
	_, err = s.Reconcile(ctx, orderID)
	if err != nil && (errors.Is(err, ErrNoCompletedCapture) || application.IsRetryable(err)) {
		logger := s.logger.With("provider_order_id", orderID, "event_id", event.EventID)
		logger.Warn("capture webhook could not be reconciled, queued for retry", "error", err)
		s.recordAttempt(ctx, logger, orderID, err)
	}
	return err
}

// storedCapture looks up a capture PayPal already reports. found is false when
// nothing is stored yet.
func (s *CaptureService) storedCapture(
	ctx context.Context,
	logger *slog.Logger,
	orderID string,
	capture paypal.Capture,
) (*CaptureResult, bool, error) {
	payment, err := s.payments.FindByCaptureID(ctx, capture.ID)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) {
			return nil, false, nil
		}
		return nil, false, application.NewInternalError(err)
	}

	if capture.Status == paypal.StatusCompleted && payment.Status == domain.PaymentCreated {
		promoted, ok, err := s.payments.MarkCaptureCompleted(ctx, capture.ID)
		if err != nil {
			logger.Error("failed to complete pending capture", "capture_id", capture.ID, "error", err)
			return nil, false, application.NewInternalError(err)
		}
		if ok {
			logger.Info("pending capture completed", "capture_id", capture.ID, "payment_id", promoted.ID)
		}
		payment = promoted
	}

	logger.Info("order already captured, returning stored payment", "capture_id", capture.ID, "payment_id", payment.ID)
	return replayResult(orderID, payment), true, nil
}

func (s *CaptureService) persist(
	ctx context.Context,
	logger *slog.Logger,
	order *paypal.Order,
	capture paypal.Capture,
	expected decimal.Decimal,
	currency string,
) (*CaptureResult, error) {
	if capture.ID == "" {
		return nil, application.NewCaptureFailedError("capture id missing from response", order.Raw)
	}
	logger = logger.With("capture_id", capture.ID)

	paymentStatus, orderStatus, ok := domain.PaymentStatusForCapture(capture.Status)
	if !ok {
		logger.Warn("capture not completed", "capture_status", capture.Status)
		return nil, application.NewCaptureFailedError(fmt.Sprintf("capture status %s", capture.Status), order.Raw)
	}

	amount, captureCurrency := expected, currency
	if capture.Amount != nil {
		parsed, err := domain.ParseAmount(capture.Amount.Value)
		if err != nil {
			logger.Error("unparsable captured amount, storing order amount", "captured_value", capture.Amount.Value)
		} else {
			amount = parsed
			captureCurrency = domain.NormalizeCurrency(capture.Amount.CurrencyCode)
		}
	}
	// Funds have already moved, so a difference is reported, never blocking.
	if domain.Reconcile(amount, expected) != nil || domain.ReconcileCurrency(currency, captureCurrency) != nil {
		logger.Error("captured amount differs from order amount",
			"captured_amount", domain.FormatAmount(amount),
			"captured_currency", captureCurrency,
			"order_amount", domain.FormatAmount(expected),
			"order_currency", currency,
		)
	}

	rec := application.CaptureRecord{
		ProviderOrderID: order.ID,
		CaptureID:       capture.ID,
		Amount:          amount,
		Currency:        captureCurrency,
		PaymentStatus:   paymentStatus,
		OrderStatus:     orderStatus,
		Payer:           payerFrom(order.Payer),
		RawResponse:     order.Raw,
	}

	payment, created, err := s.payments.UpsertCaptureResult(ctx, rec)
	if err != nil {
		logger.Error("failed to persist captured payment", "error", err)
		s.recordAttempt(ctx, logger, order.ID, err)
		return nil, application.NewInternalError(err)
	}

	if created {
		logger.Info("capture persisted", "payment_id", payment.ID, "status", payment.Status)
		if payment.Status == domain.PaymentCreated {
			// Followed up until PayPal completes the capture.
			s.recordAttempt(ctx, logger, order.ID, errCapturePending)
		}
	} else {
		logger.Info("capture already persisted by a concurrent request", "payment_id", payment.ID)
	}

	return &CaptureResult{
		ProviderOrderID: order.ID,
		CaptureID:       capture.ID,
		Status:          payment.Status,
		Payment:         payment,
		RawResponse:     order.Raw,
		Replayed:        !created,
	}, nil
}

func (s *CaptureService) recordAttempt(ctx context.Context, logger *slog.Logger, orderID string, cause error) {
	if s.attempts == nil {
		return
	}
	next := s.now().Add(defaultAttemptDelay)
	if err := s.attempts.RecordAttempt(ctx, orderID, cause.Error(), next); err != nil {
		logger.Error("failed to record capture attempt", "error", err)
	}
}

func replayResult(orderID string, payment *domain.Payment) *CaptureResult {
	result := &CaptureResult{
		ProviderOrderID: orderID,
		Status:          payment.Status,
		Payment:         payment,
		RawResponse:     payment.RawResponse,
		Replayed:        true,
	}
	if payment.ProviderCaptureID != nil {
		result.CaptureID = *payment.ProviderCaptureID
	}
	return result
}

// authoritativeAmount reads the amount PayPal will charge from the first
// purchase unit.
func authoritativeAmount(order *paypal.Order) (decimal.Decimal, string, error) {
	if len(order.PurchaseUnits) == 0 || order.PurchaseUnits[0].Amount == nil {
		return decimal.Zero, "", domain.NewInvalidOrderError("order has no purchase unit amount", nil)
	}
	amount := order.PurchaseUnits[0].Amount

	value, err := domain.ParseAmount(amount.Value)
	if err != nil {
		return decimal.Zero, "", domain.NewInvalidOrderError(fmt.Sprintf("unparsable amount %q", amount.Value), err)
	}
	if strings.TrimSpace(amount.CurrencyCode) == "" {
		return decimal.Zero, "", domain.NewInvalidOrderError("amount has no currency", nil)
	}
	return value, domain.NormalizeCurrency(amount.CurrencyCode), nil
}

// reconcileProviderFigures checks PayPal's own figures: the items against
// item_total, and item_total against the amount when nothing else (tax,
// shipping, discounts) contributes to it.
func reconcileProviderFigures(unit paypal.PurchaseUnit) error {
	if unit.Amount == nil || unit.Amount.Breakdown == nil || unit.Amount.Breakdown.ItemTotal == nil {
		return nil
	}
	breakdown := unit.Amount.Breakdown

	itemTotal, err := domain.ParseAmount(breakdown.ItemTotal.Value)
	if err != nil {
		return domain.NewInvalidOrderError("unparsable item total", err)
	}

	if len(unit.Items) > 0 {
		items := make([]domain.LineItem, 0, len(unit.Items))
		for _, it := range unit.Items {
			price, err := domain.ParseAmount(it.UnitAmount.Value)
			if err != nil {
				return domain.NewInvalidOrderError(fmt.Sprintf("unparsable unit amount for %q", it.Name), err)
			}
			qty, err := strconv.ParseInt(strings.TrimSpace(it.Quantity), 10, 64)
			if err != nil {
				return domain.NewInvalidOrderError(fmt.Sprintf("unparsable quantity for %q", it.Name), err)
			}
			items = append(items, domain.LineItem{Name: it.Name, UnitPrice: price, Quantity: qty})
		}
		if err := domain.Reconcile(domain.ComputeTotal(items), itemTotal); err != nil {
			return err
		}
	}

	if !breakdown.ItemsOnly() {
		return nil
	}
	amount, err := domain.ParseAmount(unit.Amount.Value)
	if err != nil {
		return domain.NewInvalidOrderError(fmt.Sprintf("unparsable amount %q", unit.Amount.Value), err)
	}
	return domain.Reconcile(itemTotal, amount)
}

func payerFrom(p *paypal.Payer) domain.Payer {
	var payer domain.Payer
	if p == nil {
		return payer
	}
	if p.Name != nil {
		if name := strings.TrimSpace(p.Name.GivenName + " " + p.Name.Surname); name != "" {
			payer.Name = &name
		}
	}
	if p.EmailAddress != "" {
		email := p.EmailAddress
		payer.Email = &email
	}
	if p.PayerID != "" {
		id := p.PayerID
		payer.ID = &id
	}
	return payer
}

// relatedOrderID pulls the checkout order id out of a capture webhook.
func relatedOrderID(raw json.RawMessage) (string, error) {
	var event struct {
		Resource struct {
			SupplementaryData struct {
				RelatedIDs struct {
					OrderID string `json:"order_id"`
				} `json:"related_ids"`
			} `json:"supplementary_data"`
		} `json:"resource"`
	}
	if err := json.Unmarshal(raw, &event); err != nil {
		return "", fmt.Errorf("decode capture event: %w", err)
	}
	orderID := event.Resource.SupplementaryData.RelatedIDs.OrderID
	if orderID == "" {
		return "", domain.NewMissingOrderIDError()
	}
	return orderID, nil
}
