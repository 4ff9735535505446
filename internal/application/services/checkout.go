package services

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/DanielPopoola/storefront-payments/internal/infrastructure/paypal"
)

const (
	landingPageNoPreference = "NO_PREFERENCE"
	userActionPayNow        = "PAY_NOW"
)

type CheckoutService struct {
	client    application.PayPalClient
	brandName string
	logger    *slog.Logger
}

func NewCheckoutService(client application.PayPalClient, brandName string, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		client:    client,
		brandName: brandName,
		logger:    logger,
	}
}

// CreateOrder opens a PayPal order for the cart. The order total is the cart
// total, so a later capture with the same items reconciles exactly.
func (s *CheckoutService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*paypal.Order, error) {
	if err := domain.ValidateItems(cmd.Items); err != nil {
		return nil, err
	}

	// PayPal item amounts carry two decimals and must sum to the item total.
	for _, it := range cmd.Items {
		if !it.UnitPrice.Equal(domain.RoundAmount(it.UnitPrice)) {
			return nil, domain.NewInvalidItemsError("unit price has more than two decimal places")
		}
	}

	currency := domain.NormalizeCurrency(cmd.Currency)
	total := domain.ComputeTotal(cmd.Items)
	if !total.IsPositive() {
		return nil, domain.NewInvalidItemsError("order total must be greater than zero")
	}

	items := make([]paypal.Item, 0, len(cmd.Items))
	for _, it := range cmd.Items {
		items = append(items, paypal.Item{
			Name:       it.DisplayName(),
			UnitAmount: paypal.Money{CurrencyCode: currency, Value: domain.FormatAmount(it.UnitPrice)},
			Quantity:   strconv.FormatInt(it.Quantity, 10),
		})
	}

	brand := cmd.BrandName
	if brand == "" {
		brand = s.brandName
	}

	req := paypal.CreateOrderRequest{
		Intent: paypal.IntentCapture,
		PurchaseUnits: []paypal.PurchaseUnit{{
			Amount: &paypal.Amount{
				CurrencyCode: currency,
				Value:        domain.FormatAmount(total),
				Breakdown: &paypal.AmountBreakdown{
					ItemTotal: &paypal.Money{CurrencyCode: currency, Value: domain.FormatAmount(total)},
				},
			},
			Items: items,
		}},
		ApplicationContext: &paypal.ApplicationContext{
			BrandName:   brand,
			LandingPage: landingPageNoPreference,
			UserAction:  userActionPayNow,
			ReturnURL:   cmd.ReturnURL,
			CancelURL:   cmd.CancelURL,
		},
	}

	order, err := s.client.CreateOrder(ctx, req)
	if err != nil {
		s.logger.Warn("failed to create paypal order", "error", err)
		return nil, application.NewProviderError(application.ErrCodeCreateOrderFailed, "failed to create PayPal order", err)
	}

	s.logger.Info("paypal order created", "provider_order_id", order.ID, "amount", domain.FormatAmount(total), "currency", currency)
	return order, nil
}
