package testhelpers

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/DanielPopoola/storefront-payments/internal/infrastructure/paypal"
	"github.com/shopspring/decimal"
)

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ApprovedOrder is a PayPal order the buyer approved but nobody captured yet.
func ApprovedOrder(id, value, currency string) *paypal.Order {
	order := &paypal.Order{
		ID:     id,
		Status: "APPROVED",
		Intent: paypal.IntentCapture,
		PurchaseUnits: []paypal.PurchaseUnit{{
			ReferenceID: "default",
			Amount:      &paypal.Amount{CurrencyCode: currency, Value: value},
		}},
		Payer: &paypal.Payer{
			Name:         &paypal.PayerName{GivenName: "John", Surname: "Doe"},
			EmailAddress: "buyer@example.com",
			PayerID:      "PAYER-1",
		},
	}
	order.Raw = mustJSON(order)
	return order
}

// CapturedOrder is the order as PayPal returns it after a capture.
func CapturedOrder(id, captureID, captureStatus, value, currency string) *paypal.Order {
	order := ApprovedOrder(id, value, currency)
	order.Status = "COMPLETED"
	order.PurchaseUnits[0].Payments = &paypal.PurchaseUnitPayments{
		Captures: []paypal.Capture{{
			ID:     captureID,
			Status: captureStatus,
			Amount: &paypal.Money{CurrencyCode: currency, Value: value},
		}},
	}
	order.Raw = mustJSON(order)
	return order
}

// WithCapture appends another capture to the order's first purchase unit.
func WithCapture(order *paypal.Order, captureID, captureStatus string) *paypal.Order {
	unit := &order.PurchaseUnits[0]
	if unit.Payments == nil {
		unit.Payments = &paypal.PurchaseUnitPayments{}
	}
	unit.Payments.Captures = append(unit.Payments.Captures, paypal.Capture{
		ID:     captureID,
		Status: captureStatus,
		Amount: &paypal.Money{CurrencyCode: unit.Amount.CurrencyCode, Value: unit.Amount.Value},
	})
	order.Raw = mustJSON(order)
	return order
}

func Items(lines ...domain.LineItem) []domain.LineItem {
	return lines
}

func Line(name, price string, qty int64) domain.LineItem {
	return domain.LineItem{Name: name, UnitPrice: decimal.RequireFromString(price), Quantity: qty}
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
