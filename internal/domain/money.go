package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const maxItemNameLength = 127

// LineItem is one cart line as submitted by the storefront.
type LineItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int64
}

// Subtotal is UnitPrice x Quantity, unrounded.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(i.Quantity))
}

// DisplayName trims the name to the length PayPal accepts for item names.
func (i LineItem) DisplayName() string {
	name := strings.TrimSpace(i.Name)
	if name == "" {
		name = "Item"
	}
	if r := []rune(name); len(r) > maxItemNameLength {
		name = string(r[:maxItemNameLength])
	}
	return name
}

// ValidateItems rejects carts that cannot produce a meaningful total.
func ValidateItems(items []LineItem) error {
	if len(items) == 0 {
		return NewInvalidItemsError("at least one item is required")
	}
	for _, item := range items {
		if item.Quantity < 1 {
			return NewInvalidItemsError("quantity must be at least 1")
		}
		if item.UnitPrice.IsNegative() {
			return NewInvalidItemsError("unit price cannot be negative")
		}
	}
	return nil
}

// ComputeTotal sums the cart with exact decimal arithmetic and rounds half-up
// to two places once, at the end.
func ComputeTotal(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return RoundAmount(total)
}

// Reconcile requires the computed and provided amounts to be equal after
// rounding both to two places.
func Reconcile(computed, provided decimal.Decimal) error {
	if !RoundAmount(computed).Equal(RoundAmount(provided)) {
		return NewAmountMismatchError(computed, provided)
	}
	return nil
}

// ReconcileCurrency compares ISO codes case-insensitively.
func ReconcileCurrency(expected, actual string) error {
	if !strings.EqualFold(strings.TrimSpace(expected), strings.TrimSpace(actual)) {
		return NewCurrencyMismatchError(expected, actual)
	}
	return nil
}

func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ParseAmount parses a provider amount string such as "29.97".
func ParseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// FormatAmount renders an amount the way PayPal expects it on the wire.
func FormatAmount(d decimal.Decimal) string {
	return RoundAmount(d).StringFixed(2)
}

// NormalizeCurrency upper-cases a currency code, defaulting to USD.
func NormalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return "USD"
	}
	return currency
}
