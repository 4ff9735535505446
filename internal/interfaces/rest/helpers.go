package rest

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/application/services"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type APIResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

func RespondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

// LineItem is a cart line as the storefront posts it. title and qty are
// accepted as aliases; a missing quantity means one.
type LineItem struct {
	Name      string          `json:"name,omitempty"`
	Title     string          `json:"title,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  *int64          `json:"quantity,omitempty"`
	Qty       *int64          `json:"qty,omitempty"`
}

func (i LineItem) ToDomain() domain.LineItem {
	name := i.Name
	if strings.TrimSpace(name) == "" {
		name = i.Title
	}
	qty := int64(1)
	switch {
	case i.Quantity != nil:
		qty = *i.Quantity
	case i.Qty != nil:
		qty = *i.Qty
	}
	return domain.LineItem{Name: name, UnitPrice: i.UnitPrice, Quantity: qty}
}

func ToDomainItems(items []LineItem) []domain.LineItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		out = append(out, item.ToDomain())
	}
	return out
}

type Payment struct {
	ID                uuid.UUID         `json:"id"`
	OrderID           *uuid.UUID        `json:"order_id,omitempty"`
	Provider          string            `json:"provider"`
	ProviderOrderID   string            `json:"provider_order_id"`
	ProviderCaptureID *string           `json:"provider_capture_id,omitempty"`
	Amount            string            `json:"amount"`
	Currency          string            `json:"currency"`
	Status            string            `json:"status"`
	PayerName         *string           `json:"payer_name,omitempty"`
	PayerEmail        *string           `json:"payer_email,omitempty"`
	PayerID           *string           `json:"payer_id,omitempty"`
	RawResponse       json.RawMessage   `json:"raw_response,omitempty"`
	Refunds           []json.RawMessage `json:"refunds,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

type Order struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"order_number"`
	TotalAmount string    `json:"total_amount"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type PaymentDetail struct {
	Payment Payment `json:"payment"`
	Order   *Order  `json:"order,omitempty"`
}

type PaymentList struct {
	Payments []Payment `json:"payments"`
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PerPage  int       `json:"per_page"`
	Pages    int       `json:"pages"`
}

// ToAPIPayment renders a payment for the admin API. The raw provider response
// is only included when withRaw is set.
func ToAPIPayment(p *domain.Payment, withRaw bool) Payment {
	out := Payment{
		ID:                p.ID,
		OrderID:           p.OrderID,
		Provider:          p.Provider,
		ProviderOrderID:   p.ProviderOrderID,
		ProviderCaptureID: p.ProviderCaptureID,
		Amount:            domain.FormatAmount(p.Amount),
		Currency:          p.Currency,
		Status:            string(p.Status),
		PayerName:         p.PayerName,
		PayerEmail:        p.PayerEmail,
		PayerID:           p.PayerID,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
	if withRaw {
		out.RawResponse = p.RawResponse
		if refunds, err := p.Refunds(); err == nil {
			out.Refunds = refunds
		}
	}
	return out
}

func ToAPIOrder(o *domain.Order) *Order {
	if o == nil {
		return nil
	}
	return &Order{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		TotalAmount: domain.FormatAmount(o.TotalAmount),
		Currency:    o.Currency,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func ToAPIPaymentList(page *services.PaymentPage) PaymentList {
	payments := make([]Payment, 0, len(page.Payments))
	for _, p := range page.Payments {
		payments = append(payments, ToAPIPayment(p, false))
	}
	return PaymentList{
		Payments: payments,
		Total:    page.Total,
		Page:     page.Page,
		PerPage:  page.PerPage,
		Pages:    page.Pages,
	}
}

func ToAPIPaymentDetail(detail *services.PaymentDetail) PaymentDetail {
	return PaymentDetail{
		Payment: ToAPIPayment(detail.Payment, true),
		Order:   ToAPIOrder(detail.Order),
	}
}
