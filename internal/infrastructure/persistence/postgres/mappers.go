package postgres

import (
	"fmt"

	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// toNumeric: decimal -> NUMERIC without a float detour
func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

// fromNumeric: NUMERIC -> decimal
func fromNumeric(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Zero, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Zero, fmt.Errorf("non-finite numeric value")
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

// toDomainPayment: maps db row to domain payment
func toDomainPayment(r paymentRow) (*domain.Payment, error) {
	amount, err := fromNumeric(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("payment %s amount: %w", r.ID, err)
	}
	return &domain.Payment{
		ID:                r.ID,
		OrderID:           r.OrderID,
		Provider:          r.Provider,
		ProviderOrderID:   r.ProviderOrderID,
		ProviderCaptureID: r.ProviderCaptureID,
		Amount:            amount,
		Currency:          r.Currency,
		Status:            domain.PaymentStatus(r.Status),
		PayerName:         r.PayerName,
		PayerEmail:        r.PayerEmail,
		PayerID:           r.PayerID,
		RawResponse:       r.RawResponse,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}, nil
}

// toDomainOrder: maps db row to domain order
func toDomainOrder(r orderRow) (*domain.Order, error) {
	total, err := fromNumeric(r.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("order %s total: %w", r.ID, err)
	}
	return &domain.Order{
		ID:          r.ID,
		OrderNumber: r.OrderNumber,
		TotalAmount: total,
		Currency:    r.Currency,
		Status:      domain.OrderStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func toDomainWebhookEvent(r webhookEventRow) *domain.WebhookEvent {
	return &domain.WebhookEvent{
		ID:         r.ID,
		EventID:    r.EventID,
		EventType:  r.EventType,
		RawEvent:   r.RawEvent,
		Headers:    r.Headers,
		ReceivedAt: r.ReceivedAt,
	}
}
