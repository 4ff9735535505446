// Package domain holds the order, payment and webhook records of the
// PayPal capture pipeline together with the money rules that guard them.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the current state of a payment in its lifecycle
type PaymentStatus string

const (
	PaymentCreated   PaymentStatus = "created"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

const ProviderPayPal = "paypal"

// refundsKey is where refund responses accumulate inside RawResponse.
const refundsKey = "_refunds"

type Payment struct {
	ID                uuid.UUID
	OrderID           *uuid.UUID
	Provider          string
	ProviderOrderID   string
	ProviderCaptureID *string
	Amount            decimal.Decimal
	Currency          string
	Status            PaymentStatus

	PayerName  *string
	PayerEmail *string
	PayerID    *string

	RawResponse json.RawMessage

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Payer is the best-effort buyer identity extracted from a capture response.
type Payer struct {
	Name  *string
	Email *string
	ID    *string
}

// PaymentStatusForCapture maps a PayPal capture status onto a payment status.
// ok is false for statuses that must not be persisted.
func PaymentStatusForCapture(captureStatus string) (status PaymentStatus, order OrderStatus, ok bool) {
	switch captureStatus {
	case "COMPLETED":
		return PaymentCompleted, OrderPaid, true
	case "PENDING":
		return PaymentCreated, OrderPending, true
	default:
		return "", "", false
	}
}

// CompletePendingCapture moves a payment stored from a PENDING capture to
// completed once PayPal reports the same capture COMPLETED. It reports false
// when the payment is not awaiting completion.
func (p *Payment) CompletePendingCapture(now time.Time) bool {
	if p.Status != PaymentCreated {
		return false
	}
	p.Status = PaymentCompleted
	p.UpdatedAt = now
	return true
}

// ApplyRefund records a provider refund response. Capture id and captured
// amount are left untouched.
func (p *Payment) ApplyRefund(refund json.RawMessage, now time.Time) error {
	raw, err := AppendRefund(p.RawResponse, refund)
	if err != nil {
		return err
	}
	p.RawResponse = raw
	p.Status = PaymentRefunded
	p.UpdatedAt = now
	return nil
}

// Refunds returns the refund responses recorded so far.
func (p *Payment) Refunds() ([]json.RawMessage, error) {
	if len(p.RawResponse) == 0 {
		return nil, nil
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(p.RawResponse, &doc); err != nil {
		return nil, fmt.Errorf("decode raw response: %w", err)
	}
	var refunds []json.RawMessage
	if existing, ok := doc[refundsKey]; ok {
		if err := json.Unmarshal(existing, &refunds); err != nil {
			return nil, fmt.Errorf("decode refunds: %w", err)
		}
	}
	return refunds, nil
}

// AppendRefund adds refund to the _refunds array of a raw provider response.
func AppendRefund(raw, refund json.RawMessage) (json.RawMessage, error) {
	doc := map[string]json.RawMessage{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode raw response: %w", err)
		}
	}

	var refunds []json.RawMessage
	if existing, ok := doc[refundsKey]; ok {
		if err := json.Unmarshal(existing, &refunds); err != nil {
			return nil, fmt.Errorf("decode refunds: %w", err)
		}
	}
	if len(refund) == 0 {
		refund = json.RawMessage("{}")
	}
	refunds = append(refunds, refund)

	encoded, err := json.Marshal(refunds)
	if err != nil {
		return nil, err
	}
	doc[refundsKey] = encoded

	return json.Marshal(doc)
}
