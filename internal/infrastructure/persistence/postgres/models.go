package postgres

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// paymentRow mirrors the payments table. Amount stays a pgtype.Numeric until
// it is mapped so that no float conversion happens on the way out.
type paymentRow struct {
	ID                uuid.UUID
	OrderID           *uuid.UUID
	Provider          string
	ProviderOrderID   string
	ProviderCaptureID *string
	Amount            pgtype.Numeric
	Currency          string
	Status            string
	PayerName         *string
	PayerEmail        *string
	PayerID           *string
	RawResponse       []byte
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type orderRow struct {
	ID          uuid.UUID
	OrderNumber string
	TotalAmount pgtype.Numeric
	Currency    string
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type webhookEventRow struct {
	ID         uuid.UUID
	EventID    string
	EventType  string
	RawEvent   json.RawMessage
	Headers    map[string]string
	ReceivedAt time.Time
}
