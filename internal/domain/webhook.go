package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is an inbound PayPal notification. Rows are append-only and
// unique per EventID.
type WebhookEvent struct {
	ID         uuid.UUID
	EventID    string
	EventType  string
	RawEvent   json.RawMessage
	Headers    map[string]string
	ReceivedAt time.Time
}

// NormalizeHeaders lower-cases header names and joins repeated values.
func NormalizeHeaders(h map[string][]string) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[strings.ToLower(name)] = strings.Join(values, ", ")
	}
	return out
}
