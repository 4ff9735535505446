package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/jackc/pgx/v5"
)

const webhookEventColumns = `id, event_id, event_type, raw_event, headers, received_at`

type WebhookRepository struct {
	q Executor
}

var _ application.WebhookStore = (*WebhookRepository)(nil)

func NewWebhookRepository(db *DB) *WebhookRepository {
	return &WebhookRepository{q: db.Pool}
}

// InsertIfAbsent stores the event unless its event id is already present, in
// which case the stored row is returned with inserted=false.
func (r *WebhookRepository) InsertIfAbsent(ctx context.Context, e *domain.WebhookEvent) (*domain.WebhookEvent, bool, error) {
	headers := e.Headers
	if headers == nil {
		headers = map[string]string{}
	}

	query := `
		INSERT INTO paypal_webhook_events (id, event_id, event_type, raw_event, headers, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING
		RETURNING ` + webhookEventColumns

	stored, err := scanWebhookEvent(r.q.QueryRow(ctx, query,
		e.ID,
		e.EventID,
		e.EventType,
		e.RawEvent,
		headers,
		e.ReceivedAt,
	))
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert webhook event: %w", err)
	}

	existing, err := r.FindByEventID(ctx, e.EventID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *WebhookRepository) FindByEventID(ctx context.Context, eventID string) (*domain.WebhookEvent, error) {
	query := `SELECT ` + webhookEventColumns + ` FROM paypal_webhook_events WHERE event_id = $1`

	event, err := scanWebhookEvent(r.q.QueryRow(ctx, query, eventID))
	if err != nil {
		return nil, fmt.Errorf("failed to load webhook event %s: %w", eventID, err)
	}
	return event, nil
}

func scanWebhookEvent(row pgx.Row) (*domain.WebhookEvent, error) {
	var w webhookEventRow
	if err := row.Scan(
		&w.ID,
		&w.EventID,
		&w.EventType,
		&w.RawEvent,
		&w.Headers,
		&w.ReceivedAt,
	); err != nil {
		return nil, err
	}
	return toDomainWebhookEvent(w), nil
}
