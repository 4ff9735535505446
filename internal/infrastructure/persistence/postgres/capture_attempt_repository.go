package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/jackc/pgx/v5"
)

type CaptureAttemptRepository struct {
	q Executor
}

var _ application.CaptureAttemptStore = (*CaptureAttemptRepository)(nil)

func NewCaptureAttemptRepository(db *DB) *CaptureAttemptRepository {
	return &CaptureAttemptRepository{q: db.Pool}
}

// RecordAttempt opens (or reopens) the attempt for an order. The attempt
// counter survives reopening.
func (r *CaptureAttemptRepository) RecordAttempt(ctx context.Context, providerOrderID, lastErr string, nextRetryAt time.Time) error {
	query := `
		INSERT INTO capture_attempts (provider_order_id, status, attempt_count, last_error, next_retry_at, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $4, NOW(), NOW())
		ON CONFLICT (provider_order_id) DO UPDATE
			SET status = EXCLUDED.status,
				last_error = EXCLUDED.last_error,
				next_retry_at = EXCLUDED.next_retry_at,
				updated_at = NOW()
	`

	_, err := r.q.Exec(ctx, query, providerOrderID, string(domain.AttemptPending), lastErr, nextRetryAt)
	if err != nil {
		return fmt.Errorf("failed to record capture attempt: %w", err)
	}
	return nil
}

// FindDue returns pending attempts whose retry time has passed, oldest first.
func (r *CaptureAttemptRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.CaptureAttempt, error) {
	query := `
		SELECT provider_order_id, status, attempt_count, last_error, next_retry_at, created_at, updated_at
		FROM capture_attempts
		WHERE status = $1 AND next_retry_at <= $2
		ORDER BY next_retry_at ASC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, string(domain.AttemptPending), now, limit)
	if err != nil {
		return nil, fmt.Errorf("query due capture attempts: %w", err)
	}

	attempts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.CaptureAttempt, error) {
		var a domain.CaptureAttempt
		err := row.Scan(
			&a.ProviderOrderID,
			&a.Status,
			&a.AttemptCount,
			&a.LastError,
			&a.NextRetryAt,
			&a.CreatedAt,
			&a.UpdatedAt,
		)
		return &a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan capture attempts: %w", err)
	}
	return attempts, nil
}

func (r *CaptureAttemptRepository) MarkResolved(ctx context.Context, providerOrderID string) error {
	return r.setStatus(ctx, providerOrderID, domain.AttemptResolved, nil)
}

func (r *CaptureAttemptRepository) MarkAbandoned(ctx context.Context, providerOrderID, lastErr string) error {
	return r.setStatus(ctx, providerOrderID, domain.AttemptAbandoned, &lastErr)
}

func (r *CaptureAttemptRepository) ScheduleRetry(ctx context.Context, providerOrderID, lastErr string, nextRetryAt time.Time) error {
	query := `
		UPDATE capture_attempts
		SET attempt_count = attempt_count + 1, last_error = $1, next_retry_at = $2, updated_at = NOW()
		WHERE provider_order_id = $3
	`

	if _, err := r.q.Exec(ctx, query, lastErr, nextRetryAt, providerOrderID); err != nil {
		return fmt.Errorf("failed to schedule capture retry: %w", err)
	}
	return nil
}

func (r *CaptureAttemptRepository) setStatus(ctx context.Context, providerOrderID string, status domain.CaptureAttemptStatus, lastErr *string) error {
	query := `
		UPDATE capture_attempts
		SET status = $1, last_error = COALESCE($2, last_error), updated_at = NOW()
		WHERE provider_order_id = $3
	`

	if _, err := r.q.Exec(ctx, query, string(status), lastErr, providerOrderID); err != nil {
		return fmt.Errorf("failed to mark capture attempt %s: %w", status, err)
	}
	return nil
}
