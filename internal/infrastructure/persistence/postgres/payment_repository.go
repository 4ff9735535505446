package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `id, order_id, provider, provider_order_id, provider_capture_id,
	amount, currency, status, payer_name, payer_email, payer_id,
	raw_response, created_at, updated_at`

const orderColumns = `id, order_number, total_amount, currency, status, created_at, updated_at`

type PaymentRepository struct {
	pool *pgxpool.Pool
	q    Executor
}

var _ application.PaymentStore = (*PaymentRepository)(nil)

func NewPaymentRepository(db *DB) *PaymentRepository {
	return &PaymentRepository{
		pool: db.Pool,
		q:    db.Pool,
	}
}

// UpsertCaptureResult stores the order shell and payment for a capture in one
// transaction. A capture id that is already stored returns the stored payment
// with created=false, including when a concurrent caller won the insert.
func (r *PaymentRepository) UpsertCaptureResult(ctx context.Context, rec application.CaptureRecord) (*domain.Payment, bool, error) {
	existing, err := r.FindByCaptureID(ctx, rec.CaptureID)
	if err == nil {
		return existing, false, nil
	}
	if !domain.IsErrorCode(err, domain.ErrCodePaymentNotFound) {
		return nil, false, err
	}

	var payment *domain.Payment
	err = r.WithTx(ctx, func(txRepo *PaymentRepository) error {
		orderID, err := txRepo.upsertOrder(ctx, rec)
		if err != nil {
			return err
		}
		payment, err = txRepo.insertPayment(ctx, orderID, rec)
		return err
	})
	if err != nil {
		if IsUniqueViolation(err) {
			winner, findErr := r.FindByCaptureID(ctx, rec.CaptureID)
			if findErr != nil {
				return nil, false, fmt.Errorf("re-read payment after conflict on capture %s: %w", rec.CaptureID, findErr)
			}
			return winner, false, nil
		}
		return nil, false, err
	}

	return payment, true, nil
}

// upsertOrder creates the order shell, reusing an existing row for the same
// order number.
func (r *PaymentRepository) upsertOrder(ctx context.Context, rec application.CaptureRecord) (uuid.UUID, error) {
	query := `
		INSERT INTO orders (id, order_number, total_amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (order_number) DO UPDATE
			SET status = EXCLUDED.status, updated_at = NOW()
		RETURNING id
	`

	var id uuid.UUID
	err := r.q.QueryRow(ctx, query,
		uuid.New(),
		domain.OrderNumberFor(rec.ProviderOrderID),
		toNumeric(rec.Amount),
		rec.Currency,
		string(rec.OrderStatus),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to upsert order: %w", err)
	}
	return id, nil
}

func (r *PaymentRepository) insertPayment(ctx context.Context, orderID uuid.UUID, rec application.CaptureRecord) (*domain.Payment, error) {
	query := `
		INSERT INTO payments (
			id, order_id, provider, provider_order_id, provider_capture_id,
			amount, currency, status, payer_name, payer_email, payer_id,
			raw_response, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING ` + paymentColumns

	var raw any
	if len(rec.RawResponse) > 0 {
		raw = rec.RawResponse
	}

	row := r.q.QueryRow(ctx, query,
		uuid.New(),
		orderID,
		domain.ProviderPayPal,
		rec.ProviderOrderID,
		rec.CaptureID,
		toNumeric(rec.Amount),
		rec.Currency,
		string(rec.PaymentStatus),
		rec.Payer.Name,
		rec.Payer.Email,
		rec.Payer.ID,
		raw,
	)
	payment, err := scanPayment(row)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}
	return payment, nil
}

// FindByID retrieves a payment by its unique system ID
func (r *PaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewPaymentNotFoundError(id.String())
	}
	return payment, err
}

// FindByIDForUpdate retrieves a payment and locks the row. Only meaningful inside WithTx.
func (r *PaymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`

	payment, err := scanPayment(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewPaymentNotFoundError(id.String())
	}
	return payment, err
}

func (r *PaymentRepository) FindByCaptureID(ctx context.Context, captureID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_capture_id = $1`

	payment, err := scanPayment(r.q.QueryRow(ctx, query, captureID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewPaymentNotFoundError(captureID)
	}
	return payment, err
}

// MarkCaptureCompleted moves a created payment to completed and its pending
// order to paid under a row lock. Payments in any other state are returned
// unchanged with promoted=false.
func (r *PaymentRepository) MarkCaptureCompleted(ctx context.Context, captureID string) (*domain.Payment, bool, error) {
	var (
		updated  *domain.Payment
		promoted bool
	)
	err := r.WithTx(ctx, func(txRepo *PaymentRepository) error {
		query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_capture_id = $1 FOR UPDATE`
		p, err := scanPayment(txRepo.q.QueryRow(ctx, query, captureID))
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewPaymentNotFoundError(captureID)
		}
		if err != nil {
			return err
		}

		updated = p
		if !p.CompletePendingCapture(time.Now().UTC()) {
			return nil
		}

		_, err = txRepo.q.Exec(ctx, `UPDATE payments SET status = $1, updated_at = $2 WHERE id = $3`,
			string(p.Status), p.UpdatedAt, p.ID)
		if err != nil {
			return fmt.Errorf("failed to complete payment: %w", err)
		}

		if p.OrderID != nil {
			_, err = txRepo.q.Exec(ctx, `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
				string(domain.OrderPaid), *p.OrderID, string(domain.OrderPending))
			if err != nil {
				return fmt.Errorf("failed to update order status: %w", err)
			}
		}
		promoted = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return updated, promoted, nil
}

// List returns payments newest first together with the total row count.
func (r *PaymentRepository) List(ctx context.Context, limit, offset int) ([]*domain.Payment, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM payments`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	query := `SELECT ` + paymentColumns + `
		FROM payments
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`

	rows, err := r.q.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query payments: %w", err)
	}

	payments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Payment, error) {
		return scanPayment(row)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("error occurred while scanning rows: %w", err)
	}
	return payments, total, nil
}

func (r *PaymentRepository) FindOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	var o orderRow
	err := r.q.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.OrderNumber,
		&o.TotalAmount,
		&o.Currency,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewOrderNotFoundError(id.String())
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	return toDomainOrder(o)
}

// AppendRefund records a refund response on the payment under a row lock and
// marks the payment and its order refunded.
func (r *PaymentRepository) AppendRefund(ctx context.Context, paymentID uuid.UUID, refund json.RawMessage) (*domain.Payment, error) {
	var updated *domain.Payment
	err := r.WithTx(ctx, func(txRepo *PaymentRepository) error {
		p, err := txRepo.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if err := p.ApplyRefund(refund, time.Now().UTC()); err != nil {
			return err
		}

		cmdTag, err := txRepo.q.Exec(ctx, `
			UPDATE payments SET raw_response = $1, status = $2, updated_at = $3
			WHERE id = $4`,
			p.RawResponse, string(p.Status), p.UpdatedAt, p.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update payment record: %w", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return domain.NewPaymentNotFoundError(p.ID.String())
		}

		if p.OrderID != nil {
			_, err = txRepo.q.Exec(ctx, `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
				string(domain.OrderRefunded), *p.OrderID)
			if err != nil {
				return fmt.Errorf("failed to update order status: %w", err)
			}
		}

		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// WithTx executes a function within a database transaction
func (r *PaymentRepository) WithTx(ctx context.Context, fn func(*PaymentRepository) error) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&PaymentRepository{
			pool: r.pool,
			q:    tx, // Switch the executor to the transaction
		})
	})
}

// scanPayment scans a pgx.Row into a domain.Payment. pgx.ErrNoRows is returned
// as-is so callers can map it to their own not-found error.
func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p paymentRow
	err := row.Scan(
		&p.ID,
		&p.OrderID,
		&p.Provider,
		&p.ProviderOrderID,
		&p.ProviderCaptureID,
		&p.Amount,
		&p.Currency,
		&p.Status,
		&p.PayerName,
		&p.PayerEmail,
		&p.PayerID,
		&p.RawResponse,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || IsUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return toDomainPayment(p)
}
