package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/application/services"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
)

// CaptureReconciler re-checks a PayPal order whose capture outcome is unknown.
type CaptureReconciler interface {
	Reconcile(ctx context.Context, providerOrderID string) (*services.CaptureResult, error)
}

// Reconciler drains capture attempts left behind by timeouts and failed
// writes, storing any capture PayPal completed in the meantime.
type Reconciler struct {
	attempts    application.CaptureAttemptStore
	captures    CaptureReconciler
	interval    time.Duration
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func NewReconciler(
	attempts application.CaptureAttemptStore,
	captures CaptureReconciler,
	interval time.Duration,
	batchSize int,
	maxAttempts int,
	baseDelay time.Duration,
	logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		attempts:    attempts,
		captures:    captures,
		interval:    interval,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      logger,
		now:         time.Now,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("starting background reconciler", "interval", r.interval, "batch_size", r.batchSize)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping background reconciler")
			return
		case <-ticker.C:
			r.run(ctx)
		}
	}
}

// RunOnce executes a single reconciliation cycle.
func (r *Reconciler) RunOnce(ctx context.Context) {
	r.run(ctx)
}

func (r *Reconciler) run(ctx context.Context) {
	due, err := r.attempts.FindDue(ctx, r.now().UTC(), r.batchSize)
	if err != nil {
		r.logger.Error("failed to fetch due capture attempts", "error", err)
		return
	}

	if len(due) == 0 {
		return
	}

	r.logger.Info("reconciling unknown captures", "count", len(due))

	for _, attempt := range due {
		if ctx.Err() != nil {
			return
		}
		r.reconcile(ctx, attempt)
	}
}

func (r *Reconciler) reconcile(ctx context.Context, attempt *domain.CaptureAttempt) {
	logger := r.logger.With("provider_order_id", attempt.ProviderOrderID, "attempt", attempt.AttemptCount+1)

	result, err := r.captures.Reconcile(ctx, attempt.ProviderOrderID)
	if err == nil {
		if err := r.attempts.MarkResolved(ctx, attempt.ProviderOrderID); err != nil {
			logger.Error("failed to mark capture attempt resolved", "error", err)
			return
		}
		logger.Info("capture reconciled", "capture_id", result.CaptureID, "payment_id", result.Payment.ID)
		return
	}

	retryable := errors.Is(err, services.ErrNoCompletedCapture) || application.IsRetryable(err)
	if !retryable || attempt.AttemptCount+1 >= r.maxAttempts {
		logger.Error("abandoning capture reconciliation", "error", err, "retryable", retryable)
		if markErr := r.attempts.MarkAbandoned(ctx, attempt.ProviderOrderID, err.Error()); markErr != nil {
			logger.Error("failed to mark capture attempt abandoned", "error", markErr)
		}
		return
	}

	next := r.now().UTC().Add(domain.NextRetryDelay(r.baseDelay, attempt.AttemptCount+1))
	if schedErr := r.attempts.ScheduleRetry(ctx, attempt.ProviderOrderID, err.Error(), next); schedErr != nil {
		logger.Error("failed to schedule capture retry", "error", schedErr)
		return
	}
	logger.Warn("capture still unresolved, retry scheduled", "error", err, "next_retry_at", next)
}
