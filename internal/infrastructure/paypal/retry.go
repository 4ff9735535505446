package paypal

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/config"
	"github.com/cenkalti/backoff/v4"
)

// RetryClient retries the read-only calls (GetOrder and webhook verification)
// on transient failures. Create, capture and refund move money or create state
// and pass straight through to the wrapped client.
type RetryClient struct {
	API
	baseDelay  time.Duration
	maxRetries uint64
	logger     *slog.Logger
}

func NewRetryClient(inner API, cfg config.RetryConfig, logger *slog.Logger) *RetryClient {
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 200 * time.Millisecond
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryClient{
		API:        inner,
		baseDelay:  baseDelay,
		maxRetries: uint64(maxRetries),
		logger:     logger,
	}
}

func (r *RetryClient) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	return retry(ctx, r, "get_order", func() (*Order, error) {
		return r.API.GetOrder(ctx, orderID)
	})
}

func (r *RetryClient) VerifyWebhookSignature(ctx context.Context, headers map[string]string, body []byte, webhookID string) (*VerifyWebhookResponse, error) {
	return retry(ctx, r, "verify_webhook", func() (*VerifyWebhookResponse, error) {
		return r.API.VerifyWebhookSignature(ctx, headers, body, webhookID)
	})
}

func retry[T any](ctx context.Context, r *RetryClient, op string, operation func() (*T, error)) (*T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.baseDelay
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, r.maxRetries), ctx)

	return backoff.RetryNotifyWithData(
		func() (*T, error) {
			resp, err := operation()
			if err != nil && !isRetryable(err) {
				return nil, backoff.Permanent(err)
			}
			return resp, err
		},
		policy,
		func(err error, next time.Duration) {
			r.logger.Warn("retrying paypal call", "operation", op, "next_attempt_in", next, "error", err)
		},
	)
}

func isRetryable(err error) bool {
	if _, ok := IsNetworkError(err); ok {
		return true
	}
	if apiErr, ok := IsAPIError(err); ok {
		return apiErr.IsRetryable()
	}
	return false
}
