package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/DanielPopoola/storefront-payments/internal/infrastructure/paypal"
	"github.com/google/uuid"
)

// EventReactor runs after a new webhook event has been stored.
type EventReactor func(ctx context.Context, event *domain.WebhookEvent) error

type WebhookService struct {
	client    application.PayPalClient
	store     application.WebhookStore
	webhookID string
	reactors  map[string][]EventReactor
	logger    *slog.Logger
	now       func() time.Time
}

func NewWebhookService(
	client application.PayPalClient,
	store application.WebhookStore,
	webhookID string,
	logger *slog.Logger,
) *WebhookService {
	if webhookID == "" {
		logger.Warn("paypal webhook id not configured, webhook signatures will not be verified")
	}
	return &WebhookService{
		client:    client,
		store:     store,
		webhookID: webhookID,
		reactors:  make(map[string][]EventReactor),
		logger:    logger,
		now:       time.Now,
	}
}

// On registers a reactor for an event type. Not safe to call concurrently
// with HandleEvent.
func (s *WebhookService) On(eventType string, reactor EventReactor) {
	s.reactors[eventType] = append(s.reactors[eventType], reactor)
}

// HandleEvent verifies and stores one webhook delivery. Redeliveries of an
// event id return the stored row with Duplicate set and run no reactors.
func (s *WebhookService) HandleEvent(ctx context.Context, header map[string][]string, body []byte) (*WebhookResult, error) {
	var envelope struct {
		ID        string `json:"id"`
		EventType string `json:"event_type"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, application.NewInvalidInputError(fmt.Errorf("webhook body is not a JSON object: %w", err))
	}
	if envelope.ID == "" {
		return nil, application.NewInvalidInputError(errors.New("webhook event id is missing"))
	}

	logger := s.logger.With("event_id", envelope.ID, "event_type", envelope.EventType)
	headers := domain.NormalizeHeaders(header)

	verified := false
	if s.webhookID != "" {
		resp, err := s.client.VerifyWebhookSignature(ctx, headers, body, s.webhookID)
		if err != nil {
			logger.Warn("webhook verification call failed", "error", err)
			return nil, application.NewVerificationFailedError("verification call failed", err)
		}
		if resp.VerificationStatus != paypal.VerificationSuccess {
			logger.Warn("webhook signature rejected", "verification_status", resp.VerificationStatus)
			return nil, application.NewVerificationFailedError(fmt.Sprintf("status %q", resp.VerificationStatus), nil)
		}
		verified = true
	} else {
		logger.Warn("storing webhook without signature verification")
	}

	event := &domain.WebhookEvent{
		ID:         uuid.New(),
		EventID:    envelope.ID,
		EventType:  envelope.EventType,
		RawEvent:   json.RawMessage(body),
		Headers:    headers,
		ReceivedAt: s.now().UTC(),
	}

	stored, inserted, err := s.store.InsertIfAbsent(ctx, event)
	if err != nil {
		logger.Error("failed to store webhook event", "error", err)
		return nil, application.NewInternalError(err)
	}
	if !inserted {
		logger.Info("duplicate webhook delivery ignored")
		return &WebhookResult{Event: stored, Duplicate: true, Verified: verified}, nil
	}

	logger.Info("webhook event stored", "verified", verified)

	for _, react := range s.reactors[stored.EventType] {
		if err := react(ctx, stored); err != nil {
			logger.Error("webhook reactor failed", "error", err)
		}
	}

	return &WebhookResult{Event: stored, Verified: verified}, nil
}
