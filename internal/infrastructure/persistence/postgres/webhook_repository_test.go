package postgres_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookEvent(eventID string) *domain.WebhookEvent {
	return &domain.WebhookEvent{
		ID:         uuid.New(),
		EventID:    eventID,
		EventType:  "PAYMENT.CAPTURE.COMPLETED",
		RawEvent:   json.RawMessage(`{"id":"` + eventID + `","event_type":"PAYMENT.CAPTURE.COMPLETED"}`),
		Headers:    map[string]string{"paypal-transmission-id": "tx-1"},
		ReceivedAt: time.Now().UTC(),
	}
}

func (s *RepositoryTestSuite) TestWebhook_InsertIfAbsent() {
	ctx := context.Background()
	t := s.T()

	first, inserted, err := s.webhooks.InsertIfAbsent(ctx, webhookEvent("WH-1"))
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "tx-1", first.Headers["paypal-transmission-id"])

	second, inserted, err := s.webhooks.InsertIfAbsent(ctx, webhookEvent("WH-1"))
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ID, second.ID)

	var count int
	require.NoError(t, s.testDB.DB.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM paypal_webhook_events`).Scan(&count))
	assert.Equal(t, 1, count)
}

func (s *RepositoryTestSuite) TestWebhook_NilHeadersStoredAsEmptyObject() {
	event := webhookEvent("WH-2")
	event.Headers = nil

	stored, inserted, err := s.webhooks.InsertIfAbsent(context.Background(), event)
	require.NoError(s.T(), err)
	assert.True(s.T(), inserted)
	assert.Empty(s.T(), stored.Headers)
}

func (s *RepositoryTestSuite) TestCaptureAttempts_Lifecycle() {
	ctx := context.Background()
	t := s.T()
	now := time.Now().UTC()

	require.NoError(t, s.attempts.RecordAttempt(ctx, "ORDER-1", "timeout", now.Add(-time.Second)))
	require.NoError(t, s.attempts.RecordAttempt(ctx, "ORDER-2", "timeout", now.Add(time.Hour)))

	due, err := s.attempts.FindDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "ORDER-1", due[0].ProviderOrderID)
	assert.Equal(t, domain.AttemptPending, due[0].Status)
	assert.Equal(t, 0, due[0].AttemptCount)

	require.NoError(t, s.attempts.ScheduleRetry(ctx, "ORDER-1", "still pending", now.Add(-time.Millisecond)))
	due, err = s.attempts.FindDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 1, due[0].AttemptCount)
	assert.Equal(t, "still pending", *due[0].LastError)

	require.NoError(t, s.attempts.MarkResolved(ctx, "ORDER-1"))
	require.NoError(t, s.attempts.MarkAbandoned(ctx, "ORDER-2", "gave up"))

	due, err = s.attempts.FindDue(ctx, now.Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}
