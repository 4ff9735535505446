package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/application/services"
	"github.com/DanielPopoola/storefront-payments/internal/application/services/testhelpers"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/DanielPopoola/storefront-payments/internal/infrastructure/paypal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const captureEvent = `{"id":"WH-1","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"CAP-1"}}`

func webhookHeaders() http.Header {
	h := http.Header{}
	h.Set("Paypal-Transmission-Id", "tx-1")
	h.Set("Paypal-Transmission-Sig", "sig")
	h.Set("Paypal-Auth-Algo", "SHA256withRSA")
	h.Set("Paypal-Cert-Url", "https://api.sandbox.paypal.com/cert.pem")
	h.Set("Paypal-Transmission-Time", "2024-01-01T00:00:00Z")
	return h
}

func TestWebhook_VerifiedEventIsStored(t *testing.T) {
	client := &testhelpers.MockPayPalClient{}
	store := testhelpers.NewMockWebhookStore()
	service := services.NewWebhookService(client, store, "WH-CONFIG", testhelpers.DiscardLogger())

	client.On("VerifyWebhookSignature", mock.Anything, mock.MatchedBy(func(h map[string]string) bool {
		return h["paypal-transmission-id"] == "tx-1"
	}), []byte(captureEvent), "WH-CONFIG").
		Return(&paypal.VerifyWebhookResponse{VerificationStatus: "SUCCESS"}, nil).Once()

	result, err := service.HandleEvent(context.Background(), webhookHeaders(), []byte(captureEvent))
	require.NoError(t, err)

	assert.True(t, result.Verified)
	assert.False(t, result.Duplicate)
	assert.Equal(t, "WH-1", result.Event.EventID)
	assert.Equal(t, "PAYMENT.CAPTURE.COMPLETED", result.Event.EventType)
	assert.Equal(t, "sig", result.Event.Headers["paypal-transmission-sig"])
	assert.Equal(t, 1, store.Count())
	client.AssertExpectations(t)
}

func TestWebhook_FailedVerificationStoresNothing(t *testing.T) {
	client := &testhelpers.MockPayPalClient{}
	store := testhelpers.NewMockWebhookStore()
	service := services.NewWebhookService(client, store, "WH-CONFIG", testhelpers.DiscardLogger())

	client.On("VerifyWebhookSignature", mock.Anything, mock.Anything, mock.Anything, "WH-CONFIG").
		Return(&paypal.VerifyWebhookResponse{VerificationStatus: "FAILURE"}, nil).Once()

	_, err := service.HandleEvent(context.Background(), webhookHeaders(), []byte(captureEvent))

	assert.Equal(t, application.ErrCodeVerificationFailed, application.ToErrorCode(err))
	assert.Equal(t, http.StatusBadRequest, application.ToHTTPStatus(err))
	assert.Equal(t, 0, store.Count())
}

func TestWebhook_VerificationCallErrorStoresNothing(t *testing.T) {
	client := &testhelpers.MockPayPalClient{}
	store := testhelpers.NewMockWebhookStore()
	service := services.NewWebhookService(client, store, "WH-CONFIG", testhelpers.DiscardLogger())

	client.On("VerifyWebhookSignature", mock.Anything, mock.Anything, mock.Anything, "WH-CONFIG").
		Return(nil, &paypal.APIError{Op: "verify_webhook", StatusCode: 400, Body: []byte(`{"name":"VALIDATION_ERROR"}`)}).Once()

	_, err := service.HandleEvent(context.Background(), webhookHeaders(), []byte(captureEvent))

	assert.Equal(t, application.ErrCodeVerificationFailed, application.ToErrorCode(err))
	assert.Contains(t, application.ErrorDetail(err), "VALIDATION_ERROR")
	assert.Equal(t, 0, store.Count())
}

func TestWebhook_DuplicateDeliveryIsAcknowledged(t *testing.T) {
	client := &testhelpers.MockPayPalClient{}
	store := testhelpers.NewMockWebhookStore()
	service := services.NewWebhookService(client, store, "", testhelpers.DiscardLogger())

	reactions := 0
	service.On("PAYMENT.CAPTURE.COMPLETED", func(ctx context.Context, event *domain.WebhookEvent) error {
		reactions++
		return nil
	})

	first, err := service.HandleEvent(context.Background(), webhookHeaders(), []byte(captureEvent))
	require.NoError(t, err)
	second, err := service.HandleEvent(context.Background(), webhookHeaders(), []byte(captureEvent))
	require.NoError(t, err)

	assert.False(t, first.Duplicate)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Event.ID, second.Event.ID)
	assert.Equal(t, 1, store.Count())
	assert.Equal(t, 1, reactions)
}

func TestWebhook_UnverifiedModeSkipsProvider(t *testing.T) {
	client := &testhelpers.MockPayPalClient{}
	store := testhelpers.NewMockWebhookStore()
	service := services.NewWebhookService(client, store, "", testhelpers.DiscardLogger())

	result, err := service.HandleEvent(context.Background(), http.Header{}, []byte(captureEvent))
	require.NoError(t, err)

	assert.False(t, result.Verified)
	client.AssertNotCalled(t, "VerifyWebhookSignature", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_ReactorFailureDoesNotFailDelivery(t *testing.T) {
	store := testhelpers.NewMockWebhookStore()
	service := services.NewWebhookService(&testhelpers.MockPayPalClient{}, store, "", testhelpers.DiscardLogger())
	service.On("PAYMENT.CAPTURE.COMPLETED", func(ctx context.Context, event *domain.WebhookEvent) error {
		return errors.New("paypal down")
	})

	result, err := service.HandleEvent(context.Background(), http.Header{}, []byte(captureEvent))
	require.NoError(t, err)
	assert.Equal(t, 1, store.Count())
	assert.False(t, result.Duplicate)
}

func TestWebhook_MalformedBody(t *testing.T) {
	service := services.NewWebhookService(&testhelpers.MockPayPalClient{}, testhelpers.NewMockWebhookStore(), "", testhelpers.DiscardLogger())

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `not-json`},
		{name: "missing id", body: `{"event_type":"PAYMENT.CAPTURE.COMPLETED"}`},
		{name: "array", body: `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.HandleEvent(context.Background(), http.Header{}, []byte(tt.body))
			assert.Equal(t, application.ErrCodeInvalidInput, application.ToErrorCode(err))
		})
	}
}

func TestWebhook_StoreFailure(t *testing.T) {
	store := testhelpers.NewMockWebhookStore()
	store.InsertIfAbsentFn = func(ctx context.Context, event *domain.WebhookEvent) (*domain.WebhookEvent, bool, error) {
		return nil, false, errors.New("db down")
	}
	service := services.NewWebhookService(&testhelpers.MockPayPalClient{}, store, "", testhelpers.DiscardLogger())

	_, err := service.HandleEvent(context.Background(), http.Header{}, []byte(captureEvent))
	assert.Equal(t, http.StatusInternalServerError, application.ToHTTPStatus(err))
}

func TestWebhook_CaptureFetchFailureIsQueuedDespiteRedeliveryDedupe(t *testing.T) {
	client := &testhelpers.MockPayPalClient{}
	attempts := testhelpers.NewMockAttemptStore()
	payments := testhelpers.NewMockPaymentStore()
	captures := services.NewCaptureService(client, payments, attempts, testhelpers.DiscardLogger())
	service := services.NewWebhookService(client, testhelpers.NewMockWebhookStore(), "", testhelpers.DiscardLogger())
	service.On("PAYMENT.CAPTURE.COMPLETED", captures.HandleCaptureCompleted)

	body := []byte(`{"id":"WH-9","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"CAP-1","supplementary_data":{"related_ids":{"order_id":"ORDER-9"}}}}`)
	client.On("GetOrder", mock.Anything, "ORDER-9").
		Return(nil, &paypal.NetworkError{Op: "get_order", Err: context.DeadlineExceeded}).Once()

	first, err := service.HandleEvent(context.Background(), webhookHeaders(), body)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	redelivery, err := service.HandleEvent(context.Background(), webhookHeaders(), body)
	require.NoError(t, err)
	assert.True(t, redelivery.Duplicate)

	assert.Equal(t, 0, payments.Count())
	attempt, recorded := attempts.Get("ORDER-9")
	require.True(t, recorded)
	assert.Equal(t, domain.AttemptPending, attempt.Status)

	client.On("GetOrder", mock.Anything, "ORDER-9").
		Return(testhelpers.CapturedOrder("ORDER-9", "CAP-1", "COMPLETED", "29.97", "USD"), nil).Once()
	result, err := captures.Reconcile(context.Background(), "ORDER-9")
	require.NoError(t, err)
	assert.Equal(t, "CAP-1", result.CaptureID)
	assert.Equal(t, 1, payments.Count())
}
