package paypal

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	args := m.Called(ctx, req)
	order, _ := args.Get(0).(*Order)
	return order, args.Error(1)
}

func (m *mockAPI) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	args := m.Called(ctx, orderID)
	order, _ := args.Get(0).(*Order)
	return order, args.Error(1)
}

func (m *mockAPI) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	args := m.Called(ctx, orderID)
	order, _ := args.Get(0).(*Order)
	return order, args.Error(1)
}

func (m *mockAPI) Refund(ctx context.Context, captureID string, req RefundRequest) (*Refund, error) {
	args := m.Called(ctx, captureID, req)
	refund, _ := args.Get(0).(*Refund)
	return refund, args.Error(1)
}

func (m *mockAPI) VerifyWebhookSignature(ctx context.Context, headers map[string]string, body []byte, webhookID string) (*VerifyWebhookResponse, error) {
	args := m.Called(ctx, headers, body, webhookID)
	resp, _ := args.Get(0).(*VerifyWebhookResponse)
	return resp, args.Error(1)
}

func newRetryClient(inner API) *RetryClient {
	return NewRetryClient(inner, config.RetryConfig{BaseDelay: time.Millisecond, MaxRetries: 3}, testLogger())
}

func TestRetryClient_GetOrderRetriesTransientFailures(t *testing.T) {
	inner := &mockAPI{}
	inner.On("GetOrder", mock.Anything, "ORDER-1").
		Return(nil, &NetworkError{Op: "get_order", Err: errors.New("connection reset")}).Once()
	inner.On("GetOrder", mock.Anything, "ORDER-1").
		Return(nil, &APIError{Op: "get_order", StatusCode: http.StatusServiceUnavailable}).Once()
	inner.On("GetOrder", mock.Anything, "ORDER-1").
		Return(&Order{ID: "ORDER-1"}, nil).Once()

	order, err := newRetryClient(inner).GetOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", order.ID)
	inner.AssertNumberOfCalls(t, "GetOrder", 3)
}

func TestRetryClient_GetOrderStopsOnClientError(t *testing.T) {
	inner := &mockAPI{}
	inner.On("GetOrder", mock.Anything, "ORDER-1").
		Return(nil, &APIError{Op: "get_order", StatusCode: http.StatusNotFound}).Once()

	_, err := newRetryClient(inner).GetOrder(context.Background(), "ORDER-1")
	apiErr, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	inner.AssertNumberOfCalls(t, "GetOrder", 1)
}

func TestRetryClient_GivesUpAfterMaxRetries(t *testing.T) {
	inner := &mockAPI{}
	inner.On("VerifyWebhookSignature", mock.Anything, mock.Anything, mock.Anything, "WH-1").
		Return(nil, &NetworkError{Op: "verify_webhook", Err: errors.New("timeout")})

	_, err := newRetryClient(inner).VerifyWebhookSignature(context.Background(), nil, []byte(`{}`), "WH-1")
	_, ok := IsNetworkError(err)
	assert.True(t, ok)
	inner.AssertNumberOfCalls(t, "VerifyWebhookSignature", 4)
}

func TestRetryClient_CaptureIsNotRetried(t *testing.T) {
	inner := &mockAPI{}
	inner.On("CaptureOrder", mock.Anything, "ORDER-1").
		Return(nil, &NetworkError{Op: "capture_order", Err: errors.New("timeout")}).Once()

	_, err := newRetryClient(inner).CaptureOrder(context.Background(), "ORDER-1")
	assert.Error(t, err)
	inner.AssertNumberOfCalls(t, "CaptureOrder", 1)
}

func TestRetryClient_RefundIsNotRetried(t *testing.T) {
	inner := &mockAPI{}
	inner.On("Refund", mock.Anything, "CAP-1", mock.Anything).
		Return(nil, &APIError{Op: "refund", StatusCode: http.StatusInternalServerError}).Once()

	_, err := newRetryClient(inner).Refund(context.Background(), "CAP-1", RefundRequest{})
	assert.Error(t, err)
	inner.AssertNumberOfCalls(t, "Refund", 1)
}
