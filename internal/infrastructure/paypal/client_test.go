package paypal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, api http.HandlerFunc, timeout time.Duration) (*Client, *int32) {
	t.Helper()
	var tokenCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+tokenPath, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&tokenCalls, 1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token-" + string(rune('0'+n)),
			"expires_in":   300,
		})
	})
	mux.HandleFunc("/", api)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.PayPalConfig{BaseURL: srv.URL, RequestTimeout: timeout}
	tokens := NewTokenCache(srv.URL, "client", "secret")
	return NewClient(cfg, tokens, testLogger()), &tokenCalls
}

func TestClient_GetOrder(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/checkout/orders/ORDER-1", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"APPROVED","purchase_units":[{"amount":{"currency_code":"USD","value":"29.97"}}]}`))
	}, time.Second)

	order, err := client.GetOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)

	assert.Equal(t, "ORDER-1", order.ID)
	assert.Equal(t, "APPROVED", order.Status)
	require.Len(t, order.PurchaseUnits, 1)
	assert.Equal(t, "29.97", order.PurchaseUnits[0].Amount.Value)
	assert.Contains(t, string(order.Raw), `"status":"APPROVED"`)
}

func TestClient_CaptureOrderSendsIdempotencyHeaders(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/checkout/orders/ORDER-1/capture", r.URL.Path)
		assert.Equal(t, "capture-ORDER-1", r.Header.Get("PayPal-Request-Id"))
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"COMPLETED","purchase_units":[{"payments":{"captures":[{"id":"CAP-1","status":"COMPLETED","amount":{"currency_code":"USD","value":"29.97"}}]}}]}`))
	}, time.Second)

	order, err := client.CaptureOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)

	capture, ok := order.CompletedCapture()
	require.True(t, ok)
	assert.Equal(t, "CAP-1", capture.ID)
}

func TestClient_RetriesOnceOn401(t *testing.T) {
	var apiCalls int32
	client, tokenCalls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&apiCalls, 1) == 1 {
			assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer token-2", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"APPROVED"}`))
	}, time.Second)

	order, err := client.GetOrder(context.Background(), "ORDER-1")
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", order.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&apiCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(tokenCalls))
}

func TestClient_Second401IsAPIError(t *testing.T) {
	var apiCalls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&apiCalls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}, time.Second)

	_, err := client.GetOrder(context.Background(), "ORDER-1")
	apiErr, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, int32(2), atomic.LoadInt32(&apiCalls))
}

func TestClient_ErrorBodyIsPreserved(t *testing.T) {
	body := `{"name":"UNPROCESSABLE_ENTITY","message":"The requested action could not be performed","debug_id":"abc123","details":[{"issue":"ORDER_NOT_APPROVED"}]}`
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(body))
	}, time.Second)

	_, err := client.CaptureOrder(context.Background(), "ORDER-1")
	apiErr, ok := IsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "capture_order", apiErr.Op)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "UNPROCESSABLE_ENTITY", apiErr.Name)
	assert.Equal(t, "abc123", apiErr.DebugID)
	assert.JSONEq(t, body, ErrorBody(err))
	assert.False(t, apiErr.IsRetryable())
}

func TestClient_TimeoutIsNetworkError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}, 50*time.Millisecond)

	_, err := client.CaptureOrder(context.Background(), "ORDER-1")
	netErr, ok := IsNetworkError(err)
	require.True(t, ok)
	assert.Equal(t, "capture_order", netErr.Op)
}

func TestClient_CreateOrderBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/checkout/orders", r.URL.Path)

		var req CreateOrderRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, IntentCapture, req.Intent)
		if assert.Len(t, req.PurchaseUnits, 1) {
			assert.Equal(t, "29.97", req.PurchaseUnits[0].Amount.Value)
			assert.Equal(t, "3", req.PurchaseUnits[0].Items[0].Quantity)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ORDER-9","status":"CREATED","links":[{"href":"https://www.sandbox.paypal.com/checkoutnow?token=ORDER-9","rel":"approve"}]}`))
	}, time.Second)

	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		Intent: IntentCapture,
		PurchaseUnits: []PurchaseUnit{{
			Amount: &Amount{CurrencyCode: "USD", Value: "29.97"},
			Items:  []Item{{Name: "Widget", UnitAmount: Money{CurrencyCode: "USD", Value: "9.99"}, Quantity: "3"}},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ORDER-9", order.ID)
	require.Len(t, order.Links, 1)
	assert.Equal(t, "approve", order.Links[0].Rel)
}

func TestClient_RefundAndVerify(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/payments/captures/CAP-1/refund":
			var req RefundRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "5.00", req.Amount.Value)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"REF-1","status":"COMPLETED"}`))
		case "/v1/notifications/verify-webhook-signature":
			var req map[string]json.RawMessage
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.JSONEq(t, `"tx-1"`, string(req["transmission_id"]))
			assert.JSONEq(t, `"WH-1"`, string(req["webhook_id"]))
			assert.JSONEq(t, `{"id":"EVT-1"}`, string(req["webhook_event"]))
			_, _ = w.Write([]byte(`{"verification_status":"SUCCESS"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, time.Second)
	ctx := context.Background()

	refund, err := client.Refund(ctx, "CAP-1", RefundRequest{Amount: &Money{CurrencyCode: "USD", Value: "5.00"}})
	require.NoError(t, err)
	assert.Equal(t, "REF-1", refund.ID)
	assert.JSONEq(t, `{"id":"REF-1","status":"COMPLETED"}`, string(refund.Raw))

	resp, err := client.VerifyWebhookSignature(ctx, map[string]string{"paypal-transmission-id": "tx-1"}, []byte(`{"id":"EVT-1"}`), "WH-1")
	require.NoError(t, err)
	assert.Equal(t, VerificationSuccess, resp.VerificationStatus)
}

func TestClient_UndecodableSuccessIsDecodeError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ORDER-1","status":`))
	}, time.Second)

	_, err := client.CaptureOrder(context.Background(), "ORDER-1")
	require.Error(t, err)

	decErr, ok := IsDecodeError(err)
	require.True(t, ok)
	assert.Equal(t, "capture_order", decErr.Op)
	assert.True(t, IsOutcomeUnknown(err))
	assert.Equal(t, `{"id":"ORDER-1","status":`, ErrorBody(err))
}

func TestOrder_SettledCapturePrefersCompleted(t *testing.T) {
	order := &Order{PurchaseUnits: []PurchaseUnit{{Payments: &PurchaseUnitPayments{Captures: []Capture{
		{ID: "CAP-D", Status: "DECLINED"},
		{ID: "CAP-P", Status: StatusPending},
		{ID: "CAP-OK", Status: StatusCompleted},
	}}}}}

	capture, ok := order.SettledCapture()
	require.True(t, ok)
	assert.Equal(t, "CAP-OK", capture.ID)

	order.PurchaseUnits[0].Payments.Captures = order.PurchaseUnits[0].Payments.Captures[:2]
	capture, ok = order.SettledCapture()
	require.True(t, ok)
	assert.Equal(t, "CAP-P", capture.ID)

	order.PurchaseUnits[0].Payments.Captures = order.PurchaseUnits[0].Payments.Captures[:1]
	_, ok = order.SettledCapture()
	assert.False(t, ok)
	first, ok := order.FirstCapture()
	require.True(t, ok)
	assert.Equal(t, "CAP-D", first.ID)
}
