package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/interfaces/rest"
	"github.com/DanielPopoola/storefront-payments/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/storefront-payments/internal/interfaces/rest/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestClient wraps HTTP calls to the payments service
type TestClient struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

func NewTestClient(baseURL, adminToken string) *TestClient {
	return &TestClient{
		baseURL:    baseURL,
		adminToken: adminToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status int
	Body   rest.ErrorResponse
}

func (e *APIError) Error() string {
	return fmt.Sprintf("status %d: %s (%s)", e.Status, e.Body.Error.Code, e.Body.Error.Message)
}

func (c *TestClient) call(t *testing.T, method, path string, body any, admin bool, header http.Header, out any) error {
	t.Helper()

	var reader io.Reader
	if body != nil {
		var payload []byte
		switch b := body.(type) {
		case []byte:
			payload = b
		default:
			encoded, err := json.Marshal(body)
			require.NoError(t, err)
			payload = encoded
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequest(method, c.baseURL+path, reader)
	require.NoError(t, err)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if admin {
		httpReq.Header.Set(middleware.AdminTokenHeader, c.adminToken)
	}
	for k, values := range header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		json.Unmarshal(bodyBytes, &apiErr.Body)
		return apiErr
	}

	if out == nil {
		return nil
	}
	envelope := struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.Unmarshal(bodyBytes, &envelope), string(bodyBytes))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
	return nil
}

// CreateOrder calls /paypal/create-paypal-order and returns the PayPal order id
func (c *TestClient) CreateOrder(t *testing.T, req handlers.CreateOrderRequest) (string, error) {
	var order struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := c.call(t, http.MethodPost, "/paypal/create-paypal-order", req, false, nil, &order); err != nil {
		return "", err
	}
	return order.ID, nil
}

// Capture calls /paypal/capture-paypal-order
func (c *TestClient) Capture(t *testing.T, req handlers.CaptureRequest) (*handlers.CaptureResponse, error) {
	var resp handlers.CaptureResponse
	if err := c.call(t, http.MethodPost, "/paypal/capture-paypal-order", req, false, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Webhook posts a raw event body with PayPal transmission headers
func (c *TestClient) Webhook(t *testing.T, body []byte) (*handlers.WebhookResponse, error) {
	header := http.Header{}
	header.Set("PAYPAL-TRANSMISSION-ID", "tx-"+uuid.NewString())
	header.Set("PAYPAL-TRANSMISSION-TIME", time.Now().UTC().Format(time.RFC3339))
	header.Set("PAYPAL-TRANSMISSION-SIG", "sig")
	header.Set("PAYPAL-CERT-URL", "https://api.sandbox.paypal.com/cert.pem")
	header.Set("PAYPAL-AUTH-ALGO", "SHA256withRSA")

	var resp handlers.WebhookResponse
	if err := c.call(t, http.MethodPost, "/paypal/webhook/paypal", body, false, header, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *TestClient) ListPayments(t *testing.T, page, perPage int) (*rest.PaymentList, error) {
	var list rest.PaymentList
	path := fmt.Sprintf("/payments-admin/api/payments?page=%d&per_page=%d", page, perPage)
	if err := c.call(t, http.MethodGet, path, nil, true, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *TestClient) GetPayment(t *testing.T, paymentID string) (*rest.PaymentDetail, error) {
	var detail rest.PaymentDetail
	if err := c.call(t, http.MethodGet, "/payments-admin/api/payments/"+paymentID, nil, true, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *TestClient) Refund(t *testing.T, paymentID string, req map[string]any) (*handlers.RefundResponse, error) {
	var resp handlers.RefundResponse
	if err := c.call(t, http.MethodPost, "/payments-admin/api/payments/"+paymentID+"/refund", req, true, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ErrorCode returns the envelope code of an APIError, or "" for other errors.
func ErrorCode(err error) string {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.Body.Error.Code
	}
	return ""
}
