package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/DanielPopoola/storefront-payments/internal/config"
)

// API is the set of PayPal REST operations the payment pipeline uses.
type API interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*Order, error)
	Refund(ctx context.Context, captureID string, req RefundRequest) (*Refund, error)
	VerifyWebhookSignature(ctx context.Context, headers map[string]string, body []byte, webhookID string) (*VerifyWebhookResponse, error)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *TokenCache
	timeout    time.Duration
	logger     *slog.Logger
}

var _ API = (*Client)(nil)

func NewClient(cfg config.PayPalConfig, tokens *TokenCache, logger *slog.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    cfg.APIBaseURL(),
		httpClient: &http.Client{},
		tokens:     tokens,
		timeout:    timeout,
		logger:     logger,
	}
}

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	order, body, err := sendRequest[CreateOrderRequest, Order](ctx, c, "create_order", http.MethodPost, "/v2/checkout/orders", &req, nil)
	if err != nil {
		return nil, err
	}
	order.Raw = body
	return order, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	path := "/v2/checkout/orders/" + url.PathEscape(orderID)
	order, body, err := sendRequest[any, Order](ctx, c, "get_order", http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	order.Raw = body
	return order, nil
}

// CaptureOrder captures an approved order. The request id makes PayPal
// replay the original result for repeated captures of the same order.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	headers := map[string]string{
		"PayPal-Request-Id": "capture-" + orderID,
		"Prefer":            "return=representation",
	}
	empty := struct{}{}
	order, body, err := sendRequest[struct{}, Order](ctx, c, "capture_order", http.MethodPost, path, &empty, headers)
	if err != nil {
		return nil, err
	}
	order.Raw = body
	return order, nil
}

func (c *Client) Refund(ctx context.Context, captureID string, req RefundRequest) (*Refund, error) {
	path := "/v2/payments/captures/" + url.PathEscape(captureID) + "/refund"
	refund, body, err := sendRequest[RefundRequest, Refund](ctx, c, "refund", http.MethodPost, path, &req, nil)
	if err != nil {
		return nil, err
	}
	refund.Raw = body
	return refund, nil
}

// VerifyWebhookSignature asks PayPal to check the transmission headers of a
// delivered webhook. headers must use lower-cased names.
func (c *Client) VerifyWebhookSignature(ctx context.Context, headers map[string]string, body []byte, webhookID string) (*VerifyWebhookResponse, error) {
	req := VerifyWebhookRequest{
		AuthAlgo:         headers["paypal-auth-algo"],
		CertURL:          headers["paypal-cert-url"],
		TransmissionID:   headers["paypal-transmission-id"],
		TransmissionSig:  headers["paypal-transmission-sig"],
		TransmissionTime: headers["paypal-transmission-time"],
		WebhookID:        webhookID,
		WebhookEvent:     json.RawMessage(body),
	}
	resp, _, err := sendRequest[VerifyWebhookRequest, VerifyWebhookResponse](ctx, c, "verify_webhook", http.MethodPost, "/v1/notifications/verify-webhook-signature", &req, nil)
	return resp, err
}

// sendRequest performs one authenticated call. A 401 invalidates the token and
// the call is repeated once with a fresh one; nothing else is retried here.
func sendRequest[Req any, Resp any](
	ctx context.Context,
	c *Client,
	op, method, path string,
	reqBody *Req,
	headers map[string]string,
) (*Resp, []byte, error) {
	var payload []byte
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return nil, nil, fmt.Errorf("error marshalling json: %w", err)
		}
		payload = data
	}

	for attempt := 0; ; attempt++ {
		token, err := c.tokens.GetToken(ctx)
		if err != nil {
			return nil, nil, err
		}

		status, body, err := c.do(ctx, method, c.baseURL+path, payload, token, headers)
		if err != nil {
			return nil, nil, &NetworkError{Op: op, Err: err}
		}

		if status == http.StatusUnauthorized && attempt == 0 {
			c.logger.Warn("paypal rejected bearer token, refreshing", "operation", op)
			c.tokens.Invalidate(token)
			continue
		}

		if status < 200 || status >= 300 {
			return nil, nil, newAPIError(op, status, body)
		}

		var resp Resp
		if len(bytes.TrimSpace(body)) > 0 {
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, nil, &DecodeError{Op: op, Body: body, Err: err}
			}
		}
		return &resp, body, nil
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte, token string, headers map[string]string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
