package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	tokenPath          = "/v1/oauth2/token"
	defaultTokenMargin = 30 * time.Second
	tokenFlightKey     = "token"
)

// TokenCache holds one OAuth bearer token for the configured credentials and
// refreshes it shortly before expiry. Concurrent refreshes share one exchange.
type TokenCache struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	margin       time.Duration
	now          func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	flight singleflight.Group
}

type TokenOption func(*TokenCache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCache) { c.now = now }
}

// WithMargin sets how long before expiry a token stops being served.
func WithMargin(margin time.Duration) TokenOption {
	return func(c *TokenCache) { c.margin = margin }
}

func WithTokenHTTPClient(client *http.Client) TokenOption {
	return func(c *TokenCache) { c.httpClient = client }
}

func NewTokenCache(baseURL, clientID, clientSecret string, opts ...TokenOption) *TokenCache {
	c := &TokenCache{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		margin:       defaultTokenMargin,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetToken returns a cached token while now is before the expiry minus the
// margin, and performs a client-credentials exchange otherwise.
func (c *TokenCache) GetToken(ctx context.Context) (string, error) {
	if c.clientID == "" || c.clientSecret == "" {
		return "", ErrCredentialsMissing
	}

	if token, ok := c.cached(); ok {
		return token, nil
	}

	ch := c.flight.DoChan(tokenFlightKey, func() (any, error) {
		if token, ok := c.cached(); ok {
			return token, nil
		}
		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		return c.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops token if it is still the cached one. A token that was
// already replaced by a newer refresh is left alone.
func (c *TokenCache) Invalidate(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.token = ""
		c.expiresAt = time.Time{}
	}
}

func (c *TokenCache) cached() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, true
	}
	return "", false
}

func (c *TokenCache) refresh(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("error creating token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	fetchedAt := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &NetworkError{Op: "token", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{Op: "token", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil || tr.AccessToken == "" {
		return "", &AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	c.mu.Lock()
	c.token = tr.AccessToken
	c.expiresAt = fetchedAt.Add(time.Duration(tr.ExpiresIn)*time.Second - c.margin)
	c.mu.Unlock()

	return tr.AccessToken, nil
}
