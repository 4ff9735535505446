package paypal

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCredentialsMissing is returned before any network call when the client
// id or secret is empty.
var ErrCredentialsMissing = errors.New("paypal client credentials are not configured")

// AuthError means the OAuth token exchange was rejected or returned no token.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("paypal token exchange failed (status: %d): %s", e.StatusCode, e.Body)
}

// NetworkError wraps transport failures and timeouts. The outcome of the
// remote operation is unknown.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("paypal %s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func (e *NetworkError) IsRetryable() bool {
	return true
}

// DecodeError is a 2xx response whose body could not be decoded. PayPal
// accepted the request, so for money-moving calls the outcome is unknown.
type DecodeError struct {
	Op   string
	Body []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("paypal %s: error decoding response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx PayPal response. Body is kept verbatim so callers can
// surface it.
type APIError struct {
	Op         string
	StatusCode int
	Body       []byte
	Name       string
	Message    string
	DebugID    string
}

type errorResponse struct {
	Name             string `json:"name"`
	Message          string `json:"message"`
	DebugID          string `json:"debug_id"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func newAPIError(op string, status int, body []byte) *APIError {
	apiErr := &APIError{Op: op, StatusCode: status, Body: body}

	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err == nil {
		apiErr.Name = resp.Name
		apiErr.Message = resp.Message
		apiErr.DebugID = resp.DebugID
		if apiErr.Name == "" {
			apiErr.Name = resp.Error
		}
		if apiErr.Message == "" {
			apiErr.Message = resp.ErrorDescription
		}
	}
	return apiErr
}

func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("paypal %s failed [%s]: %s (status: %d)", e.Op, e.Name, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("paypal %s failed (status: %d): %s", e.Op, e.StatusCode, string(e.Body))
}

func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

func IsNetworkError(err error) (*NetworkError, bool) {
	var netErr *NetworkError
	ok := errors.As(err, &netErr)
	return netErr, ok
}

func IsDecodeError(err error) (*DecodeError, bool) {
	var decErr *DecodeError
	ok := errors.As(err, &decErr)
	return decErr, ok
}

// IsOutcomeUnknown reports whether the remote operation may have taken effect
// even though the call failed.
func IsOutcomeUnknown(err error) bool {
	if _, ok := IsNetworkError(err); ok {
		return true
	}
	_, ok := IsDecodeError(err)
	return ok
}

func IsAuthError(err error) (*AuthError, bool) {
	var authErr *AuthError
	ok := errors.As(err, &authErr)
	return authErr, ok
}

// ErrorBody returns the provider response body carried by err, if any.
func ErrorBody(err error) string {
	if apiErr, ok := IsAPIError(err); ok {
		return string(apiErr.Body)
	}
	if authErr, ok := IsAuthError(err); ok {
		return authErr.Body
	}
	if decErr, ok := IsDecodeError(err); ok {
		return string(decErr.Body)
	}
	return ""
}
