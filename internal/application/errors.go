package application

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/DanielPopoola/storefront-payments/internal/infrastructure/paypal"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

// ServiceError is an orchestration failure with its HTTP mapping. Detail
// carries the provider response body when PayPal rejected a call.
type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Detail     string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeCaptureFailed       = "CAPTURE_FAILED"
	ErrCodeOrderFetchFailed    = "ORDER_FETCH_FAILED"
	ErrCodeRefundFailed        = "REFUND_FAILED"
	ErrCodeCreateOrderFailed   = "CREATE_ORDER_FAILED"
	ErrCodeVerificationFailed  = "VERIFICATION_FAILED"
	ErrCodeCredentialsMissing  = "CREDENTIALS_MISSING"
	ErrCodeProviderAuthFailed  = "PROVIDER_AUTH_FAILED"
	ErrCodeProviderUnavailable = "PROVIDER_UNAVAILABLE"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeTimeout             = "TIMEOUT"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeInvalidInput        = "INVALID_INPUT"
)

// NewProviderError wraps a failed PayPal call. Credential and OAuth problems
// keep their own codes; everything else reports code, with 503 when the
// provider could not be reached.
func NewProviderError(code, message string, err error) *ServiceError {
	if errors.Is(err, paypal.ErrCredentialsMissing) {
		return &ServiceError{
			Code:       ErrCodeCredentialsMissing,
			Message:    "PayPal credentials are not configured",
			HTTPStatus: http.StatusInternalServerError,
			Err:        err,
		}
	}
	if authErr, ok := paypal.IsAuthError(err); ok {
		return &ServiceError{
			Code:       ErrCodeProviderAuthFailed,
			Message:    "PayPal rejected the client credentials",
			HTTPStatus: http.StatusBadGateway,
			Detail:     authErr.Body,
			Err:        err,
		}
	}

	status := http.StatusBadGateway
	if _, ok := paypal.IsNetworkError(err); ok {
		status = http.StatusServiceUnavailable
	}
	return &ServiceError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Detail:     paypal.ErrorBody(err),
		Err:        err,
	}
}

// NewCaptureFailedError reports a capture PayPal answered but did not complete.
func NewCaptureFailedError(reason string, detail []byte) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeCaptureFailed,
		Message:    fmt.Sprintf("capture failed: %s", reason),
		HTTPStatus: http.StatusBadGateway,
		Detail:     string(detail),
	}
}

func NewVerificationFailedError(reason string, err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeVerificationFailed,
		Message:    fmt.Sprintf("webhook verification failed: %s", reason),
		HTTPStatus: http.StatusBadRequest,
		Detail:     paypal.ErrorBody(err),
		Err:        err,
	}
}

func NewUnauthorizedError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeUnauthorized,
		Message:    "admin token missing or invalid",
		HTTPStatus: http.StatusUnauthorized,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
