package application

import (
	"context"
	"errors"
	"net/http"

	"github.com/DanielPopoola/storefront-payments/internal/domain"
	"github.com/DanielPopoola/storefront-payments/internal/infrastructure/paypal"
)

// ErrorCategory represents the nature of an error for retry logic
type ErrorCategory string

const (
	CategoryTransient      ErrorCategory = "TRANSIENT"
	CategoryPermanent      ErrorCategory = "PERMANENT"
	CategoryBusinessRule   ErrorCategory = "BUSINESS_RULE"
	CategoryClientError    ErrorCategory = "CLIENT_ERROR"
	CategoryInfrastructure ErrorCategory = "INFRASTRUCTURE"
)

// domainStatus maps domain error codes to HTTP status codes.
var domainStatus = map[string]int{
	domain.ErrCodeInvalidItems:        http.StatusBadRequest,
	domain.ErrCodeMissingOrderID:      http.StatusBadRequest,
	domain.ErrCodeUnsupportedProvider: http.StatusBadRequest,
	domain.ErrCodeInvalidAmount:       http.StatusBadRequest,
	domain.ErrCodeAmountMismatch:      http.StatusConflict,
	domain.ErrCodeMissingCaptureID:    http.StatusConflict,
	domain.ErrCodeInvalidOrder:        http.StatusUnprocessableEntity,
	domain.ErrCodePaymentNotFound:     http.StatusNotFound,
	domain.ErrCodeOrderNotFound:       http.StatusNotFound,
}

// CategorizeError determines error category for retry and logging purposes
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	// Context Errors (Transient - network/timeout issues)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return CategoryTransient
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodeAmountMismatch, domain.ErrCodeInvalidOrder,
			domain.ErrCodeMissingCaptureID, domain.ErrCodeUnsupportedProvider:
			return CategoryBusinessRule
		default:
			return CategoryClientError
		}
	}

	// PayPal errors before service codes: a wrapped provider failure is
	// judged by what the provider said.
	if errors.Is(err, paypal.ErrCredentialsMissing) {
		return CategoryInfrastructure
	}
	if _, ok := paypal.IsAuthError(err); ok {
		return CategoryInfrastructure
	}
	if paypal.IsOutcomeUnknown(err) {
		return CategoryTransient
	}
	if apiErr, ok := paypal.IsAPIError(err); ok {
		if apiErr.IsRetryable() {
			return CategoryTransient
		}
		return CategoryPermanent
	}

	if svcErr, ok := IsServiceError(err); ok {
		switch svcErr.Code {
		case ErrCodeInvalidInput, ErrCodeUnauthorized, ErrCodeVerificationFailed:
			return CategoryClientError
		case ErrCodeInternal:
			return CategoryInfrastructure
		case ErrCodeTimeout:
			return CategoryTransient
		}
	}

	// Default: Transient (safe fallback)
	return CategoryTransient
}

// IsRetryable returns true if the error category suggests retry
func IsRetryable(err error) bool {
	category := CategorizeError(err)
	return category == CategoryTransient || category == CategoryInfrastructure
}

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		if status, ok := domainStatus[domainErr.Code]; ok {
			return status
		}
		return http.StatusBadRequest
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout
	}

	// Default to 500
	return http.StatusInternalServerError
}

// ToErrorCode clear error code for API responses
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeout
	}

	return ErrCodeInternal
}

// ErrorDetail returns the provider body attached to err, if any.
func ErrorDetail(err error) string {
	if svcErr, ok := IsServiceError(err); ok && svcErr.Detail != "" {
		return svcErr.Detail
	}
	return paypal.ErrorBody(err)
}
