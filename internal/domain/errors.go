package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInvalidItems        = "INVALID_ITEMS"
	ErrCodeAmountMismatch      = "AMOUNT_MISMATCH"
	ErrCodeInvalidOrder        = "INVALID_ORDER"
	ErrCodeMissingOrderID      = "MISSING_ORDER_ID"
	ErrCodeMissingCaptureID    = "MISSING_CAPTURE_ID"
	ErrCodeUnsupportedProvider = "UNSUPPORTED_PROVIDER"
	ErrCodePaymentNotFound     = "PAYMENT_NOT_FOUND"
	ErrCodeOrderNotFound       = "ORDER_NOT_FOUND"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
)

func NewInvalidItemsError(reason string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidItems,
		Message: fmt.Sprintf("invalid items: %s", reason),
	}
}

func NewAmountMismatchError(computed, provided decimal.Decimal) *DomainError {
	return &DomainError{
		Code:    ErrCodeAmountMismatch,
		Message: fmt.Sprintf("amount mismatch: cart total %s, provider amount %s", FormatAmount(computed), FormatAmount(provided)),
	}
}

func NewCurrencyMismatchError(expected, actual string) *DomainError {
	return &DomainError{
		Code:    ErrCodeAmountMismatch,
		Message: fmt.Sprintf("currency mismatch: expected %s, got %s", expected, actual),
	}
}

func NewInvalidOrderError(reason string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidOrder,
		Message: fmt.Sprintf("invalid provider order: %s", reason),
		Err:     err,
	}
}

func NewMissingOrderIDError() *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingOrderID,
		Message: "order id is required",
	}
}

func NewMissingCaptureIDError(paymentID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingCaptureID,
		Message: fmt.Sprintf("payment %s has no provider capture id", paymentID),
	}
}

func NewUnsupportedProviderError(provider string) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnsupportedProvider,
		Message: fmt.Sprintf("refunds are not supported for provider %q", provider),
	}
}

func NewPaymentNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodePaymentNotFound,
		Message: fmt.Sprintf("payment with ID %s not found", id),
	}
}

func NewOrderNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeOrderNotFound,
		Message: fmt.Sprintf("order with ID %s not found", id),
	}
}

func NewInvalidAmountError(amount string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %s", amount),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
