package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
)

type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError maps application errors to HTTP responses. Provider response
// bodies travel in detail; internal causes are logged, never returned.
func WriteError(w http.ResponseWriter, err error, logger *slog.Logger) {
	statusCode := application.ToHTTPStatus(err)
	errorCode := application.ToErrorCode(err)

	if statusCode >= http.StatusInternalServerError {
		logger.Error("request failed", "code", errorCode, "status", statusCode, "error", err)
	}

	response := ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Code:    errorCode,
			Message: errorMessage(err),
			Detail:  application.ErrorDetail(err),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func errorMessage(err error) string {
	if svcErr, ok := application.IsServiceError(err); ok {
		if svcErr.Code == application.ErrCodeInvalidInput && svcErr.Err != nil {
			return svcErr.Err.Error()
		}
		return svcErr.Message
	}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return "An internal error occurred"
}
