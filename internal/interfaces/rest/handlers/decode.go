package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/DanielPopoola/storefront-payments/internal/application"
)

func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return application.NewInvalidInputError(fmt.Errorf("read request body: %w", err))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return application.NewInvalidInputError(fmt.Errorf("request body is not valid JSON: %w", err))
	}
	if err := h.validate.Struct(dst); err != nil {
		return application.NewInvalidInputError(err)
	}
	return nil
}
