package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/interfaces/rest"
)

type WebhookResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
	Verified  bool   `json:"verified"`
}

// HandleWebhook receives PayPal webhook deliveries
// @Summary      PayPal webhook intake
// @Description  Verifies the delivery signature when a webhook id is configured and stores each event id once. Redeliveries are acknowledged without side effects.
// @Tags         paypal
// @Accept       json
// @Produce      json
// @Success      200  {object}  rest.APIResponse    "Event accepted"
// @Failure      400  {object}  rest.ErrorResponse  "Malformed body or verification failed"
// @Failure      500  {object}  rest.ErrorResponse  "Event could not be stored"
// @Router       /paypal/webhook/paypal [post]
func (h *Handlers) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		rest.WriteError(w, application.NewInvalidInputError(fmt.Errorf("read webhook body: %w", err)), h.logger)
		return
	}

	result, err := h.webhooks.HandleEvent(r.Context(), r.Header, body)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.RespondWithJSON(w, http.StatusOK, WebhookResponse{
		Status:    "accepted",
		EventID:   result.Event.EventID,
		Duplicate: result.Duplicate,
		Verified:  result.Verified,
	})
}
