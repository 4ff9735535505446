package handlers

import (
	"net/http"

	"github.com/DanielPopoola/storefront-payments/internal/application/services"
	"github.com/DanielPopoola/storefront-payments/internal/interfaces/rest"
)

// CaptureRequest names the PayPal order under any of the keys the PayPal
// JS SDK and the return redirect use.
type CaptureRequest struct {
	OrderID      string          `json:"orderID,omitempty"`
	OrderIDCamel string          `json:"orderId,omitempty"`
	Token        string          `json:"token,omitempty"`
	Items        []rest.LineItem `json:"items,omitempty"`
}

func (r CaptureRequest) providerOrderID() string {
	return firstNonEmpty(r.OrderID, r.OrderIDCamel, r.Token)
}

type CaptureResponse struct {
	Status    string `json:"status"`
	OrderID   string `json:"orderId"`
	CaptureID string `json:"captureId"`
	PaymentID string `json:"paymentId"`
	Replayed  bool   `json:"replayed,omitempty"`
}

func toCaptureResponse(result *services.CaptureResult) CaptureResponse {
	resp := CaptureResponse{
		Status:    string(result.Status),
		OrderID:   result.ProviderOrderID,
		CaptureID: result.CaptureID,
		Replayed:  result.Replayed,
	}
	if result.Payment != nil {
		resp.PaymentID = result.Payment.ID.String()
	}
	return resp
}

// HandleCapture captures an approved PayPal order and stores the payment
// @Summary      Capture a PayPal order
// @Description  Reconciles the order amount against the optional cart, captures it, and stores one payment per capture id. Repeat calls return the stored payment.
// @Tags         paypal
// @Accept       json
// @Produce      json
// @Param        request  body      CaptureRequest      true  "Order to capture"
// @Success      200      {object}  rest.APIResponse    "Capture stored"
// @Failure      400      {object}  rest.ErrorResponse  "Missing order id"
// @Failure      409      {object}  rest.ErrorResponse  "Amount mismatch"
// @Failure      422      {object}  rest.ErrorResponse  "Order has no purchase unit amount"
// @Failure      502      {object}  rest.ErrorResponse  "PayPal rejected the capture"
// @Failure      503      {object}  rest.ErrorResponse  "PayPal unreachable"
// @Router       /paypal/capture-paypal-order [post]
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	result, err := h.capture.Capture(r.Context(), services.CaptureCommand{
		OrderID: req.providerOrderID(),
		Items:   rest.ToDomainItems(req.Items),
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.RespondWithJSON(w, http.StatusOK, toCaptureResponse(result))
}
