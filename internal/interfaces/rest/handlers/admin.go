package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/application/services"
	"github.com/DanielPopoola/storefront-payments/internal/interfaces/rest"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/shopspring/decimal"
)

// RefundRequest must carry confirm=true; refunds are not idempotent.
type RefundRequest struct {
	Confirm  bool             `json:"confirm" validate:"required"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency string           `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	Note     string           `json:"note,omitempty" validate:"omitempty,max=255"`
}

type RefundResponse struct {
	RefundID       string          `json:"refund_id"`
	Status         string          `json:"status"`
	RefundResponse json.RawMessage `json:"refund_response,omitempty"`
	Payment        rest.Payment    `json:"payment"`
}

// HandleListPayments lists stored payments
// @Summary      List payments
// @Description  Newest first. per_page defaults to 50 and is capped at 200.
// @Tags         admin
// @Produce      json
// @Security     AdminToken
// @Param        page      query     int  false  "Page number, from 1"
// @Param        per_page  query     int  false  "Page size"
// @Success      200       {object}  rest.APIResponse    "One page of payments"
// @Failure      401       {object}  rest.ErrorResponse  "Missing or invalid admin token"
// @Router       /payments-admin/api/payments [get]
func (h *Handlers) HandleListPayments(w http.ResponseWriter, r *http.Request) {
	var page, perPage int
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", query, &page); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "per_page", query, &perPage); err != nil {
		rest.WriteError(w, application.NewInvalidInputError(err), h.logger)
		return
	}

	result, err := h.query.ListPayments(r.Context(), page, perPage)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.RespondWithJSON(w, http.StatusOK, rest.ToAPIPaymentList(result))
}

// HandleGetPayment returns one payment with its order
// @Summary      Payment detail
// @Tags         admin
// @Produce      json
// @Security     AdminToken
// @Param        paymentID  path      string  true  "Payment id"
// @Success      200        {object}  rest.APIResponse    "Payment with order"
// @Failure      401        {object}  rest.ErrorResponse  "Missing or invalid admin token"
// @Failure      404        {object}  rest.ErrorResponse  "Payment not found"
// @Router       /payments-admin/api/payments/{paymentID} [get]
func (h *Handlers) HandleGetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := bindPaymentID(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	detail, err := h.query.GetPayment(r.Context(), paymentID)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.RespondWithJSON(w, http.StatusOK, rest.ToAPIPaymentDetail(detail))
}

// HandleRefund refunds a captured payment
// @Summary      Refund a payment
// @Description  Refunds the stored capture in full, or partially when amount is set. Requires confirm=true.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     AdminToken
// @Param        paymentID  path      string         true  "Payment id"
// @Param        request    body      RefundRequest  true  "Refund details"
// @Success      200        {object}  rest.APIResponse    "Refund recorded"
// @Failure      400        {object}  rest.ErrorResponse  "Missing confirmation or invalid amount"
// @Failure      401        {object}  rest.ErrorResponse  "Missing or invalid admin token"
// @Failure      404        {object}  rest.ErrorResponse  "Payment not found"
// @Failure      409        {object}  rest.ErrorResponse  "Payment has no capture id"
// @Failure      502        {object}  rest.ErrorResponse  "PayPal rejected the refund"
// @Router       /payments-admin/api/payments/{paymentID}/refund [post]
func (h *Handlers) HandleRefund(w http.ResponseWriter, r *http.Request) {
	paymentID, err := bindPaymentID(r)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	var req RefundRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	result, err := h.refunds.Refund(r.Context(), services.RefundCommand{
		PaymentID: paymentID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Note:      req.Note,
	})
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	rest.RespondWithJSON(w, http.StatusOK, RefundResponse{
		RefundID:       result.RefundID,
		Status:         result.Status,
		RefundResponse: result.Raw,
		Payment:        rest.ToAPIPayment(result.Payment, true),
	})
}

func bindPaymentID(r *http.Request) (uuid.UUID, error) {
	var raw string
	err := runtime.BindStyledParameterWithOptions("simple", "paymentID", r.PathValue("paymentID"), &raw,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return uuid.Nil, application.NewInvalidInputError(err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, application.NewInvalidInputError(fmt.Errorf("invalid payment id %q: %w", raw, err))
	}
	return id, nil
}
