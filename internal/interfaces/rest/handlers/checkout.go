package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/DanielPopoola/storefront-payments/internal/application/services"
	"github.com/DanielPopoola/storefront-payments/internal/interfaces/rest"
)

type CreateOrderRequest struct {
	Items     []rest.LineItem `json:"items"`
	Currency  string          `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	ReturnURL string          `json:"return_url,omitempty" validate:"omitempty,url"`
	CancelURL string          `json:"cancel_url,omitempty" validate:"omitempty,url"`
	BrandName string          `json:"brand_name,omitempty" validate:"omitempty,max=127"`
}

// HandleCreateOrder creates a PayPal order for the posted cart
// @Summary      Create a PayPal order
// @Description  Computes the cart total and creates a CAPTURE-intent order. The PayPal order JSON is returned as data.
// @Tags         paypal
// @Accept       json
// @Produce      json
// @Param        request  body      CreateOrderRequest  true  "Cart"
// @Success      200      {object}  rest.APIResponse    "PayPal order"
// @Failure      400      {object}  rest.ErrorResponse  "Invalid items"
// @Failure      502      {object}  rest.ErrorResponse  "PayPal rejected the order"
// @Failure      503      {object}  rest.ErrorResponse  "PayPal unreachable"
// @Router       /paypal/create-paypal-order [post]
func (h *Handlers) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	base := baseURL(r)
	cmd := services.CreateOrderCommand{
		Items:     rest.ToDomainItems(req.Items),
		Currency:  req.Currency,
		ReturnURL: firstNonEmpty(req.ReturnURL, base+"/paypal/return"),
		CancelURL: firstNonEmpty(req.CancelURL, base+"/paypal/cancel"),
		BrandName: req.BrandName,
	}

	order, err := h.checkout.CreateOrder(r.Context(), cmd)
	if err != nil {
		rest.WriteError(w, err, h.logger)
		return
	}

	if len(order.Raw) > 0 {
		rest.RespondWithJSON(w, http.StatusOK, json.RawMessage(order.Raw))
		return
	}
	rest.RespondWithJSON(w, http.StatusOK, order)
}

// baseURL is the scheme and host the buyer used to reach us.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	return scheme + "://" + host
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
