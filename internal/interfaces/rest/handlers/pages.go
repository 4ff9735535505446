package handlers

import (
	"html/template"
	"net/http"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/application/services"
	"github.com/DanielPopoola/storefront-payments/internal/domain"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{- if .OrderID}}
<p>PayPal order: <code>{{.OrderID}}</code></p>
{{- end}}
{{- if .CaptureID}}
<p>Capture: <code>{{.CaptureID}}</code></p>
{{- end}}
{{- if .ErrorCode}}
<p>Error code: <code>{{.ErrorCode}}</code></p>
{{- end}}
</body>
</html>
`))

type pageData struct {
	Title     string
	Message   string
	OrderID   string
	CaptureID string
	ErrorCode string
}

func (h *Handlers) renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		h.logger.Error("failed to render page", "title", data.Title, "error", err)
	}
}

// HandleReturn is where PayPal sends the buyer after approval. The order in
// ?token= is captured without a cart, so only PayPal's own figures are checked.
// @Summary      PayPal return page
// @Tags         paypal
// @Produce      html
// @Param        token  query     string  false  "PayPal order id"
// @Success      200    {string}  string  "Result page"
// @Router       /paypal/return [get]
func (h *Handlers) HandleReturn(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("token")

	result, err := h.capture.Capture(r.Context(), services.CaptureCommand{OrderID: orderID})
	if err != nil {
		h.logger.Warn("return page capture failed", "provider_order_id", orderID, "error", err)
		h.renderPage(w, application.ToHTTPStatus(err), pageData{
			Title:     "Payment not completed",
			Message:   "We could not complete your PayPal payment. You have not been charged twice; please contact us if funds were taken.",
			OrderID:   orderID,
			ErrorCode: application.ToErrorCode(err),
		})
		return
	}

	title, message := "Thank you!", "Your payment was received."
	if result.Status != domain.PaymentCompleted {
		title, message = "Payment pending", "PayPal is still processing your payment."
	}
	h.renderPage(w, http.StatusOK, pageData{
		Title:     title,
		Message:   message,
		OrderID:   result.ProviderOrderID,
		CaptureID: result.CaptureID,
	})
}

// HandleCancel is where PayPal sends the buyer after abandoning checkout.
// @Summary      PayPal cancel page
// @Tags         paypal
// @Produce      html
// @Success      200  {string}  string  "Cancel page"
// @Router       /paypal/cancel [get]
func (h *Handlers) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, http.StatusOK, pageData{
		Title:   "Payment cancelled",
		Message: "You cancelled the PayPal checkout. Your cart has been kept.",
	})
}
