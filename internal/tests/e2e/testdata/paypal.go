// Package testdata provides an in-process stand-in for the PayPal REST API.
package testdata

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/DanielPopoola/storefront-payments/internal/infrastructure/paypal"
)

// FakePayPal keeps orders in memory and answers the subset of the PayPal API
// the service calls.
type FakePayPal struct {
	Server *httptest.Server

	mu           sync.Mutex
	orders       map[string]*fakeOrder
	seq          int
	captureCalls int
	refunds      []paypal.RefundRequest
	verification string
	dropCapture  bool
}

type fakeOrder struct {
	unit      paypal.PurchaseUnit
	status    string
	captureID string
}

func NewFakePayPal() *FakePayPal {
	f := &FakePayPal{
		orders:       make(map[string]*fakeOrder),
		verification: paypal.VerificationSuccess,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", f.handleToken)
	mux.HandleFunc("POST /v2/checkout/orders", f.handleCreateOrder)
	mux.HandleFunc("GET /v2/checkout/orders/{id}", f.handleGetOrder)
	mux.HandleFunc("POST /v2/checkout/orders/{id}/capture", f.handleCapture)
	mux.HandleFunc("POST /v2/payments/captures/{id}/refund", f.handleRefund)
	mux.HandleFunc("POST /v1/notifications/verify-webhook-signature", f.handleVerify)

	f.Server = httptest.NewServer(mux)
	return f
}

func (f *FakePayPal) URL() string { return f.Server.URL }

func (f *FakePayPal) Close() { f.Server.Close() }

// Reset forgets every order and restores the default behaviour.
func (f *FakePayPal) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = make(map[string]*fakeOrder)
	f.captureCalls = 0
	f.refunds = nil
	f.verification = paypal.VerificationSuccess
	f.dropCapture = false
}

// SetVerification sets the verification_status returned for webhooks.
func (f *FakePayPal) SetVerification(status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verification = status
}

// DropNextCapture captures the next order but closes the connection before
// answering, leaving the caller unsure whether money moved.
func (f *FakePayPal) DropNextCapture() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropCapture = true
}

// CaptureOutOfBand completes an order as if the buyer paid without the
// storefront ever calling capture.
func (f *FakePayPal) CaptureOutOfBand(orderID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := f.orders[orderID]
	f.complete(orderID, order)
	return order.captureID
}

// CaptureCalls counts capture requests PayPal received.
func (f *FakePayPal) CaptureCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captureCalls
}

func (f *FakePayPal) Refunds() []paypal.RefundRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]paypal.RefundRequest(nil), f.refunds...)
}

func (f *FakePayPal) complete(orderID string, order *fakeOrder) {
	if order.status == paypal.StatusCompleted {
		return
	}
	order.status = paypal.StatusCompleted
	order.captureID = "CAP-" + orderID
}

func (f *FakePayPal) handleToken(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := r.BasicAuth(); !ok {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": "fake-access-token",
		"token_type":   "Bearer",
		"expires_in":   32400,
	})
}

func (f *FakePayPal) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req paypal.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.PurchaseUnits) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"name": "UNPROCESSABLE_ENTITY"})
		return
	}

	f.mu.Lock()
	f.seq++
	id := fmt.Sprintf("ORDER-%d", f.seq)
	f.orders[id] = &fakeOrder{unit: req.PurchaseUnits[0], status: "APPROVED"}
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, paypal.Order{
		ID:     id,
		Status: "CREATED",
		Links: []paypal.Link{
			{Href: f.Server.URL + "/checkoutnow?token=" + id, Rel: "approve", Method: http.MethodGet},
		},
	})
}

func (f *FakePayPal) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := r.PathValue("id")
	order, ok := f.orders[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"name": "RESOURCE_NOT_FOUND"})
		return
	}
	writeJSON(w, http.StatusOK, f.render(id, order))
}

func (f *FakePayPal) handleCapture(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	id := r.PathValue("id")
	order, ok := f.orders[id]
	if !ok {
		f.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]any{"name": "RESOURCE_NOT_FOUND"})
		return
	}
	f.captureCalls++
	f.complete(id, order)
	body := f.render(id, order)
	drop := f.dropCapture
	f.dropCapture = false
	f.mu.Unlock()

	if drop {
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				conn.Close()
				return
			}
		}
	}
	writeJSON(w, http.StatusCreated, body)
}

func (f *FakePayPal) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req paypal.RefundRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.refunds = append(f.refunds, req)
	n := len(f.refunds)
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, paypal.Refund{
		ID:     fmt.Sprintf("REF-%d", n),
		Status: paypal.StatusCompleted,
		Amount: req.Amount,
	})
}

func (f *FakePayPal) handleVerify(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	status := f.verification
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, paypal.VerifyWebhookResponse{VerificationStatus: status})
}

func (f *FakePayPal) render(id string, order *fakeOrder) paypal.Order {
	unit := order.unit
	if order.captureID != "" {
		unit.Payments = &paypal.PurchaseUnitPayments{Captures: []paypal.Capture{{
			ID:     order.captureID,
			Status: paypal.StatusCompleted,
			Amount: &paypal.Money{CurrencyCode: unit.Amount.CurrencyCode, Value: unit.Amount.Value},
		}}}
	}
	return paypal.Order{
		ID:            id,
		Status:        order.status,
		Intent:        paypal.IntentCapture,
		PurchaseUnits: []paypal.PurchaseUnit{unit},
		Payer: &paypal.Payer{
			Name:         &paypal.PayerName{GivenName: "John", Surname: "Doe"},
			EmailAddress: "buyer@example.com",
			PayerID:      "PAYER-1",
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
