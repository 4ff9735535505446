package paypal

import "encoding/json"

const (
	IntentCapture = "CAPTURE"

	StatusCompleted = "COMPLETED"
	StatusPending   = "PENDING"

	VerificationSuccess = "SUCCESS"
)

type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type AmountBreakdown struct {
	ItemTotal        *Money `json:"item_total,omitempty"`
	Shipping         *Money `json:"shipping,omitempty"`
	Handling         *Money `json:"handling,omitempty"`
	TaxTotal         *Money `json:"tax_total,omitempty"`
	Insurance        *Money `json:"insurance,omitempty"`
	ShippingDiscount *Money `json:"shipping_discount,omitempty"`
	Discount         *Money `json:"discount,omitempty"`
}

// ItemsOnly reports whether the amount is made of item_total alone.
func (b *AmountBreakdown) ItemsOnly() bool {
	return b.ItemTotal != nil && b.Shipping == nil && b.Handling == nil && b.TaxTotal == nil &&
		b.Insurance == nil && b.ShippingDiscount == nil && b.Discount == nil
}

type Amount struct {
	CurrencyCode string           `json:"currency_code"`
	Value        string           `json:"value"`
	Breakdown    *AmountBreakdown `json:"breakdown,omitempty"`
}

type Item struct {
	Name       string `json:"name"`
	UnitAmount Money  `json:"unit_amount"`
	Quantity   string `json:"quantity"`
}

type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount *Money `json:"amount,omitempty"`
}

type PurchaseUnitPayments struct {
	Captures []Capture `json:"captures,omitempty"`
}

type PurchaseUnit struct {
	ReferenceID string                `json:"reference_id,omitempty"`
	Amount      *Amount               `json:"amount,omitempty"`
	Items       []Item                `json:"items,omitempty"`
	Payments    *PurchaseUnitPayments `json:"payments,omitempty"`
}

type ApplicationContext struct {
	BrandName   string `json:"brand_name,omitempty"`
	LandingPage string `json:"landing_page,omitempty"`
	UserAction  string `json:"user_action,omitempty"`
	ReturnURL   string `json:"return_url,omitempty"`
	CancelURL   string `json:"cancel_url,omitempty"`
}

type CreateOrderRequest struct {
	Intent             string              `json:"intent"`
	PurchaseUnits      []PurchaseUnit      `json:"purchase_units"`
	ApplicationContext *ApplicationContext `json:"application_context,omitempty"`
}

type PayerName struct {
	GivenName string `json:"given_name,omitempty"`
	Surname   string `json:"surname,omitempty"`
}

type Payer struct {
	Name         *PayerName `json:"name,omitempty"`
	EmailAddress string     `json:"email_address,omitempty"`
	PayerID      string     `json:"payer_id,omitempty"`
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

// Order is a PayPal checkout order. Raw holds the exact response body.
type Order struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	Intent        string          `json:"intent,omitempty"`
	PurchaseUnits []PurchaseUnit  `json:"purchase_units,omitempty"`
	Payer         *Payer          `json:"payer,omitempty"`
	Links         []Link          `json:"links,omitempty"`
	Raw           json.RawMessage `json:"-"`
}

// FirstCapture returns the first capture of the first purchase unit.
func (o *Order) FirstCapture() (Capture, bool) {
	for _, unit := range o.PurchaseUnits {
		if unit.Payments != nil && len(unit.Payments.Captures) > 0 {
			return unit.Payments.Captures[0], true
		}
	}
	return Capture{}, false
}

// CompletedCapture returns the first capture in COMPLETED state, if any.
func (o *Order) CompletedCapture() (Capture, bool) {
	return o.captureWithStatus(StatusCompleted)
}

// SettledCapture returns the capture that moved or is moving funds: a
// COMPLETED capture when there is one, otherwise a PENDING one.
func (o *Order) SettledCapture() (Capture, bool) {
	if c, ok := o.captureWithStatus(StatusCompleted); ok {
		return c, true
	}
	return o.captureWithStatus(StatusPending)
}

func (o *Order) captureWithStatus(status string) (Capture, bool) {
	for _, unit := range o.PurchaseUnits {
		if unit.Payments == nil {
			continue
		}
		for _, c := range unit.Payments.Captures {
			if c.Status == status {
				return c, true
			}
		}
	}
	return Capture{}, false
}

type RefundRequest struct {
	Amount      *Money `json:"amount,omitempty"`
	NoteToPayer string `json:"note_to_payer,omitempty"`
}

type Refund struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Amount *Money          `json:"amount,omitempty"`
	Raw    json.RawMessage `json:"-"`
}

type VerifyWebhookRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

type VerifyWebhookResponse struct {
	VerificationStatus string `json:"verification_status"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}
