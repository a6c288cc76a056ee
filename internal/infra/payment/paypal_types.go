package payment

import (
	"fmt"
	"strconv"
	"strings"

	"audio-commerce/internal/domain/ports/adapter"
)

// Wire types for the PayPal v2 REST API and its webhook deliveries.

type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type Amount struct {
	Currency string `json:"currency_code"`
	Value    string `json:"value"`
}

type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Final  bool   `json:"final_capture"`
	Amount Amount `json:"amount"`
}

type Payments struct {
	Captures []Capture `json:"captures"`
}

type PurchaseUnit struct {
	ReferenceID string   `json:"reference_id"`
	Payments    Payments `json:"payments"`
}

type RelatedIDs struct {
	OrderID string `json:"order_id"`
}

type SupplementaryData struct {
	RelatedIDs RelatedIDs `json:"related_ids"`
}

type BillingInfo struct {
	LastPaymentTime string `json:"last_payment_time"`
	NextBillingTime string `json:"next_billing_time"`
}

// Resource is the polymorphic `resource` object of a webhook event. Order
// events populate PurchaseUnits, capture events populate Amount plus
// SupplementaryData, subscription events populate CustomID and BillingInfo.
type Resource struct {
	ID                string            `json:"id"`
	Intent            string            `json:"intent"`
	Status            string            `json:"status"`
	CustomID          string            `json:"custom_id"`
	Amount            Amount            `json:"amount"`
	PurchaseUnits     []PurchaseUnit    `json:"purchase_units"`
	SupplementaryData SupplementaryData `json:"supplementary_data"`
	BillingInfo       BillingInfo       `json:"billing_info"`
}

type WebhookEvent struct {
	ID         string   `json:"id"`
	EventType  string   `json:"event_type"`
	CreateTime string   `json:"create_time"`
	Resource   Resource `json:"resource"`
}

// OrderID resolves the checkout order an event belongs to, whether the
// resource is the order itself or one of its captures.
func (e *WebhookEvent) OrderID() string {
	if id := e.Resource.SupplementaryData.RelatedIDs.OrderID; id != "" {
		return id
	}
	return e.Resource.ID
}

// CaptureResultFromResource flattens the captures of every purchase unit into
// the provider-neutral result consumed by reconciliation.
func CaptureResultFromResource(r *Resource) *adapter.CaptureResult {
	out := &adapter.CaptureResult{OrderID: r.ID, Status: r.Status}
	for _, pu := range r.PurchaseUnits {
		for _, c := range pu.Payments.Captures {
			out.Captures = append(out.Captures, adapter.CaptureUnit{
				CaptureID:   c.ID,
				AmountCents: AmountToCents(c.Amount.Value),
				Currency:    c.Amount.Currency,
				Status:      c.Status,
			})
		}
	}
	return out
}

// CentsToAmount renders integer cents as the decimal string PayPal expects.
func CentsToAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// AmountToCents parses a decimal money string into cents. Malformed input
// yields 0, which reconciliation then rejects as an amount mismatch.
func AmountToCents(value string) int64 {
	whole, frac, _ := strings.Cut(value, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0
	}
	neg := strings.HasPrefix(whole, "-")
	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0
	}
	cents := w * 100
	if neg {
		cents -= f
	} else {
		cents += f
	}
	return cents
}
