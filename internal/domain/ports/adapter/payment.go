package adapter

import "context"

// OrderLine is one cart line mirrored to the provider so its displayed totals
// match what we computed locally.
type OrderLine struct {
	Name       string
	PriceCents int64
}

// CreateOrderRequest carries the structured price breakdown for a provider
// order: ItemTotalCents - DiscountCents == FinalTotalCents, all in Currency.
type CreateOrderRequest struct {
	ReferenceID     string // our correlation id for the attempt
	Currency        string
	Lines           []OrderLine
	ItemTotalCents  int64
	DiscountCents   int64
	FinalTotalCents int64
}

// CaptureUnit is one settlement entry of a captured order. Providers may
// split a single order into several of these; reconciliation sums them all.
type CaptureUnit struct {
	CaptureID   string
	AmountCents int64
	Currency    string
	Status      string
}

type CaptureResult struct {
	OrderID  string
	Status   string // provider order status, e.g. COMPLETED
	Captures []CaptureUnit
}

const CaptureStatusCompleted = "COMPLETED"

// PaymentGateway is the hex port for the external payment provider.
// Every call carries a bounded timeout via ctx; a timeout surfaces as a
// retryable provider error and never as a partially persisted purchase.
type PaymentGateway interface {
	Name() string

	// CreateOrder registers a checkout order and returns the provider order id
	// plus the buyer approval URL.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (orderID string, approveURL string, err error)
	// CaptureOrder finalizes an approved order into settled funds.
	CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error)
	// CreateSubscription registers a recurring billing agreement for the plan's
	// provider plan id; activation arrives later via webhook carrying customID.
	CreateSubscription(ctx context.Context, providerPlanID string, priceCents int64, currency string, customID string) (subscriptionID string, approveURL string, err error)

	// VerifyWebhookSignature authenticates an asynchronous event delivery
	// before any of its content is trusted.
	VerifyWebhookSignature(transmissionID, timestamp string, body []byte, signature string) bool
}
