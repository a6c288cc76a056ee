package model

// Invoice is the tagged variant handed to the invoice generator. Exactly one
// of the two payloads is set; Kind says which.
type InvoiceKind string

const (
	InvoiceKindPurchase     InvoiceKind = "purchase"
	InvoiceKindSubscription InvoiceKind = "subscription"
)

type Invoice struct {
	Kind         InvoiceKind
	Purchase     *PurchaseInvoice
	Subscription *SubscriptionInvoice
}

// PurchaseInvoice covers one settled checkout: all completed lines of a
// provider order plus the order-level discount.
type PurchaseInvoice struct {
	ProviderOrderID string
	UserID          string
	Purchases       []*Purchase
	DiscountCents   int64
	TotalCents      int64
	Currency        string
}

type SubscriptionInvoice struct {
	Subscription *Subscription
	Plan         *SubscriptionPlan
	AmountCents  int64
	Currency     string
}

func NewPurchaseInvoice(orderID, userID, currency string, purchases []*Purchase, discountCents int64) Invoice {
	var total int64
	for _, p := range purchases {
		total += p.PricePaidCents
	}
	return Invoice{
		Kind: InvoiceKindPurchase,
		Purchase: &PurchaseInvoice{
			ProviderOrderID: orderID,
			UserID:          userID,
			Purchases:       purchases,
			DiscountCents:   discountCents,
			TotalCents:      total,
			Currency:        currency,
		},
	}
}

func NewSubscriptionInvoice(sub *Subscription, plan *SubscriptionPlan, amountCents int64) Invoice {
	return Invoice{
		Kind: InvoiceKindSubscription,
		Subscription: &SubscriptionInvoice{
			Subscription: sub,
			Plan:         plan,
			AmountCents:  amountCents,
			Currency:     plan.Currency,
		},
	}
}
