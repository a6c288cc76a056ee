package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"   // provider order created, awaiting capture
	PurchaseStatusCompleted PurchaseStatus = "completed" // funds settled and reconciled
	PurchaseStatusRefunded  PurchaseStatus = "refunded"  // refunded at the provider after completion
	PurchaseStatusFailed    PurchaseStatus = "failed"    // capture rejected, reconciliation failed, or swept
)

// Purchase is one cart line of a checkout attempt. Rows are inserted pending
// when the provider order is created and flip to completed exactly once, via a
// conditional write keyed by provider order id.
type Purchase struct {
	ID                string // ULID, sortable audit trail
	UserID            string
	ContentItemID     string
	PricePaidCents    int64 // discounted line price once completed; base price while pending
	Currency          string
	Status            PurchaseStatus
	ProviderOrderID   string
	ProviderCaptureID string
	CreatedAt         time.Time
	PurchasedAt       *time.Time // set when completed
}

// NewID returns a ULID for purchase and discount-usage rows. ulid.Make uses
// the package's locked entropy source, safe under concurrent checkouts.
func NewID() string {
	return ulid.Make().String()
}

func NewPendingPurchase(userID string, item *ContentItem, providerOrderID string) *Purchase {
	return &Purchase{
		ID:              NewID(),
		UserID:          userID,
		ContentItemID:   item.ID,
		PricePaidCents:  item.PriceCents,
		Currency:        item.Currency,
		Status:          PurchaseStatusPending,
		ProviderOrderID: providerOrderID,
		CreatedAt:       time.Now(),
	}
}
