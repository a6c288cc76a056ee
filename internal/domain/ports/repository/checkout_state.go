package repository

import (
	"context"
	"time"
)

// CheckoutContext is the transient expected-total record of one in-flight
// checkout attempt. It has exactly one logical owner: the session that most
// recently called createOrder. Set overwrites, never merges, so a second tab
// silently evicts the first attempt's context and the loser's capture fails
// reconciliation instead of reusing a stale discount.
type CheckoutContext struct {
	ProviderOrderID     string    `json:"provider_order_id"`
	DiscountCodeID      string    `json:"discount_code_id,omitempty"`
	DiscountAmountCents int64     `json:"discount_amount_cents"`
	OriginalTotalCents  int64     `json:"original_total_cents"`
	FinalTotalCents     int64     `json:"final_total_cents"`
	Currency            string    `json:"currency"`
	ItemCount           int       `json:"item_count"`
	CreatedAt           time.Time `json:"created_at"`
}

// CheckoutStateRepository is the keyed, expiring context map owned by the
// checkout orchestrator. Keys are user ids (one attempt per session).
type CheckoutStateRepository interface {
	Set(ctx context.Context, userID string, state *CheckoutContext) error
	Get(ctx context.Context, userID string) (*CheckoutContext, error)
	Clear(ctx context.Context, userID string) error
}
