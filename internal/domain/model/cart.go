package model

import "time"

// CartItem is the ephemeral pre-checkout selection. Cleared on successful
// checkout together with the purchase writes.
type CartItem struct {
	UserID        string
	ContentItemID string
	AddedAt       time.Time
}
