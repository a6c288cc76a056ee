package model

import "time"

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

// DiscountCode is an admin-managed promotion. UsedCount is mutated only by
// usage recording, which commits together with its audit row.
type DiscountCode struct {
	ID                     string
	Code                   string // stored lowercased; lookups are case-insensitive
	Type                   DiscountType
	Value                  int64 // percent for percentage codes, cents for fixed codes
	MinPurchaseCents       int64
	MaxUsesTotal           int
	MaxUsesPerUser         int
	ValidFrom              *time.Time
	ValidUntil             *time.Time
	AppliesToPurchases     bool
	AppliesToSubscriptions bool
	UsedCount              int
	IsActive               bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Apply returns the discount in cents for the given amount.
// The result is always within [0, amountCents].
func (d *DiscountCode) Apply(amountCents int64) int64 {
	if amountCents <= 0 {
		return 0
	}
	var discount int64
	switch d.Type {
	case DiscountTypePercentage:
		// round half up, integer arithmetic to keep money exact
		discount = (amountCents*d.Value + 50) / 100
	case DiscountTypeFixed:
		discount = d.Value
	}
	if discount < 0 {
		discount = 0
	}
	if discount > amountCents {
		discount = amountCents
	}
	return discount
}

// DiscountCodeUsage is the append-only redemption trail, one row per
// redemption. PurchaseID is nil for subscription redemptions.
type DiscountCodeUsage struct {
	ID                  string // ULID
	DiscountCodeID      string
	UserID              string
	PurchaseID          *string
	DiscountAmountCents int64
	CreatedAt           time.Time
}

// AllocateDiscount splits total across lines proportionally to priceCents,
// with the last line absorbing the rounding remainder so the shares always
// sum exactly to total.
func AllocateDiscount(total int64, priceCents []int64) []int64 {
	shares := make([]int64, len(priceCents))
	if len(priceCents) == 0 || total <= 0 {
		return shares
	}
	var sum int64
	for _, p := range priceCents {
		sum += p
	}
	if sum <= 0 {
		shares[len(shares)-1] = total
		return shares
	}
	var allocated int64
	for i, p := range priceCents {
		if i == len(priceCents)-1 {
			shares[i] = total - allocated
			break
		}
		s := (total*p + sum/2) / sum
		shares[i] = s
		allocated += s
	}
	return shares
}
