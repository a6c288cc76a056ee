package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"audio-commerce/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusExpired  SubscriptionStatus = "expired"
)

// Subscription is a user's recurring billing instance. Status transitions are
// driven by provider webhooks or an explicit cancel; period boundaries come
// from the provider's billing schedule and can lag a status change, so callers
// must use CurrentlyActive rather than checking status alone.
type Subscription struct {
	ID                     string
	UserID                 string
	PlanID                 string
	Status                 SubscriptionStatus
	ProviderSubscriptionID string
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
	CanceledAt             *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func NewSubscription(userID, planID, providerSubID string, periodStart, periodEnd time.Time) (*Subscription, error) {
	if userID == "" || planID == "" || providerSubID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !periodEnd.After(periodStart) {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Subscription{
		ID:                     uuid.NewString(),
		UserID:                 userID,
		PlanID:                 planID,
		Status:                 SubscriptionStatusActive,
		ProviderSubscriptionID: providerSubID,
		CurrentPeriodStart:     periodStart,
		CurrentPeriodEnd:       periodEnd,
		CreatedAt:              now,
		UpdatedAt:              now,
	}, nil
}

// CurrentlyActive reports whether the subscription grants access at t.
// A soft-canceled subscription keeps access until the end of the period
// already paid for.
func (s *Subscription) CurrentlyActive(t time.Time) bool {
	if s == nil {
		return false
	}
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusCanceled:
		return t.Before(s.CurrentPeriodEnd)
	default:
		return false
	}
}

// SubscriptionReference encodes the checkout facts attached to a provider
// subscription as its custom reference. The activation webhook carries it
// back, which is the only channel those facts survive the approval redirect.
// Format: userID:planID, extended with :discountCodeID:discountCents when a
// code was validated at order creation.
func SubscriptionReference(userID, planID, discountCodeID string, discountCents int64) string {
	ref := userID + ":" + planID
	if discountCodeID != "" {
		ref += ":" + discountCodeID + ":" + strconv.FormatInt(discountCents, 10)
	}
	return ref
}

// ParseSubscriptionReference is the inverse of SubscriptionReference.
func ParseSubscriptionReference(ref string) (userID, planID, discountCodeID string, discountCents int64, err error) {
	parts := strings.Split(ref, ":")
	if len(parts) != 2 && len(parts) != 4 {
		return "", "", "", 0, domain.ErrInvalidArgument
	}
	userID, planID = parts[0], parts[1]
	if userID == "" || planID == "" {
		return "", "", "", 0, domain.ErrInvalidArgument
	}
	if len(parts) == 4 {
		discountCodeID = parts[2]
		discountCents, err = strconv.ParseInt(parts[3], 10, 64)
		if discountCodeID == "" || err != nil || discountCents <= 0 {
			return "", "", "", 0, domain.ErrInvalidArgument
		}
	}
	return userID, planID, discountCodeID, discountCents, nil
}

// SubscriptionPlan is the recurring price point a subscription bills against.
type SubscriptionPlan struct {
	ID             string
	Name           string
	PriceCents     int64
	Currency       string
	IntervalDays   int
	ProviderPlanID string
}
