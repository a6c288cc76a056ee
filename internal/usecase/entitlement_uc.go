// File: internal/usecase/entitlement_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"audio-commerce/internal/domain/model"
	"audio-commerce/internal/domain/ports/repository"
)

var _ EntitlementUseCase = (*entitlementUC)(nil)

type AccessReason string

const (
	AccessReasonFree       AccessReason = "free"
	AccessReasonOwner      AccessReason = "owner"
	AccessReasonAdmin      AccessReason = "admin"
	AccessReasonPurchased  AccessReason = "purchased"
	AccessReasonSubscriber AccessReason = "subscriber"
	AccessReasonSample     AccessReason = "sample"
	AccessReasonNone       AccessReason = "none"
)

type AccessDecision struct {
	HasAccess bool
	Reason    AccessReason
}

// EntitlementUseCase is the single place access to paid content is decided.
// Callers never duplicate role or ownership checks.
type EntitlementUseCase interface {
	// Resolve decides whether user (nil when unauthenticated) may access item.
	// Missing rows count as absence, never as an error; repo failures resolve
	// to no access (fail closed).
	Resolve(ctx context.Context, user *model.User, item *model.ContentItem) AccessDecision
	// ResolveTrack is Resolve with the sample bypass: sample tracks are always
	// accessible.
	ResolveTrack(ctx context.Context, user *model.User, item *model.ContentItem, track *model.Track) AccessDecision
	// ResolveByID looks up the user, item and optional track, then resolves.
	// userID and trackID may be empty. Only a missing item is an error.
	ResolveByID(ctx context.Context, userID, contentID, trackID string) (AccessDecision, error)
}

type entitlementUC struct {
	purchases repository.PurchaseRepository
	subs      repository.SubscriptionRepository
	catalog   repository.CatalogRepository
	users     repository.UserRepository
	log       *zerolog.Logger
}

func NewEntitlementUseCase(purchases repository.PurchaseRepository, subs repository.SubscriptionRepository, catalog repository.CatalogRepository, users repository.UserRepository, logger *zerolog.Logger) *entitlementUC {
	return &entitlementUC{purchases: purchases, subs: subs, catalog: catalog, users: users, log: logger}
}

// Resolve evaluates the precedence list in strict order, first match wins:
// free item, anonymous, owner, admin, completed purchase, active subscription.
func (uc *entitlementUC) Resolve(ctx context.Context, user *model.User, item *model.ContentItem) AccessDecision {
	if item == nil {
		return AccessDecision{Reason: AccessReasonNone}
	}
	if item.IsFree {
		return AccessDecision{HasAccess: true, Reason: AccessReasonFree}
	}
	if user.IsZero() {
		return AccessDecision{Reason: AccessReasonNone}
	}
	if user.ID == item.OwnerID {
		return AccessDecision{HasAccess: true, Reason: AccessReasonOwner}
	}
	if user.Role == model.RoleAdmin {
		return AccessDecision{HasAccess: true, Reason: AccessReasonAdmin}
	}
	if p, err := uc.purchases.FindCompletedByUserAndItem(ctx, repository.NoTX, user.ID, item.ID); err == nil && p != nil {
		return AccessDecision{HasAccess: true, Reason: AccessReasonPurchased}
	}
	sub, err := uc.subs.FindCurrentByUser(ctx, repository.NoTX, user.ID)
	if err == nil && sub.CurrentlyActive(time.Now()) {
		return AccessDecision{HasAccess: true, Reason: AccessReasonSubscriber}
	}
	return AccessDecision{Reason: AccessReasonNone}
}

func (uc *entitlementUC) ResolveTrack(ctx context.Context, user *model.User, item *model.ContentItem, track *model.Track) AccessDecision {
	if track != nil && track.IsSample {
		return AccessDecision{HasAccess: true, Reason: AccessReasonSample}
	}
	return uc.Resolve(ctx, user, item)
}

func (uc *entitlementUC) ResolveByID(ctx context.Context, userID, contentID, trackID string) (AccessDecision, error) {
	item, err := uc.catalog.FindByID(ctx, repository.NoTX, contentID)
	if err != nil {
		return AccessDecision{Reason: AccessReasonNone}, err
	}

	var user *model.User
	if userID != "" {
		u, err := uc.users.FindByID(ctx, repository.NoTX, userID)
		if err == nil {
			user = u
		}
	}

	if trackID != "" {
		track, err := uc.catalog.FindTrackByID(ctx, repository.NoTX, trackID)
		if err == nil {
			return uc.ResolveTrack(ctx, user, item, track), nil
		}
	}
	return uc.Resolve(ctx, user, item), nil
}
