package repository

import (
	"context"
	"time"

	"audio-commerce/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, qx any, sub *model.Subscription) error
	FindByID(ctx context.Context, qx any, id string) (*model.Subscription, error)
	FindByProviderSubscriptionID(ctx context.Context, qx any, providerSubID string) (*model.Subscription, error)
	// FindCurrentByUser returns the user's subscription with the latest period
	// end, regardless of status. Callers decide activeness via the model.
	FindCurrentByUser(ctx context.Context, qx any, userID string) (*model.Subscription, error)
	// UpdateStatusIf transitions status only when the current status is one of
	// `from`, making webhook replays no-ops. Period bounds and canceledAt are
	// updated when non-nil. Returns whether a row changed.
	UpdateStatusIf(ctx context.Context, qx any, id string, from []model.SubscriptionStatus, to model.SubscriptionStatus, canceledAt *time.Time, periodStart, periodEnd *time.Time) (bool, error)
	// ListActiveEndedBefore feeds the expiry worker.
	ListActiveEndedBefore(ctx context.Context, qx any, before time.Time, limit int) ([]*model.Subscription, error)
}

type SubscriptionPlanRepository interface {
	Save(ctx context.Context, qx any, plan *model.SubscriptionPlan) error
	FindByID(ctx context.Context, qx any, id string) (*model.SubscriptionPlan, error)
	ListAll(ctx context.Context, qx any) ([]*model.SubscriptionPlan, error)
}
