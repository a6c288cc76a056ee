package repository

import (
	"context"
	"time"

	"audio-commerce/internal/domain/model"
)

type PurchaseRepository interface {
	// SaveAll inserts the pending rows of one checkout attempt.
	SaveAll(ctx context.Context, qx any, purchases []*model.Purchase) error
	FindByProviderOrderID(ctx context.Context, qx any, providerOrderID string) ([]*model.Purchase, error)
	// CompleteIfPending flips one row pending -> completed, setting the final
	// line price and capture id. Returns false when the row was not pending,
	// which is how replays detect prior completion.
	CompleteIfPending(ctx context.Context, qx any, id string, pricePaidCents int64, captureID string, purchasedAt time.Time) (bool, error)
	// FailPendingByProviderOrder marks every still-pending row of an order
	// failed. Returns the number of rows affected.
	FailPendingByProviderOrder(ctx context.Context, qx any, providerOrderID string) (int64, error)
	// RefundIfCompleted flips completed -> refunded, keyed by provider capture id.
	RefundIfCompleted(ctx context.Context, qx any, captureID string) (bool, error)
	FindCompletedByUserAndItem(ctx context.Context, qx any, userID, contentItemID string) (*model.Purchase, error)
	ListByUser(ctx context.Context, qx any, userID string) ([]*model.Purchase, error)
	// ListPendingOlderThan feeds the stale-pending sweeper.
	ListPendingOlderThan(ctx context.Context, qx any, olderThan time.Time, limit int) ([]*model.Purchase, error)
	FailIfPending(ctx context.Context, qx any, id string) (bool, error)
}
