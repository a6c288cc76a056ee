package repository

import (
	"context"

	"audio-commerce/internal/domain/model"
)

type DiscountRepository interface {
	Save(ctx context.Context, qx any, code *model.DiscountCode) error
	FindByID(ctx context.Context, qx any, id string) (*model.DiscountCode, error)
	// FindByCode is case-insensitive.
	FindByCode(ctx context.Context, qx any, code string) (*model.DiscountCode, error)
	ListAll(ctx context.Context, qx any) ([]*model.DiscountCode, error)
	Deactivate(ctx context.Context, qx any, id string) error
	CountUsagesByUser(ctx context.Context, qx any, discountCodeID, userID string) (int, error)
	// InsertUsage appends one redemption row. The caller pairs it with
	// IncrementUsedCount under a single transaction so the audit trail and the
	// counter never drift apart.
	InsertUsage(ctx context.Context, qx any, usage *model.DiscountCodeUsage) error
	// IncrementUsedCount bumps used_count, guarded by used_count < max_uses_total.
	// Returns false when the code is already exhausted.
	IncrementUsedCount(ctx context.Context, qx any, discountCodeID string) (bool, error)
}
