package repository

import (
	"context"

	"audio-commerce/internal/domain/model"
)

// CartRepository is the cart collaborator surface this core consumes.
type CartRepository interface {
	ListByUser(ctx context.Context, qx any, userID string) ([]*model.CartItem, error)
	Add(ctx context.Context, qx any, item *model.CartItem) error
	Clear(ctx context.Context, qx any, userID string) error
}
