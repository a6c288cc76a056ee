package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"audio-commerce/internal/domain/model"
	"audio-commerce/internal/domain/ports/repository"
)

var _ PurchaseQueryUseCase = (*purchaseQueryUC)(nil)

// PurchaseQueryUseCase serves read-only purchase history.
type PurchaseQueryUseCase interface {
	ListByUser(ctx context.Context, userID string) ([]*model.Purchase, error)
}

type purchaseQueryUC struct {
	purchases repository.PurchaseRepository
	log       *zerolog.Logger
}

func NewPurchaseQueryUseCase(purchases repository.PurchaseRepository, logger *zerolog.Logger) *purchaseQueryUC {
	return &purchaseQueryUC{purchases: purchases, log: logger}
}

func (uc *purchaseQueryUC) ListByUser(ctx context.Context, userID string) ([]*model.Purchase, error) {
	rows, err := uc.purchases.ListByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return rows, nil
}
