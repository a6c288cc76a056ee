// File: internal/usecase/discount_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"audio-commerce/internal/domain"
	"audio-commerce/internal/domain/model"
	"audio-commerce/internal/domain/ports/repository"
	"audio-commerce/internal/infra/metrics"
)

var _ DiscountUseCase = (*discountUC)(nil)

// DiscountUseCase validates discount codes and records redemptions.
type DiscountUseCase interface {
	// Validate runs the ordered check chain and returns the code on success.
	// The first failing check stops evaluation; failures are sentinel errors
	// from the domain package.
	Validate(ctx context.Context, qx any, code, userID string, cartTotalCents int64, forSubscription bool) (*model.DiscountCode, error)
	// Record appends one usage row and bumps the counter. Both writes go
	// through the same qx, so callers running inside WithTx get them
	// committed together or not at all.
	Record(ctx context.Context, qx any, discountCodeID, userID string, purchaseID *string, amountCents int64) error

	// Admin CRUD.
	Create(ctx context.Context, code *model.DiscountCode) (*model.DiscountCode, error)
	Update(ctx context.Context, code *model.DiscountCode) error
	List(ctx context.Context) ([]*model.DiscountCode, error)
	Deactivate(ctx context.Context, id string) error
}

type discountUC struct {
	discounts repository.DiscountRepository
	log       *zerolog.Logger
}

func NewDiscountUseCase(discounts repository.DiscountRepository, logger *zerolog.Logger) *discountUC {
	return &discountUC{discounts: discounts, log: logger}
}

func (uc *discountUC) Validate(ctx context.Context, qx any, code, userID string, cartTotalCents int64, forSubscription bool) (*model.DiscountCode, error) {
	dc, err := uc.discounts.FindByCode(ctx, qx, strings.ToLower(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, uc.reject(domain.ErrDiscountNotFound)
		}
		return nil, fmt.Errorf("discount lookup: %w", err)
	}
	now := time.Now()
	switch {
	case !dc.IsActive:
		return nil, uc.reject(domain.ErrDiscountInactive)
	case dc.ValidFrom != nil && now.Before(*dc.ValidFrom):
		return nil, uc.reject(domain.ErrDiscountNotStarted)
	case dc.ValidUntil != nil && now.After(*dc.ValidUntil):
		return nil, uc.reject(domain.ErrDiscountExpired)
	case dc.MaxUsesTotal > 0 && dc.UsedCount >= dc.MaxUsesTotal:
		return nil, uc.reject(domain.ErrDiscountExhausted)
	case forSubscription && !dc.AppliesToSubscriptions:
		return nil, uc.reject(domain.ErrDiscountNotApplicable)
	case !forSubscription && !dc.AppliesToPurchases:
		return nil, uc.reject(domain.ErrDiscountNotApplicable)
	case cartTotalCents < dc.MinPurchaseCents:
		return nil, uc.reject(domain.ErrDiscountMinPurchase)
	}
	if dc.MaxUsesPerUser > 0 {
		used, err := uc.discounts.CountUsagesByUser(ctx, qx, dc.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("discount usage count: %w", err)
		}
		if used >= dc.MaxUsesPerUser {
			return nil, uc.reject(domain.ErrDiscountUserLimit)
		}
	}
	return dc, nil
}

func (uc *discountUC) reject(err error) error {
	metrics.IncDiscountRejection(err.Error())
	return err
}

func (uc *discountUC) Record(ctx context.Context, qx any, discountCodeID, userID string, purchaseID *string, amountCents int64) error {
	ok, err := uc.discounts.IncrementUsedCount(ctx, qx, discountCodeID)
	if err != nil {
		return fmt.Errorf("increment used count: %w", err)
	}
	if !ok {
		// a concurrent redemption took the last slot between validate and here
		return domain.ErrDiscountExhausted
	}
	usage := &model.DiscountCodeUsage{
		ID:                  model.NewID(),
		DiscountCodeID:      discountCodeID,
		UserID:              userID,
		PurchaseID:          purchaseID,
		DiscountAmountCents: amountCents,
		CreatedAt:           time.Now(),
	}
	if err := uc.discounts.InsertUsage(ctx, qx, usage); err != nil {
		return fmt.Errorf("insert usage: %w", err)
	}
	metrics.IncDiscountRedemption()
	return nil
}

func (uc *discountUC) Create(ctx context.Context, code *model.DiscountCode) (*model.DiscountCode, error) {
	if code.Code == "" || code.Value <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	switch code.Type {
	case model.DiscountTypePercentage:
		if code.Value > 100 {
			return nil, domain.ErrInvalidArgument
		}
	case model.DiscountTypeFixed:
	default:
		return nil, domain.ErrInvalidArgument
	}
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	code.Code = strings.ToLower(strings.TrimSpace(code.Code))
	code.UsedCount = 0
	now := time.Now()
	code.CreatedAt = now
	code.UpdatedAt = now
	if err := uc.discounts.Save(ctx, repository.NoTX, code); err != nil {
		return nil, fmt.Errorf("save discount: %w", err)
	}
	return code, nil
}

func (uc *discountUC) Update(ctx context.Context, code *model.DiscountCode) error {
	if code.ID == "" {
		return domain.ErrInvalidArgument
	}
	code.Code = strings.ToLower(strings.TrimSpace(code.Code))
	code.UpdatedAt = time.Now()
	return uc.discounts.Save(ctx, repository.NoTX, code)
}

func (uc *discountUC) List(ctx context.Context) ([]*model.DiscountCode, error) {
	return uc.discounts.ListAll(ctx, repository.NoTX)
}

func (uc *discountUC) Deactivate(ctx context.Context, id string) error {
	return uc.discounts.Deactivate(ctx, repository.NoTX, id)
}
