// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"audio-commerce/internal/domain"
	"audio-commerce/internal/domain/model"
	"audio-commerce/internal/domain/ports/adapter"
	"audio-commerce/internal/domain/ports/repository"
	"audio-commerce/internal/infra/metrics"
)

var _ SubscriptionUseCase = (*subscriptionUC)(nil)

// Provider subscription event kinds, normalized by the webhook layer.
const (
	SubEventActivated = "activated"
	SubEventCancelled = "cancelled"
	SubEventSuspended = "suspended"
	SubEventExpired   = "expired"
)

// SubscriptionUseCase is the recurring-billing state machine:
// (none) -> active -> {past_due, canceled, expired}. Transitions driven by
// provider webhooks or an explicit cancel, all through the same idempotent
// status-conditional update, so replayed deliveries are no-ops.
type SubscriptionUseCase interface {
	// ActivateFromProvider handles the activation webhook. customID is the
	// "userID:planID" reference we attached at subscription creation.
	ActivateFromProvider(ctx context.Context, providerSubID, customID string, periodStart, periodEnd time.Time) (*model.Subscription, error)
	// Cancel is the explicit user cancel. Soft: access stays until the end of
	// the period already paid for.
	Cancel(ctx context.Context, subscriptionID, userID string) (*model.Subscription, error)
	// ApplyProviderEvent routes non-activation webhook events.
	ApplyProviderEvent(ctx context.Context, providerSubID, kind string, periodEnd *time.Time) error
	HasActive(ctx context.Context, userID string) (bool, error)
	GetCurrent(ctx context.Context, userID string) (*model.Subscription, error)
}

type subscriptionUC struct {
	subs       repository.SubscriptionRepository
	plans      repository.SubscriptionPlanRepository
	discountUC DiscountUseCase
	invoices   adapter.InvoiceGenerator
	tm         repository.TransactionManager
	log        *zerolog.Logger
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, plans repository.SubscriptionPlanRepository, discountUC DiscountUseCase, invoices adapter.InvoiceGenerator, tm repository.TransactionManager, logger *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{subs: subs, plans: plans, discountUC: discountUC, invoices: invoices, tm: tm, log: logger}
}

func (uc *subscriptionUC) ActivateFromProvider(ctx context.Context, providerSubID, customID string, periodStart, periodEnd time.Time) (*model.Subscription, error) {
	if existing, err := uc.subs.FindByProviderSubscriptionID(ctx, repository.NoTX, providerSubID); err == nil {
		// replayed activation or a new billing period: refresh bounds, keep it
		// a no-op when already terminal
		ps, pe := periodStart, periodEnd
		_, err := uc.subs.UpdateStatusIf(ctx, repository.NoTX, existing.ID,
			[]model.SubscriptionStatus{model.SubscriptionStatusActive, model.SubscriptionStatusPastDue},
			model.SubscriptionStatusActive, nil, &ps, &pe)
		if err != nil {
			return nil, fmt.Errorf("refresh subscription: %w", err)
		}
		return uc.subs.FindByID(ctx, repository.NoTX, existing.ID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("subscription lookup: %w", err)
	}

	userID, planID, discountID, discountCents, err := model.ParseSubscriptionReference(customID)
	if err != nil {
		return nil, err
	}
	sub, err := model.NewSubscription(userID, planID, providerSubID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	// First activation creates the row and, in the same transaction, redeems
	// the discount validated at order creation. Redemption is keyed to the
	// first activation only, so replays and renewal periods never burn a
	// second use. An exhausted slot cannot fail the activation, the buyer has
	// already paid.
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.subs.Save(ctx, tx, sub); err != nil {
			return fmt.Errorf("save subscription: %w", err)
		}
		if discountID == "" {
			return nil
		}
		if err := uc.discountUC.Record(ctx, tx, discountID, userID, nil, discountCents); err != nil {
			if errors.Is(err, domain.ErrDiscountExhausted) {
				uc.log.Warn().Str("discount_id", discountID).Str("user_id", userID).
					Msg("discount exhausted between order creation and activation")
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncSubscriptionTransition(string(model.SubscriptionStatusActive))
	uc.log.Info().Str("user_id", userID).Str("plan_id", planID).
		Str("provider_sub_id", providerSubID).Msg("subscription activated")

	if uc.invoices != nil {
		if plan, err := uc.plans.FindByID(ctx, repository.NoTX, planID); err == nil {
			inv := model.NewSubscriptionInvoice(sub, plan, plan.PriceCents)
			if _, err := uc.invoices.Generate(ctx, inv); err != nil {
				uc.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("invoice generation failed")
			}
		}
	}
	return sub, nil
}

func (uc *subscriptionUC) Cancel(ctx context.Context, subscriptionID, userID string) (*model.Subscription, error) {
	sub, err := uc.subs.FindByID(ctx, repository.NoTX, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, domain.ErrNotFound
	}
	now := time.Now()
	changed, err := uc.subs.UpdateStatusIf(ctx, repository.NoTX, sub.ID,
		[]model.SubscriptionStatus{model.SubscriptionStatusActive, model.SubscriptionStatusPastDue},
		model.SubscriptionStatusCanceled, &now, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("cancel subscription: %w", err)
	}
	if changed {
		metrics.IncSubscriptionTransition(string(model.SubscriptionStatusCanceled))
		uc.log.Info().Str("subscription_id", sub.ID).Str("user_id", userID).Msg("subscription canceled")
	}
	return uc.subs.FindByID(ctx, repository.NoTX, sub.ID)
}

func (uc *subscriptionUC) ApplyProviderEvent(ctx context.Context, providerSubID, kind string, periodEnd *time.Time) error {
	sub, err := uc.subs.FindByProviderSubscriptionID(ctx, repository.NoTX, providerSubID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// event for a subscription we never saw activated; nothing to move
			uc.log.Warn().Str("provider_sub_id", providerSubID).Str("kind", kind).
				Msg("subscription event for unknown subscription")
			return nil
		}
		return err
	}

	var (
		from       []model.SubscriptionStatus
		to         model.SubscriptionStatus
		canceledAt *time.Time
	)
	switch kind {
	case SubEventCancelled:
		now := time.Now()
		from = []model.SubscriptionStatus{model.SubscriptionStatusActive, model.SubscriptionStatusPastDue}
		to = model.SubscriptionStatusCanceled
		canceledAt = &now
	case SubEventSuspended:
		from = []model.SubscriptionStatus{model.SubscriptionStatusActive}
		to = model.SubscriptionStatusPastDue
	case SubEventExpired:
		from = []model.SubscriptionStatus{model.SubscriptionStatusActive, model.SubscriptionStatusPastDue, model.SubscriptionStatusCanceled}
		to = model.SubscriptionStatusExpired
	default:
		return domain.ErrInvalidArgument
	}

	changed, err := uc.subs.UpdateStatusIf(ctx, repository.NoTX, sub.ID, from, to, canceledAt, nil, periodEnd)
	if err != nil {
		return fmt.Errorf("apply %s: %w", kind, err)
	}
	if changed {
		metrics.IncSubscriptionTransition(string(to))
	}
	return nil
}

func (uc *subscriptionUC) HasActive(ctx context.Context, userID string) (bool, error) {
	sub, err := uc.subs.FindCurrentByUser(ctx, repository.NoTX, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return sub.CurrentlyActive(time.Now()), nil
}

func (uc *subscriptionUC) GetCurrent(ctx context.Context, userID string) (*model.Subscription, error) {
	return uc.subs.FindCurrentByUser(ctx, repository.NoTX, userID)
}
