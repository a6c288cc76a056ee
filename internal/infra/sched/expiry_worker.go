package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"audio-commerce/internal/domain/ports/repository"
	"audio-commerce/internal/usecase"
)

// ExpiryWorker moves subscriptions whose paid period has lapsed to expired.
// Entitlement already denies lapsed periods on its own, so this is cleanup,
// not enforcement: a late tick never grants extra access.
type ExpiryWorker struct {
	subUC    usecase.SubscriptionUseCase
	subs     repository.SubscriptionRepository
	interval time.Duration
	log      *zerolog.Logger
}

func NewExpiryWorker(subUC usecase.SubscriptionUseCase, subs repository.SubscriptionRepository, interval time.Duration, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ExpiryWorker{subUC: subUC, subs: subs, interval: interval, log: logger}
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *ExpiryWorker) tick(ctx context.Context) {
	lapsed, err := w.subs.ListActiveEndedBefore(ctx, repository.NoTX, time.Now(), 200)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry-worker: list lapsed failed")
		return
	}
	for _, sub := range lapsed {
		if err := w.subUC.ApplyProviderEvent(ctx, sub.ProviderSubscriptionID, usecase.SubEventExpired, nil); err != nil {
			w.log.Error().Err(err).Str("subscription_id", sub.ID).Msg("expiry-worker: expire failed")
			continue
		}
		w.log.Info().Str("subscription_id", sub.ID).Msg("expiry-worker: subscription expired")
	}
}
