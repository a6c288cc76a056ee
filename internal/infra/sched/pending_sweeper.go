package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"audio-commerce/internal/domain/ports/repository"
	"audio-commerce/internal/usecase"
)

// PendingSweeper periodically scans for stale pending purchases. Recent ones
// get a capture retry, which finalizes orders whose synchronous capture or
// webhook was lost. Ones past the retention window are marked failed.
type PendingSweeper struct {
	uc        usecase.CheckoutUseCase
	purchases repository.PurchaseRepository
	interval  time.Duration // how often to scan
	retention time.Duration // how old a pending purchase must be to give up
	log       *zerolog.Logger
}

func NewPendingSweeper(uc usecase.CheckoutUseCase, purchases repository.PurchaseRepository, interval, retention time.Duration, logger *zerolog.Logger) *PendingSweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &PendingSweeper{uc: uc, purchases: purchases, interval: interval, retention: retention, log: logger}
}

func (w *PendingSweeper) Start(ctx context.Context) {
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

func (w *PendingSweeper) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.interval)
	pending, err := w.purchases.ListPendingOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("pending-sweeper: list pending failed")
		return
	}

	giveUp := time.Now().Add(-w.retention)
	tried := map[string]bool{}
	for _, p := range pending {
		if p.CreatedAt.Before(giveUp) {
			if ok, err := w.purchases.FailIfPending(ctx, repository.NoTX, p.ID); err != nil {
				w.log.Error().Err(err).Str("purchase_id", p.ID).Msg("pending-sweeper: fail purchase failed")
			} else if ok {
				w.log.Info().Str("purchase_id", p.ID).Str("order_id", p.ProviderOrderID).
					Msg("pending-sweeper: expired stale purchase")
			}
			continue
		}
		if p.ProviderOrderID == "" || tried[p.ProviderOrderID] {
			continue
		}
		tried[p.ProviderOrderID] = true
		if _, err := w.uc.CaptureOrder(ctx, p.ProviderOrderID); err != nil {
			w.log.Warn().Err(err).Str("order_id", p.ProviderOrderID).
				Msg("pending-sweeper: capture retry failed")
			continue
		}
		w.log.Info().Str("order_id", p.ProviderOrderID).Msg("pending-sweeper: reconciled order")
	}
}
