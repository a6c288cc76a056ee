// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"audio-commerce/internal/domain"
	"audio-commerce/internal/domain/model"
	"audio-commerce/internal/domain/ports/adapter"
	"audio-commerce/internal/domain/ports/repository"
	"audio-commerce/internal/infra/metrics"
)

var _ CheckoutUseCase = (*checkoutUC)(nil)

// toleranceCentsPerLine caps reconciliation slack at one cent per cart line,
// regardless of how many capture units the provider split the order into.
const toleranceCentsPerLine = int64(1)

type AppliedDiscount struct {
	Code        string
	AmountCents int64
}

type OrderCreated struct {
	ProviderOrderID string
	ApproveURL      string
	TotalCents      int64
	Currency        string
	AppliedDiscount *AppliedDiscount
}

type CaptureOutcome struct {
	PurchaseIDs      []string
	TotalCents       int64
	Currency         string
	AlreadyCompleted bool
}

type SubscriptionOrderCreated struct {
	ProviderSubscriptionID string
	ApproveURL             string
	AmountCents            int64
	Currency               string
	AppliedDiscount        *AppliedDiscount
}

// CheckoutUseCase owns the cart -> order -> capture -> settled-purchase
// pipeline. One attempt at a time per user: CreateOrder overwrites any prior
// attempt's expected-total context, and the loser of that race fails
// reconciliation instead of silently succeeding.
type CheckoutUseCase interface {
	CreateOrder(ctx context.Context, userID, discountCode string) (*OrderCreated, error)
	CaptureOrder(ctx context.Context, providerOrderID string) (*CaptureOutcome, error)
	CreateSubscriptionOrder(ctx context.Context, userID, planID, discountCode string) (*SubscriptionOrderCreated, error)

	// OnCaptureCompleted is the webhook entry for an asynchronous settlement.
	// It runs the same reconciliation and the same conditional completion as
	// the synchronous path; totals come from local state, never from the
	// webhook payload alone.
	OnCaptureCompleted(ctx context.Context, providerOrderID string, captures []adapter.CaptureUnit) (*CaptureOutcome, error)
	OnCaptureRefunded(ctx context.Context, providerCaptureID string) error
}

type checkoutUC struct {
	cart       repository.CartRepository
	catalog    repository.CatalogRepository
	purchases  repository.PurchaseRepository
	plans      repository.SubscriptionPlanRepository
	state      repository.CheckoutStateRepository
	discountUC DiscountUseCase
	gateway    adapter.PaymentGateway
	invoices   adapter.InvoiceGenerator
	tm         repository.TransactionManager
	captureTTL time.Duration
	log        *zerolog.Logger
}

func NewCheckoutUseCase(
	cart repository.CartRepository,
	catalog repository.CatalogRepository,
	purchases repository.PurchaseRepository,
	plans repository.SubscriptionPlanRepository,
	state repository.CheckoutStateRepository,
	discountUC DiscountUseCase,
	gateway adapter.PaymentGateway,
	invoices adapter.InvoiceGenerator,
	tm repository.TransactionManager,
	captureTimeout time.Duration,
	logger *zerolog.Logger,
) *checkoutUC {
	if captureTimeout <= 0 {
		captureTimeout = 30 * time.Second
	}
	return &checkoutUC{
		cart:       cart,
		catalog:    catalog,
		purchases:  purchases,
		plans:      plans,
		state:      state,
		discountUC: discountUC,
		gateway:    gateway,
		invoices:   invoices,
		tm:         tm,
		captureTTL: captureTimeout,
		log:        logger,
	}
}

func (uc *checkoutUC) CreateOrder(ctx context.Context, userID, discountCode string) (*OrderCreated, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	items, err := uc.cart.ListByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, fmt.Errorf("read cart: %w", err)
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	var (
		lines    []adapter.OrderLine
		contents []*model.ContentItem
		total    int64
		currency string
	)
	for _, it := range items {
		ci, err := uc.catalog.FindByID(ctx, repository.NoTX, it.ContentItemID)
		if err != nil {
			return nil, fmt.Errorf("catalog lookup %s: %w", it.ContentItemID, err)
		}
		if ci.IsFree {
			// free items never reach the provider order
			continue
		}
		if currency == "" {
			currency = ci.Currency
		} else if ci.Currency != currency {
			return nil, domain.ErrCurrencyMismatch
		}
		contents = append(contents, ci)
		lines = append(lines, adapter.OrderLine{Name: ci.Title, PriceCents: ci.PriceCents})
		total += ci.PriceCents
	}
	if len(contents) == 0 || total <= 0 {
		return nil, domain.ErrEmptyCart
	}

	var (
		applied     *AppliedDiscount
		discountID  string
		discountAmt int64
	)
	if discountCode != "" {
		dc, err := uc.discountUC.Validate(ctx, repository.NoTX, discountCode, userID, total, false)
		if err != nil {
			return nil, err
		}
		discountID = dc.ID
		discountAmt = dc.Apply(total)
		applied = &AppliedDiscount{Code: dc.Code, AmountCents: discountAmt}
	}
	final := total - discountAmt

	orderID, approveURL, err := uc.gateway.CreateOrder(ctx, adapter.CreateOrderRequest{
		ReferenceID:     uuid.NewString(),
		Currency:        currency,
		Lines:           lines,
		ItemTotalCents:  total,
		DiscountCents:   discountAmt,
		FinalTotalCents: final,
	})
	if err != nil {
		metrics.IncCheckoutOrder("provider_error")
		return nil, fmt.Errorf("%w: create order: %v", domain.ErrProvider, err)
	}

	pending := make([]*model.Purchase, 0, len(contents))
	for _, ci := range contents {
		pending = append(pending, model.NewPendingPurchase(userID, ci, orderID))
	}
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		return uc.purchases.SaveAll(ctx, tx, pending)
	})
	if err != nil {
		return nil, fmt.Errorf("persist pending purchases: %w", err)
	}

	// Fresh context, overwriting any prior attempt. The old attempt's capture
	// will fall back to its raw cart sum and fail reconciliation if it had a
	// discount applied.
	cctx := &repository.CheckoutContext{
		ProviderOrderID:     orderID,
		DiscountCodeID:      discountID,
		DiscountAmountCents: discountAmt,
		OriginalTotalCents:  total,
		FinalTotalCents:     final,
		Currency:            currency,
		ItemCount:           len(contents),
		CreatedAt:           time.Now(),
	}
	if err := uc.state.Set(ctx, userID, cctx); err != nil {
		return nil, fmt.Errorf("store checkout context: %w", err)
	}

	metrics.IncCheckoutOrder("created")
	uc.log.Info().Str("user_id", userID).Str("order_id", orderID).
		Int64("total_cents", final).Int64("discount_cents", discountAmt).
		Msg("checkout order created")

	return &OrderCreated{
		ProviderOrderID: orderID,
		ApproveURL:      approveURL,
		TotalCents:      final,
		Currency:        currency,
		AppliedDiscount: applied,
	}, nil
}

func (uc *checkoutUC) CaptureOrder(ctx context.Context, providerOrderID string) (*CaptureOutcome, error) {
	rows, err := uc.purchases.FindByProviderOrderID(ctx, repository.NoTX, providerOrderID)
	if err != nil {
		return nil, fmt.Errorf("load purchases: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	if out := replayOutcome(rows); out != nil {
		metrics.IncCheckoutCapture("replay")
		return out, nil
	}

	capCtx, cancel := context.WithTimeout(ctx, uc.captureTTL)
	defer cancel()
	res, err := uc.gateway.CaptureOrder(capCtx, providerOrderID)
	if err != nil {
		// retryable: pending rows stay pending, context stays put
		metrics.IncCheckoutCapture("provider_error")
		return nil, fmt.Errorf("%w: capture: %v", domain.ErrProvider, err)
	}
	if res.Status != adapter.CaptureStatusCompleted {
		uc.failAttempt(ctx, rows)
		metrics.IncCheckoutCapture("rejected")
		return nil, fmt.Errorf("%w: provider status %s", domain.ErrCaptureNotComplete, res.Status)
	}
	return uc.completeFromCaptures(ctx, providerOrderID, rows, res.Captures)
}

// OnCaptureCompleted converges with the synchronous path on the same
// conditional "complete only if currently pending" write, so replays and
// races both collapse to a no-op that reports the prior result.
func (uc *checkoutUC) OnCaptureCompleted(ctx context.Context, providerOrderID string, captures []adapter.CaptureUnit) (*CaptureOutcome, error) {
	rows, err := uc.purchases.FindByProviderOrderID(ctx, repository.NoTX, providerOrderID)
	if err != nil {
		return nil, fmt.Errorf("load purchases: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	if out := replayOutcome(rows); out != nil {
		metrics.IncCheckoutCapture("replay")
		return out, nil
	}
	return uc.completeFromCaptures(ctx, providerOrderID, rows, captures)
}

func (uc *checkoutUC) OnCaptureRefunded(ctx context.Context, providerCaptureID string) error {
	ok, err := uc.purchases.RefundIfCompleted(ctx, repository.NoTX, providerCaptureID)
	if err != nil {
		return fmt.Errorf("mark refunded: %w", err)
	}
	if ok {
		metrics.IncCheckoutCapture("refunded")
	}
	return nil
}

// completeFromCaptures reconciles the settled captures against the locally
// expected total and, inside one transaction, completes every pending line at
// its discounted price, records the single order-level discount usage, and
// clears the cart. Nothing is persisted on any failure.
func (uc *checkoutUC) completeFromCaptures(ctx context.Context, providerOrderID string, rows []*model.Purchase, captures []adapter.CaptureUnit) (*CaptureOutcome, error) {
	userID := rows[0].UserID
	currency := rows[0].Currency

	var settled int64
	for _, cu := range captures {
		if cu.Currency != currency {
			uc.failAttempt(ctx, rows)
			metrics.IncCheckoutCapture("currency_mismatch")
			return nil, fmt.Errorf("%w: got %s, want %s", domain.ErrCurrencyMismatch, cu.Currency, currency)
		}
		settled += cu.AmountCents
	}

	// The context only counts when it still belongs to this order; an expired
	// or overwritten context means this attempt lost the overwrite race and is
	// reconciled against its raw cart sum instead.
	cctx, err := uc.state.Get(ctx, userID)
	if err != nil || (cctx != nil && cctx.ProviderOrderID != providerOrderID) {
		cctx = nil
	}

	var expected, discount int64
	var discountCodeID string
	if cctx != nil {
		expected = cctx.FinalTotalCents
		discount = cctx.DiscountAmountCents
		discountCodeID = cctx.DiscountCodeID
	} else {
		for _, r := range rows {
			expected += r.PricePaidCents
		}
	}

	tolerance := int64(len(rows)) * toleranceCentsPerLine
	if diff := settled - expected; diff > tolerance || diff < -tolerance {
		// invalidate the context before returning so a retried attempt cannot
		// reuse a stale discount
		if cctx != nil {
			uc.clearState(ctx, userID)
		}
		uc.failAttempt(ctx, rows)
		metrics.IncCheckoutCapture("amount_mismatch")
		uc.log.Warn().Str("order_id", providerOrderID).
			Int64("settled_cents", settled).Int64("expected_cents", expected).
			Msg("capture reconciliation failed")
		return nil, fmt.Errorf("%w: settled %d, expected %d", domain.ErrAmountMismatch, settled, expected)
	}

	prices := make([]int64, len(rows))
	for i, r := range rows {
		prices[i] = r.PricePaidCents
	}
	shares := model.AllocateDiscount(discount, prices)

	captureID := ""
	if len(captures) > 0 {
		captureID = captures[0].CaptureID
	}

	now := time.Now()
	completed := 0
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		for i, r := range rows {
			ok, err := uc.purchases.CompleteIfPending(ctx, tx, r.ID, prices[i]-shares[i], captureID, now)
			if err != nil {
				return err
			}
			if ok {
				completed++
				r.Status = model.PurchaseStatusCompleted
				r.PricePaidCents = prices[i] - shares[i]
				r.ProviderCaptureID = captureID
				r.PurchasedAt = &now
			}
		}
		if completed == 0 {
			// a racing capture or webhook won; nothing left to write
			return nil
		}
		if discount > 0 && discountCodeID != "" {
			firstID := rows[0].ID
			if err := uc.discountUC.Record(ctx, tx, discountCodeID, userID, &firstID, discount); err != nil {
				return err
			}
		}
		return uc.cart.Clear(ctx, tx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("finalize capture: %w", err)
	}

	if completed == 0 {
		metrics.IncCheckoutCapture("replay")
		fresh, err := uc.purchases.FindByProviderOrderID(ctx, repository.NoTX, providerOrderID)
		if err == nil {
			if out := replayOutcome(fresh); out != nil {
				return out, nil
			}
		}
		return nil, domain.ErrOperationFailed
	}

	uc.clearState(ctx, userID)
	metrics.IncCheckoutCapture("completed")
	metrics.AddCheckoutRevenue(currency, settled)

	out := &CaptureOutcome{TotalCents: settled, Currency: currency}
	for _, r := range rows {
		out.PurchaseIDs = append(out.PurchaseIDs, r.ID)
	}

	uc.log.Info().Str("user_id", userID).Str("order_id", providerOrderID).
		Int("lines", len(rows)).Int64("settled_cents", settled).
		Msg("checkout capture completed")

	if uc.invoices != nil {
		inv := model.NewPurchaseInvoice(providerOrderID, userID, currency, rows, discount)
		if _, err := uc.invoices.Generate(ctx, inv); err != nil {
			uc.log.Error().Err(err).Str("order_id", providerOrderID).Msg("invoice generation failed")
		}
	}
	return out, nil
}

func (uc *checkoutUC) CreateSubscriptionOrder(ctx context.Context, userID, planID, discountCode string) (*SubscriptionOrderCreated, error) {
	if userID == "" || planID == "" {
		return nil, domain.ErrInvalidArgument
	}
	plan, err := uc.plans.FindByID(ctx, repository.NoTX, planID)
	if err != nil {
		return nil, fmt.Errorf("plan lookup: %w", err)
	}

	var (
		applied     *AppliedDiscount
		discountID  string
		discountAmt int64
	)
	if discountCode != "" {
		dc, err := uc.discountUC.Validate(ctx, repository.NoTX, discountCode, userID, plan.PriceCents, true)
		if err != nil {
			return nil, err
		}
		// single line item: Apply covers it, no proration needed
		discountID = dc.ID
		discountAmt = dc.Apply(plan.PriceCents)
		applied = &AppliedDiscount{Code: dc.Code, AmountCents: discountAmt}
	}
	final := plan.PriceCents - discountAmt

	// The discount rides along in the provider reference and is redeemed only
	// when the activation webhook arrives. An abandoned approval must not burn
	// a use.
	subID, approveURL, err := uc.gateway.CreateSubscription(ctx, plan.ProviderPlanID, final, plan.Currency,
		model.SubscriptionReference(userID, planID, discountID, discountAmt))
	if err != nil {
		return nil, fmt.Errorf("%w: create subscription: %v", domain.ErrProvider, err)
	}

	uc.log.Info().Str("user_id", userID).Str("plan_id", planID).
		Str("provider_sub_id", subID).Msg("subscription order created")

	return &SubscriptionOrderCreated{
		ProviderSubscriptionID: subID,
		ApproveURL:             approveURL,
		AmountCents:            final,
		Currency:               plan.Currency,
		AppliedDiscount:        applied,
	}, nil
}

// failAttempt marks every still-pending line of the order failed and clears
// the user's context if it still belongs to this order. Fail-closed: an
// attempt that cannot be reconciled is dead, a user retry starts from a new
// order.
func (uc *checkoutUC) failAttempt(ctx context.Context, rows []*model.Purchase) {
	if len(rows) == 0 {
		return
	}
	orderID := rows[0].ProviderOrderID
	userID := rows[0].UserID
	if _, err := uc.purchases.FailPendingByProviderOrder(ctx, repository.NoTX, orderID); err != nil {
		uc.log.Error().Err(err).Str("order_id", orderID).Msg("failed to mark purchases failed")
	}
	if cctx, err := uc.state.Get(ctx, userID); err == nil && cctx != nil && cctx.ProviderOrderID == orderID {
		uc.clearState(ctx, userID)
	}
}

func (uc *checkoutUC) clearState(ctx context.Context, userID string) {
	if err := uc.state.Clear(ctx, userID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		uc.log.Error().Err(err).Str("user_id", userID).Msg("failed to clear checkout context")
	}
}

// replayOutcome returns the prior result when the order already has completed
// lines, nil otherwise.
func replayOutcome(rows []*model.Purchase) *CaptureOutcome {
	out := &CaptureOutcome{AlreadyCompleted: true}
	for _, r := range rows {
		if r.Status != model.PurchaseStatusCompleted {
			continue
		}
		out.PurchaseIDs = append(out.PurchaseIDs, r.ID)
		out.TotalCents += r.PricePaidCents
		out.Currency = r.Currency
	}
	if len(out.PurchaseIDs) == 0 {
		return nil
	}
	return out
}
