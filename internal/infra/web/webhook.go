package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"audio-commerce/internal/domain"
	"audio-commerce/internal/domain/ports/adapter"
	"audio-commerce/internal/domain/ports/repository"
	"audio-commerce/internal/infra/metrics"
	"audio-commerce/internal/infra/payment"
	"audio-commerce/internal/infra/redis"
	"audio-commerce/internal/usecase"
)

// WebhookHandler authenticates, dedupes and routes provider event deliveries.
// Dedupe is two layered: a redis fast path and the durable webhook_events
// table. The table is authoritative; the cache only saves a round trip.
type WebhookHandler struct {
	gateway    adapter.PaymentGateway
	events     repository.WebhookEventRepository
	cache      *redis.WebhookCache
	checkoutUC usecase.CheckoutUseCase
	subUC      usecase.SubscriptionUseCase
	log        *zerolog.Logger
}

func NewWebhookHandler(
	gateway adapter.PaymentGateway,
	events repository.WebhookEventRepository,
	cache *redis.WebhookCache,
	checkoutUC usecase.CheckoutUseCase,
	subUC usecase.SubscriptionUseCase,
	logger *zerolog.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		gateway:    gateway,
		events:     events,
		cache:      cache,
		checkoutUC: checkoutUC,
		subUC:      subUC,
		log:        logger,
	}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	transmissionID := r.Header.Get("Paypal-Transmission-Id")
	timestamp := r.Header.Get("Paypal-Transmission-Time")
	signature := r.Header.Get("Paypal-Transmission-Sig")
	if !h.gateway.VerifyWebhookSignature(transmissionID, timestamp, body, signature) {
		metrics.IncWebhookEvent("unknown", "bad_signature")
		h.log.Warn().Str("transmission_id", transmissionID).Msg("webhook signature rejected")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var event payment.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil || event.ID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if h.cache != nil && !h.cache.FirstDelivery(r.Context(), event.ID) {
		metrics.IncWebhookEvent(event.EventType, "replay")
		w.WriteHeader(http.StatusOK)
		return
	}
	first, err := h.events.MarkProcessed(r.Context(), repository.NoTX, event.ID, event.EventType)
	if err != nil {
		h.log.Error().Err(err).Str("event_id", event.ID).Msg("webhook dedupe failed")
		h.releaseEvent(r.Context(), event.ID)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if !first {
		metrics.IncWebhookEvent(event.EventType, "replay")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.dispatch(r.Context(), &event); err != nil {
		if permanentWebhookError(err) {
			// The event itself was handled; the order it referenced failed
			// reconciliation. Ack so the provider stops redelivering.
			metrics.IncWebhookEvent(event.EventType, "rejected")
			h.log.Warn().Err(err).Str("event_id", event.ID).Str("event_type", event.EventType).
				Msg("webhook event rejected")
			w.WriteHeader(http.StatusOK)
			return
		}
		// Transient failure: release the event id again so the redelivery
		// dispatches instead of being acked as a replay. The conditional
		// usecase writes keep the redelivery idempotent.
		h.releaseEvent(r.Context(), event.ID)
		metrics.IncWebhookEvent(event.EventType, "error")
		h.log.Error().Err(err).Str("event_id", event.ID).Str("event_type", event.EventType).
			Msg("webhook event failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	metrics.IncWebhookEvent(event.EventType, "processed")
	w.WriteHeader(http.StatusOK)
}

// releaseEvent drops both dedupe layers for an event whose handling did not
// complete, so the provider's redelivery gets a full retry.
func (h *WebhookHandler) releaseEvent(ctx context.Context, eventID string) {
	if h.cache != nil {
		h.cache.Forget(ctx, eventID)
	}
	if err := h.events.ClearProcessed(ctx, repository.NoTX, eventID); err != nil {
		h.log.Error().Err(err).Str("event_id", eventID).Msg("webhook dedupe release failed")
	}
}

func (h *WebhookHandler) dispatch(ctx context.Context, event *payment.WebhookEvent) error {
	res := &event.Resource

	switch event.EventType {
	case "PAYMENT.CAPTURE.COMPLETED":
		captures := []adapter.CaptureUnit{{
			CaptureID:   res.ID,
			AmountCents: payment.AmountToCents(res.Amount.Value),
			Currency:    res.Amount.Currency,
			Status:      res.Status,
		}}
		_, err := h.checkoutUC.OnCaptureCompleted(ctx, event.OrderID(), captures)
		return err

	case "CHECKOUT.ORDER.COMPLETED":
		result := payment.CaptureResultFromResource(res)
		_, err := h.checkoutUC.OnCaptureCompleted(ctx, result.OrderID, result.Captures)
		return err

	case "PAYMENT.CAPTURE.REFUNDED", "PAYMENT.CAPTURE.REVERSED":
		return h.checkoutUC.OnCaptureRefunded(ctx, res.ID)

	case "BILLING.SUBSCRIPTION.ACTIVATED":
		start, end := subscriptionPeriod(res, event.CreateTime)
		_, err := h.subUC.ActivateFromProvider(ctx, res.ID, res.CustomID, start, end)
		return err

	case "BILLING.SUBSCRIPTION.CANCELLED":
		return h.subUC.ApplyProviderEvent(ctx, res.ID, usecase.SubEventCancelled, nil)

	case "BILLING.SUBSCRIPTION.SUSPENDED":
		return h.subUC.ApplyProviderEvent(ctx, res.ID, usecase.SubEventSuspended, nil)

	case "BILLING.SUBSCRIPTION.EXPIRED":
		return h.subUC.ApplyProviderEvent(ctx, res.ID, usecase.SubEventExpired, nil)

	default:
		h.log.Debug().Str("event_type", event.EventType).Msg("ignoring webhook event type")
		return nil
	}
}

// subscriptionPeriod derives period bounds from billing info, falling back to
// the event time plus thirty days when the provider omits them.
func subscriptionPeriod(res *payment.Resource, createTime string) (time.Time, time.Time) {
	start := time.Now()
	if t, err := time.Parse(time.RFC3339, res.BillingInfo.LastPaymentTime); err == nil {
		start = t
	} else if t, err := time.Parse(time.RFC3339, createTime); err == nil {
		start = t
	}
	end := start.AddDate(0, 0, 30)
	if t, err := time.Parse(time.RFC3339, res.BillingInfo.NextBillingTime); err == nil && t.After(start) {
		end = t
	}
	return start, end
}

// permanentWebhookError reports reconciliation failures that redelivery can
// never fix.
func permanentWebhookError(err error) bool {
	return errors.Is(err, domain.ErrAmountMismatch) ||
		errors.Is(err, domain.ErrCurrencyMismatch) ||
		errors.Is(err, domain.ErrCaptureNotComplete) ||
		errors.Is(err, domain.ErrInvalidArgument) ||
		errors.Is(err, domain.ErrNotFound)
}
