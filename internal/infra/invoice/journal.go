package invoice

import (
	"context"

	"github.com/rs/zerolog"

	"audio-commerce/internal/domain/model"
	"audio-commerce/internal/domain/ports/adapter"
)

var _ adapter.InvoiceGenerator = (*Journal)(nil)

// Journal emits invoices as structured log records. Billing ingests the log
// stream downstream; this process only needs a durable, ordered trail with a
// stable invoice id per settlement.
type Journal struct {
	log *zerolog.Logger
}

func NewJournal(logger *zerolog.Logger) *Journal {
	return &Journal{log: logger}
}

func (j *Journal) Generate(_ context.Context, inv model.Invoice) (string, error) {
	id := model.NewID()

	switch inv.Kind {
	case model.InvoiceKindPurchase:
		p := inv.Purchase
		lines := zerolog.Arr()
		for _, row := range p.Purchases {
			lines = lines.Dict(zerolog.Dict().
				Str("purchase_id", row.ID).
				Str("content_item_id", row.ContentItemID).
				Int64("price_paid_cents", row.PricePaidCents))
		}
		j.log.Info().
			Str("invoice_id", id).
			Str("kind", string(inv.Kind)).
			Str("order_id", p.ProviderOrderID).
			Str("user_id", p.UserID).
			Array("lines", lines).
			Int64("discount_cents", p.DiscountCents).
			Int64("total_cents", p.TotalCents).
			Str("currency", p.Currency).
			Msg("invoice")

	case model.InvoiceKindSubscription:
		s := inv.Subscription
		j.log.Info().
			Str("invoice_id", id).
			Str("kind", string(inv.Kind)).
			Str("subscription_id", s.Subscription.ID).
			Str("user_id", s.Subscription.UserID).
			Str("plan", s.Plan.Name).
			Int64("amount_cents", s.AmountCents).
			Str("currency", s.Currency).
			Msg("invoice")
	}

	return id, nil
}
