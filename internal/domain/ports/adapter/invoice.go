package adapter

import (
	"context"

	"audio-commerce/internal/domain/model"
)

// InvoiceGenerator is the collaborator that renders and stores invoices.
// It receives the tagged Invoice variant and returns an invoice identifier.
// Rendering and delivery are outside this core.
type InvoiceGenerator interface {
	Generate(ctx context.Context, invoice model.Invoice) (invoiceID string, err error)
}
