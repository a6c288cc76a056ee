package repository

import "context"

// WebhookEventRepository is the durable replay guard for provider events.
// MarkProcessed inserts the event id and reports whether this call was the
// first to do so; a false return means the event was already handled.
// ClearProcessed releases the id again so a redelivery dispatches; it is the
// undo for an event whose handling failed transiently after the insert.
type WebhookEventRepository interface {
	MarkProcessed(ctx context.Context, qx any, eventID, eventType string) (bool, error)
	ClearProcessed(ctx context.Context, qx any, eventID string) error
}
