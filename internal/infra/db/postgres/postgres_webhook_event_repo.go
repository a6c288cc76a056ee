package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"audio-commerce/internal/domain"
	"audio-commerce/internal/domain/ports/repository"
)

var _ repository.WebhookEventRepository = (*webhookEventRepo)(nil)

type webhookEventRepo struct{ pool *pgxpool.Pool }

func NewWebhookEventRepo(pool *pgxpool.Pool) *webhookEventRepo {
	return &webhookEventRepo{pool: pool}
}

// MarkProcessed relies on the primary key on event_id: only the first insert
// for a given event id reports true, so replayed deliveries short-circuit.
func (r *webhookEventRepo) MarkProcessed(ctx context.Context, qx any, eventID, eventType string) (bool, error) {
	const q = `
INSERT INTO webhook_events (event_id, event_type, processed_at)
VALUES ($1,$2,NOW())
ON CONFLICT (event_id) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, qx, q, eventID, eventType)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *webhookEventRepo) ClearProcessed(ctx context.Context, qx any, eventID string) error {
	const q = `DELETE FROM webhook_events WHERE event_id=$1;`
	if _, err := execSQL(ctx, r.pool, qx, q, eventID); err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
