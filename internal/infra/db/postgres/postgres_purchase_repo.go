package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"audio-commerce/internal/domain"
	"audio-commerce/internal/domain/model"
	"audio-commerce/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*purchaseRepo)(nil)

type purchaseRepo struct{ pool *pgxpool.Pool }

func NewPurchaseRepo(pool *pgxpool.Pool) *purchaseRepo {
	return &purchaseRepo{pool: pool}
}

const purchaseColumns = `id, user_id, content_item_id, price_paid_cents, currency, status, provider_order_id, provider_capture_id, created_at, purchased_at`

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	p := &model.Purchase{}
	if err := row.Scan(&p.ID, &p.UserID, &p.ContentItemID, &p.PricePaidCents, &p.Currency, &p.Status, &p.ProviderOrderID, &p.ProviderCaptureID, &p.CreatedAt, &p.PurchasedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *purchaseRepo) SaveAll(ctx context.Context, qx any, purchases []*model.Purchase) error {
	const q = `
INSERT INTO purchases (` + purchaseColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	for _, p := range purchases {
		_, err := execSQL(ctx, r.pool, qx, q, p.ID, p.UserID, p.ContentItemID, p.PricePaidCents, p.Currency, p.Status, p.ProviderOrderID, p.ProviderCaptureID, p.CreatedAt, p.PurchasedAt)
		if err != nil {
			if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
				return err
			}
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *purchaseRepo) FindByProviderOrderID(ctx context.Context, qx any, providerOrderID string) ([]*model.Purchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE provider_order_id=$1 ORDER BY id`
	if _, ok := qx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	rows, err := queryRows(ctx, r.pool, qx, q, providerOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CompleteIfPending atomically flips one line pending -> completed. The status
// guard is what makes capture replays and the webhook race safe.
func (r *purchaseRepo) CompleteIfPending(ctx context.Context, qx any, id string, pricePaidCents int64, captureID string, purchasedAt time.Time) (bool, error) {
	const q = `
UPDATE purchases
   SET status = 'completed',
       price_paid_cents = $2,
       provider_capture_id = $3,
       purchased_at = $4
 WHERE id = $1
   AND status = 'pending';`
	cmd, err := execSQL(ctx, r.pool, qx, q, id, pricePaidCents, captureID, purchasedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *purchaseRepo) FailPendingByProviderOrder(ctx context.Context, qx any, providerOrderID string) (int64, error) {
	const q = `UPDATE purchases SET status='failed' WHERE provider_order_id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, qx, q, providerOrderID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return cmd.RowsAffected(), nil
}

func (r *purchaseRepo) RefundIfCompleted(ctx context.Context, qx any, captureID string) (bool, error) {
	const q = `UPDATE purchases SET status='refunded' WHERE provider_capture_id=$1 AND status='completed';`
	cmd, err := execSQL(ctx, r.pool, qx, q, captureID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *purchaseRepo) FindCompletedByUserAndItem(ctx context.Context, qx any, userID, contentItemID string) (*model.Purchase, error) {
	const q = `SELECT ` + purchaseColumns + ` FROM purchases WHERE user_id=$1 AND content_item_id=$2 AND status='completed' LIMIT 1;`
	row, err := pickRow(ctx, r.pool, qx, q, userID, contentItemID)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *purchaseRepo) ListByUser(ctx context.Context, qx any, userID string) ([]*model.Purchase, error) {
	const q = `SELECT ` + purchaseColumns + ` FROM purchases WHERE user_id=$1 ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, qx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *purchaseRepo) ListPendingOlderThan(ctx context.Context, qx any, olderThan time.Time, limit int) ([]*model.Purchase, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + purchaseColumns + ` FROM purchases WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, qx, q, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *purchaseRepo) FailIfPending(ctx context.Context, qx any, id string) (bool, error) {
	const q = `UPDATE purchases SET status='failed' WHERE id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, qx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
