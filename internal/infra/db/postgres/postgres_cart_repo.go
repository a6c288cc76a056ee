package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"audio-commerce/internal/domain"
	"audio-commerce/internal/domain/model"
	"audio-commerce/internal/domain/ports/repository"
)

var _ repository.CartRepository = (*cartRepo)(nil)

type cartRepo struct{ pool *pgxpool.Pool }

func NewCartRepo(pool *pgxpool.Pool) *cartRepo {
	return &cartRepo{pool: pool}
}

func (r *cartRepo) ListByUser(ctx context.Context, qx any, userID string) ([]*model.CartItem, error) {
	const q = `SELECT user_id, content_item_id, added_at FROM cart_items WHERE user_id=$1 ORDER BY added_at;`
	rows, err := queryRows(ctx, r.pool, qx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.CartItem
	for rows.Next() {
		it := &model.CartItem{}
		if err := rows.Scan(&it.UserID, &it.ContentItemID, &it.AddedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *cartRepo) Add(ctx context.Context, qx any, item *model.CartItem) error {
	const q = `
INSERT INTO cart_items (user_id, content_item_id, added_at)
VALUES ($1,$2,$3)
ON CONFLICT (user_id, content_item_id) DO NOTHING;`
	_, err := execSQL(ctx, r.pool, qx, q, item.UserID, item.ContentItemID, item.AddedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *cartRepo) Clear(ctx context.Context, qx any, userID string) error {
	const q = `DELETE FROM cart_items WHERE user_id=$1;`
	_, err := execSQL(ctx, r.pool, qx, q, userID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
