package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"audio-commerce/internal/domain"
	"audio-commerce/internal/domain/model"
	"audio-commerce/internal/domain/ports/repository"
)

var _ repository.CatalogRepository = (*catalogRepo)(nil)

type catalogRepo struct{ pool *pgxpool.Pool }

func NewCatalogRepo(pool *pgxpool.Pool) *catalogRepo {
	return &catalogRepo{pool: pool}
}

func (r *catalogRepo) FindByID(ctx context.Context, qx any, id string) (*model.ContentItem, error) {
	const q = `SELECT id, owner_id, title, price_cents, currency, is_free, created_at FROM content_items WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	it := &model.ContentItem{}
	if err := row.Scan(&it.ID, &it.OwnerID, &it.Title, &it.PriceCents, &it.Currency, &it.IsFree, &it.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return it, nil
}

func (r *catalogRepo) FindTrackByID(ctx context.Context, qx any, id string) (*model.Track, error) {
	const q = `SELECT id, content_item_id, title, is_sample FROM tracks WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	t := &model.Track{}
	if err := row.Scan(&t.ID, &t.ContentItemID, &t.Title, &t.IsSample); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

func (r *userRepo) FindByID(ctx context.Context, qx any, id string) (*model.User, error) {
	const q = `SELECT id, role, is_active, registered_at FROM users WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Role, &u.IsActive, &u.RegisteredAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}

func (r *userRepo) Save(ctx context.Context, qx any, user *model.User) error {
	const q = `
INSERT INTO users (id, role, is_active, registered_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (id) DO UPDATE SET role=$2, is_active=$3;`
	_, err := execSQL(ctx, r.pool, qx, q, user.ID, user.Role, user.IsActive, user.RegisteredAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
