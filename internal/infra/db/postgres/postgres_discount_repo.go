package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"audio-commerce/internal/domain"
	"audio-commerce/internal/domain/model"
	"audio-commerce/internal/domain/ports/repository"
)

var _ repository.DiscountRepository = (*discountRepo)(nil)

type discountRepo struct{ pool *pgxpool.Pool }

func NewDiscountRepo(pool *pgxpool.Pool) *discountRepo {
	return &discountRepo{pool: pool}
}

const discountColumns = `id, code, type, value, min_purchase_cents, max_uses_total, max_uses_per_user, valid_from, valid_until, applies_to_purchases, applies_to_subscriptions, used_count, is_active, created_at, updated_at`

func scanDiscount(row pgx.Row) (*model.DiscountCode, error) {
	d := &model.DiscountCode{}
	err := row.Scan(&d.ID, &d.Code, &d.Type, &d.Value, &d.MinPurchaseCents, &d.MaxUsesTotal, &d.MaxUsesPerUser, &d.ValidFrom, &d.ValidUntil, &d.AppliesToPurchases, &d.AppliesToSubscriptions, &d.UsedCount, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return d, nil
}

func (r *discountRepo) Save(ctx context.Context, qx any, code *model.DiscountCode) error {
	const q = `
INSERT INTO discount_codes (` + discountColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
  code=$2, type=$3, value=$4, min_purchase_cents=$5, max_uses_total=$6,
  max_uses_per_user=$7, valid_from=$8, valid_until=$9,
  applies_to_purchases=$10, applies_to_subscriptions=$11,
  is_active=$13, updated_at=NOW();`
	_, err := execSQL(ctx, r.pool, qx, q,
		code.ID, strings.ToLower(code.Code), code.Type, code.Value, code.MinPurchaseCents,
		code.MaxUsesTotal, code.MaxUsesPerUser, code.ValidFrom, code.ValidUntil,
		code.AppliesToPurchases, code.AppliesToSubscriptions, code.UsedCount,
		code.IsActive, code.CreatedAt, code.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *discountRepo) FindByID(ctx context.Context, qx any, id string) (*model.DiscountCode, error) {
	const q = `SELECT ` + discountColumns + ` FROM discount_codes WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	return scanDiscount(row)
}

func (r *discountRepo) FindByCode(ctx context.Context, qx any, code string) (*model.DiscountCode, error) {
	const q = `SELECT ` + discountColumns + ` FROM discount_codes WHERE code = LOWER($1);`
	row, err := pickRow(ctx, r.pool, qx, q, code)
	if err != nil {
		return nil, err
	}
	return scanDiscount(row)
}

func (r *discountRepo) ListAll(ctx context.Context, qx any) ([]*model.DiscountCode, error) {
	const q = `SELECT ` + discountColumns + ` FROM discount_codes ORDER BY created_at DESC;`
	rows, err := queryRows(ctx, r.pool, qx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.DiscountCode
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *discountRepo) Deactivate(ctx context.Context, qx any, id string) error {
	const q = `UPDATE discount_codes SET is_active=FALSE, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, qx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *discountRepo) CountUsagesByUser(ctx context.Context, qx any, discountCodeID, userID string) (int, error) {
	const q = `SELECT COUNT(*) FROM discount_code_usages WHERE discount_code_id=$1 AND user_id=$2;`
	row, err := pickRow(ctx, r.pool, qx, q, discountCodeID, userID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *discountRepo) InsertUsage(ctx context.Context, qx any, usage *model.DiscountCodeUsage) error {
	const q = `
INSERT INTO discount_code_usages (id, discount_code_id, user_id, purchase_id, discount_amount_cents, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`
	_, err := execSQL(ctx, r.pool, qx, q, usage.ID, usage.DiscountCodeID, usage.UserID, usage.PurchaseID, usage.DiscountAmountCents, usage.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// IncrementUsedCount is the concurrency guard for the global cap: the
// conditional UPDATE lets at most max_uses_total increments succeed even
// under concurrent redemptions.
func (r *discountRepo) IncrementUsedCount(ctx context.Context, qx any, discountCodeID string) (bool, error) {
	const q = `
UPDATE discount_codes
   SET used_count = used_count + 1, updated_at = NOW()
 WHERE id = $1
   AND (max_uses_total <= 0 OR used_count < max_uses_total);`
	cmd, err := execSQL(ctx, r.pool, qx, q, discountCodeID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
