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

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subColumns = `id, user_id, plan_id, status, provider_subscription_id, current_period_start, current_period_end, canceled_at, created_at, updated_at`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	s := &model.Subscription{}
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.Status, &s.ProviderSubscriptionID, &s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.CanceledAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *subscriptionRepo) Save(ctx context.Context, qx any, sub *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (` + subColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (provider_subscription_id) DO NOTHING;`
	_, err := execSQL(ctx, r.pool, qx, q, sub.ID, sub.UserID, sub.PlanID, sub.Status, sub.ProviderSubscriptionID, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CanceledAt, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) FindByID(ctx context.Context, qx any, id string) (*model.Subscription, error) {
	const q = `SELECT ` + subColumns + ` FROM subscriptions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindByProviderSubscriptionID(ctx context.Context, qx any, providerSubID string) (*model.Subscription, error) {
	const q = `SELECT ` + subColumns + ` FROM subscriptions WHERE provider_subscription_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, qx, q, providerSubID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) FindCurrentByUser(ctx context.Context, qx any, userID string) (*model.Subscription, error) {
	const q = `SELECT ` + subColumns + ` FROM subscriptions WHERE user_id=$1 ORDER BY current_period_end DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, qx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

// UpdateStatusIf is the idempotent transition primitive: the WHERE clause on
// the current status makes replayed webhook deliveries no-ops.
func (r *subscriptionRepo) UpdateStatusIf(ctx context.Context, qx any, id string, from []model.SubscriptionStatus, to model.SubscriptionStatus, canceledAt *time.Time, periodStart, periodEnd *time.Time) (bool, error) {
	const q = `
UPDATE subscriptions
   SET status = $2,
       canceled_at = COALESCE($3, canceled_at),
       current_period_start = COALESCE($4, current_period_start),
       current_period_end = COALESCE($5, current_period_end),
       updated_at = NOW()
 WHERE id = $1
   AND status = ANY($6);`
	fromStr := make([]string, len(from))
	for i, s := range from {
		fromStr[i] = string(s)
	}
	cmd, err := execSQL(ctx, r.pool, qx, q, id, to, canceledAt, periodStart, periodEnd, fromStr)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *subscriptionRepo) ListActiveEndedBefore(ctx context.Context, qx any, before time.Time, limit int) ([]*model.Subscription, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + subColumns + ` FROM subscriptions WHERE status IN ('active','past_due','canceled') AND current_period_end < $1 ORDER BY current_period_end ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, qx, q, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

var _ repository.SubscriptionPlanRepository = (*planRepo)(nil)

type planRepo struct{ pool *pgxpool.Pool }

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

const planColumns = `id, name, price_cents, currency, interval_days, provider_plan_id`

func (r *planRepo) Save(ctx context.Context, qx any, plan *model.SubscriptionPlan) error {
	const q = `
INSERT INTO subscription_plans (` + planColumns + `)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  name=$2, price_cents=$3, currency=$4, interval_days=$5, provider_plan_id=$6;`
	_, err := execSQL(ctx, r.pool, qx, q, plan.ID, plan.Name, plan.PriceCents, plan.Currency, plan.IntervalDays, plan.ProviderPlanID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *planRepo) FindByID(ctx context.Context, qx any, id string) (*model.SubscriptionPlan, error) {
	const q = `SELECT ` + planColumns + ` FROM subscription_plans WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, id)
	if err != nil {
		return nil, err
	}
	p := &model.SubscriptionPlan{}
	if err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Currency, &p.IntervalDays, &p.ProviderPlanID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

func (r *planRepo) ListAll(ctx context.Context, qx any) ([]*model.SubscriptionPlan, error) {
	const q = `SELECT ` + planColumns + ` FROM subscription_plans ORDER BY price_cents;`
	rows, err := queryRows(ctx, r.pool, qx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.SubscriptionPlan
	for rows.Next() {
		p := &model.SubscriptionPlan{}
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Currency, &p.IntervalDays, &p.ProviderPlanID); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
