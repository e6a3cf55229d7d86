package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	SubscriptionActive   = "ACTIVE"
	SubscriptionCanceled = "CANCELED"
	SubscriptionPastDue  = "PAST_DUE"
)

type Subscription struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	PlanID     uuid.UUID  `json:"plan_id"`
	Status     string     `json:"status"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	RenewsAt   *time.Time `json:"renews_at,omitempty"`
	CanceledAt *time.Time `json:"canceled_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

type SubscriptionStore struct {
	DB *pgxpool.Pool
}

const subscriptionCols = `id, user_id, plan_id, status, start_date, end_date, renews_at, canceled_at, created_at`

func scanSubscription(row pgx.Row) (Subscription, error) {
	var sub Subscription
	err := row.Scan(&sub.ID, &sub.UserID, &sub.PlanID, &sub.Status, &sub.StartDate,
		&sub.EndDate, &sub.RenewsAt, &sub.CanceledAt, &sub.CreatedAt)
	return sub, err
}

// ActiveSubscription returns the user's ACTIVE subscription, if any.
func (s SubscriptionStore) ActiveSubscription(ctx context.Context, userID uuid.UUID) (Subscription, error) {
	q := `SELECT ` + subscriptionCols + ` FROM subscriptions WHERE user_id = $1 AND status = 'ACTIVE' LIMIT 1`
	sub, err := scanSubscription(s.DB.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, err
	}
	return sub, nil
}

// Subscribe creates an ACTIVE subscription plus its PENDING payment in one
// transaction. A second active subscription for the same user hits the
// partial unique index and surfaces as ErrConflict.
func (s SubscriptionStore) Subscribe(ctx context.Context, userID uuid.UUID, plan Plan, renewsAt time.Time) (Subscription, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return Subscription{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	q := `
INSERT INTO subscriptions (user_id, plan_id, renews_at)
VALUES ($1, $2, $3)
RETURNING ` + subscriptionCols + `;
`
	sub, err := scanSubscription(tx.QueryRow(ctx, q, userID, plan.ID, renewsAt))
	if err != nil {
		if isPgErr(err, pgUniqueViolation) {
			return Subscription{}, ErrConflict
		}
		if isPgErr(err, pgForeignKeyViolation) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, err
	}

	_, err = tx.Exec(ctx, `
INSERT INTO payments (user_id, subscription_id, amount_cents, currency)
VALUES ($1, $2, $3, $4)`, userID, sub.ID, plan.PriceCents, plan.Currency)
	if err != nil {
		return Subscription{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

// Cancel marks the active subscription CANCELED and stamps canceled_at/end_date.
func (s SubscriptionStore) Cancel(ctx context.Context, userID uuid.UUID, now time.Time) (Subscription, error) {
	q := `
UPDATE subscriptions SET status = 'CANCELED', canceled_at = $2, end_date = $2::date
WHERE user_id = $1 AND status = 'ACTIVE'
RETURNING ` + subscriptionCols + `;
`
	sub, err := scanSubscription(s.DB.QueryRow(ctx, q, userID, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Subscription{}, ErrNotFound
		}
		return Subscription{}, err
	}
	return sub, nil
}

// ListSubscriptions is the admin view; status filters when non-empty.
func (s SubscriptionStore) ListSubscriptions(ctx context.Context, status string, limit, offset int) ([]Subscription, error) {
	q := `SELECT ` + subscriptionCols + ` FROM subscriptions`
	args := []any{}
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
