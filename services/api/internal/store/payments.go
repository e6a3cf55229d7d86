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
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentFailed   = "FAILED"
	PaymentRefunded = "REFUNDED"
)

type Payment struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	SubscriptionID uuid.UUID  `json:"subscription_id"`
	AmountCents    int        `json:"amount_cents"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	Provider       *string    `json:"provider,omitempty"`
	ExternalID     *string    `json:"external_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type PaymentStore struct {
	DB *pgxpool.Pool
}

const paymentCols = `id, user_id, subscription_id, amount_cents, currency, status, paid_at, provider, external_id, created_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.UserID, &p.SubscriptionID, &p.AmountCents, &p.Currency,
		&p.Status, &p.PaidAt, &p.Provider, &p.ExternalID, &p.CreatedAt)
	return p, err
}

type PaymentFilter struct {
	UserID *uuid.UUID
	Status string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

func (s PaymentStore) ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error) {
	q := `SELECT ` + paymentCols + ` FROM payments WHERE 1=1`
	var args []any
	next := func() string { return "$" + strconv.Itoa(len(args)) }

	if f.UserID != nil {
		args = append(args, *f.UserID)
		q += ` AND user_id = ` + next()
	}
	if f.Status != "" {
		args = append(args, f.Status)
		q += ` AND status = ` + next()
	}
	if f.From != nil {
		args = append(args, *f.From)
		q += ` AND created_at >= ` + next()
	}
	if f.To != nil {
		args = append(args, *f.To)
		q += ` AND created_at <= ` + next()
	}

	args = append(args, f.Limit)
	q += ` ORDER BY created_at DESC LIMIT ` + next()
	args = append(args, f.Offset)
	q += ` OFFSET ` + next()

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetPaymentStatus transitions a payment; PAID stamps paid_at once.
func (s PaymentStore) SetPaymentStatus(ctx context.Context, id uuid.UUID, status string, now time.Time) (Payment, error) {
	q := `
UPDATE payments SET
  status  = $2,
  paid_at = CASE WHEN $2 = 'PAID' AND paid_at IS NULL THEN $3 ELSE paid_at END
WHERE id = $1
RETURNING ` + paymentCols + `;
`
	p, err := scanPayment(s.DB.QueryRow(ctx, q, id, status, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		if isPgErr(err, pgCheckViolation) {
			return Payment{}, ErrConflict
		}
		return Payment{}, err
	}
	return p, nil
}
