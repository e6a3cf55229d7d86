package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Plan struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	PriceCents   int       `json:"price_cents"`
	Currency     string    `json:"currency"`
	MaxProfiles  int       `json:"max_profiles"`
	MaxDevices   int       `json:"max_devices"`
	VideoQuality string    `json:"video_quality"`
	CreatedAt    time.Time `json:"created_at"`
}

type PlanStore struct {
	DB *pgxpool.Pool
}

const planCols = `id, name, price_cents, currency, max_profiles, max_devices, video_quality, created_at`

func (s PlanStore) ListPlans(ctx context.Context) ([]Plan, error) {
	rows, err := s.DB.Query(ctx, `SELECT `+planCols+` FROM plans ORDER BY price_cents ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		var p Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Currency, &p.MaxProfiles, &p.MaxDevices, &p.VideoQuality, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s PlanStore) GetPlan(ctx context.Context, id uuid.UUID) (Plan, error) {
	var p Plan
	err := s.DB.QueryRow(ctx, `SELECT `+planCols+` FROM plans WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.PriceCents, &p.Currency, &p.MaxProfiles, &p.MaxDevices, &p.VideoQuality, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Plan{}, ErrNotFound
		}
		return Plan{}, err
	}
	return p, nil
}

type PlanParams struct {
	Name         string
	PriceCents   int
	Currency     string
	MaxProfiles  int
	MaxDevices   int
	VideoQuality string
}

func (s PlanStore) CreatePlan(ctx context.Context, p PlanParams) (Plan, error) {
	q := `
INSERT INTO plans (name, price_cents, currency, max_profiles, max_devices, video_quality)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + planCols + `;
`
	var out Plan
	err := s.DB.QueryRow(ctx, q, p.Name, p.PriceCents, p.Currency, p.MaxProfiles, p.MaxDevices, p.VideoQuality).
		Scan(&out.ID, &out.Name, &out.PriceCents, &out.Currency, &out.MaxProfiles, &out.MaxDevices, &out.VideoQuality, &out.CreatedAt)
	if err != nil {
		if isPgErr(err, pgUniqueViolation) {
			return Plan{}, ErrConflict
		}
		return Plan{}, err
	}
	return out, nil
}

type UpdatePlanParams struct {
	Name         *string
	PriceCents   *int
	Currency     *string
	MaxProfiles  *int
	MaxDevices   *int
	VideoQuality *string
}

func (s PlanStore) UpdatePlan(ctx context.Context, id uuid.UUID, p UpdatePlanParams) (Plan, error) {
	q := `
UPDATE plans SET
  name          = COALESCE($2, name),
  price_cents   = COALESCE($3, price_cents),
  currency      = COALESCE($4, currency),
  max_profiles  = COALESCE($5, max_profiles),
  max_devices   = COALESCE($6, max_devices),
  video_quality = COALESCE($7, video_quality)
WHERE id = $1
RETURNING ` + planCols + `;
`
	var out Plan
	err := s.DB.QueryRow(ctx, q, id, p.Name, p.PriceCents, p.Currency, p.MaxProfiles, p.MaxDevices, p.VideoQuality).
		Scan(&out.ID, &out.Name, &out.PriceCents, &out.Currency, &out.MaxProfiles, &out.MaxDevices, &out.VideoQuality, &out.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Plan{}, ErrNotFound
		}
		if isPgErr(err, pgUniqueViolation) {
			return Plan{}, ErrConflict
		}
		return Plan{}, err
	}
	return out, nil
}

// DeletePlan fails with ErrConflict while subscriptions still reference the plan.
func (s PlanStore) DeletePlan(ctx context.Context, id uuid.UUID) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		if isPgErr(err, pgForeignKeyViolation) {
			return ErrConflict
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
