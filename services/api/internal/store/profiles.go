package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Profile is a viewer identity under a user account.
type Profile struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Name           string     `json:"name"`
	Avatar         *string    `json:"avatar,omitempty"`
	MaturityRating *string    `json:"maturity_rating,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

type ProfileStore struct {
	DB *pgxpool.Pool
}

const profileCols = `id, user_id, name, avatar, maturity_rating, created_at, updated_at`

// OwnedProfile is the single ownership gate: it returns the profile only
// when it exists AND belongs to userID, otherwise ErrNotFound. Callers
// must not distinguish the two cases.
func (s ProfileStore) OwnedProfile(ctx context.Context, userID, profileID uuid.UUID) (Profile, error) {
	q := `SELECT ` + profileCols + ` FROM profiles WHERE id = $1 AND user_id = $2`
	var p Profile
	err := s.DB.QueryRow(ctx, q, profileID, userID).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Avatar, &p.MaturityRating, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

// GetProfile looks a profile up by id alone, with no ownership check.
// Admin surfaces only.
func (s ProfileStore) GetProfile(ctx context.Context, profileID uuid.UUID) (Profile, error) {
	q := `SELECT ` + profileCols + ` FROM profiles WHERE id = $1`
	var p Profile
	err := s.DB.QueryRow(ctx, q, profileID).
		Scan(&p.ID, &p.UserID, &p.Name, &p.Avatar, &p.MaturityRating, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

// OwnedProfileIDs returns the ids of every profile the user owns.
func (s ProfileStore) OwnedProfileIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.DB.Query(ctx, `SELECT id FROM profiles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s ProfileStore) ListProfiles(ctx context.Context, userID uuid.UUID) ([]Profile, error) {
	q := `SELECT ` + profileCols + ` FROM profiles WHERE user_id = $1 ORDER BY created_at ASC`
	rows, err := s.DB.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Avatar, &p.MaturityRating, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s ProfileStore) CountProfiles(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `SELECT count(*) FROM profiles WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

type CreateProfileParams struct {
	UserID         uuid.UUID
	Name           string
	Avatar         *string
	MaturityRating *string
}

func (s ProfileStore) CreateProfile(ctx context.Context, p CreateProfileParams) (Profile, error) {
	q := `
INSERT INTO profiles (user_id, name, avatar, maturity_rating)
VALUES ($1, $2, $3, $4)
RETURNING ` + profileCols + `;
`
	var out Profile
	err := s.DB.QueryRow(ctx, q, p.UserID, p.Name, p.Avatar, p.MaturityRating).
		Scan(&out.ID, &out.UserID, &out.Name, &out.Avatar, &out.MaturityRating, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return Profile{}, err
	}
	return out, nil
}

type UpdateProfileParams struct {
	Name           *string
	Avatar         *string
	MaturityRating *string
}

func (s ProfileStore) UpdateProfile(ctx context.Context, userID, profileID uuid.UUID, p UpdateProfileParams) (Profile, error) {
	q := `
UPDATE profiles SET
  name            = COALESCE($3, name),
  avatar          = COALESCE($4, avatar),
  maturity_rating = COALESCE($5, maturity_rating),
  updated_at      = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + profileCols + `;
`
	var out Profile
	err := s.DB.QueryRow(ctx, q, profileID, userID, p.Name, p.Avatar, p.MaturityRating).
		Scan(&out.ID, &out.UserID, &out.Name, &out.Avatar, &out.MaturityRating, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return out, nil
}

func (s ProfileStore) DeleteProfile(ctx context.Context, userID, profileID uuid.UUID) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM profiles WHERE id = $1 AND user_id = $2`, profileID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
