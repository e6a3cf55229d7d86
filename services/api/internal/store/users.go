package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User is an account holder. Profiles hang off users; everything a
// viewer does happens under a profile.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type UserStore struct {
	DB *pgxpool.Pool
}

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	ProfileName  string
}

// CreateUser inserts the user and their default profile in one transaction.
func (s UserStore) CreateUser(ctx context.Context, p CreateUserParams) (User, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var u User
	q := `
INSERT INTO users (name, email, password_hash)
VALUES ($1, $2, $3)
RETURNING id, name, email, role, active, created_at;
`
	err = tx.QueryRow(ctx, q, p.Name, p.Email, p.PasswordHash).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Active, &u.CreatedAt)
	if err != nil {
		if isPgErr(err, pgUniqueViolation) {
			return User{}, ErrConflict
		}
		return User{}, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO profiles (user_id, name) VALUES ($1, $2)`, u.ID, p.ProfileName)
	if err != nil {
		return User{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, err
	}
	return u, nil
}

type UserRow struct {
	User         User
	PasswordHash string
}

func (s UserStore) FindUserByEmail(ctx context.Context, email string) (UserRow, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return UserRow{}, ErrNotFound
	}

	q := `
SELECT id, name, email, role, active, password_hash, created_at, updated_at
FROM users
WHERE lower(email) = lower($1)
LIMIT 1;
`
	var row UserRow
	err := s.DB.QueryRow(ctx, q, email).Scan(
		&row.User.ID, &row.User.Name, &row.User.Email, &row.User.Role,
		&row.User.Active, &row.PasswordHash, &row.User.CreatedAt, &row.User.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserRow{}, ErrNotFound
		}
		return UserRow{}, err
	}
	return row, nil
}

func (s UserStore) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	q := `SELECT id, name, email, role, active, created_at, updated_at FROM users WHERE id = $1`
	var u User
	err := s.DB.QueryRow(ctx, q, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

type UpdateUserParams struct {
	Name         *string
	PasswordHash *string
	Role         *string
	Active       *bool
}

// UpdateUser applies the non-nil fields and returns the updated row.
func (s UserStore) UpdateUser(ctx context.Context, id uuid.UUID, p UpdateUserParams) (User, error) {
	q := `
UPDATE users SET
  name          = COALESCE($2, name),
  password_hash = COALESCE($3, password_hash),
  role          = COALESCE($4, role),
  active        = COALESCE($5, active),
  updated_at    = now()
WHERE id = $1
RETURNING id, name, email, role, active, created_at, updated_at;
`
	var u User
	err := s.DB.QueryRow(ctx, q, id, p.Name, p.PasswordHash, p.Role, p.Active).
		Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (s UserStore) DeleteUser(ctx context.Context, id uuid.UUID) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s UserStore) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	q := `
SELECT id, name, email, role, active, created_at, updated_at
FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2;
`
	rows, err := s.DB.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
