package bootstrap

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PromoteAdmin sets role=admin for the user with the given email (case-insensitive).
func PromoteAdmin(ctx context.Context, db *pgxpool.Pool, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	q := `UPDATE users SET role='admin' WHERE lower(email)=lower($1);`
	_, err := db.Exec(ctx, q, email)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// users table might not exist before migrations in local dev.
		if pgErr.Code == "42P01" {
			return nil
		}
	}
	return err
}
