package store

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WatchlistItem struct {
	ID        uuid.UUID `json:"id"`
	ProfileID uuid.UUID `json:"profile_id"`
	ContentID uuid.UUID `json:"content_id"`
	AddedAt   time.Time `json:"added_at"`
}

type WatchlistStore struct {
	DB *pgxpool.Pool
}

type WatchlistFilter struct {
	ProfileIDs []uuid.UUID // restricts to profiles the caller owns
	ContentID  *uuid.UUID
	AddedFrom  *time.Time
	AddedTo    *time.Time
	Limit      int
	Offset     int
}

func (s WatchlistStore) ListItems(ctx context.Context, f WatchlistFilter) ([]WatchlistItem, error) {
	if len(f.ProfileIDs) == 0 {
		return nil, nil
	}

	q := `SELECT id, profile_id, content_id, added_at FROM watchlist_items WHERE profile_id = ANY($1)`
	args := []any{f.ProfileIDs}
	next := func() string { return "$" + strconv.Itoa(len(args)) }

	if f.ContentID != nil {
		args = append(args, *f.ContentID)
		q += ` AND content_id = ` + next()
	}
	if f.AddedFrom != nil {
		args = append(args, *f.AddedFrom)
		q += ` AND added_at >= ` + next()
	}
	if f.AddedTo != nil {
		args = append(args, *f.AddedTo)
		q += ` AND added_at <= ` + next()
	}

	args = append(args, f.Limit)
	q += ` ORDER BY added_at DESC LIMIT ` + next()
	args = append(args, f.Offset)
	q += ` OFFSET ` + next()

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WatchlistItem
	for rows.Next() {
		var it WatchlistItem
		if err := rows.Scan(&it.ID, &it.ProfileID, &it.ContentID, &it.AddedAt); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// AddItem inserts a watchlist entry. Duplicates for the same
// (profile, content) pair return ErrConflict; an unknown content id
// returns ErrNotFound.
func (s WatchlistStore) AddItem(ctx context.Context, profileID, contentID uuid.UUID) (WatchlistItem, error) {
	q := `
INSERT INTO watchlist_items (profile_id, content_id)
VALUES ($1, $2)
RETURNING id, profile_id, content_id, added_at;
`
	var it WatchlistItem
	err := s.DB.QueryRow(ctx, q, profileID, contentID).Scan(&it.ID, &it.ProfileID, &it.ContentID, &it.AddedAt)
	if err != nil {
		if isPgErr(err, pgUniqueViolation) {
			return WatchlistItem{}, ErrConflict
		}
		if isPgErr(err, pgForeignKeyViolation) {
			return WatchlistItem{}, ErrNotFound
		}
		return WatchlistItem{}, err
	}
	return it, nil
}

// RemoveItem deletes the item only when it belongs to one of the given profiles.
func (s WatchlistStore) RemoveItem(ctx context.Context, itemID uuid.UUID, profileIDs []uuid.UUID) error {
	ct, err := s.DB.Exec(ctx,
		`DELETE FROM watchlist_items WHERE id = $1 AND profile_id = ANY($2)`, itemID, profileIDs)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
