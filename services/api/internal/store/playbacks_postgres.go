package store

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPlaybackStore is the production Postgres-backed implementation.
type PostgresPlaybackStore struct {
	db *pgxpool.Pool
}

func NewPostgresPlaybackStore(db *pgxpool.Pool) *PostgresPlaybackStore {
	return &PostgresPlaybackStore{db: db}
}

const sessionCols = `id, profile_id, content_id, episode_id, device, started_at, ended_at, last_seen_at, progress_seconds, duration_seconds, completed, created_at, updated_at`

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.ProfileID, &s.ContentID, &s.EpisodeID, &s.Device, &s.StartedAt,
		&s.EndedAt, &s.LastSeenAt, &s.ProgressSeconds, &s.DurationSeconds, &s.Completed,
		&s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *PostgresPlaybackStore) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	s, err := scanSession(r.db.QueryRow(ctx, `SELECT `+sessionCols+` FROM playbacks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

func (r *PostgresPlaybackStore) FindOpen(ctx context.Context, profileID, contentID uuid.UUID, episodeID *uuid.UUID) (Session, error) {
	q := `
SELECT ` + sessionCols + ` FROM playbacks
WHERE profile_id = $1 AND content_id = $2 AND episode_id IS NOT DISTINCT FROM $3 AND completed = false
ORDER BY created_at DESC LIMIT 1`
	s, err := scanSession(r.db.QueryRow(ctx, q, profileID, contentID, episodeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

func (r *PostgresPlaybackStore) FindLatest(ctx context.Context, profileID, contentID uuid.UUID, episodeID *uuid.UUID) (Session, error) {
	q := `
SELECT ` + sessionCols + ` FROM playbacks
WHERE profile_id = $1 AND content_id = $2 AND episode_id IS NOT DISTINCT FROM $3
ORDER BY created_at DESC LIMIT 1`
	s, err := scanSession(r.db.QueryRow(ctx, q, profileID, contentID, episodeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return s, nil
}

func (r *PostgresPlaybackStore) Insert(ctx context.Context, s Session) (Session, error) {
	q := `
INSERT INTO playbacks (profile_id, content_id, episode_id, device, started_at, last_seen_at, progress_seconds, duration_seconds, completed)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + sessionCols + `;
`
	out, err := scanSession(r.db.QueryRow(ctx, q, s.ProfileID, s.ContentID, s.EpisodeID, s.Device,
		s.StartedAt, s.LastSeenAt, s.ProgressSeconds, s.DurationSeconds, s.Completed))
	if err != nil {
		if isPgErr(err, pgUniqueViolation) {
			return Session{}, ErrConflict
		}
		if isPgErr(err, pgForeignKeyViolation) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return out, nil
}

func (r *PostgresPlaybackStore) Update(ctx context.Context, s Session) (Session, error) {
	q := `
UPDATE playbacks SET
  device           = $2,
  started_at       = $3,
  ended_at         = $4,
  last_seen_at     = $5,
  progress_seconds = $6,
  duration_seconds = $7,
  completed        = $8,
  updated_at       = now()
WHERE id = $1
RETURNING ` + sessionCols + `;
`
	out, err := scanSession(r.db.QueryRow(ctx, q, s.ID, s.Device, s.StartedAt, s.EndedAt,
		s.LastSeenAt, s.ProgressSeconds, s.DurationSeconds, s.Completed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, err
	}
	return out, nil
}

func (r *PostgresPlaybackStore) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.db.Exec(ctx, `DELETE FROM playbacks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresPlaybackStore) List(ctx context.Context, f PlaybackFilter) ([]Session, error) {
	q := `SELECT ` + sessionCols + ` FROM playbacks WHERE 1=1`
	var args []any
	next := func() string { return "$" + strconv.Itoa(len(args)) }

	if !f.All {
		if len(f.ProfileIDs) == 0 {
			return nil, nil
		}
		args = append(args, f.ProfileIDs)
		q += ` AND profile_id = ANY(` + next() + `)`
	}
	if f.Completed != nil {
		args = append(args, *f.Completed)
		q += ` AND completed = ` + next()
	}
	if f.Device != "" {
		args = append(args, "%"+f.Device+"%")
		q += ` AND device ILIKE ` + next()
	}
	if f.ContentID != nil {
		args = append(args, *f.ContentID)
		q += ` AND content_id = ` + next()
	}
	if f.EpisodeID != nil {
		args = append(args, *f.EpisodeID)
		q += ` AND episode_id = ` + next()
	}
	if f.StartedFrom != nil {
		args = append(args, *f.StartedFrom)
		q += ` AND started_at >= ` + next()
	}
	if f.StartedTo != nil {
		args = append(args, *f.StartedTo)
		q += ` AND started_at <= ` + next()
	}
	if f.EndedFrom != nil {
		args = append(args, *f.EndedFrom)
		q += ` AND ended_at IS NOT NULL AND ended_at >= ` + next()
	}
	if f.EndedTo != nil {
		args = append(args, *f.EndedTo)
		q += ` AND ended_at IS NOT NULL AND ended_at <= ` + next()
	}
	if f.MinProgress != nil {
		args = append(args, *f.MinProgress)
		q += ` AND progress_seconds >= ` + next()
	}
	if f.MaxProgress != nil {
		args = append(args, *f.MaxProgress)
		q += ` AND progress_seconds <= ` + next()
	}

	q += ` ORDER BY started_at DESC, created_at DESC`
	args = append(args, f.Limit)
	q += ` LIMIT ` + next()
	args = append(args, f.Offset)
	q += ` OFFSET ` + next()

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
