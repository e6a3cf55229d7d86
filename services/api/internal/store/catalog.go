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
	ContentMovie  = "MOVIE"
	ContentSeries = "SERIES"
	ContentVideos = "VIDEOS"
)

type Content struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Type            string     `json:"type"`
	Description     *string    `json:"description,omitempty"`
	ReleaseYear     *int       `json:"release_year,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	AgeRating       *string    `json:"age_rating,omitempty"`
	Genres          *string    `json:"genres,omitempty"`
	VideoURL        *string    `json:"video_url,omitempty"`
	Thumbnail       *string    `json:"thumbnail,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

type Episode struct {
	ID              uuid.UUID  `json:"id"`
	ContentID       uuid.UUID  `json:"content_id"`
	SeasonNumber    int        `json:"season_number"`
	EpisodeNumber   int        `json:"episode_number"`
	Title           string     `json:"title"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	ReleaseDate     *time.Time `json:"release_date,omitempty"`
	VideoURL        *string    `json:"video_url,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type CatalogStore struct {
	DB *pgxpool.Pool
}

const contentCols = `id, title, type, description, release_year, duration_seconds, age_rating, genres, video_url, thumbnail, created_at, updated_at`
const episodeCols = `id, content_id, season_number, episode_number, title, duration_seconds, release_date, video_url, created_at`

func scanContent(row pgx.Row) (Content, error) {
	var c Content
	err := row.Scan(&c.ID, &c.Title, &c.Type, &c.Description, &c.ReleaseYear, &c.DurationSeconds,
		&c.AgeRating, &c.Genres, &c.VideoURL, &c.Thumbnail, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func scanEpisode(row pgx.Row) (Episode, error) {
	var e Episode
	err := row.Scan(&e.ID, &e.ContentID, &e.SeasonNumber, &e.EpisodeNumber, &e.Title,
		&e.DurationSeconds, &e.ReleaseDate, &e.VideoURL, &e.CreatedAt)
	return e, err
}

type ContentFilter struct {
	Query       string // matches title or description, case-insensitive
	Type        string
	Genre       string
	YearFrom    *int
	YearTo      *int
	MinDuration *int
	MaxDuration *int
	AgeRating   string
	OrderBy     string // title | release_year | created_at
	OrderDir    string // asc | desc
	Limit       int
	Offset      int
}

var contentOrderCols = map[string]string{
	"title":        "title",
	"release_year": "release_year",
	"created_at":   "created_at",
}

func (s CatalogStore) ListContents(ctx context.Context, f ContentFilter) ([]Content, error) {
	q := `SELECT ` + contentCols + ` FROM contents WHERE 1=1`
	var args []any
	next := func() string { return "$" + strconv.Itoa(len(args)) }

	if f.Query != "" {
		args = append(args, "%"+f.Query+"%")
		q += ` AND (title ILIKE ` + next() + ` OR description ILIKE ` + next() + `)`
	}
	if f.Type != "" {
		args = append(args, f.Type)
		q += ` AND type = ` + next()
	}
	if f.Genre != "" {
		args = append(args, "%"+f.Genre+"%")
		q += ` AND genres ILIKE ` + next()
	}
	if f.YearFrom != nil {
		args = append(args, *f.YearFrom)
		q += ` AND release_year >= ` + next()
	}
	if f.YearTo != nil {
		args = append(args, *f.YearTo)
		q += ` AND release_year <= ` + next()
	}
	if f.MinDuration != nil {
		args = append(args, *f.MinDuration)
		q += ` AND duration_seconds >= ` + next()
	}
	if f.MaxDuration != nil {
		args = append(args, *f.MaxDuration)
		q += ` AND duration_seconds <= ` + next()
	}
	if f.AgeRating != "" {
		args = append(args, f.AgeRating)
		q += ` AND age_rating = ` + next()
	}

	// Order column comes from a whitelist, never from user input directly.
	col, ok := contentOrderCols[f.OrderBy]
	if !ok {
		col = "created_at"
	}
	dir := "DESC"
	if f.OrderDir == "asc" {
		dir = "ASC"
	}
	q += ` ORDER BY ` + col + ` ` + dir

	args = append(args, f.Limit)
	q += ` LIMIT ` + next()
	args = append(args, f.Offset)
	q += ` OFFSET ` + next()

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s CatalogStore) GetContent(ctx context.Context, id uuid.UUID) (Content, error) {
	c, err := scanContent(s.DB.QueryRow(ctx, `SELECT `+contentCols+` FROM contents WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Content{}, ErrNotFound
		}
		return Content{}, err
	}
	return c, nil
}

type ContentParams struct {
	Title           string
	Type            string
	Description     *string
	ReleaseYear     *int
	DurationSeconds *int
	AgeRating       *string
	Genres          *string
	VideoURL        *string
	Thumbnail       *string
}

func (s CatalogStore) CreateContent(ctx context.Context, p ContentParams) (Content, error) {
	q := `
INSERT INTO contents (title, type, description, release_year, duration_seconds, age_rating, genres, video_url, thumbnail)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + contentCols + `;
`
	c, err := scanContent(s.DB.QueryRow(ctx, q, p.Title, p.Type, p.Description, p.ReleaseYear,
		p.DurationSeconds, p.AgeRating, p.Genres, p.VideoURL, p.Thumbnail))
	if err != nil {
		return Content{}, err
	}
	return c, nil
}

type UpdateContentParams struct {
	Title           *string
	Type            *string
	Description     *string
	ReleaseYear     *int
	DurationSeconds *int
	AgeRating       *string
	Genres          *string
	VideoURL        *string
	Thumbnail       *string
}

func (s CatalogStore) UpdateContent(ctx context.Context, id uuid.UUID, p UpdateContentParams) (Content, error) {
	q := `
UPDATE contents SET
  title            = COALESCE($2, title),
  type             = COALESCE($3, type),
  description      = COALESCE($4, description),
  release_year     = COALESCE($5, release_year),
  duration_seconds = COALESCE($6, duration_seconds),
  age_rating       = COALESCE($7, age_rating),
  genres           = COALESCE($8, genres),
  video_url        = COALESCE($9, video_url),
  thumbnail        = COALESCE($10, thumbnail),
  updated_at       = now()
WHERE id = $1
RETURNING ` + contentCols + `;
`
	c, err := scanContent(s.DB.QueryRow(ctx, q, id, p.Title, p.Type, p.Description, p.ReleaseYear,
		p.DurationSeconds, p.AgeRating, p.Genres, p.VideoURL, p.Thumbnail))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Content{}, ErrNotFound
		}
		return Content{}, err
	}
	return c, nil
}

func (s CatalogStore) DeleteContent(ctx context.Context, id uuid.UUID) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM contents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ── Episodes ───────────────────────────────────────────────────────────────

func (s CatalogStore) ListEpisodes(ctx context.Context, contentID uuid.UUID) ([]Episode, error) {
	q := `SELECT ` + episodeCols + ` FROM episodes WHERE content_id = $1 ORDER BY season_number, episode_number`
	rows, err := s.DB.Query(ctx, q, contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s CatalogStore) GetEpisode(ctx context.Context, id uuid.UUID) (Episode, error) {
	e, err := scanEpisode(s.DB.QueryRow(ctx, `SELECT `+episodeCols+` FROM episodes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Episode{}, ErrNotFound
		}
		return Episode{}, err
	}
	return e, nil
}

// ContentIDForEpisode resolves the owning content of an episode.
// Playback start uses this when only an episode id is supplied.
func (s CatalogStore) ContentIDForEpisode(ctx context.Context, episodeID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.DB.QueryRow(ctx, `SELECT content_id FROM episodes WHERE id = $1`, episodeID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNotFound
		}
		return uuid.Nil, err
	}
	return id, nil
}

type EpisodeParams struct {
	ContentID       uuid.UUID
	SeasonNumber    int
	EpisodeNumber   int
	Title           string
	DurationSeconds *int
	ReleaseDate     *time.Time
	VideoURL        *string
}

func (s CatalogStore) CreateEpisode(ctx context.Context, p EpisodeParams) (Episode, error) {
	q := `
INSERT INTO episodes (content_id, season_number, episode_number, title, duration_seconds, release_date, video_url)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + episodeCols + `;
`
	e, err := scanEpisode(s.DB.QueryRow(ctx, q, p.ContentID, p.SeasonNumber, p.EpisodeNumber,
		p.Title, p.DurationSeconds, p.ReleaseDate, p.VideoURL))
	if err != nil {
		if isPgErr(err, pgUniqueViolation) {
			return Episode{}, ErrConflict
		}
		if isPgErr(err, pgForeignKeyViolation) {
			return Episode{}, ErrNotFound
		}
		return Episode{}, err
	}
	return e, nil
}

type UpdateEpisodeParams struct {
	SeasonNumber    *int
	EpisodeNumber   *int
	Title           *string
	DurationSeconds *int
	ReleaseDate     *time.Time
	VideoURL        *string
}

func (s CatalogStore) UpdateEpisode(ctx context.Context, id uuid.UUID, p UpdateEpisodeParams) (Episode, error) {
	q := `
UPDATE episodes SET
  season_number    = COALESCE($2, season_number),
  episode_number   = COALESCE($3, episode_number),
  title            = COALESCE($4, title),
  duration_seconds = COALESCE($5, duration_seconds),
  release_date     = COALESCE($6, release_date),
  video_url        = COALESCE($7, video_url)
WHERE id = $1
RETURNING ` + episodeCols + `;
`
	e, err := scanEpisode(s.DB.QueryRow(ctx, q, id, p.SeasonNumber, p.EpisodeNumber, p.Title,
		p.DurationSeconds, p.ReleaseDate, p.VideoURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Episode{}, ErrNotFound
		}
		if isPgErr(err, pgUniqueViolation) {
			return Episode{}, ErrConflict
		}
		return Episode{}, err
	}
	return e, nil
}

func (s CatalogStore) DeleteEpisode(ctx context.Context, id uuid.UUID) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM episodes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
