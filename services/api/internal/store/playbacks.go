package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is one durable playback row. There is at most one row per
// (profile, content, episode) tuple over time: starting again after
// completion reopens the same row instead of inserting a new one.
type Session struct {
	ID              uuid.UUID  `json:"id"`
	ProfileID       uuid.UUID  `json:"profile_id"`
	ContentID       uuid.UUID  `json:"content_id"`
	EpisodeID       *uuid.UUID `json:"episode_id,omitempty"`
	Device          string     `json:"device"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	LastSeenAt      *time.Time `json:"last_seen_at,omitempty"`
	ProgressSeconds int        `json:"progress_seconds"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	Completed       bool       `json:"completed"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// PlaybackFilter narrows List results. ProfileIDs is mandatory scoping:
// an empty slice yields nothing, never everything.
type PlaybackFilter struct {
	ProfileIDs  []uuid.UUID
	Completed   *bool
	Device      string // substring, case-insensitive
	ContentID   *uuid.UUID
	EpisodeID   *uuid.UUID
	StartedFrom *time.Time
	StartedTo   *time.Time
	EndedFrom   *time.Time
	EndedTo     *time.Time
	MinProgress *int
	MaxProgress *int
	Limit       int
	Offset      int
	All         bool // admin: ignore ProfileIDs scoping
}

// PlaybackStore persists playback sessions. Insert must surface the
// storage layer's open-session uniqueness violation as ErrConflict so
// the lifecycle manager can recover from concurrent creates.
type PlaybackStore interface {
	Get(ctx context.Context, id uuid.UUID) (Session, error)
	// FindOpen returns the newest non-completed session for the tuple.
	FindOpen(ctx context.Context, profileID, contentID uuid.UUID, episodeID *uuid.UUID) (Session, error)
	// FindLatest returns the newest session for the tuple regardless of state.
	FindLatest(ctx context.Context, profileID, contentID uuid.UUID, episodeID *uuid.UUID) (Session, error)
	Insert(ctx context.Context, s Session) (Session, error)
	Update(ctx context.Context, s Session) (Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f PlaybackFilter) ([]Session, error)
}
