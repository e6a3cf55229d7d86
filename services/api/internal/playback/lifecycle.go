// Package playback implements the playback session lifecycle: starting
// (resume / reopen / create), progress merging and completion. All
// decisions are made here; stores only persist the outcome.
package playback

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/streaming-platform/services/api/internal/store"
)

// ErrNoTarget is returned when a start request names neither a content
// nor an episode.
var ErrNoTarget = errors.New("either content_id or episode_id is required")

const (
	maxDeviceLen = 200
	// A session is considered fully watched at 95% of the known duration.
	completionThreshold = 0.95
)

// Outcome reports which branch a Start call took.
type Outcome string

const (
	OutcomeResumed  Outcome = "resumed"
	OutcomeReopened Outcome = "reopened"
	OutcomeCreated  Outcome = "created"
)

// EpisodeResolver maps an episode to its owning content.
type EpisodeResolver interface {
	ContentIDForEpisode(ctx context.Context, episodeID uuid.UUID) (uuid.UUID, error)
}

// Manager owns the lifecycle transitions of playback sessions.
type Manager struct {
	Sessions store.PlaybackStore
	Episodes EpisodeResolver
	Now      func() time.Time // defaults to time.Now().UTC
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now().UTC()
}

// NormalizeDevice lower-cases, trims and caps the free-text device label.
func NormalizeDevice(device string) string {
	device = strings.ToLower(strings.TrimSpace(device))
	if device == "" {
		return "unknown"
	}
	if len(device) > maxDeviceLen {
		device = device[:maxDeviceLen]
	}
	return device
}

type StartParams struct {
	ProfileID uuid.UUID
	ContentID *uuid.UUID
	EpisodeID *uuid.UUID
	Device    string
}

// Start resumes the open session for (profile, content, episode),
// reopens the completed one in place, or creates a new row, in that
// order. A lost insert race against a concurrent Start is recovered by
// re-reading the winner instead of failing.
func (m *Manager) Start(ctx context.Context, p StartParams) (store.Session, Outcome, error) {
	if p.ContentID == nil && p.EpisodeID == nil {
		return store.Session{}, "", ErrNoTarget
	}

	now := m.now()
	device := NormalizeDevice(p.Device)

	contentID, err := m.resolveContent(ctx, p)
	if err != nil {
		return store.Session{}, "", err
	}

	// 1) An open session exists: refresh and return it (idempotent resume).
	if s, err := m.Sessions.FindOpen(ctx, p.ProfileID, contentID, p.EpisodeID); err == nil {
		if s.StartedAt.IsZero() {
			s.StartedAt = now
		}
		s.LastSeenAt = &now
		s.Device = device
		s, err = m.Sessions.Update(ctx, s)
		return s, OutcomeResumed, err
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Session{}, "", err
	}

	// 2) A prior (completed) session exists: reopen the same row.
	if s, err := m.Sessions.FindLatest(ctx, p.ProfileID, contentID, p.EpisodeID); err == nil {
		s.Completed = false
		s.ProgressSeconds = 0
		s.DurationSeconds = nil
		s.StartedAt = now
		s.EndedAt = nil
		s.LastSeenAt = &now
		s.Device = device
		s, err = m.Sessions.Update(ctx, s)
		return s, OutcomeReopened, err
	} else if !errors.Is(err, store.ErrNotFound) {
		return store.Session{}, "", err
	}

	// 3) First viewing of this tuple: create.
	s, err := m.Sessions.Insert(ctx, store.Session{
		ProfileID:  p.ProfileID,
		ContentID:  contentID,
		EpisodeID:  p.EpisodeID,
		Device:     device,
		StartedAt:  now,
		LastSeenAt: &now,
	})
	if err == nil {
		return s, OutcomeCreated, nil
	}
	if !errors.Is(err, store.ErrConflict) {
		return store.Session{}, "", err
	}

	// Lost the insert race: a concurrent Start created the row first.
	// Return the winner rather than surfacing the conflict.
	s, err = m.Sessions.FindLatest(ctx, p.ProfileID, contentID, p.EpisodeID)
	if err != nil {
		return store.Session{}, "", err
	}
	return s, OutcomeResumed, nil
}

func (m *Manager) resolveContent(ctx context.Context, p StartParams) (uuid.UUID, error) {
	if p.ContentID != nil {
		return *p.ContentID, nil
	}
	return m.Episodes.ContentIDForEpisode(ctx, *p.EpisodeID)
}

// ProgressUpdate carries one heartbeat from a playback client.
type ProgressUpdate struct {
	ProgressSeconds int
	DurationSeconds *int
	Completed       *bool
}

// ApplyProgress merges an update into the session in place. Duration
// only grows, progress never regresses and is clamped to the known
// duration, completion latches at 95% watched or on explicit signal.
func ApplyProgress(s *store.Session, u ProgressUpdate, now time.Time) {
	if u.DurationSeconds != nil {
		dur := *u.DurationSeconds
		if dur < 0 {
			dur = 0
		}
		if s.DurationSeconds == nil || dur > *s.DurationSeconds {
			s.DurationSeconds = &dur
		}
	}

	incoming := u.ProgressSeconds
	if incoming < 0 {
		incoming = 0
	}
	if s.DurationSeconds != nil && incoming > *s.DurationSeconds {
		incoming = *s.DurationSeconds
	}
	if incoming > s.ProgressSeconds {
		s.ProgressSeconds = incoming
	}

	s.LastSeenAt = &now

	if s.DurationSeconds != nil && *s.DurationSeconds > 0 &&
		s.ProgressSeconds >= int(completionThreshold*float64(*s.DurationSeconds)) {
		s.Completed = true
		if s.EndedAt == nil {
			s.EndedAt = &now
		}
	}

	if u.Completed != nil && *u.Completed {
		s.Completed = true
		if s.EndedAt == nil {
			s.EndedAt = &now
		}
	}
}

// ErrNegativeProgress rejects a direct edit carrying a negative progress.
var ErrNegativeProgress = errors.New("progress_seconds must be >= 0")

// Override is a direct administrative edit of a session. Unlike
// ProgressUpdate it bypasses monotonicity: fields are set as given.
type Override struct {
	ProgressSeconds *int
	Completed       *bool
	EndedAt         *time.Time
	Device          *string
}

// ApplyOverride sets the given fields on the session in place. Marking
// a session completed without an end time stamps ended_at with now, and
// setting ended_at on an open session marks it completed.
func ApplyOverride(s *store.Session, o Override, now time.Time) error {
	if o.ProgressSeconds != nil {
		if *o.ProgressSeconds < 0 {
			return ErrNegativeProgress
		}
		s.ProgressSeconds = *o.ProgressSeconds
	}

	if o.Completed != nil {
		s.Completed = *o.Completed
		if *o.Completed && s.EndedAt == nil && o.EndedAt == nil {
			s.EndedAt = &now
		}
	}

	if o.EndedAt != nil {
		t := *o.EndedAt
		s.EndedAt = &t
		if !s.Completed {
			s.Completed = true
		}
	}

	if o.Device != nil {
		s.Device = NormalizeDevice(*o.Device)
	}
	return nil
}

// ReportProgress merges the update into the stored session and persists it.
func (m *Manager) ReportProgress(ctx context.Context, s store.Session, u ProgressUpdate) (store.Session, error) {
	ApplyProgress(&s, u, m.now())
	return m.Sessions.Update(ctx, s)
}

// Complete marks the session completed. ended_at is stamped only the
// first time, so repeating the call changes nothing.
func (m *Manager) Complete(ctx context.Context, s store.Session) (store.Session, error) {
	now := m.now()
	s.Completed = true
	if s.EndedAt == nil {
		s.EndedAt = &now
	}
	return m.Sessions.Update(ctx, s)
}
