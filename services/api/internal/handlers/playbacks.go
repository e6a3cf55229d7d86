package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/example/streaming-platform/internal/platform/analytics"
	"github.com/example/streaming-platform/internal/platform/api"
	"github.com/example/streaming-platform/internal/platform/metrics"
	"github.com/example/streaming-platform/services/api/internal/playback"
	"github.com/example/streaming-platform/services/api/internal/store"
)

type startPlaybackRequest struct {
	ProfileID string  `json:"profile_id"`
	ContentID *string `json:"content_id,omitempty"`
	EpisodeID *string `json:"episode_id,omitempty"`
	Device    string  `json:"device,omitempty"`
}

type startPlaybackResponse struct {
	store.Session
	Outcome playback.Outcome `json:"outcome"`
}

type progressRequest struct {
	ProgressSeconds *int  `json:"progress_seconds"`
	DurationSeconds *int  `json:"duration_seconds,omitempty"`
	Completed       *bool `json:"completed,omitempty"`
}

// ownedSession loads the session and checks it belongs to one of the
// caller's profiles. Sessions of other accounts look like missing ones.
func ownedSession(w http.ResponseWriter, r *http.Request, sessions store.PlaybackStore, profiles store.ProfileStore, userID uuid.UUID) (store.Session, bool) {
	playbackID, ok := pathUUID(w, r, chi.URLParam(r, "playback_id"), "playback_id")
	if !ok {
		return store.Session{}, false
	}
	s, err := sessions.Get(r.Context(), playbackID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			api.NotFound(w, "NOT_FOUND", "playback session not found", rid(r))
			return store.Session{}, false
		}
		api.Internal(w, rid(r))
		return store.Session{}, false
	}
	if _, err := profiles.OwnedProfile(r.Context(), userID, s.ProfileID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			api.NotFound(w, "NOT_FOUND", "playback session not found", rid(r))
			return store.Session{}, false
		}
		api.Internal(w, rid(r))
		return store.Session{}, false
	}
	return s, true
}

// StartPlayback handles POST /v1/playbacks. Starting is idempotent per
// (profile, device, content, episode): an open session is resumed, a
// completed one is reopened in place, otherwise a new one is created.
func StartPlayback(m *playback.Manager, profiles store.ProfileStore, pub *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		var req startPlaybackRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		profileID, ok := pathUUID(w, r, req.ProfileID, "profile_id")
		if !ok {
			return
		}

		var contentID, episodeID *uuid.UUID
		if req.ContentID != nil {
			id, ok := pathUUID(w, r, *req.ContentID, "content_id")
			if !ok {
				return
			}
			contentID = &id
		}
		if req.EpisodeID != nil {
			id, ok := pathUUID(w, r, *req.EpisodeID, "episode_id")
			if !ok {
				return
			}
			episodeID = &id
		}

		if _, err := profiles.OwnedProfile(r.Context(), userID, profileID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "profile not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}

		s, outcome, err := m.Start(r.Context(), playback.StartParams{
			ProfileID: profileID,
			ContentID: contentID,
			EpisodeID: episodeID,
			Device:    req.Device,
		})
		if err != nil {
			switch {
			case errors.Is(err, playback.ErrNoTarget):
				api.BadRequest(w, "MISSING_TARGET", "content_id or episode_id is required", rid(r), nil)
			case errors.Is(err, store.ErrNotFound):
				api.NotFound(w, "NOT_FOUND", "content or episode not found", rid(r))
			default:
				api.Internal(w, rid(r))
			}
			return
		}

		metrics.PlaybackStartsTotal.WithLabelValues(string(outcome)).Inc()
		pub.Publish(analytics.SubjectPlaybackStarted, "playback.started", userID.String(), map[string]any{
			"playback_id": s.ID.String(),
			"profile_id":  s.ProfileID.String(),
			"content_id":  s.ContentID.String(),
			"device":      s.Device,
			"outcome":     string(outcome),
		})

		status := http.StatusOK
		if outcome == playback.OutcomeCreated {
			status = http.StatusCreated
		}
		api.WriteJSON(w, status, startPlaybackResponse{Session: s, Outcome: outcome})
	}
}

func playbackFilterFromQuery(r *http.Request) store.PlaybackFilter {
	return store.PlaybackFilter{
		Completed:   queryBoolPtr(r, "completed"),
		Device:      r.URL.Query().Get("device"),
		ContentID:   queryUUIDPtr(r, "content_id"),
		EpisodeID:   queryUUIDPtr(r, "episode_id"),
		StartedFrom: queryTimePtr(r, "started_from"),
		StartedTo:   queryTimePtr(r, "started_to"),
		EndedFrom:   queryTimePtr(r, "ended_from"),
		EndedTo:     queryTimePtr(r, "ended_to"),
		MinProgress: queryIntPtr(r, "min_progress"),
		MaxProgress: queryIntPtr(r, "max_progress"),
		Limit:       queryInt(r, "limit", 50, 200),
		Offset:      queryInt(r, "offset", 0, 0),
	}
}

// ListPlaybacks handles GET /v1/playbacks
func ListPlaybacks(sessions store.PlaybackStore, profiles store.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		f := playbackFilterFromQuery(r)
		if pid := queryUUIDPtr(r, "profile_id"); pid != nil {
			if _, err := profiles.OwnedProfile(r.Context(), userID, *pid); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					api.NotFound(w, "NOT_FOUND", "profile not found", rid(r))
					return
				}
				api.Internal(w, rid(r))
				return
			}
			f.ProfileIDs = []uuid.UUID{*pid}
		} else {
			ids, err := profiles.OwnedProfileIDs(r.Context(), userID)
			if err != nil {
				api.Internal(w, rid(r))
				return
			}
			f.ProfileIDs = ids
		}

		out, err := sessions.List(r.Context(), f)
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// GetPlayback handles GET /v1/playbacks/{playback_id}
func GetPlayback(sessions store.PlaybackStore, profiles store.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		s, ok := ownedSession(w, r, sessions, profiles, userID)
		if !ok {
			return
		}
		api.WriteJSON(w, http.StatusOK, s)
	}
}

// ReportPlaybackProgress handles PATCH /v1/playbacks/{playback_id}
func ReportPlaybackProgress(m *playback.Manager, sessions store.PlaybackStore, profiles store.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		s, ok := ownedSession(w, r, sessions, profiles, userID)
		if !ok {
			return
		}
		var req progressRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.ProgressSeconds == nil {
			api.BadRequest(w, "MISSING_PROGRESS", "progress_seconds is required", rid(r), nil)
			return
		}
		if *req.ProgressSeconds < 0 {
			api.BadRequest(w, "INVALID_PROGRESS", "progress_seconds must be >= 0", rid(r), nil)
			return
		}
		if req.DurationSeconds != nil && *req.DurationSeconds < 0 {
			api.BadRequest(w, "INVALID_DURATION", "duration_seconds must be >= 0", rid(r), nil)
			return
		}

		updated, err := m.ReportProgress(r.Context(), s, playback.ProgressUpdate{
			ProgressSeconds: *req.ProgressSeconds,
			DurationSeconds: req.DurationSeconds,
			Completed:       req.Completed,
		})
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, updated)
	}
}

// CompletePlayback handles POST /v1/playbacks/{playback_id}/complete
func CompletePlayback(m *playback.Manager, sessions store.PlaybackStore, profiles store.ProfileStore, pub *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		s, ok := ownedSession(w, r, sessions, profiles, userID)
		if !ok {
			return
		}

		alreadyDone := s.Completed
		updated, err := m.Complete(r.Context(), s)
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		if !alreadyDone {
			metrics.PlaybackCompletionsTotal.Inc()
			pub.Publish(analytics.SubjectPlaybackCompleted, "playback.completed", userID.String(), map[string]any{
				"playback_id": updated.ID.String(),
				"content_id":  updated.ContentID.String(),
			})
		}
		api.WriteJSON(w, http.StatusOK, updated)
	}
}

// DeletePlayback handles DELETE /v1/playbacks/{playback_id}
func DeletePlayback(sessions store.PlaybackStore, profiles store.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		s, ok := ownedSession(w, r, sessions, profiles, userID)
		if !ok {
			return
		}
		if err := sessions.Delete(r.Context(), s.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "playback session not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.NoContent(w)
	}
}

// AdminListPlaybacks handles GET /v1/admin/playbacks
func AdminListPlaybacks(sessions store.PlaybackStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := playbackFilterFromQuery(r)
		if pid := queryUUIDPtr(r, "profile_id"); pid != nil {
			f.ProfileIDs = []uuid.UUID{*pid}
		} else {
			f.All = true
		}

		out, err := sessions.List(r.Context(), f)
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// AdminGetPlayback handles GET /v1/admin/playbacks/{playback_id}
func AdminGetPlayback(sessions store.PlaybackStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playbackID, ok := pathUUID(w, r, chi.URLParam(r, "playback_id"), "playback_id")
		if !ok {
			return
		}
		s, err := sessions.Get(r.Context(), playbackID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "playback session not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, s)
	}
}

type adminCreatePlaybackRequest struct {
	ProfileID       string     `json:"profile_id"`
	ContentID       string     `json:"content_id"`
	EpisodeID       *string    `json:"episode_id,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	ProgressSeconds *int       `json:"progress_seconds,omitempty"`
	Completed       *bool      `json:"completed,omitempty"`
	Device          string     `json:"device,omitempty"`
}

// AdminCreatePlayback handles POST /v1/admin/playbacks. It writes a
// session row directly, skipping the resume/reopen lifecycle, after
// checking that profile, content and episode exist and agree.
func AdminCreatePlayback(sessions store.PlaybackStore, profiles store.ProfileStore, catalog store.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adminCreatePlaybackRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		profileID, ok := pathUUID(w, r, req.ProfileID, "profile_id")
		if !ok {
			return
		}
		contentID, ok := pathUUID(w, r, req.ContentID, "content_id")
		if !ok {
			return
		}

		if _, err := profiles.GetProfile(r.Context(), profileID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "profile not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		if _, err := catalog.GetContent(r.Context(), contentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "content not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}

		var episodeID *uuid.UUID
		if req.EpisodeID != nil {
			id, ok := pathUUID(w, r, *req.EpisodeID, "episode_id")
			if !ok {
				return
			}
			ep, err := catalog.GetEpisode(r.Context(), id)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					api.NotFound(w, "NOT_FOUND", "episode not found", rid(r))
					return
				}
				api.Internal(w, rid(r))
				return
			}
			if ep.ContentID != contentID {
				api.Conflict(w, "EPISODE_MISMATCH", "episode does not belong to given content", rid(r), nil)
				return
			}
			episodeID = &id
		}

		now := time.Now().UTC()
		s := store.Session{
			ProfileID: profileID,
			ContentID: contentID,
			EpisodeID: episodeID,
			Device:    playback.NormalizeDevice(req.Device),
			StartedAt: now,
		}
		if req.StartedAt != nil {
			s.StartedAt = *req.StartedAt
		}
		err := playback.ApplyOverride(&s, playback.Override{
			ProgressSeconds: req.ProgressSeconds,
			Completed:       req.Completed,
			EndedAt:         req.EndedAt,
		}, now)
		if err != nil {
			api.BadRequest(w, "INVALID_PROGRESS", "progress_seconds must be >= 0", rid(r), nil)
			return
		}

		out, err := sessions.Insert(r.Context(), s)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				api.Conflict(w, "ALREADY_OPEN", "an open session already exists for this tuple", rid(r), nil)
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusCreated, out)
	}
}

type adminUpdatePlaybackRequest struct {
	ProgressSeconds *int       `json:"progress_seconds,omitempty"`
	Completed       *bool      `json:"completed,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	Device          *string    `json:"device,omitempty"`
}

// AdminUpdatePlayback handles PUT /v1/admin/playbacks/{playback_id}.
// Fields are set as given, so progress may move backwards here.
func AdminUpdatePlayback(sessions store.PlaybackStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playbackID, ok := pathUUID(w, r, chi.URLParam(r, "playback_id"), "playback_id")
		if !ok {
			return
		}
		s, err := sessions.Get(r.Context(), playbackID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "playback session not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}

		var req adminUpdatePlaybackRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		err = playback.ApplyOverride(&s, playback.Override{
			ProgressSeconds: req.ProgressSeconds,
			Completed:       req.Completed,
			EndedAt:         req.EndedAt,
			Device:          req.Device,
		}, time.Now().UTC())
		if err != nil {
			api.BadRequest(w, "INVALID_PROGRESS", "progress_seconds must be >= 0", rid(r), nil)
			return
		}

		updated, err := sessions.Update(r.Context(), s)
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, updated)
	}
}

// AdminDeletePlayback handles DELETE /v1/admin/playbacks/{playback_id}.
// Deleting an unknown id is a no-op.
func AdminDeletePlayback(sessions store.PlaybackStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playbackID, ok := pathUUID(w, r, chi.URLParam(r, "playback_id"), "playback_id")
		if !ok {
			return
		}
		if err := sessions.Delete(r.Context(), playbackID); err != nil && !errors.Is(err, store.ErrNotFound) {
			api.Internal(w, rid(r))
			return
		}
		api.NoContent(w)
	}
}
