package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/streaming-platform/internal/platform/api"
	"github.com/example/streaming-platform/services/api/internal/store"
)

type contentRequest struct {
	Title           *string `json:"title,omitempty"`
	Type            *string `json:"type,omitempty"`
	Description     *string `json:"description,omitempty"`
	ReleaseYear     *int    `json:"release_year,omitempty"`
	DurationSeconds *int    `json:"duration_seconds,omitempty"`
	AgeRating       *string `json:"age_rating,omitempty"`
	Genres          *string `json:"genres,omitempty"`
	VideoURL        *string `json:"video_url,omitempty"`
	Thumbnail       *string `json:"thumbnail,omitempty"`
}

type episodeRequest struct {
	SeasonNumber    *int       `json:"season_number,omitempty"`
	EpisodeNumber   *int       `json:"episode_number,omitempty"`
	Title           *string    `json:"title,omitempty"`
	DurationSeconds *int       `json:"duration_seconds,omitempty"`
	ReleaseDate     *time.Time `json:"release_date,omitempty"`
	VideoURL        *string    `json:"video_url,omitempty"`
}

func validContentType(t string) bool {
	switch t {
	case store.ContentMovie, store.ContentSeries, store.ContentVideos:
		return true
	}
	return false
}

// ListContents handles GET /v1/contents
func ListContents(catalog store.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		contentType := strings.ToUpper(strings.TrimSpace(q.Get("type")))
		if contentType != "" && !validContentType(contentType) {
			api.BadRequest(w, "INVALID_TYPE", "unknown content type", rid(r), nil)
			return
		}

		out, err := catalog.ListContents(r.Context(), store.ContentFilter{
			Query:       strings.TrimSpace(q.Get("q")),
			Type:        contentType,
			Genre:       strings.TrimSpace(q.Get("genre")),
			YearFrom:    queryIntPtr(r, "year_from"),
			YearTo:      queryIntPtr(r, "year_to"),
			MinDuration: queryIntPtr(r, "min_duration"),
			MaxDuration: queryIntPtr(r, "max_duration"),
			AgeRating:   strings.TrimSpace(q.Get("age_rating")),
			OrderBy:     strings.TrimSpace(q.Get("order_by")),
			OrderDir:    strings.TrimSpace(q.Get("order_dir")),
			Limit:       queryInt(r, "limit", 24, 100),
			Offset:      queryInt(r, "offset", 0, 0),
		})
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// GetContent handles GET /v1/contents/{content_id}
func GetContent(catalog store.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, ok := pathUUID(w, r, chi.URLParam(r, "content_id"), "content_id")
		if !ok {
			return
		}
		c, err := catalog.GetContent(r.Context(), contentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "content not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, c)
	}
}

// ListEpisodes handles GET /v1/contents/{content_id}/episodes
func ListEpisodes(catalog store.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, ok := pathUUID(w, r, chi.URLParam(r, "content_id"), "content_id")
		if !ok {
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
		out, err := catalog.ListEpisodes(r.Context(), contentID)
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// GetEpisode handles GET /v1/episodes/{episode_id}
func GetEpisode(catalog store.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		episodeID, ok := pathUUID(w, r, chi.URLParam(r, "episode_id"), "episode_id")
		if !ok {
			return
		}
		e, err := catalog.GetEpisode(r.Context(), episodeID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "episode not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, e)
	}
}

// CreateContent handles POST /v1/admin/contents
func CreateContent(catalog store.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
			api.BadRequest(w, "MISSING_TITLE", "title is required", rid(r), nil)
			return
		}
		contentType := store.ContentMovie
		if req.Type != nil {
			contentType = strings.ToUpper(strings.TrimSpace(*req.Type))
		}
		if !validContentType(contentType) {
			api.BadRequest(w, "INVALID_TYPE", "unknown content type", rid(r), nil)
			return
		}

		c, err := catalog.CreateContent(r.Context(), store.ContentParams{
			Title:           strings.TrimSpace(*req.Title),
			Type:            contentType,
			Description:     req.Description,
			ReleaseYear:     req.ReleaseYear,
			DurationSeconds: req.DurationSeconds,
			AgeRating:       req.AgeRating,
			Genres:          req.Genres,
			VideoURL:        req.VideoURL,
			Thumbnail:       req.Thumbnail,
		})
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusCreated, c)
	}
}

// UpdateContent handles PATCH /v1/admin/contents/{content_id}
func UpdateContent(catalog store.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, ok := pathUUID(w, r, chi.URLParam(r, "content_id"), "content_id")
		if !ok {
			return
		}
		var req contentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Type != nil {
			t := strings.ToUpper(strings.TrimSpace(*req.Type))
			if !validContentType(t) {
				api.BadRequest(w, "INVALID_TYPE", "unknown content type", rid(r), nil)
				return
			}
			req.Type = &t
		}

		c, err := catalog.UpdateContent(r.Context(), contentID, store.UpdateContentParams{
			Title:           req.Title,
			Type:            req.Type,
			Description:     req.Description,
			ReleaseYear:     req.ReleaseYear,
			DurationSeconds: req.DurationSeconds,
			AgeRating:       req.AgeRating,
			Genres:          req.Genres,
			VideoURL:        req.VideoURL,
			Thumbnail:       req.Thumbnail,
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "content not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, c)
	}
}

// DeleteContent handles DELETE /v1/admin/contents/{content_id}
func DeleteContent(catalog store.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, ok := pathUUID(w, r, chi.URLParam(r, "content_id"), "content_id")
		if !ok {
			return
		}
		if err := catalog.DeleteContent(r.Context(), contentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "content not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.NoContent(w)
	}
}

// CreateEpisode handles POST /v1/admin/contents/{content_id}/episodes
func CreateEpisode(catalog store.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contentID, ok := pathUUID(w, r, chi.URLParam(r, "content_id"), "content_id")
		if !ok {
			return
		}
		var req episodeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
			api.BadRequest(w, "MISSING_TITLE", "title is required", rid(r), nil)
			return
		}
		if req.SeasonNumber == nil || *req.SeasonNumber < 1 || req.EpisodeNumber == nil || *req.EpisodeNumber < 1 {
			api.BadRequest(w, "INVALID_NUMBERING", "season_number and episode_number must be >= 1", rid(r), nil)
			return
		}

		e, err := catalog.CreateEpisode(r.Context(), store.EpisodeParams{
			ContentID:       contentID,
			SeasonNumber:    *req.SeasonNumber,
			EpisodeNumber:   *req.EpisodeNumber,
			Title:           strings.TrimSpace(*req.Title),
			DurationSeconds: req.DurationSeconds,
			ReleaseDate:     req.ReleaseDate,
			VideoURL:        req.VideoURL,
		})
		if err != nil {
			switch {
			case errors.Is(err, store.ErrConflict):
				api.Conflict(w, "EPISODE_EXISTS", "episode with that numbering already exists", rid(r), nil)
			case errors.Is(err, store.ErrNotFound):
				api.NotFound(w, "NOT_FOUND", "content not found", rid(r))
			default:
				api.Internal(w, rid(r))
			}
			return
		}
		api.WriteJSON(w, http.StatusCreated, e)
	}
}

// UpdateEpisode handles PATCH /v1/admin/episodes/{episode_id}
func UpdateEpisode(catalog store.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		episodeID, ok := pathUUID(w, r, chi.URLParam(r, "episode_id"), "episode_id")
		if !ok {
			return
		}
		var req episodeRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		e, err := catalog.UpdateEpisode(r.Context(), episodeID, store.UpdateEpisodeParams{
			SeasonNumber:    req.SeasonNumber,
			EpisodeNumber:   req.EpisodeNumber,
			Title:           req.Title,
			DurationSeconds: req.DurationSeconds,
			ReleaseDate:     req.ReleaseDate,
			VideoURL:        req.VideoURL,
		})
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				api.NotFound(w, "NOT_FOUND", "episode not found", rid(r))
			case errors.Is(err, store.ErrConflict):
				api.Conflict(w, "EPISODE_EXISTS", "episode with that numbering already exists", rid(r), nil)
			default:
				api.Internal(w, rid(r))
			}
			return
		}
		api.WriteJSON(w, http.StatusOK, e)
	}
}

// DeleteEpisode handles DELETE /v1/admin/episodes/{episode_id}
func DeleteEpisode(catalog store.CatalogStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		episodeID, ok := pathUUID(w, r, chi.URLParam(r, "episode_id"), "episode_id")
		if !ok {
			return
		}
		if err := catalog.DeleteEpisode(r.Context(), episodeID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "episode not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.NoContent(w)
	}
}
