package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/example/streaming-platform/internal/platform/analytics"
	"github.com/example/streaming-platform/internal/platform/api"
	"github.com/example/streaming-platform/services/api/internal/store"
)

type addWatchlistRequest struct {
	ProfileID string `json:"profile_id"`
	ContentID string `json:"content_id"`
}

// ListWatchlist handles GET /v1/watchlist. Without a profile_id filter it
// spans every profile the caller owns.
func ListWatchlist(watchlist store.WatchlistStore, profiles store.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		var profileIDs []uuid.UUID
		if pid := queryUUIDPtr(r, "profile_id"); pid != nil {
			if _, err := profiles.OwnedProfile(r.Context(), userID, *pid); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					api.NotFound(w, "NOT_FOUND", "profile not found", rid(r))
					return
				}
				api.Internal(w, rid(r))
				return
			}
			profileIDs = []uuid.UUID{*pid}
		} else {
			ids, err := profiles.OwnedProfileIDs(r.Context(), userID)
			if err != nil {
				api.Internal(w, rid(r))
				return
			}
			profileIDs = ids
		}

		out, err := watchlist.ListItems(r.Context(), store.WatchlistFilter{
			ProfileIDs: profileIDs,
			ContentID:  queryUUIDPtr(r, "content_id"),
			AddedFrom:  queryTimePtr(r, "added_from"),
			AddedTo:    queryTimePtr(r, "added_to"),
			Limit:      queryInt(r, "limit", 50, 200),
			Offset:     queryInt(r, "offset", 0, 0),
		})
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// AddToWatchlist handles POST /v1/watchlist
func AddToWatchlist(watchlist store.WatchlistStore, profiles store.ProfileStore, pub *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		var req addWatchlistRequest
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

		if _, err := profiles.OwnedProfile(r.Context(), userID, profileID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "profile not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}

		item, err := watchlist.AddItem(r.Context(), profileID, contentID)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrConflict):
				api.Conflict(w, "ALREADY_LISTED", "content is already on the watchlist", rid(r), nil)
			case errors.Is(err, store.ErrNotFound):
				api.NotFound(w, "NOT_FOUND", "content not found", rid(r))
			default:
				api.Internal(w, rid(r))
			}
			return
		}

		pub.Publish(analytics.SubjectWatchlistAdded, "watchlist.added", userID.String(), map[string]any{
			"profile_id": profileID.String(),
			"content_id": contentID.String(),
		})
		api.WriteJSON(w, http.StatusCreated, item)
	}
}

// RemoveFromWatchlist handles DELETE /v1/watchlist/{item_id}
func RemoveFromWatchlist(watchlist store.WatchlistStore, profiles store.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		itemID, ok := pathUUID(w, r, chi.URLParam(r, "item_id"), "item_id")
		if !ok {
			return
		}

		profileIDs, err := profiles.OwnedProfileIDs(r.Context(), userID)
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		if err := watchlist.RemoveItem(r.Context(), itemID, profileIDs); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "watchlist item not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.NoContent(w)
	}
}
