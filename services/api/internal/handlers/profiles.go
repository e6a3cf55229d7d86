package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/streaming-platform/internal/platform/api"
	"github.com/example/streaming-platform/services/api/internal/store"
)

// defaultMaxProfiles applies to accounts without an active subscription.
const defaultMaxProfiles = 1

type profileRequest struct {
	Name           *string `json:"name,omitempty"`
	Avatar         *string `json:"avatar,omitempty"`
	MaturityRating *string `json:"maturity_rating,omitempty"`
}

// ListProfiles handles GET /v1/profiles
func ListProfiles(profiles store.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		out, err := profiles.ListProfiles(r.Context(), userID)
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// CreateProfile handles POST /v1/profiles. The caller's plan caps how
// many profiles the account may hold.
func CreateProfile(profiles store.ProfileStore, subs store.SubscriptionStore, plans store.PlanStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		var req profileRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
			api.BadRequest(w, "MISSING_NAME", "name is required", rid(r), nil)
			return
		}

		maxProfiles := defaultMaxProfiles
		if sub, err := subs.ActiveSubscription(r.Context(), userID); err == nil {
			if plan, err := plans.GetPlan(r.Context(), sub.PlanID); err == nil {
				maxProfiles = plan.MaxProfiles
			}
		}

		count, err := profiles.CountProfiles(r.Context(), userID)
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		if count >= maxProfiles {
			api.Conflict(w, "PROFILE_LIMIT", "profile limit reached for the current plan", rid(r),
				map[string]any{"max_profiles": maxProfiles})
			return
		}

		p, err := profiles.CreateProfile(r.Context(), store.CreateProfileParams{
			UserID:         userID,
			Name:           strings.TrimSpace(*req.Name),
			Avatar:         req.Avatar,
			MaturityRating: req.MaturityRating,
		})
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusCreated, p)
	}
}

// UpdateProfile handles PATCH /v1/profiles/{profile_id}
func UpdateProfile(profiles store.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		profileID, ok := pathUUID(w, r, chi.URLParam(r, "profile_id"), "profile_id")
		if !ok {
			return
		}
		var req profileRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
			api.BadRequest(w, "INVALID_INPUT", "name must not be empty", rid(r), nil)
			return
		}

		p, err := profiles.UpdateProfile(r.Context(), userID, profileID, store.UpdateProfileParams{
			Name:           req.Name,
			Avatar:         req.Avatar,
			MaturityRating: req.MaturityRating,
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "profile not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, p)
	}
}

// DeleteProfile handles DELETE /v1/profiles/{profile_id}
func DeleteProfile(profiles store.ProfileStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		profileID, ok := pathUUID(w, r, chi.URLParam(r, "profile_id"), "profile_id")
		if !ok {
			return
		}
		if err := profiles.DeleteProfile(r.Context(), userID, profileID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "profile not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.NoContent(w)
	}
}
