package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/streaming-platform/internal/platform/api"
	"github.com/example/streaming-platform/services/api/internal/store"
)

type planRequest struct {
	Name         *string `json:"name,omitempty"`
	PriceCents   *int    `json:"price_cents,omitempty"`
	Currency     *string `json:"currency,omitempty"`
	MaxProfiles  *int    `json:"max_profiles,omitempty"`
	MaxDevices   *int    `json:"max_devices,omitempty"`
	VideoQuality *string `json:"video_quality,omitempty"`
}

// ListPlans handles GET /v1/plans
func ListPlans(plans store.PlanStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := plans.ListPlans(r.Context())
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// GetPlan handles GET /v1/plans/{plan_id}
func GetPlan(plans store.PlanStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		planID, ok := pathUUID(w, r, chi.URLParam(r, "plan_id"), "plan_id")
		if !ok {
			return
		}
		p, err := plans.GetPlan(r.Context(), planID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "plan not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, p)
	}
}

// CreatePlan handles POST /v1/admin/plans
func CreatePlan(plans store.PlanStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req planRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
			api.BadRequest(w, "MISSING_NAME", "name is required", rid(r), nil)
			return
		}
		if req.PriceCents == nil || *req.PriceCents < 0 {
			api.BadRequest(w, "INVALID_PRICE", "price_cents must be >= 0", rid(r), nil)
			return
		}

		params := store.PlanParams{
			Name:         strings.TrimSpace(*req.Name),
			PriceCents:   *req.PriceCents,
			Currency:     "USD",
			MaxProfiles:  1,
			MaxDevices:   1,
			VideoQuality: "HD",
		}
		if req.Currency != nil {
			params.Currency = *req.Currency
		}
		if req.MaxProfiles != nil && *req.MaxProfiles > 0 {
			params.MaxProfiles = *req.MaxProfiles
		}
		if req.MaxDevices != nil && *req.MaxDevices > 0 {
			params.MaxDevices = *req.MaxDevices
		}
		if req.VideoQuality != nil {
			params.VideoQuality = *req.VideoQuality
		}

		p, err := plans.CreatePlan(r.Context(), params)
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				api.Conflict(w, "PLAN_EXISTS", "a plan with that name already exists", rid(r), nil)
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusCreated, p)
	}
}

// UpdatePlan handles PATCH /v1/admin/plans/{plan_id}
func UpdatePlan(plans store.PlanStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		planID, ok := pathUUID(w, r, chi.URLParam(r, "plan_id"), "plan_id")
		if !ok {
			return
		}
		var req planRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		p, err := plans.UpdatePlan(r.Context(), planID, store.UpdatePlanParams{
			Name:         req.Name,
			PriceCents:   req.PriceCents,
			Currency:     req.Currency,
			MaxProfiles:  req.MaxProfiles,
			MaxDevices:   req.MaxDevices,
			VideoQuality: req.VideoQuality,
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "plan not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, p)
	}
}

// DeletePlan handles DELETE /v1/admin/plans/{plan_id}
func DeletePlan(plans store.PlanStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		planID, ok := pathUUID(w, r, chi.URLParam(r, "plan_id"), "plan_id")
		if !ok {
			return
		}
		if err := plans.DeletePlan(r.Context(), planID); err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				api.NotFound(w, "NOT_FOUND", "plan not found", rid(r))
			case errors.Is(err, store.ErrConflict):
				api.Conflict(w, "PLAN_IN_USE", "plan has subscriptions and cannot be deleted", rid(r), nil)
			default:
				api.Internal(w, rid(r))
			}
			return
		}
		api.NoContent(w)
	}
}
