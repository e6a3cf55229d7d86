package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/example/streaming-platform/internal/platform/api"
	"github.com/example/streaming-platform/services/api/internal/store"
)

type subscribeRequest struct {
	PlanID string `json:"plan_id"`
}

// MySubscription handles GET /v1/subscriptions/me
func MySubscription(subs store.SubscriptionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		sub, err := subs.ActiveSubscription(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NO_SUBSCRIPTION", "no active subscription", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, sub)
	}
}

// Subscribe handles POST /v1/subscriptions. A pending payment for the
// first billing period is created together with the subscription.
func Subscribe(subs store.SubscriptionStore, plans store.PlanStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		var req subscribeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		planID, ok := pathUUID(w, r, req.PlanID, "plan_id")
		if !ok {
			return
		}

		plan, err := plans.GetPlan(r.Context(), planID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "plan not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}

		renewsAt := time.Now().UTC().AddDate(0, 1, 0)
		sub, err := subs.Subscribe(r.Context(), userID, plan, renewsAt)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrConflict):
				api.Conflict(w, "ALREADY_SUBSCRIBED", "an active subscription already exists", rid(r), nil)
			case errors.Is(err, store.ErrNotFound):
				api.NotFound(w, "NOT_FOUND", "user not found", rid(r))
			default:
				api.Internal(w, rid(r))
			}
			return
		}
		api.WriteJSON(w, http.StatusCreated, sub)
	}
}

// CancelSubscription handles POST /v1/subscriptions/cancel
func CancelSubscription(subs store.SubscriptionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		sub, err := subs.Cancel(r.Context(), userID, time.Now().UTC())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NO_SUBSCRIPTION", "no active subscription", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, sub)
	}
}

// ListSubscriptions handles GET /v1/admin/subscriptions
func ListSubscriptions(subs store.SubscriptionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
		switch status {
		case "", store.SubscriptionActive, store.SubscriptionCanceled, store.SubscriptionPastDue:
		default:
			api.BadRequest(w, "INVALID_STATUS", "unknown subscription status", rid(r), nil)
			return
		}
		limit := queryInt(r, "limit", 50, 200)
		offset := queryInt(r, "offset", 0, 0)

		out, err := subs.ListSubscriptions(r.Context(), status, limit, offset)
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}
