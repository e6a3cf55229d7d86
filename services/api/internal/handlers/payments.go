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

type setPaymentStatusRequest struct {
	Status string `json:"status"`
}

func validPaymentStatus(s string) bool {
	switch s {
	case store.PaymentPending, store.PaymentPaid, store.PaymentFailed, store.PaymentRefunded:
		return true
	}
	return false
}

// MyPayments handles GET /v1/payments/me
func MyPayments(payments store.PaymentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}

		status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
		if status != "" && !validPaymentStatus(status) {
			api.BadRequest(w, "INVALID_STATUS", "unknown payment status", rid(r), nil)
			return
		}

		out, err := payments.ListPayments(r.Context(), store.PaymentFilter{
			UserID: &userID,
			Status: status,
			From:   queryTimePtr(r, "from"),
			To:     queryTimePtr(r, "to"),
			Limit:  queryInt(r, "limit", 50, 200),
			Offset: queryInt(r, "offset", 0, 0),
		})
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// ListPayments handles GET /v1/admin/payments
func ListPayments(payments store.PaymentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))
		if status != "" && !validPaymentStatus(status) {
			api.BadRequest(w, "INVALID_STATUS", "unknown payment status", rid(r), nil)
			return
		}

		out, err := payments.ListPayments(r.Context(), store.PaymentFilter{
			UserID: queryUUIDPtr(r, "user_id"),
			Status: status,
			From:   queryTimePtr(r, "from"),
			To:     queryTimePtr(r, "to"),
			Limit:  queryInt(r, "limit", 50, 200),
			Offset: queryInt(r, "offset", 0, 0),
		})
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// SetPaymentStatus handles PATCH /v1/admin/payments/{payment_id}. Moving a
// payment to PAID stamps paid_at once; repeating the transition keeps the
// original timestamp.
func SetPaymentStatus(payments store.PaymentStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		paymentID, ok := pathUUID(w, r, chi.URLParam(r, "payment_id"), "payment_id")
		if !ok {
			return
		}
		var req setPaymentStatusRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		status := strings.ToUpper(strings.TrimSpace(req.Status))
		if !validPaymentStatus(status) {
			api.BadRequest(w, "INVALID_STATUS", "unknown payment status", rid(r), nil)
			return
		}

		p, err := payments.SetPaymentStatus(r.Context(), paymentID, status, time.Now().UTC())
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "payment not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, p)
	}
}
