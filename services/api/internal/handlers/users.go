package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/streaming-platform/internal/platform/api"
	"github.com/example/streaming-platform/services/api/internal/store"
)

type updateMeRequest struct {
	Name     *string `json:"name,omitempty"`
	Password *string `json:"password,omitempty"`
}

type adminUpdateUserRequest struct {
	Name   *string `json:"name,omitempty"`
	Role   *string `json:"role,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// Me handles GET /v1/users/me
func Me(users store.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		u, err := users.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "user not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, u)
	}
}

// UpdateMe handles PATCH /v1/users/me
func UpdateMe(users store.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r)
		if !ok {
			return
		}
		var req updateMeRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
			api.BadRequest(w, "INVALID_INPUT", "name must not be empty", rid(r), nil)
			return
		}

		params := store.UpdateUserParams{Name: req.Name}
		if req.Password != nil {
			if len(*req.Password) < 8 {
				api.BadRequest(w, "WEAK_PASSWORD", "password must be at least 8 characters", rid(r), nil)
				return
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
			if err != nil {
				api.Internal(w, rid(r))
				return
			}
			h := string(hash)
			params.PasswordHash = &h
		}

		u, err := users.UpdateUser(r.Context(), userID, params)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "user not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, u)
	}
}

// ListUsers handles GET /v1/admin/users
func ListUsers(users store.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := queryInt(r, "limit", 50, 200)
		offset := queryInt(r, "offset", 0, 0)

		out, err := users.ListUsers(r.Context(), limit, offset)
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}

// GetUser handles GET /v1/admin/users/{user_id}
func GetUser(users store.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUUID(w, r, chi.URLParam(r, "user_id"), "user_id")
		if !ok {
			return
		}
		u, err := users.GetUser(r.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "user not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, u)
	}
}

// UpdateUser handles PATCH /v1/admin/users/{user_id}
func UpdateUser(users store.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUUID(w, r, chi.URLParam(r, "user_id"), "user_id")
		if !ok {
			return
		}
		var req adminUpdateUserRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Role != nil && *req.Role != "user" && *req.Role != "admin" {
			api.BadRequest(w, "INVALID_ROLE", "role must be 'user' or 'admin'", rid(r), nil)
			return
		}

		u, err := users.UpdateUser(r.Context(), userID, store.UpdateUserParams{
			Name:   req.Name,
			Role:   req.Role,
			Active: req.Active,
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "user not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.WriteJSON(w, http.StatusOK, u)
	}
}

// DeleteUser handles DELETE /v1/admin/users/{user_id}
func DeleteUser(users store.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := pathUUID(w, r, chi.URLParam(r, "user_id"), "user_id")
		if !ok {
			return
		}
		if err := users.DeleteUser(r.Context(), userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.NotFound(w, "NOT_FOUND", "user not found", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		api.NoContent(w)
	}
}
