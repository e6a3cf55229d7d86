package handlers

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/streaming-platform/internal/platform/analytics"
	"github.com/example/streaming-platform/internal/platform/api"
	"github.com/example/streaming-platform/services/api/internal/store"
	"github.com/example/streaming-platform/services/api/internal/tokens"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string     `json:"access_token"`
	ExpiresAt    time.Time  `json:"expires_at"`
	RefreshToken string     `json:"refresh_token"`
	User         store.User `json:"user"`
}

func clientIP(r *http.Request) net.IP {
	host := r.RemoteAddr
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	} else if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return net.ParseIP(host)
}

func issueTokens(w http.ResponseWriter, r *http.Request, refresh store.RefreshStore, tok tokens.Service, u store.User, status int) {
	now := time.Now().UTC()
	access, exp, err := tok.NewAccessToken(u.ID.String(), u.Role, now)
	if err != nil {
		api.Internal(w, rid(r))
		return
	}
	raw, hash, err := tokens.NewRefreshToken()
	if err != nil {
		api.Internal(w, rid(r))
		return
	}
	err = refresh.CreateRefreshSession(r.Context(), store.CreateRefreshSessionParams{
		SessionID: uuid.New(),
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(tok.RefreshTokenTTL),
		UserAgent: r.UserAgent(),
		IP:        clientIP(r),
		Now:       now,
	})
	if err != nil {
		api.Internal(w, rid(r))
		return
	}
	api.WriteJSON(w, status, tokenResponse{
		AccessToken:  access,
		ExpiresAt:    exp,
		RefreshToken: raw,
		User:         u,
	})
}

// Register handles POST /v1/auth/register
func Register(users store.UserStore, refresh store.RefreshStore, tok tokens.Service, pub *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Name == "" || req.Email == "" || !strings.Contains(req.Email, "@") {
			api.BadRequest(w, "INVALID_INPUT", "name and a valid email are required", rid(r), nil)
			return
		}
		if len(req.Password) < 8 {
			api.BadRequest(w, "WEAK_PASSWORD", "password must be at least 8 characters", rid(r), nil)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			api.Internal(w, rid(r))
			return
		}

		u, err := users.CreateUser(r.Context(), store.CreateUserParams{
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: string(hash),
			ProfileName:  req.Name,
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				api.Conflict(w, "EMAIL_TAKEN", "email is already registered", rid(r), nil)
				return
			}
			api.Internal(w, rid(r))
			return
		}

		pub.Publish(analytics.SubjectAuthRegistered, "auth.registered", u.ID.String(), nil)
		issueTokens(w, r, refresh, tok, u, http.StatusCreated)
	}
}

// Login handles POST /v1/auth/login
func Login(users store.UserStore, refresh store.RefreshStore, tok tokens.Service, pub *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		row, err := users.FindUserByEmail(r.Context(), req.Email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				api.Unauthorized(w, "INVALID_CREDENTIALS", "invalid email or password", rid(r))
				return
			}
			api.Internal(w, rid(r))
			return
		}
		if !row.User.Active {
			api.Forbidden(w, "ACCOUNT_DISABLED", "account is disabled", rid(r))
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(req.Password)) != nil {
			api.Unauthorized(w, "INVALID_CREDENTIALS", "invalid email or password", rid(r))
			return
		}

		pub.Publish(analytics.SubjectAuthLoggedIn, "auth.logged_in", row.User.ID.String(), nil)
		issueTokens(w, r, refresh, tok, row.User, http.StatusOK)
	}
}

// Refresh handles POST /v1/auth/refresh. The presented refresh token is
// rotated: the old session is revoked and a new one issued.
func Refresh(users store.UserStore, refresh store.RefreshStore, tok tokens.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.RefreshToken) == "" {
			api.BadRequest(w, "MISSING_TOKEN", "refresh_token is required", rid(r), nil)
			return
		}

		now := time.Now().UTC()
		sess, err := refresh.GetRefreshSessionByHash(r.Context(), tokens.HashRefreshToken(req.RefreshToken))
		if err != nil || sess.RevokedAt != nil || now.After(sess.ExpiresAt) {
			api.Unauthorized(w, "INVALID_REFRESH_TOKEN", "refresh token is invalid or expired", rid(r))
			return
		}

		u, err := users.GetUser(r.Context(), sess.UserID)
		if err != nil || !u.Active {
			api.Unauthorized(w, "INVALID_REFRESH_TOKEN", "refresh token is invalid or expired", rid(r))
			return
		}

		access, exp, err := tok.NewAccessToken(u.ID.String(), u.Role, now)
		if err != nil {
			api.Internal(w, rid(r))
			return
		}
		raw, hash, err := tokens.NewRefreshToken()
		if err != nil {
			api.Internal(w, rid(r))
			return
		}

		newID := uuid.New()
		if err := refresh.CreateRefreshSession(r.Context(), store.CreateRefreshSessionParams{
			SessionID: newID,
			UserID:    u.ID,
			TokenHash: hash,
			ExpiresAt: now.Add(tok.RefreshTokenTTL),
			UserAgent: r.UserAgent(),
			IP:        clientIP(r),
			Now:       now,
		}); err != nil {
			api.Internal(w, rid(r))
			return
		}
		if err := refresh.ReplaceRefreshSession(r.Context(), sess.ID, newID, now); err != nil {
			api.Internal(w, rid(r))
			return
		}

		api.WriteJSON(w, http.StatusOK, tokenResponse{
			AccessToken:  access,
			ExpiresAt:    exp,
			RefreshToken: raw,
			User:         u,
		})
	}
}

// Logout handles POST /v1/auth/logout: revokes the presented refresh token.
func Logout(refresh store.RefreshStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		sess, err := refresh.GetRefreshSessionByHash(r.Context(), tokens.HashRefreshToken(req.RefreshToken))
		if err == nil && sess.RevokedAt == nil {
			_ = refresh.RevokeRefreshSession(r.Context(), sess.ID, time.Now().UTC())
		}
		// Revoking an unknown token is a no-op, not an error.
		api.NoContent(w)
	}
}
