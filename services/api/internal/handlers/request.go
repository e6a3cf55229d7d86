package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/streaming-platform/internal/platform/api"
	"github.com/example/streaming-platform/internal/platform/auth"
	"github.com/example/streaming-platform/internal/platform/httpserver"
)

const maxBodyBytes = 1 << 20

func rid(r *http.Request) string {
	return httpserver.RequestIDFromContext(r.Context())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		api.BadRequest(w, "INVALID_JSON", "invalid JSON", rid(r), nil)
		return false
	}
	return true
}

// callerID returns the authenticated user's id, writing the error
// response itself when the request is not authenticated.
func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := auth.UserIDFromContext(r.Context())
	if !ok || raw == "" {
		api.Unauthorized(w, "UNAUTHORIZED", "authentication required", rid(r))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		api.Unauthorized(w, "UNAUTHORIZED", "invalid subject", rid(r))
		return uuid.Nil, false
	}
	return id, true
}

func pathUUID(w http.ResponseWriter, r *http.Request, raw, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		api.BadRequest(w, "INVALID_ID", name+" must be a UUID", rid(r), nil)
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads a positive pagination value, falling back on anything
// unparseable. Zero is rejected too so limit=0 cannot empty a listing.
func queryInt(r *http.Request, key string, fallback, max int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

func queryIntPtr(r *http.Request, key string) *int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func queryUUIDPtr(r *http.Request, key string) *uuid.UUID {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil
	}
	return &id
}

func queryBoolPtr(r *http.Request, key string) *bool {
	v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	switch v {
	case "true", "1":
		b := true
		return &b
	case "false", "0":
		b := false
		return &b
	}
	return nil
}

func queryTimePtr(r *http.Request, key string) *time.Time {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &t
}
