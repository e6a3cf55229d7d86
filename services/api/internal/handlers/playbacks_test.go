package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/example/streaming-platform/services/api/internal/store"
)

func seedPlayback(t *testing.T, m *store.InMemoryPlaybackStore, s store.Session) store.Session {
	t.Helper()
	out, err := m.Insert(context.Background(), s)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return out
}

func TestAdminListPlaybacks_All(t *testing.T) {
	mem := store.NewInMemoryPlaybackStore()
	p1, p2 := uuid.New(), uuid.New()
	seedPlayback(t, mem, store.Session{ProfileID: p1, ContentID: uuid.New(), Device: "tv", StartedAt: time.Now()})
	seedPlayback(t, mem, store.Session{ProfileID: p2, ContentID: uuid.New(), Device: "web", StartedAt: time.Now()})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/admin/playbacks", nil)
	AdminListPlaybacks(mem).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var out []store.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(out))
	}
}

func TestAdminListPlaybacks_ProfileFilter(t *testing.T) {
	mem := store.NewInMemoryPlaybackStore()
	p1, p2 := uuid.New(), uuid.New()
	seedPlayback(t, mem, store.Session{ProfileID: p1, ContentID: uuid.New(), Device: "tv", StartedAt: time.Now()})
	seedPlayback(t, mem, store.Session{ProfileID: p2, ContentID: uuid.New(), Device: "web", StartedAt: time.Now()})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/admin/playbacks?profile_id="+p1.String(), nil)
	AdminListPlaybacks(mem).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var out []store.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].ProfileID != p1 {
		t.Fatalf("expected only p1 sessions, got %+v", out)
	}
}

func TestAdminListPlaybacks_CompletedAndDeviceFilters(t *testing.T) {
	mem := store.NewInMemoryPlaybackStore()
	p := uuid.New()
	seedPlayback(t, mem, store.Session{ProfileID: p, ContentID: uuid.New(), Device: "living-room tv", StartedAt: time.Now()})
	seedPlayback(t, mem, store.Session{ProfileID: p, ContentID: uuid.New(), Device: "web", StartedAt: time.Now(), Completed: true})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/admin/playbacks?completed=true&device=web", nil)
	AdminListPlaybacks(mem).ServeHTTP(rr, req)

	var out []store.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].Device != "web" || !out[0].Completed {
		t.Fatalf("filter mismatch: %+v", out)
	}
}

func TestAdminListPlaybacks_IgnoresBadQueryValues(t *testing.T) {
	mem := store.NewInMemoryPlaybackStore()
	p := uuid.New()
	seedPlayback(t, mem, store.Session{ProfileID: p, ContentID: uuid.New(), Device: "tv", StartedAt: time.Now()})

	// Unparseable values fall back to "no filter" rather than erroring.
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/admin/playbacks?completed=maybe&min_progress=abc&started_from=yesterday", nil)
	AdminListPlaybacks(mem).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var out []store.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 session, got %d", len(out))
	}
}

func TestAdminListPlaybacks_ZeroLimitUsesDefault(t *testing.T) {
	mem := store.NewInMemoryPlaybackStore()
	p := uuid.New()
	seedPlayback(t, mem, store.Session{ProfileID: p, ContentID: uuid.New(), Device: "tv", StartedAt: time.Now()})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/admin/playbacks?limit=0", nil)
	AdminListPlaybacks(mem).ServeHTTP(rr, req)

	var out []store.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("limit=0 must fall back to the default, got %d sessions", len(out))
	}
}

func adminPlaybackRouter(mem *store.InMemoryPlaybackStore) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/v1/admin/playbacks/{playback_id}", AdminGetPlayback(mem))
	r.Put("/v1/admin/playbacks/{playback_id}", AdminUpdatePlayback(mem))
	r.Delete("/v1/admin/playbacks/{playback_id}", AdminDeletePlayback(mem))
	return r
}

func TestAdminGetPlayback(t *testing.T) {
	mem := store.NewInMemoryPlaybackStore()
	s := seedPlayback(t, mem, store.Session{ProfileID: uuid.New(), ContentID: uuid.New(), Device: "tv", StartedAt: time.Now()})
	r := adminPlaybackRouter(mem)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/admin/playbacks/"+s.ID.String(), nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var out store.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != s.ID {
		t.Fatalf("expected session %s, got %s", s.ID, out.ID)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/v1/admin/playbacks/"+uuid.NewString(), nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rr.Code)
	}
}

func TestAdminUpdatePlayback_DirectSet(t *testing.T) {
	mem := store.NewInMemoryPlaybackStore()
	s := seedPlayback(t, mem, store.Session{ProfileID: uuid.New(), ContentID: uuid.New(), Device: "tv", StartedAt: time.Now(), ProgressSeconds: 400})
	r := adminPlaybackRouter(mem)

	// Progress moves backwards here, unlike the client-facing heartbeat.
	rr := httptest.NewRecorder()
	body := strings.NewReader(`{"progress_seconds": 10, "completed": true}`)
	r.ServeHTTP(rr, httptest.NewRequest("PUT", "/v1/admin/playbacks/"+s.ID.String(), body))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var out store.Session
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ProgressSeconds != 10 || !out.Completed || out.EndedAt == nil {
		t.Fatalf("direct set mismatch: %+v", out)
	}
}

func TestAdminUpdatePlayback_NegativeProgress(t *testing.T) {
	mem := store.NewInMemoryPlaybackStore()
	s := seedPlayback(t, mem, store.Session{ProfileID: uuid.New(), ContentID: uuid.New(), Device: "tv", StartedAt: time.Now(), ProgressSeconds: 400})
	r := adminPlaybackRouter(mem)

	rr := httptest.NewRecorder()
	body := strings.NewReader(`{"progress_seconds": -5}`)
	r.ServeHTTP(rr, httptest.NewRequest("PUT", "/v1/admin/playbacks/"+s.ID.String(), body))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}

	stored, err := mem.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.ProgressSeconds != 400 {
		t.Fatalf("rejected update must not persist, got %d", stored.ProgressSeconds)
	}
}

func TestAdminDeletePlayback(t *testing.T) {
	mem := store.NewInMemoryPlaybackStore()
	s := seedPlayback(t, mem, store.Session{ProfileID: uuid.New(), ContentID: uuid.New(), Device: "tv", StartedAt: time.Now()})
	r := adminPlaybackRouter(mem)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("DELETE", "/v1/admin/playbacks/"+s.ID.String(), nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if _, err := mem.Get(context.Background(), s.ID); err != store.ErrNotFound {
		t.Fatalf("expected session gone, got %v", err)
	}

	// Repeating the delete is a no-op.
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("DELETE", "/v1/admin/playbacks/"+s.ID.String(), nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on repeat, got %d", rr.Code)
	}
}
