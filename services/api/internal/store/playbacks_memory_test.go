package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func seedSession(t *testing.T, m *InMemoryPlaybackStore, s Session) Session {
	t.Helper()
	out, err := m.Insert(context.Background(), s)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return out
}

func TestInMemoryInsert_OpenSessionUniqueness(t *testing.T) {
	m := NewInMemoryPlaybackStore()
	profile, content := uuid.New(), uuid.New()

	seedSession(t, m, Session{ProfileID: profile, ContentID: content, Device: "tv", StartedAt: time.Now()})

	_, err := m.Insert(context.Background(), Session{ProfileID: profile, ContentID: content, Device: "tv", StartedAt: time.Now()})
	if err != ErrConflict {
		t.Fatalf("expected ErrConflict for duplicate open tuple, got %v", err)
	}

	// A different device is a different tuple.
	if _, err := m.Insert(context.Background(), Session{ProfileID: profile, ContentID: content, Device: "web", StartedAt: time.Now()}); err != nil {
		t.Fatalf("different device should insert: %v", err)
	}
}

func TestInMemoryInsert_CompletedRowDoesNotBlock(t *testing.T) {
	m := NewInMemoryPlaybackStore()
	profile, content := uuid.New(), uuid.New()

	seedSession(t, m, Session{ProfileID: profile, ContentID: content, Device: "tv", StartedAt: time.Now(), Completed: true})

	if _, err := m.Insert(context.Background(), Session{ProfileID: profile, ContentID: content, Device: "tv", StartedAt: time.Now()}); err != nil {
		t.Fatalf("completed rows must not block new inserts: %v", err)
	}
}

func TestInMemoryInsert_NilEpisodesShareOneSlot(t *testing.T) {
	m := NewInMemoryPlaybackStore()
	profile, content := uuid.New(), uuid.New()

	seedSession(t, m, Session{ProfileID: profile, ContentID: content, Device: "tv", StartedAt: time.Now()})

	// A second movie session (nil episode) for the same tuple conflicts.
	_, err := m.Insert(context.Background(), Session{ProfileID: profile, ContentID: content, Device: "tv", StartedAt: time.Now()})
	if err != ErrConflict {
		t.Fatalf("expected ErrConflict for second nil-episode session, got %v", err)
	}

	// Episode sessions of the same content are distinct tuples.
	ep := uuid.New()
	if _, err := m.Insert(context.Background(), Session{ProfileID: profile, ContentID: content, EpisodeID: &ep, Device: "tv", StartedAt: time.Now()}); err != nil {
		t.Fatalf("episode session should insert: %v", err)
	}
}

func TestInMemoryFindOpen_And_FindLatest(t *testing.T) {
	m := NewInMemoryPlaybackStore()
	ctx := context.Background()
	profile, content := uuid.New(), uuid.New()

	if _, err := m.FindOpen(ctx, profile, content, nil); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	done := seedSession(t, m, Session{ProfileID: profile, ContentID: content, Device: "tv", StartedAt: time.Now().Add(-time.Hour), Completed: true})

	if _, err := m.FindOpen(ctx, profile, content, nil); err != ErrNotFound {
		t.Fatalf("completed session must not be FindOpen'able, got %v", err)
	}
	latest, err := m.FindLatest(ctx, profile, content, nil)
	if err != nil {
		t.Fatalf("find latest: %v", err)
	}
	if latest.ID != done.ID {
		t.Fatalf("expected latest %s, got %s", done.ID, latest.ID)
	}
}

func TestInMemoryList_FiltersAndScoping(t *testing.T) {
	m := NewInMemoryPlaybackStore()
	ctx := context.Background()
	p1, p2 := uuid.New(), uuid.New()
	c1, c2 := uuid.New(), uuid.New()
	base := time.Now().Add(-time.Hour)

	seedSession(t, m, Session{ProfileID: p1, ContentID: c1, Device: "tv", StartedAt: base, ProgressSeconds: 100})
	seedSession(t, m, Session{ProfileID: p1, ContentID: c2, Device: "web", StartedAt: base.Add(time.Minute), ProgressSeconds: 900, Completed: true})
	seedSession(t, m, Session{ProfileID: p2, ContentID: c1, Device: "tv", StartedAt: base.Add(2 * time.Minute)})

	// Empty scoping yields nothing.
	out, err := m.List(ctx, PlaybackFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("unscoped list must be empty, got %d", len(out))
	}

	// Profile scoping.
	out, _ = m.List(ctx, PlaybackFilter{ProfileIDs: []uuid.UUID{p1}, Limit: 10})
	if len(out) != 2 {
		t.Fatalf("expected 2 sessions for p1, got %d", len(out))
	}

	// Newest first.
	if out[0].ContentID != c2 {
		t.Fatalf("expected newest session first, got content %s", out[0].ContentID)
	}

	// Completed filter.
	tr := true
	out, _ = m.List(ctx, PlaybackFilter{ProfileIDs: []uuid.UUID{p1}, Completed: &tr, Limit: 10})
	if len(out) != 1 || out[0].ContentID != c2 {
		t.Fatalf("completed filter mismatch: %+v", out)
	}

	// Device substring, case-insensitive.
	out, _ = m.List(ctx, PlaybackFilter{ProfileIDs: []uuid.UUID{p1}, Device: "TV", Limit: 10})
	if len(out) != 1 || out[0].ContentID != c1 {
		t.Fatalf("device filter mismatch: %+v", out)
	}

	// Progress bounds.
	minP := 500
	out, _ = m.List(ctx, PlaybackFilter{ProfileIDs: []uuid.UUID{p1}, MinProgress: &minP, Limit: 10})
	if len(out) != 1 || out[0].ProgressSeconds != 900 {
		t.Fatalf("min progress filter mismatch: %+v", out)
	}

	// Admin sees everything.
	out, _ = m.List(ctx, PlaybackFilter{All: true, Limit: 10})
	if len(out) != 3 {
		t.Fatalf("expected all 3 sessions with All, got %d", len(out))
	}
}

func TestInMemoryUpdate_And_Delete(t *testing.T) {
	m := NewInMemoryPlaybackStore()
	ctx := context.Background()
	s := seedSession(t, m, Session{ProfileID: uuid.New(), ContentID: uuid.New(), Device: "tv", StartedAt: time.Now()})

	s.ProgressSeconds = 250
	updated, err := m.Update(ctx, s)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ProgressSeconds != 250 {
		t.Fatalf("expected 250, got %d", updated.ProgressSeconds)
	}

	got, err := m.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ProgressSeconds != 250 {
		t.Fatalf("expected persisted 250, got %d", got.ProgressSeconds)
	}

	if err := m.Delete(ctx, s.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(ctx, s.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := m.Delete(ctx, s.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on repeat delete, got %v", err)
	}
}
