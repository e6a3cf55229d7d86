package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryPlaybackStore implements PlaybackStore without a database.
// It mirrors the Postgres behaviour, including the partial uniqueness
// of open sessions per (profile, device, content, episode), so the
// lifecycle manager can be tested against it.
type InMemoryPlaybackStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]Session
}

func NewInMemoryPlaybackStore() *InMemoryPlaybackStore {
	return &InMemoryPlaybackStore{sessions: make(map[uuid.UUID]Session)}
}

func sameEpisode(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *InMemoryPlaybackStore) Get(_ context.Context, id uuid.UUID) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *InMemoryPlaybackStore) find(profileID, contentID uuid.UUID, episodeID *uuid.UUID, openOnly bool) (Session, error) {
	var best *Session
	for _, s := range m.sessions {
		if s.ProfileID != profileID || s.ContentID != contentID || !sameEpisode(s.EpisodeID, episodeID) {
			continue
		}
		if openOnly && s.Completed {
			continue
		}
		s := s
		if best == nil || s.CreatedAt.After(best.CreatedAt) {
			best = &s
		}
	}
	if best == nil {
		return Session{}, ErrNotFound
	}
	return *best, nil
}

func (m *InMemoryPlaybackStore) FindOpen(_ context.Context, profileID, contentID uuid.UUID, episodeID *uuid.UUID) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.find(profileID, contentID, episodeID, true)
}

func (m *InMemoryPlaybackStore) FindLatest(_ context.Context, profileID, contentID uuid.UUID, episodeID *uuid.UUID) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.find(profileID, contentID, episodeID, false)
}

func (m *InMemoryPlaybackStore) Insert(_ context.Context, s Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !s.Completed {
		for _, existing := range m.sessions {
			if existing.Completed {
				continue
			}
			if existing.ProfileID == s.ProfileID && existing.Device == s.Device &&
				existing.ContentID == s.ContentID && sameEpisode(existing.EpisodeID, s.EpisodeID) {
				return Session{}, ErrConflict
			}
		}
	}

	s.ID = uuid.New()
	s.CreatedAt = time.Now().UTC()
	m.sessions[s.ID] = s
	return s, nil
}

func (m *InMemoryPlaybackStore) Update(_ context.Context, s Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.sessions[s.ID]
	if !ok {
		return Session{}, ErrNotFound
	}
	now := time.Now().UTC()
	s.CreatedAt = existing.CreatedAt
	s.UpdatedAt = &now
	m.sessions[s.ID] = s
	return s, nil
}

func (m *InMemoryPlaybackStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *InMemoryPlaybackStore) List(_ context.Context, f PlaybackFilter) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	allowed := make(map[uuid.UUID]bool, len(f.ProfileIDs))
	for _, id := range f.ProfileIDs {
		allowed[id] = true
	}

	var out []Session
	for _, s := range m.sessions {
		if !f.All && !allowed[s.ProfileID] {
			continue
		}
		if f.Completed != nil && s.Completed != *f.Completed {
			continue
		}
		if f.Device != "" && !strings.Contains(strings.ToLower(s.Device), strings.ToLower(f.Device)) {
			continue
		}
		if f.ContentID != nil && s.ContentID != *f.ContentID {
			continue
		}
		if f.EpisodeID != nil && (s.EpisodeID == nil || *s.EpisodeID != *f.EpisodeID) {
			continue
		}
		if f.StartedFrom != nil && s.StartedAt.Before(*f.StartedFrom) {
			continue
		}
		if f.StartedTo != nil && s.StartedAt.After(*f.StartedTo) {
			continue
		}
		if f.EndedFrom != nil && (s.EndedAt == nil || s.EndedAt.Before(*f.EndedFrom)) {
			continue
		}
		if f.EndedTo != nil && (s.EndedAt == nil || s.EndedAt.After(*f.EndedTo)) {
			continue
		}
		if f.MinProgress != nil && s.ProgressSeconds < *f.MinProgress {
			continue
		}
		if f.MaxProgress != nil && s.ProgressSeconds > *f.MaxProgress {
			continue
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
