package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store with in-process storage. Used in tests
// and single-node development setups.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (m *MemoryStore) Create(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := s
	m.sessions[s.ID] = &copied
	return nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return *s, nil
}

func (m *MemoryStore) ListByUserID(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now().UTC()
	var result []Session
	for _, s := range m.sessions {
		if s.UserID != userID {
			continue
		}
		if activeOnly && !s.Usable(now) {
			continue
		}
		result = append(result, *s)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (m *MemoryStore) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now().UTC()
	count := 0
	for _, s := range m.sessions {
		if s.UserID == userID && s.Usable(now) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) OldestActiveByUser(ctx context.Context, userID uuid.UUID) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now().UTC()
	var oldest *Session
	for _, s := range m.sessions {
		if s.UserID != userID || !s.Usable(now) {
			continue
		}
		if oldest == nil || older(s, oldest) {
			oldest = s
		}
	}
	if oldest == nil {
		return Session{}, ErrNotFound
	}
	return *oldest, nil
}

// older orders by creation time, ties broken by lowest id so eviction
// stays deterministic.
func older(a, b *Session) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

func (m *MemoryStore) Revoke(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Active = false
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) RevokeByDevice(ctx context.Context, deviceID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	var revoked []uuid.UUID
	for _, s := range m.sessions {
		if s.DeviceID == deviceID && s.Active {
			s.Active = false
			s.UpdatedAt = now
			revoked = append(revoked, s.ID)
		}
	}
	return revoked, nil
}

func (m *MemoryStore) DeactivateExpired(ctx context.Context, now time.Time, limit int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, s := range m.sessions {
		if count >= limit {
			break
		}
		if s.Active && s.Expired(now) {
			s.Active = false
			s.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

var _ Store = (*MemoryStore)(nil)
