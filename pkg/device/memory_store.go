package device

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/devicetrust/pkg/trust"
)

// MemoryStore implements Store with in-process storage. Used in tests
// and single-node development setups.
type MemoryStore struct {
	mu      sync.RWMutex
	devices map[uuid.UUID]*Device
	byHash  map[string]uuid.UUID
}

// NewMemoryStore creates an empty in-memory device store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		devices: make(map[uuid.UUID]*Device),
		byHash:  make(map[string]uuid.UUID),
	}
}

func (m *MemoryStore) Create(ctx context.Context, d Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byHash[d.Hash]; exists {
		return ErrAlreadyRegistered
	}

	copied := d
	m.devices[d.ID] = &copied
	m.byHash[d.Hash] = d.ID
	return nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id uuid.UUID) (Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[id]
	if !ok {
		return Device{}, ErrNotFound
	}
	return *d, nil
}

func (m *MemoryStore) FindByHash(ctx context.Context, hash string) (Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byHash[hash]
	if !ok {
		return Device{}, ErrNotFound
	}
	return *m.devices[id], nil
}

func (m *MemoryStore) FindActiveByUserID(ctx context.Context, userID uuid.UUID) ([]Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []Device
	for _, d := range m.devices {
		if d.UserID == userID && d.Active {
			result = append(result, *d)
		}
	}
	return result, nil
}

func (m *MemoryStore) ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Device, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []Device
	for _, d := range m.devices {
		if d.UserID == userID {
			all = append(all, *d)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() < all[j].ID.String()
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *MemoryStore) UpdateTrust(ctx context.Context, id uuid.UUID, score int, level trust.Level) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok {
		return ErrNotFound
	}
	d.TrustScore = score
	d.TrustLevel = level
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) Revoke(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok {
		return ErrNotFound
	}
	d.Active = false
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) UpdateLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok {
		return ErrNotFound
	}
	d.LastUsedAt = &at
	d.UpdatedAt = at
	return nil
}

var _ Store = (*MemoryStore)(nil)
