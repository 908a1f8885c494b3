package restaurant

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps restaurant configuration in process memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[int64]Restaurant
}

func NewMemoryRepository(seed ...Restaurant) *MemoryRepository {
	m := &MemoryRepository{items: make(map[int64]Restaurant, len(seed))}
	for _, r := range seed {
		m.items[r.ID] = r
	}
	return m
}

func (m *MemoryRepository) GetByID(_ context.Context, id int64) (*Restaurant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *MemoryRepository) Upsert(_ context.Context, r *Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := m.items[r.ID]; ok {
		r.CreatedAt = existing.CreatedAt
	} else {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	m.items[r.ID] = *r
	return nil
}
