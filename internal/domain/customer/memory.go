package customer

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryDirectory keeps customers in process memory.
type MemoryDirectory struct {
	mu     sync.RWMutex
	items  map[int64]Customer
	nextID int64
}

func NewMemoryDirectory(seed ...Customer) *MemoryDirectory {
	m := &MemoryDirectory{items: make(map[int64]Customer, len(seed))}
	for _, c := range seed {
		m.items[c.ID] = c
		if c.ID > m.nextID {
			m.nextID = c.ID
		}
	}
	return m
}

func (m *MemoryDirectory) GetCustomer(_ context.Context, id, restaurantID int64) (*Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.items[id]
	if !ok || c.RestaurantID != restaurantID {
		return nil, nil
	}
	return &c, nil
}

func (m *MemoryDirectory) CreateCustomer(_ context.Context, c *Customer) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conflicts(c) {
		return nil, ErrCustomerExists
	}
	m.nextID++
	now := time.Now().UTC()
	out := *c
	out.ID = m.nextID
	out.CreatedAt = now
	out.UpdatedAt = now
	m.items[out.ID] = out
	return &out, nil
}

func (m *MemoryDirectory) UpdateCustomer(_ context.Context, c *Customer) (*Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.items[c.ID]
	if !ok || existing.RestaurantID != c.RestaurantID {
		return nil, ErrCustomerNotFound
	}
	if m.conflicts(c) {
		return nil, ErrCustomerExists
	}
	out := *c
	out.CreatedAt = existing.CreatedAt
	out.UpdatedAt = time.Now().UTC()
	m.items[out.ID] = out
	return &out, nil
}

// conflicts mirrors the per-restaurant unique email and phone indexes.
func (m *MemoryDirectory) conflicts(c *Customer) bool {
	for id, other := range m.items {
		if id == c.ID || other.RestaurantID != c.RestaurantID {
			continue
		}
		if c.Email != "" && strings.EqualFold(other.Email, c.Email) {
			return true
		}
		if c.Phone != "" && other.Phone == c.Phone {
			return true
		}
	}
	return false
}
