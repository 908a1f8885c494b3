package voucher

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/loyaltyhub/loyalty-api/internal/domain/ledger"
)

// MemoryRepository keeps vouchers in process memory. A voucher created
// inside a unit of work becomes visible only once that unit commits.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Voucher
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[string]Voucher)}
}

func (m *MemoryRepository) Create(_ context.Context, uow ledger.UnitOfWork, v *Voucher) error {
	m.mu.RLock()
	_, taken := m.items[v.ShortCode]
	m.mu.RUnlock()
	if taken {
		return fmt.Errorf("voucher %s already exists", v.ShortCode)
	}

	staged := *v
	if uow == nil {
		m.put(staged)
		return nil
	}
	uow.OnCommit(func() { m.put(staged) })
	return nil
}

func (m *MemoryRepository) put(v Voucher) {
	m.mu.Lock()
	m.items[v.ShortCode] = v
	m.mu.Unlock()
}

func (m *MemoryRepository) GetByCode(_ context.Context, code string) (*Voucher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[code]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (m *MemoryRepository) ListByPair(_ context.Context, customerID, restaurantID int64, page ledger.Page) ([]Voucher, int, error) {
	m.mu.RLock()
	matched := make([]Voucher, 0)
	for _, v := range m.items {
		if v.CustomerID == customerID && v.RestaurantID == restaurantID {
			matched = append(matched, v)
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ShortCode < matched[j].ShortCode
	})

	total := len(matched)
	if page.Offset >= total {
		return []Voucher{}, total, nil
	}
	end := page.Offset + page.Limit
	if end > total {
		end = total
	}
	return matched[page.Offset:end], total, nil
}

func (m *MemoryRepository) MarkUsed(_ context.Context, code string, usedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.items[code]
	if !ok || v.IsUsed {
		return false, nil
	}
	v.IsUsed = true
	v.UsedAt = &usedAt
	m.items[code] = v
	return true, nil
}
