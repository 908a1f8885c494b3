package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"
)

// MemoryStore is an in-process Store. Units of work for the same pair are
// serialized with a per-pair mutex; their writes are staged and applied on
// commit only.
type MemoryStore struct {
	mu       sync.RWMutex
	rows     map[int64]*Transaction
	receipts map[string]int64
	nextID   int64

	pairMu sync.Mutex
	pairs  map[Pair]*sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:     make(map[int64]*Transaction),
		receipts: make(map[string]int64),
		pairs:    make(map[Pair]*sync.Mutex),
	}
}

func (s *MemoryStore) pairLock(pair Pair) *sync.Mutex {
	s.pairMu.Lock()
	defer s.pairMu.Unlock()

	m, ok := s.pairs[pair]
	if !ok {
		m = &sync.Mutex{}
		s.pairs[pair] = m
	}
	return m
}

func (s *MemoryStore) WithinPair(ctx context.Context, pair Pair, fn func(ctx context.Context, uow UnitOfWork) error) error {
	lock := s.pairLock(pair)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	u := s.begin()
	if err := fn(ctx, u); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := u.commit(); err != nil {
		return err
	}
	for _, hook := range u.onCommit {
		hook()
	}
	return nil
}

// autoCommit runs a single write outside of WithinPair.
func (s *MemoryStore) autoCommit(ctx context.Context, pair Pair, fn func(u *memUnit) error) error {
	return s.WithinPair(ctx, pair, func(_ context.Context, uow UnitOfWork) error {
		return fn(uow.(*memUnit))
	})
}

func (s *MemoryStore) Append(ctx context.Context, t *Transaction) (int64, error) {
	if t == nil {
		return 0, ErrInvalidArgument
	}
	var id int64
	err := s.autoCommit(ctx, t.Pair(), func(u *memUnit) error {
		var err error
		id, err = u.Append(ctx, t)
		return err
	})
	return id, err
}

func (s *MemoryStore) AppendBatch(ctx context.Context, ts []*Transaction) error {
	if len(ts) == 0 {
		return nil
	}
	return s.autoCommit(ctx, ts[0].Pair(), func(u *memUnit) error {
		return u.AppendBatch(ctx, ts)
	})
}

func (s *MemoryStore) MarkExpired(ctx context.Context, earnID int64) error {
	s.mu.RLock()
	row, ok := s.rows[earnID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: earn transaction %d is missing or already expired", ErrConsistency, earnID)
	}
	return s.autoCommit(ctx, row.Pair(), func(u *memUnit) error {
		return u.MarkExpired(ctx, earnID)
	})
}

func (s *MemoryStore) FindByID(ctx context.Context, id int64) (*Transaction, error) {
	return s.begin().FindByID(ctx, id)
}

func (s *MemoryStore) FindByReceiptID(ctx context.Context, receiptID string) (*Transaction, error) {
	return s.begin().FindByReceiptID(ctx, receiptID)
}

func (s *MemoryStore) ListByCustomerRestaurant(ctx context.Context, pair Pair, filter Filter, page Page) ([]Transaction, int, error) {
	return s.begin().ListByCustomerRestaurant(ctx, pair, filter, page)
}

func (s *MemoryStore) ListEarns(ctx context.Context, pair Pair, q EarnQuery) ([]Transaction, error) {
	return s.begin().ListEarns(ctx, pair, q)
}

func (s *MemoryStore) SumPoints(ctx context.Context, pair Pair) (int64, error) {
	return s.begin().SumPoints(ctx, pair)
}

func (s *MemoryStore) SumConsumedForEarn(ctx context.Context, earnID int64) (int64, error) {
	return s.begin().SumConsumedForEarn(ctx, earnID)
}

func (s *MemoryStore) SumConsumedForEarns(ctx context.Context, earnIDs []int64) (map[int64]int64, error) {
	return s.begin().SumConsumedForEarns(ctx, earnIDs)
}

func (s *MemoryStore) begin() *memUnit {
	return &memUnit{store: s, expired: make(map[int64]bool)}
}

// memUnit stages appends and expiry flags until commit.
type memUnit struct {
	store    *MemoryStore
	staged   []*Transaction
	expired  map[int64]bool
	onCommit []func()
}

func (u *memUnit) SQLTx() *sqlx.Tx { return nil }

func (u *memUnit) OnCommit(fn func()) { u.onCommit = append(u.onCommit, fn) }

func (u *memUnit) Append(_ context.Context, t *Transaction) (int64, error) {
	if t == nil || !t.Kind.IsValid() {
		return 0, ErrInvalidArgument
	}
	if t.ReceiptID != nil {
		u.store.mu.RLock()
		_, taken := u.store.receipts[*t.ReceiptID]
		u.store.mu.RUnlock()
		if taken {
			return 0, ErrDuplicateReceipt
		}
		for _, st := range u.staged {
			if st.ReceiptID != nil && *st.ReceiptID == *t.ReceiptID {
				return 0, ErrDuplicateReceipt
			}
		}
	}

	row := *t
	row.ID = u.store.allocateID()
	u.staged = append(u.staged, &row)
	t.ID = row.ID
	return row.ID, nil
}

func (u *memUnit) AppendBatch(ctx context.Context, ts []*Transaction) error {
	for _, t := range ts {
		if _, err := u.Append(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (u *memUnit) MarkExpired(_ context.Context, earnID int64) error {
	row, ok := u.lookup(earnID)
	if !ok || row.Kind != KindEarn || row.IsExpired {
		return fmt.Errorf("%w: earn transaction %d is missing or already expired", ErrConsistency, earnID)
	}
	u.expired[earnID] = true
	return nil
}

func (u *memUnit) FindByID(_ context.Context, id int64) (*Transaction, error) {
	row, ok := u.lookup(id)
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (u *memUnit) FindByReceiptID(_ context.Context, receiptID string) (*Transaction, error) {
	for _, row := range u.snapshot() {
		if row.ReceiptID != nil && *row.ReceiptID == receiptID {
			r := row
			return &r, nil
		}
	}
	return nil, nil
}

func (u *memUnit) ListByCustomerRestaurant(_ context.Context, pair Pair, filter Filter, page Page) ([]Transaction, int, error) {
	matched := make([]Transaction, 0)
	for _, row := range u.snapshot() {
		if row.Pair() != pair {
			continue
		}
		if filter.Kind != nil && row.Kind != *filter.Kind {
			continue
		}
		if !filter.IncludeExpired && row.IsExpired {
			continue
		}
		if filter.From != nil && row.OccurredAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && row.OccurredAt.After(*filter.To) {
			continue
		}
		if filter.BeforeID > 0 && row.ID >= filter.BeforeID {
			continue
		}
		matched = append(matched, row)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := len(matched)
	page = page.Normalized()
	if page.Offset >= total {
		return []Transaction{}, total, nil
	}
	end := page.Offset + page.Limit
	if end > total {
		end = total
	}
	return matched[page.Offset:end], total, nil
}

func (u *memUnit) ListEarns(_ context.Context, pair Pair, q EarnQuery) ([]Transaction, error) {
	earns := make([]Transaction, 0)
	for _, row := range u.snapshot() {
		if row.Pair() != pair || row.Kind != KindEarn || row.IsExpired {
			continue
		}
		if !q.OccurredBefore.IsZero() && !row.OccurredAt.Before(q.OccurredBefore) {
			continue
		}
		if !q.OccurredFrom.IsZero() && row.OccurredAt.Before(q.OccurredFrom) {
			continue
		}
		if q.OnlyPositive && row.Points <= 0 {
			continue
		}
		earns = append(earns, row)
	}
	sortFIFO(earns)
	return earns, nil
}

func (u *memUnit) SumPoints(_ context.Context, pair Pair) (int64, error) {
	var sum int64
	for _, row := range u.snapshot() {
		if row.Pair() == pair {
			sum += row.Points
		}
	}
	return sum, nil
}

func (u *memUnit) SumConsumedForEarn(ctx context.Context, earnID int64) (int64, error) {
	consumed, err := u.SumConsumedForEarns(ctx, []int64{earnID})
	if err != nil {
		return 0, err
	}
	return consumed[earnID], nil
}

func (u *memUnit) SumConsumedForEarns(_ context.Context, earnIDs []int64) (map[int64]int64, error) {
	consumed := make(map[int64]int64, len(earnIDs))
	for _, id := range earnIDs {
		consumed[id] = 0
	}
	for _, row := range u.snapshot() {
		if row.SourceEarnID == nil || row.Kind == KindEarn {
			continue
		}
		if _, ok := consumed[*row.SourceEarnID]; ok {
			consumed[*row.SourceEarnID] += -row.Points
		}
	}
	return consumed, nil
}

// snapshot merges committed rows with the unit's staged writes.
func (u *memUnit) snapshot() []Transaction {
	u.store.mu.RLock()
	rows := make([]Transaction, 0, len(u.store.rows)+len(u.staged))
	for _, row := range u.store.rows {
		r := *row
		if u.expired[r.ID] {
			r.IsExpired = true
		}
		rows = append(rows, r)
	}
	u.store.mu.RUnlock()

	for _, row := range u.staged {
		r := *row
		if u.expired[r.ID] {
			r.IsExpired = true
		}
		rows = append(rows, r)
	}
	return rows
}

func (u *memUnit) lookup(id int64) (Transaction, bool) {
	for _, row := range u.staged {
		if row.ID == id {
			r := *row
			r.IsExpired = r.IsExpired || u.expired[id]
			return r, true
		}
	}

	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	row, ok := u.store.rows[id]
	if !ok {
		return Transaction{}, false
	}
	r := *row
	r.IsExpired = r.IsExpired || u.expired[id]
	return r, true
}

func (u *memUnit) commit() error {
	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range u.staged {
		if row.ReceiptID == nil {
			continue
		}
		if _, taken := s.receipts[*row.ReceiptID]; taken {
			return ErrDuplicateReceipt
		}
	}

	for id := range u.expired {
		if row, ok := s.rows[id]; ok {
			row.IsExpired = true
		}
	}
	for _, row := range u.staged {
		if u.expired[row.ID] {
			row.IsExpired = true
		}
		s.rows[row.ID] = row
		if row.ReceiptID != nil {
			s.receipts[*row.ReceiptID] = row.ID
		}
	}
	return nil
}

func (s *MemoryStore) allocateID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

func sortFIFO(ts []Transaction) {
	sort.SliceStable(ts, func(i, j int) bool {
		if !ts[i].OccurredAt.Equal(ts[j].OccurredAt) {
			return ts[i].OccurredAt.Before(ts[j].OccurredAt)
		}
		return ts[i].ID < ts[j].ID
	})
}
