package ledger

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Ledger is the contract of the ledger store. Lookups that find nothing
// return a nil result and a nil error; infrastructure failures wrap
// ErrStoreUnavailable.
type Ledger interface {
	// Append persists t, assigns t.ID and returns it.
	Append(ctx context.Context, t *Transaction) (int64, error)
	AppendBatch(ctx context.Context, ts []*Transaction) error

	FindByID(ctx context.Context, id int64) (*Transaction, error)
	FindByReceiptID(ctx context.Context, receiptID string) (*Transaction, error)

	// ListByCustomerRestaurant returns one page, newest first, and the total
	// number of rows matching the filter.
	ListByCustomerRestaurant(ctx context.Context, pair Pair, filter Filter, page Page) ([]Transaction, int, error)

	// ListEarns returns unexpired earn rows of the pair ordered by
	// (occurred_at, id) ascending.
	ListEarns(ctx context.Context, pair Pair, q EarnQuery) ([]Transaction, error)

	SumPoints(ctx context.Context, pair Pair) (int64, error)

	// MarkExpired flips is_expired on an unexpired earn row.
	MarkExpired(ctx context.Context, earnID int64) error

	// SumConsumedForEarn returns the magnitude of all spend and expire
	// points drawn from the earn row.
	SumConsumedForEarn(ctx context.Context, earnID int64) (int64, error)
	SumConsumedForEarns(ctx context.Context, earnIDs []int64) (map[int64]int64, error)
}

// UnitOfWork is a Ledger bound to one open atomic unit of work.
type UnitOfWork interface {
	Ledger

	// SQLTx returns the database transaction backing the unit of work so
	// that collaborators can write in the same commit. Nil for stores that
	// are not backed by SQL.
	SQLTx() *sqlx.Tx

	// OnCommit registers fn to run after the unit of work commits. It never
	// runs when the unit rolls back.
	OnCommit(fn func())
}

// Store is a Ledger that can open per-pair units of work.
type Store interface {
	Ledger

	// WithinPair runs fn inside one atomic unit of work that is serialized
	// against every other unit of work for the same pair. The unit commits
	// when fn returns nil and rolls back otherwise.
	WithinPair(ctx context.Context, pair Pair, fn func(ctx context.Context, uow UnitOfWork) error) error
}
