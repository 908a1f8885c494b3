package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind defines supported ledger transaction kinds.
type Kind string

const (
	KindEarn   Kind = "earn"
	KindSpend  Kind = "spend"
	KindExpire Kind = "expire"
)

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindEarn, KindSpend, KindExpire:
		return true
	}
	return false
}

// Pair is the partition key of every ledger query.
type Pair struct {
	CustomerID   int64
	RestaurantID int64
}

// Transaction is a ledger row. Rows are append-only; only IsExpired is ever
// flipped, and only on earn rows.
type Transaction struct {
	ID            int64           `db:"id"`
	CustomerID    int64           `db:"customer_id"`
	RestaurantID  int64           `db:"restaurant_id"`
	Kind          Kind            `db:"kind"`
	Points        int64           `db:"points"`
	MonetaryValue decimal.Decimal `db:"monetary_value"`
	OccurredAt    time.Time       `db:"occurred_at"`
	IsExpired     bool            `db:"is_expired"`
	SourceEarnID  *int64          `db:"source_earn_id"`
	ReceiptID     *string         `db:"receipt_id"`
}

// Pair returns the (customer, restaurant) partition of the transaction.
func (t *Transaction) Pair() Pair {
	return Pair{CustomerID: t.CustomerID, RestaurantID: t.RestaurantID}
}

// Filter narrows ListByCustomerRestaurant results.
type Filter struct {
	Kind           *Kind
	IncludeExpired bool
	From           *time.Time
	To             *time.Time

	// BeforeID keeps rows with an id below it. Zero means no bound.
	BeforeID int64
}

// Page controls simple list pagination.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) Normalized() Page {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// EarnQuery selects earn transactions of a pair for expiry and allocation.
// Zero times disable the corresponding bound.
type EarnQuery struct {
	OccurredBefore time.Time // strict: occurred_at < OccurredBefore
	OccurredFrom   time.Time // inclusive: occurred_at >= OccurredFrom
	OnlyPositive   bool
}

// Earned values a purchase: floor(amount * buyingRate).
func Earned(amount, buyingRate decimal.Decimal) int64 {
	return amount.Mul(buyingRate).Floor().IntPart()
}
