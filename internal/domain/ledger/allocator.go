package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// allocation is the share of a spend drawn from one earn row.
type allocation struct {
	EarnID int64
	Points int64
}

// allocate distributes requested points over earns oldest first. earns must
// already be the eligible set; consumed holds the spent or expired amount of
// each earn. Nothing is allocated unless the whole request can be covered.
func allocate(earns []Transaction, consumed map[int64]int64, requested int64) ([]allocation, error) {
	if requested <= 0 {
		return nil, ErrInvalidArgument
	}

	ordered := make([]Transaction, len(earns))
	copy(ordered, earns)
	sortFIFO(ordered)

	remaining := make([]int64, len(ordered))
	var available int64
	for i, earn := range ordered {
		r := earn.Points - consumed[earn.ID]
		if r < 0 {
			return nil, fmt.Errorf("%w: earn transaction %d is overdrawn by %d points", ErrConsistency, earn.ID, -r)
		}
		remaining[i] = r
		available += r
	}
	if available < requested {
		return nil, fmt.Errorf("%w: requested %d, available %d", ErrPointsNotEnough, requested, available)
	}

	needed := requested
	allocations := make([]allocation, 0, 2)
	for i, earn := range ordered {
		if needed == 0 {
			break
		}
		if remaining[i] <= 0 {
			continue
		}
		use := min(remaining[i], needed)
		needed -= use
		allocations = append(allocations, allocation{EarnID: earn.ID, Points: use})
	}
	return allocations, nil
}

// spendTransactions turns allocations into spend rows valued at the
// restaurant's buying rate.
func spendTransactions(pair Pair, allocations []allocation, buyingRate decimal.Decimal, now time.Time) []*Transaction {
	spends := make([]*Transaction, len(allocations))
	for i, a := range allocations {
		earnID := a.EarnID
		spends[i] = &Transaction{
			CustomerID:    pair.CustomerID,
			RestaurantID:  pair.RestaurantID,
			Kind:          KindSpend,
			Points:        -a.Points,
			MonetaryValue: decimal.NewFromInt(a.Points).DivRound(buyingRate, 2),
			OccurredAt:    now,
			SourceEarnID:  &earnID,
		}
	}
	return spends
}
