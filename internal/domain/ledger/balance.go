package ledger

import (
	"context"
	"fmt"
)

// balanceWithin sums the signed points of the pair. Expiry must already have
// run in the same unit of work. A negative sum is reported, never clamped.
func balanceWithin(ctx context.Context, l Ledger, pair Pair) (int64, error) {
	sum, err := l.SumPoints(ctx, pair)
	if err != nil {
		return 0, err
	}
	if sum < 0 {
		return sum, fmt.Errorf("%w: balance of customer %d at restaurant %d is %d",
			ErrConsistency, pair.CustomerID, pair.RestaurantID, sum)
	}
	return sum, nil
}
