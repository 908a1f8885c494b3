package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/loyaltyhub/loyalty-api/internal/domain/restaurant"
)

// expireWithin retires the remaining balance of every earn row of the pair
// that is past the restaurant's lifetime. It must run inside a unit of work;
// a second run over the same ledger finds nothing to do.
func expireWithin(ctx context.Context, l Ledger, rest *restaurant.Restaurant, pair Pair, now time.Time) ([]Transaction, error) {
	candidates, err := l.ListEarns(ctx, pair, EarnQuery{
		OccurredBefore: rest.PointsCutoff(now),
		OnlyPositive:   true,
	})
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(candidates))
	for i, earn := range candidates {
		ids[i] = earn.ID
	}
	consumed, err := l.SumConsumedForEarns(ctx, ids)
	if err != nil {
		return nil, err
	}

	expires := make([]*Transaction, 0, len(candidates))
	for _, earn := range candidates {
		remaining := earn.Points - consumed[earn.ID]
		if remaining < 0 {
			return nil, fmt.Errorf("%w: earn transaction %d is overdrawn by %d points", ErrConsistency, earn.ID, -remaining)
		}
		if remaining == 0 {
			// isExpired is only ever set together with an expire row.
			continue
		}

		earnID := earn.ID
		expires = append(expires, &Transaction{
			CustomerID:    pair.CustomerID,
			RestaurantID:  pair.RestaurantID,
			Kind:          KindExpire,
			Points:        -remaining,
			MonetaryValue: decimal.NewFromInt(remaining).Mul(rest.SellingRate).Round(2),
			OccurredAt:    now,
			SourceEarnID:  &earnID,
		})

		if err := l.MarkExpired(ctx, earn.ID); err != nil {
			return nil, err
		}
	}

	if err := l.AppendBatch(ctx, expires); err != nil {
		return nil, err
	}

	created := make([]Transaction, len(expires))
	for i, t := range expires {
		created[i] = *t
	}
	return created, nil
}
