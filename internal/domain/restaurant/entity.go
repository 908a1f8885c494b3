package restaurant

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Restaurant holds the loyalty configuration of one restaurant.
type Restaurant struct {
	ID                   int64           `db:"id" json:"id"`
	BuyingRate           decimal.Decimal `db:"buying_rate" json:"buying_rate"`
	SellingRate          decimal.Decimal `db:"selling_rate" json:"selling_rate"`
	CreditPointsLifeTime int             `db:"credit_points_lifetime_days" json:"credit_points_lifetime_days"`
	VoucherLifeTime      int             `db:"voucher_lifetime_minutes" json:"voucher_lifetime_minutes"`
	VoucherMinValue      decimal.Decimal `db:"voucher_min_value" json:"voucher_min_value"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// MinVoucherValue is the lowest VoucherMinValue a restaurant may configure.
var MinVoucherValue = decimal.NewFromInt(10)

// Validate checks the configuration before it is stored or used for
// accounting.
func (r *Restaurant) Validate() error {
	switch {
	case r.ID <= 0:
		return fmt.Errorf("%w: restaurant id must be greater than 0", ErrInvalidConfig)
	case !r.BuyingRate.IsPositive():
		return fmt.Errorf("%w: buying rate must be greater than 0", ErrInvalidConfig)
	case !r.SellingRate.IsPositive():
		return fmt.Errorf("%w: selling rate must be greater than 0", ErrInvalidConfig)
	case r.CreditPointsLifeTime <= 0:
		return fmt.Errorf("%w: credit points lifetime must be greater than 0", ErrInvalidConfig)
	case r.VoucherLifeTime <= 0:
		return fmt.Errorf("%w: voucher lifetime must be greater than 0", ErrInvalidConfig)
	case r.VoucherMinValue.LessThan(MinVoucherValue):
		return fmt.Errorf("%w: voucher minimum value must be at least %s", ErrInvalidConfig, MinVoucherValue)
	}
	return nil
}

// PointsCutoff returns the instant before which earned points are past
// their lifetime.
func (r *Restaurant) PointsCutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -r.CreditPointsLifeTime)
}

// PointsExpireAt returns when points earned at t stop being spendable.
func (r *Restaurant) PointsExpireAt(t time.Time) time.Time {
	return t.AddDate(0, 0, r.CreditPointsLifeTime)
}

// VoucherExpiresAt returns when a voucher created at t can no longer be used.
func (r *Restaurant) VoucherExpiresAt(t time.Time) time.Time {
	return t.Add(time.Duration(r.VoucherLifeTime) * time.Minute)
}
