package voucher

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const codeLength = 10

// Voucher is a one-time discount bought with loyalty points.
type Voucher struct {
	ShortCode    string     `db:"short_code" json:"short_code"`
	CustomerID   int64      `db:"customer_id" json:"customer_id"`
	RestaurantID int64      `db:"restaurant_id" json:"restaurant_id"`
	Points       int64      `db:"points" json:"points"`
	Value        int64      `db:"value" json:"value"`
	IsUsed       bool       `db:"is_used" json:"is_used"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UsedAt       *time.Time `db:"used_at" json:"used_at,omitempty"`
}

// Value returns floor(points * sellingRate).
func Value(points int64, sellingRate decimal.Decimal) int64 {
	return decimal.NewFromInt(points).Mul(sellingRate).Floor().IntPart()
}

// NewShortCode returns an upper case code cut from a random UUID.
func NewShortCode() string {
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return code[:codeLength]
}
