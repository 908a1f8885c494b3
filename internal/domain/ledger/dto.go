package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/loyaltyhub/loyalty-api/internal/domain/restaurant"
)

// RecordEarnRequest is the admin request body for crediting a purchase.
type RecordEarnRequest struct {
	CustomerID   int64           `json:"customer_id" validate:"required,gt=0"`
	RestaurantID int64           `json:"restaurant_id" validate:"required,gt=0"`
	ReceiptID    string          `json:"receipt_id" validate:"required,receipt_id"`
	Amount       decimal.Decimal `json:"amount"`
	OccurredAt   *time.Time      `json:"occurred_at,omitempty"`
}

// SpendRequest is the request body for spending points.
type SpendRequest struct {
	Points int64 `json:"points" validate:"required,gt=0"`
}

// TransactionResponse is the API representation of a ledger row.
type TransactionResponse struct {
	ID                   int64           `json:"id"`
	CustomerID           int64           `json:"customer_id"`
	RestaurantID         int64           `json:"restaurant_id"`
	Kind                 Kind            `json:"kind"`
	Points               int64           `json:"points"`
	MonetaryValue        decimal.Decimal `json:"monetary_value"`
	OccurredAt           time.Time       `json:"occurred_at"`
	IsExpired            bool            `json:"is_expired"`
	SourceEarnID         *int64          `json:"source_earn_id,omitempty"`
	ReceiptID            *string         `json:"receipt_id,omitempty"`
	PointsExpirationDate *time.Time      `json:"points_expiration_date,omitempty"`
}

// TransactionResponseFrom converts a ledger row. rest may be nil, in which
// case the expiration date is omitted.
func TransactionResponseFrom(t *Transaction, rest *restaurant.Restaurant) TransactionResponse {
	resp := TransactionResponse{
		ID:            t.ID,
		CustomerID:    t.CustomerID,
		RestaurantID:  t.RestaurantID,
		Kind:          t.Kind,
		Points:        t.Points,
		MonetaryValue: t.MonetaryValue,
		OccurredAt:    t.OccurredAt,
		IsExpired:     t.IsExpired,
		SourceEarnID:  t.SourceEarnID,
		ReceiptID:     t.ReceiptID,
	}
	if t.Kind == KindEarn && rest != nil {
		exp := rest.PointsExpireAt(t.OccurredAt)
		resp.PointsExpirationDate = &exp
	}
	return resp
}

// BalanceResponse is returned by the points endpoint.
type BalanceResponse struct {
	CustomerID   int64 `json:"customer_id"`
	RestaurantID int64 `json:"restaurant_id"`
	Points       int64 `json:"points"`
}

// SpendResponse lists the rows created by a spend.
type SpendResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	PointsSpent  int64                 `json:"points_spent"`
}

// ExpireResponse reports how many expire rows were created.
type ExpireResponse struct {
	Expired int `json:"expired"`
}
