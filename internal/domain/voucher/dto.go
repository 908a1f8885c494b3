package voucher

import "time"

// CreateRequest is the body of POST .../vouchers.
type CreateRequest struct {
	Points int64 `json:"points" validate:"required,gt=0"`
}

// Response is the API representation of a voucher.
type Response struct {
	ShortCode    string     `json:"short_code"`
	CustomerID   int64      `json:"customer_id"`
	RestaurantID int64      `json:"restaurant_id"`
	Points       int64      `json:"points"`
	Value        int64      `json:"value"`
	IsUsed       bool       `json:"is_used"`
	CreatedAt    time.Time  `json:"created_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

func responseFrom(v *Voucher, expiresAt *time.Time) Response {
	return Response{
		ShortCode:    v.ShortCode,
		CustomerID:   v.CustomerID,
		RestaurantID: v.RestaurantID,
		Points:       v.Points,
		Value:        v.Value,
		IsUsed:       v.IsUsed,
		CreatedAt:    v.CreatedAt,
		UsedAt:       v.UsedAt,
		ExpiresAt:    expiresAt,
	}
}
