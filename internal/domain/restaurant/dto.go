package restaurant

import "github.com/shopspring/decimal"

// PutRequest is the body of PUT /admin/restaurants/{restaurantId}.
type PutRequest struct {
	BuyingRate           decimal.Decimal `json:"buying_rate"`
	SellingRate          decimal.Decimal `json:"selling_rate"`
	CreditPointsLifeTime int             `json:"credit_points_lifetime_days" validate:"required,gt=0"`
	VoucherLifeTime      int             `json:"voucher_lifetime_minutes" validate:"required,gt=0"`
	VoucherMinValue      decimal.Decimal `json:"voucher_min_value"`
}

// PatchRequest is the body of PATCH /admin/restaurants/{restaurantId}.
type PatchRequest struct {
	BuyingRate           *decimal.Decimal `json:"buying_rate,omitempty"`
	SellingRate          *decimal.Decimal `json:"selling_rate,omitempty"`
	CreditPointsLifeTime *int             `json:"credit_points_lifetime_days,omitempty" validate:"omitempty,gt=0"`
	VoucherLifeTime      *int             `json:"voucher_lifetime_minutes,omitempty" validate:"omitempty,gt=0"`
	VoucherMinValue      *decimal.Decimal `json:"voucher_min_value,omitempty"`
}
