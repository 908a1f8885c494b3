package voucher

import "errors"

var (
	ErrVoucherNotFound         = errors.New("voucher not found")
	ErrVoucherExpired          = errors.New("voucher expired")
	ErrVoucherAlreadyUsed      = errors.New("voucher already used")
	ErrMinimumPointsNotReached = errors.New("points below the voucher minimum value")
)
