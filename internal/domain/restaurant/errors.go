package restaurant

import "errors"

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrInvalidConfig      = errors.New("invalid restaurant configuration")
	ErrEmptyUpdate        = errors.New("at least one property must be provided for update")
)
