package ledger

import "errors"

var (
	// ErrInvalidArgument is returned for non-positive amounts or missing identifiers
	ErrInvalidArgument = errors.New("invalid argument")

	ErrRestaurantNotFound  = errors.New("restaurant not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrPointsNotEnough is returned when the spendable balance is below the request
	ErrPointsNotEnough = errors.New("not enough points")

	ErrMinimumAmountNotReached = errors.New("purchase amount too low to earn points")
	ErrDuplicateReceipt        = errors.New("receipt already recorded")

	// ErrExpiryFailed is returned when the expiry unit of work could not be committed
	ErrExpiryFailed = errors.New("failed to expire points")

	// ErrConsistency signals ledger corruption, e.g. a negative balance
	ErrConsistency = errors.New("ledger consistency violation")

	ErrStoreUnavailable = errors.New("ledger store unavailable")
)
