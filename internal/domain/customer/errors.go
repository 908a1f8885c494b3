package customer

import "errors"

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrCustomerExists   = errors.New("customer already exists")
	ErrDirectoryFailure = errors.New("customer directory unavailable")
	ErrInvalidCustomer  = errors.New("invalid customer")
)
