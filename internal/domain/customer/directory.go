package customer

import "context"

// Directory is the customer identity capability. The local implementation
// stores customers in PostgreSQL, the CRM implementation proxies the
// restaurant's CRM over HTTP.
type Directory interface {
	// GetCustomer returns nil, nil when the customer is unknown.
	GetCustomer(ctx context.Context, id, restaurantID int64) (*Customer, error)
	CreateCustomer(ctx context.Context, c *Customer) (*Customer, error)
	UpdateCustomer(ctx context.Context, c *Customer) (*Customer, error)
}
