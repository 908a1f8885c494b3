package customer

import (
	"context"
	"fmt"
	"strings"

	"github.com/loyaltyhub/loyalty-api/internal/domain/restaurant"
)

// RestaurantLookup checks that a restaurant exists.
type RestaurantLookup interface {
	GetRestaurantByID(ctx context.Context, id int64) (*restaurant.Restaurant, error)
}

// Service validates customer writes before handing them to the Directory.
type Service struct {
	dir         Directory
	restaurants RestaurantLookup
}

func NewService(dir Directory, restaurants RestaurantLookup) *Service {
	return &Service{dir: dir, restaurants: restaurants}
}

// Get returns the customer or ErrCustomerNotFound.
func (s *Service) Get(ctx context.Context, id, restaurantID int64) (*Customer, error) {
	if id <= 0 || restaurantID <= 0 {
		return nil, fmt.Errorf("%w: ids must be positive", ErrInvalidCustomer)
	}
	c, err := s.dir.GetCustomer(ctx, id, restaurantID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCustomerNotFound
	}
	return c, nil
}

// Create registers a new customer with a restaurant.
func (s *Service) Create(ctx context.Context, c Customer) (*Customer, error) {
	normalize(&c)
	if err := s.check(ctx, &c); err != nil {
		return nil, err
	}
	return s.dir.CreateCustomer(ctx, &c)
}

// Update replaces the contact details of an existing customer.
func (s *Service) Update(ctx context.Context, c Customer) (*Customer, error) {
	if c.ID <= 0 {
		return nil, fmt.Errorf("%w: id must be positive", ErrInvalidCustomer)
	}
	normalize(&c)
	if err := s.check(ctx, &c); err != nil {
		return nil, err
	}
	return s.dir.UpdateCustomer(ctx, &c)
}

func (s *Service) check(ctx context.Context, c *Customer) error {
	if c.RestaurantID <= 0 {
		return fmt.Errorf("%w: restaurant id must be positive", ErrInvalidCustomer)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCustomer)
	}
	if c.Email == "" && c.Phone == "" {
		return fmt.Errorf("%w: email or phone is required", ErrInvalidCustomer)
	}

	rest, err := s.restaurants.GetRestaurantByID(ctx, c.RestaurantID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDirectoryFailure, err)
	}
	if rest == nil {
		return restaurant.ErrRestaurantNotFound
	}
	return nil
}

func normalize(c *Customer) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
}
