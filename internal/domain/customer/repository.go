package customer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const queryTimeout = 3 * time.Second

// Repository is the PostgreSQL Directory.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetCustomer(ctx context.Context, id, restaurantID int64) (*Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Customer
	err := r.db.GetContext(ctx, &c, `
		SELECT id, restaurant_id, name, email, phone, created_at, updated_at
		FROM customers
		WHERE id = $1 AND restaurant_id = $2
	`, id, restaurantID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDirectoryFailure, err)
	}
	return &c, nil
}

func (r *Repository) CreateCustomer(ctx context.Context, c *Customer) (*Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out := *c
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO customers (restaurant_id, name, email, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, c.RestaurantID, c.Name, c.Email, c.Phone).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return &out, nil
}

func (r *Repository) UpdateCustomer(ctx context.Context, c *Customer) (*Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	out := *c
	err := r.db.QueryRowxContext(ctx, `
		UPDATE customers
		SET name = $3, email = $4, phone = $5, updated_at = NOW()
		WHERE id = $1 AND restaurant_id = $2
		RETURNING created_at, updated_at
	`, c.ID, c.RestaurantID, c.Name, c.Email, c.Phone).Scan(&out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return &out, nil
}

func mapWriteErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrCustomerExists
		case "23503":
			return fmt.Errorf("%w: restaurant does not exist", ErrInvalidCustomer)
		}
	}
	return fmt.Errorf("%w: %w", ErrDirectoryFailure, err)
}
