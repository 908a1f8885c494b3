package restaurant

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository defines restaurant configuration persistence.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Restaurant, error)
	Upsert(ctx context.Context, r *Restaurant) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates the PostgreSQL restaurant repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Restaurant, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rest Restaurant
	err := r.db.GetContext(ctx, &rest, `
		SELECT id, buying_rate, selling_rate, credit_points_lifetime_days,
		       voucher_lifetime_minutes, voucher_min_value, created_at, updated_at
		FROM restaurants
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rest, nil
}

func (r *repository) Upsert(ctx context.Context, rest *Restaurant) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return r.db.QueryRowxContext(ctx, `
		INSERT INTO restaurants (
			id, buying_rate, selling_rate, credit_points_lifetime_days,
			voucher_lifetime_minutes, voucher_min_value
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			buying_rate = EXCLUDED.buying_rate,
			selling_rate = EXCLUDED.selling_rate,
			credit_points_lifetime_days = EXCLUDED.credit_points_lifetime_days,
			voucher_lifetime_minutes = EXCLUDED.voucher_lifetime_minutes,
			voucher_min_value = EXCLUDED.voucher_min_value,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`, rest.ID, rest.BuyingRate, rest.SellingRate, rest.CreditPointsLifeTime,
		rest.VoucherLifeTime, rest.VoucherMinValue,
	).Scan(&rest.CreatedAt, &rest.UpdatedAt)
}
