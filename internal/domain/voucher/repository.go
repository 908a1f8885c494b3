package voucher

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/loyaltyhub/loyalty-api/internal/domain/ledger"
)

const queryTimeout = 3 * time.Second

// Repository defines voucher persistence.
type Repository interface {
	// Create stores v inside the ledger unit of work so the voucher commits
	// together with the spend that paid for it.
	Create(ctx context.Context, uow ledger.UnitOfWork, v *Voucher) error
	GetByCode(ctx context.Context, code string) (*Voucher, error)
	ListByPair(ctx context.Context, customerID, restaurantID int64, page ledger.Page) ([]Voucher, int, error)
	// MarkUsed flips is_used on an unused voucher. It returns false when the
	// voucher was already used.
	MarkUsed(ctx context.Context, code string, usedAt time.Time) (bool, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, uow ledger.UnitOfWork, v *Voucher) error {
	var exec sqlx.ExtContext = r.db
	if tx := uow.SQLTx(); tx != nil {
		exec = tx
	}

	_, err := exec.ExecContext(ctx, `
		INSERT INTO vouchers (short_code, customer_id, restaurant_id, points, value, is_used, created_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, $6)
	`, v.ShortCode, v.CustomerID, v.RestaurantID, v.Points, v.Value, v.CreatedAt)
	return err
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Voucher, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var v Voucher
	err := r.db.GetContext(ctx, &v, `
		SELECT short_code, customer_id, restaurant_id, points, value, is_used, created_at, used_at
		FROM vouchers WHERE short_code = $1
	`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repository) ListByPair(ctx context.Context, customerID, restaurantID int64, page ledger.Page) ([]Voucher, int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var total int
	if err := r.db.GetContext(ctx, &total, `
		SELECT COUNT(*) FROM vouchers WHERE customer_id = $1 AND restaurant_id = $2
	`, customerID, restaurantID); err != nil {
		return nil, 0, err
	}

	items := []Voucher{}
	err := r.db.SelectContext(ctx, &items, `
		SELECT short_code, customer_id, restaurant_id, points, value, is_used, created_at, used_at
		FROM vouchers
		WHERE customer_id = $1 AND restaurant_id = $2
		ORDER BY created_at DESC, short_code
		LIMIT $3 OFFSET $4
	`, customerID, restaurantID, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repository) MarkUsed(ctx context.Context, code string, usedAt time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		UPDATE vouchers SET is_used = TRUE, used_at = $2
		WHERE short_code = $1 AND NOT is_used
	`, code, usedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
