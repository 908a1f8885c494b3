package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const (
	queryTimeout = 3 * time.Second
	unitTimeout  = 10 * time.Second

	sqlStateUniqueViolation = "23505"

	sqlClassDataException      = "22"
	sqlClassIntegrityViolation = "23"
	receiptConstraint       = "ledger_transactions_receipt_id_key"
)

const transactionColumns = `id, customer_id, restaurant_id, kind, points, monetary_value, occurred_at, is_expired, source_earn_id, receipt_id`

// Repository is the PostgreSQL ledger store.
type Repository struct {
	db *sqlx.DB
	pgLedger
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, pgLedger: pgLedger{q: db}}
}

// WithinPair opens a READ COMMITTED transaction and takes a row lock on the
// pair's ledger_accounts row before running fn.
func (r *Repository) WithinPair(ctx context.Context, pair Pair, fn func(ctx context.Context, uow UnitOfWork) error) error {
	ctx2, cancel := context.WithTimeout(ctx, unitTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return storeErr("begin tx", err)
	}
	defer tx.Rollback()

	if err := lockPair(ctx2, tx, pair); err != nil {
		return err
	}

	u := &pgUnit{pgLedger: pgLedger{q: tx}, tx: tx}
	if err := fn(ctx2, u); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeErr("commit tx", err)
	}
	for _, hook := range u.onCommit {
		hook()
	}
	return nil
}

func lockPair(ctx context.Context, tx *sqlx.Tx, pair Pair) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_accounts (customer_id, restaurant_id)
		VALUES ($1, $2)
		ON CONFLICT (customer_id, restaurant_id) DO NOTHING
	`, pair.CustomerID, pair.RestaurantID); err != nil {
		return storeErr("ensure account", err)
	}

	var one int
	err := tx.GetContext(ctx, &one, `
		SELECT 1 FROM ledger_accounts
		WHERE customer_id = $1 AND restaurant_id = $2
		FOR UPDATE
	`, pair.CustomerID, pair.RestaurantID)
	if err != nil {
		return storeErr("lock account", err)
	}
	return nil
}

type pgUnit struct {
	pgLedger
	tx       *sqlx.Tx
	onCommit []func()
}

func (u *pgUnit) SQLTx() *sqlx.Tx { return u.tx }

func (u *pgUnit) OnCommit(fn func()) { u.onCommit = append(u.onCommit, fn) }

// pgLedger runs the ledger queries against a pool or an open transaction.
type pgLedger struct {
	q sqlx.ExtContext
}

func (l *pgLedger) Append(ctx context.Context, t *Transaction) (int64, error) {
	if t == nil || !t.Kind.IsValid() {
		return 0, ErrInvalidArgument
	}

	var id int64
	err := sqlx.GetContext(ctx, l.q, &id, `
		INSERT INTO ledger_transactions (
			customer_id, restaurant_id, kind, points, monetary_value, occurred_at, is_expired, source_earn_id, receipt_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, t.CustomerID, t.RestaurantID, string(t.Kind), t.Points, t.MonetaryValue, t.OccurredAt, t.IsExpired, t.SourceEarnID, t.ReceiptID)
	if err != nil {
		if isReceiptViolation(err) {
			return 0, ErrDuplicateReceipt
		}
		return 0, storeErr("insert transaction", err)
	}

	t.ID = id
	return id, nil
}

func (l *pgLedger) AppendBatch(ctx context.Context, ts []*Transaction) error {
	for _, t := range ts {
		if _, err := l.Append(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (l *pgLedger) FindByID(ctx context.Context, id int64) (*Transaction, error) {
	return l.findOne(ctx, `SELECT `+transactionColumns+` FROM ledger_transactions WHERE id = $1`, id)
}

func (l *pgLedger) FindByReceiptID(ctx context.Context, receiptID string) (*Transaction, error) {
	return l.findOne(ctx, `SELECT `+transactionColumns+` FROM ledger_transactions WHERE receipt_id = $1`, receiptID)
}

func (l *pgLedger) findOne(ctx context.Context, query string, arg interface{}) (*Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var t Transaction
	if err := sqlx.GetContext(ctx2, l.q, &t, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("find transaction", err)
	}
	return &t, nil
}

func (l *pgLedger) ListByCustomerRestaurant(ctx context.Context, pair Pair, filter Filter, page Page) ([]Transaction, int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	where := ` WHERE customer_id = $1 AND restaurant_id = $2`
	args := []interface{}{pair.CustomerID, pair.RestaurantID}
	idx := 3

	if filter.Kind != nil {
		where += fmt.Sprintf(" AND kind = $%d", idx)
		args = append(args, string(*filter.Kind))
		idx++
	}
	if !filter.IncludeExpired {
		where += " AND is_expired = FALSE"
	}
	if filter.From != nil {
		where += fmt.Sprintf(" AND occurred_at >= $%d", idx)
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		where += fmt.Sprintf(" AND occurred_at <= $%d", idx)
		args = append(args, *filter.To)
		idx++
	}
	if filter.BeforeID > 0 {
		where += fmt.Sprintf(" AND id < $%d", idx)
		args = append(args, filter.BeforeID)
		idx++
	}

	var total int
	if err := sqlx.GetContext(ctx2, l.q, &total, `SELECT COUNT(*) FROM ledger_transactions`+where, args...); err != nil {
		return nil, 0, storeErr("count transactions", err)
	}

	page = page.Normalized()
	query := strings.TrimSpace(`SELECT `+transactionColumns+` FROM ledger_transactions`+where) +
		fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, page.Limit, page.Offset)

	transactions := make([]Transaction, 0)
	if err := sqlx.SelectContext(ctx2, l.q, &transactions, query, args...); err != nil {
		return nil, 0, storeErr("list transactions", err)
	}
	return transactions, total, nil
}

func (l *pgLedger) ListEarns(ctx context.Context, pair Pair, q EarnQuery) ([]Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM ledger_transactions
		WHERE customer_id = $1 AND restaurant_id = $2 AND kind = 'earn' AND is_expired = FALSE`
	args := []interface{}{pair.CustomerID, pair.RestaurantID}
	idx := 3

	if !q.OccurredBefore.IsZero() {
		query += fmt.Sprintf(" AND occurred_at < $%d", idx)
		args = append(args, q.OccurredBefore)
		idx++
	}
	if !q.OccurredFrom.IsZero() {
		query += fmt.Sprintf(" AND occurred_at >= $%d", idx)
		args = append(args, q.OccurredFrom)
	}
	if q.OnlyPositive {
		query += " AND points > 0"
	}
	query += " ORDER BY occurred_at ASC, id ASC"

	earns := make([]Transaction, 0)
	if err := sqlx.SelectContext(ctx, l.q, &earns, query, args...); err != nil {
		return nil, storeErr("list earn transactions", err)
	}
	return earns, nil
}

func (l *pgLedger) SumPoints(ctx context.Context, pair Pair) (int64, error) {
	var sum int64
	err := sqlx.GetContext(ctx, l.q, &sum, `
		SELECT COALESCE(SUM(points), 0)
		FROM ledger_transactions
		WHERE customer_id = $1 AND restaurant_id = $2
	`, pair.CustomerID, pair.RestaurantID)
	if err != nil {
		return 0, storeErr("sum points", err)
	}
	return sum, nil
}

func (l *pgLedger) MarkExpired(ctx context.Context, earnID int64) error {
	result, err := l.q.ExecContext(ctx, `
		UPDATE ledger_transactions
		SET is_expired = TRUE
		WHERE id = $1 AND kind = 'earn' AND is_expired = FALSE
	`, earnID)
	if err != nil {
		return storeErr("mark expired", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storeErr("rows affected", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: earn transaction %d is missing or already expired", ErrConsistency, earnID)
	}
	return nil
}

func (l *pgLedger) SumConsumedForEarn(ctx context.Context, earnID int64) (int64, error) {
	var consumed int64
	err := sqlx.GetContext(ctx, l.q, &consumed, `
		SELECT COALESCE(SUM(-points), 0)
		FROM ledger_transactions
		WHERE source_earn_id = $1 AND kind IN ('spend', 'expire')
	`, earnID)
	if err != nil {
		return 0, storeErr("sum consumed", err)
	}
	return consumed, nil
}

func (l *pgLedger) SumConsumedForEarns(ctx context.Context, earnIDs []int64) (map[int64]int64, error) {
	consumed := make(map[int64]int64, len(earnIDs))
	if len(earnIDs) == 0 {
		return consumed, nil
	}

	rows := make([]struct {
		EarnID   int64 `db:"source_earn_id"`
		Consumed int64 `db:"consumed"`
	}, 0, len(earnIDs))
	err := sqlx.SelectContext(ctx, l.q, &rows, `
		SELECT source_earn_id, COALESCE(SUM(-points), 0) AS consumed
		FROM ledger_transactions
		WHERE source_earn_id = ANY($1) AND kind IN ('spend', 'expire')
		GROUP BY source_earn_id
	`, pq.Array(earnIDs))
	if err != nil {
		return nil, storeErr("sum consumed batch", err)
	}

	for _, id := range earnIDs {
		consumed[id] = 0
	}
	for _, row := range rows {
		consumed[row.EarnID] = row.Consumed
	}
	return consumed, nil
}

func isReceiptViolation(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return string(pqErr.Code) == sqlStateUniqueViolation && pqErr.Constraint == receiptConstraint
}

// storeErr classifies a database failure. Rejected data and violated
// constraints are not retryable; everything else means the store is down.
func storeErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("ledger %s: %w", op, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case sqlClassDataException:
			return fmt.Errorf("%w: %s: %w", ErrInvalidArgument, op, err)
		case sqlClassIntegrityViolation:
			return fmt.Errorf("%w: %s: %w", ErrConsistency, op, err)
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
