package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/loyaltyhub/loyalty-api/internal/domain/customer"
	"github.com/loyaltyhub/loyalty-api/internal/domain/restaurant"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/logger"
)

// MaxReceiptLength matches the receipt_id column width.
const MaxReceiptLength = 100

// RestaurantDirectory resolves restaurant configuration snapshots.
// A nil result means the restaurant does not exist.
type RestaurantDirectory interface {
	GetRestaurantByID(ctx context.Context, id int64) (*restaurant.Restaurant, error)
}

// CustomerDirectory resolves customer identities.
// A nil result means the customer does not exist.
type CustomerDirectory interface {
	GetCustomer(ctx context.Context, id, restaurantID int64) (*customer.Customer, error)
}

// SpendHook runs inside the spend unit of work after the spend rows are
// appended. Returning an error rolls the whole spend back.
type SpendHook func(ctx context.Context, uow UnitOfWork, spent []Transaction) error

// Service is the points accounting engine.
type Service struct {
	store       Store
	restaurants RestaurantDirectory
	customers   CustomerDirectory
	now         func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, restaurants RestaurantDirectory, customers CustomerDirectory, opts ...Option) *Service {
	s := &Service{
		store:       store,
		restaurants: restaurants,
		customers:   customers,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EarnRequest describes a purchase to credit.
type EarnRequest struct {
	CustomerID     int64
	RestaurantID   int64
	ReceiptID      string
	PurchaseAmount decimal.Decimal
	OccurredAt     *time.Time // defaults to now
}

// RecordEarn credits floor(amount * buyingRate) points for a purchase.
func (s *Service) RecordEarn(ctx context.Context, req EarnRequest) (*Transaction, error) {
	receiptID := strings.TrimSpace(req.ReceiptID)
	if receiptID == "" || !req.PurchaseAmount.IsPositive() {
		return nil, fmt.Errorf("%w: receipt id and a positive purchase amount are required", ErrInvalidArgument)
	}
	if utf8.RuneCountInString(receiptID) > MaxReceiptLength {
		return nil, fmt.Errorf("%w: receipt id is longer than %d characters", ErrInvalidArgument, MaxReceiptLength)
	}

	pair := Pair{CustomerID: req.CustomerID, RestaurantID: req.RestaurantID}
	rest, err := s.resolve(ctx, pair)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	occurredAt := now
	if req.OccurredAt != nil {
		occurredAt = req.OccurredAt.UTC()
		if occurredAt.After(now) {
			return nil, fmt.Errorf("%w: purchase time is in the future", ErrInvalidArgument)
		}
	}

	points := Earned(req.PurchaseAmount, rest.BuyingRate)
	if points <= 0 {
		return nil, ErrMinimumAmountNotReached
	}

	earn := &Transaction{
		CustomerID:    pair.CustomerID,
		RestaurantID:  pair.RestaurantID,
		Kind:          KindEarn,
		Points:        points,
		MonetaryValue: req.PurchaseAmount,
		OccurredAt:    occurredAt,
		ReceiptID:     &receiptID,
	}

	err = s.store.WithinPair(ctx, pair, func(ctx context.Context, uow UnitOfWork) error {
		existing, err := uow.FindByReceiptID(ctx, receiptID)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateReceipt
		}
		_, err = uow.Append(ctx, earn)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Int64("customer_id", pair.CustomerID).
		Int64("restaurant_id", pair.RestaurantID).
		Int64("transaction_id", earn.ID).
		Int64("points", points).
		Msg("ledger earn recorded")

	return earn, nil
}

// GetBalance expires stale points and returns the spendable balance.
func (s *Service) GetBalance(ctx context.Context, customerID, restaurantID int64) (int64, error) {
	pair := Pair{CustomerID: customerID, RestaurantID: restaurantID}
	rest, err := s.resolve(ctx, pair)
	if err != nil {
		return 0, err
	}

	var balance int64
	err = s.store.WithinPair(ctx, pair, func(ctx context.Context, uow UnitOfWork) error {
		if _, err := expireWithin(ctx, uow, rest, pair, s.clock()); err != nil {
			return err
		}
		balance, err = balanceWithin(ctx, uow, pair)
		return err
	})
	if err != nil {
		s.alarm(ctx, pair, err)
		return 0, err
	}
	return balance, nil
}

// Spend draws points from the oldest eligible earns.
func (s *Service) Spend(ctx context.Context, customerID, restaurantID, points int64) ([]Transaction, error) {
	return s.SpendWithin(ctx, customerID, restaurantID, points, nil)
}

// SpendWithin is Spend with a hook that commits together with the spend rows.
func (s *Service) SpendWithin(ctx context.Context, customerID, restaurantID, points int64, hook SpendHook) ([]Transaction, error) {
	if points <= 0 {
		return nil, fmt.Errorf("%w: points must be greater than zero", ErrInvalidArgument)
	}

	pair := Pair{CustomerID: customerID, RestaurantID: restaurantID}
	rest, err := s.resolve(ctx, pair)
	if err != nil {
		return nil, err
	}

	var spent []Transaction
	err = s.store.WithinPair(ctx, pair, func(ctx context.Context, uow UnitOfWork) error {
		now := s.clock()
		if _, err := expireWithin(ctx, uow, rest, pair, now); err != nil {
			return err
		}

		earns, err := uow.ListEarns(ctx, pair, EarnQuery{OccurredFrom: rest.PointsCutoff(now)})
		if err != nil {
			return err
		}
		ids := make([]int64, len(earns))
		for i, earn := range earns {
			ids[i] = earn.ID
		}
		consumed, err := uow.SumConsumedForEarns(ctx, ids)
		if err != nil {
			return err
		}

		allocations, err := allocate(earns, consumed, points)
		if err != nil {
			return err
		}
		rows := spendTransactions(pair, allocations, rest.BuyingRate, now)
		if err := uow.AppendBatch(ctx, rows); err != nil {
			return err
		}

		spent = make([]Transaction, len(rows))
		for i, row := range rows {
			spent[i] = *row
		}
		if hook != nil {
			return hook(ctx, uow, spent)
		}
		return nil
	})
	if err != nil {
		s.alarm(ctx, pair, err)
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Int64("customer_id", customerID).
		Int64("restaurant_id", restaurantID).
		Int64("points", points).
		Int("transactions", len(spent)).
		Msg("ledger points spent")

	return spent, nil
}

// ExpirePoints retires stale points of the pair and returns the number of
// expire transactions created. Calling it again right away returns 0.
func (s *Service) ExpirePoints(ctx context.Context, restaurantID, customerID int64) (int, error) {
	pair := Pair{CustomerID: customerID, RestaurantID: restaurantID}
	rest, err := s.resolve(ctx, pair)
	if err != nil {
		return 0, err
	}

	var created []Transaction
	err = s.store.WithinPair(ctx, pair, func(ctx context.Context, uow UnitOfWork) error {
		created, err = expireWithin(ctx, uow, rest, pair, s.clock())
		return err
	})
	if err != nil {
		s.alarm(ctx, pair, err)
		return 0, fmt.Errorf("%w: %w", ErrExpiryFailed, err)
	}

	if len(created) > 0 {
		logger.FromContext(ctx).Info().
			Int64("customer_id", customerID).
			Int64("restaurant_id", restaurantID).
			Int("transactions", len(created)).
			Msg("ledger points expired")
	}
	return len(created), nil
}

// GetTransaction returns a single ledger row.
func (s *Service) GetTransaction(ctx context.Context, id int64) (*Transaction, error) {
	if id <= 0 {
		return nil, ErrInvalidArgument
	}
	t, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTransactionNotFound
	}
	return t, nil
}

// GetTransactionByReceipt returns the earn row recorded for a receipt.
func (s *Service) GetTransactionByReceipt(ctx context.Context, receiptID string) (*Transaction, error) {
	receiptID = strings.TrimSpace(receiptID)
	if receiptID == "" {
		return nil, ErrInvalidArgument
	}
	t, err := s.store.FindByReceiptID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTransactionNotFound
	}
	return t, nil
}

// ListTransactions expires stale points and returns one page of the pair's
// history, newest first, with the total row count.
func (s *Service) ListTransactions(ctx context.Context, customerID, restaurantID int64, filter Filter, page Page) ([]Transaction, int, error) {
	if filter.Kind != nil && !filter.Kind.IsValid() {
		return nil, 0, fmt.Errorf("%w: unknown transaction kind %q", ErrInvalidArgument, *filter.Kind)
	}

	pair := Pair{CustomerID: customerID, RestaurantID: restaurantID}
	rest, err := s.resolve(ctx, pair)
	if err != nil {
		return nil, 0, err
	}

	var (
		items []Transaction
		total int
	)
	err = s.store.WithinPair(ctx, pair, func(ctx context.Context, uow UnitOfWork) error {
		if _, err := expireWithin(ctx, uow, rest, pair, s.clock()); err != nil {
			return err
		}
		items, total, err = uow.ListByCustomerRestaurant(ctx, pair, filter, page)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// resolve loads the restaurant snapshot and checks that the customer exists.
// It runs before any unit of work is opened.
func (s *Service) resolve(ctx context.Context, pair Pair) (*restaurant.Restaurant, error) {
	if pair.CustomerID <= 0 || pair.RestaurantID <= 0 {
		return nil, fmt.Errorf("%w: customer and restaurant ids are required", ErrInvalidArgument)
	}

	rest, err := s.restaurants.GetRestaurantByID(ctx, pair.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("lookup restaurant %d: %w", pair.RestaurantID, err)
	}
	if rest == nil {
		return nil, ErrRestaurantNotFound
	}
	if err := rest.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	c, err := s.customers.GetCustomer(ctx, pair.CustomerID, pair.RestaurantID)
	if err != nil {
		return nil, fmt.Errorf("lookup customer %d: %w", pair.CustomerID, err)
	}
	if c == nil {
		return nil, ErrCustomerNotFound
	}
	return rest, nil
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// alarm reports ledger corruption at error level.
func (s *Service) alarm(ctx context.Context, pair Pair, err error) {
	if !errors.Is(err, ErrConsistency) {
		return
	}
	logger.FromContext(ctx).Error().
		Err(err).
		Int64("customer_id", pair.CustomerID).
		Int64("restaurant_id", pair.RestaurantID).
		Msg("ledger consistency violation")
}
