package voucher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/loyaltyhub/loyalty-api/internal/domain/ledger"
	"github.com/loyaltyhub/loyalty-api/internal/domain/restaurant"
	"github.com/loyaltyhub/loyalty-api/internal/pkg/logger"
)

// Spender is the part of the ledger a voucher purchase goes through.
type Spender interface {
	SpendWithin(ctx context.Context, customerID, restaurantID, points int64, hook ledger.SpendHook) ([]ledger.Transaction, error)
}

// Service sells and redeems vouchers.
type Service struct {
	ledger      Spender
	restaurants ledger.RestaurantDirectory
	repo        Repository
	now         func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(spender Spender, restaurants ledger.RestaurantDirectory, repo Repository, opts ...Option) *Service {
	s := &Service{ledger: spender, restaurants: restaurants, repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create converts points into a voucher worth floor(points * sellingRate).
// The spend and the voucher row commit together.
func (s *Service) Create(ctx context.Context, customerID, restaurantID, points int64) (*Voucher, error) {
	if points <= 0 {
		return nil, fmt.Errorf("%w: points must be greater than zero", ledger.ErrInvalidArgument)
	}
	rest, err := s.restaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	value := Value(points, rest.SellingRate)
	if decimal.NewFromInt(value).LessThan(rest.VoucherMinValue) {
		return nil, ErrMinimumPointsNotReached
	}

	v := &Voucher{
		ShortCode:    NewShortCode(),
		CustomerID:   customerID,
		RestaurantID: restaurantID,
		Points:       points,
		Value:        value,
		CreatedAt:    s.now().UTC(),
	}
	_, err = s.ledger.SpendWithin(ctx, customerID, restaurantID, points, func(ctx context.Context, uow ledger.UnitOfWork, _ []ledger.Transaction) error {
		return s.repo.Create(ctx, uow, v)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info().
		Str("short_code", v.ShortCode).
		Int64("customer_id", customerID).
		Int64("restaurant_id", restaurantID).
		Int64("points", points).
		Int64("value", value).
		Msg("Voucher created")
	return v, nil
}

// Get returns a voucher by its short code.
func (s *Service) Get(ctx context.Context, code string) (*Voucher, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrVoucherNotFound
	}
	v, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVoucherNotFound
	}
	return v, nil
}

// List returns the pair's vouchers, newest first.
func (s *Service) List(ctx context.Context, customerID, restaurantID int64, page ledger.Page) ([]Voucher, int, error) {
	if customerID <= 0 || restaurantID <= 0 {
		return nil, 0, fmt.Errorf("%w: customer and restaurant ids are required", ledger.ErrInvalidArgument)
	}
	return s.repo.ListByPair(ctx, customerID, restaurantID, page.Normalized())
}

// MarkUsed redeems a voucher. Vouchers can be used once and only within
// the restaurant's voucher lifetime.
func (s *Service) MarkUsed(ctx context.Context, code string) (*Voucher, error) {
	v, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if v.IsUsed {
		return nil, ErrVoucherAlreadyUsed
	}

	rest, err := s.restaurant(ctx, v.RestaurantID)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if now.After(rest.VoucherExpiresAt(v.CreatedAt)) {
		return nil, ErrVoucherExpired
	}

	ok, err := s.repo.MarkUsed(ctx, v.ShortCode, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVoucherAlreadyUsed
	}

	v.IsUsed = true
	v.UsedAt = &now
	logger.FromContext(ctx).Info().
		Str("short_code", v.ShortCode).
		Int64("restaurant_id", v.RestaurantID).
		Msg("Voucher used")
	return v, nil
}

// ExpiresAt returns when v stops being redeemable, or nil when the
// restaurant cannot be resolved.
func (s *Service) ExpiresAt(ctx context.Context, v *Voucher) *time.Time {
	rest, err := s.restaurants.GetRestaurantByID(ctx, v.RestaurantID)
	if err != nil || rest == nil {
		return nil
	}
	at := rest.VoucherExpiresAt(v.CreatedAt)
	return &at
}

func (s *Service) restaurant(ctx context.Context, id int64) (*restaurant.Restaurant, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: restaurant id is required", ledger.ErrInvalidArgument)
	}
	rest, err := s.restaurants.GetRestaurantByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup restaurant %d: %w", id, err)
	}
	if rest == nil {
		return nil, ledger.ErrRestaurantNotFound
	}
	return rest, nil
}
