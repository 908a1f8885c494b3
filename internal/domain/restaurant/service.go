package restaurant

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/loyaltyhub/loyalty-api/internal/pkg/logger"
)

// Service manages restaurant loyalty configuration.
type Service struct {
	repo  Repository
	cache *CachedDirectory
}

// NewService creates the configuration service. cache may be nil.
func NewService(repo Repository, cache *CachedDirectory) *Service {
	return &Service{repo: repo, cache: cache}
}

// Get returns the configuration or ErrRestaurantNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*Restaurant, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrRestaurantNotFound
	}
	return r, nil
}

// Put stores a full configuration, creating the restaurant when needed.
func (s *Service) Put(ctx context.Context, r *Restaurant) (*Restaurant, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, r); err != nil {
		return nil, err
	}
	s.invalidate(ctx, r.ID)

	logger.FromContext(ctx).Info().
		Int64("restaurant_id", r.ID).
		Str("buying_rate", r.BuyingRate.String()).
		Str("selling_rate", r.SellingRate.String()).
		Msg("Restaurant configuration saved")
	return r, nil
}

// Patch is the partial form of Put.
type Patch struct {
	BuyingRate           *decimal.Decimal
	SellingRate          *decimal.Decimal
	CreditPointsLifeTime *int
	VoucherLifeTime      *int
	VoucherMinValue      *decimal.Decimal
}

func (p Patch) empty() bool {
	return p.BuyingRate == nil && p.SellingRate == nil && p.CreditPointsLifeTime == nil &&
		p.VoucherLifeTime == nil && p.VoucherMinValue == nil
}

// Update applies a partial change to an existing restaurant.
func (s *Service) Update(ctx context.Context, id int64, p Patch) (*Restaurant, error) {
	if p.empty() {
		return nil, ErrEmptyUpdate
	}
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.BuyingRate != nil {
		r.BuyingRate = *p.BuyingRate
	}
	if p.SellingRate != nil {
		r.SellingRate = *p.SellingRate
	}
	if p.CreditPointsLifeTime != nil {
		r.CreditPointsLifeTime = *p.CreditPointsLifeTime
	}
	if p.VoucherLifeTime != nil {
		r.VoucherLifeTime = *p.VoucherLifeTime
	}
	if p.VoucherMinValue != nil {
		r.VoucherMinValue = *p.VoucherMinValue
	}
	return s.Put(ctx, r)
}

func (s *Service) invalidate(ctx context.Context, id int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
}
