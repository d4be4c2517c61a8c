package service

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/model"
	"github.com/ndewijer/SPV-Equity-Distribution-Backend/internal/repository"
)

// SPVService resolves SPV configuration for the allocator. SPV rows change
// rarely, so lookups are served from a short-lived in-process cache.
type SPVService struct {
	spvRepo          *repository.SPVRepository
	cache            *cache.Cache
	defaultFaceValue decimal.Decimal
}

// NewSPVService creates a new SPVService with the provided repository dependencies.
// defaultFaceValue applies to SPVs without a configured face value.
func NewSPVService(spvRepo *repository.SPVRepository, defaultFaceValue decimal.Decimal, ttl time.Duration) *SPVService {
	return &SPVService{
		spvRepo:          spvRepo,
		cache:            cache.New(ttl, 2*ttl),
		defaultFaceValue: defaultFaceValue,
	}
}

// GetSPV returns the SPV, from cache when possible.
func (s *SPVService) GetSPV(ctx context.Context, spvID string) (model.SPV, error) {
	if v, ok := s.cache.Get(spvID); ok {
		return v.(model.SPV), nil
	}
	spv, err := s.spvRepo.GetSPV(ctx, spvID)
	if err != nil {
		return model.SPV{}, err
	}
	s.cache.Set(spvID, spv, cache.DefaultExpiration)
	return spv, nil
}

// ShareStructure applies the default face value when the SPV has none.
func (s *SPVService) ShareStructure(spv model.SPV) model.ShareStructure {
	fv := s.defaultFaceValue
	if spv.FaceValuePerShare != nil && spv.FaceValuePerShare.IsPositive() {
		fv = *spv.FaceValuePerShare
	}
	return model.ShareStructure{
		FaceValuePerShare: fv,
		AuthorizedCapital: spv.AuthorizedCapital,
	}
}

// GetInvestor returns a live investor.
func (s *SPVService) GetInvestor(ctx context.Context, investorID string) (model.Investor, error) {
	return s.spvRepo.GetInvestor(ctx, investorID)
}
