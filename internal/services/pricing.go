package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aaravmahajanofficial/solar-storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/solar-storefront/internal/cache"
	appErrors "github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	repository "github.com/aaravmahajanofficial/solar-storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type PricingService interface {
	ResolveUnitPrice(ctx context.Context, variantID uuid.UUID, basePrice models.Money, role string, discount *models.Discount) (models.Money, error)
	ResolvePriceDetail(ctx context.Context, variantID uuid.UUID, basePrice models.Money, role string, discount *models.Discount) (models.PriceDetail, error)
	FetchUserRole(ctx context.Context, identity models.Identity) string
	GetVariantPrice(ctx context.Context, variantID uuid.UUID, role string) (*models.PriceDetail, error)
	SetOverride(ctx context.Context, variantID uuid.UUID, req *models.SetPriceOverrideRequest) (*models.VariantPriceOverride, error)
}

type pricingService struct {
	overrideRepo  repository.OverrideRepository
	variantRepo   repository.VariantRepository
	profileRepo   repository.ProfileRepository
	cache         cache.Cache
	cacheTTL      time.Duration
	wholesaleRole string
	now           func() time.Time
}

// cachedOverride also records misses so variants without an override do not
// hit the database on every lookup.
type cachedOverride struct {
	Found bool            `json:"found"`
	Price decimal.Decimal `json:"price"`
}

func NewPricingService(overrideRepo repository.OverrideRepository, variantRepo repository.VariantRepository, profileRepo repository.ProfileRepository, cache cache.Cache, cacheTTL time.Duration, wholesaleRole string) PricingService {

	if wholesaleRole == "" {
		wholesaleRole = models.RoleB2B
	}

	return &pricingService{
		overrideRepo:  overrideRepo,
		variantRepo:   variantRepo,
		profileRepo:   profileRepo,
		cache:         cache,
		cacheTTL:      cacheTTL,
		wholesaleRole: wholesaleRole,
		now:           time.Now,
	}
}

// ApplyDiscount returns price * (1 - pct/100). Percentages outside (0, 100]
// leave the price unchanged.
func ApplyDiscount(price models.Money, pct decimal.Decimal) models.Money {
	if !validPercentage(pct) {
		return price
	}

	return price.Mul(hundred.Sub(pct)).Div(hundred)
}

func validPercentage(pct decimal.Decimal) bool {
	return pct.IsPositive() && pct.LessThanOrEqual(hundred)
}

// ResolveUnitPrice returns the effective unit price in USD. When the override
// lookup fails the base-derived price is returned together with the error.
func (s *pricingService) ResolveUnitPrice(ctx context.Context, variantID uuid.UUID, basePrice models.Money, role string, discount *models.Discount) (models.Money, error) {

	detail, err := s.ResolvePriceDetail(ctx, variantID, basePrice, role, discount)

	return detail.FinalPrice, err
}

func (s *pricingService) ResolvePriceDetail(ctx context.Context, variantID uuid.UUID, basePrice models.Money, role string, discount *models.Discount) (models.PriceDetail, error) {

	price := basePrice

	var lookupErr error

	if role == s.wholesaleRole {
		override, found, err := s.lookupOverride(ctx, variantID, role)
		if err != nil {
			lookupErr = err
		} else if found {
			price = override
		}
	}

	detail := models.PriceDetail{
		FinalPrice:         price,
		OriginalPrice:      price,
		DiscountPercentage: decimal.Zero,
	}

	if discount.IsActive(s.now()) && validPercentage(discount.Percentage) {
		detail.FinalPrice = ApplyDiscount(price, discount.Percentage)
		detail.HasDiscount = true
		detail.DiscountPercentage = discount.Percentage
	}

	return detail, lookupErr
}

func (s *pricingService) lookupOverride(ctx context.Context, variantID uuid.UUID, role string) (decimal.Decimal, bool, error) {

	logger := middleware.LoggerFromContext(ctx)
	cacheKey := overrideCacheKey(variantID, role)

	var cached cachedOverride

	found, err := s.cache.Get(ctx, cacheKey, &cached)
	if err != nil {
		logger.Warn("Price override cache read failed", slog.String("key", cacheKey), slog.String("error", err.Error()))
	} else if found {
		return cached.Price, cached.Found, nil
	}

	override, err := s.overrideRepo.LatestActiveOverride(ctx, variantID, role)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		cached = cachedOverride{}
	case err != nil:
		return decimal.Zero, false, err
	default:
		cached = cachedOverride{Found: true, Price: override.Price}
	}

	if err := s.cache.Set(ctx, cacheKey, cached, s.cacheTTL); err != nil {
		logger.Warn("Price override cache write failed", slog.String("key", cacheKey), slog.String("error", err.Error()))
	}

	return cached.Price, cached.Found, nil
}

// FetchUserRole never fails: guests, missing profiles and lookup errors all
// price as retail.
func (s *pricingService) FetchUserRole(ctx context.Context, identity models.Identity) string {

	if !identity.IsUser() {
		return models.RoleB2C
	}

	profile, err := s.profileRepo.GetProfile(ctx, *identity.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			middleware.LoggerFromContext(ctx).Warn("Failed to fetch user role",
				slog.String("userId", identity.UserID.String()),
				slog.String("error", err.Error()))
		}

		return models.RoleB2C
	}

	if profile.Role == "" {
		return models.RoleB2C
	}

	return profile.Role
}

func (s *pricingService) GetVariantPrice(ctx context.Context, variantID uuid.UUID, role string) (*models.PriceDetail, error) {

	variant, err := s.variantRepo.GetVariant(ctx, variantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.NotFoundError("Variant not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch variant").WithError(err)
	}

	detail, err := s.ResolvePriceDetail(ctx, variantID, variant.BasePrice, role, &variant.Discount)
	if err != nil {
		middleware.LoggerFromContext(ctx).Warn("Price override lookup failed, using base price",
			slog.String("variantId", variantID.String()),
			slog.String("error", err.Error()))
	}

	return &detail, nil
}

// SetOverride supersedes the active override for (variant, role).
func (s *pricingService) SetOverride(ctx context.Context, variantID uuid.UUID, req *models.SetPriceOverrideRequest) (*models.VariantPriceOverride, error) {

	if req.Price.IsNegative() {
		return nil, appErrors.AddValidationError("price", "must not be negative")
	}

	if _, err := s.variantRepo.GetVariant(ctx, variantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.NotFoundError("Variant not found").WithError(err)
		}

		return nil, appErrors.DatabaseError("Failed to fetch variant").WithError(err)
	}

	override, err := s.overrideRepo.ReplaceOverride(ctx, variantID, req.Role, req.Price.Round(2))
	if err != nil {
		return nil, appErrors.DatabaseError("Failed to save price override").WithError(err)
	}

	cacheKey := overrideCacheKey(variantID, req.Role)
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		middleware.LoggerFromContext(ctx).Warn("Failed to invalidate price override cache",
			slog.String("key", cacheKey), slog.String("error", err.Error()))
	}

	return override, nil
}

func overrideCacheKey(variantID uuid.UUID, role string) string {
	return cache.Key(cache.VariantPriceKeyPrefix, variantID.String()+":"+role)
}
