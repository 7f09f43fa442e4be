package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type PricingService struct {
	mock.Mock
}

func (m *PricingService) ResolveUnitPrice(ctx context.Context, variantID uuid.UUID, basePrice models.Money, role string, discount *models.Discount) (models.Money, error) {
	args := m.Called(ctx, variantID, basePrice, role, discount)
	return args.Get(0).(models.Money), args.Error(1)
}

func (m *PricingService) ResolvePriceDetail(ctx context.Context, variantID uuid.UUID, basePrice models.Money, role string, discount *models.Discount) (models.PriceDetail, error) {
	args := m.Called(ctx, variantID, basePrice, role, discount)
	return args.Get(0).(models.PriceDetail), args.Error(1)
}

func (m *PricingService) FetchUserRole(ctx context.Context, identity models.Identity) string {
	return m.Called(ctx, identity).String(0)
}

func (m *PricingService) GetVariantPrice(ctx context.Context, variantID uuid.UUID, role string) (*models.PriceDetail, error) {
	args := m.Called(ctx, variantID, role)
	detail, _ := args.Get(0).(*models.PriceDetail)
	return detail, args.Error(1)
}

func (m *PricingService) SetOverride(ctx context.Context, variantID uuid.UUID, req *models.SetPriceOverrideRequest) (*models.VariantPriceOverride, error) {
	args := m.Called(ctx, variantID, req)
	override, _ := args.Get(0).(*models.VariantPriceOverride)
	return override, args.Error(1)
}

// CurrencyService converts at a fixed rate and formats amounts plainly.
type CurrencyService struct {
	mock.Mock
	FixedRate decimal.Decimal
}

func NewCurrencyService(rate string) *CurrencyService {
	return &CurrencyService{FixedRate: decimal.RequireFromString(rate)}
}

func (m *CurrencyService) Rate() decimal.Decimal {
	return m.FixedRate
}

func (m *CurrencyService) Snapshot() models.RateSnapshot {
	return models.RateSnapshot{Rate: m.FixedRate}
}

func (m *CurrencyService) Currency() string {
	return "TRY"
}

func (m *CurrencyService) Convert(usd models.Money) models.Money {
	return usd.Mul(m.FixedRate).Round(2)
}

func (m *CurrencyService) Format(usd models.Money) string {
	return m.FormatAmount(m.Convert(usd))
}

func (m *CurrencyService) FormatAmount(local models.Money) string {
	return local.StringFixed(2) + " TL"
}

func (m *CurrencyService) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *CurrencyService) Apply(ctx context.Context, rate decimal.Decimal, source string) error {
	args := m.Called(ctx, rate, source)
	if args.Error(0) == nil {
		m.FixedRate = rate
	}
	return args.Error(0)
}

func (m *CurrencyService) Subscribe(fn func(models.RateSnapshot)) func() {
	return func() {}
}

func (m *CurrencyService) Start(ctx context.Context) {}

func (m *CurrencyService) Close() {}
