package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type VariantRepository struct {
	mock.Mock
}

func (m *VariantRepository) GetVariant(ctx context.Context, id uuid.UUID) (*models.ProductVariant, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*models.ProductVariant)
	return v, args.Error(1)
}

func (m *VariantRepository) GetVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.ProductVariant, error) {
	args := m.Called(ctx, ids)
	v, _ := args.Get(0).(map[uuid.UUID]*models.ProductVariant)
	return v, args.Error(1)
}

type OverrideRepository struct {
	mock.Mock
}

func (m *OverrideRepository) LatestActiveOverride(ctx context.Context, variantID uuid.UUID, role string) (*models.VariantPriceOverride, error) {
	args := m.Called(ctx, variantID, role)
	o, _ := args.Get(0).(*models.VariantPriceOverride)
	return o, args.Error(1)
}

func (m *OverrideRepository) ReplaceOverride(ctx context.Context, variantID uuid.UUID, role string, price decimal.Decimal) (*models.VariantPriceOverride, error) {
	args := m.Called(ctx, variantID, role, price)
	o, _ := args.Get(0).(*models.VariantPriceOverride)
	return o, args.Error(1)
}

type ProfileRepository struct {
	mock.Mock
}

func (m *ProfileRepository) ProfileExists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *ProfileRepository) GetProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Error(1)
}

type AddressRepository struct {
	mock.Mock
}

func (m *AddressRepository) GetAddress(ctx context.Context, id, profileID uuid.UUID) (*models.Address, error) {
	args := m.Called(ctx, id, profileID)
	a, _ := args.Get(0).(*models.Address)
	return a, args.Error(1)
}
