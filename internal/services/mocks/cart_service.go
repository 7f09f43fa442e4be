package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type CartService struct {
	mock.Mock
}

func (m *CartService) GetOrCreateActiveCart(ctx context.Context, identity models.Identity) (uuid.UUID, bool) {
	args := m.Called(ctx, identity)
	return args.Get(0).(uuid.UUID), args.Bool(1)
}

func (m *CartService) GetCurrentCartID(ctx context.Context, identity models.Identity) (uuid.UUID, bool) {
	args := m.Called(ctx, identity)
	return args.Get(0).(uuid.UUID), args.Bool(1)
}

func (m *CartService) MergeGuestCartIntoUser(ctx context.Context, userID uuid.UUID, guest models.GuestSession) models.MergeOutcome {
	args := m.Called(ctx, userID, guest)
	return args.Get(0).(models.MergeOutcome)
}

func (m *CartService) AddItem(ctx context.Context, identity models.Identity, req *models.AddItemRequest) (*models.CartView, error) {
	args := m.Called(ctx, identity, req)
	view, _ := args.Get(0).(*models.CartView)
	return view, args.Error(1)
}

func (m *CartService) UpdateItemQuantity(ctx context.Context, identity models.Identity, variantID uuid.UUID, quantity int) (*models.CartView, error) {
	args := m.Called(ctx, identity, variantID, quantity)
	view, _ := args.Get(0).(*models.CartView)
	return view, args.Error(1)
}

func (m *CartService) RemoveItem(ctx context.Context, identity models.Identity, variantID uuid.UUID) (*models.CartView, error) {
	args := m.Called(ctx, identity, variantID)
	view, _ := args.Get(0).(*models.CartView)
	return view, args.Error(1)
}

func (m *CartService) ClearCart(ctx context.Context, identity models.Identity) error {
	return m.Called(ctx, identity).Error(0)
}

func (m *CartService) GetCart(ctx context.Context, identity models.Identity) (*models.CartView, error) {
	args := m.Called(ctx, identity)
	view, _ := args.Get(0).(*models.CartView)
	return view, args.Error(1)
}

func (m *CartService) CartCount(ctx context.Context, identity models.Identity) int {
	return m.Called(ctx, identity).Int(0)
}

func (m *CartService) NotifyCartChanged(cartID uuid.UUID, reason string) {
	m.Called(cartID, reason)
}

func (m *CartService) Subscribe(fn func(models.CartChanged)) func() {
	args := m.Called(fn)
	unsubscribe, _ := args.Get(0).(func())
	if unsubscribe == nil {
		return func() {}
	}
	return unsubscribe
}
