package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	repository "github.com/aaravmahajanofficial/solar-storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type CartRepository struct {
	mock.Mock
}

func (m *CartRepository) FindActiveCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	args := m.Called(ctx, owner)
	cart, _ := args.Get(0).(*models.Cart)
	return cart, args.Error(1)
}

func (m *CartRepository) CreateCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	args := m.Called(ctx, owner)
	cart, _ := args.Get(0).(*models.Cart)
	return cart, args.Error(1)
}

func (m *CartRepository) GetItem(ctx context.Context, cartID, variantID uuid.UUID) (*models.CartItem, error) {
	args := m.Called(ctx, cartID, variantID)
	item, _ := args.Get(0).(*models.CartItem)
	return item, args.Error(1)
}

func (m *CartRepository) AddItem(ctx context.Context, cartID, variantID uuid.UUID, quantity int) (int, error) {
	args := m.Called(ctx, cartID, variantID, quantity)
	return args.Int(0), args.Error(1)
}

func (m *CartRepository) SetItemQuantity(ctx context.Context, cartID, variantID uuid.UUID, quantity int) error {
	return m.Called(ctx, cartID, variantID, quantity).Error(0)
}

func (m *CartRepository) RemoveItem(ctx context.Context, cartID, variantID uuid.UUID) error {
	return m.Called(ctx, cartID, variantID).Error(0)
}

func (m *CartRepository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return m.Called(ctx, cartID).Error(0)
}

func (m *CartRepository) CountItems(ctx context.Context, cartID uuid.UUID) (int, error) {
	args := m.Called(ctx, cartID)
	return args.Int(0), args.Error(1)
}

func (m *CartRepository) ListLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error) {
	args := m.Called(ctx, cartID)
	lines, _ := args.Get(0).([]models.CartLine)
	return lines, args.Error(1)
}

func (m *CartRepository) BeginMerge(ctx context.Context) (repository.CartMergeTx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(repository.CartMergeTx)
	return tx, args.Error(1)
}

type CartMergeTx struct {
	mock.Mock
}

func (m *CartMergeTx) LockActiveCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	args := m.Called(ctx, owner)
	cart, _ := args.Get(0).(*models.Cart)
	return cart, args.Error(1)
}

func (m *CartMergeTx) MergeItems(ctx context.Context, fromCartID, toCartID uuid.UUID) error {
	return m.Called(ctx, fromCartID, toCartID).Error(0)
}

func (m *CartMergeTx) DeleteCart(ctx context.Context, cartID uuid.UUID) error {
	return m.Called(ctx, cartID).Error(0)
}

func (m *CartMergeTx) TransferOwnership(ctx context.Context, cartID, profileID uuid.UUID) error {
	return m.Called(ctx, cartID, profileID).Error(0)
}

func (m *CartMergeTx) Commit() error {
	return m.Called().Error(0)
}

func (m *CartMergeTx) Rollback() error {
	return m.Called().Error(0)
}
