package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	repository "github.com/aaravmahajanofficial/solar-storefront/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type CheckoutRepository struct {
	mock.Mock
}

func (m *CheckoutRepository) Begin(ctx context.Context) (repository.CheckoutTx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(repository.CheckoutTx)
	return tx, args.Error(1)
}

type CheckoutTx struct {
	mock.Mock
}

func (m *CheckoutTx) LockActiveCart(ctx context.Context, owner models.CartOwner) (*models.Cart, error) {
	args := m.Called(ctx, owner)
	cart, _ := args.Get(0).(*models.Cart)
	return cart, args.Error(1)
}

func (m *CheckoutTx) LoadLines(ctx context.Context, cartID uuid.UUID) ([]models.CartLine, error) {
	args := m.Called(ctx, cartID)
	lines, _ := args.Get(0).([]models.CartLine)
	return lines, args.Error(1)
}

func (m *CheckoutTx) DecrementStock(ctx context.Context, variantID uuid.UUID, quantity int) error {
	return m.Called(ctx, variantID, quantity).Error(0)
}

func (m *CheckoutTx) InsertOrder(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *CheckoutTx) InsertOrderItems(ctx context.Context, orderID uuid.UUID, items []models.OrderItem) error {
	return m.Called(ctx, orderID, items).Error(0)
}

func (m *CheckoutTx) ConvertCart(ctx context.Context, cartID uuid.UUID) error {
	return m.Called(ctx, cartID).Error(0)
}

func (m *CheckoutTx) Commit() error {
	return m.Called().Error(0)
}

func (m *CheckoutTx) Rollback() error {
	return m.Called().Error(0)
}
