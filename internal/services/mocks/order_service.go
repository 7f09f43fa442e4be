package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type CheckoutService struct {
	mock.Mock
}

func (m *CheckoutService) PlaceOrder(ctx context.Context, identity models.Identity, req *models.PlaceOrderRequest) (*models.PlaceOrderResult, error) {
	args := m.Called(ctx, identity, req)
	result, _ := args.Get(0).(*models.PlaceOrderResult)
	return result, args.Error(1)
}

type OrderService struct {
	mock.Mock
}

func (m *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *OrderService) GetUserOrder(ctx context.Context, userID, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, userID, id)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, page int, size int) (*models.PaginatedResponse, error) {
	args := m.Called(ctx, userID, page, size)
	resp, _ := args.Get(0).(*models.PaginatedResponse)
	return resp, args.Error(1)
}

func (m *OrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, req *models.UpdateOrderStatusRequest) (*models.Order, error) {
	args := m.Called(ctx, id, req)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

type PaymentService struct {
	mock.Mock
}

func (m *PaymentService) SimulatePayment(ctx context.Context, identity models.Identity, orderID uuid.UUID, req *models.SimulatedPaymentRequest) (*models.PaymentResult, error) {
	args := m.Called(ctx, identity, orderID, req)
	result, _ := args.Get(0).(*models.PaymentResult)
	return result, args.Error(1)
}

type SettingsService struct {
	mock.Mock
}

func (m *SettingsService) UpdateUSDRate(ctx context.Context, rate decimal.Decimal) (*models.RateSnapshot, error) {
	args := m.Called(ctx, rate)
	snapshot, _ := args.Get(0).(*models.RateSnapshot)
	return snapshot, args.Error(1)
}

// OrderEvents records published events.
type OrderEvents struct {
	Placed  []models.OrderPlaced
	Changed []models.OrderStatusChanged
}

func (e *OrderEvents) OrderPlaced(event models.OrderPlaced) {
	e.Placed = append(e.Placed, event)
}

func (e *OrderEvents) OrderStatusChanged(event models.OrderStatusChanged) {
	e.Changed = append(e.Changed, event)
}
