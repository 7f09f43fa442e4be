package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type OrderRepository struct {
	mock.Mock
}

func (m *OrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *OrderRepository) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page int, size int) ([]models.Order, int, error) {
	args := m.Called(ctx, userID, page, size)
	o, _ := args.Get(0).([]models.Order)
	return o, args.Int(1), args.Error(2)
}

func (m *OrderRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus, trackingNumber string) (*models.Order, error) {
	args := m.Called(ctx, id, status, trackingNumber)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

func (m *OrderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) (*models.Order, error) {
	args := m.Called(ctx, id, from, to)
	o, _ := args.Get(0).(*models.Order)
	return o, args.Error(1)
}

type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) error {
	return m.Called(ctx, notification).Error(0)
}

func (m *NotificationRepository) GetNotificationById(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*models.Notification)
	return n, args.Error(1)
}

func (m *NotificationRepository) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status models.NotificationStatus, errorMsg string) error {
	return m.Called(ctx, id, status, errorMsg).Error(0)
}

func (m *NotificationRepository) ListNotifications(ctx context.Context, page int, size int) ([]*models.Notification, int, error) {
	args := m.Called(ctx, page, size)
	n, _ := args.Get(0).([]*models.Notification)
	return n, args.Int(1), args.Error(2)
}
