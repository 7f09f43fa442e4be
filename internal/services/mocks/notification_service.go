package mocks

import (
	"context"

	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type NotificationService struct {
	mock.Mock
}

func (m *NotificationService) SendEmail(ctx context.Context, req *models.EmailNotificationRequest) (*models.NotificationResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.NotificationResponse)
	return resp, args.Error(1)
}

func (m *NotificationService) GetNotification(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*models.Notification)
	return n, args.Error(1)
}

func (m *NotificationService) ListNotifications(ctx context.Context, page int, size int) (*models.PaginatedResponse, error) {
	args := m.Called(ctx, page, size)
	resp, _ := args.Get(0).(*models.PaginatedResponse)
	return resp, args.Error(1)
}

// EmailService stands in for the SendGrid client.
type EmailService struct {
	mock.Mock
}

func (m *EmailService) Send(ctx context.Context, req *models.EmailNotificationRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *EmailService) Configured() bool {
	return true
}
