package service_test

import (
	"context"
	"testing"
	"time"

	appErrors "github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	service "github.com/aaravmahajanofficial/solar-storefront/internal/services"
	svcmocks "github.com/aaravmahajanofficial/solar-storefront/internal/services/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validCard() *models.SimulatedPaymentRequest {
	return &models.SimulatedPaymentRequest{
		CardHolder:        "Ayşe Yılmaz",
		CardNumber:        "4111 1111 1111 1234",
		Expiry:            "12/" + time.Now().AddDate(2, 0, 0).Format("06"),
		CVC:               "123",
		AcceptedAgreement: true,
	}
}

func TestSimulatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - approves a pending order", func(t *testing.T) {
		// Arrange
		orders := new(svcmocks.OrderService)
		svc := service.NewPaymentService(orders)
		userID := uuid.New()
		order := &models.Order{ID: uuid.New(), OrderNo: "ORB-20261111", UserID: &userID, Status: models.OrderStatusPendingPayment}
		approved := *order
		approved.Status = models.OrderStatusApproved
		approved.GrandTotal = dec("350")
		approved.Currency = "TRY"

		orders.On("GetOrder", mock.Anything, order.ID).Return(order, nil).Once()
		orders.On("UpdateOrderStatus", mock.Anything, order.ID, &models.UpdateOrderStatusRequest{
			Status: models.OrderStatusApproved,
			From:   models.OrderStatusPendingPayment,
		}).
			Return(&approved, nil).Once()

		// Act
		result, err := svc.SimulatePayment(ctx, models.UserIdentity(userID), order.ID, validCard())

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusApproved, result.Status)
		assert.Equal(t, "**** **** **** 1234", result.MaskedCard)
		assert.True(t, dec("350").Equal(result.Amount))
		assert.NotEqual(t, uuid.Nil, result.Reference)
		orders.AssertExpectations(t)
	})

	t.Run("Success - guest pays with the checkout token", func(t *testing.T) {
		orders := new(svcmocks.OrderService)
		svc := service.NewPaymentService(orders)
		order := &models.Order{ID: uuid.New(), IsGuest: true, PaymentToken: "PAYTOKEN7Q3", Status: models.OrderStatusPendingPayment}

		orders.On("GetOrder", mock.Anything, order.ID).Return(order, nil).Once()
		orders.On("UpdateOrderStatus", mock.Anything, order.ID, mock.Anything).Return(order, nil).Once()

		card := validCard()
		card.PaymentToken = "PAYTOKEN7Q3"

		_, err := svc.SimulatePayment(ctx, models.GuestIdentity(newGuest()), order.ID, card)

		require.NoError(t, err)
	})

	t.Run("Failure - guest order without the right token", func(t *testing.T) {
		tests := []struct {
			name     string
			identity models.Identity
			token    string
		}{
			{"No session, no token", models.Identity{}, ""},
			{"Fresh session, no token", models.GuestIdentity(newGuest()), ""},
			{"Wrong token", models.GuestIdentity(newGuest()), "PAYTOKEN000"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				orders := new(svcmocks.OrderService)
				svc := service.NewPaymentService(orders)
				order := &models.Order{ID: uuid.New(), IsGuest: true, PaymentToken: "PAYTOKEN7Q3", Status: models.OrderStatusPendingPayment}

				orders.On("GetOrder", mock.Anything, order.ID).Return(order, nil).Once()

				card := validCard()
				card.PaymentToken = tt.token

				_, err := svc.SimulatePayment(ctx, tt.identity, order.ID, card)

				assertAppErrorCode(t, err, appErrors.ErrCodeNotFound)
				orders.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("Failure - concurrent status change surfaces as a conflict", func(t *testing.T) {
		orders := new(svcmocks.OrderService)
		svc := service.NewPaymentService(orders)
		userID := uuid.New()
		order := &models.Order{ID: uuid.New(), UserID: &userID, Status: models.OrderStatusPendingPayment}

		orders.On("GetOrder", mock.Anything, order.ID).Return(order, nil).Once()
		orders.On("UpdateOrderStatus", mock.Anything, order.ID, mock.MatchedBy(func(r *models.UpdateOrderStatusRequest) bool {
			return r.From == models.OrderStatusPendingPayment
		})).Return(nil, appErrors.ConflictError("Order status changed, please reload the order")).Once()

		_, err := svc.SimulatePayment(ctx, models.UserIdentity(userID), order.ID, validCard())

		assertAppErrorCode(t, err, appErrors.ErrCodeConflict)
	})

	t.Run("Failure - someone else's order", func(t *testing.T) {
		orders := new(svcmocks.OrderService)
		svc := service.NewPaymentService(orders)
		owner := uuid.New()
		order := &models.Order{ID: uuid.New(), UserID: &owner, Status: models.OrderStatusPendingPayment}

		orders.On("GetOrder", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := svc.SimulatePayment(ctx, models.UserIdentity(uuid.New()), order.ID, validCard())

		assertAppErrorCode(t, err, appErrors.ErrCodeNotFound)
		orders.AssertNotCalled(t, "UpdateOrderStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failure - guest paying a user order", func(t *testing.T) {
		orders := new(svcmocks.OrderService)
		svc := service.NewPaymentService(orders)
		owner := uuid.New()
		order := &models.Order{ID: uuid.New(), UserID: &owner, Status: models.OrderStatusPendingPayment}

		orders.On("GetOrder", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := svc.SimulatePayment(ctx, models.GuestIdentity(newGuest()), order.ID, validCard())

		assertAppErrorCode(t, err, appErrors.ErrCodeNotFound)
	})

	t.Run("Failure - already paid", func(t *testing.T) {
		orders := new(svcmocks.OrderService)
		svc := service.NewPaymentService(orders)
		userID := uuid.New()
		order := &models.Order{ID: uuid.New(), UserID: &userID, Status: models.OrderStatusApproved}

		orders.On("GetOrder", mock.Anything, order.ID).Return(order, nil).Once()

		_, err := svc.SimulatePayment(ctx, models.UserIdentity(userID), order.ID, validCard())

		assertAppErrorCode(t, err, appErrors.ErrCodeConflict)
	})
}

func TestSimulatePaymentCardChecks(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *models.SimulatedPaymentRequest)
	}{
		{"Short card number", func(r *models.SimulatedPaymentRequest) { r.CardNumber = "4111 1111 1111" }},
		{"Letters in card number", func(r *models.SimulatedPaymentRequest) { r.CardNumber = "4111abcd11111234" }},
		{"Malformed expiry", func(r *models.SimulatedPaymentRequest) { r.Expiry = "13/30" }},
		{"Expired card", func(r *models.SimulatedPaymentRequest) { r.Expiry = "01/20" }},
		{"Short CVC", func(r *models.SimulatedPaymentRequest) { r.CVC = "12" }},
		{"Missing holder", func(r *models.SimulatedPaymentRequest) { r.CardHolder = "  " }},
		{"Agreement not accepted", func(r *models.SimulatedPaymentRequest) { r.AcceptedAgreement = false }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			orders := new(svcmocks.OrderService)
			svc := service.NewPaymentService(orders)
			req := validCard()
			tc.modify(req)

			// Act
			_, err := svc.SimulatePayment(context.Background(), models.UserIdentity(uuid.New()), uuid.New(), req)

			// Assert
			assertAppErrorCode(t, err, appErrors.ErrCodeValidation)
			orders.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
		})
	}
}
