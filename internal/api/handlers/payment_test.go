package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aaravmahajanofficial/solar-storefront/internal/api/handlers"
	appErrors "github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	"github.com/aaravmahajanofficial/solar-storefront/internal/services/mocks"
	"github.com/aaravmahajanofficial/solar-storefront/internal/testutils"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

const validCardBody = `{"card_holder": "Ayşe Yılmaz", "card_number": "4111 1111 1111 1234", "expiry": "12/30", "cvc": "123", "accepted_agreement": true}`

func TestPayOrder(t *testing.T) {
	orderID := uuid.New()
	path := "/api/v1/orders/" + orderID.String() + "/payment"
	params := map[string]string{"id": orderID.String()}

	t.Run("Success - Guest pays", func(t *testing.T) {
		// Arrange
		mockPaymentService := new(mocks.PaymentService)
		paymentHandler := handlers.NewPaymentHandler(mockPaymentService)
		req := testutils.CreateTestRequestWithoutContext(http.MethodPost, path, strings.NewReader(validCardBody), params)
		recorder := httptest.NewRecorder()

		result := &models.PaymentResult{Reference: uuid.New(), OrderID: orderID, OrderNo: "ORB-20261111", Status: models.OrderStatusApproved, MaskedCard: "**** **** **** 1234"}
		mockPaymentService.On("SimulatePayment", mock.Anything, guestIdentity(), orderID, mock.MatchedBy(func(r *models.SimulatedPaymentRequest) bool {
			return r.CardNumber == "4111 1111 1111 1234" && r.AcceptedAgreement
		})).Return(result, nil).Once()

		// Act
		paymentHandler.PayOrder()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusOK, recorder.Code)

		var got models.PaymentResult
		decodeData(t, decodeResponse(t, recorder), &got)
		assert.Equal(t, "**** **** **** 1234", got.MaskedCard)
		assert.Equal(t, models.OrderStatusApproved, got.Status)
		mockPaymentService.AssertExpectations(t)
	})

	t.Run("Failure - Card fields rejected before the service", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"Short holder", `{"card_holder": "Ay", "card_number": "4111111111111234", "expiry": "12/30", "cvc": "123"}`},
			{"Letters in CVC", `{"card_holder": "Ayşe Yılmaz", "card_number": "4111111111111234", "expiry": "12/30", "cvc": "12a"}`},
			{"Long expiry", `{"card_holder": "Ayşe Yılmaz", "card_number": "4111111111111234", "expiry": "12/2030", "cvc": "123"}`},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				mockPaymentService := new(mocks.PaymentService)
				paymentHandler := handlers.NewPaymentHandler(mockPaymentService)
				req := testutils.CreateTestRequestWithoutContext(http.MethodPost, path, strings.NewReader(tc.body), params)
				recorder := httptest.NewRecorder()

				paymentHandler.PayOrder()(recorder, req)

				assert.Equal(t, http.StatusBadRequest, recorder.Code)
				mockPaymentService.AssertNotCalled(t, "SimulatePayment", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("Failure - Already paid", func(t *testing.T) {
		mockPaymentService := new(mocks.PaymentService)
		paymentHandler := handlers.NewPaymentHandler(mockPaymentService)
		req := testutils.CreateTestRequestWithContext(http.MethodPost, path, strings.NewReader(validCardBody), uuid.New(), params)
		recorder := httptest.NewRecorder()

		mockPaymentService.On("SimulatePayment", mock.Anything, mock.Anything, orderID, mock.Anything).
			Return(nil, appErrors.ConflictError("Order is not awaiting payment")).Once()

		paymentHandler.PayOrder()(recorder, req)

		assert.Equal(t, http.StatusConflict, recorder.Code)
	})
}
