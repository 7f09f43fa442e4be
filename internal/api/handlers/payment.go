package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/solar-storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	service "github.com/aaravmahajanofficial/solar-storefront/internal/services"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type PaymentHandler struct {
	paymentService service.PaymentService
	validator      *validator.Validate
}

func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, validator: validator.New()}
}

// PayOrder godoc
//	@Summary		Pay for an order
//	@Description	Simulated card payment. Checks the card fields and approves a pending order. Guests may pay guest orders.
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"Order ID (UUID)"	Format(uuid)
//	@Param			card	body		models.SimulatedPaymentRequest	true	"Card details"
//	@Success		200		{object}	models.PaymentResult			"Payment approved"
//	@Failure		400		{object}	response.ErrorResponse			"Invalid card details"
//	@Failure		404		{object}	response.ErrorResponse			"Order not found"
//	@Failure		409		{object}	response.ErrorResponse			"Order is not awaiting payment"
//	@Router			/orders/{id}/payment [post]
func (h *PaymentHandler) PayOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())
		identity := middleware.IdentityFromContext(r.Context())

		id, err := utils.ParseID(r, "id")
		if err != nil {
			logger.Warn("Invalid order id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger = logger.With(slog.String("orderId", id.String()))

		var req models.SimulatedPaymentRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid payment input")
			return
		}

		result, err := h.paymentService.SimulatePayment(r.Context(), identity, id, &req)
		if err != nil {
			logger.Warn("Payment rejected", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Payment approved", slog.String("reference", result.Reference.String()))
		response.Success(w, http.StatusOK, result)
	}
}
