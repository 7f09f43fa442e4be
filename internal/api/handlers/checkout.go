package handlers

import (
	"log/slog"
	"net/http"

	"github.com/aaravmahajanofficial/solar-storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	service "github.com/aaravmahajanofficial/solar-storefront/internal/services"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils"
	"github.com/aaravmahajanofficial/solar-storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
)

type CheckoutHandler struct {
	checkoutService service.CheckoutService
	validator       *validator.Validate
}

func NewCheckoutHandler(checkoutService service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService, validator: validator.New()}
}

// PlaceOrder godoc
//	@Summary		Turn the cart into an order
//	@Description	Guests send contact and address; signed-in users send a saved address id. Prices, the exchange rate and stock are fixed at this moment.
//	@Tags			Checkout
//	@Accept			json
//	@Produce		json
//	@Param			order	body		models.PlaceOrderRequest	true	"Contact and shipping details"
//	@Success		201		{object}	models.PlaceOrderResult		"Order placed, awaiting payment"
//	@Failure		400		{object}	response.ErrorResponse		"Validation error"
//	@Failure		404		{object}	response.ErrorResponse		"No cart or address"
//	@Failure		409		{object}	response.ErrorResponse		"Inactive product, insufficient stock or cart changed"
//	@Failure		422		{object}	response.ErrorResponse		"Empty cart"
//	@Failure		429		{object}	response.ErrorResponse		"Too many checkout attempts"
//	@Failure		500		{object}	response.ErrorResponse		"Internal server error"
//	@Router			/checkout [post]
func (h *CheckoutHandler) PlaceOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())
		identity := middleware.IdentityFromContext(r.Context())

		// Field rules live in the service; only the JSON shape is checked here.
		var req models.PlaceOrderRequest
		if err := utils.DecodeJSONBody(r, &req); err != nil {
			logger.Warn("Invalid checkout body", slog.String("error", err.Error()))
			response.Error(w, errors.BadRequestError("Invalid request body").WithDetail(err.Error()))
			return
		}

		result, err := h.checkoutService.PlaceOrder(r.Context(), identity, &req)
		if err != nil {
			logger.Warn("Checkout rejected", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Order placed", slog.String("orderId", result.OrderID.String()), slog.String("orderNo", result.OrderNo))
		response.Success(w, http.StatusCreated, result)
	}
}
