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

type OrderHandler struct {
	orderService service.OrderService
	validator    *validator.Validate
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService, validator: validator.New()}
}

// GetOrder godoc
//	@Summary		Get one of the caller's orders
//	@Description	Returns the order with its line snapshots. Orders of other customers are reported as not found.
//	@Tags			Orders
//	@Produce		json
//	@Param			id	path		string					true	"Order ID (UUID)"	Format(uuid)
//	@Success		200	{object}	models.Order			"Order"
//	@Failure		400	{object}	response.ErrorResponse	"Invalid order ID format"
//	@Failure		401	{object}	response.ErrorResponse	"Authentication required"
//	@Failure		404	{object}	response.ErrorResponse	"Order not found"
//	@Failure		500	{object}	response.ErrorResponse	"Internal server error"
//	@Security		BearerAuth
//	@Router			/orders/{id} [get]
func (h *OrderHandler) GetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())
		userID := *middleware.IdentityFromContext(r.Context()).UserID

		id, err := utils.ParseID(r, "id")
		if err != nil {
			logger.Warn("Invalid order id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger = logger.With(slog.String("orderId", id.String()))

		order, err := h.orderService.GetUserOrder(r.Context(), userID, id)
		if err != nil {
			logger.Warn("Failed to get order", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Order retrieved successfully")
		response.Success(w, http.StatusOK, order)
	}
}

// AdminGetOrder godoc
//	@Summary	Get any order (Admin)
//	@Tags		Admin
//	@Produce	json
//	@Param		id	path		string					true	"Order ID (UUID)"	Format(uuid)
//	@Success	200	{object}	models.Order			"Order"
//	@Failure	400	{object}	response.ErrorResponse	"Invalid order ID format"
//	@Failure	403	{object}	response.ErrorResponse	"Admin role required"
//	@Failure	404	{object}	response.ErrorResponse	"Order not found"
//	@Security	BearerAuth
//	@Router		/admin/orders/{id} [get]
func (h *OrderHandler) AdminGetOrder() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseID(r, "id")
		if err != nil {
			response.Error(w, err)
			return
		}

		order, err := h.orderService.GetOrder(r.Context(), id)
		if err != nil {
			logger.Warn("Admin order lookup failed", slog.String("orderId", id.String()), slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, order)
	}
}

// ListOrders godoc
//	@Summary		List the caller's orders
//	@Tags			Orders
//	@Produce		json
//	@Param			page		query		int												false	"Page number (default: 1)"	minimum(1)
//	@Param			pageSize	query		int												false	"Items per page (default: 10)"	minimum(1)
//	@Success		200			{object}	models.PaginatedResponse{Data=[]models.Order}	"Orders, newest first"
//	@Failure		401			{object}	response.ErrorResponse							"Authentication required"
//	@Failure		500			{object}	response.ErrorResponse							"Internal server error"
//	@Security		BearerAuth
//	@Router			/orders [get]
func (h *OrderHandler) ListOrders() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())
		userID := *middleware.IdentityFromContext(r.Context()).UserID

		page, pageSize := utils.ParsePage(r)
		logger = logger.With(slog.Int("page", page), slog.Int("pageSize", pageSize))

		orders, err := h.orderService.ListOrders(r.Context(), userID, page, pageSize)
		if err != nil {
			logger.Error("Failed to list orders", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Orders listed successfully", slog.Int("total", orders.Total))
		response.Success(w, http.StatusOK, orders)
	}
}

// UpdateOrderStatus godoc
//	@Summary		Update order status (Admin)
//	@Description	Sets a new status. Shipping requires a tracking number. The customer is emailed after the change commits.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"Order ID (UUID)"	Format(uuid)
//	@Param			status	body		models.UpdateOrderStatusRequest	true	"New status and optional tracking number"
//	@Success		200		{object}	models.Order					"Updated order"
//	@Failure		400		{object}	response.ErrorResponse			"Invalid order ID or status"
//	@Failure		401		{object}	response.ErrorResponse			"Authentication required"
//	@Failure		403		{object}	response.ErrorResponse			"Admin role required"
//	@Failure		404		{object}	response.ErrorResponse			"Order not found"
//	@Failure		500		{object}	response.ErrorResponse			"Internal server error"
//	@Security		BearerAuth
//	@Router			/admin/orders/{id}/status [patch]
func (h *OrderHandler) UpdateOrderStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseID(r, "id")
		if err != nil {
			logger.Warn("Invalid order id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger = logger.With(slog.String("orderId", id.String()))

		var req models.UpdateOrderStatusRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid update order status input")
			return
		}

		logger = logger.With(slog.String("newStatus", string(req.Status)))

		order, err := h.orderService.UpdateOrderStatus(r.Context(), id, &req)
		if err != nil {
			logger.Error("Failed to update order status", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Order status updated successfully")
		response.Success(w, http.StatusOK, order)
	}
}
