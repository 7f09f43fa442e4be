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

type CartHandler struct {
	cartService service.CartService
	validator   *validator.Validate
}

func NewCartHandler(cartService service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService, validator: validator.New()}
}

type cartCountResponse struct {
	Count int `json:"count"`
}

type mergeResponse struct {
	Outcome models.MergeOutcome `json:"outcome"`
}

// GetCart godoc
//	@Summary		Get the current cart
//	@Description	Returns the caller's active cart priced for their role. Guests and users with no cart get an empty view.
//	@Tags			Cart
//	@Produce		json
//	@Success		200	{object}	models.CartView			"Current cart"
//	@Failure		500	{object}	response.ErrorResponse	"Internal server error"
//	@Router			/cart [get]
func (h *CartHandler) GetCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())
		identity := middleware.IdentityFromContext(r.Context())

		cart, err := h.cartService.GetCart(r.Context(), identity)
		if err != nil {
			logger.Error("Failed to get cart", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Cart retrieved successfully", slog.Int("lines", len(cart.Lines)))
		response.Success(w, http.StatusOK, cart)
	}
}

// CartCount godoc
//	@Summary		Count cart lines
//	@Description	Number of lines in the caller's cart. Never fails; lookup problems count as zero.
//	@Tags			Cart
//	@Produce		json
//	@Success		200	{object}	cartCountResponse	"Line count"
//	@Router			/cart/count [get]
func (h *CartHandler) CartCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		identity := middleware.IdentityFromContext(r.Context())

		response.Success(w, http.StatusOK, cartCountResponse{Count: h.cartService.CartCount(r.Context(), identity)})
	}
}

// AddItem godoc
//	@Summary		Add an item to the cart
//	@Description	Adds a variant to the active cart, creating the cart (and a guest session) when needed.
//	@Tags			Cart
//	@Accept			json
//	@Produce		json
//	@Param			item	body		models.AddItemRequest	true	"Variant and quantity"
//	@Success		200		{object}	models.CartView			"Updated cart"
//	@Failure		400		{object}	response.ErrorResponse	"Invalid input"
//	@Failure		404		{object}	response.ErrorResponse	"Variant not found"
//	@Failure		409		{object}	response.ErrorResponse	"Inactive product or insufficient stock"
//	@Failure		503		{object}	response.ErrorResponse	"Cart could not be resolved"
//	@Router			/cart/items [post]
func (h *CartHandler) AddItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())
		identity := middleware.IdentityFromContext(r.Context())

		var req models.AddItemRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid add to cart input")
			return
		}

		logger = logger.With(slog.String("variantId", req.VariantID.String()), slog.Int("quantity", req.Quantity))

		cart, err := h.cartService.AddItem(r.Context(), identity, &req)
		if err != nil {
			logger.Warn("Failed to add item to cart", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Item added to cart", slog.String("cartId", cart.ID.String()))
		response.Success(w, http.StatusOK, cart)
	}
}

// UpdateItem godoc
//	@Summary		Change a line's quantity
//	@Description	Sets the quantity of a cart line. Zero removes the line.
//	@Tags			Cart
//	@Accept			json
//	@Produce		json
//	@Param			variantId	path		string							true	"Variant ID (UUID)"	Format(uuid)
//	@Param			quantity	body		models.UpdateQuantityRequest	true	"New quantity"
//	@Success		200			{object}	models.CartView					"Updated cart"
//	@Failure		400			{object}	response.ErrorResponse			"Invalid input"
//	@Failure		404			{object}	response.ErrorResponse			"No cart or line"
//	@Failure		409			{object}	response.ErrorResponse			"Insufficient stock"
//	@Router			/cart/items/{variantId} [put]
func (h *CartHandler) UpdateItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())
		identity := middleware.IdentityFromContext(r.Context())

		variantID, err := utils.ParseID(r, "variantId")
		if err != nil {
			logger.Warn("Invalid variant id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		var req models.UpdateQuantityRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid quantity input")
			return
		}

		cart, err := h.cartService.UpdateItemQuantity(r.Context(), identity, variantID, req.Quantity)
		if err != nil {
			logger.Warn("Failed to update cart line", slog.String("variantId", variantID.String()), slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

// RemoveItem godoc
//	@Summary		Remove a line
//	@Tags			Cart
//	@Produce		json
//	@Param			variantId	path		string					true	"Variant ID (UUID)"	Format(uuid)
//	@Success		200			{object}	models.CartView			"Updated cart"
//	@Failure		400			{object}	response.ErrorResponse	"Invalid variant ID"
//	@Failure		404			{object}	response.ErrorResponse	"No cart"
//	@Router			/cart/items/{variantId} [delete]
func (h *CartHandler) RemoveItem() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())
		identity := middleware.IdentityFromContext(r.Context())

		variantID, err := utils.ParseID(r, "variantId")
		if err != nil {
			logger.Warn("Invalid variant id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		cart, err := h.cartService.RemoveItem(r.Context(), identity, variantID)
		if err != nil {
			logger.Warn("Failed to remove cart line", slog.String("variantId", variantID.String()), slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, cart)
	}
}

// ClearCart godoc
//	@Summary	Empty the cart
//	@Tags		Cart
//	@Success	204
//	@Failure	500	{object}	response.ErrorResponse	"Internal server error"
//	@Router		/cart [delete]
func (h *CartHandler) ClearCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())
		identity := middleware.IdentityFromContext(r.Context())

		if err := h.cartService.ClearCart(r.Context(), identity); err != nil {
			logger.Error("Failed to clear cart", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Cart cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}

// MergeGuestCart godoc
//	@Summary		Merge the guest cart after sign-in
//	@Description	Moves or merges the cookie-backed guest cart into the signed-in user's cart. Always succeeds; the outcome says what happened.
//	@Tags			Cart
//	@Produce		json
//	@Success		200	{object}	mergeResponse			"Merge outcome"
//	@Failure		401	{object}	response.ErrorResponse	"Authentication required"
//	@Security		BearerAuth
//	@Router			/cart/merge [post]
func (h *CartHandler) MergeGuestCart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())
		identity := middleware.IdentityFromContext(r.Context())

		outcome := h.cartService.MergeGuestCartIntoUser(r.Context(), *identity.UserID, identity.Guest)

		logger.Info("Guest cart merge finished", slog.String("outcome", string(outcome)))
		response.Success(w, http.StatusOK, mergeResponse{Outcome: outcome})
	}
}
