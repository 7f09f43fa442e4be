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

type PricingHandler struct {
	pricingService  service.PricingService
	currencyService service.CurrencyService
	validator       *validator.Validate
}

func NewPricingHandler(pricingService service.PricingService, currencyService service.CurrencyService) *PricingHandler {
	return &PricingHandler{pricingService: pricingService, currencyService: currencyService, validator: validator.New()}
}

// GetVariantPrice godoc
//	@Summary		Get a variant's price for the caller
//	@Description	Resolves the caller's role and returns the effective USD price with the converted TL amount.
//	@Tags			Pricing
//	@Produce		json
//	@Param			id	path		string						true	"Variant ID (UUID)"	Format(uuid)
//	@Success		200	{object}	models.VariantPriceResponse	"Effective price"
//	@Failure		400	{object}	response.ErrorResponse		"Invalid variant ID"
//	@Failure		404	{object}	response.ErrorResponse		"Variant not found"
//	@Router			/variants/{id}/price [get]
func (h *PricingHandler) GetVariantPrice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseID(r, "id")
		if err != nil {
			logger.Warn("Invalid variant id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		role := h.pricingService.FetchUserRole(r.Context(), middleware.IdentityFromContext(r.Context()))

		detail, err := h.pricingService.GetVariantPrice(r.Context(), id, role)
		if err != nil {
			logger.Warn("Failed to price variant", slog.String("variantId", id.String()), slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, models.VariantPriceResponse{
			VariantID: id,
			Role:      role,
			Price:     *detail,
			Converted: h.currencyService.Convert(detail.FinalPrice),
			Display:   h.currencyService.Format(detail.FinalPrice),
		})
	}
}

// SetVariantPrice godoc
//	@Summary		Set a role price override (Admin)
//	@Description	Deactivates the current override for the variant and role, then stores the new one.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string							true	"Variant ID (UUID)"	Format(uuid)
//	@Param			price	body		models.SetPriceOverrideRequest	true	"Role and USD price"
//	@Success		200		{object}	models.VariantPriceOverride		"Stored override"
//	@Failure		400		{object}	response.ErrorResponse			"Invalid input"
//	@Failure		403		{object}	response.ErrorResponse			"Admin role required"
//	@Failure		404		{object}	response.ErrorResponse			"Variant not found"
//	@Security		BearerAuth
//	@Router			/admin/variants/{id}/prices [put]
func (h *PricingHandler) SetVariantPrice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		id, err := utils.ParseID(r, "id")
		if err != nil {
			logger.Warn("Invalid variant id", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		var req models.SetPriceOverrideRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid price override input")
			return
		}

		logger = logger.With(slog.String("variantId", id.String()), slog.String("role", req.Role))

		override, err := h.pricingService.SetOverride(r.Context(), id, &req)
		if err != nil {
			logger.Error("Failed to set price override", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("Price override stored", slog.String("price", override.Price.String()))
		response.Success(w, http.StatusOK, override)
	}
}
