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

type SettingsHandler struct {
	settingsService service.SettingsService
	currencyService service.CurrencyService
	validator       *validator.Validate
}

func NewSettingsHandler(settingsService service.SettingsService, currencyService service.CurrencyService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService, currencyService: currencyService, validator: validator.New()}
}

func (h *SettingsHandler) currencyResponse(snapshot models.RateSnapshot) models.CurrencyResponse {
	return models.CurrencyResponse{
		Rate:     snapshot.Rate,
		Currency: h.currencyService.Currency(),
		Sample:   h.currencyService.FormatAmount(snapshot.Rate),
	}
}

// GetCurrency godoc
//	@Summary		Current exchange rate
//	@Description	The USD rate used for display and order snapshots, with one dollar formatted in the settlement currency.
//	@Tags			Currency
//	@Produce		json
//	@Success		200	{object}	models.CurrencyResponse	"Current rate"
//	@Router			/currency [get]
func (h *SettingsHandler) GetCurrency() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, http.StatusOK, h.currencyResponse(h.currencyService.Snapshot()))
	}
}

// UpdateUSDRate godoc
//	@Summary		Change the USD rate (Admin)
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			rate	body		models.UpdateRateRequest	true	"New rate"
//	@Success		200		{object}	models.CurrencyResponse		"Applied rate"
//	@Failure		400		{object}	response.ErrorResponse		"Rate must be positive"
//	@Failure		403		{object}	response.ErrorResponse		"Admin role required"
//	@Failure		500		{object}	response.ErrorResponse		"Internal server error"
//	@Security		BearerAuth
//	@Router			/admin/settings/usd-rate [put]
func (h *SettingsHandler) UpdateUSDRate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		logger := middleware.LoggerFromContext(r.Context())

		var req models.UpdateRateRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			logger.Warn("Invalid rate input")
			return
		}

		snapshot, err := h.settingsService.UpdateUSDRate(r.Context(), req.Rate)
		if err != nil {
			logger.Error("Failed to update USD rate", slog.String("error", err.Error()))
			response.Error(w, err)
			return
		}

		logger.Info("USD rate updated", slog.String("rate", snapshot.Rate.String()))
		response.Success(w, http.StatusOK, h.currencyResponse(*snapshot))
	}
}
