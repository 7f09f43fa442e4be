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

func TestGetCurrency(t *testing.T) {
	// Arrange
	settingsHandler := handlers.NewSettingsHandler(new(mocks.SettingsService), mocks.NewCurrencyService("35.5"))
	req := testutils.CreateTestRequestWithoutContext(http.MethodGet, "/api/v1/currency", nil, nil)
	recorder := httptest.NewRecorder()

	// Act
	settingsHandler.GetCurrency()(recorder, req)

	// Assert
	assert.Equal(t, http.StatusOK, recorder.Code)

	var got models.CurrencyResponse
	decodeData(t, decodeResponse(t, recorder), &got)
	assert.True(t, dec("35.5").Equal(got.Rate))
	assert.Equal(t, "TRY", got.Currency)
	assert.Equal(t, "35.50 TL", got.Sample)
}

func TestUpdateUSDRate(t *testing.T) {
	path := "/api/v1/admin/settings/usd-rate"

	t.Run("Success", func(t *testing.T) {
		// Arrange
		mockSettingsService := new(mocks.SettingsService)
		settingsHandler := handlers.NewSettingsHandler(mockSettingsService, mocks.NewCurrencyService("35"))
		req := testutils.CreateTestRequestWithContext(http.MethodPut, path, strings.NewReader(`{"rate": "36.40"}`), uuid.New(), nil)
		recorder := httptest.NewRecorder()

		mockSettingsService.On("UpdateUSDRate", mock.Anything, decimalArg("36.40")).Return(&models.RateSnapshot{Rate: dec("36.4")}, nil).Once()

		// Act
		settingsHandler.UpdateUSDRate()(recorder, req)

		// Assert
		assert.Equal(t, http.StatusOK, recorder.Code)

		var got models.CurrencyResponse
		decodeData(t, decodeResponse(t, recorder), &got)
		assert.True(t, dec("36.4").Equal(got.Rate))
		mockSettingsService.AssertExpectations(t)
	})

	t.Run("Failure - Not a number", func(t *testing.T) {
		mockSettingsService := new(mocks.SettingsService)
		settingsHandler := handlers.NewSettingsHandler(mockSettingsService, mocks.NewCurrencyService("35"))
		req := testutils.CreateTestRequestWithContext(http.MethodPut, path, strings.NewReader(`{"rate": "otuz"}`), uuid.New(), nil)
		recorder := httptest.NewRecorder()

		settingsHandler.UpdateUSDRate()(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		mockSettingsService.AssertNotCalled(t, "UpdateUSDRate", mock.Anything, mock.Anything)
	})

	t.Run("Failure - Non-positive rate", func(t *testing.T) {
		mockSettingsService := new(mocks.SettingsService)
		settingsHandler := handlers.NewSettingsHandler(mockSettingsService, mocks.NewCurrencyService("35"))
		req := testutils.CreateTestRequestWithContext(http.MethodPut, path, strings.NewReader(`{"rate": 0}`), uuid.New(), nil)
		recorder := httptest.NewRecorder()

		mockSettingsService.On("UpdateUSDRate", mock.Anything, mock.Anything).Return(nil, appErrors.AddValidationError("rate", "must be positive")).Once()

		settingsHandler.UpdateUSDRate()(recorder, req)

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}
