package service

import (
	"context"

	appErrors "github.com/aaravmahajanofficial/solar-storefront/internal/errors"
	"github.com/aaravmahajanofficial/solar-storefront/internal/models"
	repository "github.com/aaravmahajanofficial/solar-storefront/internal/repositories"
	"github.com/shopspring/decimal"
)

type SettingsService interface {
	UpdateUSDRate(ctx context.Context, rate decimal.Decimal) (*models.RateSnapshot, error)
}

type settingsService struct {
	repo     repository.SettingsRepository
	currency CurrencyService
}

func NewSettingsService(repo repository.SettingsRepository, currency CurrencyService) SettingsService {
	return &settingsService{repo: repo, currency: currency}
}

// UpdateUSDRate persists the rate and applies it locally right away; other
// instances pick it up from the settings channel.
func (s *settingsService) UpdateUSDRate(ctx context.Context, rate decimal.Decimal) (*models.RateSnapshot, error) {

	if !rate.IsPositive() {
		return nil, appErrors.AddValidationError("rate", "must be greater than zero")
	}

	rate = rate.Round(4)

	if _, err := s.repo.UpsertSetting(ctx, models.SettingUSDRate, rate.String()); err != nil {
		return nil, appErrors.DatabaseError("Failed to save exchange rate").WithError(err)
	}

	if err := s.currency.Apply(ctx, rate, rateSourceAdmin); err != nil {
		return nil, appErrors.InternalError("Failed to apply exchange rate").WithError(err)
	}

	snapshot := s.currency.Snapshot()

	return &snapshot, nil
}
