package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const SettingUSDRate = "usd_rate"

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingChange arrives on the settings push channel. Resync is set when the
// channel reconnected and changes may have been missed.
type SettingChange struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Resync bool   `json:"-"`
}

type RateSnapshot struct {
	Rate      decimal.Decimal `json:"rate"`
	Timestamp time.Time       `json:"timestamp"`
}

type UpdateRateRequest struct {
	Rate decimal.Decimal `json:"rate"`
}

type CurrencyResponse struct {
	Rate     decimal.Decimal `json:"rate"`
	Currency string          `json:"currency"`
	Sample   string          `json:"sample"`
}
