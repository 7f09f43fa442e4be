package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Money is a fixed-point amount. Canonical prices are USD.
type Money = decimal.Decimal

type Discount struct {
	Percentage decimal.Decimal `json:"percentage"`
	Start      *time.Time      `json:"start,omitempty"`
	End        *time.Time      `json:"end,omitempty"`
}

// IsActive reports whether the discount applies at now. Missing bounds are open.
func (d *Discount) IsActive(now time.Time) bool {
	if d == nil || !d.Percentage.IsPositive() {
		return false
	}

	if d.Start != nil && now.Before(*d.Start) {
		return false
	}

	if d.End != nil && now.After(*d.End) {
		return false
	}

	return true
}

type PriceDetail struct {
	FinalPrice         Money           `json:"final_price"`
	OriginalPrice      Money           `json:"original_price"`
	HasDiscount        bool            `json:"has_discount"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
}

type VariantPriceOverride struct {
	ID        uuid.UUID `json:"id"`
	VariantID uuid.UUID `json:"variant_id"`
	Role      string    `json:"role"`
	Price     Money     `json:"price"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type SetPriceOverrideRequest struct {
	Role  string          `json:"role" validate:"required,max=32"`
	Price decimal.Decimal `json:"price"`
}

type VariantPriceResponse struct {
	VariantID uuid.UUID   `json:"variant_id"`
	Role      string      `json:"role"`
	Price     PriceDetail `json:"price"`
	Converted Money       `json:"converted"`
	Display   string      `json:"display"`
}
