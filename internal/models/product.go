package models

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Slug     string    `json:"slug"`
	IsActive bool      `json:"is_active"`
}

type ProductVariant struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Name        string    `json:"name"`
	SKU         string    `json:"sku"`
	BasePrice   Money     `json:"base_price"`
	Stock       int       `json:"stock"`
	IsActive    bool      `json:"is_active"`
	Discount    Discount  `json:"discount"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DisplayName is the label used in messages and order snapshots.
func (v *ProductVariant) DisplayName() string {
	if v.Name != "" {
		return v.Name
	}

	return v.ProductName
}
