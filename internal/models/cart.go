package models

import (
	"time"

	"github.com/google/uuid"
)

type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusConverted CartStatus = "converted"
)

// CartOwner identifies whose cart it is. Exactly one field is set.
type CartOwner struct {
	ProfileID uuid.UUID
	SessionID string
}

func UserOwner(profileID uuid.UUID) CartOwner {
	return CartOwner{ProfileID: profileID}
}

func GuestOwner(sessionID string) CartOwner {
	return CartOwner{SessionID: sessionID}
}

func (o CartOwner) IsGuest() bool {
	return o.ProfileID == uuid.Nil
}

// Key is a stable string form, used for rate limiting and logs.
func (o CartOwner) Key() string {
	if o.IsGuest() {
		return "guest:" + o.SessionID
	}

	return "user:" + o.ProfileID.String()
}

type Cart struct {
	ID        uuid.UUID  `json:"id"`
	ProfileID *uuid.UUID `json:"profile_id,omitempty"`
	SessionID *string    `json:"session_id,omitempty"`
	Status    CartStatus `json:"status"`
	IsGuest   bool       `json:"is_guest"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CartItem struct {
	ID        uuid.UUID `json:"id"`
	CartID    uuid.UUID `json:"cart_id"`
	VariantID uuid.UUID `json:"variant_id"`
	Quantity  int       `json:"quantity"`
}

// CartLine is a cart item joined to its live variant and product rows.
type CartLine struct {
	Item    CartItem
	Variant ProductVariant
}

type AddItemRequest struct {
	VariantID uuid.UUID `json:"variant_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1,max=999"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=999"`
}

type CartLineView struct {
	VariantID      uuid.UUID   `json:"variant_id"`
	ProductID      uuid.UUID   `json:"product_id"`
	ProductName    string      `json:"product_name"`
	VariantName    string      `json:"variant_name"`
	SKU            string      `json:"sku"`
	Quantity       int         `json:"quantity"`
	Stock          int         `json:"stock"`
	IsActive       bool        `json:"is_active"`
	Price          PriceDetail `json:"price"`
	LineTotal      Money       `json:"line_total"`
	LineTotalLocal Money       `json:"line_total_local"`
	Display        string      `json:"display"`
}

type CartView struct {
	ID            uuid.UUID      `json:"id,omitempty"`
	Lines         []CartLineView `json:"lines"`
	ItemCount     int            `json:"item_count"`
	Subtotal      Money          `json:"subtotal"`
	SubtotalLocal Money          `json:"subtotal_local"`
	Display       string         `json:"display"`
}

type MergeOutcome string

const (
	MergeNone        MergeOutcome = "none"
	MergeCleared     MergeOutcome = "cleared"
	MergeMerged      MergeOutcome = "merged"
	MergeTransferred MergeOutcome = "transferred"
	MergeFailed      MergeOutcome = "failed"
)

// CartChanged is broadcast after a cart mutation commits.
type CartChanged struct {
	CartID uuid.UUID `json:"cart_id"`
	Reason string    `json:"reason"`
}
