package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is an open vocabulary; the constants are the values the
// storefront itself writes.
type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusApproved       OrderStatus = "approved"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusReturned       OrderStatus = "returned"
)

// Label is the customer-facing Turkish name of the status. Unknown statuses
// are shown as is.
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusPendingPayment, "pending":
		return "Sipariş Alındı"
	case OrderStatusApproved, "processing", "processed":
		return "Hazırlanıyor"
	case OrderStatusShipped:
		return "Kargolandı"
	case OrderStatusDelivered:
		return "Teslim Edildi"
	case OrderStatusCancelled:
		return "İptal Edildi"
	case OrderStatusReturned:
		return "İade Edildi"
	default:
		return string(s)
	}
}

// DefaultCustomerName addresses customers whose name is unknown.
const DefaultCustomerName = "Sayın Müşteri"

type ShippingAddress struct {
	FullName    string `json:"full_name" validate:"required,min=3,max=120"`
	Phone       string `json:"phone" validate:"required,min=10,max=32"`
	Country     string `json:"country,omitempty" validate:"max=64"`
	City        string `json:"city" validate:"required,max=64"`
	District    string `json:"district" validate:"required,max=64"`
	AddressLine string `json:"address_line" validate:"required,max=500"`
	PostalCode  string `json:"postal_code,omitempty" validate:"max=16"`
}

// Address is a saved address in a user's address book.
type Address struct {
	ID        uuid.UUID `json:"id"`
	ProfileID uuid.UUID `json:"profile_id"`
	Title     string    `json:"title"`
	ShippingAddress
}

type GuestContact struct {
	FullName string `json:"full_name" validate:"required,min=3,max=120"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Phone    string `json:"phone" validate:"required,min=10,max=32"`
}

// PlaceOrderRequest carries either a guest contact plus an inline address or,
// for signed-in users, the id of a saved address.
type PlaceOrderRequest struct {
	Contact   *GuestContact    `json:"contact,omitempty"`
	Address   *ShippingAddress `json:"address,omitempty"`
	AddressID *uuid.UUID       `json:"address_id,omitempty"`
}

type Order struct {
	ID              uuid.UUID       `json:"id"`
	OrderNo         string          `json:"order_no"`
	Status          OrderStatus     `json:"status"`
	Currency        string          `json:"currency"`
	Subtotal        Money           `json:"subtotal"`
	DiscountTotal   Money           `json:"discount_total"`
	ShippingTotal   Money           `json:"shipping_total"`
	GrandTotal      Money           `json:"grand_total"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	UserID          *uuid.UUID      `json:"user_id,omitempty"`
	IsGuest         bool            `json:"is_guest"`
	GuestEmail      string          `json:"guest_email,omitempty"`
	GuestName       string          `json:"guest_name,omitempty"`
	GuestPhone      string          `json:"guest_phone,omitempty"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	PaymentToken    string          `json:"-"`
	Items           []OrderItem     `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem is a snapshot of a cart line at purchase time.
type OrderItem struct {
	ID                  uuid.UUID `json:"id"`
	OrderID             uuid.UUID `json:"order_id"`
	VariantID           uuid.UUID `json:"variant_id"`
	ProductID           uuid.UUID `json:"product_id"`
	Quantity            int       `json:"quantity"`
	UnitPriceSnapshot   Money     `json:"unit_price_snapshot"`
	LineTotal           Money     `json:"line_total"`
	ProductNameSnapshot string    `json:"product_name_snapshot"`
	SKUSnapshot         string    `json:"sku_snapshot"`
}

type PlaceOrderResult struct {
	OrderID    uuid.UUID `json:"order_id"`
	OrderNo    string    `json:"order_no"`
	GrandTotal Money     `json:"grand_total"`
	Currency   string    `json:"currency"`
	Display    string    `json:"display"`

	// PaymentToken is issued to guests only and is required to pay the order.
	PaymentToken string `json:"payment_token,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status         OrderStatus `json:"status" validate:"required,max=32"`
	TrackingNumber string      `json:"tracking_number,omitempty" validate:"max=64"`

	// From, when set, makes the update conditional on the current status.
	From OrderStatus `json:"-"`
}

// OrderCustomer is who gets told about an order.
type OrderCustomer struct {
	Email string
	Name  string
}

type OrderPlaced struct {
	OrderID       uuid.UUID `json:"orderId"`
	OrderNo       string    `json:"orderNo"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	IsGuest       bool      `json:"isGuest"`
	ItemCount     int       `json:"itemCount"`
	GrandTotal    Money     `json:"grandTotal"`
	Currency      string    `json:"currency"`
}

type OrderStatusChanged struct {
	OrderID        uuid.UUID   `json:"orderId"`
	OrderNo        string      `json:"orderNo"`
	Status         OrderStatus `json:"status"`
	CustomerEmail  string      `json:"customerEmail"`
	CustomerName   string      `json:"customerName"`
	TrackingNumber string      `json:"trackingNumber,omitempty"`
	GrandTotal     Money       `json:"grandTotal"`
}
