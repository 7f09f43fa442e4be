package models

import (
	"time"

	"github.com/google/uuid"
)

type SimulatedPaymentRequest struct {
	CardHolder        string `json:"card_holder" validate:"required,min=5,max=64"`
	CardNumber        string `json:"card_number" validate:"required"`
	Expiry            string `json:"expiry" validate:"required,len=5"`
	CVC               string `json:"cvc" validate:"required,numeric,min=3,max=4"`
	AcceptedAgreement bool   `json:"accepted_agreement"`
	PaymentToken      string `json:"payment_token,omitempty"`
}

type PaymentResult struct {
	Reference  uuid.UUID   `json:"reference"`
	OrderID    uuid.UUID   `json:"order_id"`
	OrderNo    string      `json:"order_no"`
	Status     OrderStatus `json:"status"`
	Amount     Money       `json:"amount"`
	Currency   string      `json:"currency"`
	MaskedCard string      `json:"masked_card"`
	ApprovedAt time.Time   `json:"approved_at"`
}
