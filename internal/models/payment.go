package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentCreated  PaymentStatus = "created"
	PaymentCaptured PaymentStatus = "captured"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Payment struct {
	ID               string          `json:"id" bson:"_id"`
	OrderID          string          `json:"order_id" bson:"order_id"`
	Provider         string          `json:"provider" bson:"provider"`
	GatewayOrderID   string          `json:"gateway_order_id" bson:"gateway_order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty" bson:"gateway_payment_id,omitempty"`
	Amount           decimal.Decimal `json:"amount" bson:"amount"`
	Currency         string          `json:"currency" bson:"currency"`
	Status           PaymentStatus   `json:"status" bson:"status"`
	RefundID         string          `json:"refund_id,omitempty" bson:"refund_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" bson:"updated_at"`
}
