package models

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPaid       OrderStatus = "paid"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderPaid, OrderCancelled},
	OrderPaid:       {OrderProcessing, OrderCancelled, OrderRefunded},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderPaid, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(orderTransitions[s], next)
}

// Settled : la commande compte dans le chiffre d'affaires
func (s OrderStatus) Settled() bool {
	switch s {
	case OrderPaid, OrderProcessing, OrderShipped, OrderDelivered:
		return true
	}
	return false
}

// SettledStatuses sert aux agrégations
func SettledStatuses() []OrderStatus {
	return []OrderStatus{OrderPaid, OrderProcessing, OrderShipped, OrderDelivered}
}

type Address struct {
	Line1      string `json:"line1" bson:"line1" binding:"required" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" bson:"line2,omitempty" validate:"max=200"`
	City       string `json:"city" bson:"city" binding:"required" validate:"required,max=100"`
	State      string `json:"state,omitempty" bson:"state,omitempty" validate:"max=100"`
	PostalCode string `json:"postal_code" bson:"postal_code" binding:"required" validate:"required,max=20"`
	Country    string `json:"country" bson:"country" binding:"required" validate:"required,len=2"`
}

type Customer struct {
	Name    string  `json:"name" bson:"name" binding:"required" validate:"required,max=120"`
	Email   string  `json:"email" bson:"email" binding:"required,email" validate:"required,email"`
	Phone   string  `json:"phone" bson:"phone" validate:"omitempty,max=30"`
	Address Address `json:"address" bson:"address"`
}

type OrderItem struct {
	ProductID string          `json:"product_id" bson:"product_id"`
	Name      string          `json:"name" bson:"name"`
	Price     decimal.Decimal `json:"price" bson:"price"`
	Quantity  int             `json:"quantity" bson:"quantity"`
	LineTotal decimal.Decimal `json:"line_total" bson:"line_total"`
}

type Order struct {
	ID             string          `json:"id" bson:"_id"`
	Customer       Customer        `json:"customer" bson:"customer"`
	Items          []OrderItem     `json:"items" bson:"items"`
	Subtotal       decimal.Decimal `json:"subtotal" bson:"subtotal"`
	Shipping       decimal.Decimal `json:"shipping" bson:"shipping"`
	Total          decimal.Decimal `json:"total" bson:"total" validate:"gte=0"`
	Currency       string          `json:"currency" bson:"currency"`
	Status         OrderStatus     `json:"status" bson:"status"`
	PaymentID      string          `json:"payment_id,omitempty" bson:"payment_id,omitempty"`
	GatewayOrderID string          `json:"gateway_order_id,omitempty" bson:"gateway_order_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" bson:"updated_at"`
}

// ItemCount additionne les quantités
func (o *Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
