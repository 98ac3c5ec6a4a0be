// Package payment encapsule les prestataires de paiement (Razorpay, Stripe).
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"atelier_back_end/internal/config"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSignature = errors.New("signature invalide")
	ErrNotCompleted     = errors.New("paiement non finalisé")
	ErrGateway          = errors.New("erreur du prestataire de paiement")
)

type OrderRequest struct {
	OrderID     string
	Amount      decimal.Decimal
	Currency    string
	Email       string
	Description string
}

// GatewayOrder est renvoyé au frontend pour ouvrir le checkout du prestataire
type GatewayOrder struct {
	ID           string `json:"gateway_order_id"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	KeyID        string `json:"key_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// Confirmation : champs renvoyés par le checkout après paiement
type Confirmation struct {
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

type EventKind string

const (
	EventCaptured EventKind = "captured"
	EventFailed   EventKind = "failed"
	EventIgnored  EventKind = "ignored"
)

type WebhookEvent struct {
	Kind             EventKind
	Type             string
	GatewayOrderID   string
	GatewayPaymentID string
	OrderID          string
}

type Gateway interface {
	Name() string
	CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error)
	VerifyPayment(ctx context.Context, c Confirmation) error
	ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error)
	Refund(ctx context.Context, gatewayPaymentID string, amount decimal.Decimal) (string, error)
}

// New construit le gateway du provider configuré
func New(cfg config.PaymentConfig) (Gateway, error) {
	switch cfg.Provider {
	case "razorpay":
		return NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookKey), nil
	case "stripe":
		return NewStripe(cfg.StripeSecretKey, cfg.StripePublishableKey, cfg.StripeWebhookSecret), nil
	default:
		return nil, fmt.Errorf("provider de paiement inconnu: %q", cfg.Provider)
	}
}
