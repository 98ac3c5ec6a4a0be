package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/refund"
	"github.com/stripe/stripe-go/v83/webhook"
)

// Stripe utilise les PaymentIntents ; l'id du PaymentIntent sert d'id de commande prestataire
type Stripe struct {
	publishableKey string
	webhookSecret  string
}

func NewStripe(secretKey, publishableKey, webhookSecret string) *Stripe {
	stripe.Key = secretKey
	return &Stripe{publishableKey: publishableKey, webhookSecret: webhookSecret}
}

func (s *Stripe) Name() string { return "stripe" }

func (s *Stripe) CreateOrder(_ context.Context, req OrderRequest) (*GatewayOrder, error) {
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(ToMinorUnits(req.Amount)),
		Currency:     stripe.String(strings.ToLower(req.Currency)),
		ReceiptEmail: stripe.String(req.Email),
		Description:  stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("order_id", req.OrderID)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	return &GatewayOrder{
		ID:           intent.ID,
		Amount:       intent.Amount,
		Currency:     strings.ToUpper(string(intent.Currency)),
		KeyID:        s.publishableKey,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// VerifyPayment relit le PaymentIntent : pas de signature côté client chez Stripe
func (s *Stripe) VerifyPayment(_ context.Context, c Confirmation) error {
	id := c.GatewayPaymentID
	if id == "" {
		id = c.GatewayOrderID
	}
	intent, err := paymentintent.Get(id, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return checkIntent(intent, c.OrderID)
}

func checkIntent(intent *stripe.PaymentIntent, orderID string) error {
	if intent.Metadata["order_id"] != orderID {
		return ErrInvalidSignature
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return ErrNotCompleted
	}
	return nil
}

func (s *Stripe) ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error) {
	sig := header.Get("Stripe-Signature")
	if s.webhookSecret == "" || sig == "" {
		return nil, ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, ErrInvalidSignature
	}

	ev := &WebhookEvent{Kind: EventIgnored, Type: string(event.Type)}
	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("webhook stripe illisible: %w", err)
		}
		ev.GatewayOrderID = pi.ID
		ev.GatewayPaymentID = pi.ID
		ev.OrderID = pi.Metadata["order_id"]
		if event.Type == "payment_intent.succeeded" {
			ev.Kind = EventCaptured
		} else {
			ev.Kind = EventFailed
		}
	}
	return ev, nil
}

func (s *Stripe) Refund(_ context.Context, gatewayPaymentID string, amount decimal.Decimal) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(gatewayPaymentID),
		Amount:        stripe.Int64(ToMinorUnits(amount)),
		Reason:        stripe.String("requested_by_customer"),
	}

	r, err := refund.New(params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return r.ID, nil
}
