package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	razorpayBaseURL         = "https://api.razorpay.com"
	razorpaySignatureHeader = "X-Razorpay-Signature"
)

// Razorpay parle à l'API REST Razorpay v1
type Razorpay struct {
	keyID         string
	keySecret     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
}

type RazorpayOption func(*Razorpay)

func WithBaseURL(u string) RazorpayOption {
	return func(r *Razorpay) { r.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(c *http.Client) RazorpayOption {
	return func(r *Razorpay) { r.httpClient = c }
}

func NewRazorpay(keyID, keySecret, webhookSecret string, opts ...RazorpayOption) *Razorpay {
	r := &Razorpay{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		baseURL:       razorpayBaseURL,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Razorpay) Name() string { return "razorpay" }

type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error) {
	body := map[string]interface{}{
		"amount":   ToMinorUnits(req.Amount),
		"currency": req.Currency,
		"receipt":  req.OrderID,
		"notes": map[string]string{
			"order_id": req.OrderID,
			"email":    req.Email,
		},
	}

	var order razorpayOrder
	if err := r.do(ctx, http.MethodPost, "/v1/orders", body, &order); err != nil {
		return nil, err
	}

	return &GatewayOrder{
		ID:       order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		KeyID:    r.keyID,
	}, nil
}

// VerifyPayment recalcule HMAC(key_secret, order_id|payment_id)
func (r *Razorpay) VerifyPayment(_ context.Context, c Confirmation) error {
	if c.GatewayOrderID == "" || c.GatewayPaymentID == "" {
		return ErrInvalidSignature
	}
	if !VerifySignature(r.keySecret, c.Signature, c.GatewayOrderID, c.GatewayPaymentID) {
		return ErrInvalidSignature
	}
	return nil
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Status  string            `json:"status"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (r *Razorpay) ParseWebhook(payload []byte, header http.Header) (*WebhookEvent, error) {
	if !VerifyPayload(r.webhookSecret, payload, header.Get(razorpaySignatureHeader)) {
		return nil, ErrInvalidSignature
	}

	var wh razorpayWebhook
	if err := json.Unmarshal(payload, &wh); err != nil {
		return nil, fmt.Errorf("webhook razorpay illisible: %w", err)
	}

	entity := wh.Payload.Payment.Entity
	ev := &WebhookEvent{
		Kind:             EventIgnored,
		Type:             wh.Event,
		GatewayOrderID:   entity.OrderID,
		GatewayPaymentID: entity.ID,
		OrderID:          entity.Notes["order_id"],
	}
	switch wh.Event {
	case "payment.captured", "order.paid":
		ev.Kind = EventCaptured
	case "payment.failed":
		ev.Kind = EventFailed
	}
	return ev, nil
}

type razorpayRefund struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (r *Razorpay) Refund(ctx context.Context, gatewayPaymentID string, amount decimal.Decimal) (string, error) {
	var refund razorpayRefund
	path := "/v1/payments/" + gatewayPaymentID + "/refund"
	if err := r.do(ctx, http.MethodPost, path, map[string]int64{"amount": ToMinorUnits(amount)}, &refund); err != nil {
		return "", err
	}
	return refund.ID, nil
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (r *Razorpay) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(r.keyID, r.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr razorpayError
		_ = json.Unmarshal(data, &apiErr)
		return fmt.Errorf("%w: razorpay %d %s %s", ErrGateway, resp.StatusCode, apiErr.Error.Code, apiErr.Error.Description)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: réponse razorpay illisible: %v", ErrGateway, err)
	}
	return nil
}
