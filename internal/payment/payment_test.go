package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"atelier_back_end/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
)

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(149999), ToMinorUnits(decimal.RequireFromString("1499.99")))
	assert.Equal(t, int64(1000), ToMinorUnits(decimal.RequireFromString("10")))
	assert.Equal(t, int64(1), ToMinorUnits(decimal.RequireFromString("0.005")))
	assert.Equal(t, "1499.99", FromMinorUnits(149999).String())
}

func TestSignature(t *testing.T) {
	sig := Sign("secret", "order_1", "pay_1")
	assert.Len(t, sig, 64)
	assert.True(t, VerifySignature("secret", sig, "order_1", "pay_1"))
	assert.True(t, VerifySignature("secret", " "+sig+" ", "order_1", "pay_1"))
	assert.False(t, VerifySignature("secret", sig, "order_1", "pay_2"))
	assert.False(t, VerifySignature("autre", sig, "order_1", "pay_1"))
	assert.False(t, VerifySignature("", sig, "order_1", "pay_1"))
	assert.False(t, VerifySignature("secret", "", "order_1", "pay_1"))
}

func TestSign_JoinsWithPipe(t *testing.T) {
	payload := []byte("order_IluGWxBm9U8zJ8|pay_IluGWxBm9U8zJ8")
	assert.Equal(t, SignPayload("secret", payload), Sign("secret", "order_IluGWxBm9U8zJ8", "pay_IluGWxBm9U8zJ8"))
}

func TestRazorpay_VerifyPayment(t *testing.T) {
	rp := NewRazorpay("rzp_key", "rzp_secret", "")
	ctx := context.Background()

	ok := Confirmation{OrderID: "ord-1", GatewayOrderID: "order_1", GatewayPaymentID: "pay_1"}
	ok.Signature = Sign("rzp_secret", "order_1", "pay_1")
	assert.NoError(t, rp.VerifyPayment(ctx, ok))

	bad := ok
	bad.Signature = Sign("rzp_secret", "order_1", "pay_2")
	assert.ErrorIs(t, rp.VerifyPayment(ctx, bad), ErrInvalidSignature)

	missing := ok
	missing.GatewayPaymentID = ""
	assert.ErrorIs(t, rp.VerifyPayment(ctx, missing), ErrInvalidSignature)
}

func TestRazorpay_CreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_key", user)
		assert.Equal(t, "rzp_secret", pass)
		assert.Equal(t, "/v1/orders", r.URL.Path)

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(2549900), body["amount"])
		assert.Equal(t, "INR", body["currency"])
		assert.Equal(t, "ord-42", body["receipt"])

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"order_ABC","amount":2549900,"currency":"INR","receipt":"ord-42","status":"created"}`)
	}))
	defer srv.Close()

	rp := NewRazorpay("rzp_key", "rzp_secret", "", WithBaseURL(srv.URL))
	order, err := rp.CreateOrder(context.Background(), OrderRequest{
		OrderID:  "ord-42",
		Amount:   decimal.RequireFromString("25499"),
		Currency: "INR",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_ABC", order.ID)
	assert.Equal(t, int64(2549900), order.Amount)
	assert.Equal(t, "rzp_key", order.KeyID)
}

func TestRazorpay_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":"BAD_REQUEST_ERROR","description":"The amount must be atleast INR 1.00"}}`)
	}))
	defer srv.Close()

	rp := NewRazorpay("k", "s", "", WithBaseURL(srv.URL))
	_, err := rp.CreateOrder(context.Background(), OrderRequest{OrderID: "o", Amount: decimal.Zero, Currency: "INR"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGateway)
	assert.Contains(t, err.Error(), "BAD_REQUEST_ERROR")
}

func TestRazorpay_Refund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay_9/refund", r.URL.Path)
		fmt.Fprint(w, `{"id":"rfnd_1","status":"processed"}`)
	}))
	defer srv.Close()

	rp := NewRazorpay("k", "s", "", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	id, err := rp.Refund(context.Background(), "pay_9", decimal.RequireFromString("100"))
	require.NoError(t, err)
	assert.Equal(t, "rfnd_1", id)
}

func TestRazorpay_ParseWebhook(t *testing.T) {
	rp := NewRazorpay("k", "s", "whsec")
	payload := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","status":"captured","notes":{"order_id":"ord-1"}}}}}`)

	h := http.Header{}
	h.Set("X-Razorpay-Signature", SignPayload("whsec", payload))
	ev, err := rp.ParseWebhook(payload, h)
	require.NoError(t, err)
	assert.Equal(t, EventCaptured, ev.Kind)
	assert.Equal(t, "order_1", ev.GatewayOrderID)
	assert.Equal(t, "pay_1", ev.GatewayPaymentID)
	assert.Equal(t, "ord-1", ev.OrderID)

	h.Set("X-Razorpay-Signature", SignPayload("autre", payload))
	_, err = rp.ParseWebhook(payload, h)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = rp.ParseWebhook(payload, http.Header{})
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestRazorpay_ParseWebhookKinds(t *testing.T) {
	rp := NewRazorpay("k", "s", "whsec")
	for event, kind := range map[string]EventKind{
		"payment.failed":     EventFailed,
		"order.paid":         EventCaptured,
		"payment.authorized": EventIgnored,
	} {
		payload := []byte(fmt.Sprintf(`{"event":%q,"payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`, event))
		h := http.Header{}
		h.Set("X-Razorpay-Signature", SignPayload("whsec", payload))
		ev, err := rp.ParseWebhook(payload, h)
		require.NoError(t, err)
		assert.Equal(t, kind, ev.Kind, event)
	}
}

func TestRazorpay_WebhookWithoutSecret(t *testing.T) {
	rp := NewRazorpay("k", "s", "")
	payload := []byte(`{"event":"payment.captured"}`)
	h := http.Header{}
	h.Set("X-Razorpay-Signature", SignPayload("", payload))
	_, err := rp.ParseWebhook(payload, h)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func stripeHeader(secret string, payload []byte) http.Header {
	ts := time.Now().Unix()
	sig := SignPayload(secret, []byte(fmt.Sprintf("%d.%s", ts, payload)))
	h := http.Header{}
	h.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", ts, sig))
	return h
}

func TestStripe_ParseWebhook(t *testing.T) {
	s := NewStripe("sk_test", "pk_test", "whsec_test")
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1","object":"payment_intent","status":"succeeded","metadata":{"order_id":"ord-7"}}}}`)

	ev, err := s.ParseWebhook(payload, stripeHeader("whsec_test", payload))
	require.NoError(t, err)
	assert.Equal(t, EventCaptured, ev.Kind)
	assert.Equal(t, "pi_1", ev.GatewayOrderID)
	assert.Equal(t, "ord-7", ev.OrderID)

	_, err = s.ParseWebhook(payload, stripeHeader("mauvais", payload))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = s.ParseWebhook(payload, http.Header{})
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestStripe_ParseWebhookIgnoresOtherEvents(t *testing.T) {
	s := NewStripe("sk_test", "", "whsec_test")
	payload := []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)

	ev, err := s.ParseWebhook(payload, stripeHeader("whsec_test", payload))
	require.NoError(t, err)
	assert.Equal(t, EventIgnored, ev.Kind)
}

func TestCheckIntent(t *testing.T) {
	intent := &stripe.PaymentIntent{
		Status:   stripe.PaymentIntentStatusSucceeded,
		Metadata: map[string]string{"order_id": "ord-1"},
	}
	assert.NoError(t, checkIntent(intent, "ord-1"))
	assert.ErrorIs(t, checkIntent(intent, "ord-2"), ErrInvalidSignature)

	intent.Status = stripe.PaymentIntentStatusRequiresPaymentMethod
	assert.ErrorIs(t, checkIntent(intent, "ord-1"), ErrNotCompleted)
}

func TestNew(t *testing.T) {
	g, err := New(config.PaymentConfig{Provider: "razorpay", RazorpayKeyID: "k", RazorpayKeySecret: "s"})
	require.NoError(t, err)
	assert.Equal(t, "razorpay", g.Name())

	g, err = New(config.PaymentConfig{Provider: "stripe", StripeSecretKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, "stripe", g.Name())

	_, err = New(config.PaymentConfig{Provider: "paypal"})
	assert.Error(t, err)
}
