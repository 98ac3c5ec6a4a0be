package mail

import (
	"bytes"
	"context"
	"testing"

	"atelier_back_end/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func sampleOrder() *models.Order {
	return &models.Order{
		ID: "ord-123",
		Customer: models.Customer{
			Name:    "Léa <script>",
			Email:   "lea@example.com",
			Address: models.Address{Line1: "4 rue des Ébénistes", City: "Lyon", PostalCode: "69002", Country: "FR"},
		},
		Items: []models.OrderItem{
			{Name: "Commode en noyer", Quantity: 1, Price: decimal.NewFromInt(890), LineTotal: decimal.NewFromInt(890)},
		},
		Subtotal: decimal.NewFromInt(890),
		Shipping: decimal.Zero,
		Total:    decimal.NewFromInt(890),
		Currency: "EUR",
		Status:   models.OrderShipped,
	}
}

func TestOrderConfirmation(t *testing.T) {
	msg, err := OrderConfirmation("Atelier", sampleOrder(), "https://atelier.example/orders/ord-123")
	require.NoError(t, err)

	assert.Equal(t, []string{"lea@example.com"}, msg.To)
	assert.Contains(t, msg.Subject, "ord-123")
	assert.Contains(t, msg.HTML, "Commode en noyer")
	assert.Contains(t, msg.HTML, "890.00 EUR")
	assert.Contains(t, msg.HTML, "https://atelier.example/orders/ord-123")
	assert.NotContains(t, msg.HTML, "<script>")
}

func TestOrderStatusUpdate(t *testing.T) {
	msg, err := OrderStatusUpdate("Atelier", sampleOrder(), "")
	require.NoError(t, err)
	assert.Contains(t, msg.Subject, "expédiée")
	assert.NotContains(t, msg.HTML, "Suivre ma commande")
}

func TestContactMessage(t *testing.T) {
	msg, err := ContactMessage("Atelier", "hello@atelier.example", "Sam", "sam@example.com", "Livrez-vous à Nantes ?")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello@atelier.example"}, msg.To)
	assert.Equal(t, "sam@example.com", msg.ReplyTo)
	assert.Contains(t, msg.HTML, "Nantes")
}

func TestTestimonialNotification(t *testing.T) {
	msg, err := TestimonialNotification("Atelier", "hello@atelier.example", &models.Testimonial{Author: "Noor", Rating: 5, Message: "Table magnifique"})
	require.NoError(t, err)
	assert.Contains(t, msg.Subject, "Noor")
	assert.Contains(t, msg.HTML, "5/5")
}

func TestBuildMsg(t *testing.T) {
	gm, err := buildMsg("noreply@atelier.example", Message{
		To:          []string{"client@example.com"},
		Subject:     "Votre facture",
		HTML:        "<p>Bonjour</p>",
		Attachments: []Attachment{{Name: "facture.pdf", Data: []byte("%PDF-1.4")}},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = gm.WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "client@example.com")
	assert.Contains(t, out, "Votre facture")
	assert.Contains(t, out, "facture.pdf")
}

func TestBuildMsg_Errors(t *testing.T) {
	_, err := buildMsg("noreply@atelier.example", Message{})
	assert.Error(t, err)

	_, err = buildMsg("noreply@atelier.example", Message{To: []string{"pas une adresse"}})
	assert.Error(t, err)
}

func TestLogMailer(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	m := NewLogMailer(zap.New(core))
	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "Bonjour"}))
	assert.Equal(t, 1, logs.Len())
}
