package mail

import (
	"bytes"
	"fmt"
	"html/template"

	"atelier_back_end/internal/models"

	"github.com/shopspring/decimal"
)

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal, currency string) string {
		return d.StringFixed(2) + " " + currency
	},
}

const layout = `{{define "top"}}<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>{{.Shop}}</title></head>
<body style="font-family: Georgia, serif; background-color: #f6f1ea; padding: 24px;">
<div style="max-width: 600px; margin: auto; background: #ffffff; padding: 28px; border-radius: 8px;">
<h2 style="color: #3b2f2a;">{{.Shop}}</h2>{{end}}
{{define "bottom"}}<p style="margin-top: 32px; color: #6b5d55;">Cordialement,<br><strong>L'équipe {{.Shop}}</strong></p>
</div></body></html>{{end}}`

var templates = template.Must(template.New("mail").Funcs(funcs).Parse(layout + `
{{define "order_confirmation"}}{{template "top" .}}
<p>Bonjour {{.Order.Customer.Name}},</p>
<p>Merci pour votre commande <strong>#{{.Order.ID}}</strong>. Le paiement a bien été reçu.</p>
<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
<thead><tr style="background: #efe7dc;"><th align="left">Article</th><th>Qté</th><th align="right">Total</th></tr></thead>
<tbody>{{range .Order.Items}}<tr><td>{{.Name}}</td><td align="center">{{.Quantity}}</td><td align="right">{{money .LineTotal $.Order.Currency}}</td></tr>{{end}}</tbody>
<tfoot>
<tr><td colspan="2" align="right">Sous-total</td><td align="right">{{money .Order.Subtotal .Order.Currency}}</td></tr>
<tr><td colspan="2" align="right">Livraison</td><td align="right">{{money .Order.Shipping .Order.Currency}}</td></tr>
<tr><td colspan="2" align="right"><strong>Total</strong></td><td align="right"><strong>{{money .Order.Total .Order.Currency}}</strong></td></tr>
</tfoot></table>
<p>Livraison à : {{.Order.Customer.Address.Line1}}, {{.Order.Customer.Address.PostalCode}} {{.Order.Customer.Address.City}}</p>
{{if .TrackURL}}<p><a href="{{.TrackURL}}">Suivre ma commande</a></p>{{end}}
{{template "bottom" .}}{{end}}

{{define "order_status"}}{{template "top" .}}
<p>Bonjour {{.Order.Customer.Name}},</p>
<p>Votre commande <strong>#{{.Order.ID}}</strong> est maintenant : <strong>{{.StatusLabel}}</strong>.</p>
{{if .TrackURL}}<p><a href="{{.TrackURL}}">Suivre ma commande</a></p>{{end}}
{{template "bottom" .}}{{end}}

{{define "contact"}}{{template "top" .}}
<p>Nouveau message de <strong>{{.Name}}</strong> ({{.Email}}) :</p>
<blockquote style="border-left: 3px solid #c9b8a6; padding-left: 12px;">{{.Message}}</blockquote>
{{template "bottom" .}}{{end}}

{{define "testimonial"}}{{template "top" .}}
<p>Nouveau témoignage en attente de validation :</p>
<p><strong>{{.Testimonial.Author}}</strong>{{if .Testimonial.Location}} ({{.Testimonial.Location}}){{end}} : {{.Testimonial.Rating}}/5</p>
<blockquote style="border-left: 3px solid #c9b8a6; padding-left: 12px;">{{.Testimonial.Message}}</blockquote>
{{template "bottom" .}}{{end}}
`))

var statusLabels = map[models.OrderStatus]string{
	models.OrderPaid:       "payée",
	models.OrderProcessing: "en préparation",
	models.OrderShipped:    "expédiée",
	models.OrderDelivered:  "livrée",
	models.OrderCancelled:  "annulée",
	models.OrderRefunded:   "remboursée",
}

func render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("template %s: %w", name, err)
	}
	return buf.String(), nil
}

func OrderConfirmation(shop string, order *models.Order, trackURL string) (Message, error) {
	html, err := render("order_confirmation", map[string]interface{}{
		"Shop": shop, "Order": order, "TrackURL": trackURL,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{order.Customer.Email},
		Subject: fmt.Sprintf("%s : confirmation de la commande #%s", shop, order.ID),
		HTML:    html,
	}, nil
}

func OrderStatusUpdate(shop string, order *models.Order, trackURL string) (Message, error) {
	label, ok := statusLabels[order.Status]
	if !ok {
		label = string(order.Status)
	}
	html, err := render("order_status", map[string]interface{}{
		"Shop": shop, "Order": order, "StatusLabel": label, "TrackURL": trackURL,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{order.Customer.Email},
		Subject: fmt.Sprintf("%s : votre commande est %s", shop, label),
		HTML:    html,
	}, nil
}

func ContactMessage(shop, inbox, name, email, message string) (Message, error) {
	html, err := render("contact", map[string]interface{}{
		"Shop": shop, "Name": name, "Email": email, "Message": message,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{inbox},
		ReplyTo: email,
		Subject: fmt.Sprintf("[%s] Message de %s", shop, name),
		HTML:    html,
	}, nil
}

func TestimonialNotification(shop, inbox string, t *models.Testimonial) (Message, error) {
	html, err := render("testimonial", map[string]interface{}{
		"Shop": shop, "Testimonial": t,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      []string{inbox},
		Subject: fmt.Sprintf("[%s] Nouveau témoignage de %s", shop, t.Author),
		HTML:    html,
	}, nil
}
