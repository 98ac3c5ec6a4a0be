// Package invoice produit les factures PDF des commandes.
package invoice

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"atelier_back_end/internal/config"
	"atelier_back_end/internal/models"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// EPC n'accepte que des montants en euros, max 999999999.99
var maxEPCAmount = decimal.RequireFromString("999999999.99")

// EPCPayload construit le contenu texte d'un QR de virement SEPA (EPC069-12)
func EPCPayload(bic, name, iban string, amount decimal.Decimal, ref string) (string, error) {
	if iban == "" || name == "" {
		return "", errors.New("IBAN et bénéficiaire requis")
	}
	if !amount.IsPositive() || amount.GreaterThan(maxEPCAmount) {
		return "", fmt.Errorf("montant EPC invalide: %s", amount)
	}
	if len(name) > 70 {
		name = name[:70]
	}
	return strings.Join([]string{
		"BCD",
		"001",
		"1",
		"SCT",
		bic,
		name,
		strings.ReplaceAll(iban, " ", ""),
		"EUR" + amount.StringFixed(2),
		"",
		"",
		ref,
	}, "\n"), nil
}

// SepaQR renvoie un data URI PNG prêt pour <img src>
func SepaQR(bic, name, iban string, amount decimal.Decimal, ref string) (template.URL, error) {
	payload, err := EPCPayload(bic, name, iban, amount, ref)
	if err != nil {
		return "", err
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)), nil
}

type view struct {
	Shop     string
	Order    *models.Order
	IssuedAt time.Time
	IBAN     string
	BIC      string
	QR       template.URL
}

var tmpl = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal, currency string) string { return d.StringFixed(2) + " " + currency },
	"date":  func(t time.Time) string { return t.Format("02/01/2006") },
}).Parse(`<!DOCTYPE html>
<html lang="fr">
<head><meta charset="UTF-8"><title>Facture {{.Order.ID}}</title>
<style>
body { font-family: Georgia, serif; color: #2b2420; margin: 40px; }
h1 { font-size: 22px; margin-bottom: 4px; }
table { width: 100%; border-collapse: collapse; margin-top: 24px; }
th, td { padding: 8px; border-bottom: 1px solid #e3d9cc; }
th { text-align: left; background: #f4ede4; }
.right { text-align: right; }
.qr { margin-top: 32px; display: flex; gap: 16px; align-items: center; }
</style></head>
<body>
<h1>{{.Shop}}</h1>
<p>Facture n° {{.Order.ID}}<br>Date : {{date .IssuedAt}}</p>
<p><strong>{{.Order.Customer.Name}}</strong><br>
{{.Order.Customer.Address.Line1}}{{if .Order.Customer.Address.Line2}}<br>{{.Order.Customer.Address.Line2}}{{end}}<br>
{{.Order.Customer.Address.PostalCode}} {{.Order.Customer.Address.City}}<br>{{.Order.Customer.Address.Country}}</p>
<table>
<thead><tr><th>Article</th><th class="right">Prix</th><th class="right">Qté</th><th class="right">Total</th></tr></thead>
<tbody>{{range .Order.Items}}
<tr><td>{{.Name}}</td><td class="right">{{money .Price $.Order.Currency}}</td><td class="right">{{.Quantity}}</td><td class="right">{{money .LineTotal $.Order.Currency}}</td></tr>{{end}}
</tbody>
<tfoot>
<tr><td colspan="3" class="right">Sous-total</td><td class="right">{{money .Order.Subtotal .Order.Currency}}</td></tr>
<tr><td colspan="3" class="right">Livraison</td><td class="right">{{money .Order.Shipping .Order.Currency}}</td></tr>
<tr><td colspan="3" class="right"><strong>Total</strong></td><td class="right"><strong>{{money .Order.Total .Order.Currency}}</strong></td></tr>
</tfoot>
</table>
{{if .QR}}<div class="qr"><img src="{{.QR}}" width="160" height="160" alt="QR SEPA">
<p>Virement SEPA<br>IBAN : {{.IBAN}}{{if .BIC}}<br>BIC : {{.BIC}}{{end}}</p></div>{{end}}
</body></html>`))

// HTML rend la facture. Le QR SEPA n'est ajouté que pour une commande en EUR avec un IBAN configuré.
func HTML(shop config.ShopConfig, order *models.Order, issuedAt time.Time) (string, error) {
	v := view{Shop: shop.CompanyName, Order: order, IssuedAt: issuedAt, IBAN: shop.IBAN, BIC: shop.BIC}
	if shop.IBAN != "" && strings.EqualFold(order.Currency, "EUR") {
		qr, err := SepaQR(shop.BIC, shop.CompanyName, shop.IBAN, order.Total, order.ID)
		if err != nil {
			return "", err
		}
		v.QR = qr
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("template facture: %w", err)
	}
	return buf.String(), nil
}

// Renderer convertit du HTML en PDF
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

// ChromeRenderer pilote un Chrome headless via chromedp
type ChromeRenderer struct {
	Timeout time.Duration
}

func NewChromeRenderer() *ChromeRenderer {
	return &ChromeRenderer{Timeout: 30 * time.Second}
}

func (r *ChromeRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("rendu PDF: %w", err)
	}
	return pdf, nil
}
