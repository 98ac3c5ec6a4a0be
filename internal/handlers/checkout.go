package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"atelier_back_end/internal/cart"
	"atelier_back_end/internal/invoice"
	"atelier_back_end/internal/live"
	"atelier_back_end/internal/mail"
	"atelier_back_end/internal/models"
	"atelier_back_end/internal/payment"
	"atelier_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

type verifyRequest struct {
	OrderID          string `json:"order_id" binding:"required"`
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

// shippingFor : livraison offerte au-delà du seuil, sinon forfait
func (h *Handler) shippingFor(subtotal decimal.Decimal) decimal.Decimal {
	threshold := h.cfg.Shop.FreeShippingThreshold
	if threshold.IsPositive() && subtotal.GreaterThanOrEqual(threshold) {
		return decimal.Zero
	}
	return h.cfg.Shop.ShippingFee
}

func (h *Handler) trackURL(o *models.Order) string {
	return strings.TrimRight(h.cfg.FrontendURL, "/") + "/orders/" + o.ID + "?email=" + url.QueryEscape(o.Customer.Email)
}

// 💳 POST /api/payments/order
// Le panier est re-valorisé depuis le catalogue : les prix du cookie ne font pas foi.
func (h *Handler) CreatePaymentOrder(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.log(c)

	var customer models.Customer
	if err := c.ShouldBindJSON(&customer); err != nil {
		invalidInput(c, err)
		return
	}
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	customer.Address.Country = strings.ToUpper(customer.Address.Country)
	if err := models.Validate(&customer); err != nil {
		invalidInput(c, err)
		return
	}

	items := cart.Read(c.Request)
	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide"})
		return
	}

	products, err := h.Products.GetMany(ctx, cart.ProductIDs(items))
	if err != nil {
		h.serverError(c, "Erreur récupération produits", err)
		return
	}

	order := &models.Order{Customer: customer, Currency: h.cfg.Currency, Subtotal: decimal.Zero}
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok || !p.Purchasable() {
			c.JSON(http.StatusConflict, gin.H{"error": "Produit indisponible", "product_id": it.ProductID})
			return
		}
		if it.Quantity > p.Stock {
			c.JSON(http.StatusConflict, gin.H{"error": "Stock insuffisant", "product_id": p.ID, "available": p.Stock})
			return
		}
		line := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		order.Items = append(order.Items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
			LineTotal: line,
		})
		order.Subtotal = order.Subtotal.Add(line)
	}
	order.Shipping = h.shippingFor(order.Subtotal)
	order.Total = order.Subtotal.Add(order.Shipping)

	if err := h.Orders.Create(ctx, order); err != nil {
		h.serverError(c, "Erreur création commande", err)
		return
	}
	h.Metrics.OrderCreated()

	gw, err := h.Gateway.CreateOrder(ctx, payment.OrderRequest{
		OrderID:     order.ID,
		Amount:      order.Total,
		Currency:    order.Currency,
		Email:       customer.Email,
		Description: "Commande " + order.ID,
	})
	if err != nil {
		log.Error("❌ création ordre de paiement", zap.String("order_id", order.ID), zap.Error(err))
		h.cancelOrphan(ctx, log, order.ID)
		h.Metrics.Payment(h.Gateway.Name(), "gateway_error")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Erreur du prestataire de paiement"})
		return
	}

	pay := &models.Payment{
		OrderID:        order.ID,
		Provider:       h.Gateway.Name(),
		GatewayOrderID: gw.ID,
		Amount:         order.Total,
		Currency:       order.Currency,
	}
	if err := h.Payments.Create(ctx, pay); err != nil {
		h.cancelOrphan(ctx, log, order.ID)
		h.serverError(c, "Erreur enregistrement paiement", err)
		return
	}
	if err := h.Orders.AttachPayment(ctx, order.ID, pay.ID, gw.ID); err != nil {
		h.cancelOrphan(ctx, log, order.ID)
		h.serverError(c, "Erreur enregistrement paiement", err)
		return
	}

	log.Info("🛒 Commande créée",
		zap.String("order_id", order.ID),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int("items", order.ItemCount()),
	)
	live.PublishAsync(h.Live, live.Event{
		Type:    live.EventOrderCreated,
		OrderID: order.ID,
		Status:  string(models.OrderPending),
		Total:   order.Total.StringFixed(2),
	}, h.Log)

	c.JSON(http.StatusCreated, gin.H{
		"order_id":         order.ID,
		"provider":         h.Gateway.Name(),
		"gateway_order_id": gw.ID,
		"amount":           gw.Amount,
		"currency":         gw.Currency,
		"key_id":           gw.KeyID,
		"client_secret":    gw.ClientSecret,
		"total":            order.Total,
	})
}

// cancelOrphan annule une commande pending restée sans paiement exploitable
func (h *Handler) cancelOrphan(ctx context.Context, log *zap.Logger, orderID string) {
	if err := h.Orders.UpdateStatus(ctx, orderID, models.OrderPending, models.OrderCancelled); err != nil {
		log.Warn("⚠️ annulation commande orpheline", zap.String("order_id", orderID), zap.Error(err))
	}
}

// ✅ POST /api/payments/verify
func (h *Handler) VerifyPayment(c *gin.Context) {
	ctx := c.Request.Context()

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	order, err := h.Orders.Get(ctx, req.OrderID)
	if err != nil {
		h.notFoundOr500(c, "Commande", err)
		return
	}
	if order.GatewayOrderID != req.GatewayOrderID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paiement ne correspondant pas à la commande"})
		return
	}
	if order.Status.Settled() {
		cart.Clear(c.Writer, h.cartCookie())
		c.JSON(http.StatusOK, gin.H{"order_id": order.ID, "status": order.Status})
		return
	}

	err = h.Gateway.VerifyPayment(ctx, payment.Confirmation{
		OrderID:          order.ID,
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		h.log(c).Warn("🚫 signature de paiement invalide", zap.String("order_id", order.ID))
		h.Metrics.Payment(h.Gateway.Name(), "invalid_signature")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature de paiement invalide"})
		return
	case errors.Is(err, payment.ErrNotCompleted):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "Paiement non finalisé"})
		return
	case err != nil:
		h.log(c).Error("❌ vérification paiement", zap.String("order_id", order.ID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Erreur du prestataire de paiement"})
		return
	}

	pay, err := h.Payments.GetByGatewayOrder(ctx, req.GatewayOrderID)
	if err != nil {
		h.notFoundOr500(c, "Paiement", err)
		return
	}
	if err := h.markPaid(ctx, h.log(c), order, pay, req.GatewayPaymentID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Commande déjà clôturée", "status": order.Status})
			return
		}
		h.serverError(c, "Erreur validation paiement", err)
		return
	}

	cart.Clear(c.Writer, h.cartCookie())
	c.JSON(http.StatusOK, gin.H{"order_id": order.ID, "status": order.Status})
}

// markPaid passe la commande pending -> paid une seule fois, même si verify et le
// webhook arrivent en même temps. Un second appel ne fait rien.
func (h *Handler) markPaid(ctx context.Context, log *zap.Logger, order *models.Order, pay *models.Payment, gatewayPaymentID string) error {
	err := h.Orders.UpdateStatus(ctx, order.ID, models.OrderPending, models.OrderPaid)
	if errors.Is(err, store.ErrConflict) {
		current, gerr := h.Orders.Get(ctx, order.ID)
		if gerr != nil {
			return gerr
		}
		order.Status = current.Status
		if current.Status.Settled() || current.Status == models.OrderRefunded {
			return nil
		}
		log.Error("❌ paiement reçu pour une commande clôturée",
			zap.String("order_id", order.ID), zap.String("status", string(current.Status)))
		return err
	}
	if err != nil {
		return err
	}
	order.Status = models.OrderPaid

	pay.Status = models.PaymentCaptured
	pay.GatewayPaymentID = gatewayPaymentID
	if pay.GatewayPaymentID == "" {
		pay.GatewayPaymentID = pay.GatewayOrderID
	}
	if err := h.Payments.Update(ctx, pay); err != nil {
		log.Error("❌ mise à jour paiement", zap.String("payment_id", pay.ID), zap.Error(err))
	}

	for _, it := range order.Items {
		if err := h.Products.AdjustStock(ctx, it.ProductID, -it.Quantity); err != nil {
			log.Error("❌ décrément stock (survente ?)",
				zap.String("order_id", order.ID), zap.String("product_id", it.ProductID), zap.Error(err))
		}
	}
	h.Catalog.Invalidate(ctx)

	log.Info("💰 Paiement capturé", zap.String("order_id", order.ID), zap.String("provider", pay.Provider))
	h.Metrics.Payment(pay.Provider, "captured")
	live.PublishAsync(h.Live, live.Event{
		Type:    live.EventOrderPaid,
		OrderID: order.ID,
		Status:  string(models.OrderPaid),
		Total:   order.Total.StringFixed(2),
	}, h.Log)

	h.sendConfirmation(*order)
	return nil
}

// sendConfirmation rend la facture PDF puis envoie l'e-mail, le tout hors requête
func (h *Handler) sendConfirmation(order models.Order) {
	if h.Mailer == nil {
		return
	}
	msg, err := mail.OrderConfirmation(h.cfg.Shop.CompanyName, &order, h.trackURL(&order))
	if err != nil {
		h.Log.Error("❌ template confirmation", zap.String("order_id", order.ID), zap.Error(err))
		return
	}

	go func() {
		if pdf, err := h.renderInvoice(context.Background(), &order); err == nil {
			msg.Attachments = append(msg.Attachments, mail.Attachment{
				Name: "facture-" + order.ID + ".pdf",
				Data: pdf,
			})
		} else {
			h.Log.Warn("⚠️ facture non jointe", zap.String("order_id", order.ID), zap.Error(err))
		}
		mail.SendAsync(h.Mailer, msg, h.Log)
	}()
}

var errNoRenderer = errors.New("rendu PDF non configuré")

func (h *Handler) renderInvoice(ctx context.Context, order *models.Order) ([]byte, error) {
	if h.Invoices == nil {
		return nil, errNoRenderer
	}
	html, err := invoice.HTML(h.cfg.Shop, order, time.Now())
	if err != nil {
		return nil, err
	}
	return h.Invoices.Render(ctx, html)
}

// 🔔 POST /api/payments/webhook
// 400 sur signature invalide, 500 sur erreur interne pour que le prestataire réessaie
func (h *Handler) PaymentWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	log := h.log(c)

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Payload trop volumineux"})
		return
	}

	ev, err := h.Gateway.ParseWebhook(payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			log.Warn("🚫 webhook avec signature invalide", zap.String("ip", c.ClientIP()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
			return
		}
		log.Warn("⚠️ webhook illisible", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payload invalide"})
		return
	}
	if ev.Kind == payment.EventIgnored || ev.GatewayOrderID == "" {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	pay, err := h.Payments.GetByGatewayOrder(ctx, ev.GatewayOrderID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("⚠️ webhook pour un paiement inconnu", zap.String("gateway_order_id", ev.GatewayOrderID))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if err != nil {
		h.serverError(c, "Erreur webhook", err)
		return
	}
	order, err := h.Orders.Get(ctx, pay.OrderID)
	if err != nil {
		h.serverError(c, "Erreur webhook", err)
		return
	}

	switch ev.Kind {
	case payment.EventCaptured:
		if err := h.markPaid(ctx, log, order, pay, ev.GatewayPaymentID); err != nil && !errors.Is(err, store.ErrConflict) {
			h.serverError(c, "Erreur webhook", err)
			return
		}
	case payment.EventFailed:
		if pay.Status != models.PaymentCreated {
			break
		}
		pay.Status = models.PaymentFailed
		pay.GatewayPaymentID = ev.GatewayPaymentID
		if err := h.Payments.Update(ctx, pay); err != nil {
			h.serverError(c, "Erreur webhook", err)
			return
		}
		log.Warn("💸 Paiement échoué", zap.String("order_id", order.ID), zap.String("event", ev.Type))
		h.Metrics.Payment(pay.Provider, "failed")
		live.PublishAsync(h.Live, live.Event{Type: live.EventPaymentFail, OrderID: order.ID, Status: string(order.Status)}, h.Log)
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// 📦 GET /api/orders/:id?email=
// Suivi public : l'e-mail doit correspondre, sinon 404 pour ne rien révéler
func (h *Handler) TrackOrder(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "E-mail requis"})
		return
	}

	order, err := h.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.notFoundOr500(c, "Commande", err)
		return
	}
	if !strings.EqualFold(order.Customer.Email, email) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         order.ID,
		"status":     order.Status,
		"items":      order.Items,
		"subtotal":   order.Subtotal,
		"shipping":   order.Shipping,
		"total":      order.Total,
		"currency":   order.Currency,
		"name":       order.Customer.Name,
		"created_at": order.CreatedAt,
		"updated_at": order.UpdatedAt,
	})
}
