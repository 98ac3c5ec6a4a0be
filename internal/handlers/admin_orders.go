package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"atelier_back_end/internal/audit"
	"atelier_back_end/internal/invoice"
	"atelier_back_end/internal/live"
	"atelier_back_end/internal/mail"
	"atelier_back_end/internal/models"
	"atelier_back_end/internal/payment"
	"atelier_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errBadTransition = errors.New("transition de statut interdite")
	errNotRefundable = errors.New("paiement non remboursable")
)

const defaultLowStock = 5

func listLimit(c *gin.Context, def, maxN int64) int64 {
	n, err := strconv.ParseInt(c.Query("limit"), 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxN)
}

// 📋 GET /api/admin/orders?status=
func (h *Handler) ListOrders(c *gin.Context) {
	status := models.OrderStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut inconnu"})
		return
	}
	orders, err := h.Orders.List(c.Request.Context(), status, listLimit(c, 100, 500))
	if err != nil {
		h.serverError(c, "Erreur récupération commandes", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

// 📋 GET /api/admin/orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	ctx := c.Request.Context()
	order, err := h.Orders.Get(ctx, c.Param("id"))
	if err != nil {
		h.notFoundOr500(c, "Commande", err)
		return
	}

	resp := gin.H{"order": order}
	if order.PaymentID != "" {
		pay, err := h.Payments.Get(ctx, order.PaymentID)
		switch {
		case err == nil:
			resp["payment"] = pay
		case !errors.Is(err, store.ErrNotFound):
			h.log(c).Warn("⚠️ lecture paiement", zap.String("payment_id", order.PaymentID), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, resp)
}

type statusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// 🔄 PATCH /api/admin/orders/:id/status
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	audit.Tag(c, audit.ActionOrderStatus, audit.ResourceOrder, id)

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut invalide"})
		return
	}

	order, err := h.Orders.Get(ctx, id)
	if err != nil {
		h.notFoundOr500(c, "Commande", err)
		return
	}
	from := order.Status
	if err := h.applyStatus(ctx, h.log(c), order, req.Status); err != nil {
		h.statusError(c, err, from, req.Status)
		return
	}

	h.log(c).Info("🔄 Statut commande mis à jour",
		zap.String("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(order.Status)),
	)
	c.JSON(http.StatusOK, order)
}

func (h *Handler) statusError(c *gin.Context, err error, from, to models.OrderStatus) {
	switch {
	case errors.Is(err, errBadTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Transition de statut interdite", "from": from, "to": to})
	case errors.Is(err, errNotRefundable):
		c.JSON(http.StatusConflict, gin.H{"error": "Paiement non remboursable"})
	case errors.Is(err, store.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Commande modifiée entre-temps, rechargez-la"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
	case errors.Is(err, payment.ErrGateway):
		h.log(c).Error("❌ remboursement refusé par le prestataire", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Erreur du prestataire de paiement"})
	default:
		h.serverError(c, "Erreur mise à jour commande", err)
	}
}

// applyStatus applique une transition. Annuler une commande payée ou passer en
// refunded rembourse d'abord le paiement capturé, puis remet le stock.
func (h *Handler) applyStatus(ctx context.Context, log *zap.Logger, order *models.Order, next models.OrderStatus) error {
	prev := order.Status
	if !prev.CanTransitionTo(next) {
		return errBadTransition
	}

	if next == models.OrderRefunded || (next == models.OrderCancelled && prev.Settled()) {
		if err := h.refundOrderPayment(ctx, log, order, next == models.OrderRefunded); err != nil {
			return err
		}
	}

	if err := h.Orders.UpdateStatus(ctx, order.ID, prev, next); err != nil {
		return err
	}
	order.Status = next
	order.UpdatedAt = time.Now().UTC()

	if prev.Settled() && (next == models.OrderCancelled || next == models.OrderRefunded) {
		h.restock(ctx, log, order)
	}

	evType := live.EventOrderStatus
	if next == models.OrderRefunded {
		evType = live.EventRefunded
	}
	live.PublishAsync(h.Live, live.Event{
		Type:    evType,
		OrderID: order.ID,
		Status:  string(next),
		Total:   order.Total.StringFixed(2),
	}, h.Log)

	switch next {
	case models.OrderShipped, models.OrderDelivered, models.OrderCancelled, models.OrderRefunded:
		h.notifyStatus(order)
	}
	return nil
}

// refundOrderPayment rembourse le paiement capturé. required=false tolère une
// commande sans paiement capturé (annulation simple).
func (h *Handler) refundOrderPayment(ctx context.Context, log *zap.Logger, order *models.Order, required bool) error {
	if order.PaymentID == "" {
		if required {
			return errNotRefundable
		}
		return nil
	}
	pay, err := h.Payments.Get(ctx, order.PaymentID)
	if err != nil {
		return err
	}
	switch pay.Status {
	case models.PaymentCaptured:
		return h.refundPayment(ctx, log, pay)
	case models.PaymentRefunded:
		return nil
	}
	if required {
		return errNotRefundable
	}
	return nil
}

func (h *Handler) refundPayment(ctx context.Context, log *zap.Logger, pay *models.Payment) error {
	ref := pay.GatewayPaymentID
	if ref == "" {
		ref = pay.GatewayOrderID
	}
	refundID, err := h.Gateway.Refund(ctx, ref, pay.Amount)
	if err != nil {
		h.Metrics.Payment(pay.Provider, "refund_error")
		return err
	}

	pay.Status = models.PaymentRefunded
	pay.RefundID = refundID
	if err := h.Payments.Update(ctx, pay); err != nil {
		// le remboursement est parti : on journalise sans échouer
		log.Error("❌ remboursement non enregistré", zap.String("payment_id", pay.ID), zap.String("refund_id", refundID), zap.Error(err))
	}
	h.Metrics.Payment(pay.Provider, "refunded")
	log.Info("↩️ Paiement remboursé", zap.String("payment_id", pay.ID), zap.String("refund_id", refundID))
	return nil
}

func (h *Handler) restock(ctx context.Context, log *zap.Logger, order *models.Order) {
	for _, it := range order.Items {
		if err := h.Products.AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
			log.Warn("⚠️ remise en stock", zap.String("product_id", it.ProductID), zap.Error(err))
		}
	}
	h.Catalog.Invalidate(ctx)
}

func (h *Handler) notifyStatus(order *models.Order) {
	if h.Mailer == nil {
		return
	}
	msg, err := mail.OrderStatusUpdate(h.cfg.Shop.CompanyName, order, h.trackURL(order))
	if err != nil {
		h.Log.Error("❌ template statut commande", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	mail.SendAsync(h.Mailer, msg, h.Log)
}

// 🧾 GET /api/admin/orders/:id/invoice (?format=html pour l'aperçu)
func (h *Handler) OrderInvoice(c *gin.Context) {
	ctx := c.Request.Context()
	order, err := h.Orders.Get(ctx, c.Param("id"))
	if err != nil {
		h.notFoundOr500(c, "Commande", err)
		return
	}

	if c.Query("format") == "html" {
		html, err := invoice.HTML(h.cfg.Shop, order, time.Now())
		if err != nil {
			h.serverError(c, "Erreur génération facture", err)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
		return
	}

	pdf, err := h.renderInvoice(ctx, order)
	if errors.Is(err, errNoRenderer) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Génération PDF non disponible"})
		return
	}
	if err != nil {
		h.serverError(c, "Erreur génération facture", err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="facture-`+order.ID+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// 💳 GET /api/admin/payments
func (h *Handler) ListPayments(c *gin.Context) {
	payments, err := h.Payments.List(c.Request.Context(), listLimit(c, 100, 500))
	if err != nil {
		h.serverError(c, "Erreur récupération paiements", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments, "count": len(payments)})
}

// ↩️ POST /api/admin/payments/:id/refund (remboursement total)
func (h *Handler) RefundPayment(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	audit.Tag(c, audit.ActionPaymentRefund, audit.ResourcePayment, id)

	pay, err := h.Payments.Get(ctx, id)
	if err != nil {
		h.notFoundOr500(c, "Paiement", err)
		return
	}
	if pay.Status != models.PaymentCaptured {
		c.JSON(http.StatusConflict, gin.H{"error": "Paiement non remboursable", "status": pay.Status})
		return
	}
	order, err := h.Orders.Get(ctx, pay.OrderID)
	if err != nil {
		h.notFoundOr500(c, "Commande", err)
		return
	}

	from := order.Status
	if err := h.applyStatus(ctx, h.log(c), order, models.OrderRefunded); err != nil {
		h.statusError(c, err, from, models.OrderRefunded)
		return
	}

	refreshed, err := h.Payments.Get(ctx, id)
	if err != nil {
		refreshed = pay
	}
	c.JSON(http.StatusOK, gin.H{"payment": refreshed, "order": order})
}

// 📊 GET /api/admin/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.Orders.Stats(ctx)
	if err != nil {
		h.serverError(c, "Erreur statistiques", err)
		return
	}
	products, err := h.Products.Count(ctx)
	if err != nil {
		h.serverError(c, "Erreur statistiques", err)
		return
	}
	threshold := h.cfg.Shop.LowStockThreshold
	if threshold <= 0 {
		threshold = defaultLowStock
	}
	lowStock, err := h.Products.CountLowStock(ctx, threshold)
	if err != nil {
		h.serverError(c, "Erreur statistiques", err)
		return
	}
	pending, err := h.Testimonials.CountPending(ctx)
	if err != nil {
		h.serverError(c, "Erreur statistiques", err)
		return
	}
	recent, err := h.Orders.List(ctx, "", 10)
	if err != nil {
		h.serverError(c, "Erreur statistiques", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders":               stats.Orders,
		"revenue":              stats.Revenue,
		"by_status":            stats.ByStatus,
		"products":             products,
		"low_stock":            lowStock,
		"low_stock_threshold":  threshold,
		"pending_testimonials": pending,
		"recent_orders":        recent,
	})
}

// 📝 GET /api/admin/audit
func (h *Handler) AuditLog(c *gin.Context) {
	entries, err := h.Audit.Recent(c.Request.Context(), int(listLimit(c, 100, 500)))
	if err != nil {
		h.serverError(c, "Erreur lecture journal d'audit", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
