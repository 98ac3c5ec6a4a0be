// Package handlers contient les handlers gin de la boutique et de la console admin.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"atelier_back_end/internal/audit"
	"atelier_back_end/internal/auth"
	"atelier_back_end/internal/cache"
	"atelier_back_end/internal/cart"
	"atelier_back_end/internal/config"
	"atelier_back_end/internal/invoice"
	"atelier_back_end/internal/live"
	"atelier_back_end/internal/logger"
	"atelier_back_end/internal/mail"
	"atelier_back_end/internal/middleware"
	"atelier_back_end/internal/models"
	"atelier_back_end/internal/payment"
	"atelier_back_end/internal/search"
	"atelier_back_end/internal/services"
	"atelier_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps : dépendances injectées par cmd/server
type Deps struct {
	Products     store.ProductStore
	Orders       store.OrderStore
	Payments     store.PaymentStore
	Admins       store.AdminStore
	Testimonials store.TestimonialStore

	Catalog  *cache.Catalog
	Search   search.Engine
	Images   services.ImageStore
	Gateway  payment.Gateway
	Sessions *auth.SessionManager
	Mailer   mail.Mailer
	Invoices invoice.Renderer
	Live     live.Broker
	Audit    audit.Recorder
	Metrics  *middleware.Metrics
	Ping     func(ctx context.Context) error
	Log      *zap.Logger
}

// Settings : règles de la boutique issues de la config
type Settings struct {
	Shop           config.ShopConfig
	Currency       string
	CookieSecure   bool
	FrontendURL    string
	AdminEmails    []string
	AdminInbox     string
	OAuthEnabled   bool
	AllowedOrigins []string
}

type Handler struct {
	Deps
	cfg Settings
}

func New(d Deps, s Settings) *Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Search == nil {
		d.Search = search.Disabled{}
	}
	if d.Images == nil {
		d.Images = services.NoImages{}
	}
	if d.Live == nil {
		d.Live = live.NewHub()
	}
	if d.Audit == nil {
		d.Audit = audit.NewLogRecorder(d.Log)
	}
	return &Handler{Deps: d, cfg: s}
}

func (h *Handler) log(c *gin.Context) *zap.Logger {
	return logger.FromContext(c, h.Log)
}

func (h *Handler) cartCookie() cart.CookieOptions {
	return cart.CookieOptions{Secure: h.cfg.CookieSecure}
}

// serverError journalise l'erreur réelle et renvoie un message générique
func (h *Handler) serverError(c *gin.Context, msg string, err error) {
	h.log(c).Error("❌ "+msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// notFoundOr500 : 404 pour store.ErrNotFound, 500 sinon
func (h *Handler) notFoundOr500(c *gin.Context, what string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " introuvable"})
		return
	}
	h.serverError(c, "Erreur serveur", err)
}

func invalidInput(c *gin.Context, err error) {
	body := gin.H{"error": "Données invalides"}
	if fields := models.FieldErrors(err); len(fields) > 0 {
		body["fields"] = fields
	}
	c.JSON(http.StatusBadRequest, body)
}

// withImageURLs signe les clés d'images, une erreur laisse simplement la liste vide
func (h *Handler) withImageURLs(ctx context.Context, products []models.Product) {
	for i := range products {
		h.signImages(ctx, &products[i])
	}
}

func (h *Handler) signImages(ctx context.Context, p *models.Product) {
	p.ImageURLs = make([]string, 0, len(p.ImageKeys))
	for _, key := range p.ImageKeys {
		u, err := h.Images.URL(ctx, key)
		if err != nil {
			continue
		}
		p.ImageURLs = append(p.ImageURLs, u)
	}
}

func (h *Handler) Health(c *gin.Context) {
	if h.Ping != nil {
		if err := h.Ping(c.Request.Context()); err != nil {
			h.log(c).Warn("⚠️ healthcheck", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
