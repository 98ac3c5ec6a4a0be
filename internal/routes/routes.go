package routes

import (
	"atelier_back_end/internal/audit"
	"atelier_back_end/internal/auth"
	"atelier_back_end/internal/config"
	"atelier_back_end/internal/handlers"
	"atelier_back_end/internal/logger"
	"atelier_back_end/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options regroupe ce dont le routeur a besoin en plus des handlers
type Options struct {
	Sessions *auth.SessionManager
	Limiter  middleware.Limiter
	Metrics  *middleware.Metrics
	Audit    audit.Recorder
	HTTP     config.HTTPConfig
	HSTS     bool
	Log      *zap.Logger
}

// NewRouter construit le moteur gin avec le middleware global
func NewRouter(h *handlers.Handler, opts Options) *gin.Engine {
	if opts.Limiter == nil {
		opts.Limiter = middleware.NewMemoryLimiter()
	}
	if opts.Audit == nil {
		opts.Audit = audit.NewLogRecorder(opts.Log)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
		opts.Log.Warn("⚠️ proxys de confiance invalides", zap.Error(err))
	}

	r.Use(middleware.RequestID(), logger.Gin(opts.Log), logger.Recovery(opts.Log))
	r.Use(middleware.SecurityHeaders(opts.HSTS))
	if cors := middleware.CORS(opts.HTTP.CORSAllowOrigins); cors != nil {
		r.Use(cors)
	}
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	RegisterRoutes(r, h, opts)
	return r
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, opts Options) {
	limit := func(name string) gin.HandlerFunc {
		return middleware.RateLimit(opts.Limiter, name, opts.HTTP.RateLimitRequests, opts.HTTP.RateLimitWindow, middleware.ByIP, opts.Log)
	}

	r.GET("/healthz", h.Health)

	api := r.Group("/api")

	// Catalogue
	api.GET("/products", h.ListProducts)
	api.GET("/products/search", h.SearchProducts)
	api.GET("/products/:id", h.GetProduct)

	// Panier (cookie)
	api.GET("/cart", h.GetCart)
	api.POST("/cart/items", h.AddToCart)
	api.PATCH("/cart/items/:productId", h.UpdateCartItem)
	api.DELETE("/cart/items/:productId", h.RemoveFromCart)
	api.DELETE("/cart", h.ClearCart)

	// Paiement
	payments := api.Group("/payments")
	payments.POST("/order", limit("payments"), h.CreatePaymentOrder)
	payments.POST("/verify", limit("payments"), h.VerifyPayment)
	payments.POST("/webhook", h.PaymentWebhook)
	api.GET("/orders/:id", limit("tracking"), h.TrackOrder)

	// Avis et contact
	api.GET("/testimonials", h.ListTestimonials)
	api.POST("/testimonials", limit("testimonials"), h.CreateTestimonial)
	api.POST("/contact", limit("contact"), h.Contact)

	// Console admin
	admin := api.Group("/admin", middleware.AuditTrail(opts.Audit, opts.Log))
	admin.POST("/login", middleware.LoginRateLimit(opts.Limiter, opts.HTTP.LoginLimit, opts.HTTP.LoginWindow, opts.Log), h.AdminLogin)
	admin.POST("/logout", h.AdminLogout)
	admin.GET("/auth/:provider", h.OAuthBegin)
	admin.GET("/auth/:provider/callback", h.OAuthCallback)

	protected := admin.Group("", middleware.RequireAdmin(opts.Sessions, opts.Log))
	{
		protected.GET("/me", h.AdminMe)
		protected.GET("/dashboard", h.Dashboard)
		protected.GET("/live", h.LiveFeed)
		protected.GET("/audit", h.AuditLog)

		protected.GET("/products", h.AdminListProducts)
		protected.POST("/products", h.CreateProduct)
		protected.PUT("/products/:id", h.UpdateProduct)
		protected.DELETE("/products/:id", h.DeleteProduct)
		protected.POST("/products/:id/images", h.UploadProductImage)

		protected.GET("/orders", h.ListOrders)
		protected.GET("/orders/:id", h.GetOrder)
		protected.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		protected.GET("/orders/:id/invoice", h.OrderInvoice)

		protected.GET("/payments", h.ListPayments)
		protected.POST("/payments/:id/refund", h.RefundPayment)

		protected.GET("/testimonials", h.AdminListTestimonials)
		protected.PATCH("/testimonials/:id/approve", h.ApproveTestimonial)
		protected.DELETE("/testimonials/:id", h.DeleteTestimonial)
	}
}
