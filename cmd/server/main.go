package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atelier_back_end/internal/audit"
	"atelier_back_end/internal/auth"
	"atelier_back_end/internal/cache"
	"atelier_back_end/internal/config"
	"atelier_back_end/internal/database"
	"atelier_back_end/internal/handlers"
	"atelier_back_end/internal/invoice"
	"atelier_back_end/internal/live"
	"atelier_back_end/internal/logger"
	"atelier_back_end/internal/mail"
	"atelier_back_end/internal/middleware"
	"atelier_back_end/internal/payment"
	"atelier_back_end/internal/routes"
	"atelier_back_end/internal/search"
	"atelier_back_end/internal/services"
	"atelier_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const catalogTTL = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		// pas encore de logger configuré
		zap.NewExample().Fatal("❌ Configuration invalide", zap.Error(err))
	}

	log := logger.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clients, err := database.Connect(ctx, cfg, log)
	if err != nil {
		log.Fatal("❌ Connexion aux bases impossible", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := clients.Close(closeCtx); err != nil {
			log.Warn("⚠️ fermeture des connexions", zap.Error(err))
		}
	}()

	if err := database.EnsureIndexes(ctx, clients.DB); err != nil {
		log.Fatal("❌ Création des index MongoDB", zap.Error(err))
	}

	admins := store.NewAdmins(clients.DB)
	if err := auth.Bootstrap(ctx, admins, cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapPassword, log); err != nil {
		log.Fatal("❌ Création du premier administrateur", zap.Error(err))
	}

	gateway, err := payment.New(cfg.Payment)
	if err != nil {
		log.Fatal("❌ Prestataire de paiement", zap.Error(err))
	}
	log.Info("✅ Paiement initialisé", zap.String("provider", gateway.Name()))

	sessions := auth.NewSessionManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, cfg.Auth.Issuer, cfg.Auth.CookieSecure)
	oauth := auth.SetupOAuth(cfg.Auth, cfg.App.BaseURL, log)
	metrics := middleware.NewMetrics()

	deps := handlers.Deps{
		Products:     store.NewProducts(clients.DB),
		Orders:       store.NewOrders(clients.DB),
		Payments:     store.NewPayments(clients.DB),
		Admins:       admins,
		Testimonials: store.NewTestimonials(clients.DB),
		Catalog:      cache.NewCatalog(clients.Redis, catalogTTL, log),
		Search:       search.Disabled{},
		Images:       services.NoImages{},
		Gateway:      gateway,
		Sessions:     sessions,
		Invoices:     invoice.NewChromeRenderer(),
		Metrics:      metrics,
		Ping:         clients.Ping,
		Log:          log,
	}

	var limiter middleware.Limiter = middleware.NewMemoryLimiter()
	if clients.Redis != nil {
		limiter = middleware.NewRedisLimiter(clients.Redis)

		broker := live.NewRedisBroker(clients.Redis, log)
		go broker.Run(ctx)
		deps.Live = broker
	} else {
		deps.Live = live.NewHub()
	}

	if clients.Elastic != nil {
		deps.Search = search.NewElastic(clients.Elastic, log)
	}
	if clients.MinIO != nil {
		deps.Images = services.NewMinioImages(clients.MinIO, cfg.MinIO.Bucket)
	}

	if clients.Scylla != nil {
		scylla := audit.NewScylla(clients.Scylla)
		if err := scylla.EnsureSchema(); err != nil {
			log.Fatal("❌ Schéma du journal d'audit", zap.Error(err))
		}
		deps.Audit = scylla
	} else {
		log.Warn("⚠️ ScyllaDB non configuré, journal d'audit dans les logs uniquement")
		deps.Audit = audit.NewLogRecorder(log)
	}

	if cfg.Mail.Host != "" {
		smtp, err := mail.NewSMTP(cfg.Mail)
		if err != nil {
			log.Fatal("❌ Client SMTP", zap.Error(err))
		}
		deps.Mailer = smtp
		log.Info("✅ SMTP configuré", zap.String("host", cfg.Mail.Host))
	} else {
		log.Warn("⚠️ SMTP non configuré, les e-mails seront seulement journalisés")
		deps.Mailer = mail.NewLogMailer(log)
	}

	h := handlers.New(deps, handlers.Settings{
		Shop:           cfg.Shop,
		Currency:       cfg.Payment.Currency,
		CookieSecure:   cfg.Auth.CookieSecure,
		FrontendURL:    cfg.App.FrontendURL,
		AdminEmails:    cfg.Auth.AdminEmails,
		AdminInbox:     cfg.Mail.AdminInbox,
		OAuthEnabled:   oauth,
		AllowedOrigins: cfg.HTTP.CORSAllowOrigins,
	})

	r := routes.NewRouter(h, routes.Options{
		Sessions: sessions,
		Limiter:  limiter,
		Metrics:  metrics,
		Audit:    deps.Audit,
		HTTP:     cfg.HTTP,
		HSTS:     cfg.Auth.CookieSecure,
		Log:      log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           r,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("🚀 Serveur Atelier lancé", zap.String("port", cfg.App.Port), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Serveur HTTP", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Arrêt demandé, fermeture du serveur")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("❌ Arrêt du serveur", zap.Error(err))
	}
}
