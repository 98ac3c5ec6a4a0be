package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const minJWTSecretLen = 32

// Config regroupe toute la configuration de l'application
type Config struct {
	App     AppConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Elastic ElasticConfig
	MinIO   MinIOConfig
	Scylla  ScyllaConfig
	Auth    AuthConfig
	Payment PaymentConfig
	Mail    MailConfig
	Shop    ShopConfig
	Log     LogConfig
	HTTP    HTTPConfig
}

type AppConfig struct {
	Name        string
	Env         string
	Port        string
	BaseURL     string
	FrontendURL string
}

type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// RedisConfig : Addr vide = Redis désactivé
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ElasticConfig : URL vide = recherche par sous-chaîne uniquement
type ElasticConfig struct {
	URL      string
	User     string
	Password string
}

// MinIOConfig : Endpoint vide = pas d'upload d'images
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ScyllaConfig : Hosts vide = journal d'audit dans les logs seulement
type ScyllaConfig struct {
	Hosts    []string
	Keyspace string
	User     string
	Password string
	Timeout  time.Duration
}

type AuthConfig struct {
	JWTSecret          string
	Issuer             string
	SessionTTL         time.Duration
	CookieSecure       bool
	SessionSecret      string
	GoogleClientID     string
	GoogleClientSecret string
	AdminEmails        []string
	BootstrapEmail     string
	BootstrapPassword  string
}

type PaymentConfig struct {
	Provider             string // razorpay, stripe
	Currency             string
	RazorpayKeyID        string
	RazorpayKeySecret    string
	RazorpayWebhookKey   string
	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
}

type MailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	AdminInbox string
}

// ShopConfig regroupe les règles commerciales de la boutique
type ShopConfig struct {
	CompanyName           string
	IBAN                  string
	BIC                   string
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	LowStockThreshold     int
}

type LogConfig struct {
	Level  string
	Format string
}

type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	CORSAllowOrigins  []string
	TrustedProxies    []string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	LoginLimit        int
	LoginWindow       time.Duration
}

// Load charge le .env (optionnel) puis les variables d'environnement
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	_ = v.BindEnv("app.port", "APP_PORT", "PORT")

	shippingFee, err := decimal.NewFromString(v.GetString("shop.shipping_fee"))
	if err != nil {
		return nil, fmt.Errorf("SHOP_SHIPPING_FEE invalide: %w", err)
	}
	freeThreshold, err := decimal.NewFromString(v.GetString("shop.free_shipping_threshold"))
	if err != nil {
		return nil, fmt.Errorf("SHOP_FREE_SHIPPING_THRESHOLD invalide: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:        v.GetString("app.name"),
			Env:         v.GetString("app.env"),
			Port:        v.GetString("app.port"),
			BaseURL:     strings.TrimRight(v.GetString("app.base_url"), "/"),
			FrontendURL: strings.TrimRight(v.GetString("app.frontend_url"), "/"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("mongo.uri"),
			Database: v.GetString("mongo.database"),
			Timeout:  v.GetDuration("mongo.timeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Elastic: ElasticConfig{
			URL:      v.GetString("elastic.url"),
			User:     v.GetString("elastic.user"),
			Password: v.GetString("elastic.password"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("minio.endpoint"),
			AccessKey: v.GetString("minio.access_key"),
			SecretKey: v.GetString("minio.secret_key"),
			Bucket:    v.GetString("minio.bucket"),
			UseSSL:    v.GetBool("minio.use_ssl"),
		},
		Scylla: ScyllaConfig{
			Hosts:    splitList(v.GetString("scylla.hosts")),
			Keyspace: v.GetString("scylla.keyspace"),
			User:     v.GetString("scylla.user"),
			Password: v.GetString("scylla.password"),
			Timeout:  v.GetDuration("scylla.timeout"),
		},
		Auth: AuthConfig{
			JWTSecret:          v.GetString("auth.jwt_secret"),
			Issuer:             v.GetString("auth.issuer"),
			SessionTTL:         v.GetDuration("auth.session_ttl"),
			CookieSecure:       v.GetBool("auth.cookie_secure"),
			SessionSecret:      v.GetString("auth.session_secret"),
			GoogleClientID:     v.GetString("auth.google_client_id"),
			GoogleClientSecret: v.GetString("auth.google_client_secret"),
			AdminEmails:        splitList(strings.ToLower(v.GetString("auth.admin_emails"))),
			BootstrapEmail:     strings.ToLower(v.GetString("auth.bootstrap_email")),
			BootstrapPassword:  v.GetString("auth.bootstrap_password"),
		},
		Payment: PaymentConfig{
			Provider:             strings.ToLower(v.GetString("payment.provider")),
			Currency:             strings.ToUpper(v.GetString("payment.currency")),
			RazorpayKeyID:        v.GetString("payment.razorpay_key_id"),
			RazorpayKeySecret:    v.GetString("payment.razorpay_key_secret"),
			RazorpayWebhookKey:   v.GetString("payment.razorpay_webhook_secret"),
			StripeSecretKey:      v.GetString("payment.stripe_secret_key"),
			StripePublishableKey: v.GetString("payment.stripe_publishable_key"),
			StripeWebhookSecret:  v.GetString("payment.stripe_webhook_secret"),
		},
		Mail: MailConfig{
			Host:       v.GetString("mail.host"),
			Port:       v.GetInt("mail.port"),
			Username:   v.GetString("mail.username"),
			Password:   v.GetString("mail.password"),
			From:       v.GetString("mail.from"),
			AdminInbox: v.GetString("mail.admin_inbox"),
		},
		Shop: ShopConfig{
			CompanyName:           v.GetString("shop.company_name"),
			IBAN:                  v.GetString("shop.iban"),
			BIC:                   v.GetString("shop.bic"),
			ShippingFee:           shippingFee,
			FreeShippingThreshold: freeThreshold,
			LowStockThreshold:     v.GetInt("shop.low_stock_threshold"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			CORSAllowOrigins:  splitList(v.GetString("http.cors_allow_origins")),
			TrustedProxies:    splitList(v.GetString("http.trusted_proxies")),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			LoginLimit:        v.GetInt("http.login_limit"),
			LoginWindow:       v.GetDuration("http.login_window"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "atelier")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.base_url", "http://localhost:8080")
	v.SetDefault("app.frontend_url", "http://localhost:3000")
	v.SetDefault("mongo.database", "atelier")
	v.SetDefault("mongo.timeout", 10*time.Second)
	v.SetDefault("minio.bucket", "atelier-images")
	v.SetDefault("scylla.keyspace", "atelier_audit")
	v.SetDefault("scylla.timeout", 5*time.Second)
	v.SetDefault("auth.issuer", "atelier")
	v.SetDefault("auth.session_ttl", 12*time.Hour)
	v.SetDefault("payment.provider", "razorpay")
	v.SetDefault("payment.currency", "INR")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "noreply@atelier.local")
	v.SetDefault("shop.company_name", "Atelier")
	v.SetDefault("shop.shipping_fee", "499")
	v.SetDefault("shop.free_shipping_threshold", "25000")
	v.SetDefault("shop.low_stock_threshold", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.rate_limit_requests", 30)
	v.SetDefault("http.rate_limit_window", time.Minute)
	v.SetDefault("http.login_limit", 5)
	v.SetDefault("http.login_window", 15*time.Minute)
}

// Validate vérifie les secrets obligatoires
func (c *Config) Validate() error {
	var errs []error

	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("MONGO_URI manquant"))
	}
	if len(c.Auth.JWTSecret) < minJWTSecretLen {
		errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET doit contenir au moins %d caractères", minJWTSecretLen))
	}
	if c.Auth.SessionTTL <= 0 {
		errs = append(errs, errors.New("AUTH_SESSION_TTL doit être positif"))
	}

	switch c.Payment.Provider {
	case "razorpay":
		if c.Payment.RazorpayKeyID == "" || c.Payment.RazorpayKeySecret == "" {
			errs = append(errs, errors.New("PAYMENT_RAZORPAY_KEY_ID et PAYMENT_RAZORPAY_KEY_SECRET requis"))
		}
	case "stripe":
		if c.Payment.StripeSecretKey == "" {
			errs = append(errs, errors.New("PAYMENT_STRIPE_SECRET_KEY requis"))
		}
	default:
		errs = append(errs, fmt.Errorf("PAYMENT_PROVIDER inconnu: %q", c.Payment.Provider))
	}

	if c.Shop.ShippingFee.IsNegative() || c.Shop.FreeShippingThreshold.IsNegative() {
		errs = append(errs, errors.New("frais de livraison négatifs"))
	}
	if c.IsProduction() && !c.Auth.CookieSecure {
		errs = append(errs, errors.New("AUTH_COOKIE_SECURE doit être activé en production"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
