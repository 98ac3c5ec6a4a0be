package auth

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"atelier_back_end/internal/config"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"go.uber.org/zap"
)

// SetupOAuth enregistre les providers goth. Retourne false si aucun n'est configuré.
func SetupOAuth(cfg config.AuthConfig, baseURL string, log *zap.Logger) bool {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		log.Warn("⚠️ Aucun provider OAuth configuré")
		return false
	}

	secret := cfg.SessionSecret
	if secret == "" {
		secret = cfg.JWTSecret
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store

	// le handler copie le paramètre de route dans la query
	gothic.GetProviderName = func(req *http.Request) (string, error) {
		if provider := req.URL.Query().Get("provider"); provider != "" {
			return provider, nil
		}
		return "", errors.New("provider introuvable")
	}

	goth.UseProviders(google.New(
		cfg.GoogleClientID,
		cfg.GoogleClientSecret,
		baseURL+"/api/admin/auth/google/callback",
		"email", "profile",
	))
	log.Info("✅ Google OAuth activé")
	return true
}

// EmailAllowed vérifie la liste ADMIN_EMAILS (déjà en minuscules)
func EmailAllowed(email string, allowlist []string) bool {
	return slices.Contains(allowlist, strings.ToLower(strings.TrimSpace(email)))
}
