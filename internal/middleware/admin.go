package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"atelier_back_end/internal/audit"
	"atelier_back_end/internal/auth"
	"atelier_back_end/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	CtxAdminClaims = "admin_claims"
	LoginPage      = "/admin/login"
)

// RequireAdmin vérifie la session admin (cookie ou Bearer).
// Une page HTML est redirigée vers le login, un appel API reçoit un 401 JSON.
func RequireAdmin(sessions *auth.SessionManager, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := sessions.Verify(auth.TokenFromRequest(c.Request))
		if err != nil {
			logger.FromContext(c, log).Debug("🔒 session admin refusée", zap.Error(err))

			if wantsHTML(c.Request) {
				next := url.QueryEscape(c.Request.URL.RequestURI())
				c.Redirect(http.StatusFound, LoginPage+"?next="+next)
				c.Abort()
				return
			}

			status, msg := http.StatusUnauthorized, "Session admin requise"
			switch {
			case errors.Is(err, auth.ErrExpiredSession):
				msg = "Session expirée"
			case errors.Is(err, auth.ErrNotAdmin):
				status, msg = http.StatusForbidden, "Accès réservé aux administrateurs"
			}
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			return
		}

		c.Set(audit.CtxAdminID, claims.Subject)
		c.Set(audit.CtxAdminEmail, claims.Email)
		c.Set(CtxAdminClaims, claims)
		c.Next()
	}
}

// Claims retourne la session posée par RequireAdmin
func Claims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(CtxAdminClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func wantsHTML(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
