package handlers

import (
	"errors"
	"net/http"
	"strings"

	"atelier_back_end/internal/audit"
	"atelier_back_end/internal/auth"
	"atelier_back_end/internal/middleware"
	"atelier_back_end/internal/models"
	"atelier_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/markbates/goth/gothic"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// startSession émet le JWT, pose le cookie et renseigne le contexte d'audit
func (h *Handler) startSession(c *gin.Context, admin *models.AdminProfile) (string, bool) {
	token, expires, err := h.Sessions.Issue(admin)
	if err != nil {
		h.serverError(c, "Erreur création session", err)
		return "", false
	}
	h.Sessions.SetCookie(c.Writer, token, expires)

	c.Set(audit.CtxAdminID, admin.ID)
	c.Set(audit.CtxAdminEmail, admin.Email)
	if err := h.Admins.TouchLogin(c.Request.Context(), admin.ID); err != nil {
		h.log(c).Warn("⚠️ mise à jour last_login_at", zap.Error(err))
	}
	return token, true
}

// 🔐 POST /api/admin/login
func (h *Handler) AdminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	c.Set(audit.CtxAdminEmail, email)

	admin, err := h.Admins.GetByEmail(c.Request.Context(), email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.serverError(c, "Erreur serveur", err)
		return
	}

	ok := false
	if err == nil && admin.PasswordHash != "" {
		ok, err = auth.VerifyPassword(req.Password, admin.PasswordHash)
		if err != nil {
			h.log(c).Error("❌ hash admin illisible", zap.String("admin_id", admin.ID), zap.Error(err))
			ok = false
		}
	}
	if !ok {
		h.log(c).Warn("🚫 tentative de connexion admin refusée", zap.String("email", email), zap.String("ip", c.ClientIP()))
		audit.Tag(c, audit.ActionLoginFailed, audit.ResourceAuth, email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Identifiants invalides"})
		return
	}

	token, started := h.startSession(c, admin)
	if !started {
		return
	}
	audit.Tag(c, audit.ActionLogin, audit.ResourceAuth, admin.ID)
	h.log(c).Info("✅ Connexion admin", zap.String("admin_id", admin.ID))

	c.JSON(http.StatusOK, gin.H{"admin": admin, "token": token})
}

// 🔓 POST /api/admin/logout
// Hors RequireAdmin : une session expirée doit pouvoir effacer son cookie
func (h *Handler) AdminLogout(c *gin.Context) {
	if claims, err := h.Sessions.Verify(auth.TokenFromRequest(c.Request)); err == nil {
		c.Set(audit.CtxAdminID, claims.Subject)
		c.Set(audit.CtxAdminEmail, claims.Email)
		audit.Tag(c, audit.ActionLogout, audit.ResourceAuth, claims.Subject)
	}
	h.Sessions.ClearCookie(c.Writer)
	c.JSON(http.StatusOK, gin.H{"message": "Déconnecté"})
}

// 👤 GET /api/admin/me
func (h *Handler) AdminMe(c *gin.Context) {
	claims, ok := middleware.Claims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session admin requise"})
		return
	}
	admin, err := h.Admins.Get(c.Request.Context(), claims.Subject)
	if err != nil {
		h.notFoundOr500(c, "Administrateur", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": admin, "expires_at": claims.ExpiresAt})
}

// gothic lit le provider dans la query, on y recopie le paramètre de route
func withProvider(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("provider", c.Param("provider"))
	c.Request.URL.RawQuery = q.Encode()
}

func (h *Handler) adminRedirect(path string) string {
	return strings.TrimRight(h.cfg.FrontendURL, "/") + path
}

// 🌐 GET /api/admin/auth/:provider
func (h *Handler) OAuthBegin(c *gin.Context) {
	if !h.cfg.OAuthEnabled {
		c.JSON(http.StatusNotFound, gin.H{"error": "Connexion OAuth non configurée"})
		return
	}
	withProvider(c)
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// 🌐 GET /api/admin/auth/:provider/callback
// Seuls les comptes admin existants ou listés dans ADMIN_EMAILS sont acceptés
func (h *Handler) OAuthCallback(c *gin.Context) {
	if !h.cfg.OAuthEnabled {
		c.JSON(http.StatusNotFound, gin.H{"error": "Connexion OAuth non configurée"})
		return
	}
	ctx := c.Request.Context()
	withProvider(c)

	user, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		h.log(c).Warn("⚠️ échec OAuth", zap.String("provider", c.Param("provider")), zap.Error(err))
		c.Redirect(http.StatusFound, h.adminRedirect(middleware.LoginPage+"?error=oauth"))
		return
	}
	email := strings.ToLower(strings.TrimSpace(user.Email))
	c.Set(audit.CtxAdminEmail, email)

	_, err = h.Admins.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound) && auth.EmailAllowed(email, h.cfg.AdminEmails):
	case errors.Is(err, store.ErrNotFound):
		h.log(c).Warn("🚫 OAuth refusé, e-mail non autorisé", zap.String("email", email))
		audit.RecordAsync(h.Audit, audit.FromGin(c, audit.ActionLoginFailed, audit.ResourceAuth, email, false), h.Log)
		c.Redirect(http.StatusFound, h.adminRedirect(middleware.LoginPage+"?error=forbidden"))
		return
	default:
		h.serverError(c, "Erreur serveur", err)
		return
	}

	admin, err := h.Admins.Upsert(ctx, &models.AdminProfile{Email: email, Name: user.Name, Provider: user.Provider})
	if err != nil {
		h.serverError(c, "Erreur enregistrement administrateur", err)
		return
	}
	if _, ok := h.startSession(c, admin); !ok {
		return
	}
	audit.RecordAsync(h.Audit, audit.FromGin(c, audit.ActionLogin, audit.ResourceAuth, admin.ID, true), h.Log)
	h.log(c).Info("✅ Connexion admin OAuth", zap.String("admin_id", admin.ID), zap.String("provider", user.Provider))

	c.Redirect(http.StatusFound, h.adminRedirect("/admin"))
}
