package handlers

import (
	"net/http"
	"strings"

	"atelier_back_end/internal/audit"
	"atelier_back_end/internal/mail"
	"atelier_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type testimonialRequest struct {
	Author   string `json:"author" binding:"required"`
	Location string `json:"location"`
	Rating   int    `json:"rating" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

type contactRequest struct {
	Name    string `json:"name" binding:"required,max=120"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required,max=5000"`
}

// ⭐ GET /api/testimonials (approuvés seulement)
func (h *Handler) ListTestimonials(c *gin.Context) {
	list, err := h.Testimonials.List(c.Request.Context(), true)
	if err != nil {
		h.serverError(c, "Erreur récupération avis", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"testimonials": list, "count": len(list)})
}

// ⭐ POST /api/testimonials
// L'avis reste invisible jusqu'à validation par un admin
func (h *Handler) CreateTestimonial(c *gin.Context) {
	var req testimonialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	t := &models.Testimonial{
		Author:   strings.TrimSpace(req.Author),
		Location: strings.TrimSpace(req.Location),
		Rating:   req.Rating,
		Message:  strings.TrimSpace(req.Message),
	}
	if err := models.Validate(t); err != nil {
		invalidInput(c, err)
		return
	}
	if err := h.Testimonials.Create(c.Request.Context(), t); err != nil {
		h.serverError(c, "Erreur enregistrement avis", err)
		return
	}

	if h.Mailer != nil && h.cfg.AdminInbox != "" {
		if msg, err := mail.TestimonialNotification(h.cfg.Shop.CompanyName, h.cfg.AdminInbox, t); err == nil {
			mail.SendAsync(h.Mailer, msg, h.Log)
		} else {
			h.log(c).Error("❌ template avis", zap.Error(err))
		}
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Merci ! Votre avis sera publié après validation", "id": t.ID})
}

// ⭐ GET /api/admin/testimonials
func (h *Handler) AdminListTestimonials(c *gin.Context) {
	list, err := h.Testimonials.List(c.Request.Context(), false)
	if err != nil {
		h.serverError(c, "Erreur récupération avis", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"testimonials": list, "count": len(list)})
}

// ✅ PATCH /api/admin/testimonials/:id/approve
func (h *Handler) ApproveTestimonial(c *gin.Context) {
	id := c.Param("id")
	audit.Tag(c, audit.ActionTestimonialOK, audit.ResourceTestimonial, id)

	if err := h.Testimonials.Approve(c.Request.Context(), id); err != nil {
		h.notFoundOr500(c, "Avis", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Avis publié"})
}

// 🔴 DELETE /api/admin/testimonials/:id
func (h *Handler) DeleteTestimonial(c *gin.Context) {
	id := c.Param("id")
	audit.Tag(c, audit.ActionTestimonialDel, audit.ResourceTestimonial, id)

	if err := h.Testimonials.Delete(c.Request.Context(), id); err != nil {
		h.notFoundOr500(c, "Avis", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Avis supprimé"})
}

// ✉️ POST /api/contact
func (h *Handler) Contact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	if h.Mailer == nil || h.cfg.AdminInbox == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Formulaire de contact indisponible"})
		return
	}

	msg, err := mail.ContactMessage(h.cfg.Shop.CompanyName, h.cfg.AdminInbox,
		strings.TrimSpace(req.Name), strings.ToLower(strings.TrimSpace(req.Email)), strings.TrimSpace(req.Message))
	if err != nil {
		h.serverError(c, "Erreur envoi message", err)
		return
	}
	mail.SendAsync(h.Mailer, msg, h.Log)

	c.JSON(http.StatusAccepted, gin.H{"message": "Message envoyé, nous vous répondrons rapidement"})
}
