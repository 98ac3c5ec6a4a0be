package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"atelier_back_end/internal/audit"
	"atelier_back_end/internal/models"
	"atelier_back_end/internal/services"
	"atelier_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// productInput : champs modifiables par l'admin. Active est un pointeur pour
// distinguer "absent" de false.
type productInput struct {
	Name           string            `json:"name"`
	Slug           string            `json:"slug"`
	Description    string            `json:"description"`
	Category       string            `json:"category"`
	Price          decimal.Decimal   `json:"price"`
	CompareAtPrice *decimal.Decimal  `json:"compare_at_price"`
	Stock          int               `json:"stock"`
	Materials      []string          `json:"materials"`
	Colors         []string          `json:"colors"`
	Dimensions     models.Dimensions `json:"dimensions"`
	WeightKg       float64           `json:"weight_kg"`
	Featured       bool              `json:"featured"`
	Active         *bool             `json:"active"`
}

func (in productInput) apply(p *models.Product) {
	p.Name = strings.TrimSpace(in.Name)
	p.Slug = strings.TrimSpace(in.Slug)
	p.Description = in.Description
	p.Category = strings.TrimSpace(in.Category)
	p.Price = in.Price
	p.CompareAtPrice = in.CompareAtPrice
	p.Stock = in.Stock
	p.Materials = in.Materials
	p.Colors = in.Colors
	p.Dimensions = in.Dimensions
	p.WeightKg = in.WeightKg
	p.Featured = in.Featured
	if in.Active != nil {
		p.Active = *in.Active
	}
	if p.Materials == nil {
		p.Materials = []string{}
	}
	if p.Colors == nil {
		p.Colors = []string{}
	}
}

// afterWrite réindexe le produit et vide le cache catalogue
func (h *Handler) afterWrite(ctx context.Context, log *zap.Logger, p *models.Product) {
	if err := h.Search.Index(ctx, p); err != nil {
		log.Warn("⚠️ indexation Elasticsearch", zap.String("product_id", p.ID), zap.Error(err))
	}
	h.Catalog.Invalidate(ctx)
}

// 🟢 GET /api/admin/products (inactifs compris)
func (h *Handler) AdminListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	products, err := h.Products.List(ctx, store.ProductFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Query:    strings.TrimSpace(c.Query("q")),
	})
	if err != nil {
		h.serverError(c, "Erreur récupération produits", err)
		return
	}
	h.withImageURLs(ctx, products)
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// 🟢 POST /api/admin/products
func (h *Handler) CreateProduct(c *gin.Context) {
	ctx := c.Request.Context()
	audit.Tag(c, audit.ActionProductCreate, audit.ResourceProduct, "")

	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	p := &models.Product{Active: true}
	in.apply(p)
	if err := models.Validate(p); err != nil {
		invalidInput(c, err)
		return
	}

	if err := h.Products.Create(ctx, p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Un produit avec ce slug existe déjà"})
			return
		}
		h.serverError(c, "Erreur création produit", err)
		return
	}
	audit.Tag(c, audit.ActionProductCreate, audit.ResourceProduct, p.ID)
	h.afterWrite(ctx, h.log(c), p)

	h.log(c).Info("✅ Produit créé", zap.String("product_id", p.ID), zap.String("slug", p.Slug))
	c.JSON(http.StatusCreated, p)
}

// 🟡 PUT /api/admin/products/:id
func (h *Handler) UpdateProduct(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	audit.Tag(c, audit.ActionProductUpdate, audit.ResourceProduct, id)

	var in productInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	p, err := h.Products.Get(ctx, id)
	if err != nil {
		h.notFoundOr500(c, "Produit", err)
		return
	}
	in.apply(p)
	if err := models.Validate(p); err != nil {
		invalidInput(c, err)
		return
	}

	if err := h.Products.Update(ctx, p); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Un produit avec ce slug existe déjà"})
			return
		}
		h.notFoundOr500(c, "Produit", err)
		return
	}
	h.afterWrite(ctx, h.log(c), p)
	h.signImages(ctx, p)
	c.JSON(http.StatusOK, p)
}

// 🔴 DELETE /api/admin/products/:id
func (h *Handler) DeleteProduct(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	audit.Tag(c, audit.ActionProductDelete, audit.ResourceProduct, id)

	p, err := h.Products.Get(ctx, id)
	if err != nil {
		h.notFoundOr500(c, "Produit", err)
		return
	}
	if err := h.Products.Delete(ctx, p.ID); err != nil {
		h.notFoundOr500(c, "Produit", err)
		return
	}

	log := h.log(c)
	if err := h.Search.Delete(ctx, p.ID); err != nil {
		log.Warn("⚠️ suppression index Elasticsearch", zap.String("product_id", p.ID), zap.Error(err))
	}
	for _, key := range p.ImageKeys {
		if err := h.Images.Delete(ctx, key); err != nil {
			log.Warn("⚠️ suppression image", zap.String("key", key), zap.Error(err))
		}
	}
	h.Catalog.Invalidate(ctx)

	c.JSON(http.StatusOK, gin.H{"message": "Produit supprimé"})
}

// 📷 POST /api/admin/products/:id/images (multipart, champ "image")
func (h *Handler) UploadProductImage(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	audit.Tag(c, audit.ActionProductImage, audit.ResourceProduct, id)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxImageSize+1<<20)
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier image requis"})
		return
	}
	if fh.Size > services.MaxImageSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": services.ErrImageTooLarge.Error()})
		return
	}

	p, err := h.Products.Get(ctx, id)
	if err != nil {
		h.notFoundOr500(c, "Produit", err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.serverError(c, "Erreur lecture fichier", err)
		return
	}
	defer f.Close()

	key, err := h.Images.Upload(ctx, p.ID, f, fh.Size)
	switch {
	case errors.Is(err, services.ErrImageTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrImageType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
		return
	case errors.Is(err, services.ErrImagesDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	case err != nil:
		h.serverError(c, "Erreur upload image", err)
		return
	}

	p.ImageKeys = append(p.ImageKeys, key)
	if err := h.Products.Update(ctx, p); err != nil {
		h.serverError(c, "Erreur mise à jour produit", err)
		return
	}
	h.afterWrite(ctx, h.log(c), p)
	h.signImages(ctx, p)

	c.JSON(http.StatusCreated, gin.H{"key": key, "product": p})
}
