package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/search"
	"atelier_back_end/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 48
	maxPageSize     = 100
)

func pageSize(c *gin.Context) int64 {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return defaultPageSize
	}
	return int64(min(n, maxPageSize))
}

func catalogFilter(c *gin.Context) store.ProductFilter {
	skip, _ := strconv.Atoi(c.Query("skip"))
	return store.ProductFilter{
		Category:   strings.TrimSpace(c.Query("category")),
		Query:      strings.TrimSpace(c.Query("q")),
		Featured:   c.Query("featured") == "true",
		ActiveOnly: true,
		Limit:      pageSize(c),
		Skip:       int64(max(skip, 0)),
	}
}

// 🟢 GET /api/products
func (h *Handler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	f := catalogFilter(c)
	key := h.Catalog.Key(f)

	products, hit := h.Catalog.Get(ctx, key)
	if !hit {
		var err error
		products, err = h.Products.List(ctx, f)
		if err != nil {
			h.serverError(c, "Erreur récupération produits", err)
			return
		}
		h.Catalog.Set(ctx, key, products)
	}

	h.withImageURLs(ctx, products)
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

// 🟢 GET /api/products/:id (id ou slug)
func (h *Handler) GetProduct(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.Products.Get(ctx, c.Param("id"))
	if err != nil {
		h.notFoundOr500(c, "Produit", err)
		return
	}
	if !p.Active {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	h.signImages(ctx, p)
	c.JSON(http.StatusOK, p)
}

// 🔍 GET /api/products/search?q=
// Elasticsearch d'abord, filtre par sous-chaîne si ES est absent ou en erreur
func (h *Handler) SearchProducts(c *gin.Context) {
	ctx := c.Request.Context()
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre q requis"})
		return
	}
	limit := int(pageSize(c))

	ids, err := h.Search.Search(ctx, q, limit)
	if err == nil {
		found, err := h.Products.GetMany(ctx, ids)
		if err != nil {
			h.serverError(c, "Erreur récupération produits", err)
			return
		}
		// on garde l'ordre de pertinence d'Elasticsearch
		products := make([]models.Product, 0, len(ids))
		for _, id := range ids {
			if p, ok := found[id]; ok && p.Active {
				products = append(products, p)
			}
		}
		h.withImageURLs(ctx, products)
		c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products), "source": "elasticsearch"})
		return
	}
	if !errors.Is(err, search.ErrDisabled) {
		h.log(c).Warn("⚠️ Elasticsearch indisponible, repli sur le filtre Mongo", zap.Error(err))
	}

	all, err := h.Products.List(ctx, store.ProductFilter{ActiveOnly: true})
	if err != nil {
		h.serverError(c, "Erreur récupération produits", err)
		return
	}
	products := search.MatchProducts(all, q)
	if len(products) > limit {
		products = products[:limit]
	}
	h.withImageURLs(ctx, products)
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products), "source": "substring"})
}
