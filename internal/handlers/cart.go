package handlers

import (
	"errors"
	"net/http"

	"atelier_back_end/internal/cart"
	"atelier_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type cartLine struct {
	models.CartItem
	ImageURL  string          `json:"image_url,omitempty"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type addItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"omitempty,min=1,max=99"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0,max=99"`
}

func (h *Handler) cartResponse(c *gin.Context, items []models.CartItem) gin.H {
	lines := make([]cartLine, 0, len(items))
	for _, it := range items {
		line := cartLine{CartItem: it, LineTotal: it.LineTotal()}
		if it.Image != "" {
			if u, err := h.Images.URL(c.Request.Context(), it.Image); err == nil {
				line.ImageURL = u
			}
		}
		lines = append(lines, line)
	}
	return gin.H{
		"items":    lines,
		"count":    cart.Count(items),
		"subtotal": cart.Subtotal(items),
	}
}

// saveCart écrit le cookie puis renvoie le panier
func (h *Handler) saveCart(c *gin.Context, items []models.CartItem) {
	if err := cart.Write(c.Writer, items, h.cartCookie()); err != nil {
		if errors.Is(err, cart.ErrTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Panier trop volumineux"})
			return
		}
		h.serverError(c, "Erreur enregistrement panier", err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(c, items))
}

// 🟢 GET /api/cart
func (h *Handler) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.cartResponse(c, cart.Read(c.Request)))
}

// 🟢 POST /api/cart/items
func (h *Handler) AddToCart(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	p, err := h.Products.Get(c.Request.Context(), req.ProductID)
	if err != nil {
		h.notFoundOr500(c, "Produit", err)
		return
	}
	if !p.Purchasable() {
		c.JSON(http.StatusConflict, gin.H{"error": "Produit indisponible"})
		return
	}

	items := cart.Read(c.Request)
	wanted := req.Quantity
	for _, it := range items {
		if it.ProductID == p.ID {
			wanted += it.Quantity
		}
	}
	if wanted > p.Stock {
		c.JSON(http.StatusConflict, gin.H{"error": "Stock insuffisant", "available": p.Stock})
		return
	}

	item := models.CartItem{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: req.Quantity}
	if len(p.ImageKeys) > 0 {
		item.Image = p.ImageKeys[0]
	}
	items, err = cart.Add(items, item)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Panier plein"})
		return
	}
	h.saveCart(c, items)
}

// 🟢 PATCH /api/cart/items/:productId (quantité 0 = suppression)
func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}
	productID := c.Param("productId")
	qty := *req.Quantity

	if qty > 0 {
		p, err := h.Products.Get(c.Request.Context(), productID)
		if err != nil {
			h.notFoundOr500(c, "Produit", err)
			return
		}
		if !p.Purchasable() {
			c.JSON(http.StatusConflict, gin.H{"error": "Produit indisponible"})
			return
		}
		if qty > p.Stock {
			c.JSON(http.StatusConflict, gin.H{"error": "Stock insuffisant", "available": p.Stock})
			return
		}
	}

	items, found := cart.SetQuantity(cart.Read(c.Request), productID, qty)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article absent du panier"})
		return
	}
	h.saveCart(c, items)
}

// 🔴 DELETE /api/cart/items/:productId
func (h *Handler) RemoveFromCart(c *gin.Context) {
	items, found := cart.Remove(cart.Read(c.Request), c.Param("productId"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Article absent du panier"})
		return
	}
	h.saveCart(c, items)
}

// 🔴 DELETE /api/cart
func (h *Handler) ClearCart(c *gin.Context) {
	cart.Clear(c.Writer, h.cartCookie())
	c.JSON(http.StatusOK, h.cartResponse(c, nil))
}
