// Package cart gère le panier anonyme persisté dans un cookie.
package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"atelier_back_end/internal/models"

	"github.com/shopspring/decimal"
)

const (
	CookieName  = "cart"
	MaxLines    = 50
	MaxQuantity = 99
	MaxAge      = 30 * 24 * time.Hour

	// limite navigateur ~4096 octets, nom et attributs compris
	maxCookieBytes = 3800
)

var (
	ErrTooManyLines = errors.New("panier plein")
	ErrTooLarge     = errors.New("panier trop volumineux pour le cookie")
)

type CookieOptions struct {
	Secure bool
	Domain string
}

// Decode lit la valeur brute du cookie. Valeur absente ou illisible = panier vide.
func Decode(raw string) []models.CartItem {
	if raw == "" {
		return []models.CartItem{}
	}
	unescaped, err := url.QueryUnescape(raw)
	if err != nil {
		return []models.CartItem{}
	}
	var items []models.CartItem
	if err := json.Unmarshal([]byte(unescaped), &items); err != nil {
		return []models.CartItem{}
	}

	// on ignore les lignes corrompues plutôt que de rejeter tout le panier,
	// et un produit présent deux fois n'occupe qu'une ligne
	clean := make([]models.CartItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if it.ProductID == "" || it.Quantity < 1 {
			continue
		}
		if i, ok := index[it.ProductID]; ok {
			clean[i].Quantity = min(clean[i].Quantity+it.Quantity, MaxQuantity)
			continue
		}
		if len(clean) == MaxLines {
			continue
		}
		it.Quantity = min(it.Quantity, MaxQuantity)
		index[it.ProductID] = len(clean)
		clean = append(clean, it)
	}
	return clean
}

func Encode(items []models.CartItem) (string, error) {
	if items == nil {
		items = []models.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	value := url.QueryEscape(string(data))
	if len(value) > maxCookieBytes {
		return "", ErrTooLarge
	}
	return value, nil
}

func Read(r *http.Request) []models.CartItem {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return []models.CartItem{}
	}
	return Decode(c.Value)
}

func Write(w http.ResponseWriter, items []models.CartItem, opts CookieOptions) error {
	value, err := Encode(items)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   int(MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func Clear(w http.ResponseWriter, opts CookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Add fusionne avec une ligne existante du même produit, quantité plafonnée
func Add(items []models.CartItem, item models.CartItem) ([]models.CartItem, error) {
	for i := range items {
		if items[i].ProductID == item.ProductID {
			items[i].Quantity = min(items[i].Quantity+item.Quantity, MaxQuantity)
			items[i].Price = item.Price
			items[i].Name = item.Name
			items[i].Image = item.Image
			return items, nil
		}
	}
	if len(items) >= MaxLines {
		return items, ErrTooManyLines
	}
	item.Quantity = min(item.Quantity, MaxQuantity)
	return append(items, item), nil
}

// SetQuantity : qty <= 0 retire la ligne. found=false si le produit n'est pas dans le panier.
func SetQuantity(items []models.CartItem, productID string, qty int) ([]models.CartItem, bool) {
	for i := range items {
		if items[i].ProductID != productID {
			continue
		}
		if qty <= 0 {
			return append(items[:i], items[i+1:]...), true
		}
		items[i].Quantity = min(qty, MaxQuantity)
		return items, true
	}
	return items, false
}

func Remove(items []models.CartItem, productID string) ([]models.CartItem, bool) {
	return SetQuantity(items, productID, 0)
}

func Subtotal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Count retourne le nombre d'articles, pas de lignes
func Count(items []models.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// ProductIDs dans l'ordre du panier
func ProductIDs(items []models.CartItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	return ids
}
