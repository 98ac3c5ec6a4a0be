package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Dimensions en centimètres
type Dimensions struct {
	WidthCm  float64 `json:"width_cm" bson:"width_cm" validate:"gte=0"`
	DepthCm  float64 `json:"depth_cm" bson:"depth_cm" validate:"gte=0"`
	HeightCm float64 `json:"height_cm" bson:"height_cm" validate:"gte=0"`
}

type Product struct {
	ID             string           `json:"id" bson:"_id"`
	Name           string           `json:"name" bson:"name" validate:"required,min=2,max=120"`
	Slug           string           `json:"slug" bson:"slug" validate:"omitempty,max=140"`
	Description    string           `json:"description" bson:"description" validate:"max=5000"`
	Category       string           `json:"category" bson:"category" validate:"required,max=60"`
	Price          decimal.Decimal  `json:"price" bson:"price" validate:"gt=0"`
	CompareAtPrice *decimal.Decimal `json:"compare_at_price,omitempty" bson:"compare_at_price,omitempty" validate:"omitempty,gt=0"`
	Stock          int              `json:"stock" bson:"stock" validate:"gte=0"`
	Materials      []string         `json:"materials" bson:"materials" validate:"max=10,dive,max=40"`
	Colors         []string         `json:"colors" bson:"colors" validate:"max=10,dive,max=40"`
	Dimensions     Dimensions       `json:"dimensions" bson:"dimensions"`
	WeightKg       float64          `json:"weight_kg" bson:"weight_kg" validate:"gte=0"`
	ImageKeys      []string         `json:"image_keys" bson:"image_keys"`
	ImageURLs      []string         `json:"image_urls,omitempty" bson:"-"`
	Featured       bool             `json:"featured" bson:"featured"`
	Active         bool             `json:"active" bson:"active"`
	CreatedAt      time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" bson:"updated_at"`
}

// Purchasable : actif et en stock
func (p *Product) Purchasable() bool {
	return p.Active && p.Stock > 0
}

func (p *Product) LowStock(threshold int) bool {
	return p.Stock < threshold
}

// Slugify transforme "Table basse Öland" en "table-basse-öland"
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
