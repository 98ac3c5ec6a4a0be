package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/store"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	CatalogCacheTTL = 5 * time.Minute
	catalogPrefix   = "catalog:v1:"
)

// Catalog met en cache les listes de produits publiques.
// Un client Redis nil désactive le cache.
type Catalog struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

func NewCatalog(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Catalog {
	if ttl <= 0 {
		ttl = CatalogCacheTTL
	}
	return &Catalog{rdb: rdb, ttl: ttl, log: log}
}

func (c *Catalog) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Key dérive la clé Redis d'un filtre catalogue
func (c *Catalog) Key(f store.ProductFilter) string {
	return fmt.Sprintf("%scat=%s|feat=%t|q=%s|lim=%d|skip=%d",
		catalogPrefix, f.Category, f.Featured, f.Query, f.Limit, f.Skip)
}

func (c *Catalog) Get(ctx context.Context, key string) ([]models.Product, bool) {
	if !c.Enabled() {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("⚠️ lecture cache catalogue", zap.Error(err))
		}
		return nil, false
	}
	var products []models.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false
	}
	return products, true
}

func (c *Catalog) Set(ctx context.Context, key string, products []models.Product) {
	if !c.Enabled() {
		return
	}
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("⚠️ écriture cache catalogue", zap.Error(err))
	}
}

// Invalidate supprime toutes les listes en cache, appelé après chaque écriture admin
func (c *Catalog) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	iter := c.rdb.Scan(ctx, 0, catalogPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.log.Warn("⚠️ scan cache catalogue", zap.Error(err))
		return
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			c.log.Warn("⚠️ invalidation cache catalogue", zap.Error(err))
		}
	}
}
