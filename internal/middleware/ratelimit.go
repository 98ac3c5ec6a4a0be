package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"atelier_back_end/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RateResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter compte les requêtes par clé sur une fenêtre
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateResult, error)
	Reset(ctx context.Context, key string) error
}

// RedisLimiter : fenêtre fixe INCR + EXPIRE, partagée entre instances
type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: "ratelimit:"}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateResult, error) {
	k := l.prefix + key

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateResult{Allowed: true}, err
	}

	retry := ttl.Val()
	// première requête de la fenêtre (ou clé sans expiration)
	if retry <= 0 {
		if err := l.rdb.Expire(ctx, k, window).Err(); err != nil {
			return RateResult{Allowed: true}, err
		}
		retry = window
	}

	count := int(incr.Val())
	return RateResult{
		Allowed:    count <= limit,
		Remaining:  max(limit-count, 0),
		RetryAfter: retry,
	}, nil
}

func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, l.prefix+key).Err()
}

// MemoryLimiter : token bucket par clé, utilisé sans Redis
type MemoryLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	maxKeys  int
	staleTTL time.Duration
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]*bucket), maxKeys: 10000, staleTTL: time.Hour}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (RateResult, error) {
	now := time.Now()
	every := window / time.Duration(max(limit, 1))

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.maxKeys {
			l.prune(now)
		}
		b = &bucket{lim: rate.NewLimiter(rate.Every(every), limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	if b.lim.AllowN(now, 1) {
		return RateResult{Allowed: true, Remaining: int(math.Floor(b.lim.TokensAt(now)))}, nil
	}
	return RateResult{Allowed: false, Remaining: 0, RetryAfter: every}, nil
}

func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.buckets, key)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLimiter) prune(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.staleTTL {
			delete(l.buckets, k)
		}
	}
}

// KeyFunc extrait la clé de limitation d'une requête
type KeyFunc func(c *gin.Context) string

func ByIP(c *gin.Context) string { return c.ClientIP() }

// ByEmailAndIP lit l'e-mail du body JSON sans le consommer
func ByEmailAndIP(c *gin.Context) string {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil {
		return c.ClientIP()
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	var input struct {
		Email string `json:"email"`
	}
	_ = json.Unmarshal(body, &input)
	return strings.ToLower(strings.TrimSpace(input.Email)) + "|" + c.ClientIP()
}

// RateLimit répond 429 au-delà de limit requêtes par fenêtre.
// Une panne du limiter laisse passer la requête.
func RateLimit(l Limiter, name string, limit int, window time.Duration, key KeyFunc, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := l.Allow(c.Request.Context(), name+":"+key(c), limit, window)
		if err != nil {
			logger.FromContext(c, log).Warn("⚠️ rate limiter indisponible", zap.String("limiter", name), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if !res.Allowed {
			secs := int(math.Ceil(res.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Trop de requêtes. Réessayez plus tard",
				"retry_after": secs,
			})
			return
		}
		c.Next()
	}
}

// LoginRateLimit compte chaque tentative par e-mail et IP, un login réussi (200) remet le compteur à zéro
func LoginRateLimit(l Limiter, limit int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "login:" + ByEmailAndIP(c)
		ctx := c.Request.Context()

		res, err := l.Allow(ctx, key, limit, window)
		if err != nil {
			logger.FromContext(c, log).Warn("⚠️ rate limiter indisponible", zap.String("limiter", "login"), zap.Error(err))
			c.Next()
			return
		}
		if !res.Allowed {
			secs := int(math.Ceil(res.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Trop de tentatives échouées. Réessayez plus tard",
				"retry_after": secs,
			})
			return
		}

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			if err := l.Reset(ctx, key); err != nil {
				logger.FromContext(c, log).Warn("⚠️ reset rate limit login", zap.Error(err))
			}
		}
	}
}
