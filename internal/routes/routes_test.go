package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"atelier_back_end/internal/auth"
	"atelier_back_end/internal/config"
	"atelier_back_end/internal/handlers"
	"atelier_back_end/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(t *testing.T, httpCfg config.HTTPConfig) *gin.Engine {
	t.Helper()
	log := zap.NewNop()
	sessions := auth.NewSessionManager("test-secret-de-32-caracteres-minimum!!", time.Hour, "atelier", true)
	h := handlers.New(handlers.Deps{Sessions: sessions, Log: log}, handlers.Settings{})
	return NewRouter(h, Options{
		Sessions: sessions,
		Limiter:  middleware.NewMemoryLimiter(),
		Metrics:  middleware.NewMetrics(),
		HTTP:     httpCfg,
		HSTS:     true,
		Log:      log,
	})
}

func defaultHTTP() config.HTTPConfig {
	return config.HTTPConfig{
		RateLimitRequests: 2,
		RateLimitWindow:   time.Minute,
		LoginLimit:        5,
		LoginWindow:       time.Minute,
		CORSAllowOrigins:  []string{"https://atelier.example"},
	}
}

func TestRouter_GlobalMiddleware(t *testing.T) {
	r := testRouter(t, defaultHTTP())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := testRouter(t, defaultHTTP())

	req := httptest.NewRequest(http.MethodOptions, "/api/cart", nil)
	req.Header.Set("Origin", "https://atelier.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "https://atelier.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRouter_AdminRequiresSession(t *testing.T) {
	r := testRouter(t, defaultHTTP())

	for _, path := range []string{"/api/admin/dashboard", "/api/admin/orders", "/api/admin/payments", "/api/admin/me"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), middleware.LoginPage+"?next="))
}

func TestRouter_ContactIsRateLimited(t *testing.T) {
	r := testRouter(t, defaultHTTP())

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}

func TestRouter_Metrics(t *testing.T) {
	r := testRouter(t, defaultHTTP())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `atelier_http_requests_total{method="GET",route="/api/cart",status="200"} 1`)
}

func TestRouter_OAuthDisabled(t *testing.T) {
	r := testRouter(t, defaultHTTP())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/auth/google", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
