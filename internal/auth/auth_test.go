package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"atelier_back_end/internal/models"
	"atelier_back_end/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const secret = "test-secret-that-is-at-least-32-bytes!"

func testAdmin() *models.AdminProfile {
	return &models.AdminProfile{ID: "adm-1", Email: "owner@atelier.example", Role: models.RoleAdmin}
}

func TestSession_IssueVerify(t *testing.T) {
	m := NewSessionManager(secret, time.Hour, "atelier", false)

	token, expires, err := m.Issue(testAdmin())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "adm-1", claims.Subject)
	assert.Equal(t, "owner@atelier.example", claims.Email)
	assert.True(t, claims.Admin)
}

func TestSession_Expired(t *testing.T) {
	m := NewSessionManager(secret, time.Hour, "atelier", false)
	token, _, err := m.Issue(testAdmin())
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrExpiredSession)
}

func TestSession_WrongSecretOrIssuer(t *testing.T) {
	m := NewSessionManager(secret, time.Hour, "atelier", false)
	token, _, _ := m.Issue(testAdmin())

	other := NewSessionManager("another-secret-that-is-32-bytes-long", time.Hour, "atelier", false)
	_, err := other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	otherIssuer := NewSessionManager(secret, time.Hour, "boutique", false)
	_, err = otherIssuer.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSession_RejectsOtherAlgorithms(t *testing.T) {
	m := NewSessionManager(secret, time.Hour, "atelier", false)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "adm-1",
			Issuer:    "atelier",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role:  models.RoleAdmin,
		Admin: true,
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = m.Verify(hs512)
	assert.ErrorIs(t, err, ErrInvalidSession)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSession_MissingAdminClaim(t *testing.T) {
	m := NewSessionManager(secret, time.Hour, "atelier", false)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "cust-9",
			Issuer:    "atelier",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "customer",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestSession_MissingExpiry(t *testing.T) {
	m := NewSessionManager(secret, time.Hour, "atelier", false)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "adm-1", Issuer: "atelier"},
		Role:             models.RoleAdmin,
		Admin:            true,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSession_Garbage(t *testing.T) {
	m := NewSessionManager(secret, time.Hour, "atelier", false)
	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := m.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidSession, tok)
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
	assert.Empty(t, TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer header-token")
	assert.Equal(t, "header-token", TokenFromRequest(r))

	r.AddCookie(&http.Cookie{Name: CookieName, Value: "cookie-token"})
	assert.Equal(t, "cookie-token", TokenFromRequest(r))
}

func TestSession_Cookies(t *testing.T) {
	m := NewSessionManager(secret, time.Hour, "atelier", true)

	w := httptest.NewRecorder()
	m.SetCookie(w, "tok", time.Now().Add(time.Hour))
	c := w.Result().Cookies()[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, 3600, c.MaxAge)

	w = httptest.NewRecorder()
	m.ClearCookie(w)
	assert.Contains(t, w.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("Chaise-Longue-2024")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=32768,t=1,p=4$"))

	ok, err := VerifyPassword("Chaise-Longue-2024", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("mauvais", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, _ := HashPassword("Chaise-Longue-2024")
	assert.NotEqual(t, hash, other)
}

func TestPassword_InvalidHash(t *testing.T) {
	for _, h := range []string{"", "$2a$10$bcrypt", "$argon2id$v=19$m=x$salt$hash", "$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA"} {
		_, err := VerifyPassword("x", h)
		assert.ErrorIs(t, err, ErrInvalidHash, h)
	}
}

func TestEmailAllowed(t *testing.T) {
	list := []string{"owner@atelier.example"}
	assert.True(t, EmailAllowed(" Owner@Atelier.example ", list))
	assert.False(t, EmailAllowed("intrus@example.com", list))
	assert.False(t, EmailAllowed("owner@atelier.example", nil))
}

type fakeAdmins struct {
	store.AdminStore
	count   int64
	created []*models.AdminProfile
}

func (f *fakeAdmins) Count(context.Context) (int64, error) { return f.count, nil }

func (f *fakeAdmins) Create(_ context.Context, a *models.AdminProfile) error {
	f.created = append(f.created, a)
	return nil
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()

	empty := &fakeAdmins{}
	require.NoError(t, Bootstrap(ctx, empty, "owner@atelier.example", "s3cret-pass", zap.NewNop()))
	require.Len(t, empty.created, 1)
	ok, err := VerifyPassword("s3cret-pass", empty.created[0].PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	existing := &fakeAdmins{count: 1}
	require.NoError(t, Bootstrap(ctx, existing, "owner@atelier.example", "s3cret-pass", zap.NewNop()))
	assert.Empty(t, existing.created)

	unset := &fakeAdmins{}
	require.NoError(t, Bootstrap(ctx, unset, "", "", zap.NewNop()))
	assert.Empty(t, unset.created)
}

func TestBootstrap_InvalidEmail(t *testing.T) {
	assert.Error(t, Bootstrap(context.Background(), &fakeAdmins{}, "pas-un-email", "x", zap.NewNop()))
}
