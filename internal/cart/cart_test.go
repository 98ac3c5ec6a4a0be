package cart

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"atelier_back_end/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string, qty int, price string) models.CartItem {
	return models.CartItem{ProductID: id, Name: "Produit " + id, Price: decimal.RequireFromString(price), Quantity: qty}
}

func TestEncodeDecode(t *testing.T) {
	items := []models.CartItem{item("sofa", 1, "45000"), item("lamp", 2, "2999.99")}

	value, err := Encode(items)
	require.NoError(t, err)
	assert.NotContains(t, value, `"`)

	got := Decode(value)
	require.Len(t, got, 2)
	assert.Equal(t, "lamp", got[1].ProductID)
	assert.True(t, got[1].Price.Equal(decimal.RequireFromString("2999.99")))
}

func TestDecode_Garbage(t *testing.T) {
	assert.Empty(t, Decode(""))
	assert.Empty(t, Decode("%zz"))
	assert.Empty(t, Decode(url.QueryEscape("{pas du json")))
	assert.Empty(t, Decode(url.QueryEscape(`{"product_id":"x"}`)))
}

func TestDecode_DropsInvalidLines(t *testing.T) {
	raw := url.QueryEscape(`[{"product_id":"","quantity":1},{"product_id":"a","quantity":0},{"product_id":"b","quantity":500,"price":"10"}]`)
	got := Decode(raw)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ProductID)
	assert.Equal(t, MaxQuantity, got[0].Quantity)
}

func TestDecode_MergesDuplicateLines(t *testing.T) {
	raw := url.QueryEscape(`[{"product_id":"a","quantity":2,"price":"10"},{"product_id":"b","quantity":1,"price":"5"},{"product_id":"a","quantity":2,"price":"10"},{"product_id":"b","quantity":98,"price":"5"}]`)
	got := Decode(raw)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ProductID)
	assert.Equal(t, 4, got[0].Quantity)
	assert.Equal(t, "b", got[1].ProductID)
	assert.Equal(t, MaxQuantity, got[1].Quantity)
}

func TestAdd_MergesSameProduct(t *testing.T) {
	items, err := Add(nil, item("chair", 2, "1500"))
	require.NoError(t, err)
	items, err = Add(items, item("chair", 3, "1400"))
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
	assert.Equal(t, "1400", items[0].Price.String())
}

func TestAdd_CapsQuantity(t *testing.T) {
	items, _ := Add(nil, item("chair", 98, "10"))
	items, _ = Add(items, item("chair", 5, "10"))
	assert.Equal(t, MaxQuantity, items[0].Quantity)
}

func TestAdd_TooManyLines(t *testing.T) {
	var items []models.CartItem
	for i := 0; i < MaxLines; i++ {
		items, _ = Add(items, item(fmt.Sprintf("p%d", i), 1, "1"))
	}
	_, err := Add(items, item("extra", 1, "1"))
	assert.ErrorIs(t, err, ErrTooManyLines)

	// fusion toujours possible sur une ligne existante
	_, err = Add(items, item("p3", 1, "1"))
	assert.NoError(t, err)
}

func TestSetQuantityAndRemove(t *testing.T) {
	items := []models.CartItem{item("a", 1, "10"), item("b", 2, "20"), item("c", 3, "30")}

	items, found := SetQuantity(items, "b", 7)
	require.True(t, found)
	assert.Equal(t, 7, items[1].Quantity)

	items, found = SetQuantity(items, "a", 0)
	require.True(t, found)
	assert.Equal(t, []string{"b", "c"}, ProductIDs(items))

	items, found = Remove(items, "zzz")
	assert.False(t, found)
	assert.Len(t, items, 2)

	items, found = Remove(items, "c")
	assert.True(t, found)
	assert.Equal(t, []string{"b"}, ProductIDs(items))
}

func TestSubtotalAndCount(t *testing.T) {
	items := []models.CartItem{item("a", 2, "1250.25"), item("b", 1, "99.50")}
	assert.Equal(t, "2600", Subtotal(items).String())
	assert.Equal(t, 3, Count(items))
	assert.True(t, Subtotal(nil).IsZero())
}

func TestWriteReadClear(t *testing.T) {
	w := httptest.NewRecorder()
	require.NoError(t, Write(w, []models.CartItem{item("desk", 1, "8999")}, CookieOptions{Secure: true}))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, int(MaxAge.Seconds()), c.MaxAge)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(c)
	got := Read(r)
	require.Len(t, got, 1)
	assert.Equal(t, "desk", got[0].ProductID)

	w = httptest.NewRecorder()
	Clear(w, CookieOptions{})
	assert.True(t, strings.Contains(w.Header().Get("Set-Cookie"), "Max-Age=0"))
}

func TestRead_NoCookie(t *testing.T) {
	assert.Empty(t, Read(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestEncode_TooLarge(t *testing.T) {
	var items []models.CartItem
	for i := 0; i < MaxLines; i++ {
		it := item(fmt.Sprintf("produit-avec-un-identifiant-tres-long-%02d", i), 1, "1")
		it.Name = strings.Repeat("Canapé d'angle ", 4)
		items = append(items, it)
	}
	_, err := Encode(items)
	assert.ErrorIs(t, err, ErrTooLarge)
}
