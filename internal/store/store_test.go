package store

import (
	"errors"
	"testing"

	"atelier_back_end/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestProductQuery_Empty(t *testing.T) {
	assert.Empty(t, productQuery(ProductFilter{}))
}

func TestProductQuery_Filters(t *testing.T) {
	q := productQuery(ProductFilter{Category: "tables", Featured: true, ActiveOnly: true})
	assert.Equal(t, "tables", q["category"])
	assert.Equal(t, true, q["featured"])
	assert.Equal(t, true, q["active"])
	assert.NotContains(t, q, "$or")
}

func TestProductQuery_EscapesSearchTerm(t *testing.T) {
	q := productQuery(ProductFilter{Query: "chêne (massif)*"})

	or, ok := q["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 4)

	name := or[0].(bson.M)["name"].(bson.M)
	assert.Equal(t, `chêne \(massif\)\*`, name["$regex"])
	assert.Equal(t, "i", name["$options"])
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil))
	assert.ErrorIs(t, mapErr(mongo.ErrNoDocuments), ErrNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, mapErr(dup), ErrConflict)

	other := errors.New("réseau")
	assert.Equal(t, other, mapErr(other))
}

func TestInsufficientStockIsConflict(t *testing.T) {
	assert.ErrorIs(t, ErrInsufficientStock, ErrConflict)
}

func TestSummarize(t *testing.T) {
	stats := summarize([]statusBucket{
		{Status: models.OrderPaid, Count: 2, Total: decimal.RequireFromString("1000.50")},
		{Status: models.OrderShipped, Count: 1, Total: decimal.RequireFromString("499.50")},
		{Status: models.OrderPending, Count: 4, Total: decimal.RequireFromString("8000")},
		{Status: models.OrderRefunded, Count: 1, Total: decimal.RequireFromString("300")},
	})

	assert.Equal(t, int64(8), stats.Orders)
	assert.Equal(t, "1500", stats.Revenue.String())
	assert.Equal(t, int64(4), stats.ByStatus[models.OrderPending])
}

func TestNotFoundIfZero(t *testing.T) {
	assert.ErrorIs(t, notFoundIfZero(0), ErrNotFound)
	assert.NoError(t, notFoundIfZero(1))
}
